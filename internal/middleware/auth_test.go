package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/opuslog/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signSessionToken(t *testing.T, secret string, userID uint) string {
	t.Helper()
	claims := &models.JwtCustomClaims{
		UserID: userID,
		Email:  "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

// Firebase verification needs a live client, so these tests only cover the
// session-JWT path and the header checks that run before either verifier.
func authContext(header string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthenticateAcceptsSessionJWT(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")
	token := signSessionToken(t, "testsecret", 7)

	c, _ := authContext("Bearer " + token)
	called := false
	h := Authenticate(nil, nil)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	require.NoError(t, h(c))
	assert.True(t, called)
	assert.Equal(t, uint(7), c.Get("userID"))
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	c, _ := authContext("")
	h := Authenticate(nil, nil)(func(c echo.Context) error {
		t.Fatal("handler must not run")
		return nil
	})

	err := h(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestAuthenticateRejectsMalformedHeader(t *testing.T) {
	c, _ := authContext("Token abc")
	h := Authenticate(nil, nil)(func(c echo.Context) error {
		t.Fatal("handler must not run")
		return nil
	})

	err := h(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestParseSessionTokenRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")
	token := signSessionToken(t, "someothersecret", 7)

	_, err := parseSessionToken(token)
	assert.Error(t, err)
}
