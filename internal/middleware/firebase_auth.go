package middleware

import (
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/opuslog/backend/internal/repositories"
)

// FirebaseAuthMiddleware authenticates a request carrying a Firebase ID token.
// The token's UID must already be linked to an account through the
// firebase-login handler; unlinked identities are refused, never
// auto-provisioned.
func FirebaseAuthMiddleware(authClient *auth.Client, users repositories.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			idToken, err := bearerToken(c)
			if err != nil {
				return err
			}

			token, err := authClient.VerifyIDToken(c.Request().Context(), idToken)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired ID token")
			}

			user, err := users.GetUserByFirebaseUID(token.UID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "No account linked to this Firebase identity")
			}

			c.Set("firebaseUID", token.UID)
			c.Set("userID", user.ID)
			return next(c)
		}
	}
}

// Authenticate accepts either credential on the same Bearer header: the
// session JWT issued at sign-in, or a raw Firebase ID token for clients that
// skip the token exchange. The session JWT is tried first; anything it cannot
// parse falls through to Firebase verification.
func Authenticate(authClient *auth.Client, users repositories.UserRepository) echo.MiddlewareFunc {
	firebase := FirebaseAuthMiddleware(authClient, users)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		firebaseNext := firebase(next)
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c)
			if err != nil {
				return err
			}
			if claims, err := parseSessionToken(tokenString); err == nil {
				c.Set("user", claims)
				c.Set("userID", claims.UserID)
				return next(c)
			}
			return firebaseNext(c)
		}
	}
}
