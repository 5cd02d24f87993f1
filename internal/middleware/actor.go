package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/opuslog/backend/internal/models"
	"github.com/opuslog/backend/internal/repositories"
	"gorm.io/gorm"
)

const actorContextKey = "actor"

// ResolveUserActor loads the authenticated user once per request and stores a
// user Actor on the context.
func ResolveUserActor(users repositories.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get("userID").(uint)
			if !ok || userID == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
			}
			user, err := users.GetUserByID(userID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authenticated user not found")
			}
			c.Set(actorContextKey, models.UserActor(user))
			return next(c)
		}
	}
}

// ResolvePublicationActor resolves the ":pub_handler" path segment into a
// publication Actor for the authenticated user. Missing publication or
// missing contributor row are both a 404: the caller has no standing on that
// publication.
func ResolvePublicationActor(users repositories.UserRepository, publications repositories.PublicationRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get("userID").(uint)
			if !ok || userID == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
			}
			handler := c.Param("pub_handler")
			if handler == "" {
				return echo.NewHTTPError(http.StatusNotFound, "Publication not found")
			}
			pub, err := publications.GetPublicationByHandler(handler)
			if err != nil {
				return echo.NewHTTPError(http.StatusNotFound, "Publication not found")
			}
			contributor, err := publications.GetContributor(pub.ID, userID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return echo.NewHTTPError(http.StatusNotFound, "Publication not found")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to resolve contributor")
			}
			c.Set(actorContextKey, models.PublicationActor(contributor))
			return next(c)
		}
	}
}

// GetActor returns the Actor resolved by one of the middlewares above.
func GetActor(c echo.Context) (models.Actor, bool) {
	actor, ok := c.Get(actorContextKey).(models.Actor)
	return actor, ok
}
