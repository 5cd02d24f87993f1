package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/opuslog/backend/internal/middleware"
	"github.com/opuslog/backend/internal/models"
)

// getUserIDFromContext reads the authenticated user id placed on the context
// by the JWT middleware.
func getUserIDFromContext(c echo.Context) (uint, error) {
	userID, ok := c.Get("userID").(uint)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "Missing authenticated user")
	}
	return userID, nil
}

// getActorFromContext reads the resolved actor placed on the context by the
// actor middleware.
func getActorFromContext(c echo.Context) (models.Actor, error) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return models.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "Missing resolved actor")
	}
	return actor, nil
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseUintParam(c echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(v), nil
}

// actingUsername is the contributor field of notification events: the
// username behind a publication action, empty for plain user actors.
func actingUsername(actor models.Actor) string {
	if !actor.IsPublication() {
		return ""
	}
	if u := actor.ActingUser(); u != nil {
		return u.Handler
	}
	return ""
}
