package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/opuslog/backend/internal/models"
)

// PermissionTable maps an HTTP method to the permission codes it requires on
// the publication the actor is acting for. Every listed code must be held
// (logical AND); the owner level satisfies all codes implicitly.
type PermissionTable map[string][]string

// RequirePermissions gates a publication-scoped route group. A method with no
// entry in the table is denied: the gate fails closed.
func RequirePermissions(table PermissionTable) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := GetActor(c)
			if !ok || !actor.IsPublication() {
				return echo.NewHTTPError(http.StatusForbidden, "Permission denied")
			}
			codes, configured := table[c.Request().Method]
			if !configured {
				return echo.NewHTTPError(http.StatusForbidden, "Permission denied")
			}
			if !HasPermissions(actor.Contributor, codes) {
				return echo.NewHTTPError(http.StatusForbidden, "Permission denied")
			}
			return next(c)
		}
	}
}

// HasPermissions checks a contributor row against a list of required codes.
func HasPermissions(cl *models.ContributorList, codes []string) bool {
	if cl == nil {
		return false
	}
	if cl.Level == models.LevelOwner {
		return true
	}
	held := make(map[string]bool, len(cl.Permissions))
	for _, p := range cl.Permissions {
		held[p.CodeName] = true
	}
	for _, code := range codes {
		if !held[code] {
			return false
		}
	}
	return true
}
