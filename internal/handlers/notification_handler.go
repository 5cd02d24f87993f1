package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/opuslog/backend/internal/repositories"
	"gorm.io/gorm"
)

// NotificationHandler handles the notification feed of the authenticated user
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationRepo repositories.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notificationRepository: notificationRepo}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetAll)
	g.GET("/notifications/unread", h.GetUnread)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
}

// GetAll retrieves the user's full notification feed, newest first
func (h *NotificationHandler) GetAll(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	notifications, err := h.notificationRepository.GetAll(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, notifications)
}

// GetUnread retrieves the undelivered notifications
func (h *NotificationHandler) GetUnread(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	notifications, err := h.notificationRepository.GetUnread(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, notifications)
}

// GetUnreadCount returns the number of undelivered notifications
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	count, err := h.notificationRepository.GetUnreadCount(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"unread_count": count})
}

// MarkAsRead marks one notification delivered. Marking closes the
// aggregation window: the next event of the same kind opens a fresh row.
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	if _, err := h.notificationRepository.GetByID(id, userID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.notificationRepository.MarkAsRead(id, userID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllAsRead marks the whole feed delivered
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	if err := h.notificationRepository.MarkAllAsRead(userID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
