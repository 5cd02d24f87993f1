package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/opuslog/backend/internal/models"
	"github.com/opuslog/backend/internal/repositories"
	"gorm.io/gorm"
)

// GroupWritingHandler handles the group-writing lock lease: one writer at a
// time holds the article, kept alive by a frequent heartbeat and a slower
// human challenge. The cron sweep voids stale sessions.
type GroupWritingHandler struct {
	groupWritingRepository repositories.GroupWritingRepository
	writeUpRepository      repositories.WriteUpRepository
}

// NewGroupWritingHandler creates a new GroupWritingHandler
func NewGroupWritingHandler(
	groupWritingRepo repositories.GroupWritingRepository,
	writeUpRepo repositories.WriteUpRepository,
) *GroupWritingHandler {
	return &GroupWritingHandler{
		groupWritingRepository: groupWritingRepo,
		writeUpRepository:      writeUpRepo,
	}
}

// RegisterGroupWritingRoutes registers group-writing routes
func (h *GroupWritingHandler) RegisterGroupWritingRoutes(g *echo.Group) {
	g.POST("/writeups/:uuid/lock", h.AcquireLock)
	g.PUT("/writeups/:uuid/lock/heartbeat", h.Heartbeat)
	g.PUT("/writeups/:uuid/lock/challenge", h.Challenge)
	g.POST("/writeups/:uuid/extend", h.Extend)
	g.DELETE("/writeups/:uuid/lock", h.ReleaseLock)
}

// AcquireLock opens a writing session on a group-writing article. A second
// acquire while another writer holds it is a conflict.
func (h *GroupWritingHandler) AcquireLock(c echo.Context) error {
	actor, gw, err := h.resolveArticle(c)
	if err != nil {
		return err
	}

	history, err := h.groupWritingRepository.AcquireLock(gw.ID, actor.ActingUser().ID, time.Now())
	if err != nil {
		if err == repositories.ErrArticleLocked {
			return echo.NewHTTPError(http.StatusConflict, "Another writer currently holds this article")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, history)
}

// Heartbeat refreshes the holder's frequent keep-alive timestamp
func (h *GroupWritingHandler) Heartbeat(c echo.Context) error {
	return h.refresh(c, h.groupWritingRepository.RefreshX)
}

// Challenge refreshes the holder's human-challenge timestamp
func (h *GroupWritingHandler) Challenge(c echo.Context) error {
	return h.refresh(c, h.groupWritingRepository.RefreshY)
}

func (h *GroupWritingHandler) refresh(c echo.Context, fn func(articleID, holderID uint, now time.Time) error) error {
	actor, gw, err := h.resolveArticle(c)
	if err != nil {
		return err
	}

	if err := fn(gw.ID, actor.ActingUser().ID, time.Now()); err != nil {
		if err == repositories.ErrNoActiveLock {
			return echo.NewHTTPError(http.StatusNotFound, "No active writing session held by you")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// Extend appends the holder's contribution as the next sequenced block and
// closes the session
func (h *GroupWritingHandler) Extend(c echo.Context) error {
	actor, gw, err := h.resolveArticle(c)
	if err != nil {
		return err
	}

	var req models.ExtendGroupWritingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	holderID := actor.ActingUser().ID
	active, err := h.groupWritingRepository.GetActiveLock(gw.ID)
	if err != nil || active.LockHolderID != holderID {
		return echo.NewHTTPError(http.StatusForbidden, "You do not hold the writing session")
	}

	entry, err := h.groupWritingRepository.AppendText(gw.ID, holderID, req.Text)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.groupWritingRepository.CompleteLock(gw.ID, holderID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, entry)
}

// ReleaseLock closes the holder's session without contributing text
func (h *GroupWritingHandler) ReleaseLock(c echo.Context) error {
	actor, gw, err := h.resolveArticle(c)
	if err != nil {
		return err
	}

	if err := h.groupWritingRepository.CompleteLock(gw.ID, actor.ActingUser().ID); err != nil {
		if err == repositories.ErrNoActiveLock {
			return echo.NewHTTPError(http.StatusNotFound, "No active writing session held by you")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *GroupWritingHandler) resolveArticle(c echo.Context) (models.Actor, *models.GroupWriting, error) {
	actor, err := getActorFromContext(c)
	if err != nil {
		return models.Actor{}, nil, err
	}
	if actor.ActingUser() == nil {
		return models.Actor{}, nil, echo.NewHTTPError(http.StatusForbidden, "Writing sessions are held by users")
	}

	writeUp, err := h.writeUpRepository.GetWriteUpByUUID(c.Param("uuid"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return models.Actor{}, nil, echo.NewHTTPError(http.StatusNotFound, "Write up not found")
		}
		return models.Actor{}, nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	gw, err := h.groupWritingRepository.GetByWriteUpID(writeUp.ID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return models.Actor{}, nil, echo.NewHTTPError(http.StatusNotFound, "Not a group writing event")
		}
		return models.Actor{}, nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !gw.Active {
		return models.Actor{}, nil, echo.NewHTTPError(http.StatusBadRequest, "Group writing event is closed")
	}
	return actor, gw, nil
}
