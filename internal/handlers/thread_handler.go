package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/opuslog/backend/internal/models"
	"github.com/opuslog/backend/internal/notify"
	"github.com/opuslog/backend/internal/repositories"
	"gorm.io/gorm"
)

// ThreadHandler handles conversation threads
type ThreadHandler struct {
	threadRepository repositories.ThreadRepository
	dispatcher       *notify.Dispatcher
}

// NewThreadHandler creates a new ThreadHandler
func NewThreadHandler(threadRepo repositories.ThreadRepository, dispatcher *notify.Dispatcher) *ThreadHandler {
	return &ThreadHandler{
		threadRepository: threadRepo,
		dispatcher:       dispatcher,
	}
}

// RegisterThreadRoutes registers thread-related routes
func (h *ThreadHandler) RegisterThreadRoutes(g *echo.Group) {
	g.GET("/threads", h.GetThreads)
	g.POST("/threads", h.CreateThread)
	g.GET("/threads/:id", h.GetThread)
	g.PATCH("/threads/:id", h.UpdateThread)
}

// GetThreads lists the threads the actor is an active member of
func (h *ThreadHandler) GetThreads(c echo.Context) error {
	actor, err := getActorFromContext(c)
	if err != nil {
		return err
	}

	threads, err := h.threadRepository.GetThreadsForActor(actor)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, threads)
}

// GetThread retrieves a single thread; non-members get a 404, not a 403, so
// thread existence is not leaked
func (h *ThreadHandler) GetThread(c echo.Context) error {
	actor, err := getActorFromContext(c)
	if err != nil {
		return err
	}

	threadID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	thread, err := h.threadRepository.GetThreadForActor(threadID, actor)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Thread not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, thread)
}

// CreateThread creates a thread with the actor as its first member. A
// publication actor's own contributors learn about it through the internal
// feed.
func (h *ThreadHandler) CreateThread(c echo.Context) error {
	actor, err := getActorFromContext(c)
	if err != nil {
		return err
	}

	var req models.CreateThreadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	thread := &models.Thread{Subject: req.Subject}
	if u := actor.ActingUser(); u != nil {
		thread.CreatedByID = u.ID
	}
	if err := h.threadRepository.CreateThreadWithMember(thread, actor); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if actor.IsPublication() {
		h.dispatcher.NotifySelf(actor.Contributor.PublicationID, notify.Event{
			Kind:         models.KindNewThread,
			Target:       notify.Ref{Type: "thread", ID: thread.ID},
			Data:         map[string]interface{}{"acted_on": thread.Subject},
			ActorHandler: actor.Handler(),
			Contributor:  actingUsername(actor),
			RedirectURL:  "/threads/" + itoa(thread.ID),
		})
	}

	return c.JSON(http.StatusCreated, thread)
}

// UpdateThread renames a thread's subject and notifies every member with the
// old subject alongside the new one
func (h *ThreadHandler) UpdateThread(c echo.Context) error {
	actor, err := getActorFromContext(c)
	if err != nil {
		return err
	}

	threadID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req models.UpdateThreadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	thread, err := h.threadRepository.GetThreadForActor(threadID, actor)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Thread not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	oldSubject := thread.Subject
	if err := h.threadRepository.UpdateSubject(thread, req.Subject); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	event := notify.Event{
		Kind:        models.KindUpdateThread,
		Target:      notify.Ref{Type: "thread", ID: thread.ID},
		TemplateKey: models.TemplateSingle,
		Data: map[string]interface{}{
			"acted_on":    req.Subject,
			"old_subject": oldSubject,
		},
		ActorHandler: actor.Handler(),
		Contributor:  actingUsername(actor),
		RedirectURL:  "/threads/" + itoa(thread.ID),
	}
	h.dispatcher.NotifyThreadMembers(thread.ID, event)
	if actor.IsPublication() {
		h.dispatcher.NotifySelf(actor.Contributor.PublicationID, event)
	}

	return c.JSON(http.StatusOK, thread)
}
