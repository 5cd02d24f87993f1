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

// MessageHandler handles messages inside threads
type MessageHandler struct {
	threadRepository repositories.ThreadRepository
	dispatcher       *notify.Dispatcher
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(threadRepo repositories.ThreadRepository, dispatcher *notify.Dispatcher) *MessageHandler {
	return &MessageHandler{
		threadRepository: threadRepo,
		dispatcher:       dispatcher,
	}
}

// RegisterMessageRoutes registers message-related routes
func (h *MessageHandler) RegisterMessageRoutes(g *echo.Group) {
	g.GET("/threads/:id/messages", h.GetMessages)
	g.POST("/threads/:id/messages", h.CreateMessage)
}

// GetMessages lists the messages of a thread the actor is a member of
func (h *MessageHandler) GetMessages(c echo.Context) error {
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

	messages, err := h.threadRepository.GetMessages(thread.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, messages)
}

// CreateMessage posts a message on a thread and notifies its members. The
// sender is always the acting user, also when writing in a publication's
// name.
func (h *MessageHandler) CreateMessage(c echo.Context) error {
	actor, err := getActorFromContext(c)
	if err != nil {
		return err
	}

	threadID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req models.CreateMessageRequest
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

	message := &models.Message{
		ThreadID: thread.ID,
		Body:     req.Body,
	}
	if u := actor.ActingUser(); u != nil {
		message.SenderID = u.ID
	}
	if err := h.threadRepository.CreateMessage(message); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	event := notify.Event{
		Kind:         models.KindNewMessage,
		Target:       notify.Ref{Type: "thread", ID: thread.ID},
		Data:         map[string]interface{}{"acted_on": thread.Subject},
		ActorHandler: actor.Handler(),
		Contributor:  actingUsername(actor),
		RedirectURL:  "/threads/" + itoa(thread.ID),
	}
	h.dispatcher.NotifyThreadMembers(thread.ID, event)
	if actor.IsPublication() {
		h.dispatcher.NotifySelf(actor.Contributor.PublicationID, event)
	}

	return c.JSON(http.StatusCreated, message)
}
