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

// MemberHandler handles thread membership. Additions always go through the
// request workflow: the target joins only after accepting, direct removal is
// immediate.
type MemberHandler struct {
	threadRepository      repositories.ThreadRepository
	requestRepository     repositories.RequestRepository
	userRepository        repositories.UserRepository
	publicationRepository repositories.PublicationRepository
	dispatcher            *notify.Dispatcher
}

// NewMemberHandler creates a new MemberHandler
func NewMemberHandler(
	threadRepo repositories.ThreadRepository,
	requestRepo repositories.RequestRepository,
	userRepo repositories.UserRepository,
	publicationRepo repositories.PublicationRepository,
	dispatcher *notify.Dispatcher,
) *MemberHandler {
	return &MemberHandler{
		threadRepository:      threadRepo,
		requestRepository:     requestRepo,
		userRepository:        userRepo,
		publicationRepository: publicationRepo,
		dispatcher:            dispatcher,
	}
}

// RegisterMemberRoutes registers thread membership routes
func (h *MemberHandler) RegisterMemberRoutes(g *echo.Group) {
	g.POST("/threads/:id/members", h.RequestAddMember)
	g.DELETE("/threads/:id/members", h.RemoveMember)
}

// RequestAddMember creates a pending membership request addressed to the
// target and notifies them. A second request for the same pending pair is a
// conflict.
func (h *MemberHandler) RequestAddMember(c echo.Context) error {
	actor, err := getActorFromContext(c)
	if err != nil {
		return err
	}

	threadID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req models.MemberRequest
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

	memberID, memberHandler, err := h.resolveMember(req.MemberType, req.Handler)
	if err != nil {
		return err
	}

	requestLog := &models.RequestLog{
		RequestForType:  "thread",
		RequestForID:    thread.ID,
		RequestFromType: actor.Type(),
		RequestFromID:   actor.ID(),
		RequestToType:   req.MemberType,
		RequestToID:     memberID,
		Status:          models.RequestPending,
		Action:          models.ActionAddThreadMember,
		Params: map[string]interface{}{
			"thread_id":   thread.ID,
			"member_type": req.MemberType,
			"member_id":   memberID,
		},
	}
	if err := h.requestRepository.CreateRequest(requestLog); err != nil {
		if err == repositories.ErrDuplicateRequest {
			return echo.NewHTTPError(http.StatusConflict, "A request has already been sent to the desired user")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	event := notify.Event{
		Kind:            models.KindRequest,
		Target:          notify.Ref{Type: "thread", ID: thread.ID},
		TemplateKey:     models.TemplateAddThreadMember,
		SelfTemplateKey: models.TemplateAddThreadMemberPub,
		Data: map[string]interface{}{
			"acted_on":       thread.Subject,
			"user_handler":   memberHandler,
			"action":         models.ActionAddThreadMember,
			"request_log_id": requestLog.ID,
		},
		ActorHandler: actor.Handler(),
		Contributor:  actingUsername(actor),
		RedirectURL:  "/request/",
	}
	h.dispatcher.NotifySingle(notify.Ref{Type: req.MemberType, ID: memberID}, event)
	if actor.IsPublication() {
		h.dispatcher.NotifySelf(actor.Contributor.PublicationID, event)
	}

	return c.JSON(http.StatusCreated, requestLog)
}

// RemoveMember removes a member from a thread, tells them directly and
// broadcasts the removal to the remaining members
func (h *MemberHandler) RemoveMember(c echo.Context) error {
	actor, err := getActorFromContext(c)
	if err != nil {
		return err
	}

	threadID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req models.MemberRequest
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

	memberID, memberHandler, err := h.resolveMember(req.MemberType, req.Handler)
	if err != nil {
		return err
	}

	if err := h.threadRepository.RemoveMember(thread.ID, req.MemberType, memberID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Member not found on thread")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// The removed member gets a direct notice; the remaining members get the
	// broadcast form. The broadcast runs after removal, so it cannot reach
	// the removed member.
	h.dispatcher.NotifySingle(notify.Ref{Type: req.MemberType, ID: memberID}, notify.Event{
		Kind:         models.KindRemoveMember,
		Target:       notify.Ref{Type: "thread", ID: thread.ID},
		TemplateKey:  models.TemplateDirectedTo,
		Data:         map[string]interface{}{"acted_on": thread.Subject},
		ActorHandler: actor.Handler(),
		Contributor:  actingUsername(actor),
	})
	broadcast := notify.Event{
		Kind:        models.KindRemoveMember,
		Target:      notify.Ref{Type: "thread", ID: thread.ID},
		TemplateKey: models.TemplateSingle,
		Data: map[string]interface{}{
			"acted_on":      thread.Subject,
			"acted_on_user": memberHandler,
		},
		ActorHandler: actor.Handler(),
		Contributor:  actingUsername(actor),
		RedirectURL:  "/threads/" + itoa(thread.ID),
	}
	h.dispatcher.NotifyThreadMembers(thread.ID, broadcast)
	if actor.IsPublication() {
		h.dispatcher.NotifySelf(actor.Contributor.PublicationID, broadcast)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *MemberHandler) resolveMember(memberType, handler string) (uint, string, error) {
	switch memberType {
	case models.ActorUser:
		user, err := h.userRepository.GetUserByHandler(handler)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return 0, "", echo.NewHTTPError(http.StatusNotFound, "User not found")
			}
			return 0, "", echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return user.ID, user.Handler, nil
	case models.ActorPublication:
		pub, err := h.publicationRepository.GetPublicationByHandler(handler)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return 0, "", echo.NewHTTPError(http.StatusNotFound, "Publication not found")
			}
			return 0, "", echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return pub.ID, pub.Handler, nil
	default:
		return 0, "", echo.NewHTTPError(http.StatusBadRequest, "Invalid member type")
	}
}
