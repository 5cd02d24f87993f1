package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/opuslog/backend/internal/models"
	"github.com/opuslog/backend/internal/notify"
	"github.com/opuslog/backend/internal/repositories"
	"gorm.io/gorm"
)

// WriteUpHandler handles creations (articles, books, magazines, live and
// group writing events)
type WriteUpHandler struct {
	writeUpRepository      repositories.WriteUpRepository
	groupWritingRepository repositories.GroupWritingRepository
	requestRepository      repositories.RequestRepository
	userRepository         repositories.UserRepository
	dispatcher             *notify.Dispatcher
}

// NewWriteUpHandler creates a new WriteUpHandler
func NewWriteUpHandler(
	writeUpRepo repositories.WriteUpRepository,
	groupWritingRepo repositories.GroupWritingRepository,
	requestRepo repositories.RequestRepository,
	userRepo repositories.UserRepository,
	dispatcher *notify.Dispatcher,
) *WriteUpHandler {
	return &WriteUpHandler{
		writeUpRepository:      writeUpRepo,
		groupWritingRepository: groupWritingRepo,
		requestRepository:      requestRepo,
		userRepository:         userRepo,
		dispatcher:             dispatcher,
	}
}

// RegisterWriteUpRoutes registers write-up routes
func (h *WriteUpHandler) RegisterWriteUpRoutes(g *echo.Group) {
	g.POST("/writeups", h.CreateWriteUp)
	g.GET("/writeups/:uuid", h.GetWriteUp)
	g.POST("/writeups/:uuid/contributors", h.InviteContributor)
}

// CreateWriteUp creates a write-up owned by the actor. Group-writing kinds
// also get their article row so the lease machinery has something to lock.
func (h *WriteUpHandler) CreateWriteUp(c echo.Context) error {
	actor, err := getActorFromContext(c)
	if err != nil {
		return err
	}

	var req models.CreateWriteUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	writeUp := &models.WriteUp{
		UUID:        uuid.New().String(),
		Title:       req.Title,
		Kind:        req.Kind,
		Description: req.Description,
		OwnerType:   actor.Type(),
		OwnerID:     actor.ID(),
	}
	if err := h.writeUpRepository.CreateWriteUp(writeUp); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// The owning user is also the first write-up contributor.
	if u := actor.ActingUser(); u != nil {
		wc := &models.WriteUpContributor{
			WriteUpID:     writeUp.ID,
			ContributorID: u.ID,
			IsOwner:       true,
		}
		if err := h.writeUpRepository.AddWriteUpContributor(wc, []string{models.PermCanEdit}); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	if writeUp.Kind == models.WriteUpGroupWriting {
		gw := &models.GroupWriting{WriteUpID: writeUp.ID, Active: true}
		if err := h.groupWritingRepository.CreateGroupWriting(gw); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusCreated, writeUp)
}

// GetWriteUp retrieves a write-up by its public uuid
func (h *WriteUpHandler) GetWriteUp(c echo.Context) error {
	writeUp, err := h.writeUpRepository.GetWriteUpByUUID(c.Param("uuid"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Write up not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, writeUp)
}

// InviteContributorRequest names the user a write-up owner invites
type InviteContributorRequest struct {
	Handler string `json:"handler" validate:"required"`
}

// InviteContributor sends a contribution request to a user; the user joins
// the write-up's contributors on acceptance
func (h *WriteUpHandler) InviteContributor(c echo.Context) error {
	actor, err := getActorFromContext(c)
	if err != nil {
		return err
	}

	var req InviteContributorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	writeUp, err := h.writeUpRepository.GetWriteUpByUUID(c.Param("uuid"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Write up not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if writeUp.OwnerType != actor.Type() || writeUp.OwnerID != actor.ID() {
		return echo.NewHTTPError(http.StatusForbidden, "Only the owner can invite contributors")
	}

	user, err := h.userRepository.GetUserByHandler(req.Handler)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	requestLog := &models.RequestLog{
		RequestForType:  "write_up",
		RequestForID:    writeUp.ID,
		RequestFromType: actor.Type(),
		RequestFromID:   actor.ID(),
		RequestToType:   models.ActorUser,
		RequestToID:     user.ID,
		Status:          models.RequestPending,
		Action:          models.ActionAddWriteUpContributor,
		Params: map[string]interface{}{
			"write_up_id": writeUp.ID,
			"user_id":     user.ID,
		},
	}
	if err := h.requestRepository.CreateRequest(requestLog); err != nil {
		if err == repositories.ErrDuplicateRequest {
			return echo.NewHTTPError(http.StatusConflict, "A request has already been sent to the desired user")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.dispatcher.NotifySingle(notify.Ref{Type: models.ActorUser, ID: user.ID}, notify.Event{
		Kind:        models.KindRequest,
		Target:      notify.Ref{Type: "write_up", ID: writeUp.ID},
		TemplateKey: models.ActionAddWriteUpContributor,
		Data: map[string]interface{}{
			"acted_on":       writeUp.Title,
			"action":         models.ActionAddWriteUpContributor,
			"request_log_id": requestLog.ID,
		},
		ActorHandler: actor.Handler(),
		Contributor:  actingUsername(actor),
		RedirectURL:  "/request/",
	})

	return c.JSON(http.StatusCreated, requestLog)
}
