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

// PublicationHandler handles publications and their contributor roster
type PublicationHandler struct {
	publicationRepository repositories.PublicationRepository
	userRepository        repositories.UserRepository
	requestRepository     repositories.RequestRepository
	dispatcher            *notify.Dispatcher
}

// NewPublicationHandler creates a new PublicationHandler
func NewPublicationHandler(
	publicationRepo repositories.PublicationRepository,
	userRepo repositories.UserRepository,
	requestRepo repositories.RequestRepository,
	dispatcher *notify.Dispatcher,
) *PublicationHandler {
	return &PublicationHandler{
		publicationRepository: publicationRepo,
		userRepository:        userRepo,
		requestRepository:     requestRepo,
		dispatcher:            dispatcher,
	}
}

// RegisterPublicationRoutes registers publication routes on the user-actor
// group
func (h *PublicationHandler) RegisterPublicationRoutes(g *echo.Group) {
	g.POST("/publications", h.CreatePublication)
	g.GET("/publications/:handler", h.GetPublication)
}

// RegisterContributorRoutes registers the roster routes on the
// publication-actor group
func (h *PublicationHandler) RegisterContributorRoutes(g *echo.Group) {
	g.POST("/contributors", h.InviteContributor)
}

// CreatePublication creates a publication owned by the calling user
func (h *PublicationHandler) CreatePublication(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req models.CreatePublicationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if _, err := h.publicationRepository.GetPublicationByHandler(req.Handler); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "Publication handler already taken")
	}

	creator, err := h.userRepository.GetUserByID(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	pub := &models.Publication{
		Name:      req.Name,
		Handler:   req.Handler,
		CreatorID: creator.ID,
	}
	if err := h.publicationRepository.CreatePublication(pub, creator); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, pub)
}

// GetPublication retrieves a publication by its handler
func (h *PublicationHandler) GetPublication(c echo.Context) error {
	pub, err := h.publicationRepository.GetPublicationByHandler(c.Param("handler"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Publication not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pub)
}

// InviteContributor sends a roster request to a user; the ContributorList row
// is created when the user accepts
func (h *PublicationHandler) InviteContributor(c echo.Context) error {
	actor, err := getActorFromContext(c)
	if err != nil {
		return err
	}
	if !actor.IsPublication() {
		return echo.NewHTTPError(http.StatusForbidden, "Permission denied")
	}

	var req models.AddContributorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.userRepository.GetUserByHandler(req.Handler)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	publicationID := actor.Contributor.PublicationID
	if _, err := h.publicationRepository.GetContributor(publicationID, user.ID); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "User is already a contributor")
	}

	requestLog := &models.RequestLog{
		RequestForType:  models.ActorPublication,
		RequestForID:    publicationID,
		RequestFromType: actor.Type(),
		RequestFromID:   actor.ID(),
		RequestToType:   models.ActorUser,
		RequestToID:     user.ID,
		Status:          models.RequestPending,
		Action:          models.ActionAddPublicationContrib,
		Params: map[string]interface{}{
			"publication_id": publicationID,
			"user_id":        user.ID,
			"level":          req.Level,
			"permissions":    req.Permissions,
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
		Target:      notify.Ref{Type: models.ActorPublication, ID: publicationID},
		TemplateKey: models.ActionAddPublicationContrib,
		Data: map[string]interface{}{
			"acted_on":       actor.Handler(),
			"action":         models.ActionAddPublicationContrib,
			"request_log_id": requestLog.ID,
		},
		ActorHandler: actor.Handler(),
		Contributor:  actingUsername(actor),
		RedirectURL:  "/request/",
	})

	return c.JSON(http.StatusCreated, requestLog)
}
