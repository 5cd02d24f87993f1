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

// SubscriptionHandler handles subscribe/unsubscribe on users and publications
type SubscriptionHandler struct {
	subscriptionRepository repositories.SubscriptionRepository
	userRepository         repositories.UserRepository
	publicationRepository  repositories.PublicationRepository
	dispatcher             *notify.Dispatcher
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(
	subscriptionRepo repositories.SubscriptionRepository,
	userRepo repositories.UserRepository,
	publicationRepo repositories.PublicationRepository,
	dispatcher *notify.Dispatcher,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionRepository: subscriptionRepo,
		userRepository:         userRepo,
		publicationRepository:  publicationRepo,
		dispatcher:             dispatcher,
	}
}

// RegisterSubscriptionRoutes registers subscription-related routes
func (h *SubscriptionHandler) RegisterSubscriptionRoutes(g *echo.Group) {
	g.POST("/subscriptions", h.Subscribe)
	g.DELETE("/subscriptions", h.Unsubscribe)
}

// Subscribe turns the subscription on and notifies the target the first time
// the state flips to subscribed
func (h *SubscriptionHandler) Subscribe(c echo.Context) error {
	return h.setSubscription(c, true)
}

// Unsubscribe turns the subscription off, keeping the row
func (h *SubscriptionHandler) Unsubscribe(c echo.Context) error {
	return h.setSubscription(c, false)
}

func (h *SubscriptionHandler) setSubscription(c echo.Context, on bool) error {
	actor, err := getActorFromContext(c)
	if err != nil {
		return err
	}

	var req models.SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	targetID, suffix, err := h.resolveTarget(req.SubscribedType, req.Handler)
	if err != nil {
		return err
	}

	if actor.Type() == req.SubscribedType && actor.ID() == targetID {
		return echo.NewHTTPError(http.StatusBadRequest, "You cannot subscribe to yourself")
	}

	previous, err := h.subscriptionRepository.GetSubscription(actor, req.SubscribedType, targetID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if _, err := h.subscriptionRepository.SetSubscription(actor, req.SubscribedType, targetID, on); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Only a real state flip notifies; repeating the current state is silent.
	wasOn := previous != nil && previous.Subscribed
	if wasOn != on {
		kind := models.KindSubscribe
		if !on {
			kind = models.KindUnsubscribe
		}
		h.dispatcher.NotifySingle(notify.Ref{Type: req.SubscribedType, ID: targetID}, notify.Event{
			Kind:         kind,
			Target:       notify.Ref{Type: req.SubscribedType, ID: targetID},
			Data:         map[string]interface{}{"suffix": suffix},
			ActorHandler: actor.Handler(),
			Contributor:  actingUsername(actor),
			RedirectURL:  "/" + actor.Handler(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"subscribed": on})
}

// resolveTarget maps a (type, handler) pair onto the target's id and the
// wording used by the notification templates.
func (h *SubscriptionHandler) resolveTarget(subscribedType, handler string) (uint, string, error) {
	switch subscribedType {
	case models.ActorUser:
		user, err := h.userRepository.GetUserByHandler(handler)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return 0, "", echo.NewHTTPError(http.StatusNotFound, "User not found")
			}
			return 0, "", echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return user.ID, "profile", nil
	case models.ActorPublication:
		pub, err := h.publicationRepository.GetPublicationByHandler(handler)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return 0, "", echo.NewHTTPError(http.StatusNotFound, "Publication not found")
			}
			return 0, "", echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return pub.ID, "publication", nil
	default:
		return 0, "", echo.NewHTTPError(http.StatusBadRequest, "Invalid subscription target type")
	}
}
