package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/opuslog/backend/internal/models"
	"github.com/opuslog/backend/internal/repositories"
	"gorm.io/gorm"
)

// RequestHandler resolves pending requests. The action stored on a RequestLog
// selects what acceptance does through a closed dispatch table; unknown
// actions are rejected, never interpreted.
type RequestHandler struct {
	requestRepository      repositories.RequestRepository
	notificationRepository repositories.NotificationRepository
	threadRepository       repositories.ThreadRepository
	publicationRepository  repositories.PublicationRepository
	writeUpRepository      repositories.WriteUpRepository
	userRepository         repositories.UserRepository
}

// NewRequestHandler creates a new RequestHandler
func NewRequestHandler(
	requestRepo repositories.RequestRepository,
	notificationRepo repositories.NotificationRepository,
	threadRepo repositories.ThreadRepository,
	publicationRepo repositories.PublicationRepository,
	writeUpRepo repositories.WriteUpRepository,
	userRepo repositories.UserRepository,
) *RequestHandler {
	return &RequestHandler{
		requestRepository:      requestRepo,
		notificationRepository: notificationRepo,
		threadRepository:       threadRepo,
		publicationRepository:  publicationRepo,
		writeUpRepository:      writeUpRepo,
		userRepository:         userRepo,
	}
}

// RegisterRequestRoutes registers request resolution routes
func (h *RequestHandler) RegisterRequestRoutes(g *echo.Group) {
	g.POST("/requests/:notification_id", h.ResolveRequest)
}

// ResolveRequest accepts or rejects the request behind a notification. Only
// the notification's owner can answer, and only while the request is pending.
func (h *RequestHandler) ResolveRequest(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return err
	}

	notificationID, err := parseUintParam(c, "notification_id")
	if err != nil {
		return err
	}

	var req models.ResolveRequestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	notification, err := h.notificationRepository.GetByID(notificationID, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	requestLogID, ok := paramUint(notification.Data, "request_log_id")
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Notification does not carry a request")
	}

	requestLog, err := h.requestRepository.GetPendingByID(requestLogID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Request not found or already resolved")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.authorizeAddressee(requestLog, userID); err != nil {
		return err
	}

	redirectURL := "/"
	if req.Answer == models.RequestAccepted {
		redirectURL, err = h.execute(requestLog)
		if err != nil {
			return err
		}
	}

	status := models.RequestRejected
	if req.Answer == models.RequestAccepted {
		status = models.RequestAccepted
	}
	if err := h.requestRepository.UpdateStatus(requestLog, status); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.notificationRepository.MarkAsRead(notification.ID, userID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":       status,
		"redirect_url": redirectURL,
	})
}

// authorizeAddressee checks the answering user is the request's addressee:
// the user itself, or — for a publication — a contributor holding
// receive_notification, the same set the request notification fanned out to.
func (h *RequestHandler) authorizeAddressee(requestLog *models.RequestLog, userID uint) error {
	switch requestLog.RequestToType {
	case models.ActorUser:
		if requestLog.RequestToID != userID {
			return echo.NewHTTPError(http.StatusForbidden, "You are not the addressee of this request")
		}
	case models.ActorPublication:
		_, err := h.publicationRepository.GetContributorWithPermissions(
			requestLog.RequestToID, userID, []string{models.PermReceiveNotification})
		if err != nil {
			return echo.NewHTTPError(http.StatusForbidden, "You are not the addressee of this request")
		}
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request addressee")
	}
	return nil
}

// execute runs the accepted action. The switch is the complete set of
// actions the system knows.
func (h *RequestHandler) execute(requestLog *models.RequestLog) (string, error) {
	switch requestLog.Action {
	case models.ActionAddThreadMember:
		threadID, ok1 := paramUint(requestLog.Params, "thread_id")
		memberType, ok2 := paramString(requestLog.Params, "member_type")
		memberID, ok3 := paramUint(requestLog.Params, "member_id")
		if !ok1 || !ok2 || !ok3 {
			return "", echo.NewHTTPError(http.StatusBadRequest, "Malformed request parameters")
		}
		if err := h.threadRepository.AddMember(threadID, memberType, memberID); err != nil {
			return "", echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return "/threads/" + itoa(threadID), nil

	case models.ActionAddPublicationContrib:
		publicationID, ok1 := paramUint(requestLog.Params, "publication_id")
		contributorID, ok2 := paramUint(requestLog.Params, "user_id")
		level, ok3 := paramString(requestLog.Params, "level")
		codes := paramStringSlice(requestLog.Params, "permissions")
		if !ok1 || !ok2 || !ok3 {
			return "", echo.NewHTTPError(http.StatusBadRequest, "Malformed request parameters")
		}
		pub, err := h.publicationRepository.GetPublicationByID(publicationID)
		if err != nil {
			return "", echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		cl := &models.ContributorList{
			PublicationID: publicationID,
			ContributorID: contributorID,
			Level:         level,
		}
		if err := h.publicationRepository.AddContributor(cl, codes); err != nil {
			return "", echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return "/pub/" + pub.Handler, nil

	case models.ActionAddWriteUpContributor:
		writeUpID, ok1 := paramUint(requestLog.Params, "write_up_id")
		contributorID, ok2 := paramUint(requestLog.Params, "user_id")
		if !ok1 || !ok2 {
			return "", echo.NewHTTPError(http.StatusBadRequest, "Malformed request parameters")
		}
		writeUp, err := h.writeUpRepository.GetWriteUpByID(writeUpID)
		if err != nil {
			return "", echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		wc := &models.WriteUpContributor{
			WriteUpID:     writeUpID,
			ContributorID: contributorID,
		}
		if err := h.writeUpRepository.AddWriteUpContributor(wc, []string{models.PermCanEdit}); err != nil {
			return "", echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return "/writeup/" + writeUp.UUID, nil

	default:
		return "", echo.NewHTTPError(http.StatusBadRequest, "Unknown request action")
	}
}

// paramUint reads a numeric parameter from a JSON payload map. Values written
// in-process are uints, values read back from the database are float64.
func paramUint(params map[string]interface{}, key string) (uint, bool) {
	switch v := params[key].(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func paramString(params map[string]interface{}, key string) (string, bool) {
	s, ok := params[key].(string)
	return s, ok
}

func paramStringSlice(params map[string]interface{}, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
