package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/opuslog/backend/internal/models"
	"github.com/opuslog/backend/internal/notify"
	"github.com/opuslog/backend/internal/repositories"
	"github.com/opuslog/backend/internal/tasks"
	"gorm.io/gorm"
)

// CommentHandler handles HTTP requests related to comments on write-ups
type CommentHandler struct {
	commentRepository     repositories.CommentRepository
	writeUpRepository     repositories.WriteUpRepository
	userRepository        repositories.UserRepository
	publicationRepository repositories.PublicationRepository
	dispatcher            *notify.Dispatcher
	queue                 *tasks.Queue
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(
	commentRepo repositories.CommentRepository,
	writeUpRepo repositories.WriteUpRepository,
	userRepo repositories.UserRepository,
	publicationRepo repositories.PublicationRepository,
	dispatcher *notify.Dispatcher,
	queue *tasks.Queue,
) *CommentHandler {
	return &CommentHandler{
		commentRepository:     commentRepo,
		writeUpRepository:     writeUpRepo,
		userRepository:        userRepo,
		publicationRepository: publicationRepo,
		dispatcher:            dispatcher,
		queue:                 queue,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.GET("/writeups/:uuid/comments", h.GetComments)
	g.POST("/writeups/:uuid/comments", h.CreateComment)
	g.GET("/comments/:id/replies", h.GetReplies)
	g.POST("/comments/:id/replies", h.CreateReply)
	g.DELETE("/comments/:id", h.DeleteComment)
}

// GetComments retrieves the first-level comments of a write-up
func (h *CommentHandler) GetComments(c echo.Context) error {
	writeUp, err := h.writeUpRepository.GetWriteUpByUUID(c.Param("uuid"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Write up not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	comments, err := h.commentRepository.GetFirstLevelComments(writeUp.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, h.toResponses(comments, writeUp.UUID))
}

// GetReplies retrieves the replies of a first-level comment
func (h *CommentHandler) GetReplies(c echo.Context) error {
	commentID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	parent, err := h.commentRepository.GetCommentByID(commentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Comment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	writeUp, err := h.writeUpRepository.GetWriteUpByID(parent.WriteUpID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	replies, err := h.commentRepository.GetReplies(parent.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, h.toResponses(replies, writeUp.UUID))
}

// CreateComment creates a first-level comment on a write-up and notifies the
// write-up's owner
func (h *CommentHandler) CreateComment(c echo.Context) error {
	actor, err := getActorFromContext(c)
	if err != nil {
		return err
	}

	var req models.CreateCommentRequest
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

	comment := h.newComment(actor, writeUp.ID, req.Body, nil)
	if err := h.commentRepository.CreateComment(comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.queue.Enqueue(tasks.TaskPostProcessComment, notify.CommentPayload{
		CommentID:    comment.ID,
		ActorHandler: actor.Handler(),
	})

	ownerType, ownerID := writeUp.OwnerActorRef()
	event := notify.Event{
		Kind:         models.KindComment,
		Target:       notify.Ref{Type: "write_up", ID: writeUp.ID},
		Data:         map[string]interface{}{"acted_on": writeUp.Title},
		ActorHandler: actor.Handler(),
		Contributor:  actingUsername(actor),
		RedirectURL:  "/writeup/" + writeUp.UUID,
	}
	h.dispatcher.NotifySingle(notify.Ref{Type: ownerType, ID: ownerID}, event)
	if actor.IsPublication() {
		h.dispatcher.NotifySelf(actor.Contributor.PublicationID, event)
	}

	return c.JSON(http.StatusCreated, h.toResponse(comment, writeUp.UUID))
}

// CreateReply creates a reply to a first-level comment and notifies the
// comment's author. Replies to replies are rejected: comment depth is one.
func (h *CommentHandler) CreateReply(c echo.Context) error {
	actor, err := getActorFromContext(c)
	if err != nil {
		return err
	}

	commentID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	parent, err := h.commentRepository.GetCommentByID(commentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Comment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if parent.ReplyToID != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Replies are limited to one level")
	}

	writeUp, err := h.writeUpRepository.GetWriteUpByID(parent.WriteUpID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	reply := h.newComment(actor, parent.WriteUpID, req.Body, &parent.ID)
	if err := h.commentRepository.CreateComment(reply); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Parent reply counter and @mention scan run on the queue workers.
	h.queue.Enqueue(tasks.TaskPostProcessComment, notify.CommentPayload{
		CommentID:    reply.ID,
		ActorHandler: actor.Handler(),
	})

	h.dispatcher.NotifySingle(notify.Ref{Type: parent.ActorType, ID: parent.ActorID}, notify.Event{
		Kind:         models.KindCommentReply,
		Target:       notify.Ref{Type: "comment", ID: parent.ID},
		Data:         map[string]interface{}{"acted_on": writeUp.Title},
		ActorHandler: actor.Handler(),
		Contributor:  actingUsername(actor),
		RedirectURL:  "/writeup/" + writeUp.UUID,
	})

	return c.JSON(http.StatusCreated, h.toResponse(reply, writeUp.UUID))
}

// DeleteComment soft-deletes a comment. The body is masked in responses, the
// row and its replies stay.
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	actor, err := getActorFromContext(c)
	if err != nil {
		return err
	}

	commentID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	comment, err := h.commentRepository.GetCommentByID(commentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Comment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if comment.ActorType != actor.Type() || comment.ActorID != actor.ID() {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this comment")
	}

	if err := h.commentRepository.SoftDeleteComment(comment.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *CommentHandler) newComment(actor models.Actor, writeUpID uint, body string, replyTo *uint) *models.Comment {
	comment := &models.Comment{
		WriteUpID: writeUpID,
		ActorType: actor.Type(),
		ActorID:   actor.ID(),
		Body:      body,
		ReplyToID: replyTo,
	}
	if actor.IsPublication() {
		userID := actor.Contributor.ContributorID
		comment.PublicationUserID = &userID
	}
	return comment
}

func (h *CommentHandler) toResponse(comment *models.Comment, writeUpUUID string) models.CommentResponse {
	return models.CommentResponse{
		ID:           comment.ID,
		WriteUpUUID:  writeUpUUID,
		ActorHandler: h.actorHandler(comment.ActorType, comment.ActorID),
		Body:         comment.DisplayBody(),
		ReplyToID:    comment.ReplyToID,
		Deleted:      comment.Deleted,
		UpVotes:      comment.UpVotes,
		DownVotes:    comment.DownVotes,
		Replies:      comment.Replies,
		CreatedAt:    comment.CreatedAt,
	}
}

func (h *CommentHandler) toResponses(comments []models.Comment, writeUpUUID string) []models.CommentResponse {
	responses := make([]models.CommentResponse, 0, len(comments))
	for i := range comments {
		responses = append(responses, h.toResponse(&comments[i], writeUpUUID))
	}
	return responses
}

// actorHandler resolves the public handle behind a polymorphic actor pair.
// Resolution failures degrade to an empty handle rather than failing the read.
func (h *CommentHandler) actorHandler(actorType string, actorID uint) string {
	switch actorType {
	case models.ActorUser:
		if user, err := h.userRepository.GetUserByID(actorID); err == nil {
			return user.Handler
		}
	case models.ActorPublication:
		if pub, err := h.publicationRepository.GetPublicationByID(actorID); err == nil {
			return pub.Handler
		}
	}
	return ""
}
