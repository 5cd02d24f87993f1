package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/opuslog/backend/internal/models"
	"github.com/opuslog/backend/internal/notify"
	"github.com/opuslog/backend/internal/repositories"
	"gorm.io/gorm"
)

// VoteHandler handles up/down votes on write-ups and comments
type VoteHandler struct {
	voteRepository    repositories.VoteRepository
	writeUpRepository repositories.WriteUpRepository
	commentRepository repositories.CommentRepository
	dispatcher        *notify.Dispatcher
}

// NewVoteHandler creates a new VoteHandler
func NewVoteHandler(
	voteRepo repositories.VoteRepository,
	writeUpRepo repositories.WriteUpRepository,
	commentRepo repositories.CommentRepository,
	dispatcher *notify.Dispatcher,
) *VoteHandler {
	return &VoteHandler{
		voteRepository:    voteRepo,
		writeUpRepository: writeUpRepo,
		commentRepository: commentRepo,
		dispatcher:        dispatcher,
	}
}

// RegisterVoteRoutes registers vote-related routes
func (h *VoteHandler) RegisterVoteRoutes(g *echo.Group) {
	g.POST("/writeups/:uuid/vote", h.VoteWriteUp)
	g.DELETE("/writeups/:uuid/vote", h.RetractWriteUpVote)
	g.POST("/comments/:id/vote", h.VoteComment)
	g.DELETE("/comments/:id/vote", h.RetractCommentVote)
}

// VoteWriteUp records or changes a vote on a write-up. Repeating the same
// vote is a no-op.
func (h *VoteHandler) VoteWriteUp(c echo.Context) error {
	actor, err := getActorFromContext(c)
	if err != nil {
		return err
	}

	var req models.VoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if req.VoteType == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "vote_type is required")
	}

	return h.applyWriteUpVote(c, actor, req.VoteType)
}

// RetractWriteUpVote sets a write-up vote back to neutral, keeping the row
func (h *VoteHandler) RetractWriteUpVote(c echo.Context) error {
	actor, err := getActorFromContext(c)
	if err != nil {
		return err
	}
	return h.applyWriteUpVote(c, actor, nil)
}

func (h *VoteHandler) applyWriteUpVote(c echo.Context, actor models.Actor, voteType *bool) error {
	writeUp, err := h.writeUpRepository.GetWriteUpByUUID(c.Param("uuid"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Write up not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	change, err := h.voteRepository.UpsertWriteUpVote(actor, writeUp.ID, voteType)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if change.Changed {
		upDelta, downDelta := voteDeltas(change.Previous, voteType)
		if err := h.writeUpRepository.AdjustVoteCounts(writeUp.ID, upDelta, downDelta); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if voteType != nil {
			kind := models.KindUpVoteWriteUp
			if !*voteType {
				kind = models.KindDownVoteWriteUp
			}
			ownerType, ownerID := writeUp.OwnerActorRef()
			h.dispatcher.NotifySingle(notify.Ref{Type: ownerType, ID: ownerID}, notify.Event{
				Kind:         kind,
				Target:       notify.Ref{Type: "write_up", ID: writeUp.ID},
				Data:         map[string]interface{}{"acted_on": writeUp.Title},
				ActorHandler: actor.Handler(),
				Contributor:  actingUsername(actor),
				RedirectURL:  "/writeup/" + writeUp.UUID,
			})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"changed": change.Changed})
}

// VoteComment records or changes a vote on a comment
func (h *VoteHandler) VoteComment(c echo.Context) error {
	actor, err := getActorFromContext(c)
	if err != nil {
		return err
	}

	var req models.VoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if req.VoteType == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "vote_type is required")
	}

	return h.applyCommentVote(c, actor, req.VoteType)
}

// RetractCommentVote sets a comment vote back to neutral
func (h *VoteHandler) RetractCommentVote(c echo.Context) error {
	actor, err := getActorFromContext(c)
	if err != nil {
		return err
	}
	return h.applyCommentVote(c, actor, nil)
}

func (h *VoteHandler) applyCommentVote(c echo.Context, actor models.Actor, voteType *bool) error {
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

	change, err := h.voteRepository.UpsertCommentVote(actor, comment.ID, voteType)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if change.Changed {
		upDelta, downDelta := voteDeltas(change.Previous, voteType)
		if err := h.commentRepository.AdjustVoteCounts(comment.ID, upDelta, downDelta); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if voteType != nil {
			writeUp, err := h.writeUpRepository.GetWriteUpByID(comment.WriteUpID)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
			kind := models.KindUpVoteComment
			if !*voteType {
				kind = models.KindDownVoteComment
			}
			h.dispatcher.NotifySingle(notify.Ref{Type: comment.ActorType, ID: comment.ActorID}, notify.Event{
				Kind:         kind,
				Target:       notify.Ref{Type: "comment", ID: comment.ID},
				Data:         map[string]interface{}{"acted_on": writeUp.Title},
				ActorHandler: actor.Handler(),
				Contributor:  actingUsername(actor),
				RedirectURL:  "/writeup/" + writeUp.UUID,
			})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"changed": change.Changed})
}

// voteDeltas translates a vote transition into adjustments for the
// denormalized up/down counters.
func voteDeltas(previous, next *bool) (int, int) {
	up, down := 0, 0
	if previous != nil {
		if *previous {
			up--
		} else {
			down--
		}
	}
	if next != nil {
		if *next {
			up++
		} else {
			down++
		}
	}
	return up, down
}
