package notify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/opuslog/backend/internal/models"
	"github.com/opuslog/backend/internal/repositories"
	"github.com/opuslog/backend/internal/tasks"
	"gorm.io/gorm"
)

var mentionPattern = regexp.MustCompile(`\B@\w+`)

// CommentPayload is the post_process_comment task payload.
type CommentPayload struct {
	CommentID    uint
	ActorHandler string
}

// CommentProcessor runs the deferred side effects of posting a comment:
// bumping the parent's reply counter atomically and turning @handle mentions
// into tagged-in-comment notifications.
type CommentProcessor struct {
	comments   repositories.CommentRepository
	writeUps   repositories.WriteUpRepository
	users      repositories.UserRepository
	dispatcher *Dispatcher
}

// NewCommentProcessor creates the processor and registers it on the queue.
func NewCommentProcessor(
	comments repositories.CommentRepository,
	writeUps repositories.WriteUpRepository,
	users repositories.UserRepository,
	dispatcher *Dispatcher,
	queue *tasks.Queue,
) *CommentProcessor {
	p := &CommentProcessor{
		comments:   comments,
		writeUps:   writeUps,
		users:      users,
		dispatcher: dispatcher,
	}
	queue.Register(tasks.TaskPostProcessComment, p.handle)
	return p
}

func (p *CommentProcessor) handle(payload interface{}) error {
	cp, ok := payload.(CommentPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", payload, tasks.TaskPostProcessComment)
	}
	return p.Process(cp)
}

// Process executes the post-comment side effects.
func (p *CommentProcessor) Process(cp CommentPayload) error {
	comment, err := p.comments.GetCommentByID(cp.CommentID)
	if err != nil {
		return err
	}

	if comment.ReplyToID != nil {
		if err := p.comments.IncrementReplies(*comment.ReplyToID); err != nil {
			return err
		}
	}

	writeUp, err := p.writeUps.GetWriteUpByID(comment.WriteUpID)
	if err != nil {
		return err
	}

	for _, raw := range mentionPattern.FindAllString(comment.Body, -1) {
		handler := strings.TrimPrefix(raw, "@")
		user, err := p.users.GetUserByHandler(handler)
		if err == gorm.ErrRecordNotFound {
			continue
		}
		if err != nil {
			return err
		}
		if user.Handler == cp.ActorHandler {
			continue
		}
		p.dispatcher.NotifySingle(Ref{Type: models.ActorUser, ID: user.ID}, Event{
			Kind:         models.KindCommentTagged,
			Target:       Ref{Type: "write_up", ID: writeUp.ID},
			Data:         map[string]interface{}{"acted_on": writeUp.Title},
			TemplateKey:  models.TemplateSingle,
			ActorHandler: cp.ActorHandler,
		})
	}
	return nil
}
