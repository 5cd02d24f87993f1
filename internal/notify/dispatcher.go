package notify

import (
	"errors"
	"fmt"

	"github.com/opuslog/backend/internal/models"
	"github.com/opuslog/backend/internal/repositories"
	"github.com/opuslog/backend/internal/tasks"
	"gorm.io/gorm"
)

// Ref is a polymorphic (type, id) reference to a user, publication, write-up,
// comment or thread.
type Ref struct {
	Type string `json:"type"`
	ID   uint   `json:"id"`
}

// Event describes one qualifying action to notify about. Data keys are
// referenced positionally by the kind's templates; ActorHandler suppresses
// self-notification; Permissions narrows publication fan-out beyond
// receive_notification.
type Event struct {
	Kind            string
	Target          Ref
	Data            map[string]interface{}
	TemplateKey     string // empty means the aggregatable default
	SelfTemplateKey string // used by the internal-publication feed
	Verbose         string // explicit override, bypasses templates and aggregation
	Permissions     []string
	ActorHandler    string
	Contributor     string // acting username when the actor is a publication
	RedirectURL     string
	Image           string
	Level           string
}

type singlePayload struct {
	Recipient Ref
	Event     Event
}

type listPayload struct {
	ThreadID uint
	Event    Event
}

type selfPayload struct {
	PublicationID uint
	Event         Event
}

// Dispatcher converts qualifying actions into persisted notification rows.
// Every public method only enqueues; the registered task handlers do the
// store work on the queue's workers. Fan-out is best-effort at-least-once:
// a failed delivery is activity-logged, never rolled back or retried.
type Dispatcher struct {
	notifications repositories.NotificationRepository
	publications  repositories.PublicationRepository
	users         repositories.UserRepository
	threads       repositories.ThreadRepository
	activity      repositories.ActivityLogRepository
	queue         *tasks.Queue
}

// NewDispatcher creates a Dispatcher and registers its task handlers on the
// queue.
func NewDispatcher(
	notifications repositories.NotificationRepository,
	publications repositories.PublicationRepository,
	users repositories.UserRepository,
	threads repositories.ThreadRepository,
	activity repositories.ActivityLogRepository,
	queue *tasks.Queue,
) *Dispatcher {
	d := &Dispatcher{
		notifications: notifications,
		publications:  publications,
		users:         users,
		threads:       threads,
		activity:      activity,
		queue:         queue,
	}
	queue.Register(tasks.TaskGenerateAsyncNotification, d.handleSingle)
	queue.Register(tasks.TaskNotificationForListOfUsers, d.handleList)
	queue.Register(tasks.TaskNotificationForSelfPublication, d.handleSelf)
	return d
}

// NotifySingle fans one event out to one recipient (a user directly, or every
// eligible contributor when the recipient is a publication).
func (d *Dispatcher) NotifySingle(recipient Ref, ev Event) {
	d.queue.Enqueue(tasks.TaskGenerateAsyncNotification, singlePayload{Recipient: recipient, Event: ev})
}

// NotifyThreadMembers fans one event out to every active member of a thread.
func (d *Dispatcher) NotifyThreadMembers(threadID uint, ev Event) {
	d.queue.Enqueue(tasks.TaskNotificationForListOfUsers, listPayload{ThreadID: threadID, Event: ev})
}

// NotifySelf records an internal-publication feed entry so the acting
// publication's own contributors see who did what in its name.
func (d *Dispatcher) NotifySelf(publicationID uint, ev Event) {
	d.queue.Enqueue(tasks.TaskNotificationForSelfPublication, selfPayload{PublicationID: publicationID, Event: ev})
}

func (d *Dispatcher) handleSingle(payload interface{}) error {
	p, ok := payload.(singlePayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", payload, tasks.TaskGenerateAsyncNotification)
	}
	return d.deliver(p.Recipient, p.Event)
}

func (d *Dispatcher) handleList(payload interface{}) error {
	p, ok := payload.(listPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", payload, tasks.TaskNotificationForListOfUsers)
	}
	members, err := d.threads.GetActiveMembers(p.ThreadID)
	if err != nil {
		return err
	}
	var firstErr error
	for _, m := range members {
		if err := d.deliver(Ref{Type: m.MemberType, ID: m.MemberID}, p.Event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (d *Dispatcher) handleSelf(payload interface{}) error {
	p, ok := payload.(selfPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", payload, tasks.TaskNotificationForSelfPublication)
	}
	ev := p.Event
	ev.Verbose = ""
	ev.TemplateKey = models.TemplateInternalPublication
	if p.Event.SelfTemplateKey != "" {
		ev.TemplateKey = p.Event.SelfTemplateKey
	}
	return d.deliver(Ref{Type: models.ActorPublication, ID: p.PublicationID}, ev)
}

// deliver resolves the recipient reference and persists notification rows.
func (d *Dispatcher) deliver(recipient Ref, ev Event) error {
	switch recipient.Type {
	case models.ActorUser:
		user, err := d.users.GetUserByID(recipient.ID)
		if err != nil {
			return err
		}
		if user.Handler == ev.ActorHandler {
			return nil // no self-notification
		}
		return d.deliverToUser(user, ev, nil)
	case models.ActorPublication:
		return d.fanOut(recipient.ID, ev)
	default:
		d.activity.Log(models.LogCritical, "", fmt.Sprintf("%s:%d", recipient.Type, recipient.ID),
			"Error in creating notification", map[string]interface{}{
				"message": "notification recipient is neither user nor publication",
				"kind":    ev.Kind,
			})
		return fmt.Errorf("unknown recipient type %q", recipient.Type)
	}
}

// fanOut delivers one row per contributor of the publication holding
// receive_notification plus the event's extra permission codes, skipping the
// contributor whose own action triggered the event.
func (d *Dispatcher) fanOut(publicationID uint, ev Event) error {
	pub, err := d.publications.GetPublicationByID(publicationID)
	if err != nil {
		return err
	}
	codes := append([]string{models.PermReceiveNotification}, ev.Permissions...)
	contributors, err := d.publications.GetContributorsWithPermission(publicationID, codes)
	if err != nil {
		return err
	}

	scoped := ev
	if ev.RedirectURL != "" {
		scoped.RedirectURL = "/pub/" + pub.Handler + ev.RedirectURL
	}
	scoped.Data = cloneData(ev.Data)
	scoped.Data["publication"] = pub.Handler

	var firstErr error
	for _, cl := range contributors {
		if cl.Contributor == nil {
			continue
		}
		if ev.Contributor != "" && cl.Contributor.Handler == ev.Contributor {
			continue // the contributor who acted
		}
		if err := d.deliverToUser(cl.Contributor, scoped, &publicationID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// deliverToUser applies the settings check and the aggregation rule, then
// writes or updates the row.
func (d *Dispatcher) deliverToUser(user *models.User, ev Event, publicationID *uint) error {
	ok, err := d.notifications.ShouldDeliver(user.ID, ev.Kind, publicationID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	aggregatable := (ev.TemplateKey == "" || ev.TemplateKey == models.TemplateMany) && ev.Verbose == ""
	if aggregatable {
		existing, err := d.notifications.FindUndelivered(user.ID, ev.Target.Type, ev.Target.ID, ev.Kind)
		if err == nil {
			existing.AddOnActorCount++
			if HasTemplate(ev.Kind, models.TemplateMany) {
				verbose, rerr := RenderVerbose(ev.Kind, models.TemplateMany, existing.Data, existing.AddOnActorCount)
				if rerr != nil {
					return d.renderFailure(user, ev, rerr)
				}
				existing.Verbose = verbose
			}
			return d.notifications.SaveNotification(existing)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	templateKey := ev.TemplateKey
	if templateKey == "" || templateKey == models.TemplateMany {
		templateKey = models.TemplateSingle
	}

	data := cloneData(ev.Data)
	data["actor_handler"] = ev.ActorHandler
	if ev.Contributor != "" {
		data["contributor"] = ev.Contributor
	}

	verbose := ev.Verbose
	if verbose == "" {
		rendered, rerr := RenderVerbose(ev.Kind, templateKey, data, 0)
		if rerr != nil {
			return d.renderFailure(user, ev, rerr)
		}
		verbose = rendered
	}

	level := ev.Level
	if level == "" {
		level = "info"
	}
	notification := &models.Notification{
		UserID:     user.ID,
		Kind:       ev.Kind,
		TargetType: ev.Target.Type,
		TargetID:   ev.Target.ID,
		Data:       data,
		Context: map[string]interface{}{
			"image":        ev.Image,
			"level":        level,
			"redirect-url": ev.RedirectURL,
		},
		Verbose: verbose,
	}
	return d.notifications.CreateNotification(notification)
}

// renderFailure writes the malformed payload to the activity log; the client
// facing path only ever sees an opaque failure.
func (d *Dispatcher) renderFailure(user *models.User, ev Event, err error) error {
	d.activity.Log(models.LogCritical, user.Handler, "", "Error rendering notification", map[string]interface{}{
		"kind":         ev.Kind,
		"template_key": ev.TemplateKey,
		"data":         ev.Data,
		"message":      err.Error(),
	})
	return err
}

func cloneData(data map[string]interface{}) map[string]interface{} {
	clone := make(map[string]interface{}, len(data)+2)
	for k, v := range data {
		clone[k] = v
	}
	return clone
}
