package tasks

import (
	"fmt"
	"log"
	"sync"

	"github.com/opuslog/backend/internal/repositories"
)

// Task names. These identify units of async work the same way the queue
// transport would; handlers are registered against them at startup.
const (
	TaskGenerateAsyncNotification      = "generate_async_notification"
	TaskNotificationForListOfUsers     = "notification_for_list_of_users"
	TaskNotificationForSelfPublication = "notification_for_self_publication"
	TaskPostProcessComment             = "post_process_comment"
	TaskValidateLockedGroupWriting     = "validate_locked_group_writing_event"
)

// Handler executes one unit of async work.
type Handler func(payload interface{}) error

type job struct {
	name    string
	payload interface{}
}

// Queue is the in-process async dispatcher. Enqueue returns immediately;
// worker goroutines execute handlers later with no ordering guarantee across
// tasks. Delivery is best-effort: a failed handler is written to the activity
// log and not retried, and nothing is surfaced to the enqueuing request.
type Queue struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	jobs     chan job
	wg       sync.WaitGroup
	workers  int
	inline   bool
	activity repositories.ActivityLogRepository
	started  bool
}

// NewQueue creates a queue with the given worker count and buffer size.
func NewQueue(workers, buffer int, activity repositories.ActivityLogRepository) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		handlers: make(map[string]Handler),
		jobs:     make(chan job, buffer),
		workers:  workers,
		activity: activity,
	}
}

// NewInlineQueue creates a queue that executes handlers synchronously inside
// Enqueue. Used by tests and single-process deployments.
func NewInlineQueue(activity repositories.ActivityLogRepository) *Queue {
	return &Queue{
		handlers: make(map[string]Handler),
		inline:   true,
		activity: activity,
	}
}

// Register binds a handler to a task name. Must happen before Start.
func (q *Queue) Register(name string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[name] = h
}

// Enqueue schedules a task by name. Unknown names and full buffers are logged
// and dropped; the caller never blocks or fails.
func (q *Queue) Enqueue(name string, payload interface{}) {
	q.mu.RLock()
	h, ok := q.handlers[name]
	q.mu.RUnlock()
	if !ok {
		q.logFailure(name, payload, fmt.Errorf("no handler registered for task %q", name))
		return
	}
	if q.inline {
		q.run(name, h, payload)
		return
	}
	select {
	case q.jobs <- job{name: name, payload: payload}:
	default:
		q.logFailure(name, payload, fmt.Errorf("task buffer full, dropping %q", name))
	}
}

// Start launches the worker goroutines.
func (q *Queue) Start() {
	if q.inline || q.started {
		return
	}
	q.started = true
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for j := range q.jobs {
				q.mu.RLock()
				h := q.handlers[j.name]
				q.mu.RUnlock()
				q.run(j.name, h, j.payload)
			}
		}()
	}
	log.Printf("Task queue started with %d workers.", q.workers)
}

// Stop drains the buffer and waits for in-flight work.
func (q *Queue) Stop() {
	if q.inline || !q.started {
		return
	}
	close(q.jobs)
	q.wg.Wait()
}

func (q *Queue) run(name string, h Handler, payload interface{}) {
	defer func() {
		if rec := recover(); rec != nil {
			q.logFailure(name, payload, fmt.Errorf("panic: %v", rec))
		}
	}()
	if err := h(payload); err != nil {
		q.logFailure(name, payload, err)
	}
}

func (q *Queue) logFailure(name string, payload interface{}, err error) {
	log.Printf("task %s failed: %v", name, err)
	if q.activity != nil {
		q.activity.Log("C", "", "", "Error executing async task", map[string]interface{}{
			"task":    name,
			"payload": fmt.Sprintf("%+v", payload),
			"message": err.Error(),
		})
	}
}
