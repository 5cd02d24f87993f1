package tasks

import (
	"errors"
	"sync"
	"testing"

	"github.com/opuslog/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineQueueRunsHandlerSynchronously(t *testing.T) {
	queue := NewInlineQueue(repositories.NewNoopActivityLogRepository())

	var got interface{}
	queue.Register("echo_payload", func(payload interface{}) error {
		got = payload
		return nil
	})

	queue.Enqueue("echo_payload", "hello")
	assert.Equal(t, "hello", got)
}

func TestEnqueueUnknownTaskIsDropped(t *testing.T) {
	queue := NewInlineQueue(repositories.NewNoopActivityLogRepository())
	// Must not panic or block.
	queue.Enqueue("never_registered", 42)
}

func TestHandlerPanicDoesNotEscape(t *testing.T) {
	queue := NewInlineQueue(repositories.NewNoopActivityLogRepository())
	queue.Register("explode", func(payload interface{}) error {
		panic("boom")
	})

	assert.NotPanics(t, func() {
		queue.Enqueue("explode", nil)
	})
}

func TestWorkersDrainOnStop(t *testing.T) {
	queue := NewQueue(2, 16, repositories.NewNoopActivityLogRepository())

	var mu sync.Mutex
	seen := make(map[int]bool)
	queue.Register("record", func(payload interface{}) error {
		mu.Lock()
		defer mu.Unlock()
		n, ok := payload.(int)
		require.True(t, ok)
		seen[n] = true
		if n%3 == 0 {
			return errors.New("logged, not retried")
		}
		return nil
	})

	queue.Start()
	for i := 0; i < 10; i++ {
		queue.Enqueue("record", i)
	}
	queue.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 10, "Stop waits for every buffered job")
}
