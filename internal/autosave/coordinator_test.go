package autosave

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/draftforge/draftforge/internal"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualScheduler lets tests fire or drop the debounce timer by hand.
type manualScheduler struct {
	mu        sync.Mutex
	fn        func()
	scheduled int
	cancelled int
}

func (m *manualScheduler) Schedule(delay time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
	m.scheduled++
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.cancelled++
	}
}

func (m *manualScheduler) fire() {
	m.mu.Lock()
	fn := m.fn
	m.fn = nil
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []internal.Notification
}

func (r *recordingNotifier) Notify(notification internal.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, notification)
}

func (r *recordingNotifier) all() []internal.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]internal.Notification(nil), r.notifications...)
}

type savedRow struct {
	rowID   string
	content map[string]any
}

func TestQueueSaveDebounces(t *testing.T) {
	scheduler := &manualScheduler{}
	var saved []savedRow
	var mu sync.Mutex
	c := New(Config{
		Logger: logger.NewTestLogger(),
		Save: func(ctx context.Context, rowID string, content map[string]any) error {
			mu.Lock()
			defer mu.Unlock()
			saved = append(saved, savedRow{rowID, content})
			return nil
		},
		Scheduler: scheduler,
	})

	c.QueueSave("row-1", map[string]any{"v": 1})
	c.QueueSave("row-2", map[string]any{"v": 2})
	c.QueueSave("row-1", map[string]any{"v": 3})
	assert.Empty(t, saved)
	assert.Equal(t, 3, scheduler.scheduled)
	// every queue resets the shared timer
	assert.Equal(t, 2, scheduler.cancelled)

	scheduler.fire()
	require.Len(t, saved, 2)
	// insertion order, with the latest content for the re-queued row
	assert.Equal(t, "row-1", saved[0].rowID)
	assert.Equal(t, map[string]any{"v": 3}, saved[0].content)
	assert.Equal(t, "row-2", saved[1].rowID)
	assert.False(t, c.Pending())
}

func TestFlushTakesAndClears(t *testing.T) {
	scheduler := &manualScheduler{}
	var calls int
	c := New(Config{
		Logger: logger.NewTestLogger(),
		Save: func(ctx context.Context, rowID string, content map[string]any) error {
			calls++
			return nil
		},
		Scheduler: scheduler,
	})
	c.QueueSave("row-1", map[string]any{})
	scheduler.fire()
	assert.Equal(t, 1, calls)
	// firing again must not replay the batch
	scheduler.fire()
	c.Flush(context.Background())
	assert.Equal(t, 1, calls)
}

func TestFailedSaveRollsBackAndNotifies(t *testing.T) {
	scheduler := &manualScheduler{}
	notifier := &recordingNotifier{}
	var saved []string
	var rolledBack []savedRow
	c := New(Config{
		Logger: logger.NewTestLogger(),
		Save: func(ctx context.Context, rowID string, content map[string]any) error {
			if rowID == "row-bad" {
				return fmt.Errorf("boom")
			}
			saved = append(saved, rowID)
			return nil
		},
		Rollback: func(rowID string, rejected map[string]any) {
			rolledBack = append(rolledBack, savedRow{rowID, rejected})
		},
		Notifier:  notifier,
		Scheduler: scheduler,
	})

	rejected := map[string]any{"Name": "after"}
	c.QueueSave("row-ok", map[string]any{"Name": "ok"})
	c.QueueSave("row-bad", rejected)
	c.QueueSave("row-ok2", map[string]any{"Name": "ok2"})
	scheduler.fire()

	// siblings are unaffected by the failure
	assert.Equal(t, []string{"row-ok", "row-ok2"}, saved)

	// the callback receives the exact content that failed to save
	require.Len(t, rolledBack, 1)
	assert.Equal(t, "row-bad", rolledBack[0].rowID)
	assert.Equal(t, rejected, rolledBack[0].content)

	notifications := notifier.all()
	require.Len(t, notifications, 1)
	assert.Equal(t, internal.SeverityError, notifications[0].Severity)
	assert.Contains(t, notifications[0].Message, "row-bad")
	assert.Contains(t, notifications[0].Message, "boom")

	// failed rows are not retried
	c.Flush(context.Background())
	require.Len(t, rolledBack, 1)
}

func TestCloseFlushesPending(t *testing.T) {
	scheduler := &manualScheduler{}
	var saved []string
	c := New(Config{
		Logger: logger.NewTestLogger(),
		Save: func(ctx context.Context, rowID string, content map[string]any) error {
			saved = append(saved, rowID)
			return nil
		},
		Scheduler: scheduler,
	})
	c.QueueSave("row-1", map[string]any{})
	c.Close()
	assert.Equal(t, []string{"row-1"}, saved)

	// closed coordinator drops new work
	c.QueueSave("row-2", map[string]any{})
	c.Flush(context.Background())
	assert.Equal(t, []string{"row-1"}, saved)
}

func TestTimerScheduler(t *testing.T) {
	fired := make(chan struct{})
	cancel := NewTimerScheduler().Schedule(time.Millisecond, func() { close(fired) })
	defer cancel()
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}
