// Package autosave implements the debounced save coordinator shared by every
// open row editor. All pending edits flush on one shared timer so a burst of
// edits across many rows produces a single save pass.
package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/draftforge/draftforge/internal"
	"github.com/draftforge/draftforge/internal/util"
	"github.com/shopmonkeyus/go-common/logger"
)

// DefaultDelay is the debounce window between the last queued edit and the
// flush that persists it.
const DefaultDelay = 700 * time.Millisecond

// Scheduler abstracts delayed execution so tests can drive the timer by hand.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) (cancel func())
}

type timerScheduler struct{}

func (timerScheduler) Schedule(delay time.Duration, fn func()) func() {
	t := time.AfterFunc(delay, fn)
	return func() { t.Stop() }
}

// NewTimerScheduler returns the real time.AfterFunc backed scheduler.
func NewTimerScheduler() Scheduler {
	return timerScheduler{}
}

// SaveFunc persists one row's content.
type SaveFunc func(ctx context.Context, rowID string, content map[string]any) error

// RollbackFunc is invoked after a failed save with the row id and the exact
// content that was rejected, so the host can restore the row's editor state
// from its own snapshot.
type RollbackFunc func(rowID string, rejected map[string]any)

// Config configures a Coordinator. Save is required; the rest have working
// defaults.
type Config struct {
	Logger    logger.Logger
	Save      SaveFunc
	Rollback  RollbackFunc
	Notifier  internal.Notifier
	Delay     time.Duration
	Scheduler Scheduler
}

type pendingSave struct {
	rowID   string
	content map[string]any
}

// Coordinator debounces row saves on a single shared timer. Queueing a save
// for any row resets the timer for all of them; when it fires, every pending
// row is saved sequentially in the order it was first queued. A failed row is
// rolled back and reported without affecting its siblings, and is not
// retried.
type Coordinator struct {
	logger    logger.Logger
	save      SaveFunc
	rollback  RollbackFunc
	notifier  internal.Notifier
	delay     time.Duration
	scheduler Scheduler

	mu      sync.Mutex
	pending map[string]*pendingSave
	order   []string
	cancel  func()
	closed  bool

	flushing sync.WaitGroup
}

// New creates a coordinator from config.
func New(config Config) *Coordinator {
	c := &Coordinator{
		logger:    config.Logger.WithPrefix("[autosave]"),
		save:      config.Save,
		rollback:  config.Rollback,
		notifier:  config.Notifier,
		delay:     config.Delay,
		scheduler: config.Scheduler,
		pending:   make(map[string]*pendingSave),
	}
	if c.delay <= 0 {
		c.delay = DefaultDelay
	}
	if c.scheduler == nil {
		c.scheduler = NewTimerScheduler()
	}
	return c
}

// QueueSave records the latest content for a row and restarts the shared
// debounce timer.
func (c *Coordinator) QueueSave(rowID string, content map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if p, ok := c.pending[rowID]; ok {
		p.content = content
	} else {
		c.pending[rowID] = &pendingSave{rowID: rowID, content: content}
		c.order = append(c.order, rowID)
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = c.scheduler.Schedule(c.delay, func() {
		c.Flush(context.Background())
	})
}

// Pending reports whether any rows are waiting to be saved.
func (c *Coordinator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order) > 0
}

// Flush saves every pending row immediately, sequentially, in the order the
// rows were first queued. Edits queued while a flush is running land in the
// next batch.
func (c *Coordinator) Flush(ctx context.Context) {
	c.mu.Lock()
	if len(c.order) == 0 {
		c.mu.Unlock()
		return
	}
	batch := make([]*pendingSave, 0, len(c.order))
	for _, rowID := range c.order {
		batch = append(batch, c.pending[rowID])
	}
	c.pending = make(map[string]*pendingSave)
	c.order = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.flushing.Add(1)
	c.mu.Unlock()

	defer c.flushing.Done()
	defer util.RecoverPanic(c.logger)

	internal.AutosaveBatches.Inc()
	for _, p := range batch {
		if err := c.save(ctx, p.rowID, p.content); err != nil {
			internal.AutosaveFailures.Inc()
			c.logger.Error("error saving row %s: %s", p.rowID, err)
			if c.rollback != nil {
				c.rollback(p.rowID, p.content)
			}
			if c.notifier != nil {
				c.notifier.Notify(internal.Notification{
					Message:  "Failed to save row " + p.rowID + ": " + err.Error(),
					Severity: internal.SeverityError,
				})
			}
		}
	}
}

// Close stops the debounce timer, flushes anything still pending and rejects
// further queueing.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
	c.Flush(context.Background())
	c.flushing.Wait()
}
