// Package chatstate exposes a session as observable UI state: a loading
// flag, the last error, and the session identifiers. It has no UI
// framework dependency; integration layers subscribe to it.
package chatstate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ashureev/campus-assistant/internal/assistant"
)

// Sessioner is the part of *session.Session the controller drives.
type Sessioner interface {
	Send(ctx context.Context, message string) (*assistant.AssistantResponse, error)
	Reset(ctx context.Context) error
	UserID() string
	ThreadID() (string, bool)
}

// Snapshot is the observable state at one point in time.
type Snapshot struct {
	Loading    bool                         `json:"loading"`
	Err        error                        `json:"-"`
	Error      string                       `json:"error,omitempty"`
	UserID     string                       `json:"userId"`
	ThreadID   string                       `json:"threadId,omitempty"`
	LastAnswer *assistant.AssistantResponse `json:"lastAnswer,omitempty"`
}

// Controller holds the state around a session and notifies subscribers
// after every change.
type Controller struct {
	sess   Sessioner
	logger *slog.Logger

	mu       sync.Mutex
	loading  bool
	err      error
	last     *assistant.AssistantResponse
	subs     map[int]func(Snapshot)
	nextSubs int
}

// New wraps sess.
func New(sess Sessioner, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		sess:   sess,
		logger: logger,
		subs:   make(map[int]func(Snapshot)),
	}
}

// Send marks the controller loading, clears the previous error, sends
// message through the session and records the outcome. Loading is
// cleared whatever happens. The error of this call is returned and also
// lands in the snapshot, where a later call may replace it. The response
// is nil on failure, unless the backend did answer and only persisting
// the thread id failed.
func (c *Controller) Send(ctx context.Context, message string) (*assistant.AssistantResponse, error) {
	c.update(func() {
		c.loading = true
		c.err = nil
	})

	var (
		resp *assistant.AssistantResponse
		err  error
	)
	defer func() {
		c.update(func() {
			c.loading = false
			c.err = err
			if resp != nil {
				c.last = resp
			}
		})
	}()

	resp, err = c.sess.Send(ctx, message)
	if err != nil {
		c.logger.Warn("Send failed", "user_id", c.sess.UserID(), "error", err)
	}
	return resp, err
}

// Reset clears the session's thread and the last answer.
func (c *Controller) Reset(ctx context.Context) error {
	err := c.sess.Reset(ctx)
	c.update(func() {
		c.err = err
		c.last = nil
	})
	return err
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// UserID returns the session's user id.
func (c *Controller) UserID() string {
	return c.sess.UserID()
}

// Subscribe registers fn to receive a snapshot after every change. fn is
// called synchronously from the goroutine that changed the state and must
// not block. The returned func removes the subscription.
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSubs
	c.nextSubs++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *Controller) update(mutate func()) {
	c.mu.Lock()
	mutate()
	snap := c.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	threadID, _ := c.sess.ThreadID()
	snap := Snapshot{
		Loading:    c.loading,
		Err:        c.err,
		UserID:     c.sess.UserID(),
		ThreadID:   threadID,
		LastAnswer: c.last,
	}
	if c.err != nil {
		snap.Error = c.err.Error()
	}
	return snap
}
