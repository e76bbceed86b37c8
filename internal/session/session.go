// Package session threads one user's conversation across stateful chat
// calls and persists its identifiers between processes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ashureev/campus-assistant/internal/assistant"
	"github.com/ashureev/campus-assistant/internal/identity"
	"github.com/ashureev/campus-assistant/internal/retry"
	"github.com/ashureev/campus-assistant/internal/store"
)

var (
	// ErrPersist wraps failures to write session identifiers to the store.
	// The in-memory session has already been updated when it is returned.
	ErrPersist = errors.New("persist session state")
	// ErrNoHistory is returned by History when the chatter cannot look
	// history up.
	ErrNoHistory = errors.New("history lookup not supported")
)

// State is the conversation state of a session.
type State int

const (
	// Fresh sessions have no thread yet.
	Fresh State = iota
	// Continuing sessions carry a backend-assigned thread id.
	Continuing
)

func (s State) String() string {
	if s == Continuing {
		return "continuing"
	}
	return "fresh"
}

type historian interface {
	History(ctx context.Context, userID string) (*assistant.HistoryResult, error)
}

type options struct {
	userID string
	logger *slog.Logger
	gen    identity.Generator
}

// Option configures New.
type Option func(*options)

// WithUserID uses id instead of the stored or minted guest identity.
func WithUserID(id string) Option {
	return func(o *options) { o.userID = id }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithIDGenerator replaces the guest id generator.
func WithIDGenerator(gen identity.Generator) Option {
	return func(o *options) { o.gen = gen }
}

// Session owns a user id and the current thread id. The user id never
// changes. The thread id changes only when a chat response carries one,
// or when Reset clears it.
type Session struct {
	chatter assistant.Chatter
	store   store.Store
	logger  *slog.Logger
	userID  string

	// persistMu orders thread id writes so memory and store see them in
	// the same order. mu guards reads of threadID.
	persistMu sync.Mutex
	mu        sync.RWMutex
	threadID  string
}

// New resolves the user id (explicit, stored guest, or newly minted
// guest) and restores any thread id persisted for it.
func New(ctx context.Context, chatter assistant.Chatter, st store.Store, opts ...Option) (*Session, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	userID, minted, err := identity.Resolve(ctx, st, o.userID, o.gen)
	if err != nil {
		return nil, fmt.Errorf("resolve user id: %w", err)
	}
	if minted {
		o.logger.Info("Created guest identity", "user_id", userID)
	}

	threadID, _, err := st.Get(ctx, store.ThreadIDKey(userID))
	if err != nil {
		return nil, fmt.Errorf("restore thread id: %w", err)
	}

	return &Session{
		chatter:  chatter,
		store:    st,
		logger:   o.logger.With("user_id", userID),
		userID:   userID,
		threadID: threadID,
	}, nil
}

// UserID returns the session's user id.
func (s *Session) UserID() string {
	return s.userID
}

// ThreadID returns the current thread id, if any.
func (s *Session) ThreadID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threadID, s.threadID != ""
}

// State reports whether the session has a thread yet.
func (s *Session) State() State {
	if _, ok := s.ThreadID(); ok {
		return Continuing
	}
	return Fresh
}

// Send sends message as this session's user and adopts the thread id
// from the response.
//
// Concurrent Sends on one Session are not ordered: whichever response is
// adopted last wins. Adoption updates memory and the store together, so
// both hold the same winner. Callers that need a strict order must
// serialize their calls.
func (s *Session) Send(ctx context.Context, message string) (*assistant.AssistantResponse, error) {
	resp, err := s.chatter.Chat(ctx, s.userID, message)
	if err != nil {
		return nil, err
	}
	return resp, s.adopt(ctx, resp)
}

// SendWithRetry is Send with the chat call run under policy.
func (s *Session) SendWithRetry(ctx context.Context, message string, policy retry.Policy) (*assistant.AssistantResponse, error) {
	resp, err := assistant.ChatWithRetry(ctx, s.chatter, s.userID, message, policy)
	if err != nil {
		return nil, err
	}
	return resp, s.adopt(ctx, resp)
}

func (s *Session) adopt(ctx context.Context, resp *assistant.AssistantResponse) error {
	if resp == nil || resp.ThreadID == "" {
		return nil
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	prev := s.threadID
	s.threadID = resp.ThreadID
	s.mu.Unlock()

	if prev != resp.ThreadID {
		s.logger.Debug("Thread assigned", "thread_id", resp.ThreadID, "previous", prev)
	}

	if err := s.store.Set(ctx, store.ThreadIDKey(s.userID), resp.ThreadID); err != nil {
		s.logger.Warn("Failed to persist thread id", "thread_id", resp.ThreadID, "error", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// History looks up this user's history on the backend.
func (s *Session) History(ctx context.Context) (*assistant.HistoryResult, error) {
	h, ok := s.chatter.(historian)
	if !ok {
		return nil, ErrNoHistory
	}
	return h.History(ctx, s.userID)
}

// Reset forgets the thread id and removes it from the store. The user id
// is kept. The in-memory thread id is cleared even if the store fails.
func (s *Session) Reset(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.threadID = ""
	s.mu.Unlock()

	if err := s.store.Remove(ctx, store.ThreadIDKey(s.userID)); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	s.logger.Debug("Session reset")
	return nil
}
