package assistant

import "context"

// Chatter is the stateful chat call. Session managers and the resilience
// helpers depend on this rather than on *Client.
type Chatter interface {
	Chat(ctx context.Context, userID, message string) (*AssistantResponse, error)
}

// Backend is the full set of remote operations.
type Backend interface {
	Chatter

	// SimpleChat asks a question with no conversation memory.
	SimpleChat(ctx context.Context, question string) (string, error)

	// History returns the stored history or the backend's error body.
	History(ctx context.Context, userID string) (*HistoryResult, error)
}

// Ensure Client implements Backend.
var _ Backend = (*Client)(nil)
