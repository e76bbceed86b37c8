package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ashureev/campus-assistant/internal/config"
	"github.com/google/uuid"
)

const (
	simpleChatPath = "/api/v1/chat"
	chatPath       = "/api/v2/chat"
	historyPath    = "/api/v2/history/"

	// RequestIDHeader carries a fresh id on every outbound request.
	RequestIDHeader = "X-Request-ID"

	maxResponseBodySize = 10 << 20 // 10MB
)

// Client issues requests to the assistant backend. It keeps no
// conversation state; see package session for that.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientConfig holds configuration for the HTTP client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// DefaultClientConfig returns default configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL: config.DefaultBaseURL,
		Timeout: config.DefaultRequestTimeout,
	}
}

// NewClient creates a client for the backend at cfg.BaseURL.
func NewClient(cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultClientConfig().BaseURL
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must use http or https", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: hc,
		logger:     logger,
	}, nil
}

// Logger returns the logger the client reports through.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// BaseURL returns the backend address without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SimpleChat asks a one-off question. The backend keeps no memory of it.
// An empty question is replaced by DefaultQuestion.
func (c *Client) SimpleChat(ctx context.Context, question string) (string, error) {
	if question == "" {
		question = DefaultQuestion
	}
	body, err := c.do(ctx, http.MethodGet, SimpleChatPath(question), nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Chat sends a message on behalf of userID. Reusing userID across calls
// is what lets the backend continue the conversation; the call itself is
// stateless.
func (c *Client) Chat(ctx context.Context, userID, message string) (*AssistantResponse, error) {
	payload, err := json.Marshal(ChatRequest{UserID: userID, Message: message})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, chatPath, payload)
	if err != nil {
		return nil, err
	}

	var resp AssistantResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &TransportError{Op: "POST " + chatPath, Err: err, Malformed: true}
	}
	return &resp, nil
}

// History looks up the conversation history for userID. A backend error
// body is returned as data in the result, not as an error.
func (c *Client) History(ctx context.Context, userID string) (*HistoryResult, error) {
	path := HistoryPath(userID)
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var res HistoryResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &TransportError{Op: "GET " + path, Err: err, Malformed: true}
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	op := method + " " + path

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Assistant request failed", "op", op, "request_id", requestID, "error", err)
		return nil, &TransportError{Op: op, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "op", op, "error", closeErr)
		}
	}()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	c.logger.Debug("Assistant request completed",
		"op", op,
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       excerpt(body),
		}
	}
	if readErr != nil {
		return nil, &TransportError{Op: op, Err: readErr}
	}
	return body, nil
}

var questionEscaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EscapeQuestion percent-encodes s the way browsers' encodeURIComponent
// does: spaces become %20 and the marks !'()* stay literal.
func EscapeQuestion(s string) string {
	return questionEscaper.Replace(url.QueryEscape(s))
}

// SimpleChatPath returns the request path, with query, for a stateless question.
func SimpleChatPath(question string) string {
	return simpleChatPath + "?question=" + EscapeQuestion(question)
}

// HistoryPath returns the request path for userID's history.
func HistoryPath(userID string) string {
	return historyPath + url.PathEscape(userID)
}
