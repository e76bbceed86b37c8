// Package mockbackend serves the assistant backend's HTTP contract from
// memory, for local development and tests.
package mockbackend

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/ashureev/campus-assistant/internal/assistant"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// defaultMaxRequestBodySize is the maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

// NoHistoryMessage is the error body returned for users without a thread.
const NoHistoryMessage = "未找到该用户的历史记录"

// Server is an in-memory assistant backend.
type Server struct {
	mu          sync.Mutex
	threads     map[string]string // userID -> threadID
	transcripts map[string][]string
	failures    []int
	requests    []string
	chats       []assistant.ChatRequest
	router      chi.Router
	logger      *slog.Logger
}

// New creates a mock backend with no conversations.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		threads:     make(map[string]string),
		transcripts: make(map[string][]string),
		logger:      logger,
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(s.record)
	r.Use(s.injectFailures)
	r.Get("/api/v1/chat", s.handleSimpleChat)
	r.Post("/api/v2/chat", s.handleChat)
	r.Get("/api/v2/history/{userId}", s.handleHistory)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// FailNext makes the next len(statuses) requests answer with those
// status codes, in order, before normal handling resumes.
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, statuses...)
}

// SetThread assigns threadID to userID as if a conversation existed.
func (s *Server) SetThread(userID, threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[userID] = threadID
}

// Requests returns the request URIs seen so far, failed ones included.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// ChatRequests returns the decoded bodies of successful stateful calls.
func (s *Server) ChatRequests() []assistant.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]assistant.ChatRequest(nil), s.chats...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.URL.RequestURI())
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status := 0
		if len(s.failures) > 0 {
			status = s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSimpleChat(w http.ResponseWriter, r *http.Request) {
	question := r.URL.Query().Get("question")
	if question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, answerFor(question)); err != nil {
		s.logger.Debug("mock backend: write failed", "error", err)
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize)

	var req assistant.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "userId and message are required")
		return
	}

	answer := answerFor(req.Message)

	s.mu.Lock()
	threadID, ok := s.threads[req.UserID]
	if !ok {
		threadID = uuid.NewString()
		s.threads[req.UserID] = threadID
	}
	s.transcripts[req.UserID] = append(s.transcripts[req.UserID],
		"user: "+req.Message,
		"assistant: "+answer,
	)
	s.chats = append(s.chats, req)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, assistant.AssistantResponse{
		UserID:           req.UserID,
		ThreadID:         threadID,
		Answer:           answer,
		Type:             Classify(req.Message),
		Suggestion:       "还有其他问题可以继续问我",
		NeedsFurtherHelp: false,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	s.mu.Lock()
	threadID, ok := s.threads[userID]
	transcript := strings.Join(s.transcripts[userID], "\n")
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusOK, assistant.HistoryError{Message: NoHistoryMessage})
		return
	}
	writeJSON(w, http.StatusOK, assistant.HistoryRecord{
		UserID:   userID,
		ThreadID: threadID,
		History:  transcript,
	})
}

var keywords = []struct {
	t     assistant.AnswerType
	words []string
}{
	{assistant.AnswerWeather, []string{"天气", "weather", "下雨", "温度"}},
	{assistant.AnswerCourse, []string{"课", "course", "学分", "考试"}},
	{assistant.AnswerLibrary, []string{"图书馆", "library", "借书", "自习"}},
}

// Classify assigns an answer type by keyword, defaulting to general.
func Classify(message string) assistant.AnswerType {
	lower := strings.ToLower(message)
	for _, k := range keywords {
		for _, w := range k.words {
			if strings.Contains(lower, w) {
				return k.t
			}
		}
	}
	return assistant.AnswerGeneral
}

func answerFor(question string) string {
	switch Classify(question) {
	case assistant.AnswerWeather:
		return "今天晴，气温 18-25 度。"
	case assistant.AnswerCourse:
		return "请登录教务系统查看你的课程表。"
	case assistant.AnswerLibrary:
		return "图书馆位于校园中心，开放时间 8:00-22:00。"
	default:
		return "我收到了你的问题：" + question
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("mock backend: encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
