package mockbackend

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ashureev/campus-assistant/internal/assistant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, assistant.AnswerWeather, Classify("今天天气怎么样"))
	assert.Equal(t, assistant.AnswerCourse, Classify("帮我查一下我的课程表"))
	assert.Equal(t, assistant.AnswerLibrary, Classify("Where is the LIBRARY?"))
	assert.Equal(t, assistant.AnswerGeneral, Classify("你好"))
}

func TestChatAssignsStableThread(t *testing.T) {
	srv := New(nil)

	post := func(body string) assistant.AssistantResponse {
		t.Helper()
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v2/chat", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, w.Code)
		var resp assistant.AssistantResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		return resp
	}

	first := post(`{"userId":"u1","message":"图书馆在哪里"}`)
	second := post(`{"userId":"u1","message":"几点关门"}`)

	assert.NotEmpty(t, first.ThreadID)
	assert.Equal(t, first.ThreadID, second.ThreadID)
	assert.Equal(t, assistant.AnswerLibrary, first.Type)
	assert.Len(t, srv.ChatRequests(), 2)
}

func TestChatRejectsBadBody(t *testing.T) {
	srv := New(nil)
	for _, body := range []string{`not json`, `{"userId":"u1"}`} {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v2/chat", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestHistoryBodies(t *testing.T) {
	srv := New(nil)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/history/nobody", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"error":"`+NoHistoryMessage+`"}`, w.Body.String())

	srv.SetThread("u1", "t-1")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/history/u1", nil))
	assert.JSONEq(t, `{"userId":"u1","threadId":"t-1","history":""}`, w.Body.String())
}

func TestFailNext(t *testing.T) {
	srv := New(nil)
	srv.FailNext(http.StatusBadGateway)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/chat?question=hi", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/chat?question=hi", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.Contains(t, string(body), "hi")

	assert.Equal(t, []string{"/api/v1/chat?question=hi", "/api/v1/chat?question=hi"}, srv.Requests())
}
