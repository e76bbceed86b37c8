package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashureev/campus-assistant/internal/assistant"
	"github.com/ashureev/campus-assistant/internal/config"
	"github.com/ashureev/campus-assistant/internal/mockbackend"
	"github.com/ashureev/campus-assistant/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, baseURL string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	err := execute(context.Background(), newApp(), append([]string{"--base-url", baseURL}, args...), &out)
	require.NoError(t, err, "args: %v", args)
	return out.String()
}

func TestCLIConversation(t *testing.T) {
	backend := httptest.NewServer(mockbackend.New(nil))
	defer backend.Close()

	t.Setenv("CAMPUS_STORE", "sqlite")
	t.Setenv("CAMPUS_DB_PATH", filepath.Join(t.TempDir(), "campus.db"))
	t.Setenv("CAMPUS_LOG_LEVEL", "error")

	out := run(t, backend.URL, "--user", "alice", "whoami")
	assert.Contains(t, out, "user:   alice")
	assert.Contains(t, out, "thread: -")
	assert.Contains(t, out, "state:  fresh")

	out = run(t, backend.URL, "--user", "alice", "chat", "图书馆", "在哪")
	assert.Contains(t, out, "图书馆位于校园中心")
	assert.Contains(t, out, "还有其他问题可以继续问我")

	out = run(t, backend.URL, "--user", "alice", "whoami")
	assert.Contains(t, out, "state:  continuing")
	assert.NotContains(t, out, "thread: -")

	out = run(t, backend.URL, "--user", "alice", "history", "-o", "yaml")
	assert.Contains(t, out, "userId: alice")
	assert.Contains(t, out, "user: 图书馆 在哪")

	out = run(t, backend.URL, "--user", "alice", "reset")
	assert.Equal(t, "conversation reset for alice\n", out)

	out = run(t, backend.URL, "--user", "alice", "whoami")
	assert.Contains(t, out, "thread: -")
}

func TestCLIGuestIdentityPersists(t *testing.T) {
	backend := httptest.NewServer(mockbackend.New(nil))
	defer backend.Close()

	t.Setenv("CAMPUS_STORE", "sqlite")
	t.Setenv("CAMPUS_DB_PATH", filepath.Join(t.TempDir(), "campus.db"))
	t.Setenv("CAMPUS_LOG_LEVEL", "error")

	first := run(t, backend.URL, "whoami")
	second := run(t, backend.URL, "whoami")
	assert.Contains(t, first, "user:   guest_")
	assert.Equal(t, first, second)
}

func TestCLIAskUsesDefaultQuestion(t *testing.T) {
	mock := mockbackend.New(nil)
	backend := httptest.NewServer(mock)
	defer backend.Close()

	t.Setenv("CAMPUS_STORE", "memory")
	t.Setenv("CAMPUS_LOG_LEVEL", "error")

	out := run(t, backend.URL, "ask")
	assert.Equal(t, "图书馆位于校园中心，开放时间 8:00-22:00。\n", out)
}

func TestCLIAskRetries(t *testing.T) {
	mock := mockbackend.New(nil)
	backend := httptest.NewServer(mock)
	defer backend.Close()

	t.Setenv("CAMPUS_STORE", "memory")
	t.Setenv("CAMPUS_LOG_LEVEL", "error")
	t.Setenv("CAMPUS_RETRY_BASE_DELAY", "1ms")

	mock.FailNext(503)
	out := run(t, backend.URL, "--retry", "ask", "今天天气")
	assert.Equal(t, "今天晴，气温 18-25 度。\n", out)
}

func TestCLIRejectsBadOutput(t *testing.T) {
	t.Setenv("CAMPUS_STORE", "memory")
	err := execute(context.Background(), newApp(), []string{"history", "-o", "xml"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output")
}

func TestWriteHistoryText(t *testing.T) {
	var b strings.Builder
	require.NoError(t, writeHistory(&b, "text", &assistant.HistoryResult{
		Err: &assistant.HistoryError{Message: mockbackend.NoHistoryMessage},
	}))
	assert.Equal(t, "error: "+mockbackend.NoHistoryMessage+"\n", b.String())

	b.Reset()
	require.NoError(t, writeHistory(&b, "json", &assistant.HistoryResult{
		Record: &assistant.HistoryRecord{UserID: "u", ThreadID: "t", History: "h"},
	}))
	assert.JSONEq(t, `{"userId":"u","threadId":"t","history":"h"}`, b.String())
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitOrigins(" http://a, ,http://b "))
	assert.Nil(t, splitOrigins(""))
}

type closeTracker struct {
	*store.MemoryStore
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return c.MemoryStore.Close()
}

func TestCLIClosesStoreWhenCommandFails(t *testing.T) {
	mock := mockbackend.New(nil)
	backend := httptest.NewServer(mock)
	defer backend.Close()

	t.Setenv("CAMPUS_STORE", "memory")
	t.Setenv("CAMPUS_LOG_LEVEL", "error")

	tracker := &closeTracker{MemoryStore: store.NewMemory()}
	a := newApp()
	a.openStore = func(context.Context, config.StoreConfig) (store.Store, error) {
		return tracker, nil
	}

	mock.FailNext(500)
	err := execute(context.Background(), a, []string{"--base-url", backend.URL, "--user", "alice", "history"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, assistant.ErrStatus)
	assert.True(t, tracker.closed)
}

func TestCLIFlagsOverrideInvalidEnvironment(t *testing.T) {
	t.Setenv("CAMPUS_STORE", "bogus")
	t.Setenv("CAMPUS_LOG_LEVEL", "error")

	var out bytes.Buffer
	err := execute(context.Background(), newApp(), []string{"--store", "memory", "--user", "alice", "whoami"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "user:   alice")

	err = execute(context.Background(), newApp(), []string{"whoami"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CAMPUS_STORE")
}

func TestCLIHintsAtStoppedLocalBackend(t *testing.T) {
	backend := httptest.NewServer(mockbackend.New(nil))
	url := backend.URL
	backend.Close()

	t.Setenv("CAMPUS_STORE", "memory")
	t.Setenv("CAMPUS_LOG_LEVEL", "error")

	err := execute(context.Background(), newApp(), []string{"--base-url", url, "ask", "hi"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, assistant.ErrTransport)
	assert.Contains(t, err.Error(), "is the backend running at "+url)
}
