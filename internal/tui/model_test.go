package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ashureev/campus-assistant/internal/assistant"
	"github.com/ashureev/campus-assistant/internal/chatstate"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	mu       sync.Mutex
	sent     []string
	resp     *assistant.AssistantResponse
	err      error
	resetErr error
	resets   int
	snap     chatstate.Snapshot
}

func (f *fakeController) Send(_ context.Context, message string) (*assistant.AssistantResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, message)
	f.snap.Err = f.err
	f.snap.Error = ""
	if f.err != nil {
		f.snap.Error = f.err.Error()
		return nil, f.err
	}
	f.snap.ThreadID = f.resp.ThreadID
	return f.resp, nil
}

func (f *fakeController) Reset(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	if f.resetErr == nil {
		f.snap.ThreadID = ""
	}
	return f.resetErr
}

func (f *fakeController) Snapshot() chatstate.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func enter(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestModelSendsAndRendersAnswer(t *testing.T) {
	ctrl := &fakeController{
		snap: chatstate.Snapshot{UserID: "guest_1"},
		resp: &assistant.AssistantResponse{ThreadID: "t-1", Answer: "图书馆在主楼北侧", Suggestion: "开放时间 8:00-22:00"},
	}
	m := New(context.Background(), ctrl)

	m, cmd := enter(t, m, "图书馆在哪里")
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())
	assert.Contains(t, m.View(), "thinking…")

	next, _ := m.Update(cmd())
	m = next.(Model)

	view := m.View()
	assert.Equal(t, []string{"图书馆在哪里"}, ctrl.sent)
	assert.Contains(t, view, "图书馆在哪里")
	assert.Contains(t, view, "图书馆在主楼北侧")
	assert.Contains(t, view, "开放时间 8:00-22:00")
	assert.Contains(t, view, "thread t-1")
	assert.NotContains(t, view, "thinking…")
}

func TestModelShowsErrors(t *testing.T) {
	ctrl := &fakeController{
		snap: chatstate.Snapshot{UserID: "guest_1"},
		err:  errors.New("POST /api/v2/chat: HTTP error! status: 500"),
	}
	m := New(context.Background(), ctrl)

	m, cmd := enter(t, m, "hello")
	next, _ := m.Update(cmd())
	m = next.(Model)

	assert.Contains(t, m.View(), "HTTP error! status: 500")
	assert.False(t, m.snap.Loading)
}

func TestModelIgnoresInputWhileLoading(t *testing.T) {
	ctrl := &fakeController{
		snap: chatstate.Snapshot{UserID: "guest_1"},
		resp: &assistant.AssistantResponse{ThreadID: "t-1", Answer: "ok"},
	}
	m := New(context.Background(), ctrl)

	m, cmd := enter(t, m, "first")
	require.NotNil(t, cmd)

	_, cmd = enter(t, m, "second")
	assert.Nil(t, cmd)

	_, cmd = enter(t, New(context.Background(), ctrl), "   ")
	assert.Nil(t, cmd)
}

func TestModelReset(t *testing.T) {
	ctrl := &fakeController{snap: chatstate.Snapshot{UserID: "guest_1", ThreadID: "t-9"}}
	m := New(context.Background(), ctrl)
	assert.Contains(t, m.View(), "thread t-9")

	m, cmd := enter(t, m, "/reset")
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, 1, ctrl.resets)
	assert.Empty(t, ctrl.sent)
	assert.Contains(t, m.View(), "conversation reset")
	assert.Contains(t, m.View(), "new conversation")

	ctrl.resetErr = errors.New("persist session state: disk full")
	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	next, _ = next.(Model).Update(cmd())
	assert.Contains(t, next.(Model).View(), "disk full")
}

func TestModelQuits(t *testing.T) {
	m := New(context.Background(), &fakeController{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
