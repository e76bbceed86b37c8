package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ashureev/campus-assistant/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGuestIDShape(t *testing.T) {
	now := time.UnixMilli(1732600000123)
	id, err := newGuestIDAt(now)
	require.NoError(t, err)
	assert.True(t, IsGuestID(id), id)
	assert.Regexp(t, `^guest_1732600000123_[0-9a-z]{9}$`, id)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := NewGuestID()
		require.NoError(t, err)
		assert.True(t, IsGuestID(id), id)
		assert.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
	}
}

func TestIsGuestID(t *testing.T) {
	assert.False(t, IsGuestID("user123"))
	assert.False(t, IsGuestID("guest_abc_123456789"))
	assert.False(t, IsGuestID("guest_1_ABCDEFGHI"))
	assert.True(t, IsGuestID("guest_1_0000abcde"))
}

func TestResolveExplicitWins(t *testing.T) {
	st := store.NewMemory()
	id, minted, err := Resolve(context.Background(), st, "user123", nil)
	require.NoError(t, err)
	assert.Equal(t, "user123", id)
	assert.False(t, minted)

	_, ok, err := st.Get(context.Background(), store.GuestUserIDKey)
	require.NoError(t, err)
	assert.False(t, ok, "explicit ids never create a guest identity")
}

func TestResolveKeepsExplicitIDVerbatim(t *testing.T) {
	for _, explicit := range []string{" ", " user123 "} {
		st := store.NewMemory()
		id, minted, err := Resolve(context.Background(), st, explicit, func() (string, error) {
			return "", errors.New("generator must not run for a non-empty id")
		})
		require.NoError(t, err)
		assert.Equal(t, explicit, id)
		assert.False(t, minted)
	}
}

func TestResolveMintsOnceAndReuses(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	calls := 0
	gen := func() (string, error) {
		calls++
		return "guest_1_aaaaaaaaa", nil
	}

	first, minted, err := Resolve(ctx, st, "", gen)
	require.NoError(t, err)
	assert.True(t, minted)

	second, minted, err := Resolve(ctx, st, "", gen)
	require.NoError(t, err)
	assert.False(t, minted)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	stored, _, err := st.Get(ctx, store.GuestUserIDKey)
	require.NoError(t, err)
	assert.Equal(t, first, stored)
}

func TestResolveGeneratorError(t *testing.T) {
	boom := errors.New("no entropy")
	_, _, err := Resolve(context.Background(), store.NewMemory(), "", func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
}
