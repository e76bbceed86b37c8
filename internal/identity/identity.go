// Package identity mints and resolves guest user identifiers.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/campus-assistant/internal/store"
)

const (
	GuestPrefix = "guest_"

	suffixLen = 9
	// suffixSpace is 36^9, the number of distinct base36 suffixes.
	suffixSpace = 101559956668416
)

var guestIDPattern = regexp.MustCompile(`^guest_[0-9]+_[0-9a-z]{9}$`)

// Generator mints a new guest identifier.
type Generator func() (string, error)

// NewGuestID returns guest_<unix millis>_<9 random base36 chars>.
func NewGuestID() (string, error) {
	return newGuestIDAt(time.Now())
}

func newGuestIDAt(now time.Time) (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate guest id: %w", err)
	}
	n := binary.BigEndian.Uint64(buf[:]) % suffixSpace
	suffix := strconv.FormatUint(n, 36)
	suffix = strings.Repeat("0", suffixLen-len(suffix)) + suffix
	return GuestPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix, nil
}

// IsGuestID reports whether id has the shape NewGuestID produces.
func IsGuestID(id string) bool {
	return guestIDPattern.MatchString(id)
}

// Resolve picks the user id for a new session. Any non-empty explicit id
// wins as given and leaves stored guest identity untouched. Otherwise the guest id stored
// under store.GuestUserIDKey is reused, or a fresh one is minted with gen
// and persisted so later sessions and later processes get the same id.
// minted reports whether a new id was created.
func Resolve(ctx context.Context, st store.Store, explicit string, gen Generator) (userID string, minted bool, err error) {
	if explicit != "" {
		return explicit, false, nil
	}

	stored, ok, err := st.Get(ctx, store.GuestUserIDKey)
	if err != nil {
		return "", false, fmt.Errorf("read guest id: %w", err)
	}
	if ok && stored != "" {
		return stored, false, nil
	}

	if gen == nil {
		gen = NewGuestID
	}
	id, err := gen()
	if err != nil {
		return "", false, err
	}
	if err := st.Set(ctx, store.GuestUserIDKey, id); err != nil {
		return "", false, fmt.Errorf("persist guest id: %w", err)
	}
	return id, true, nil
}
