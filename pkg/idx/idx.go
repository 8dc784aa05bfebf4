// Package idx mints the ULIDs used for token ids (the jti claim), usage log
// rows and request ids. ULIDs sort by creation time, so log rows listed by id
// come back oldest first.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type ID string

// ErrInvalid reports a malformed ULID string.
var ErrInvalid = errors.New("idx: invalid ulid")

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns an ID for the current UTC time.
func New() ID {
	return NewAt(time.Now().UTC())
}

// NewAt returns an ID stamped with t. IDs minted within the same millisecond
// still increase.
func NewAt(t time.Time) ID {
	mu.Lock()
	defer mu.Unlock()
	return ID(ulid.MustNew(ulid.Timestamp(t), entropy).String())
}

// Parse validates s as a ULID. Token ids arrive in the jti claim of
// untrusted input and go through here before they reach the store.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if _, err := ulid.ParseStrict(s); err != nil {
		return "", ErrInvalid
	}
	return ID(s), nil
}

func (id ID) String() string { return string(id) }
