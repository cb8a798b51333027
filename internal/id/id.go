// Package id generates time-sortable run identifiers.
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// source hands out ULIDs from one monotonic entropy stream, so two runs
// stamped in the same millisecond still sort in creation order.
type source struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var runs = &source{entropy: ulid.Monotonic(rand.Reader, 0)}

func (s *source) next(at time.Time) (ulid.ULID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.New(ulid.Timestamp(at), s.entropy)
}

// At returns a 26 character run ID whose timestamp part is at. It panics
// if the system entropy source fails or at lies outside the ULID range.
func At(at time.Time) string {
	u, err := runs.next(at.UTC())
	if err != nil {
		panic("id: " + err.Error())
	}
	return u.String()
}
