// Package cursor persists VPP sinceModifiedTokens between fetches so that
// callers can resynchronize incrementally.
package cursor

import (
	"time"
)

// Redis key layout: vpp:cursor:<namespace>:<operation>:<field>.
const (
	KeyPrefix = "vpp:cursor"

	fieldToken     = "token"
	fieldCount     = "count"
	fieldUpdatedAt = "updated_at"
)

// State is the stored cursor of one operation.
type State struct {
	// Token is the sinceModifiedToken of the last successful fetch.
	// Empty means no fetch has been recorded and a full fetch is required.
	Token string `json:"token"`

	// Count is the number of records the last fetch returned.
	Count int `json:"count"`

	// UpdatedAt is when the cursor was stored.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEmpty reports whether no cursor has been stored yet.
func (s *State) IsEmpty() bool {
	return s.Token == ""
}

// IsStale returns true if the cursor is older than maxAge. A caller may
// prefer a full fetch over replaying a very old cursor.
func (s *State) IsStale(maxAge time.Duration) bool {
	if s.UpdatedAt.IsZero() {
		return true
	}
	return time.Since(s.UpdatedAt) > maxAge
}
