package cursor

import (
	"testing"
	"time"

	"github.com/Sternrassler/vpp-client/pkg/vpp"
	"github.com/rs/zerolog"
)

func TestState_IsEmpty(t *testing.T) {
	if !(&State{}).IsEmpty() {
		t.Error("zero State should be empty")
	}
	if (&State{Token: "T2"}).IsEmpty() {
		t.Error("State with token should not be empty")
	}
}

func TestState_IsStale(t *testing.T) {
	tests := []struct {
		name      string
		updatedAt time.Time
		maxAge    time.Duration
		want      bool
	}{
		{"never updated", time.Time{}, time.Hour, true},
		{"fresh", time.Now().Add(-time.Minute), time.Hour, false},
		{"old", time.Now().Add(-2 * time.Hour), time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &State{Token: "x", UpdatedAt: tt.updatedAt}
			if got := s.IsStale(tt.maxAge); got != tt.want {
				t.Errorf("IsStale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStore_Key(t *testing.T) {
	logger := zerolog.Nop()

	s := NewStore(nil, "5f0f3c3a-1111-4c4c-9d9d-222222222222", logger)
	if got, want := s.key(vpp.OpGetUsers, fieldToken), "vpp:cursor:5f0f3c3a-1111-4c4c-9d9d-222222222222:getUsers:token"; got != want {
		t.Errorf("key() = %q, want %q", got, want)
	}

	s = NewStore(nil, "", logger)
	if got, want := s.key(vpp.OpGetLicenses, fieldCount), "vpp:cursor:getLicenses:count"; got != want {
		t.Errorf("key() = %q, want %q", got, want)
	}
}
