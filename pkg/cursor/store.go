package cursor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sternrassler/vpp-client/pkg/vpp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var cursorWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vpp_cursor_writes_total",
	Help: "Total number of sinceModifiedToken cursors stored by operation",
}, []string{"operation"})

// Store keeps cursors in Redis, namespaced per client identity.
type Store struct {
	redis     *redis.Client
	namespace string
	logger    zerolog.Logger
}

// NewStore creates a cursor store. The namespace is usually the client
// GUID, so that two clients sharing a Redis never read each other's cursor.
func NewStore(redisClient *redis.Client, namespace string, logger zerolog.Logger) *Store {
	return &Store{
		redis:     redisClient,
		namespace: namespace,
		logger:    logger,
	}
}

func (s *Store) key(op vpp.Operation, field string) string {
	if s.namespace == "" {
		return fmt.Sprintf("%s:%s:%s", KeyPrefix, op, field)
	}
	return fmt.Sprintf("%s:%s:%s:%s", KeyPrefix, s.namespace, op, field)
}

// Get returns the stored cursor of op. An empty State is returned when
// nothing has been stored yet.
func (s *Store) Get(ctx context.Context, op vpp.Operation) (*State, error) {
	token, err := s.redis.Get(ctx, s.key(op, fieldToken)).Result()
	if err == redis.Nil {
		s.logger.Debug().Str("operation", string(op)).Msg("No cursor stored, full fetch required")
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cursor token: %w", err)
	}

	count, err := s.redis.Get(ctx, s.key(op, fieldCount)).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get cursor count: %w", err)
	}

	updatedStr, err := s.redis.Get(ctx, s.key(op, fieldUpdatedAt)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get cursor update time: %w", err)
	}

	var updatedAt time.Time
	if updatedStr != "" {
		if err := json.Unmarshal([]byte(updatedStr), &updatedAt); err != nil {
			return nil, fmt.Errorf("parse cursor update time: %w", err)
		}
	}

	return &State{Token: token, Count: count, UpdatedAt: updatedAt}, nil
}

// Save stores the cursor returned by a successful fetch of op.
// An empty token is ignored so that a good cursor is never overwritten
// by a response that carried none.
func (s *Store) Save(ctx context.Context, op vpp.Operation, token string, count int) error {
	if token == "" {
		s.logger.Warn().Str("operation", string(op)).Msg("Fetch returned no sinceModifiedToken, keeping previous cursor")
		return nil
	}

	updatedJSON, err := json.Marshal(time.Now().UTC())
	if err != nil {
		return fmt.Errorf("marshal cursor update time: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, s.key(op, fieldToken), token, 0)
	pipe.Set(ctx, s.key(op, fieldCount), count, 0)
	pipe.Set(ctx, s.key(op, fieldUpdatedAt), updatedJSON, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store cursor in redis: %w", err)
	}

	cursorWritesTotal.WithLabelValues(string(op)).Inc()
	s.logger.Info().
		Str("operation", string(op)).
		Int("count", count).
		Msg("Cursor stored")

	return nil
}

// Reset forgets the cursor of op, forcing the next fetch to be a full one.
func (s *Store) Reset(ctx context.Context, op vpp.Operation) error {
	err := s.redis.Del(ctx,
		s.key(op, fieldToken),
		s.key(op, fieldCount),
		s.key(op, fieldUpdatedAt),
	).Err()
	if err != nil {
		return fmt.Errorf("reset cursor: %w", err)
	}
	return nil
}
