package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/oauth-broker/internal/core/domain"
	"github.com/custodia-labs/oauth-broker/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.StateStore = (*StateStore)(nil)

// statePrefix namespaces authorization states: state:{token}
const statePrefix = "state:"

// StateStore implements driven.StateStore using Redis.
// States use Redis TTL for expiration and GETDEL for single-use reads.
type StateStore struct {
	client *redis.Client
}

// NewStateStore creates a new Redis-backed StateStore
func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client}
}

// Save stores a state with TTL based on ExpiresAt.
// SETNX keeps a colliding token from overwriting a pending state.
func (s *StateStore) Save(ctx context.Context, state *domain.AuthorizationState) error {
	ttl := time.Until(state.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("%w: state already expired", domain.ErrInvalidInput)
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	ok, err := s.client.SetNX(ctx, statePrefix+state.Token, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	if !ok {
		return errors.New("state token collision")
	}
	return nil
}

// GetAndDelete atomically retrieves and deletes the state with GETDEL.
// Of any number of concurrent callers for one token, exactly one gets it.
func (s *StateStore) GetAndDelete(ctx context.Context, token string) (*domain.AuthorizationState, error) {
	data, err := s.client.GetDel(ctx, statePrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume state: %w", err)
	}

	var state domain.AuthorizationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// Cleanup is a no-op; Redis expires states natively.
func (s *StateStore) Cleanup(ctx context.Context) error {
	return nil
}

// Ping checks if Redis is reachable
func (s *StateStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
