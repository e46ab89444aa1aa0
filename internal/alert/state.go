package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AlarmState represents the current state of one probe alarm
type AlarmState struct {
	Status          string    `json:"status"` // CLEAR, PENDING_ALARM, ALARMING
	BreachStartTime time.Time `json:"breach_start_time"`
	LastChecked     time.Time `json:"last_checked"`
	BreachValue     float64   `json:"breach_value"`
}

const (
	AlarmStateClear   = "CLEAR"
	AlarmStatePending = "PENDING_ALARM"
	AlarmStateActive  = "ALARMING"
)

// StateStore persists alarm states across process restarts.
type StateStore interface {
	GetState(ctx context.Context, host, probe string) (*AlarmState, error)
	SetState(ctx context.Context, host, probe string, state *AlarmState) error
	DeleteState(ctx context.Context, host, probe string) error
}

// RedisStateStore keeps alarm states in Redis so an alarm pending across a
// restart does not reset its breach clock.
type RedisStateStore struct {
	redis *redis.Client
}

// NewRedisStateStore creates a state store on an existing Redis client.
func NewRedisStateStore(redisClient *redis.Client) *RedisStateStore {
	return &RedisStateStore{redis: redisClient}
}

// GetState retrieves the alarm state for a host and probe
func (s *RedisStateStore) GetState(ctx context.Context, host, probe string) (*AlarmState, error) {
	key := fmt.Sprintf("alarm_state:%s:%s", host, probe)

	data, err := s.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		// No state exists, return CLEAR state
		return &AlarmState{Status: AlarmStateClear}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state from Redis: %w", err)
	}

	var state AlarmState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// SetState saves the alarm state for a host and probe
func (s *RedisStateStore) SetState(ctx context.Context, host, probe string, state *AlarmState) error {
	key := fmt.Sprintf("alarm_state:%s:%s", host, probe)

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Expire stale states after a week so removed probes clean up.
	if err := s.redis.Set(ctx, key, data, 7*24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to set state in Redis: %w", err)
	}
	return nil
}

// DeleteState removes the alarm state (returns to CLEAR)
func (s *RedisStateStore) DeleteState(ctx context.Context, host, probe string) error {
	key := fmt.Sprintf("alarm_state:%s:%s", host, probe)
	return s.redis.Del(ctx, key).Err()
}

// MemoryStateStore is the in-process fallback used when Redis is disabled.
// States do not survive a restart.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]AlarmState
}

// NewMemoryStateStore creates an empty in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]AlarmState)}
}

func (s *MemoryStateStore) GetState(_ context.Context, host, probe string) (*AlarmState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[host+":"+probe]
	if !ok {
		return &AlarmState{Status: AlarmStateClear}, nil
	}
	return &state, nil
}

func (s *MemoryStateStore) SetState(_ context.Context, host, probe string, state *AlarmState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[host+":"+probe] = *state
	return nil
}

func (s *MemoryStateStore) DeleteState(_ context.Context, host, probe string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, host+":"+probe)
	return nil
}
