package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SyncStatus is the outcome of one reconciliation pass, kept around so
// operators (and the resync command) can see how the last catch-up went.
type SyncStatus struct {
	RunID           string        `json:"run_id"`
	Host            string        `json:"host"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
	State           string        `json:"state"` // "up to date", "database behind by ...", ...
	Lag             time.Duration `json:"lag"`
	CoveragePercent float64       `json:"coverage_percent"`
	PointsWritten   int           `json:"points_written"`
	RecordsSkipped  int           `json:"records_skipped"`
}

// Store keeps sync summaries in Redis.
type Store struct {
	redis *redis.Client
}

// NewStore creates a status store on an existing Redis client.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

// RecordSync saves the latest pass summary for a host. Entries expire after
// a week so stale hosts clean themselves up.
func (s *Store) RecordSync(ctx context.Context, st SyncStatus) error {
	key := fmt.Sprintf("sync_status:%s", st.Host)

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal sync status: %w", err)
	}

	if err := s.redis.Set(ctx, key, data, 7*24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to set sync status in Redis: %w", err)
	}
	return nil
}

// LastSync retrieves the most recent pass summary for a host. A missing key
// returns (nil, nil).
func (s *Store) LastSync(ctx context.Context, host string) (*SyncStatus, error) {
	key := fmt.Sprintf("sync_status:%s", host)

	data, err := s.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status from Redis: %w", err)
	}

	var st SyncStatus
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sync status: %w", err)
	}
	return &st, nil
}
