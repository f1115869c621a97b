package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/Ramsey-B/parklink/pkg/models"
)

// ErrProgressNotFound is returned when no progress was recorded for a run
var ErrProgressNotFound = errors.New("progress not found")

// ProgressStore keeps the latest progress snapshot of each link run
type ProgressStore struct {
	client    *Client
	keyPrefix string
	ttl       time.Duration
}

// NewProgressStore creates a new ProgressStore. Snapshots expire after ttl.
func NewProgressStore(client *Client, ttl time.Duration) *ProgressStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ProgressStore{
		client:    client,
		keyPrefix: "parklink:progress:",
		ttl:       ttl,
	}
}

// Save overwrites the snapshot for progress.RunID
func (s *ProgressStore) Save(ctx context.Context, progress models.LinkProgress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return errors.Wrap(err, "failed to encode progress")
	}

	if err := s.client.rdb.Set(ctx, s.keyPrefix+progress.RunID, data, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to save progress for run %s", progress.RunID)
	}
	return nil
}

// Get returns the latest snapshot for a run
func (s *ProgressStore) Get(ctx context.Context, runID string) (*models.LinkProgress, error) {
	data, err := s.client.rdb.Get(ctx, s.keyPrefix+runID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrProgressNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load progress for run %s", runID)
	}

	var progress models.LinkProgress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, errors.Wrap(err, "failed to decode progress")
	}
	return &progress, nil
}
