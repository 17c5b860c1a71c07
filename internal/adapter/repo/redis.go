package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"assetgen/internal/domain"
)

const (
	redisJobPrefix = "assetgen:batch:"
	redisJobIndex  = "assetgen:batches"
)

// RedisStore persists batch jobs as JSON values in Redis, with a set index
// for listing. Used when several service instances need to see each other's
// jobs.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs the store from a connected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Put implements domain.BatchJobStore.
func (s *RedisStore) Put(ctx context.Context, job *domain.BatchJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("repo: marshal batch job: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisJobPrefix+job.ID, payload, 0)
	pipe.SAdd(ctx, redisJobIndex, job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("repo: store batch job: %w", err)
	}
	return nil
}

// Get implements domain.BatchJobStore.
func (s *RedisStore) Get(ctx context.Context, id string) (*domain.BatchJob, error) {
	payload, err := s.client.Get(ctx, redisJobPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("repo: load batch job: %w", err)
	}
	var job domain.BatchJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("repo: unmarshal batch job: %w", err)
	}
	return &job, nil
}

// List implements domain.BatchJobStore. Jobs are returned newest first.
func (s *RedisStore) List(ctx context.Context) ([]*domain.BatchJob, error) {
	ids, err := s.client.SMembers(ctx, redisJobIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("repo: list batch job ids: %w", err)
	}
	out := make([]*domain.BatchJob, 0, len(ids))
	for _, id := range ids {
		job, err := s.Get(ctx, id)
		if errors.Is(err, domain.ErrJobNotFound) {
			// Index entry outlived its value; skip it.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}
