package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/masterlab/api/internal/model"
)

// RedisStore keeps one JSON record per job under job:<id> with a TTL equal
// to the retention window, so Redis itself expires stale records. The
// Queued -> Processing claim is a SETNX marker, making the transition
// atomic across workers.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

func jobKey(id string) string   { return fmt.Sprintf("job:%s", id) }
func claimKey(id string) string { return fmt.Sprintf("job:%s:claim", id) }

func (s *RedisStore) Create(ctx context.Context, job *model.Job) error {
	return s.save(ctx, job)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.Job, error) {
	data, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *RedisStore) Update(ctx context.Context, job *model.Job) error {
	cur, err := s.Get(ctx, job.ID)
	if err != nil {
		return err
	}
	if cur.Status.Terminal() {
		return ErrTerminal
	}
	return s.save(ctx, job)
}

func (s *RedisStore) Claim(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusQueued {
		return nil, ErrNotClaimable
	}
	ok, err := s.client.SetNX(ctx, claimKey(id), "1", s.retention).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotClaimable
	}
	now := time.Now()
	job.Status = model.JobStatusProcessing
	job.StartedAt = &now
	job.UpdatedAt = now
	if err := s.save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *RedisStore) List(ctx context.Context) ([]*model.Job, error) {
	var jobs []*model.Job
	iter := s.client.Scan(ctx, 0, "job:*", 200).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var job model.Job
		if err := json.Unmarshal(data, &job); err != nil {
			// claim markers and malformed records are skipped
			continue
		}
		if job.ID == "" {
			continue
		}
		jobs = append(jobs, &job)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, jobKey(id), claimKey(id)).Err()
}

func (s *RedisStore) save(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, jobKey(job.ID), data, s.retention).Err()
}
