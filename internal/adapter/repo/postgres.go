package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"assetgen/internal/domain"
	"assetgen/internal/sqlinline"
)

// PostgresStore persists batch jobs as JSON documents in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates the store and ensures its table exists.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, sqlinline.QEnsureBatchJobs); err != nil {
		return fmt.Errorf("repo: ensure batch_jobs table: %w", err)
	}
	return nil
}

// Put implements domain.BatchJobStore.
func (s *PostgresStore) Put(ctx context.Context, job *domain.BatchJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("repo: marshal batch job: %w", err)
	}
	if _, err := s.pool.Exec(ctx, sqlinline.QUpsertBatchJob, job.ID, job.Status, payload, job.StartedAt); err != nil {
		return fmt.Errorf("repo: upsert batch job: %w", err)
	}
	return nil
}

// Get implements domain.BatchJobStore.
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.BatchJob, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, sqlinline.QSelectBatchJob, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
func (s *PostgresStore) List(ctx context.Context) ([]*domain.BatchJob, error) {
	rows, err := s.pool.Query(ctx, sqlinline.QListBatchJobs)
	if err != nil {
		return nil, fmt.Errorf("repo: list batch jobs: %w", err)
	}
	defer rows.Close()

	var out []*domain.BatchJob
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("repo: scan batch job: %w", err)
		}
		var job domain.BatchJob
		if err := json.Unmarshal(payload, &job); err != nil {
			return nil, fmt.Errorf("repo: unmarshal batch job: %w", err)
		}
		out = append(out, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: iterate batch jobs: %w", err)
	}
	return out, nil
}
