package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyStore persists processed Idempotency-Key values so retried
// creates do not produce duplicate rows. Keys are scoped per subject so
// two callers may reuse the same opaque key.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// CheckAndInsert claims the key for the subject. A duplicate claim fails
// with ErrConflict.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, subjectID string) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" || subjectID == "" {
		return Errorf(ErrValidation, "idempotency key and subject required")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO idempotency_keys (key, subject_id, created_at) VALUES ($1, $2, $3)`,
		key, subjectID, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Errorf(ErrConflict, "idempotent request already processed")
		}
		return err
	}
	return nil
}

// Release removes a key so a failed create can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key, subjectID string) error {
	if s == nil || key == "" {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1 AND subject_id = $2`, key, subjectID)
	return err
}

// Cleanup removes entries older than the retention window.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if s == nil {
		return nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	return err
}
