package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subtitle-hub/internal/data/entity"
	"subtitle-hub/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ChallengeRepository interface {
	// CreateAfterCooldown inserts ch unless another challenge for the same
	// (email, movie) was created less than cooldown before ch.CreatedAt. On
	// refusal it returns ErrCooldownActive and the time of that issuance.
	CreateAfterCooldown(ctx context.Context, ch *entity.Challenge, cooldown time.Duration) (*time.Time, error)
	FindLatest(ctx context.Context, email string, movieID uuid.UUID) (*entity.Challenge, error)
	// RecordAttempt counts one verification attempt; false once maxAttempts is reached.
	RecordAttempt(ctx context.Context, id uuid.UUID, maxAttempts int) (bool, error)
	// Revoke removes a challenge whose code never reached the commenter, which
	// also lifts its cooldown.
	Revoke(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type challengeRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewChallengeRepository(db database.PgxIface, log *zap.Logger) ChallengeRepository {
	return &challengeRepository{
		db:  db,
		log: log.With(zap.String("repository", "challenge")),
	}
}

func (r *challengeRepository) CreateAfterCooldown(ctx context.Context, ch *entity.Challenge, cooldown time.Duration) (*time.Time, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin challenge tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serializes issuers of the same (email, movie) across processes until commit
	lockQuery := `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	if _, err := tx.Exec(ctx, lockQuery, ch.Email+"|"+ch.MovieID.String()); err != nil {
		r.log.Error("Failed to lock challenge pair",
			zap.Error(err),
			zap.String("movie_id", ch.MovieID.String()),
		)
		return nil, fmt.Errorf("lock challenge pair: %w", err)
	}

	latestQuery := `
		SELECT created_at
		FROM otp_tokens
		WHERE email = $1 AND movie_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var lastIssued time.Time
	err = tx.QueryRow(ctx, latestQuery, ch.Email, ch.MovieID).Scan(&lastIssued)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		r.log.Error("Failed to read latest challenge",
			zap.Error(err),
			zap.String("movie_id", ch.MovieID.String()),
		)
		return nil, fmt.Errorf("read latest challenge: %w", err)
	case ch.CreatedAt.Sub(lastIssued) < cooldown:
		return &lastIssued, ErrCooldownActive
	}

	insertQuery := `
		INSERT INTO otp_tokens (id, email, movie_id, otp_hash, expires_at,
		                        used, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = tx.Exec(ctx, insertQuery,
		ch.ID,
		ch.Email,
		ch.MovieID,
		ch.OTPHash,
		ch.ExpiresAt,
		ch.Used,
		ch.Attempts,
		ch.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create challenge",
			zap.Error(err),
			zap.String("movie_id", ch.MovieID.String()),
		)
		return nil, fmt.Errorf("create challenge for movie %s: %w", ch.MovieID.String(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit challenge: %w", err)
	}

	return nil, nil
}

func (r *challengeRepository) FindLatest(ctx context.Context, email string, movieID uuid.UUID) (*entity.Challenge, error) {
	query := `
		SELECT id, email, movie_id, otp_hash, expires_at,
		       used, attempts, created_at
		FROM otp_tokens
		WHERE email = $1 AND movie_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var ch entity.Challenge
	err := r.db.QueryRow(ctx, query, email, movieID).Scan(
		&ch.ID,
		&ch.Email,
		&ch.MovieID,
		&ch.OTPHash,
		&ch.ExpiresAt,
		&ch.Used,
		&ch.Attempts,
		&ch.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find latest challenge",
			zap.Error(err),
			zap.String("movie_id", movieID.String()),
		)
		return nil, fmt.Errorf("find latest challenge for movie %s: %w", movieID.String(), err)
	}

	return &ch, nil
}

func (r *challengeRepository) RecordAttempt(ctx context.Context, id uuid.UUID, maxAttempts int) (bool, error) {
	query := `
		UPDATE otp_tokens
		SET attempts = attempts + 1
		WHERE id = $1 AND attempts < $2
	`

	result, err := r.db.Exec(ctx, query, id, maxAttempts)
	if err != nil {
		r.log.Error("Failed to record challenge attempt",
			zap.Error(err),
			zap.String("challenge_id", id.String()),
		)
		return false, fmt.Errorf("record attempt on challenge %s: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *challengeRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM otp_tokens WHERE id = $1 AND used = false`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to revoke challenge",
			zap.Error(err),
			zap.String("challenge_id", id.String()),
		)
		return fmt.Errorf("revoke challenge %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *challengeRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM otp_tokens WHERE expires_at < $1`

	result, err := r.db.Exec(ctx, query, before)
	if err != nil {
		r.log.Error("Failed to delete expired challenges", zap.Error(err))
		return 0, fmt.Errorf("delete expired challenges: %w", err)
	}

	return result.RowsAffected(), nil
}
