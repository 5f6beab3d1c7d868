package repository

import (
	"context"
	"errors"
	"fmt"

	"subtitle-hub/internal/data/entity"
	"subtitle-hub/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type CommentRepository interface {
	// CreateFromChallenge consumes the challenge and inserts the comment in a
	// single transaction. ErrChallengeConsumed means another request claimed
	// the challenge first and nothing was written.
	CreateFromChallenge(ctx context.Context, challengeID uuid.UUID, comment *entity.Comment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error)
	FindByMovieID(ctx context.Context, movieID uuid.UUID, limit, offset int) ([]*entity.Comment, error)
	CountByMovieID(ctx context.Context, movieID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type commentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewCommentRepository(db database.PgxIface, log *zap.Logger) CommentRepository {
	return &commentRepository{
		db:  db,
		log: log.With(zap.String("repository", "comment")),
	}
}

func (r *commentRepository) CreateFromChallenge(ctx context.Context, challengeID uuid.UUID, comment *entity.Comment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin comment tx: %w", err)
	}
	defer tx.Rollback(ctx)

	claimQuery := `
		UPDATE otp_tokens
		SET used = true
		WHERE id = $1 AND used = false
	`

	result, err := tx.Exec(ctx, claimQuery, challengeID)
	if err != nil {
		r.log.Error("Failed to claim challenge",
			zap.Error(err),
			zap.String("challenge_id", challengeID.String()),
		)
		return fmt.Errorf("claim challenge %s: %w", challengeID.String(), err)
	}
	if result.RowsAffected() == 0 {
		return ErrChallengeConsumed
	}

	insertQuery := `
		INSERT INTO comments (id, movie_id, email, body, delete_token_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = tx.Exec(ctx, insertQuery,
		comment.ID,
		comment.MovieID,
		comment.Email,
		comment.Body,
		comment.DeleteTokenHash,
		comment.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create comment",
			zap.Error(err),
			zap.String("movie_id", comment.MovieID.String()),
		)
		return fmt.Errorf("create comment for movie %s: %w", comment.MovieID.String(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit comment: %w", err)
	}

	return nil
}

func (r *commentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error) {
	query := `
		SELECT id, movie_id, email, body, delete_token_hash, created_at
		FROM comments
		WHERE id = $1
	`

	var comment entity.Comment
	err := r.db.QueryRow(ctx, query, id).Scan(
		&comment.ID,
		&comment.MovieID,
		&comment.Email,
		&comment.Body,
		&comment.DeleteTokenHash,
		&comment.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find comment by ID",
			zap.Error(err),
			zap.String("comment_id", id.String()),
		)
		return nil, fmt.Errorf("find comment by ID %s: %w", id.String(), err)
	}

	return &comment, nil
}

func (r *commentRepository) FindByMovieID(ctx context.Context, movieID uuid.UUID, limit, offset int) ([]*entity.Comment, error) {
	query := `
		SELECT id, movie_id, email, body, created_at
		FROM comments
		WHERE movie_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, movieID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find comments by movie ID",
			zap.Error(err),
			zap.String("movie_id", movieID.String()),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find comments by movie ID %s: %w", movieID.String(), err)
	}
	defer rows.Close()

	var comments []*entity.Comment
	for rows.Next() {
		var comment entity.Comment
		err := rows.Scan(
			&comment.ID,
			&comment.MovieID,
			&comment.Email,
			&comment.Body,
			&comment.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan comment row", zap.Error(err))
			return nil, fmt.Errorf("scan comment row: %w", err)
		}
		comments = append(comments, &comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comment rows: %w", err)
	}

	return comments, nil
}

func (r *commentRepository) CountByMovieID(ctx context.Context, movieID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM comments WHERE movie_id = $1`

	var count int64
	err := r.db.QueryRow(ctx, query, movieID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count comments by movie ID",
			zap.Error(err),
			zap.String("movie_id", movieID.String()),
		)
		return 0, fmt.Errorf("count comments by movie ID %s: %w", movieID.String(), err)
	}

	return count, nil
}

func (r *commentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM comments WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to delete comment",
			zap.Error(err),
			zap.String("comment_id", id.String()),
		)
		return fmt.Errorf("delete comment %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	r.log.Info("Comment deleted", zap.String("comment_id", id.String()))
	return nil
}
