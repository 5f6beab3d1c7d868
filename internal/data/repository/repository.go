package repository

import (
	"subtitle-hub/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Challenge ChallengeRepository
	Comment   CommentRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Challenge: NewChallengeRepository(db, log),
		Comment:   NewCommentRepository(db, log),
	}
}
