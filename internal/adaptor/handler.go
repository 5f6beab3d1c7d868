package adaptor

import (
	"subtitle-hub/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Comment *CommentHandler
	Health  *HealthHandler
}

func NewHandler(service *usecase.Service, db Pinger, log *zap.Logger) *Handler {
	return &Handler{
		Comment: NewCommentHandler(service.Challenge, service.Comment, log),
		Health:  NewHealthHandler(db, log),
	}
}
