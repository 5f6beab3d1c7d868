package usecase

import (
	"subtitle-hub/internal/data/repository"
	"subtitle-hub/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Challenge ChallengeService
	Comment   CommentService
}

func NewService(repo *repository.Repository, sender OTPSender, config *utils.Config, log *zap.Logger) *Service {
	return &Service{
		Challenge: NewChallengeService(repo, sender, config.OTP, log),
		Comment:   NewCommentService(repo, config.OTP, log),
	}
}
