package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subtitle-hub/internal/data/entity"
	"subtitle-hub/internal/data/repository"
	"subtitle-hub/internal/dto/request"
	"subtitle-hub/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OTPSender is the out-of-band channel that carries the plaintext code to the
// commenter. The code never appears in an API response.
type OTPSender interface {
	SendOTP(ctx context.Context, email string, movieID uuid.UUID, code string, expiresAt time.Time) error
}

type ChallengeService interface {
	RequestChallenge(ctx context.Context, req *request.RequestOTPRequest) error
	SweepExpired(ctx context.Context) (int64, error)
}

type challengeService struct {
	repo   *repository.Repository
	sender OTPSender
	config utils.OTPConfig
	log    *zap.Logger
	now    func() time.Time
}

func NewChallengeService(
	repo *repository.Repository,
	sender OTPSender,
	config utils.OTPConfig,
	log *zap.Logger,
) ChallengeService {
	return &challengeService{
		repo:   repo,
		sender: sender,
		config: config,
		log:    log.With(zap.String("service", "challenge")),
		now:    time.Now,
	}
}

func (s *challengeService) RequestChallenge(ctx context.Context, req *request.RequestOTPRequest) error {
	// 1. Normalize & validate
	req.Normalize()
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Request OTP validation failed", zap.Any("errors", errs))
		return &ValidationError{Fields: errs}
	}

	movieID, err := uuid.Parse(req.MovieID)
	if err != nil {
		return invalidField("movieId", "Must be a valid UUID")
	}

	// 2. Cooldown per (email, movie), counted from the last issuance
	now := s.now().UTC().Truncate(time.Microsecond)
	latest, err := s.repo.Challenge.FindLatest(ctx, req.Email, movieID)
	if err != nil {
		s.log.Error("Failed to read latest challenge", zap.Error(err), zap.String("movie_id", req.MovieID))
		return storageError("find latest challenge", err)
	}
	if latest != nil {
		if wait := s.remainingCooldown(now, latest.CreatedAt); wait > 0 {
			s.log.Info("OTP request within cooldown",
				zap.String("movie_id", req.MovieID),
				zap.Duration("retry_after", wait),
			)
			return &RateLimitError{RetryAfter: wait}
		}
	}

	// 3. Mint code, keep only its hash
	code, err := utils.GenerateOTP()
	if err != nil {
		s.log.Error("Failed to generate OTP", zap.Error(err))
		return fmt.Errorf("generate OTP: %w", err)
	}

	otpHash, err := utils.HashOTP(code)
	if err != nil {
		s.log.Error("Failed to hash OTP", zap.Error(err))
		return fmt.Errorf("hash OTP: %w", err)
	}

	challenge := &entity.Challenge{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: now,
		},
		Email:     req.Email,
		MovieID:   movieID,
		OTPHash:   otpHash,
		ExpiresAt: now.Add(s.config.Expiry()),
		Used:      false,
	}

	// 4. Store; the repository re-checks the cooldown under a per-pair lock
	lastIssued, err := s.repo.Challenge.CreateAfterCooldown(ctx, challenge, s.config.Cooldown())
	if errors.Is(err, repository.ErrCooldownActive) {
		wait := s.config.Cooldown()
		if lastIssued != nil {
			wait = s.remainingCooldown(now, *lastIssued)
		}
		s.log.Info("Concurrent OTP request lost cooldown race", zap.String("movie_id", req.MovieID))
		return &RateLimitError{RetryAfter: wait}
	}
	if err != nil {
		s.log.Error("Failed to save challenge", zap.Error(err), zap.String("movie_id", req.MovieID))
		return storageError("create challenge", err)
	}

	// 5. Out-of-band delivery; an undelivered code must not hold the cooldown
	if err := s.sender.SendOTP(ctx, challenge.Email, movieID, code, challenge.ExpiresAt); err != nil {
		s.log.Error("Failed to deliver OTP",
			zap.Error(err),
			zap.String("challenge_id", challenge.ID.String()),
		)
		if revokeErr := s.repo.Challenge.Revoke(context.WithoutCancel(ctx), challenge.ID); revokeErr != nil {
			s.log.Warn("Failed to revoke undelivered challenge",
				zap.Error(revokeErr),
				zap.String("challenge_id", challenge.ID.String()),
			)
		}
		return fmt.Errorf("deliver OTP: %w", err)
	}

	s.log.Info("Comment OTP issued",
		zap.String("challenge_id", challenge.ID.String()),
		zap.String("movie_id", req.MovieID),
		zap.Time("expires_at", challenge.ExpiresAt),
	)

	return nil
}

// SweepExpired removes challenges that expired more than one expiry window ago,
// so recently expired ones still report ErrChallengeExpired.
func (s *challengeService) SweepExpired(ctx context.Context) (int64, error) {
	before := s.now().Add(-s.config.Expiry())

	deleted, err := s.repo.Challenge.DeleteExpired(ctx, before)
	if err != nil {
		s.log.Error("Failed to sweep expired challenges", zap.Error(err))
		return 0, storageError("sweep expired challenges", err)
	}

	if deleted > 0 {
		s.log.Info("Expired challenges swept", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

// ==================== HELPER METHODS ====================

func (s *challengeService) remainingCooldown(now, lastIssued time.Time) time.Duration {
	return s.config.Cooldown() - now.Sub(lastIssued)
}
