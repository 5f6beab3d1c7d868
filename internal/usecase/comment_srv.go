package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subtitle-hub/internal/data/entity"
	"subtitle-hub/internal/data/repository"
	"subtitle-hub/internal/dto/request"
	"subtitle-hub/internal/dto/response"
	"subtitle-hub/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AttemptNotRecordedWarning is attached to a posted comment when the OTP was
// correct but the attempt counter could not be updated.
const AttemptNotRecordedWarning = "Comment posted, but the verification attempt could not be recorded."

type CommentService interface {
	VerifyAndPost(ctx context.Context, req *request.VerifyOTPRequest) (*response.PostedComment, error)
	DeleteComment(ctx context.Context, req *request.DeleteCommentRequest) error
	GetMovieComments(ctx context.Context, movieID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.CommentResponse], error)
}

type commentService struct {
	repo        *repository.Repository
	maxAttempts int
	log         *zap.Logger
	now         func() time.Time
}

func NewCommentService(repo *repository.Repository, config utils.OTPConfig, log *zap.Logger) CommentService {
	return &commentService{
		repo:        repo,
		maxAttempts: config.MaxAttempts,
		log:         log.With(zap.String("service", "comment")),
		now:         time.Now,
	}
}

func (s *commentService) VerifyAndPost(ctx context.Context, req *request.VerifyOTPRequest) (*response.PostedComment, error) {
	// 1. Normalize & validate before touching storage
	req.Normalize()
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Verify OTP validation failed", zap.Any("errors", errs))
		return nil, &ValidationError{Fields: errs}
	}

	movieID, err := uuid.Parse(req.MovieID)
	if err != nil {
		return nil, invalidField("movieId", "Must be a valid UUID")
	}

	// 2. Only the most recent challenge for the pair counts
	challenge, err := s.repo.Challenge.FindLatest(ctx, req.Email, movieID)
	if err != nil {
		return nil, storageError("find latest challenge", err)
	}
	if challenge == nil {
		return nil, ErrChallengeNotFound
	}

	// 3. State checks
	if challenge.Used {
		return nil, ErrChallengeAlreadyUsed
	}
	if challenge.IsExpired(s.now()) {
		return nil, ErrChallengeExpired
	}

	// 4. Attempt guard
	var attemptErr error
	if s.maxAttempts > 0 {
		counted, err := s.repo.Challenge.RecordAttempt(ctx, challenge.ID, s.maxAttempts)
		switch {
		case err != nil:
			attemptErr = err
		case !counted:
			s.log.Warn("OTP attempts exhausted",
				zap.String("challenge_id", challenge.ID.String()),
				zap.Int("max_attempts", s.maxAttempts),
			)
			return nil, ErrTooManyAttempts
		}
	}

	// 5. Compare
	match, err := utils.CheckOTP(req.OTP, challenge.OTPHash)
	if err != nil {
		s.log.Error("Failed to compare OTP",
			zap.Error(err),
			zap.String("challenge_id", challenge.ID.String()),
		)
		return nil, fmt.Errorf("compare OTP: %w", err)
	}
	if !match {
		if attemptErr != nil {
			return nil, storageError("record attempt", attemptErr)
		}
		s.log.Info("Wrong OTP submitted", zap.String("challenge_id", challenge.ID.String()))
		return nil, ErrOTPMismatch
	}

	var warning string
	if attemptErr != nil {
		s.log.Warn("Correct OTP but attempt was not recorded",
			zap.Error(attemptErr),
			zap.String("challenge_id", challenge.ID.String()),
		)
		warning = AttemptNotRecordedWarning
	}

	// 6. Delete capability, stored hashed
	token, err := utils.GenerateDeleteToken()
	if err != nil {
		s.log.Error("Failed to generate delete token", zap.Error(err))
		return nil, fmt.Errorf("generate delete token: %w", err)
	}
	tokenHash := utils.HashToken(token)

	// timestamptz keeps microseconds; match it so the listing shows the same value
	comment := &entity.Comment{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: s.now().UTC().Truncate(time.Microsecond),
		},
		MovieID:         movieID,
		Email:           req.Email,
		Body:            req.Body,
		DeleteTokenHash: &tokenHash,
	}

	// 7. Consume the challenge and insert the comment together
	err = s.repo.Comment.CreateFromChallenge(ctx, challenge.ID, comment)
	if errors.Is(err, repository.ErrChallengeConsumed) {
		s.log.Info("Challenge consumed by a concurrent request",
			zap.String("challenge_id", challenge.ID.String()),
		)
		return nil, ErrChallengeAlreadyUsed
	}
	if err != nil {
		return nil, storageError("create comment", err)
	}

	s.log.Info("Comment posted",
		zap.String("comment_id", comment.ID.String()),
		zap.String("movie_id", req.MovieID),
	)

	return &response.PostedComment{
		OK:          true,
		Comment:     response.CommentToResponse(comment),
		DeleteToken: token,
		Warning:     warning,
	}, nil
}

func (s *commentService) DeleteComment(ctx context.Context, req *request.DeleteCommentRequest) error {
	req.Normalize()
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Delete comment validation failed", zap.Any("errors", errs))
		return &ValidationError{Fields: errs}
	}

	commentID, err := uuid.Parse(req.CommentID)
	if err != nil {
		return invalidField("commentId", "Must be a valid UUID")
	}

	comment, err := s.repo.Comment.FindByID(ctx, commentID)
	if err != nil {
		return storageError("find comment", err)
	}
	if comment == nil {
		return ErrNotFound
	}

	// Comments posted before delete tokens existed can never be deleted this way
	if !comment.Deletable() {
		s.log.Warn("Delete attempted on comment without token",
			zap.String("comment_id", req.CommentID),
		)
		return ErrForbidden
	}

	if !utils.CheckTokenHash(req.DeleteToken, *comment.DeleteTokenHash) {
		s.log.Warn("Delete token mismatch", zap.String("comment_id", req.CommentID))
		return ErrForbidden
	}

	err = s.repo.Comment.Delete(ctx, commentID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return storageError("delete comment", err)
	}

	s.log.Info("Comment deleted by token holder", zap.String("comment_id", req.CommentID))
	return nil
}

func (s *commentService) GetMovieComments(ctx context.Context, movieID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.CommentResponse], error) {
	movieUUID, err := uuid.Parse(movieID)
	if err != nil {
		return nil, invalidField("movieId", "Must be a valid UUID")
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit()
	offset := req.Offset()

	comments, err := s.repo.Comment.FindByMovieID(ctx, movieUUID, limit, offset)
	if err != nil {
		return nil, storageError("list comments", err)
	}

	total, err := s.repo.Comment.CountByMovieID(ctx, movieUUID)
	if err != nil {
		return nil, storageError("count comments", err)
	}

	data := make([]response.CommentResponse, 0, len(comments))
	for _, comment := range comments {
		data = append(data, response.CommentToResponse(comment))
	}

	return response.NewPaginatedResponse(data, page, limit, total), nil
}
