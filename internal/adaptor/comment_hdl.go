package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"subtitle-hub/internal/dto/request"
	"subtitle-hub/internal/usecase"
	"subtitle-hub/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxBodyBytes comfortably fits a 2000 character comment plus the other fields
const maxBodyBytes = 16 << 10

type CommentHandler struct {
	challenges usecase.ChallengeService
	comments   usecase.CommentService
	log        *zap.Logger
}

func NewCommentHandler(challenges usecase.ChallengeService, comments usecase.CommentService, log *zap.Logger) *CommentHandler {
	return &CommentHandler{
		challenges: challenges,
		comments:   comments,
		log:        log.With(zap.String("handler", "comment")),
	}
}

// RequestOTP handles POST /api/comments/request-otp
func (h *CommentHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req request.RequestOTPRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	if err := h.challenges.RequestChallenge(r.Context(), &req); err != nil {
		h.handleServiceError(w, err, "request OTP")
		return
	}

	utils.ResponseSuccess(w, "OTP sent, check your email", nil)
}

// VerifyOTP handles POST /api/comments/verify-otp
func (h *CommentHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req request.VerifyOTPRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	posted, err := h.comments.VerifyAndPost(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "verify OTP")
		return
	}

	utils.ResponseCreated(w, posted)
}

// DeleteComment handles DELETE /api/comments/{id}
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	var req request.DeleteCommentRequest

	// An empty body still reaches the service so a missing token reads as a field error
	if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeDecodeError(w, err)
		return
	}

	if commentID := chi.URLParam(r, "id"); commentID != "" {
		req.CommentID = commentID
	}

	if err := h.comments.DeleteComment(r.Context(), &req); err != nil {
		h.handleServiceError(w, err, "delete comment")
		return
	}

	utils.ResponseSuccess(w, "Comment deleted", nil)
}

// GetMovieComments handles GET /api/movies/{id}/comments
func (h *CommentHandler) GetMovieComments(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "id")
	if movieID == "" {
		utils.ResponseBadRequest(w, "Movie ID is required", nil)
		return
	}

	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), request.DefaultPerPage),
	}

	page, err := h.comments.GetMovieComments(r.Context(), movieID, req)
	if err != nil {
		h.handleServiceError(w, err, "get movie comments")
		return
	}

	utils.ResponseJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"data":       page.Data,
		"pagination": page.Pagination,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		utils.ResponseError(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
		return
	}
	utils.ResponseBadRequest(w, "Invalid request body", nil)
}

// handleServiceError maps service errors to status codes. Causes wrapped in
// ErrStorage are logged but never written to the client.
func (h *CommentHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	var validationErr *usecase.ValidationError
	var rateErr *usecase.RateLimitError

	switch {
	case errors.As(err, &validationErr):
		utils.ResponseBadRequest(w, "Validation failed", validationErr.Fields)

	case errors.As(err, &rateErr):
		utils.ResponseTooManyRequests(w, rateErr.Error(), rateErr.RetryAfter)

	case errors.Is(err, usecase.ErrTooManyAttempts):
		utils.ResponseTooManyRequests(w, err.Error(), 0)

	case errors.Is(err, usecase.ErrChallengeNotFound),
		errors.Is(err, usecase.ErrChallengeExpired),
		errors.Is(err, usecase.ErrChallengeAlreadyUsed),
		errors.Is(err, usecase.ErrOTPMismatch):
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrForbidden):
		utils.ResponseForbidden(w, err.Error())

	case errors.Is(err, usecase.ErrNotFound):
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrStorage):
		h.log.Error(operation+" failed - storage",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Storage failure, please try again later")

	default:
		h.log.Error(operation+" failed - internal error",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
