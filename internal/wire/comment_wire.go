package wire

import (
	"subtitle-hub/internal/adaptor"
	"subtitle-hub/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireComment(
	r chi.Router,
	commentHandler *adaptor.CommentHandler,
	limiter middleware.Limiter,
	log *zap.Logger,
) {
	// ==================== PUBLIC READ ====================
	// GET /api/movies/{id}/comments - Newest comments first
	r.Get("/api/movies/{id}/comments", commentHandler.GetMovieComments)

	// ==================== OTP-GATED WRITES (throttled per client) ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(limiter, log))

		// POST /api/comments/request-otp - Issue a one-time code for (email, movie)
		r.Post("/api/comments/request-otp", commentHandler.RequestOTP)

		// POST /api/comments/verify-otp - Redeem the code and publish the comment
		r.Post("/api/comments/verify-otp", commentHandler.VerifyOTP)

		// DELETE /api/comments/{id} - Delete with the capability token from verify-otp
		r.Delete("/api/comments/{id}", commentHandler.DeleteComment)
	})
}
