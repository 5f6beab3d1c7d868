package notifier

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogSender delivers comment OTPs to the application log. It stands in for an
// email provider during development; with devLog off the code is withheld and
// only the issuance is recorded.
type LogSender struct {
	log    *zap.Logger
	devLog bool
}

func NewLogSender(log *zap.Logger, devLog bool) *LogSender {
	return &LogSender{
		log:    log.With(zap.String("notifier", "log")),
		devLog: devLog,
	}
}

func (s *LogSender) SendOTP(ctx context.Context, email string, movieID uuid.UUID, code string, expiresAt time.Time) error {
	if !s.devLog {
		s.log.Info("Comment OTP issued",
			zap.String("movie_id", movieID.String()),
			zap.Time("expires_at", expiresAt),
		)
		return nil
	}

	s.log.Info("[DEV OTP] comment verification code",
		zap.String("email", email),
		zap.String("movie_id", movieID.String()),
		zap.String("otp_code", code),
		zap.Time("expires_at", expiresAt),
	)
	return nil
}
