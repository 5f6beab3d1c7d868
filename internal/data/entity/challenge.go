package entity

import (
	"time"

	"github.com/google/uuid"
)

// Challenge is an issued comment OTP. Only the hash of the code is kept.
// Used flips from false to true once and never back.
type Challenge struct {
	BaseSimple
	Email     string    `db:"email"`
	MovieID   uuid.UUID `db:"movie_id"`
	OTPHash   string    `db:"otp_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	Used      bool      `db:"used"`
	Attempts  int       `db:"attempts"`
}

// IsExpired reports whether the challenge can no longer be verified at now.
func (c *Challenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
