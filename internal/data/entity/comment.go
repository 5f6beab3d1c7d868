package entity

import (
	"github.com/google/uuid"
)

type Comment struct {
	BaseSimple
	MovieID uuid.UUID `db:"movie_id"`
	Email   string    `db:"email"`
	Body    string    `db:"body"`
	// nil for rows inserted outside the OTP flow; such comments cannot be
	// deleted with a token
	DeleteTokenHash *string `db:"delete_token_hash"`
}

// Deletable reports whether a delete capability is attached.
func (c *Comment) Deletable() bool {
	return c.DeleteTokenHash != nil && *c.DeleteTokenHash != ""
}
