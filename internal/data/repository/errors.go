package repository

import "errors"

var (
	ErrNotFound          = errors.New("record not found")
	ErrCooldownActive    = errors.New("challenge cooldown active")
	ErrChallengeConsumed = errors.New("challenge already consumed")
)
