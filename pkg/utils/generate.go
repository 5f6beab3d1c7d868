package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// ==================== OTP ====================

const otpSpace = 1_000_000

// GenerateOTP returns a uniformly random 6-digit code, leading zeros included.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpace))
	if err != nil {
		return "", fmt.Errorf("generate OTP: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ==================== DELETE TOKEN ====================

// DeleteTokenBytes is the entropy of a comment delete token (256 bits).
const DeleteTokenBytes = 32

// GenerateDeleteToken returns a hex-encoded random bearer secret.
func GenerateDeleteToken() (string, error) {
	b := make([]byte, DeleteTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate delete token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
