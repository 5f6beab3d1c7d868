package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// OTPHashCost is the bcrypt cost used for challenge codes.
var OTPHashCost = bcrypt.DefaultCost

// HashOTP hashes a one-time code with bcrypt.
func HashOTP(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), OTPHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckOTP compares a submitted code with a stored hash.
func CheckOTP(code, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}

// HashToken returns the hex SHA-256 digest stored for a delete token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CheckTokenHash hashes token and compares it to storedHash in constant time.
func CheckTokenHash(token, storedHash string) bool {
	computed := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
