package mfa

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"
)

const (
	codeMin   = 100000
	codeRange = 900000

	// DefaultTTL is how long an issued code stays valid.
	DefaultTTL = 72 * time.Hour
)

var (
	// ErrNotFound is returned when the user has no stored code.
	ErrNotFound = errors.New("no code issued")
	// ErrUnknownUser is returned when issuing for a user the store does not know.
	ErrUnknownUser = errors.New("unknown user")
	// ErrDispatch wraps failures to deliver a code. The code stays persisted.
	ErrDispatch = errors.New("code dispatch failed")
)

// Verdict is the outcome of validating a submitted code.
type Verdict string

const (
	Accepted Verdict = "accepted"
	Rejected Verdict = "rejected"
	Expired  Verdict = "expired"
)

// Code is the stored form of a one-time code. Only the hash is kept.
type Code struct {
	UserID   string
	CodeHash string
	IssuedAt time.Time
}

// Live reports whether the code is still usable at now.
func (c Code) Live(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.IssuedAt) < ttl
}

// Generator produces a fresh plaintext code.
type Generator func() (string, error)

// GenerateCode returns a 6-digit code drawn uniformly from 100000-999999.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+codeMin), nil
}

// HashCode returns the hex-encoded SHA-256 of the code.
func HashCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

func matches(submitted, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashCode(submitted)), []byte(storedHash)) == 1
}
