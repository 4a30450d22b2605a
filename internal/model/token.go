package model

import (
	"crypto/rand"
	"io"
	"time"
)

// Kind distinguishes the two token-backed workflows. Both share the same
// table and lifecycle; only the state change performed on consumption
// differs.
type Kind string

const (
	KindEmailVerification Kind = "email_verification"
	KindPasswordRecovery  Kind = "password_recovery"
)

const (
	// TokenLength is the number of characters in a token value. Values of
	// this length are embedded directly in confirmation/recovery links.
	TokenLength = 140

	// TokenTTL is the validity window. expires_at is always created_at
	// plus exactly this duration.
	TokenTTL = time.Hour
)

// Token is an opaque single-use credential bound to a profile. The
// existence of a row is itself state: an email_verification row means the
// profile is unconfirmed, a password_recovery row means a recovery is in
// progress. Rows are deleted when consumed.
type Token struct {
	ID        int64     `json:"id"`
	ProfileID int64     `json:"profileId"`
	Kind      Kind      `json:"kind"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the token's validity window has passed.
func (t *Token) Expired() bool {
	return time.Now().After(t.ExpiresAt)
}

const tokenAlphabet = "1234567890qwertyuiopasdfghjklzxcvbnm"

// tokenByteLimit is the largest multiple of len(tokenAlphabet) that fits
// in a byte. Random bytes at or above it are redrawn instead of reduced
// modulo the alphabet size, so every character is equally likely.
const tokenByteLimit = 256 - 256%len(tokenAlphabet)

// NewTokenValue generates a random TokenLength-character value. Each
// character is drawn from digits and lowercase letters, then letters are
// independently uppercased on a coin flip, so values match [0-9a-zA-Z]+.
// Collisions across issued tokens are treated as astronomically unlikely
// and are not guarded against.
func NewTokenValue() string {
	return newTokenValue(rand.Reader)
}

func newTokenValue(random io.Reader) string {
	flips := make([]byte, TokenLength)
	if _, err := io.ReadFull(random, flips); err != nil {
		panic(err)
	}

	out := make([]byte, 0, TokenLength)
	buf := make([]byte, TokenLength)
	for len(out) < TokenLength {
		if _, err := io.ReadFull(random, buf); err != nil {
			panic(err)
		}
		for _, b := range buf {
			if int(b) >= tokenByteLimit {
				continue
			}
			c := tokenAlphabet[int(b)%len(tokenAlphabet)]
			if flips[len(out)]%2 == 1 && c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			out = append(out, c)
			if len(out) == TokenLength {
				break
			}
		}
	}
	return string(out)
}
