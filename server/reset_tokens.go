package server

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-property-auth/internal/errors"
)

type resetEntry struct {
	email     string
	expiresAt time.Time
}

// ResetTokens holds outstanding password reset tokens. Only a hash of each token is kept.
type ResetTokens struct {
	entries map[string]resetEntry
	expiry  time.Duration
	nowFunc func() time.Time
	mu      sync.Mutex
}

func NewResetTokens(expiry time.Duration, now func() time.Time) *ResetTokens {
	if now == nil {
		now = time.Now
	}
	return &ResetTokens{
		entries: make(map[string]resetEntry),
		expiry:  expiry,
		nowFunc: now,
	}
}

// Create returns a new single-use token for email.
func (rt *ResetTokens) Create(email string) string {
	raw := uuid.New().String()

	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.entries[hashResetToken(raw)] = resetEntry{email: email, expiresAt: rt.nowFunc().Add(rt.expiry)}
	return raw
}

// Consume returns the email for raw and invalidates it.
func (rt *ResetTokens) Consume(raw string) (string, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	key := hashResetToken(raw)
	entry, ok := rt.entries[key]
	if !ok {
		return "", autherrors.ErrInvalidResetToken
	}
	delete(rt.entries, key)
	if !rt.nowFunc().Before(entry.expiresAt) {
		return "", autherrors.ErrInvalidResetToken
	}
	return entry.email, nil
}

// Cleanup removes expired tokens.
func (rt *ResetTokens) Cleanup() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	now := rt.nowFunc()
	for key, entry := range rt.entries {
		if !now.Before(entry.expiresAt) {
			delete(rt.entries, key)
		}
	}
}

func hashResetToken(raw string) string {
	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:])
}
