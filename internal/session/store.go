package session

import (
	"context"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is the server-side half of a login; the bearer token only names it.
type Session struct {
	Id        string    `json:"id"`
	AccountId string    `json:"accountId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store keeps sessions until they expire or are revoked.
type Store interface {
	Create(ctx context.Context, s Session, ttl time.Duration) error
	Lookup(ctx context.Context, sessionId string) (*Session, error)
	Revoke(ctx context.Context, sessionId string) error
}
