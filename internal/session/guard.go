/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"upi-pay-simulator-go/internal/clock"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrExpired         = errors.New("session expired")
)

type contextKey string

const accountIdContextKey contextKey = "accountId"

// Claims carried by every bearer token. The session id ties the token to a
// revocable server-side session.
type Claims struct {
	SessionId string `json:"sid"`
	jwt.RegisteredClaims
}

// Guard issues and verifies bearer tokens for logged-in accounts.
type Guard struct {
	secret []byte
	ttl    time.Duration
	store  Store
	clock  clock.Clock
}

func NewGuard(secret string, ttl time.Duration, store Store, c clock.Clock) *Guard {
	if c == nil {
		c = clock.RealClock{}
	}
	return &Guard{
		secret: []byte(secret),
		ttl:    ttl,
		store:  store,
		clock:  c,
	}
}

// Issue opens a session for accountId and returns its signed token.
func (g *Guard) Issue(ctx context.Context, accountId string) (string, time.Time, error) {
	now := g.clock.Now()
	sessionId, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate session id: %w", err)
	}

	expiresAt := now.Add(g.ttl)
	s := Session{
		Id:        sessionId.String(),
		AccountId: accountId,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := g.store.Create(ctx, s, g.ttl); err != nil {
		return "", time.Time{}, err
	}

	claims := Claims{
		SessionId: s.Id,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountId,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	zap.L().Debug("Session issued", zap.String("account_id", accountId), zap.String("session_id", s.Id))
	return token, expiresAt, nil
}

// Authenticate verifies the token and its session and yields the caller's account id.
func (g *Guard) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := g.parse(token)
	if err != nil {
		return "", err
	}

	s, err := g.store.Lookup(ctx, claims.SessionId)
	if errors.Is(err, ErrSessionNotFound) {
		return "", fmt.Errorf("%w: session revoked", ErrUnauthenticated)
	}
	if err != nil {
		return "", err
	}
	if s.AccountId != claims.Subject {
		return "", fmt.Errorf("%w: session does not match token", ErrUnauthenticated)
	}
	return s.AccountId, nil
}

// Revoke ends the session named by token. Revoking an already-ended session is not an error.
func (g *Guard) Revoke(ctx context.Context, token string) error {
	claims, err := g.parse(token)
	if err != nil {
		return err
	}
	return g.store.Revoke(ctx, claims.SessionId)
}

func (g *Guard) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(g.clock.Now))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.Subject == "" || claims.SessionId == "" {
		return nil, fmt.Errorf("%w: missing claims", ErrUnauthenticated)
	}
	return claims, nil
}

// Middleware authenticates the bearer token and stores the account id on the
// request context. Rejections are written by onError.
func (g *Guard) Middleware(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountId, err := g.Authenticate(r.Context(), BearerToken(r))
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccountId(r.Context(), accountId)))
		})
	}
}

func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func WithAccountId(ctx context.Context, accountId string) context.Context {
	return context.WithValue(ctx, accountIdContextKey, accountId)
}

func AccountIdFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(accountIdContextKey).(string)
	return v, ok && v != ""
}
