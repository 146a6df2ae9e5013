// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"passport/internal/domain/entity"
	"passport/internal/domain/repository"
	"passport/internal/domain/service"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const opaqueTokenBytes = 32

// newOpaqueToken generates a raw opaque token and its storage hash. Used for
// session tokens and emailed verification tokens alike; only the hash ever
// reaches a datastore.
func newOpaqueToken() (raw, hash string, err error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", errors.Wrap(err, "failed to generate token")
	}

	raw = base64.RawURLEncoding.EncodeToString(buf)

	return raw, hashToken(raw), nil
}

// hashToken returns the hex-encoded SHA-256 hash of a raw token.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))

	return hex.EncodeToString(sum[:])
}

// sessionCacheKey builds the secondary-store key for the cookie cache.
func sessionCacheKey(tokenHash string) string {
	return "session:" + tokenHash
}

// cachedSession is the JSON payload held in the secondary-store cookie cache.
type cachedSession struct {
	Session *entity.Session `json:"session"`
	User    *entity.User    `json:"user"`
}

// sessionIssuer mints sessions for every flow that completes authentication:
// password sign-in, social sign-in, second-factor verification, passkey login
// and admin impersonation. Centralizing it keeps the token, cache and event
// behavior identical across flows.
type sessionIssuer struct {
	sessionRepo repository.SessionRepository
	store       service.SecondaryStore
	publisher   service.EventPublisher
	expiresIn   time.Duration
	cacheTTL    time.Duration
	logger      *slog.Logger
}

// issueOptions carries the optional impersonation tags for a new session.
type issueOptions struct {
	impersonatedBy      *uuid.UUID
	impersonatorSession *uuid.UUID
}

// Issue creates a session for the user, caches it and publishes the
// SessionCreatedEvent. The raw token appears only in the returned output.
func (iss *sessionIssuer) Issue(ctx context.Context, user *entity.User, meta usecase.SessionMeta, opts issueOptions) (*usecase.AuthOutput, error) {
	raw, hash, err := newOpaqueToken()
	if err != nil {
		return nil, err
	}

	session := &entity.Session{
		UserID:              user.ID,
		TokenHash:           hash,
		IPAddress:           meta.IPAddress,
		UserAgent:           meta.UserAgent,
		ImpersonatedBy:      opts.impersonatedBy,
		ImpersonatorSession: opts.impersonatorSession,
		ExpiresAt:           time.Now().Add(iss.expiresIn),
	}

	if err := iss.sessionRepo.Create(ctx, session); err != nil {
		return nil, errors.Wrap(err, "failed to persist session")
	}

	// Handlers run synchronously and may enrich the session (active
	// organization inference), so the cache copy is written afterwards.
	iss.publisher.Publish(ctx, service.SessionCreatedEvent{Session: session, User: user})
	iss.cacheSession(ctx, session, user)

	return &usecase.AuthOutput{
		Token:   raw,
		Session: session,
		User:    user,
	}, nil
}

// cacheSession writes the cookie-cache copy. The cache is advisory: failures
// are logged and the relational store keeps serving validations.
func (iss *sessionIssuer) cacheSession(ctx context.Context, session *entity.Session, user *entity.User) {
	payload, err := json.Marshal(cachedSession{Session: session, User: user})
	if err != nil {
		iss.logger.Warn("failed to marshal session cache payload", slog.Any("error", err))

		return
	}

	if err := iss.store.Set(ctx, sessionCacheKey(session.TokenHash), string(payload), iss.cacheTTL); err != nil {
		iss.logger.Warn("failed to cache session", slog.Any("error", err))
	}
}

// dropSessionCache removes the cookie-cache copy so a revoked session stops
// validating immediately instead of after the cache TTL.
func (iss *sessionIssuer) dropSessionCache(ctx context.Context, tokenHash string) {
	if err := iss.store.Delete(ctx, sessionCacheKey(tokenHash)); err != nil {
		iss.logger.Warn("failed to drop session cache", slog.Any("error", err))
	}
}
