package impl

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"passport/config"
	deliverycontext "passport/internal/delivery/context"
	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/domain/service"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// sessionService implements the SessionUsecase interface.
type sessionService struct {
	txManager   repository.TransactionManager
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	orgRepo     repository.OrganizationRepository
	store       service.SecondaryStore
	issuer      *sessionIssuer
	expiresIn   time.Duration
	updateAge   time.Duration
	logger      *slog.Logger
}

// SessionServiceParams holds dependencies for sessionService, injected by Fx.
type SessionServiceParams struct {
	fx.In

	TxManager   repository.TransactionManager
	SessionRepo repository.SessionRepository
	UserRepo    repository.UserRepository
	OrgRepo     repository.OrganizationRepository
	Store       service.SecondaryStore
	Publisher   service.EventPublisher
	Config      *config.Config
	Logger      *slog.Logger
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(params SessionServiceParams) usecase.SessionUsecase {
	return &sessionService{
		txManager:   params.TxManager,
		sessionRepo: params.SessionRepo,
		userRepo:    params.UserRepo,
		orgRepo:     params.OrgRepo,
		store:       params.Store,
		issuer: &sessionIssuer{
			sessionRepo: params.SessionRepo,
			store:       params.Store,
			publisher:   params.Publisher,
			expiresIn:   params.Config.Session.ExpiresIn,
			cacheTTL:    params.Config.Session.CacheTTL,
			logger:      params.Logger,
		},
		expiresIn: params.Config.Session.ExpiresIn,
		updateAge: params.Config.Session.UpdateAge,
		logger:    params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Validate resolves a raw token to its session and user, serving from the
// cookie cache unless fresh is requested. Sessions past the update age get
// their expiry slid forward before being returned.
func (srv *sessionService) Validate(ctx context.Context, token string, fresh bool) (*usecase.SessionInfo, error) {
	tokenHash := hashToken(token)
	now := time.Now()

	if !fresh {
		if info := srv.fromCache(ctx, tokenHash, now); info != nil {
			return info, nil
		}
	}

	session, err := srv.sessionRepo.FindByTokenHash(ctx, tokenHash)
	if errors.Is(err, repository.ErrSessionNotFound) || errors.Is(err, repository.ErrSessionExpired) {
		return nil, domainerrors.ErrSessionInvalid
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find session")
	}

	user, err := srv.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find session user")
	}

	if session.NeedsRefresh(now, srv.updateAge) {
		session.ExpiresAt = now.Add(srv.expiresIn)
		session.UpdatedAt = now
		if err := srv.sessionRepo.Update(ctx, session); err != nil {
			// A failed refresh only shortens the session's remaining life.
			srv.log(ctx).Warn("Failed to refresh session expiry", slog.Any("sessionID", session.ID), slog.Any("error", err))
		}
	}

	srv.issuer.cacheSession(ctx, session, user)

	return &usecase.SessionInfo{Session: session, User: user}, nil
}

// fromCache attempts a cookie-cache hit. Any miss, decode failure or expired
// copy falls through to the authoritative store.
func (srv *sessionService) fromCache(ctx context.Context, tokenHash string, now time.Time) *usecase.SessionInfo {
	value, err := srv.store.Get(ctx, sessionCacheKey(tokenHash))
	if err != nil {
		if !errors.Is(err, service.ErrKeyNotFound) {
			srv.log(ctx).Warn("Session cache lookup failed", slog.Any("error", err))
		}

		return nil
	}

	var cached cachedSession
	if err := json.Unmarshal([]byte(value), &cached); err != nil {
		srv.log(ctx).Warn("Corrupt session cache entry", slog.Any("error", err))

		return nil
	}

	if cached.Session == nil || cached.User == nil || cached.Session.Expired(now) {
		return nil
	}

	return &usecase.SessionInfo{Session: cached.Session, User: cached.User}
}

// List returns the user's active sessions.
func (srv *sessionService) List(ctx context.Context, userID uuid.UUID) ([]*entity.Session, error) {
	sessions, err := srv.sessionRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}

	return sessions, nil
}

// SignOut ends the session behind the raw token. Signing out an already
// ended session succeeds silently.
func (srv *sessionService) SignOut(ctx context.Context, token string) error {
	tokenHash := hashToken(token)

	if err := srv.sessionRepo.DeleteByTokenHash(ctx, tokenHash); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return errors.Wrap(err, "failed to delete session")
	}

	srv.issuer.dropSessionCache(ctx, tokenHash)

	return nil
}

// RevokeByID ends one of the caller's sessions.
func (srv *sessionService) RevokeByID(ctx context.Context, userID, sessionID uuid.UUID) error {
	session, err := srv.sessionRepo.FindByID(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return domainerrors.ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "failed to find session")
	}

	if session.UserID != userID {
		return domainerrors.ErrForbidden
	}

	if err := srv.sessionRepo.Delete(ctx, sessionID); err != nil {
		return errors.Wrap(err, "failed to delete session")
	}

	srv.issuer.dropSessionCache(ctx, session.TokenHash)

	return nil
}

// RevokeOthers ends every session of the user except the current one.
func (srv *sessionService) RevokeOthers(ctx context.Context, userID uuid.UUID, currentTokenHash string) error {
	revoked, err := srv.sessionRepo.DeleteByUserExcept(ctx, userID, currentTokenHash)
	if err != nil {
		return errors.Wrap(err, "failed to revoke other sessions")
	}

	for _, session := range revoked {
		srv.issuer.dropSessionCache(ctx, session.TokenHash)
	}

	return nil
}

// SetActiveOrganization switches the session's organization context after
// verifying membership. A nil orgID clears the selection.
func (srv *sessionService) SetActiveOrganization(ctx context.Context, sessionID, userID uuid.UUID, orgID *uuid.UUID) error {
	var tokenHash string
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		sessionRepo := repoFactory.SessionRepo()

		session, err := sessionRepo.FindByID(ctx, sessionID)
		if errors.Is(err, repository.ErrSessionNotFound) {
			return domainerrors.ErrSessionInvalid
		}
		if err != nil {
			return errors.Wrap(err, "failed to find session")
		}

		if session.UserID != userID {
			return domainerrors.ErrForbidden
		}

		if orgID != nil {
			if _, err := repoFactory.OrganizationRepo().FindMember(ctx, *orgID, userID); err != nil {
				if errors.Is(err, repository.ErrMemberNotFound) {
					return domainerrors.ErrNotMember
				}

				return errors.Wrap(err, "failed to verify membership")
			}
		}

		session.ActiveOrganizationID = orgID
		tokenHash = session.TokenHash

		return sessionRepo.Update(ctx, session)
	})
	if err != nil {
		return err
	}

	// Drop the cache copy so the next validation sees the new selection.
	srv.issuer.dropSessionCache(ctx, tokenHash)

	return nil
}
