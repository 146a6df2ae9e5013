package impl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
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

// accountService implements the AccountUsecase interface.
type accountService struct {
	txManager       repository.TransactionManager
	userRepo        repository.UserRepository
	credentialRepo  repository.CredentialRepository
	hasher          service.PasswordHasher
	challengeTokens service.ChallengeTokenService
	oauthService    service.OAuthIdentityService
	mailer          service.Mailer
	store           service.SecondaryStore
	publisher       service.EventPublisher
	issuer          *sessionIssuer
	baseURL         string
	verificationTTL time.Duration
	sendGap         time.Duration
	logger          *slog.Logger
}

// AccountServiceParams holds dependencies for accountService, injected by Fx.
type AccountServiceParams struct {
	fx.In

	TxManager       repository.TransactionManager
	UserRepo        repository.UserRepository
	CredentialRepo  repository.CredentialRepository
	SessionRepo     repository.SessionRepository
	Hasher          service.PasswordHasher
	ChallengeTokens service.ChallengeTokenService
	OAuthService    service.OAuthIdentityService
	Mailer          service.Mailer
	Store           service.SecondaryStore
	Publisher       service.EventPublisher
	Config          *config.Config
	Logger          *slog.Logger
}

// NewAccountService is the constructor for accountService.
func NewAccountService(params AccountServiceParams) usecase.AccountUsecase {
	return &accountService{
		txManager:       params.TxManager,
		userRepo:        params.UserRepo,
		credentialRepo:  params.CredentialRepo,
		hasher:          params.Hasher,
		challengeTokens: params.ChallengeTokens,
		oauthService:    params.OAuthService,
		mailer:          params.Mailer,
		store:           params.Store,
		publisher:       params.Publisher,
		issuer: &sessionIssuer{
			sessionRepo: params.SessionRepo,
			store:       params.Store,
			publisher:   params.Publisher,
			expiresIn:   params.Config.Session.ExpiresIn,
			cacheTTL:    params.Config.Session.CacheTTL,
			logger:      params.Logger,
		},
		baseURL:         strings.TrimRight(params.Config.App.BaseURL, "/"),
		verificationTTL: params.Config.Auth.VerificationTTL,
		sendGap:         params.Config.Auth.VerificationSendGap,
		logger:          params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *accountService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// SignUp registers a new account with a password credential and signs it in.
func (srv *accountService) SignUp(ctx context.Context, input usecase.SignUpInput) (*usecase.AuthOutput, error) {
	if err := srv.hasher.ValidatePasswordStrength(input.Password); err != nil {
		return nil, err
	}

	passwordHash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return nil, domainerrors.ErrPasswordHashFailed.WrapMessage("failed to hash password during sign-up")
	}

	lang := input.Lang
	if lang == "" {
		lang = "en"
	}

	var user *entity.User
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		if _, err := userRepo.FindByEmail(ctx, input.Email); err == nil {
			return domainerrors.ErrEmailTaken
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return errors.Wrap(err, "failed to check email availability")
		}

		user = &entity.User{
			Email:          strings.ToLower(input.Email),
			Name:           input.Name,
			Role:           entity.SiteRoleUser,
			FavoriteNumber: input.FavoriteNumber,
			Lang:           lang,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			return err
		}

		credential := &entity.Credential{
			UserID:       user.ID,
			Provider:     entity.ProviderPassword,
			PasswordHash: passwordHash,
		}

		return repoFactory.CredentialRepo().Create(ctx, credential)
	})
	if err != nil {
		srv.log(ctx).Warn("Sign-up failed", slog.String("email", input.Email), slog.Any("error", err))

		return nil, err
	}

	srv.publisher.Publish(ctx, service.UserCreatedEvent{User: user})

	// Best effort: a failed verification email must not undo the sign-up.
	if err := srv.sendVerificationMail(ctx, user, user.Email, entity.PurposeEmailVerify); err != nil {
		srv.log(ctx).Warn("Failed to send verification email after sign-up", slog.Any("userID", user.ID), slog.Any("error", err))
	}

	return srv.issuer.Issue(ctx, user, input.Meta, issueOptions{})
}

// SignIn authenticates with email and password.
func (srv *accountService) SignIn(ctx context.Context, input usecase.SignInInput) (*usecase.AuthOutput, error) {
	// Unknown email and wrong password collapse into the same error so the
	// endpoint cannot be used to probe which addresses are registered.
	user, err := srv.userRepo.FindByEmail(ctx, input.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domainerrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user by email")
	}

	credential, err := srv.credentialRepo.FindPasswordByUser(ctx, user.ID)
	if errors.Is(err, repository.ErrCredentialNotFound) {
		return nil, domainerrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find password credential")
	}

	if !srv.hasher.Check(input.Password, credential.PasswordHash) {
		srv.log(ctx).Warn("Password sign-in rejected", slog.Any("userID", user.ID))

		return nil, domainerrors.ErrInvalidCredentials
	}

	if user.TwoFactorEnabled {
		challenge, err := srv.challengeTokens.Issue(user.ID, service.ChallengeTwoFactor)
		if err != nil {
			return nil, errors.Wrap(err, "failed to issue two-factor challenge")
		}

		return &usecase.AuthOutput{
			User:              user,
			TwoFactorRequired: true,
			ChallengeToken:    challenge,
		}, nil
	}

	return srv.issuer.Issue(ctx, user, input.Meta, issueOptions{})
}

// SignInWithGoogle authenticates with a Google ID token. The asserted email
// is verified by the provider, so it may link to an existing account.
func (srv *accountService) SignInWithGoogle(ctx context.Context, input usecase.GoogleSignInInput) (*usecase.AuthOutput, error) {
	oauthUser, err := srv.oauthService.VerifyIDToken(ctx, input.IDToken)
	if err != nil {
		srv.log(ctx).Warn("Google ID token rejected", slog.Any("error", err))

		return nil, err
	}

	provider := srv.oauthService.Provider()

	var (
		user      *entity.User
		isNewUser bool
	)
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()
		credentialRepo := repoFactory.CredentialRepo()

		credential, err := credentialRepo.FindByProvider(ctx, provider, oauthUser.ProviderUserID)
		if err == nil {
			user, err = userRepo.FindByID(ctx, credential.UserID)

			return err
		}
		if !errors.Is(err, repository.ErrCredentialNotFound) {
			return errors.Wrap(err, "failed to find oauth credential")
		}

		// First sign-in with this Google account: link by verified email,
		// or create a fresh account.
		user, err = userRepo.FindByEmail(ctx, oauthUser.Email)
		if errors.Is(err, repository.ErrUserNotFound) {
			isNewUser = true
			user = &entity.User{
				Email:         strings.ToLower(oauthUser.Email),
				Name:          oauthUser.Name,
				EmailVerified: true,
				Image:         oauthUser.AvatarURL,
				Role:          entity.SiteRoleUser,
				Lang:          "en",
			}
			if err := userRepo.Create(ctx, user); err != nil {
				return err
			}
		} else if err != nil {
			return errors.Wrap(err, "failed to find user by oauth email")
		}

		return credentialRepo.Create(ctx, &entity.Credential{
			UserID:         user.ID,
			Provider:       provider,
			ProviderUserID: oauthUser.ProviderUserID,
		})
	})
	if err != nil {
		return nil, err
	}

	if isNewUser {
		srv.publisher.Publish(ctx, service.UserCreatedEvent{User: user})
	}

	return srv.issuer.Issue(ctx, user, input.Meta, issueOptions{})
}

// RequestPasswordReset emails a reset link when the address is registered.
// It always reports success to the caller.
func (srv *accountService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := srv.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		srv.log(ctx).Info("Password reset requested for unknown email")

		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to find user for password reset")
	}

	return srv.sendVerificationMail(ctx, user, user.Email, entity.PurposePasswordReset)
}

// ResetPassword consumes a reset token and sets the new password. Accounts
// without a password credential (social-only) gain one here. Every session
// of the user is revoked.
func (srv *accountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := srv.hasher.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	passwordHash, err := srv.hasher.Hash(newPassword)
	if err != nil {
		return domainerrors.ErrPasswordHashFailed.WrapMessage("failed to hash password during reset")
	}

	var (
		user            *entity.User
		revokedSessions []*entity.Session
	)
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		record, err := repoFactory.VerificationRepo().Consume(ctx, hashToken(token), entity.PurposePasswordReset)
		if errors.Is(err, repository.ErrVerificationNotFound) {
			return domainerrors.ErrInvalidToken
		}
		if err != nil {
			return errors.Wrap(err, "failed to consume reset token")
		}

		user, err = repoFactory.UserRepo().FindByID(ctx, record.UserID)
		if err != nil {
			return errors.Wrap(err, "failed to find user for reset token")
		}

		credentialRepo := repoFactory.CredentialRepo()
		credential, err := credentialRepo.FindPasswordByUser(ctx, user.ID)
		switch {
		case errors.Is(err, repository.ErrCredentialNotFound):
			// "Set password" for a social-only account.
			if err := credentialRepo.Create(ctx, &entity.Credential{
				UserID:       user.ID,
				Provider:     entity.ProviderPassword,
				PasswordHash: passwordHash,
			}); err != nil {
				return err
			}
		case err != nil:
			return errors.Wrap(err, "failed to find password credential")
		default:
			if err := credentialRepo.UpdatePasswordHash(ctx, credential.ID, passwordHash); err != nil {
				return err
			}
		}

		sessionRepo := repoFactory.SessionRepo()
		revokedSessions, err = sessionRepo.FindByUser(ctx, user.ID)
		if err != nil {
			return errors.Wrap(err, "failed to list sessions for revocation")
		}

		return sessionRepo.DeleteByUser(ctx, user.ID)
	})
	if err != nil {
		return err
	}

	for _, session := range revokedSessions {
		srv.issuer.dropSessionCache(ctx, session.TokenHash)
	}

	srv.publisher.Publish(ctx, service.PasswordResetEvent{User: user})
	srv.log(ctx).Info("Password reset completed", slog.Any("userID", user.ID))

	return nil
}

// ChangePassword verifies the current password before setting the new one.
func (srv *accountService) ChangePassword(ctx context.Context, input usecase.ChangePasswordInput) error {
	if err := srv.hasher.ValidatePasswordStrength(input.NewPassword); err != nil {
		return err
	}

	passwordHash, err := srv.hasher.Hash(input.NewPassword)
	if err != nil {
		return domainerrors.ErrPasswordHashFailed.WrapMessage("failed to hash password during change")
	}

	var revokedSessions []*entity.Session
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		credentialRepo := repoFactory.CredentialRepo()

		credential, err := credentialRepo.FindPasswordByUser(ctx, input.UserID)
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return domainerrors.ErrNoPasswordCredential
		}
		if err != nil {
			return errors.Wrap(err, "failed to find password credential")
		}

		if !srv.hasher.Check(input.CurrentPassword, credential.PasswordHash) {
			return domainerrors.ErrWrongPassword
		}

		if err := credentialRepo.UpdatePasswordHash(ctx, credential.ID, passwordHash); err != nil {
			return err
		}

		if input.RevokeOthers {
			revokedSessions, err = repoFactory.SessionRepo().DeleteByUserExcept(ctx, input.UserID, input.CurrentTokenHash)
			if err != nil {
				return errors.Wrap(err, "failed to revoke other sessions")
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	for _, session := range revokedSessions {
		srv.issuer.dropSessionCache(ctx, session.TokenHash)
	}

	return nil
}

// SendVerificationEmail emails a fresh verification link, rate limited by a
// shared cooldown counter.
func (srv *accountService) SendVerificationEmail(ctx context.Context, userID uuid.UUID) error {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "failed to find user for verification email")
	}

	if user.EmailVerified {
		return nil
	}

	return srv.sendVerificationMail(ctx, user, user.Email, entity.PurposeEmailVerify)
}

// VerifyEmail consumes a verification token and marks the email verified.
func (srv *accountService) VerifyEmail(ctx context.Context, token string) error {
	return srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		record, err := repoFactory.VerificationRepo().Consume(ctx, hashToken(token), entity.PurposeEmailVerify)
		if errors.Is(err, repository.ErrVerificationNotFound) {
			return domainerrors.ErrInvalidToken
		}
		if err != nil {
			return errors.Wrap(err, "failed to consume verification token")
		}

		userRepo := repoFactory.UserRepo()
		user, err := userRepo.FindByID(ctx, record.UserID)
		if err != nil {
			return errors.Wrap(err, "failed to find user for verification token")
		}

		// A token issued for a previous address must not verify the current one.
		if !strings.EqualFold(user.Email, record.Email) {
			return domainerrors.ErrInvalidToken
		}

		user.EmailVerified = true

		return userRepo.Update(ctx, user)
	})
}

// RequestEmailChange emails a confirmation link to the new address.
func (srv *accountService) RequestEmailChange(ctx context.Context, userID uuid.UUID, newEmail string) error {
	if _, err := srv.userRepo.FindByEmail(ctx, newEmail); err == nil {
		return domainerrors.ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return errors.Wrap(err, "failed to check email availability")
	}

	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "failed to find user for email change")
	}

	return srv.sendVerificationMail(ctx, user, strings.ToLower(newEmail), entity.PurposeChangeEmail)
}

// ConfirmEmailChange consumes the token and moves the account to the new
// address. Ownership of the new address was just proven, so it is verified.
func (srv *accountService) ConfirmEmailChange(ctx context.Context, token string) error {
	return srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		record, err := repoFactory.VerificationRepo().Consume(ctx, hashToken(token), entity.PurposeChangeEmail)
		if errors.Is(err, repository.ErrVerificationNotFound) {
			return domainerrors.ErrInvalidToken
		}
		if err != nil {
			return errors.Wrap(err, "failed to consume email change token")
		}

		userRepo := repoFactory.UserRepo()

		// The address may have been registered since the link was sent.
		if _, err := userRepo.FindByEmail(ctx, record.Email); err == nil {
			return domainerrors.ErrEmailTaken
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return errors.Wrap(err, "failed to check email availability")
		}

		user, err := userRepo.FindByID(ctx, record.UserID)
		if err != nil {
			return errors.Wrap(err, "failed to find user for email change token")
		}

		user.Email = record.Email
		user.EmailVerified = true

		return userRepo.Update(ctx, user)
	})
}

// RequestAccountDeletion emails a deletion confirmation link.
func (srv *accountService) RequestAccountDeletion(ctx context.Context, userID uuid.UUID) error {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "failed to find user for account deletion")
	}

	return srv.sendVerificationMail(ctx, user, user.Email, entity.PurposeDeleteAccount)
}

// ConfirmAccountDeletion consumes the token and removes the account together
// with its credentials, sessions, passkeys and memberships.
func (srv *accountService) ConfirmAccountDeletion(ctx context.Context, token string) error {
	var revokedSessions []*entity.Session
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		record, err := repoFactory.VerificationRepo().Consume(ctx, hashToken(token), entity.PurposeDeleteAccount)
		if errors.Is(err, repository.ErrVerificationNotFound) {
			return domainerrors.ErrInvalidToken
		}
		if err != nil {
			return errors.Wrap(err, "failed to consume deletion token")
		}

		sessionRepo := repoFactory.SessionRepo()

		revokedSessions, err = sessionRepo.FindByUser(ctx, record.UserID)
		if err != nil {
			return errors.Wrap(err, "failed to list sessions before deletion")
		}

		// Sessions go explicitly rather than by relying on the store's
		// cascade, so deletion behaves the same on every backend.
		if err := sessionRepo.DeleteByUser(ctx, record.UserID); err != nil {
			return errors.Wrap(err, "failed to revoke sessions")
		}

		return repoFactory.UserRepo().Delete(ctx, record.UserID)
	})
	if err != nil {
		return err
	}

	for _, session := range revokedSessions {
		srv.issuer.dropSessionCache(ctx, session.TokenHash)
	}

	return nil
}

// UpdateProfile applies the non-nil profile fields.
func (srv *accountService) UpdateProfile(ctx context.Context, userID uuid.UUID, input usecase.UpdateProfileInput) (*entity.User, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user for profile update")
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Image != nil {
		user.Image = *input.Image
	}
	if input.FavoriteNumber != nil {
		user.FavoriteNumber = *input.FavoriteNumber
	}
	if input.Lang != nil {
		user.Lang = *input.Lang
	}

	if err := srv.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// GetAccount returns the account view with linked credentials.
func (srv *accountService) GetAccount(ctx context.Context, userID uuid.UUID) (*usecase.AccountOutput, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user")
	}

	credentials, err := srv.credentialRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list credentials")
	}

	hasPassword := false
	for _, credential := range credentials {
		if credential.Provider == entity.ProviderPassword {
			hasPassword = true

			break
		}
	}

	return &usecase.AccountOutput{
		User:        user,
		Credentials: credentials,
		HasPassword: hasPassword,
	}, nil
}

// verificationMailContent maps each token purpose to its email template.
func verificationMailContent(purpose entity.VerificationPurpose, baseURL, raw string) (subject, body, link string) {
	switch purpose {
	case entity.PurposePasswordReset:
		return "重設密碼", "請點擊以下連結重設您的密碼：", fmt.Sprintf("%s/auth/reset-password?token=%s", baseURL, raw)
	case entity.PurposeChangeEmail:
		return "確認電子郵件變更", "請點擊以下連結確認您的新電子郵件：", fmt.Sprintf("%s/auth/confirm-email-change?token=%s", baseURL, raw)
	case entity.PurposeDeleteAccount:
		return "確認刪除帳號", "請點擊以下連結確認刪除您的帳號：", fmt.Sprintf("%s/auth/confirm-deletion?token=%s", baseURL, raw)
	default:
		return "驗證您的電子郵件", "請點擊以下連結驗證您的電子郵件：", fmt.Sprintf("%s/auth/verify-email?token=%s", baseURL, raw)
	}
}

// sendVerificationMail issues a single-use token bound to the email and
// sends the corresponding link. Re-requests invalidate earlier links and are
// throttled by a shared cooldown counter in the secondary store.
func (srv *accountService) sendVerificationMail(ctx context.Context, user *entity.User, email string, purpose entity.VerificationPurpose) error {
	cooldownKey := fmt.Sprintf("verification-cooldown:%s:%s", purpose, user.ID)
	count, err := srv.store.Incr(ctx, cooldownKey, srv.sendGap)
	if err != nil {
		// The cooldown is advisory; a cache outage must not block the flow.
		srv.log(ctx).Warn("Verification cooldown check failed", slog.Any("error", err))
	} else if count > 1 {
		return domainerrors.ErrVerificationCooldown
	}

	raw, hash, err := newOpaqueToken()
	if err != nil {
		return err
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		verificationRepo := repoFactory.VerificationRepo()

		if err := verificationRepo.DeleteByUser(ctx, user.ID, purpose); err != nil {
			return errors.Wrap(err, "failed to invalidate previous tokens")
		}

		return verificationRepo.Create(ctx, &entity.VerificationToken{
			UserID:    user.ID,
			Email:     email,
			Purpose:   purpose,
			TokenHash: hash,
			ExpiresAt: time.Now().Add(srv.verificationTTL),
		})
	})
	if err != nil {
		return err
	}

	subject, body, link := verificationMailContent(purpose, srv.baseURL, raw)

	if err := srv.mailer.Send(ctx, service.Mail{
		To:      email,
		Name:    user.Name,
		Subject: subject,
		Body:    body,
		Link:    link,
	}); err != nil {
		return errors.Wrap(err, "failed to send verification email")
	}

	return nil
}
