package impl

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"

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

// twoFactorService implements the TwoFactorUsecase interface.
type twoFactorService struct {
	txManager       repository.TransactionManager
	userRepo        repository.UserRepository
	credentialRepo  repository.CredentialRepository
	twoFactorRepo   repository.TwoFactorRepository
	hasher          service.PasswordHasher
	totp            service.TOTPService
	qrcodes         service.QRCodeService
	challengeTokens service.ChallengeTokenService
	issuer          *sessionIssuer
	backupCodeCount int
	logger          *slog.Logger
}

// TwoFactorServiceParams holds dependencies for twoFactorService, injected by Fx.
type TwoFactorServiceParams struct {
	fx.In

	TxManager       repository.TransactionManager
	UserRepo        repository.UserRepository
	CredentialRepo  repository.CredentialRepository
	TwoFactorRepo   repository.TwoFactorRepository
	SessionRepo     repository.SessionRepository
	Hasher          service.PasswordHasher
	TOTP            service.TOTPService
	QRCodes         service.QRCodeService
	ChallengeTokens service.ChallengeTokenService
	Store           service.SecondaryStore
	Publisher       service.EventPublisher
	Config          *config.Config
	Logger          *slog.Logger
}

// NewTwoFactorService is the constructor for twoFactorService.
func NewTwoFactorService(params TwoFactorServiceParams) usecase.TwoFactorUsecase {
	return &twoFactorService{
		txManager:       params.TxManager,
		userRepo:        params.UserRepo,
		credentialRepo:  params.CredentialRepo,
		twoFactorRepo:   params.TwoFactorRepo,
		hasher:          params.Hasher,
		totp:            params.TOTP,
		qrcodes:         params.QRCodes,
		challengeTokens: params.ChallengeTokens,
		issuer: &sessionIssuer{
			sessionRepo: params.SessionRepo,
			store:       params.Store,
			publisher:   params.Publisher,
			expiresIn:   params.Config.Session.ExpiresIn,
			cacheTTL:    params.Config.Session.CacheTTL,
			logger:      params.Logger,
		},
		backupCodeCount: params.Config.Auth.BackupCodeCount,
		logger:          params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *twoFactorService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Enable starts TOTP enrollment after re-verifying the password. The secret
// and backup codes stay pending until one correct code confirms them.
func (srv *twoFactorService) Enable(ctx context.Context, userID uuid.UUID, password string) (*usecase.EnableTwoFactorOutput, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user")
	}

	if user.TwoFactorEnabled {
		return nil, domainerrors.ErrConflict.WrapMessage("two-factor already enabled")
	}

	if err := srv.verifyPassword(ctx, userID, password); err != nil {
		return nil, err
	}

	secret, uri, err := srv.totp.GenerateSecret(user.Email)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate totp secret")
	}

	plainCodes, hashedCodes, err := newBackupCodes(srv.backupCodeCount)
	if err != nil {
		return nil, err
	}

	record := &entity.TwoFactor{
		UserID:      userID,
		Secret:      secret,
		BackupCodes: hashedCodes,
	}
	if err := srv.twoFactorRepo.Upsert(ctx, record); err != nil {
		return nil, errors.Wrap(err, "failed to store pending enrollment")
	}

	png, err := srv.qrcodes.GenerateTOTPEnrollmentQR(uri)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render enrollment qr code")
	}

	srv.log(ctx).Info("Two-factor enrollment started", slog.Any("userID", userID))

	return &usecase.EnableTwoFactorOutput{
		Secret:      secret,
		URI:         uri,
		QRCode:      png,
		BackupCodes: plainCodes,
	}, nil
}

// ConfirmEnrollment verifies a code against the pending secret and commits
// the enrollment. The record and the user flag flip in one transaction.
func (srv *twoFactorService) ConfirmEnrollment(ctx context.Context, userID uuid.UUID, code string) error {
	return srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		record, err := repoFactory.TwoFactorRepo().FindByUser(ctx, userID)
		if errors.Is(err, repository.ErrTwoFactorNotFound) {
			return domainerrors.ErrTwoFactorNotEnabled
		}
		if err != nil {
			return errors.Wrap(err, "failed to find pending enrollment")
		}

		if record.Verified {
			return nil
		}

		if !srv.totp.Validate(code, record.Secret) {
			return domainerrors.ErrInvalidTotpCode
		}

		if err := repoFactory.TwoFactorRepo().MarkVerified(ctx, userID); err != nil {
			return errors.Wrap(err, "failed to mark enrollment verified")
		}

		userRepo := repoFactory.UserRepo()
		user, err := userRepo.FindByID(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to find user")
		}

		user.TwoFactorEnabled = true

		return userRepo.Update(ctx, user)
	})
}

// Disable removes two-factor after re-verifying the password.
func (srv *twoFactorService) Disable(ctx context.Context, userID uuid.UUID, password string) error {
	if err := srv.verifyPassword(ctx, userID, password); err != nil {
		return err
	}

	return srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()
		user, err := userRepo.FindByID(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to find user")
		}

		if !user.TwoFactorEnabled {
			return domainerrors.ErrTwoFactorNotEnabled
		}

		if err := repoFactory.TwoFactorRepo().DeleteByUser(ctx, userID); err != nil {
			return errors.Wrap(err, "failed to delete two-factor record")
		}

		user.TwoFactorEnabled = false

		return userRepo.Update(ctx, user)
	})
}

// VerifyTotp completes a pending sign-in with a TOTP code.
func (srv *twoFactorService) VerifyTotp(ctx context.Context, challengeToken, code string, meta usecase.SessionMeta) (*usecase.AuthOutput, error) {
	userID, err := srv.challengeTokens.Verify(challengeToken, service.ChallengeTwoFactor)
	if err != nil {
		return nil, domainerrors.ErrInvalidToken.WrapMessage("challenge token rejected")
	}

	record, err := srv.twoFactorRepo.FindByUser(ctx, userID)
	if errors.Is(err, repository.ErrTwoFactorNotFound) {
		return nil, domainerrors.ErrTwoFactorNotEnabled
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find two-factor record")
	}

	if !record.Verified {
		return nil, domainerrors.ErrTwoFactorNotEnabled
	}

	if !srv.totp.Validate(code, record.Secret) {
		srv.log(ctx).Warn("Two-factor code rejected", slog.Any("userID", userID))

		return nil, domainerrors.ErrInvalidTotpCode
	}

	return srv.issueAfterSecondFactor(ctx, userID, meta)
}

// VerifyBackupCode completes a pending sign-in with a single-use backup code.
func (srv *twoFactorService) VerifyBackupCode(ctx context.Context, challengeToken, code string, meta usecase.SessionMeta) (*usecase.AuthOutput, error) {
	userID, err := srv.challengeTokens.Verify(challengeToken, service.ChallengeTwoFactor)
	if err != nil {
		return nil, domainerrors.ErrInvalidToken.WrapMessage("challenge token rejected")
	}

	if err := srv.twoFactorRepo.ConsumeBackupCode(ctx, userID, hashToken(code)); err != nil {
		if errors.Is(err, repository.ErrTwoFactorNotFound) {
			srv.log(ctx).Warn("Backup code rejected", slog.Any("userID", userID))

			return nil, domainerrors.ErrBackupCodeInvalid
		}

		return nil, errors.Wrap(err, "failed to consume backup code")
	}

	return srv.issueAfterSecondFactor(ctx, userID, meta)
}

func (srv *twoFactorService) issueAfterSecondFactor(ctx context.Context, userID uuid.UUID, meta usecase.SessionMeta) (*usecase.AuthOutput, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user")
	}

	return srv.issuer.Issue(ctx, user, meta, issueOptions{})
}

// verifyPassword re-checks the account password for sensitive operations.
func (srv *twoFactorService) verifyPassword(ctx context.Context, userID uuid.UUID, password string) error {
	credential, err := srv.credentialRepo.FindPasswordByUser(ctx, userID)
	if errors.Is(err, repository.ErrCredentialNotFound) {
		return domainerrors.ErrNoPasswordCredential
	}
	if err != nil {
		return errors.Wrap(err, "failed to find password credential")
	}

	if !srv.hasher.Check(password, credential.PasswordHash) {
		return domainerrors.ErrWrongPassword
	}

	return nil
}

// newBackupCodes generates the plaintext codes and their storage hashes.
// Codes look like "1a2b3-c4d5e" and are shown to the user exactly once.
func newBackupCodes(count int) ([]string, []entity.BackupCode, error) {
	plain := make([]string, 0, count)
	hashed := make([]entity.BackupCode, 0, count)

	for range count {
		buf := make([]byte, 5)
		if _, err := rand.Read(buf); err != nil {
			return nil, nil, errors.Wrap(err, "failed to generate backup code")
		}

		encoded := hex.EncodeToString(buf)
		code := encoded[:5] + "-" + encoded[5:]

		plain = append(plain, code)
		hashed = append(hashed, entity.BackupCode{CodeHash: hashToken(code)})
	}

	return plain, hashed, nil
}
