package postgres

import (
	"context"
	"time"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// verificationRepository implements the repository.VerificationRepository interface.
type verificationRepository struct {
	db *gorm.DB
}

// NewVerificationRepository is the constructor for verificationRepository.
func NewVerificationRepository(db *gorm.DB) repository.VerificationRepository {
	return &verificationRepository{
		db: db,
	}
}

// Create persists a new verification token.
func (repo *verificationRepository) Create(ctx context.Context, token *entity.VerificationToken) error {
	tokenM := fromVerificationDomain(token)

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrUserNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create verification token")
	}

	token.ID = tokenM.ID
	token.CreatedAt = tokenM.CreatedAt

	return nil
}

// Consume atomically retrieves and deletes a token by hash and purpose.
// The DELETE ... RETURNING form guarantees only one caller can ever win,
// which is what makes the token single-use under concurrency.
func (repo *verificationRepository) Consume(ctx context.Context, tokenHash string, purpose entity.VerificationPurpose) (*entity.VerificationToken, error) {
	var tokenM model.VerificationTokenModel

	result := repo.db.WithContext(ctx).
		Raw(`DELETE FROM verification_tokens
			 WHERE token_hash = ? AND purpose = ? AND expires_at > ?
			 RETURNING *`,
			tokenHash, string(purpose), time.Now()).
		Scan(&tokenM)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to consume verification token")
	}

	if result.RowsAffected == 0 || tokenM.ID == uuid.Nil {
		return nil, repository.ErrVerificationNotFound
	}

	return toVerificationDomain(&tokenM), nil
}

// DeleteByUser removes all outstanding tokens of a purpose for a user.
func (repo *verificationRepository) DeleteByUser(ctx context.Context, userID uuid.UUID, purpose entity.VerificationPurpose) error {
	if err := repo.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ?", userID, string(purpose)).
		Delete(&model.VerificationTokenModel{}).Error; err != nil {
		return errors.Wrap(err, "failed to delete verification tokens by user")
	}

	return nil
}

// DeleteExpired removes all expired tokens.
func (repo *verificationRepository) DeleteExpired(ctx context.Context) error {
	if err := repo.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now()).
		Delete(&model.VerificationTokenModel{}).Error; err != nil {
		return errors.Wrap(err, "failed to delete expired verification tokens")
	}

	return nil
}

// --- Mapper Functions ---

// toVerificationDomain converts a GORM VerificationTokenModel to a domain entity.
func toVerificationDomain(data *model.VerificationTokenModel) *entity.VerificationToken {
	if data == nil {
		return nil
	}

	return &entity.VerificationToken{
		ID:        data.ID,
		UserID:    data.UserID,
		Email:     data.Email,
		Purpose:   entity.VerificationPurpose(data.Purpose),
		TokenHash: data.TokenHash,
		ExpiresAt: data.ExpiresAt,
		CreatedAt: data.CreatedAt,
	}
}

// fromVerificationDomain converts a domain entity to a GORM VerificationTokenModel.
func fromVerificationDomain(data *entity.VerificationToken) *model.VerificationTokenModel {
	if data == nil {
		return nil
	}

	return &model.VerificationTokenModel{
		ID:        data.ID,
		UserID:    data.UserID,
		Email:     data.Email,
		Purpose:   string(data.Purpose),
		TokenHash: data.TokenHash,
		ExpiresAt: data.ExpiresAt,
		CreatedAt: data.CreatedAt,
	}
}
