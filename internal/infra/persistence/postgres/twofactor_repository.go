package postgres

import (
	"context"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// twoFactorRepository implements the repository.TwoFactorRepository interface.
type twoFactorRepository struct {
	db *gorm.DB
}

// NewTwoFactorRepository is the constructor for twoFactorRepository.
func NewTwoFactorRepository(db *gorm.DB) repository.TwoFactorRepository {
	return &twoFactorRepository{
		db: db,
	}
}

// Upsert creates or replaces the user's two-factor record.
// Re-running enrollment replaces a previous unverified attempt wholesale,
// including its backup codes.
func (repo *twoFactorRepository) Upsert(ctx context.Context, record *entity.TwoFactor) error {
	if err := repo.db.WithContext(ctx).
		Where("user_id = ?", record.UserID).
		Delete(&model.TwoFactorModel{}).Error; err != nil {
		return errors.Wrap(err, "failed to clear previous two-factor record")
	}

	recordM := fromTwoFactorDomain(record)

	if err := repo.db.WithContext(ctx).Create(recordM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrUserNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create two-factor record")
	}

	record.ID = recordM.ID
	record.CreatedAt = recordM.CreatedAt
	record.UpdatedAt = recordM.UpdatedAt

	return nil
}

// FindByUser retrieves the user's two-factor record with its backup codes.
func (repo *twoFactorRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*entity.TwoFactor, error) {
	var recordM model.TwoFactorModel

	if err := repo.db.WithContext(ctx).
		Preload("BackupCodes").
		Where("user_id = ?", userID).
		First(&recordM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrTwoFactorNotFound
		}

		return nil, errors.Wrap(err, "failed to find two-factor record")
	}

	return toTwoFactorDomain(&recordM), nil
}

// MarkVerified flips the record to verified.
func (repo *twoFactorRepository) MarkVerified(ctx context.Context, userID uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Model(&model.TwoFactorModel{}).
		Where("user_id = ?", userID).
		Update("verified", true)

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to mark two-factor verified")
	}

	if result.RowsAffected == 0 {
		return repository.ErrTwoFactorNotFound
	}

	return nil
}

// ConsumeBackupCode marks a single backup code as used. The used = false
// predicate makes consumption atomic: two concurrent attempts on the same
// code can only flip one row.
func (repo *twoFactorRepository) ConsumeBackupCode(ctx context.Context, userID uuid.UUID, codeHash string) error {
	result := repo.db.WithContext(ctx).
		Model(&model.BackupCodeModel{}).
		Where("code_hash = ? AND used = ? AND two_factor_id = (?)",
			codeHash, false,
			repo.db.Model(&model.TwoFactorModel{}).Select("id").Where("user_id = ?", userID)).
		Update("used", true)

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to consume backup code")
	}

	if result.RowsAffected == 0 {
		return repository.ErrTwoFactorNotFound
	}

	return nil
}

// DeleteByUser removes the user's two-factor record entirely.
func (repo *twoFactorRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.TwoFactorModel{})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete two-factor record")
	}

	if result.RowsAffected == 0 {
		return repository.ErrTwoFactorNotFound
	}

	return nil
}

// --- Mapper Functions ---

// toTwoFactorDomain converts a GORM TwoFactorModel to a domain entity.
func toTwoFactorDomain(data *model.TwoFactorModel) *entity.TwoFactor {
	if data == nil {
		return nil
	}

	codes := make([]entity.BackupCode, 0, len(data.BackupCodes))
	for _, codeM := range data.BackupCodes {
		codes = append(codes, entity.BackupCode{
			CodeHash: codeM.CodeHash,
			Used:     codeM.Used,
		})
	}

	return &entity.TwoFactor{
		ID:          data.ID,
		UserID:      data.UserID,
		Secret:      data.Secret,
		BackupCodes: codes,
		Verified:    data.Verified,
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
	}
}

// fromTwoFactorDomain converts a domain entity to a GORM TwoFactorModel.
func fromTwoFactorDomain(data *entity.TwoFactor) *model.TwoFactorModel {
	if data == nil {
		return nil
	}

	codes := make([]model.BackupCodeModel, 0, len(data.BackupCodes))
	for _, code := range data.BackupCodes {
		codes = append(codes, model.BackupCodeModel{
			CodeHash: code.CodeHash,
			Used:     code.Used,
		})
	}

	return &model.TwoFactorModel{
		ID:          data.ID,
		UserID:      data.UserID,
		Secret:      data.Secret,
		Verified:    data.Verified,
		BackupCodes: codes,
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
	}
}
