package postgres

import (
	"context"
	"strings"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// passkeyRepository implements the repository.PasskeyRepository interface.
type passkeyRepository struct {
	db *gorm.DB
}

// NewPasskeyRepository is the constructor for passkeyRepository.
func NewPasskeyRepository(db *gorm.DB) repository.PasskeyRepository {
	return &passkeyRepository{
		db: db,
	}
}

// Create persists a new passkey credential.
func (repo *passkeyRepository) Create(ctx context.Context, passkey *entity.Passkey) error {
	passkeyM := fromPasskeyDomain(passkey)

	if err := repo.db.WithContext(ctx).Create(passkeyM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrConflict.WrapMessage("passkey already registered")
		}
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrUserNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create passkey")
	}

	passkey.ID = passkeyM.ID
	passkey.CreatedAt = passkeyM.CreatedAt

	return nil
}

// FindByUser retrieves all passkeys registered by a user.
func (repo *passkeyRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Passkey, error) {
	var passkeyModels []*model.PasskeyModel

	if err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&passkeyModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find passkeys by user")
	}

	passkeys := make([]*entity.Passkey, 0, len(passkeyModels))
	for _, passkeyM := range passkeyModels {
		passkeys = append(passkeys, toPasskeyDomain(passkeyM))
	}

	return passkeys, nil
}

// FindByCredentialID retrieves a passkey by its raw WebAuthn credential ID.
func (repo *passkeyRepository) FindByCredentialID(ctx context.Context, credentialID []byte) (*entity.Passkey, error) {
	var passkeyM model.PasskeyModel

	if err := repo.db.WithContext(ctx).
		Where("credential_id = ?", credentialID).
		First(&passkeyM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrPasskeyNotFound
		}

		return nil, errors.Wrap(err, "failed to find passkey by credential ID")
	}

	return toPasskeyDomain(&passkeyM), nil
}

// UpdateSignCount persists the authenticator counter after an assertion.
func (repo *passkeyRepository) UpdateSignCount(ctx context.Context, id uuid.UUID, signCount uint32) error {
	result := repo.db.WithContext(ctx).
		Model(&model.PasskeyModel{}).
		Where("id = ?", id).
		Update("sign_count", signCount)

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update passkey sign count")
	}

	if result.RowsAffected == 0 {
		return repository.ErrPasskeyNotFound
	}

	return nil
}

// Delete removes a passkey by ID.
func (repo *passkeyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.PasskeyModel{})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete passkey")
	}

	if result.RowsAffected == 0 {
		return repository.ErrPasskeyNotFound
	}

	return nil
}

// --- Mapper Functions ---

// toPasskeyDomain converts a GORM PasskeyModel to a domain Passkey entity.
func toPasskeyDomain(data *model.PasskeyModel) *entity.Passkey {
	if data == nil {
		return nil
	}

	var transports []string
	if data.Transports != "" {
		transports = strings.Split(data.Transports, ",")
	}

	return &entity.Passkey{
		ID:           data.ID,
		UserID:       data.UserID,
		Name:         data.Name,
		CredentialID: data.CredentialID,
		PublicKey:    data.PublicKey,
		AAGUID:       data.AAGUID,
		SignCount:    data.SignCount,
		Transports:   transports,
		BackedUp:     data.BackedUp,
		CreatedAt:    data.CreatedAt,
	}
}

// fromPasskeyDomain converts a domain Passkey entity to a GORM PasskeyModel.
func fromPasskeyDomain(data *entity.Passkey) *model.PasskeyModel {
	if data == nil {
		return nil
	}

	return &model.PasskeyModel{
		ID:           data.ID,
		UserID:       data.UserID,
		Name:         data.Name,
		CredentialID: data.CredentialID,
		PublicKey:    data.PublicKey,
		AAGUID:       data.AAGUID,
		SignCount:    data.SignCount,
		Transports:   strings.Join(data.Transports, ","),
		BackedUp:     data.BackedUp,
		CreatedAt:    data.CreatedAt,
	}
}
