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

// sessionRepository implements the repository.SessionRepository interface.
// This is the authoritative session store; the secondary-store cache is
// layered on top by the session manager.
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository is the constructor for sessionRepository.
func NewSessionRepository(db *gorm.DB) repository.SessionRepository {
	return &sessionRepository{
		db: db,
	}
}

// Create persists a new session.
func (repo *sessionRepository) Create(ctx context.Context, session *entity.Session) error {
	sessionM := fromSessionDomain(session)

	if err := repo.db.WithContext(ctx).Create(sessionM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrUserNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create session")
	}

	session.ID = sessionM.ID
	session.CreatedAt = sessionM.CreatedAt
	session.UpdatedAt = sessionM.UpdatedAt

	return nil
}

// FindByTokenHash retrieves a session by its token hash.
// An expired row is reported as ErrSessionExpired so callers can distinguish
// a stale cookie from a forged one.
func (repo *sessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*entity.Session, error) {
	var sessionM model.SessionModel

	if err := repo.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&sessionM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, errors.Wrap(err, "failed to find session by token hash")
	}

	if !sessionM.ExpiresAt.After(time.Now()) {
		return nil, repository.ErrSessionExpired
	}

	return toSessionDomain(&sessionM), nil
}

// FindByID retrieves a session by its unique ID regardless of expiry.
func (repo *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	var sessionM model.SessionModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&sessionM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, errors.Wrap(err, "failed to find session by ID")
	}

	return toSessionDomain(&sessionM), nil
}

// FindByUser retrieves all non-expired sessions for a user.
func (repo *sessionRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Session, error) {
	var sessionModels []*model.SessionModel

	if err := repo.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, time.Now()).
		Order("created_at DESC").
		Find(&sessionModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find sessions by user")
	}

	sessions := make([]*entity.Session, 0, len(sessionModels))
	for _, sessionM := range sessionModels {
		sessions = append(sessions, toSessionDomain(sessionM))
	}

	return sessions, nil
}

// Update persists sliding-window refreshes and active-organization changes.
func (repo *sessionRepository) Update(ctx context.Context, session *entity.Session) error {
	result := repo.db.WithContext(ctx).
		Model(&model.SessionModel{}).
		Where("id = ?", session.ID).
		Updates(map[string]any{
			"active_organization_id": session.ActiveOrganizationID,
			"expires_at":             session.ExpiresAt,
			"updated_at":             time.Now(),
		})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update session")
	}

	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

// Delete removes a session by ID.
func (repo *sessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.SessionModel{})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete session")
	}

	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

// DeleteByTokenHash removes a session by its token hash.
func (repo *sessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	result := repo.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		Delete(&model.SessionModel{})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete session by token hash")
	}

	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

// DeleteByUser removes all sessions for a user.
func (repo *sessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.SessionModel{}).Error; err != nil {
		return errors.Wrap(err, "failed to delete sessions by user")
	}

	return nil
}

// DeleteByUserExcept removes all of a user's sessions except the one with the
// given token hash, returning the deleted rows so their cache entries can be
// purged too.
func (repo *sessionRepository) DeleteByUserExcept(ctx context.Context, userID uuid.UUID, tokenHash string) ([]*entity.Session, error) {
	var sessionModels []*model.SessionModel

	if err := repo.db.WithContext(ctx).
		Where("user_id = ? AND token_hash <> ?", userID, tokenHash).
		Find(&sessionModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find sessions to revoke")
	}

	if len(sessionModels) == 0 {
		return nil, nil
	}

	if err := repo.db.WithContext(ctx).
		Where("user_id = ? AND token_hash <> ?", userID, tokenHash).
		Delete(&model.SessionModel{}).Error; err != nil {
		return nil, errors.Wrap(err, "failed to delete sessions except current")
	}

	sessions := make([]*entity.Session, 0, len(sessionModels))
	for _, sessionM := range sessionModels {
		sessions = append(sessions, toSessionDomain(sessionM))
	}

	return sessions, nil
}

// DeleteExpired removes all expired sessions.
func (repo *sessionRepository) DeleteExpired(ctx context.Context) error {
	if err := repo.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now()).
		Delete(&model.SessionModel{}).Error; err != nil {
		return errors.Wrap(err, "failed to delete expired sessions")
	}

	return nil
}

// --- Mapper Functions ---

// toSessionDomain converts a GORM SessionModel to a domain Session entity.
func toSessionDomain(data *model.SessionModel) *entity.Session {
	if data == nil {
		return nil
	}

	return &entity.Session{
		ID:                   data.ID,
		UserID:               data.UserID,
		TokenHash:            data.TokenHash,
		IPAddress:            data.IPAddress,
		UserAgent:            data.UserAgent,
		ActiveOrganizationID: data.ActiveOrganizationID,
		ImpersonatedBy:       data.ImpersonatedBy,
		ImpersonatorSession:  data.ImpersonatorSession,
		ExpiresAt:            data.ExpiresAt,
		CreatedAt:            data.CreatedAt,
		UpdatedAt:            data.UpdatedAt,
	}
}

// fromSessionDomain converts a domain Session entity to a GORM SessionModel.
func fromSessionDomain(data *entity.Session) *model.SessionModel {
	if data == nil {
		return nil
	}

	return &model.SessionModel{
		ID:                   data.ID,
		UserID:               data.UserID,
		TokenHash:            data.TokenHash,
		IPAddress:            data.IPAddress,
		UserAgent:            data.UserAgent,
		ActiveOrganizationID: data.ActiveOrganizationID,
		ImpersonatedBy:       data.ImpersonatedBy,
		ImpersonatorSession:  data.ImpersonatorSession,
		ExpiresAt:            data.ExpiresAt,
		CreatedAt:            data.CreatedAt,
		UpdatedAt:            data.UpdatedAt,
	}
}
