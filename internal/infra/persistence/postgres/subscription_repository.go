package postgres

import (
	"context"

	"passport/internal/domain/entity"
	"passport/internal/domain/repository"
	"passport/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// subscriptionRepository implements the repository.SubscriptionRepository interface.
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository is the constructor for subscriptionRepository.
func NewSubscriptionRepository(db *gorm.DB) repository.SubscriptionRepository {
	return &subscriptionRepository{
		db: db,
	}
}

// Upsert creates or updates the mirror row keyed by provider subscription ID.
func (repo *subscriptionRepository) Upsert(ctx context.Context, subscription *entity.Subscription) error {
	subscriptionM := fromSubscriptionDomain(subscription)

	if err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "provider_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"plan", "status", "price_id", "period_start", "period_end",
				"cancel_at_period_end", "seats", "updated_at",
			}),
		}).
		Create(subscriptionM).Error; err != nil {
		return errors.Wrap(err, "failed to upsert subscription")
	}

	subscription.ID = subscriptionM.ID

	return nil
}

// FindByReference lists subscriptions for an organization reference ID.
func (repo *subscriptionRepository) FindByReference(ctx context.Context, referenceID uuid.UUID) ([]*entity.Subscription, error) {
	var subscriptionModels []*model.SubscriptionModel

	if err := repo.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		Order("created_at DESC").
		Find(&subscriptionModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find subscriptions by reference")
	}

	subscriptions := make([]*entity.Subscription, 0, len(subscriptionModels))
	for _, subscriptionM := range subscriptionModels {
		subscriptions = append(subscriptions, toSubscriptionDomain(subscriptionM))
	}

	return subscriptions, nil
}

// --- Mapper Functions ---

// toSubscriptionDomain converts a GORM SubscriptionModel to a domain Subscription entity.
func toSubscriptionDomain(data *model.SubscriptionModel) *entity.Subscription {
	if data == nil {
		return nil
	}

	return &entity.Subscription{
		ID:                data.ID,
		ProviderID:        data.ProviderID,
		ReferenceID:       data.ReferenceID,
		Plan:              data.Plan,
		Status:            entity.SubscriptionStatus(data.Status),
		PriceID:           data.PriceID,
		PeriodStart:       data.PeriodStart,
		PeriodEnd:         data.PeriodEnd,
		CancelAtPeriodEnd: data.CancelAtPeriodEnd,
		Seats:             data.Seats,
		CreatedAt:         data.CreatedAt,
		UpdatedAt:         data.UpdatedAt,
	}
}

// fromSubscriptionDomain converts a domain Subscription entity to a GORM SubscriptionModel.
func fromSubscriptionDomain(data *entity.Subscription) *model.SubscriptionModel {
	if data == nil {
		return nil
	}

	return &model.SubscriptionModel{
		ID:                data.ID,
		ProviderID:        data.ProviderID,
		ReferenceID:       data.ReferenceID,
		Plan:              data.Plan,
		Status:            string(data.Status),
		PriceID:           data.PriceID,
		PeriodStart:       data.PeriodStart,
		PeriodEnd:         data.PeriodEnd,
		CancelAtPeriodEnd: data.CancelAtPeriodEnd,
		Seats:             data.Seats,
		CreatedAt:         data.CreatedAt,
		UpdatedAt:         data.UpdatedAt,
	}
}
