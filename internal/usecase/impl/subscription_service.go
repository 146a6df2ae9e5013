package impl

import (
	"context"
	"log/slog"

	deliverycontext "passport/internal/delivery/context"
	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/policy"
	"passport/internal/domain/repository"
	"passport/internal/domain/service"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// subscriptionService implements the SubscriptionUsecase interface.
// The billing provider is authoritative; the local mirror absorbs provider
// outages on reads and is refreshed whenever the provider answers.
type subscriptionService struct {
	orgRepo  repository.OrganizationRepository
	subRepo  repository.SubscriptionRepository
	userRepo repository.UserRepository
	billing  service.BillingProvider
	logger   *slog.Logger
}

// SubscriptionServiceParams holds dependencies for subscriptionService, injected by Fx.
type SubscriptionServiceParams struct {
	fx.In

	OrgRepo  repository.OrganizationRepository
	SubRepo  repository.SubscriptionRepository
	UserRepo repository.UserRepository
	Billing  service.BillingProvider
	Logger   *slog.Logger
}

// NewSubscriptionService is the constructor for subscriptionService.
func NewSubscriptionService(params SubscriptionServiceParams) usecase.SubscriptionUsecase {
	return &subscriptionService{
		orgRepo:  params.OrgRepo,
		subRepo:  params.SubRepo,
		userRepo: params.UserRepo,
		billing:  params.Billing,
		logger:   params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *subscriptionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// List returns the organization's subscriptions from the provider, falling
// back to the local mirror when the provider is unreachable.
func (srv *subscriptionService) List(ctx context.Context, userID, orgID uuid.UUID) ([]*entity.Subscription, error) {
	if _, err := srv.authorize(ctx, userID, orgID, policy.ActionUpgradeSubscription); err != nil {
		// Listing is open to every member; the upgrade action doubles as the
		// any-member policy check.
		return nil, err
	}

	subscriptions, err := srv.billing.ListSubscriptions(ctx, orgID)
	if err != nil {
		srv.log(ctx).Warn("Billing provider unavailable, serving subscription mirror", slog.Any("orgID", orgID), slog.Any("error", err))

		mirrored, mirrorErr := srv.subRepo.FindByReference(ctx, orgID)
		if mirrorErr != nil {
			return nil, errors.Wrap(mirrorErr, "failed to read subscription mirror")
		}

		return mirrored, nil
	}

	srv.refreshMirror(ctx, subscriptions)

	return subscriptions, nil
}

// Upgrade starts a checkout for the plan and returns the redirect URL.
func (srv *subscriptionService) Upgrade(ctx context.Context, userID, orgID uuid.UUID, plan string) (string, error) {
	if _, err := srv.authorize(ctx, userID, orgID, policy.ActionUpgradeSubscription); err != nil {
		return "", err
	}

	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", errors.Wrap(err, "failed to find user")
	}

	if _, err := srv.billing.EnsureCustomer(ctx, orgID, user.Email); err != nil {
		return "", errors.Wrap(err, "failed to ensure billing customer")
	}

	redirectURL, err := srv.billing.Checkout(ctx, orgID, plan)
	if err != nil {
		return "", err
	}

	srv.log(ctx).Info("Checkout started", slog.Any("orgID", orgID), slog.String("plan", plan))

	return redirectURL, nil
}

// Cancel schedules the subscription to end at the period boundary.
func (srv *subscriptionService) Cancel(ctx context.Context, userID, orgID uuid.UUID, subscriptionID string) (string, error) {
	if _, err := srv.authorize(ctx, userID, orgID, policy.ActionCancelSubscription); err != nil {
		return "", err
	}

	redirectURL, err := srv.billing.Cancel(ctx, orgID, subscriptionID)
	if err != nil {
		return "", err
	}

	srv.log(ctx).Info("Subscription cancellation started", slog.Any("orgID", orgID), slog.String("subscriptionID", subscriptionID))

	return redirectURL, nil
}

// Restore undoes a pending cancellation.
func (srv *subscriptionService) Restore(ctx context.Context, userID, orgID uuid.UUID, subscriptionID string) error {
	if _, err := srv.authorize(ctx, userID, orgID, policy.ActionRestoreSubscription); err != nil {
		return err
	}

	if err := srv.billing.Restore(ctx, orgID, subscriptionID); err != nil {
		return err
	}

	// Pull the provider's view so the mirror reflects the restore promptly.
	if subscriptions, err := srv.billing.ListSubscriptions(ctx, orgID); err == nil {
		srv.refreshMirror(ctx, subscriptions)
	}

	return nil
}

// Portal returns a billing-portal URL for self-service management.
func (srv *subscriptionService) Portal(ctx context.Context, userID, orgID uuid.UUID) (string, error) {
	if _, err := srv.authorize(ctx, userID, orgID, policy.ActionOpenBillingPortal); err != nil {
		return "", err
	}

	return srv.billing.BillingPortal(ctx, orgID)
}

// authorize resolves the caller's membership and checks the action policy.
func (srv *subscriptionService) authorize(ctx context.Context, userID, orgID uuid.UUID, action policy.Action) (*entity.Member, error) {
	member, err := srv.orgRepo.FindMember(ctx, orgID, userID)
	if errors.Is(err, repository.ErrMemberNotFound) {
		return nil, domainerrors.ErrNotMember
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find membership")
	}

	if !policy.Allowed(member.Role, action) {
		return nil, domainerrors.ErrForbidden
	}

	return member, nil
}

// refreshMirror upserts the provider's answers into the local mirror.
// Failures are logged; the mirror is advisory.
func (srv *subscriptionService) refreshMirror(ctx context.Context, subscriptions []*entity.Subscription) {
	for _, subscription := range subscriptions {
		if err := srv.subRepo.Upsert(ctx, subscription); err != nil {
			srv.log(ctx).Warn("Failed to refresh subscription mirror", slog.String("providerID", subscription.ProviderID), slog.Any("error", err))
		}
	}
}
