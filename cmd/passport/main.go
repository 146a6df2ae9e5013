package main

import (
	"context"
	"log/slog"
	"os"

	"passport/config"
	"passport/internal/delivery"
	"passport/internal/delivery/http"
	"passport/internal/delivery/http/middleware"
	"passport/internal/delivery/http/router/handler"
	"passport/internal/domain/repository"
	"passport/internal/domain/service"
	"passport/internal/infra/auth"
	"passport/internal/infra/auth/google"
	"passport/internal/infra/billing"
	"passport/internal/infra/cache"
	"passport/internal/infra/events"
	logs "passport/internal/infra/log"
	"passport/internal/infra/mail"
	"passport/internal/infra/persistence/postgres"
	"passport/internal/infra/qrcode"
	"passport/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		postgres.New,
		cache.NewSecondaryStore,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewUserRepository,
			postgres.NewCredentialRepository,
			postgres.NewSessionRepository,
			postgres.NewVerificationRepository,
			postgres.NewTwoFactorRepository,
			postgres.NewPasskeyRepository,
			postgres.NewOrganizationRepository,
			postgres.NewSubscriptionRepository,
			postgres.NewTransactionManager,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			auth.NewChallengeTokenService,
			auth.NewTOTPService,
			auth.NewPasskeyCeremonyService,
			google.NewAuthService,
			mail.NewHTTPMailer,
			billing.NewHTTPProvider,
			newQRCodeService,
			newEventPublisher,
		),
	)
}

// newQRCodeService creates a QR code service with dependency injection
func newQRCodeService(cfg *config.Config) service.QRCodeService {
	if cfg.QRCode == nil {
		// Use default values if not configured
		return qrcode.NewQRCodeService(256, "M")
	}

	return qrcode.NewQRCodeService(cfg.QRCode.Size, cfg.QRCode.ErrorCorrectionLevel)
}

// newEventPublisher assembles the in-process dispatcher with every handler
// that reacts to domain events.
func newEventPublisher(
	cfg *config.Config,
	mailer service.Mailer,
	txManager repository.TransactionManager,
	logger *slog.Logger,
) service.EventPublisher {
	return events.NewDispatcher(
		logger,
		events.NewMailHandler(cfg, mailer, logger),
		events.NewSessionOrgHandler(txManager, logger),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewAccountService,
			impl.NewSessionService,
			impl.NewTwoFactorService,
			impl.NewPasskeyService,
			impl.NewOrganizationService,
			impl.NewSubscriptionService,
			impl.NewAdminService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
			middleware.NewRateLimitMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAccountHandler,
			handler.NewSessionHandler,
			handler.NewTwoFactorHandler,
			handler.NewPasskeyHandler,
			handler.NewOrganizationHandler,
			handler.NewSubscriptionHandler,
			handler.NewAdminHandler,
			handler.NewHealthHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
