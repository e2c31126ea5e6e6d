package main

import (
	"context"
	"log/slog"
	"os"

	"aspen/config"
	"aspen/internal/delivery"
	"aspen/internal/delivery/http"
	appmiddleware "aspen/internal/delivery/http/middleware"
	"aspen/internal/delivery/http/router/handler"
	deliverymiddleware "aspen/internal/delivery/middleware"
	"aspen/internal/infra/cache"
	logs "aspen/internal/infra/log"
	"aspen/internal/infra/persistence/postgres"
	"aspen/internal/infra/portal"
	"aspen/internal/infra/pubsub"
	"aspen/internal/infra/signer"
	"aspen/internal/usecase/impl"

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
		cache.New,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewAccountRepository,
			postgres.NewDeviceRepository,
			postgres.NewBundleIDRepository,
			postgres.NewCertificateRepository,
			postgres.NewProfileRepository,
			postgres.NewEnrollmentRepository,
			postgres.NewProjectRepository,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			portal.New,
			pubsub.NewEventPublisher,
			signer.New,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewRegistryService,
			impl.NewReconcilerService,
			impl.NewAllocatorService,
			impl.NewSessionService,
			impl.NewEnrollmentService,
			impl.NewAccountService,
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

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			appmiddleware.NewErrorMiddleware,
			deliverymiddleware.NewRequestIDMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewSessionHandler,
			handler.NewEnrollmentHandler,
			handler.NewAccountHandler,
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
