package app

import (
	"context"
	"fmt"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	watermillMessage "github.com/ThreeDotsLabs/watermill/message"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"bookings/internal/application/services"
	"bookings/internal/config"
	"bookings/internal/deadletter"
	"bookings/internal/interfaces/http"
	"bookings/internal/interfaces/message"
	"bookings/internal/interfaces/message/events"
	"bookings/internal/outbox"
	"bookings/internal/repository"
)

type App struct {
	logger watermill.LoggerAdapter
	zlog   zerolog.Logger

	router    *watermillMessage.Router
	srv       *http.Server
	forwarder *outbox.Forwarder
	db        *sqlx.DB
}

func NewApp(
	cfg config.Config,
	watermillLogger watermill.LoggerAdapter,
	settlementGateway services.SettlementGateway,
	redisClient *redis.Client,
	db *sqlx.DB,
) (*App, error) {
	nightlyRate, err := decimal.NewFromString(cfg.NightlyRate)
	if err != nil {
		return nil, fmt.Errorf("invalid nightly rate %q: %w", cfg.NightlyRate, err)
	}

	bookingsRepo := repository.NewBookingsRepo(db, trmsqlx.DefaultCtxGetter)
	txManager := repository.NewTxManager(db)

	// Publishes go through the outbox table of whatever transaction is in
	// ctx, so events only leave with a committed booking.
	publisherFactory := func(ctx context.Context) (services.EventPublisher, error) {
		tx := trmsqlx.DefaultCtxGetter.DefaultTrOrDB(ctx, db)
		publisher, err := outbox.NewPublisher(tx, watermillLogger)
		if err != nil {
			return nil, err
		}
		return events.NewEventBus(publisher, watermillLogger)
	}

	bookingsService := services.NewBookingsService(
		bookingsRepo,
		txManager,
		publisherFactory,
		nightlyRate,
		cfg.Currency,
	)

	settlementService := services.NewSettlementService(settlementGateway, services.SettlementConfig{
		MaxAttempts:     cfg.SettlementMaxAttempts,
		Backoff:         cfg.SettlementBackoff,
		CallTimeout:     cfg.SettlementTimeout,
		BreakerCooldown: cfg.BreakerCooldown,
	})

	redisPublisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: redisClient,
	}, watermillLogger)
	if err != nil {
		return nil, err
	}

	// Reconciler verdicts skip the outbox: they carry no database write of
	// their own and idempotent consumption covers redelivery.
	eventBus, err := events.NewEventBus(redisPublisher, watermillLogger)
	if err != nil {
		return nil, err
	}

	eventHandler := events.NewHandler(bookingsService, settlementService, eventBus)

	router, err := message.NewRouter(
		watermillLogger,
		redisPublisher,
		eventHandler,
		events.NewEventProcessorConfig(redisClient, watermillLogger),
	)
	if err != nil {
		return nil, err
	}

	fwd, err := outbox.NewForwarder(db, redisClient, watermillLogger)
	if err != nil {
		return nil, err
	}

	srv := http.NewServer(
		echo.New(),
		cfg.HTTPAddr,
		bookingsService,
		deadletter.NewInspector(redisClient),
		router.IsRunning,
	)

	return &App{
		logger:    watermillLogger,
		zlog:      zerolog.New(os.Stdout),
		router:    router,
		srv:       srv,
		forwarder: fwd,
		db:        db,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	err := repository.InitializeDBSchema(a.db)
	if err != nil {
		return err
	}

	a.forwarder.Run(ctx)
	a.zlog.Info().Msg("outbox forwarder is running")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.zlog.Info().Msg("starting router")

		return a.router.Run(ctx)
	})

	g.Go(func() error {
		<-a.router.Running()
		a.zlog.Info().Msg("router is running")

		a.zlog.Info().Msg("starting server")
		return a.srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()

		err := a.srv.Stop(ctx)
		if err != nil {
			a.zlog.Err(err).Msg("error stopping server")
		}

		return err
	})

	return g.Wait()
}
