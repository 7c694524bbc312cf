package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"bookings/internal/app"
	"bookings/internal/config"
	"bookings/internal/infrastructure/clients"
	"bookings/internal/observability/logs"
)

func main() {
	logs.Init(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	watermillLogger := logs.NewWatermill(logrus.NewEntry(logrus.StandardLogger()))

	db, err := sqlx.Open("postgres", cfg.PostgresURL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to postgres")
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer redisClient.Close()

	settlementClient := clients.NewSettlementClient(cfg.SettlementURL)

	a, err := app.NewApp(cfg, watermillLogger, settlementClient, redisClient, db)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize application")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = a.Run(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("application stopped with error")
	}
}
