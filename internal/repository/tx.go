package repository

import (
	"context"
	"database/sql"
	"errors"

	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	trmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/avito-tech/go-transaction-manager/trm/v2/settings"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"bookings/internal/observability/logs"
)

const serializationAttempts = 3

// TxManager runs a function inside a serializable Postgres transaction.
// The check-then-create sequence and the status compare-and-set both run
// under it, so concurrent writers either serialize or fail with a
// retryable serialization error; Do re-runs fn on 40001.
type TxManager struct {
	manager *trmanager.Manager
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{
		manager: trmanager.Must(trmsqlx.NewDefaultFactory(db)),
	}
}

func (t *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= serializationAttempts; attempt++ {
		err := t.manager.DoWithSettings(
			ctx,
			trmsql.MustSettings(
				settings.Must(settings.WithCancelable(true)),
				trmsql.WithTxOptions(&sql.TxOptions{Isolation: sql.LevelSerializable}),
			),
			fn,
		)
		if err == nil {
			return nil
		}

		pqErr := &pq.Error{}
		if errors.As(err, &pqErr) && pqErr.Code == pqSerializationError {
			logs.FromContext(ctx).
				WithField("attempt", attempt).
				WithError(err).
				Warn("Transaction serialization failure, retrying")
			lastErr = err
			continue
		}

		return err
	}
	return lastErr
}
