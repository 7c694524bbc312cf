package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	domain "bookings/internal/domain/bookings"
)

const (
	pqExclusionViolation = "23P01"
	pqSerializationError = "40001"
)

// bookingRow mirrors the bookings table.
type bookingRow struct {
	ID                 uuid.UUID       `db:"booking_id"`
	ResourceID         uuid.UUID       `db:"resource_id"`
	RequesterID        uuid.UUID       `db:"requester_id"`
	CheckIn            time.Time       `db:"check_in"`
	CheckOut           time.Time       `db:"check_out"`
	Guests             int             `db:"guest_count"`
	TotalPrice         decimal.Decimal `db:"total_price"`
	Currency           string          `db:"currency"`
	Status             string          `db:"status"`
	SettlementRef      sql.NullString  `db:"settlement_ref"`
	CancellationReason sql.NullString  `db:"cancellation_reason"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

type BookingsRepo struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

// NewBookingsRepo builds the Postgres booking store. The getter resolves
// the ambient transaction so reads and writes issued inside the create
// transaction see each other.
func NewBookingsRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter) *BookingsRepo {
	return &BookingsRepo{db: db, getter: getter}
}

func (r *BookingsRepo) CreateBooking(ctx context.Context, b domain.Booking) error {
	query := `
		INSERT INTO bookings (
			booking_id, resource_id, requester_id,
			check_in, check_out, guest_count,
			total_price, currency, status,
			settlement_ref, cancellation_reason,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, query,
		b.ID,
		b.ResourceID,
		b.RequesterID,
		b.CheckIn,
		b.CheckOut,
		b.Guests,
		b.TotalPrice,
		b.Currency,
		string(b.Status),
		b.SettlementRef,
		b.CancellationReason,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		pqErr := &pq.Error{}
		if errors.As(err, &pqErr) && pqErr.Code == pqExclusionViolation {
			return domain.ErrBookingConflict
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	return nil
}

// IsOccupied is the availability guard's read: at least one booking for
// the resource that still occupies its dates intersects [checkIn, checkOut).
func (r *BookingsRepo) IsOccupied(ctx context.Context, resourceID uuid.UUID, checkIn, checkOut time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE resource_id = $1
			AND status NOT IN ('CANCELLED', 'REFUNDED')
			AND check_in < $3 AND check_out > $2
		)`

	var occupied bool
	err := r.getter.DefaultTrOrDB(ctx, r.db).
		QueryRowxContext(ctx, query, resourceID, checkIn, checkOut).
		Scan(&occupied)
	if err != nil {
		return false, fmt.Errorf("failed to check availability: %w", err)
	}

	return occupied, nil
}

func (r *BookingsRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	query := selectColumns + ` WHERE booking_id = $1`

	var row bookingRow
	err := r.getter.DefaultTrOrDB(ctx, r.db).GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, fmt.Errorf("failed to get booking: %w", err)
	}

	return rowToDomain(row), nil
}

func (r *BookingsRepo) ListByResource(ctx context.Context, resourceID uuid.UUID) ([]domain.Booking, error) {
	return r.list(ctx, selectColumns+` WHERE resource_id = $1`, resourceID)
}

func (r *BookingsRepo) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.Booking, error) {
	return r.list(ctx, selectColumns+` WHERE requester_id = $1`, requesterID)
}

// UpdateStatus is a compare-and-set on the booking's status. It reports
// false without error when the row no longer holds the expected status,
// which callers treat as a concurrent mutation and retry via redelivery.
func (r *BookingsRepo) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.Status,
	reason *string,
	settlementRef *string,
) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $3,
			updated_at = now(),
			cancellation_reason = COALESCE($4, cancellation_reason),
			settlement_ref = COALESCE($5, settlement_ref)
		WHERE booking_id = $1 AND status = $2`

	res, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, query,
		id, string(from), string(to), reason, settlementRef,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update booking status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected == 1, nil
}

const selectColumns = `
	SELECT
		booking_id, resource_id, requester_id,
		check_in, check_out, guest_count,
		total_price, currency, status,
		settlement_ref, cancellation_reason,
		created_at, updated_at
	FROM bookings`

func (r *BookingsRepo) list(ctx context.Context, query string, arg any) ([]domain.Booking, error) {
	var rows []bookingRow
	err := r.getter.DefaultTrOrDB(ctx, r.db).SelectContext(ctx, &rows, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	result := make([]domain.Booking, 0, len(rows))
	for _, row := range rows {
		result = append(result, rowToDomain(row))
	}
	return result, nil
}

func rowToDomain(row bookingRow) domain.Booking {
	b := domain.Booking{
		ID:          row.ID,
		ResourceID:  row.ResourceID,
		RequesterID: row.RequesterID,
		CheckIn:     domain.ToDate(row.CheckIn),
		CheckOut:    domain.ToDate(row.CheckOut),
		Guests:      row.Guests,
		TotalPrice:  row.TotalPrice,
		Currency:    row.Currency,
		Status:      domain.Status(row.Status),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.SettlementRef.Valid {
		b.SettlementRef = &row.SettlementRef.String
	}
	if row.CancellationReason.Valid {
		b.CancellationReason = &row.CancellationReason.String
	}
	return b
}
