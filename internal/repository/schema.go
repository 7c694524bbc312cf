package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// InitializeDBSchema creates the bookings table. The exclusion constraint
// is the actual overlap guarantee: two rows for the same resource whose
// [check_in, check_out) ranges intersect cannot both be committed while
// neither is cancelled or refunded. The availability check in the service
// is only an early exit.
func InitializeDBSchema(db *sqlx.DB) error {
	_, err := db.ExecContext(context.Background(), `
CREATE EXTENSION IF NOT EXISTS btree_gist;`)
	if err != nil {
		return fmt.Errorf("failed to create btree_gist extension: %w", err)
	}

	_, err = db.ExecContext(context.Background(), `
CREATE TABLE IF NOT EXISTS bookings (
	booking_id UUID PRIMARY KEY,
	resource_id UUID NOT NULL,
	requester_id UUID NOT NULL,
	check_in DATE NOT NULL,
	check_out DATE NOT NULL,
	guest_count INTEGER NOT NULL CHECK (guest_count >= 1),
	total_price NUMERIC(10, 2) NOT NULL CHECK (total_price >= 0),
	currency CHAR(3) NOT NULL,
	status VARCHAR(32) NOT NULL,
	settlement_ref VARCHAR(255),
	cancellation_reason TEXT,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	CHECK (check_out > check_in),
	CONSTRAINT bookings_no_overlap EXCLUDE USING gist (
		resource_id WITH =,
		daterange(check_in, check_out) WITH &&
	) WHERE (status NOT IN ('CANCELLED', 'REFUNDED'))
);`)
	if err != nil {
		return fmt.Errorf("failed to create bookings table: %w", err)
	}

	_, err = db.ExecContext(context.Background(), `
CREATE INDEX IF NOT EXISTS bookings_requester_idx ON bookings (requester_id);`)
	if err != nil {
		return fmt.Errorf("failed to create bookings index: %w", err)
	}

	return nil
}
