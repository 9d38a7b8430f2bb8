package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/littlelemon/restaurant/internal/model"
)

// BookingRepo encapsulates all database queries related to bookings.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

const bookingColumns = "id, name, no_of_guests, booking_date"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	b := new(model.Booking)
	if err := row.Scan(&b.ID, &b.Name, &b.NoOfGuests, &b.BookingDate); err != nil {
		return nil, err
	}
	b.BookingDate = model.DateOf(b.BookingDate)
	return b, nil
}

// Create inserts b and populates its ID.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = "INSERT INTO bookings (name, no_of_guests, booking_date) VALUES (?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, b.Name, b.NoOfGuests, b.BookingDate.Format(model.DateLayout))
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	b.ID = uint64(id)
	return nil
}

// GetByID fetches a booking or returns ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = "SELECT " + bookingColumns + " FROM bookings WHERE id = ?"
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return b, nil
}

// ListByDate returns the bookings on date in insertion order.
func (r *BookingRepo) ListByDate(ctx context.Context, date time.Time) ([]*model.Booking, error) {
	const q = "SELECT " + bookingColumns + " FROM bookings WHERE booking_date = ? ORDER BY id"
	rows, err := r.db.QueryContext(ctx, q, date.Format(model.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return out, nil
}

// Update locks the booking row, lets mutate change it and writes every
// column back in the same transaction.  If mutate fails nothing is
// written and its error is returned unchanged.
func (r *BookingRepo) Update(ctx context.Context, id uint64, mutate func(*model.Booking) error) (b *model.Booking, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			b, err = nil, fmt.Errorf("commit: %w", cerr)
		}
	}()

	const qSelect = "SELECT " + bookingColumns + " FROM bookings WHERE id = ? FOR UPDATE"
	b, err = scanBooking(tx.QueryRowContext(ctx, qSelect, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock booking %d: %w", id, err)
	}
	if err = mutate(b); err != nil {
		return nil, err
	}
	b.ID = id

	const qUpdate = "UPDATE bookings SET name = ?, no_of_guests = ?, booking_date = ? WHERE id = ?"
	if _, err = tx.ExecContext(ctx, qUpdate, b.Name, b.NoOfGuests, b.BookingDate.Format(model.DateLayout), id); err != nil {
		return nil, fmt.Errorf("update booking %d: %w", id, err)
	}
	return b, nil
}

// Delete removes a booking or returns ErrNotFound.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete booking %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
