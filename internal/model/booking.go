package model

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// Default field values applied when a client omits them on create.
const (
	DefaultGuests    = 6
	DefaultInventory = 5
	MaxTextLength    = 255
)

// Booking represents a table reservation as stored in the `bookings`
// table.  Bookings are independent records; several may share a date.
//
// Fields:
//  ID          – primary key identifier, assigned by the store.
//  Name        – name the table is booked under.
//  NoOfGuests  – party size.
//  BookingDate – calendar day of the booking (UTC midnight).
type Booking struct {
	ID          uint64    // bookings.id
	Name        string    // bookings.name
	NoOfGuests  int       // bookings.no_of_guests
	BookingDate time.Time // bookings.booking_date
}

// NewBooking returns a booking carrying the model defaults for the given
// moment: DefaultGuests and the calendar date of now.
func NewBooking(now time.Time) *Booking {
	return &Booking{NoOfGuests: DefaultGuests, BookingDate: DateOf(now)}
}

// String renders the admin label "name: YYYY-MM-DD".
func (b Booking) String() string {
	return fmt.Sprintf("%s: %s", b.Name, b.BookingDate.Format(DateLayout))
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
