package serializer

import (
	"time"

	"github.com/littlelemon/restaurant/internal/model"
)

// Booking wire field names.
const (
	FieldName        = "name"
	FieldNoOfGuests  = "no_of_guests"
	FieldBookingDate = "booking_date"
)

// Booking is the wire representation of a booking.  The id is never
// exposed.
type Booking struct {
	Name        string `json:"name"`
	NoOfGuests  int    `json:"no_of_guests"`
	BookingDate string `json:"booking_date"`
}

// BookingData holds the validated writable fields present in an input.
// Nil fields were not sent by the client.
type BookingData struct {
	Name        *string    `json:"name" validate:"omitnil,min=1,max=255"`
	NoOfGuests  *int64     `json:"no_of_guests" validate:"omitnil,gte=-2147483648,lte=2147483647"`
	BookingDate *time.Time `json:"booking_date"`
}

// BookingSerializer validates booking input and renders bookings.
type BookingSerializer struct{}

// Validate parses the booking fields of in according to mode.  On
// failure the returned error is a ValidationError covering every
// invalid field.
func (BookingSerializer) Validate(in Input, mode Mode) (*BookingData, error) {
	errs := ValidationError{}
	switch mode {
	case Create:
		checkRequired(in, errs, FieldName)
	case Update:
		checkRequired(in, errs, FieldName, FieldNoOfGuests, FieldBookingDate)
	}

	var data BookingData
	if raw, ok := in[FieldName]; ok {
		if s, msg := parseString(raw); msg != "" {
			errs.add(FieldName, msg)
		} else {
			data.Name = &s
		}
	}
	if raw, ok := in[FieldNoOfGuests]; ok {
		if n, msg := parseInt(raw); msg != "" {
			errs.add(FieldNoOfGuests, msg)
		} else {
			data.NoOfGuests = &n
		}
	}
	if raw, ok := in[FieldBookingDate]; ok {
		if d, msg := parseDate(raw); msg != "" {
			errs.add(FieldBookingDate, msg)
		} else {
			data.BookingDate = &d
		}
	}
	checkStruct(&data, errs)
	if err := errs.orNil(); err != nil {
		return nil, err
	}
	return &data, nil
}

// Apply copies the present fields onto b.
func (d *BookingData) Apply(b *model.Booking) {
	if d.Name != nil {
		b.Name = *d.Name
	}
	if d.NoOfGuests != nil {
		b.NoOfGuests = int(*d.NoOfGuests)
	}
	if d.BookingDate != nil {
		b.BookingDate = *d.BookingDate
	}
}

// Represent renders b on the wire.
func (BookingSerializer) Represent(b *model.Booking) Booking {
	return Booking{
		Name:        b.Name,
		NoOfGuests:  b.NoOfGuests,
		BookingDate: b.BookingDate.Format(model.DateLayout),
	}
}
