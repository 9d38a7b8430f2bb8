// Package queue defines the booking event stream: the payload, a
// RabbitMQ publisher and a consumer that keeps a booking log.
package queue

import (
	"time"

	"github.com/littlelemon/restaurant/internal/model"
)

// BookingQueueName is the durable queue booking events are routed to.
const BookingQueueName = "booking.created"

// BookingCreatedEvent is published after a booking is stored.  It carries
// enough for downstream consumers to log or notify without querying the
// primary database.
type BookingCreatedEvent struct {
	BookingID   uint64 `json:"booking_id"`
	Name        string `json:"name"`
	NoOfGuests  int    `json:"no_of_guests"`
	BookingDate string `json:"booking_date"`
	CreatedAt   string `json:"created_at"`
}

// NewBookingCreatedEvent builds the event for b stamped with at.
func NewBookingCreatedEvent(b *model.Booking, at time.Time) BookingCreatedEvent {
	return BookingCreatedEvent{
		BookingID:   b.ID,
		Name:        b.Name,
		NoOfGuests:  b.NoOfGuests,
		BookingDate: b.BookingDate.Format(model.DateLayout),
		CreatedAt:   at.UTC().Format(time.RFC3339),
	}
}
