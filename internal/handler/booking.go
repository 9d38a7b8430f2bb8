package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/littlelemon/restaurant/internal/metrics"
	"github.com/littlelemon/restaurant/internal/model"
	"github.com/littlelemon/restaurant/internal/queue"
	"github.com/littlelemon/restaurant/internal/serializer"
)

const resourceBooking = "booking"

// publishTimeout bounds the broker round trip after a booking is stored.
const publishTimeout = 3 * time.Second

// BookingStore is the persistence the booking endpoints need.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	ListByDate(ctx context.Context, date time.Time) ([]*model.Booking, error)
	Update(ctx context.Context, id uint64, mutate func(*model.Booking) error) (*model.Booking, error)
	Delete(ctx context.Context, id uint64) error
}

// BookingEvents receives an event for every stored booking.
type BookingEvents interface {
	PublishBookingCreated(ctx context.Context, ev queue.BookingCreatedEvent) error
}

// BookingHandler serves /api/bookings.
type BookingHandler struct {
	Store   BookingStore
	Events  BookingEvents // optional
	Metrics *metrics.Metrics
	Now     func() time.Time
	ser     serializer.BookingSerializer
}

func NewBookingHandler(store BookingStore, events BookingEvents, m *metrics.Metrics) *BookingHandler {
	if store == nil {
		panic("nil store passed to NewBookingHandler")
	}
	return &BookingHandler{Store: store, Events: events, Metrics: m, Now: time.Now}
}

// List handles GET /api/bookings.  Only bookings on ?date=YYYY-MM-DD are
// returned; without the parameter the date is today at request time.
func (h *BookingHandler) List(c echo.Context) error {
	date := model.DateOf(h.Now())
	if q := c.QueryParams(); q.Has("date") {
		d, err := model.ParseDate(q.Get("date"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, serializer.ValidationError{
				"date": {"Date has wrong format. Use YYYY-MM-DD."},
			})
		}
		date = d
	}

	ctx, cancel := dbContext(c)
	defer cancel()
	items, err := h.Store.ListByDate(ctx, date)
	if err != nil {
		return respondError(c, "list bookings", err)
	}
	return c.JSON(http.StatusOK, serializer.Many(items, h.ser.Represent))
}

// Create handles POST /api/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	in, err := bindInput(c)
	if err != nil {
		return respondError(c, "read body", err)
	}
	data, err := h.ser.Validate(in, serializer.Create)
	if err != nil {
		return respondError(c, "validate", err)
	}
	now := h.Now()
	b := model.NewBooking(now)
	data.Apply(b)

	ctx, cancel := dbContext(c)
	defer cancel()
	if err := h.Store.Create(ctx, b); err != nil {
		return respondError(c, "create booking", err)
	}
	h.Metrics.Created(resourceBooking)
	h.publish(c.Request().Context(), queue.NewBookingCreatedEvent(b, now))
	return c.JSON(http.StatusCreated, h.ser.Represent(b))
}

// publish hands the event to the broker.  The booking is already stored,
// so failures are logged and counted but never fail the request.
func (h *BookingHandler) publish(parent context.Context, ev queue.BookingCreatedEvent) {
	if h.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), publishTimeout)
	defer cancel()
	err := h.Events.PublishBookingCreated(ctx, ev)
	if err != nil {
		log.Printf("booking %d: publish event: %v", ev.BookingID, err)
	}
	h.Metrics.Published(err)
}

// Retrieve handles GET /api/bookings/:id.
func (h *BookingHandler) Retrieve(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	b, err := h.Store.GetByID(ctx, id)
	if err != nil {
		return respondError(c, "get booking", err)
	}
	return c.JSON(http.StatusOK, h.ser.Represent(b))
}

// Update handles PUT /api/bookings/:id; every writable field is required.
func (h *BookingHandler) Update(c echo.Context) error { return h.update(c, serializer.Update) }

// PartialUpdate handles PATCH /api/bookings/:id.
func (h *BookingHandler) PartialUpdate(c echo.Context) error {
	return h.update(c, serializer.Partial)
}

func (h *BookingHandler) update(c echo.Context, mode serializer.Mode) error {
	id, ok := parseID(c)
	if !ok {
		return notFound(c)
	}
	in, err := bindInput(c)
	if err != nil {
		return respondError(c, "read body", err)
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	b, err := h.Store.Update(ctx, id, func(b *model.Booking) error {
		data, err := h.ser.Validate(in, mode)
		if err != nil {
			return err
		}
		data.Apply(b)
		return nil
	})
	if err != nil {
		return respondError(c, "update booking", err)
	}
	return c.JSON(http.StatusOK, h.ser.Represent(b))
}

// Destroy handles DELETE /api/bookings/:id.
func (h *BookingHandler) Destroy(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	if err := h.Store.Delete(ctx, id); err != nil {
		return respondError(c, "delete booking", err)
	}
	h.Metrics.Deleted(resourceBooking)
	return c.NoContent(http.StatusNoContent)
}
