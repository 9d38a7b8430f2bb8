package frontend

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/littlelemon/restaurant/internal/model"
)

// apiTimeout bounds all API calls made while rendering one page.
const apiTimeout = 10 * time.Second

// API is the part of the HTTP API the pages use.
type API interface {
	Menu(ctx context.Context) ([]MenuItem, error)
	MenuItem(ctx context.Context, id uint64) (*MenuItem, error)
	Bookings(ctx context.Context, date string) ([]Booking, error)
	CreateBooking(ctx context.Context, b Booking) (*Booking, error)
}

// Gateway renders the pages.
type Gateway struct {
	API    API
	Now    func() time.Time
	loc    *time.Location
	render *Renderer
}

// New wires a Gateway to the API described by cfg.
func New(cfg Config) (*Gateway, error) {
	client := cfg.httpClient()
	tokens := NewServiceToken(NewHTTPTokenProvider(cfg, client))
	return NewGateway(NewAPIClient(cfg, tokens, client), cfg.location())
}

func NewGateway(api API, loc *time.Location) (*Gateway, error) {
	r, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Gateway{API: api, Now: time.Now, loc: loc, render: r}, nil
}

// Register mounts the pages on e and installs the template renderer.
// Paths are registered without their trailing slash; the router strips
// it before routing.
func (g *Gateway) Register(e *echo.Echo) {
	e.Renderer = g.render
	e.GET("/", g.Home)
	e.GET("/about", g.About)
	e.GET("/menu", g.Menu)
	e.GET("/menu-item/:id", g.MenuItem)
	e.GET("/book", g.BookForm)
	e.POST("/book", g.Book)
	e.GET("/bookings", g.Bookings)
}

func (g *Gateway) today() string {
	return g.Now().In(g.loc).Format(model.DateLayout)
}

func apiContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), apiTimeout)
}

func (g *Gateway) Home(c echo.Context) error {
	return c.Render(http.StatusOK, pageIndex, nil)
}

func (g *Gateway) About(c echo.Context) error {
	return c.Render(http.StatusOK, pageAbout, nil)
}

type menuPage struct {
	Items []MenuItem
	Error string
}

// Menu lists the menu.  An unreachable API renders an empty menu.
func (g *Gateway) Menu(c echo.Context) error {
	ctx, cancel := apiContext(c)
	defer cancel()
	items, err := g.API.Menu(ctx)
	if err != nil {
		log.Printf("frontend: menu: %v", err)
		return c.Render(http.StatusOK, pageMenu, menuPage{Error: msgUnavailable})
	}
	return c.Render(http.StatusOK, pageMenu, menuPage{Items: items})
}

type menuItemPage struct {
	Item  *MenuItem
	Error string
}

func (g *Gateway) MenuItem(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Render(http.StatusNotFound, pageMenuItem, menuItemPage{Error: msgNoSuchItem})
	}
	ctx, cancel := apiContext(c)
	defer cancel()
	item, err := g.API.MenuItem(ctx, id)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return c.Render(http.StatusNotFound, pageMenuItem, menuItemPage{Error: msgNoSuchItem})
		}
		log.Printf("frontend: menu item %d: %v", id, err)
		return c.Render(http.StatusOK, pageMenuItem, menuItemPage{Error: msgUnavailable})
	}
	return c.Render(http.StatusOK, pageMenuItem, menuItemPage{Item: item})
}

// bookingForm is the state of the booking form as shown to the user.
type bookingForm struct {
	Name        string
	NoOfGuests  string
	BookingDate string
	Errors      map[string][]string
}

type bookPage struct {
	Form    bookingForm
	Success bool
	Error   string
}

func (g *Gateway) emptyForm() bookingForm {
	return bookingForm{NoOfGuests: strconv.Itoa(model.DefaultGuests), BookingDate: g.today()}
}

func (g *Gateway) BookForm(c echo.Context) error {
	return c.Render(http.StatusOK, pageBook, bookPage{Form: g.emptyForm()})
}

// Book validates the submitted form, posts it to the booking API and
// renders either a fresh form or the submitted one with its errors.
func (g *Gateway) Book(c echo.Context) error {
	values, err := c.FormParams()
	if err != nil {
		values = url.Values{}
	}
	form := bookingForm{
		Name:        values.Get("name"),
		NoOfGuests:  values.Get("no_of_guests"),
		BookingDate: values.Get("booking_date"),
	}
	b, errs := g.cleanBooking(form)
	if len(errs) > 0 {
		form.Errors = errs
		return c.Render(http.StatusOK, pageBook, bookPage{Form: form})
	}

	ctx, cancel := apiContext(c)
	defer cancel()
	if _, err := g.API.CreateBooking(ctx, b); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
			form.Errors = apiErr.Fields
			return c.Render(http.StatusOK, pageBook, bookPage{Form: form})
		}
		log.Printf("frontend: create booking: %v", err)
		return c.Render(http.StatusOK, pageBook, bookPage{Form: form, Error: msgNotSaved})
	}
	return c.Render(http.StatusOK, pageBook, bookPage{Form: g.emptyForm(), Success: true})
}

// cleanBooking applies the form rules: name required and at most
// model.MaxTextLength characters; guests a whole number defaulting to
// model.DefaultGuests; date YYYY-MM-DD defaulting to today.
func (g *Gateway) cleanBooking(f bookingForm) (Booking, map[string][]string) {
	errs := map[string][]string{}
	b := Booking{NoOfGuests: model.DefaultGuests, BookingDate: g.today()}

	name := strings.TrimSpace(f.Name)
	switch {
	case name == "":
		errs["name"] = []string{"This field is required."}
	case utf8.RuneCountInString(name) > model.MaxTextLength:
		errs["name"] = []string{"Ensure this value has at most 255 characters."}
	}
	b.Name = name

	if s := strings.TrimSpace(f.NoOfGuests); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			errs["no_of_guests"] = []string{"Enter a whole number."}
		}
		b.NoOfGuests = n
	}
	if s := strings.TrimSpace(f.BookingDate); s != "" {
		if _, err := model.ParseDate(s); err != nil {
			errs["booking_date"] = []string{"Enter a valid date."}
		}
		b.BookingDate = s
	}
	return b, errs
}

type bookingsPage struct {
	Date     string
	Bookings []Booking
	Error    string
}

// Bookings lists the bookings of ?date=YYYY-MM-DD, today by default.
func (g *Gateway) Bookings(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		date = g.today()
	}
	if _, err := model.ParseDate(date); err != nil {
		return c.Render(http.StatusBadRequest, pageBookings, bookingsPage{Date: date, Error: msgBadDate})
	}
	ctx, cancel := apiContext(c)
	defer cancel()
	items, err := g.API.Bookings(ctx, date)
	if err != nil {
		log.Printf("frontend: bookings %s: %v", date, err)
		return c.Render(http.StatusOK, pageBookings, bookingsPage{Date: date, Error: msgUnavailable})
	}
	return c.Render(http.StatusOK, pageBookings, bookingsPage{Date: date, Bookings: items})
}

const (
	msgUnavailable = "This information is unavailable right now."
	msgNoSuchItem  = "No such menu item."
	msgNotSaved    = "Your booking could not be saved. Please try again."
	msgBadDate     = "Date has wrong format. Use YYYY-MM-DD."
)
