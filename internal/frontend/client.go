package frontend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// MenuItem is a menu item as returned by the API.
type MenuItem struct {
	ID        uint64 `json:"id"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Inventory int    `json:"inventory"`
}

// Booking is a booking as returned by the API.
type Booking struct {
	Name        string `json:"name"`
	NoOfGuests  int    `json:"no_of_guests"`
	BookingDate string `json:"booking_date"`
}

// APIError is a non-2xx answer from the API.  Fields holds the field
// keyed messages of a 400 response, when the body had that shape.
type APIError struct {
	Status int
	Fields map[string][]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("api: status %d: %s", e.Status, strings.Join(keys, ", "))
}

// APIClient calls the menu and booking API on behalf of the service
// account.
type APIClient struct {
	base   string
	http   *http.Client
	tokens *ServiceToken
}

func NewAPIClient(cfg Config, tokens *ServiceToken, client *http.Client) *APIClient {
	return &APIClient{base: strings.TrimRight(cfg.APIBaseURL, "/"), http: client, tokens: tokens}
}

// Menu lists every menu item.
func (a *APIClient) Menu(ctx context.Context) ([]MenuItem, error) {
	var items []MenuItem
	if err := a.do(ctx, http.MethodGet, "/api/menu-items", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// MenuItem fetches one menu item.
func (a *APIClient) MenuItem(ctx context.Context, id uint64) (*MenuItem, error) {
	var item MenuItem
	if err := a.do(ctx, http.MethodGet, "/api/menu-items/"+strconv.FormatUint(id, 10), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Bookings lists the bookings of date (YYYY-MM-DD).
func (a *APIClient) Bookings(ctx context.Context, date string) ([]Booking, error) {
	var items []Booking
	path := "/api/bookings?" + url.Values{"date": {date}}.Encode()
	if err := a.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateBooking stores b through the API.
func (a *APIClient) CreateBooking(ctx context.Context, b Booking) (*Booking, error) {
	var out Booking
	if err := a.do(ctx, http.MethodPost, "/api/bookings", b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends one authenticated request.  A 401 invalidates the cached
// token and the request is sent once more with a fresh one.
func (a *APIClient) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	for attempt := 0; ; attempt++ {
		token, err := a.tokens.Access(ctx)
		if err != nil {
			return fmt.Errorf("service token: %w", err)
		}
		resp, err := a.send(ctx, method, path, payload, token)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			resp.Body.Close()
			a.tokens.Invalidate(token)
			continue
		}
		return decodeResponse(resp, out)
	}
}

func (a *APIClient) send(ctx context.Context, method, path string, payload []byte, token string) (*http.Response, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.base+path, rd)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "JWT "+token)
	return a.http.Do(req)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if resp.StatusCode == http.StatusBadRequest {
			var fields map[string][]string
			if json.NewDecoder(resp.Body).Decode(&fields) == nil {
				apiErr.Fields = fields
			}
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
