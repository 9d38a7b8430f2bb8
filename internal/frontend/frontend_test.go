package frontend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return tok
}

// ----- ServiceToken -----

type fakeProvider struct {
	mu         sync.Mutex
	logins     int
	refreshes  int
	pair       TokenPair
	access     string
	refreshErr error
}

func (p *fakeProvider) Login(context.Context) (TokenPair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logins++
	return p.pair, nil
}

func (p *fakeProvider) Refresh(_ context.Context, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshes++
	return p.access, p.refreshErr
}

func TestServiceTokenCachesUntilNearExpiry(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	first := signedToken(t, now.Add(5*time.Minute))
	second := signedToken(t, now.Add(10*time.Minute))
	p := &fakeProvider{pair: TokenPair{Access: first, Refresh: "r"}, access: second}
	st := NewServiceToken(p)
	st.now = func() time.Time { return now }

	tok, err := st.Access(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, tok)
	tok, _ = st.Access(context.Background())
	assert.Equal(t, first, tok)
	assert.Equal(t, 1, p.logins)

	// Within 30s of expiry the refresh token is used.
	st.now = func() time.Time { return now.Add(4*time.Minute + 45*time.Second) }
	tok, err = st.Access(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second, tok)
	assert.Equal(t, 1, p.refreshes)
	assert.Equal(t, 1, p.logins)
}

func TestServiceTokenFallsBackToLogin(t *testing.T) {
	now := time.Now()
	p := &fakeProvider{
		pair:       TokenPair{Access: signedToken(t, now.Add(time.Hour)), Refresh: "r"},
		refreshErr: ErrCredentialsRejected,
	}
	st := NewServiceToken(p)

	tok, err := st.Access(context.Background())
	require.NoError(t, err)
	st.Invalidate(tok)
	_, err = st.Access(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.refreshes)
	assert.Equal(t, 2, p.logins)
}

func TestInvalidateIgnoresStaleToken(t *testing.T) {
	p := &fakeProvider{pair: TokenPair{Access: signedToken(t, time.Now().Add(time.Hour))}}
	st := NewServiceToken(p)
	_, err := st.Access(context.Background())
	require.NoError(t, err)

	st.Invalidate("older")
	_, err = st.Access(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.logins)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, tokenExpiry(signedToken(t, exp)).Equal(exp))
	assert.True(t, tokenExpiry("opaque").IsZero())
}

// ----- APIClient against a fake API -----

type fakeAPI struct {
	mu       sync.Mutex
	valid    string
	logins   int
	bookings []Booking
	lastAuth string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/login/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if body["username"] != "svc" || body["password"] != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		f.logins++
		f.valid = "tok" + strconv.Itoa(f.logins)
		tok := f.valid
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(TokenPair{Access: tok, Refresh: "ref"})
	})
	mux.HandleFunc("/api/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	authed := func(w http.ResponseWriter, r *http.Request) bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastAuth = r.Header.Get("Authorization")
		if f.lastAuth != "JWT "+f.valid {
			w.WriteHeader(http.StatusUnauthorized)
			return false
		}
		return true
	}
	mux.HandleFunc("/api/menu-items", func(w http.ResponseWriter, r *http.Request) {
		if !authed(w, r) {
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"title":"latte","price":"2.99","inventory":5}]`))
	})
	mux.HandleFunc("/api/menu-items/", func(w http.ResponseWriter, r *http.Request) {
		if !authed(w, r) {
			return
		}
		if r.URL.Path != "/api/menu-items/1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":1,"title":"latte","price":"2.99","inventory":5}`))
	})
	mux.HandleFunc("/api/bookings", func(w http.ResponseWriter, r *http.Request) {
		if !authed(w, r) {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Method == http.MethodPost {
			var b Booking
			if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if b.NoOfGuests > 20 {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"no_of_guests":["Too many guests."]}`))
				return
			}
			f.bookings = append(f.bookings, b)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(b)
			return
		}
		out := []Booking{}
		for _, b := range f.bookings {
			if b.BookingDate == r.URL.Query().Get("date") {
				out = append(out, b)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	return mux
}

func newClient(t *testing.T) (*APIClient, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	cfg := Config{APIBaseURL: srv.URL + "/", Username: "svc", Password: "pw"}
	client := cfg.httpClient()
	return NewAPIClient(cfg, NewServiceToken(NewHTTPTokenProvider(cfg, client)), client), api
}

func TestAPIClientSendsJWTHeader(t *testing.T) {
	c, api := newClient(t)
	items, err := c.Menu(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "latte", items[0].Title)
	assert.Equal(t, "2.99", items[0].Price)
	assert.Equal(t, "JWT tok1", api.lastAuth)
}

func TestAPIClientRetriesOnceAfter401(t *testing.T) {
	c, api := newClient(t)
	_, err := c.Menu(context.Background())
	require.NoError(t, err)

	// The server forgets the token; the client logs in again.
	api.mu.Lock()
	api.valid = "rotated"
	api.logins = 1
	api.mu.Unlock()

	_, err = c.Menu(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "JWT tok2", api.lastAuth)
}

func TestAPIClientErrors(t *testing.T) {
	c, _ := newClient(t)

	_, err := c.MenuItem(context.Background(), 7)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	_, err = c.CreateBooking(context.Background(), Booking{Name: "pete", NoOfGuests: 50, BookingDate: "2023-03-04"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, map[string][]string{"no_of_guests": {"Too many guests."}}, apiErr.Fields)
}

func TestAPIClientBadCredentials(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()
	cfg := Config{APIBaseURL: srv.URL, Username: "svc", Password: "nope"}
	client := cfg.httpClient()
	c := NewAPIClient(cfg, NewServiceToken(NewHTTPTokenProvider(cfg, client)), client)

	_, err := c.Menu(context.Background())
	assert.ErrorIs(t, err, ErrCredentialsRejected)
}

// ----- Gateway pages -----

type stubAPI struct {
	menu     []MenuItem
	err      error
	created  []Booking
	bookings map[string][]Booking
	createEr error
}

func (s *stubAPI) Menu(context.Context) ([]MenuItem, error) { return s.menu, s.err }

func (s *stubAPI) MenuItem(_ context.Context, id uint64) (*MenuItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, m := range s.menu {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, &APIError{Status: http.StatusNotFound}
}

func (s *stubAPI) Bookings(_ context.Context, date string) ([]Booking, error) {
	return s.bookings[date], s.err
}

func (s *stubAPI) CreateBooking(_ context.Context, b Booking) (*Booking, error) {
	if s.createEr != nil {
		return nil, s.createEr
	}
	s.created = append(s.created, b)
	return &b, nil
}

func newPages(t *testing.T, api API) *echo.Echo {
	t.Helper()
	g, err := NewGateway(api, nil)
	require.NoError(t, err)
	g.Now = func() time.Time { return time.Date(2024, 5, 10, 23, 0, 0, 0, time.UTC) }
	e := echo.New()
	g.Register(e)
	return e
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func postForm(e *echo.Echo, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestStaticPages(t *testing.T) {
	e := newPages(t, &stubAPI{})
	for _, path := range []string{"/", "/about"} {
		rec := get(e, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "Little Lemon")
	}
}

func TestMenuPages(t *testing.T) {
	api := &stubAPI{menu: []MenuItem{{ID: 1, Title: "latte", Price: "2.99", Inventory: 5}}}
	e := newPages(t, api)

	rec := get(e, "/menu")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "latte")
	assert.Contains(t, rec.Body.String(), "$2.99")

	rec = get(e, "/menu-item/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "5 in stock")

	assert.Equal(t, http.StatusNotFound, get(e, "/menu-item/9").Code)
	assert.Equal(t, http.StatusNotFound, get(e, "/menu-item/x").Code)
}

func TestMenuPageUpstreamDown(t *testing.T) {
	e := newPages(t, &stubAPI{err: errors.New("connection refused")})
	rec := get(e, "/menu")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No items on the menu.")
	assert.Contains(t, rec.Body.String(), msgUnavailable)
}

func TestBookFormDefaults(t *testing.T) {
	e := newPages(t, &stubAPI{})
	rec := get(e, "/book")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="6"`)
	assert.Contains(t, rec.Body.String(), `value="2024-05-10"`)
}

func TestBookPostsToAPI(t *testing.T) {
	api := &stubAPI{}
	e := newPages(t, api)

	rec := postForm(e, "/book", url.Values{"name": {" pete "}, "no_of_guests": {""}, "booking_date": {""}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Your booking has been saved.")
	require.Len(t, api.created, 1)
	assert.Equal(t, Booking{Name: "pete", NoOfGuests: 6, BookingDate: "2024-05-10"}, api.created[0])
}

func TestBookFormValidation(t *testing.T) {
	api := &stubAPI{}
	e := newPages(t, api)

	rec := postForm(e, "/book", url.Values{"name": {""}, "no_of_guests": {"two"}, "booking_date": {"tomorrow"}})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "This field is required.")
	assert.Contains(t, body, "Enter a whole number.")
	assert.Contains(t, body, "Enter a valid date.")
	assert.Contains(t, body, `value="two"`)
	assert.Empty(t, api.created)
}

func TestBookShowsAPIFieldErrors(t *testing.T) {
	api := &stubAPI{createEr: &APIError{Status: http.StatusBadRequest, Fields: map[string][]string{"name": {"Rejected by API."}}}}
	e := newPages(t, api)

	rec := postForm(e, "/book", url.Values{"name": {"pete"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rejected by API.")
	assert.Contains(t, rec.Body.String(), `value="pete"`)
	assert.NotContains(t, rec.Body.String(), "Your booking has been saved.")
}

func TestBookingsPage(t *testing.T) {
	api := &stubAPI{bookings: map[string][]Booking{
		"2024-05-10": {{Name: "ann", NoOfGuests: 6, BookingDate: "2024-05-10"}},
		"2023-03-04": {{Name: "pete", NoOfGuests: 2, BookingDate: "2023-03-04"}},
	}}
	e := newPages(t, api)

	rec := get(e, "/bookings")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ann")
	assert.NotContains(t, rec.Body.String(), "pete")

	rec = get(e, "/bookings?date=2023-03-04")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pete")

	assert.Equal(t, http.StatusBadRequest, get(e, "/bookings?date=03/04/2023").Code)
}

func TestTodayUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	g, err := NewGateway(&stubAPI{}, loc)
	require.NoError(t, err)
	g.Now = func() time.Time { return time.Date(2024, 5, 10, 23, 0, 0, 0, time.UTC) }
	assert.Equal(t, "2024-05-11", g.today())
}
