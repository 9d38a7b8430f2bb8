package frontend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshSkew is how close to expiry a cached access token is replaced.
const refreshSkew = 30 * time.Second

// ErrCredentialsRejected is returned when the token gateway answers 401.
var ErrCredentialsRejected = errors.New("token gateway rejected credentials")

// TokenPair is the response of a successful login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenProvider obtains tokens for the service account.
type TokenProvider interface {
	Login(ctx context.Context) (TokenPair, error)
	Refresh(ctx context.Context, refresh string) (string, error)
}

// HTTPTokenProvider calls the token gateway endpoints over HTTP.
type HTTPTokenProvider struct {
	BaseURL  string
	Username string
	Password string
	Client   *http.Client
}

func NewHTTPTokenProvider(cfg Config, client *http.Client) *HTTPTokenProvider {
	return &HTTPTokenProvider{
		BaseURL:  strings.TrimRight(cfg.APIBaseURL, "/"),
		Username: cfg.Username,
		Password: cfg.Password,
		Client:   client,
	}
}

// Login exchanges the configured credentials for a token pair.
func (p *HTTPTokenProvider) Login(ctx context.Context) (TokenPair, error) {
	var pair TokenPair
	err := p.post(ctx, "/api/token/login/", map[string]string{
		"username": p.Username,
		"password": p.Password,
	}, &pair)
	if err != nil {
		return TokenPair{}, fmt.Errorf("login: %w", err)
	}
	if pair.Access == "" {
		return TokenPair{}, errors.New("login: empty access token")
	}
	return pair, nil
}

// Refresh exchanges a refresh token for a new access token.
func (p *HTTPTokenProvider) Refresh(ctx context.Context, refresh string) (string, error) {
	var out struct {
		Access string `json:"access"`
	}
	if err := p.post(ctx, "/api/token/refresh/", map[string]string{"refresh": refresh}, &out); err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}
	if out.Access == "" {
		return "", errors.New("refresh: empty access token")
	}
	return out.Access, nil
}

func (p *HTTPTokenProvider) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrCredentialsRejected
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ServiceToken caches the service account's access token.  The token is
// renewed when it is within refreshSkew of expiry or after Invalidate;
// renewal tries the refresh token first and falls back to a new login.
type ServiceToken struct {
	provider TokenProvider
	now      func() time.Time

	mu      sync.Mutex
	access  string
	refresh string
	exp     time.Time // zero when the token carries no exp claim
}

func NewServiceToken(p TokenProvider) *ServiceToken {
	return &ServiceToken{provider: p, now: time.Now}
}

// Access returns a usable access token.
func (s *ServiceToken) Access(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.access != "" && (s.exp.IsZero() || s.now().Add(refreshSkew).Before(s.exp)) {
		return s.access, nil
	}
	if s.refresh != "" {
		access, err := s.provider.Refresh(ctx, s.refresh)
		if err == nil {
			s.set(access, s.refresh)
			return access, nil
		}
	}
	pair, err := s.provider.Login(ctx)
	if err != nil {
		s.access, s.refresh = "", ""
		return "", err
	}
	s.set(pair.Access, pair.Refresh)
	return pair.Access, nil
}

// Invalidate drops token if it is still the cached one, so the next
// Access call renews it.
func (s *ServiceToken) Invalidate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.access == token {
		s.access = ""
	}
}

func (s *ServiceToken) set(access, refresh string) {
	s.access = access
	s.refresh = refresh
	s.exp = tokenExpiry(access)
}

// tokenExpiry reads the exp claim without verifying the signature; the
// API verifies it on every call.
func tokenExpiry(raw string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
