// Package frontend serves the restaurant's server-rendered pages.  Pages
// read and write data only through the HTTP API, authenticated as a
// service account.
package frontend

import (
	"net/http"
	"time"
)

// Config is everything the pages need to reach the API.
type Config struct {
	APIBaseURL string
	Username   string
	Password   string
	Location   *time.Location // nil means UTC
	Timeout    time.Duration  // per API call; zero means 5s
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c Config) httpClient() *http.Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
