// Command server runs the restaurant API and, when a service account is
// configured, the server-rendered pages.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/littlelemon/restaurant/internal/auth"
	"github.com/littlelemon/restaurant/internal/config"
	"github.com/littlelemon/restaurant/internal/database"
	"github.com/littlelemon/restaurant/internal/frontend"
	"github.com/littlelemon/restaurant/internal/handler"
	"github.com/littlelemon/restaurant/internal/metrics"
	"github.com/littlelemon/restaurant/internal/middleware"
	"github.com/littlelemon/restaurant/internal/queue"
	"github.com/littlelemon/restaurant/internal/repository"
	"github.com/littlelemon/restaurant/internal/router"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql connect failed: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	m := metrics.New()

	// Booking events are optional; without a broker bookings are only stored.
	var events handler.BookingEvents
	if cfg.Queue.Enabled {
		events = queue.NewPublisher(cfg.Queue.URL)
		if cfg.Queue.ConsumerEnabled {
			consumer := &queue.Consumer{URL: cfg.Queue.URL, LogDir: cfg.Queue.LogDir}
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("booking consumer stopped: %v", err)
				}
			}()
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Printf("redis unavailable at %s; rate limiting disabled", cfg.Redis.Addr)
	} else {
		defer rdb.Close()
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL())
	deps := router.Deps{
		Menu:        handler.NewMenuHandler(repository.NewMenuRepo(db), m),
		Bookings:    handler.NewBookingHandler(repository.NewBookingRepo(db), events, m),
		Auth:        handler.NewAuthHandler(repository.NewUserRepo(db), repository.NewTokenRepo(db), issuer, cfg.BcryptCost),
		Validator:   auth.NewJWTValidator(cfg.JWTSecret),
		Health:      handler.Health(db),
		Metrics:     m,
		RateLimit:   middleware.NewTokenBucket(cfg.RateLimit, rdb),
		IPExtractor: middleware.IPExtractor(cfg.RateLimit),
		Logger:      slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	// The pages log in to the API as a service account; without one
	// only the API is served.
	if cfg.Frontend.Username != "" {
		loc, err := time.LoadLocation(cfg.Frontend.TimeZone)
		if err != nil {
			log.Fatalf("frontend timezone %q: %v", cfg.Frontend.TimeZone, err)
		}
		pages, err := frontend.New(frontend.Config{
			APIBaseURL: cfg.Frontend.APIBaseURL,
			Username:   cfg.Frontend.Username,
			Password:   cfg.Frontend.Password,
			Location:   loc,
			Timeout:    cfg.Frontend.Timeout,
		})
		if err != nil {
			log.Fatalf("frontend: %v", err)
		}
		deps.Pages = pages
	}

	e := router.New(deps)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
