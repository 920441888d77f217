// package server contains the router, middleware & handlers of the reference REST backend
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/marquee/internal/repositories"
	"github.com/desertthunder/marquee/internal/services"
	"github.com/desertthunder/marquee/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that owns a set of route patterns.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the mux patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

const shutdownTimeout = 5 * time.Second

// Server is the reference backend: the REST API plus the periodic notification job.
type Server struct {
	cfg       shared.ServerConfig
	router    *BasicRouter
	notifier  *Notifier
	scheduler *Scheduler
	logger    *log.Logger
}

// New wires the repositories, notifier and routes on db. catalog may be nil, in which case
// only due reminders produce notifications.
func New(cfg shared.ServerConfig, db *sql.DB, catalog services.Catalog, region string, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = shared.WithLogger(logger, "component", "server")

	lists := repositories.NewListEntryRepository(db)
	notifications := repositories.NewNotificationRepository(db)
	reminders := repositories.NewReminderRepository(db)
	notifier := NewNotifier(catalog, lists, notifications, reminders, region, logger)

	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger))
	NewAPI(lists, notifications, reminders, notifier, logger).Register(router)

	s := &Server{cfg: cfg, router: router, notifier: notifier, logger: logger}

	if cfg.NotifyInterval > 0 {
		scheduler, err := NewScheduler(logger)
		if err != nil {
			return nil, err
		}
		if err := scheduler.Every("fetch-catalog-notifications", cfg.NotifyInterval, func(ctx context.Context) error {
			_, err := notifier.Run(ctx)
			return err
		}); err != nil {
			return nil, err
		}
		s.scheduler = scheduler
	}

	return s, nil
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Notifier returns the notification generator shared by the admin route and the scheduled job.
func (s *Server) Notifier() *Notifier {
	return s.notifier
}

// ListenAndServe serves until ctx is cancelled, then shuts down the HTTP server and the scheduler.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.scheduler != nil {
		s.scheduler.Start()
		defer func() {
			if err := s.scheduler.Shutdown(); err != nil {
				s.logger.Warn("error shutting down scheduler", "error", err)
			}
		}()
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
