package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/marquee/internal/repositories"
	"github.com/desertthunder/marquee/internal/services"
	"github.com/desertthunder/marquee/internal/shared"
	"github.com/desertthunder/marquee/internal/store"
	"github.com/desertthunder/marquee/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.Catalog
	backend    services.Backend
	api        *services.APIService
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	openURL    func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog
	Backend    services.Backend
	API        *services.APIService
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	OpenURL    func(string) error
}

// NewRunner creates a new Runner with the provided configuration.
//
// Missing collaborators are built from the configuration. The backend needs a user id;
// without one, commands that talk to it fail with [shared.ErrMissingUser].
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}
	if opts.Catalog == nil {
		opts.Catalog = services.NewCatalogService(opts.Config.Catalog, opts.HTTPClient, opts.Logger)
	}
	if opts.Backend == nil {
		if backend, err := services.NewBackendService(opts.Config.Backend, opts.Config.User.ID, nil); err == nil {
			opts.Backend = backend
			if opts.API == nil {
				opts.API = backend.API()
			}
		} else {
			opts.Logger.Debug("backend unavailable", "error", err)
		}
	}
	if opts.API == nil {
		opts.API = services.NewAPIService(opts.Config.Backend.BaseURL, opts.HTTPClient)
		if opts.Config.User.ID != "" {
			opts.API.SetHeader(services.UserHeader, opts.Config.User.ID)
		}
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		backend:    opts.Backend,
		api:        opts.API,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		openURL:    opts.OpenURL,
	}
}

// SetLogger replaces the runner's logger, e.g. to keep log output away from the TUI.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, listsCommand, browseCommand, searchCommand, detailCommand, playCommand,
		notificationsCommand, remindCommand, exportCommand, cacheCommand, serveCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// database returns the runner's database, opening and migrating it on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	r.db = db
	return db, nil
}

// Close releases the database if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// session is the set of components one client session works with.
type session struct {
	store        *store.Store
	remote       *tasks.BestEffort
	synchronizer *tasks.Synchronizer
	hydrator     *tasks.Hydrator
	composer     *tasks.RowComposer
	presenter    *tasks.Presenter
	feed         *tasks.NotificationFeed
	exporter     *tasks.Exporter
}

// session builds the store for the configured user, seeded from the durable cache, and the workflows around it.
func (r *Runner) session() (*session, error) {
	if r.backend == nil {
		return nil, fmt.Errorf("%w: set user.id or %s", shared.ErrMissingUser, shared.EnvUserID)
	}

	db, err := r.database()
	if err != nil {
		return nil, err
	}

	st, err := store.New(r.config.User.ID, repositories.NewCacheRepository(db), store.Options{
		Logger:      r.logger,
		DetailsSize: r.config.Cache.DetailsSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	if n := st.Restore(); n > 0 {
		r.logger.Debug("restored cached collections", "items", n)
	}

	remote := tasks.NewBestEffort(r.logger)
	hydrator := tasks.NewHydrator(st, r.catalog, r.config.Rows.Concurrency, r.logger)

	return &session{
		store:        st,
		remote:       remote,
		synchronizer: tasks.NewSynchronizer(st, r.backend, remote, r.logger),
		hydrator:     hydrator,
		composer:     tasks.NewRowComposer(r.catalog, r.config.Rows.Concurrency, nil, r.logger),
		presenter:    tasks.NewPresenter(st, r.catalog, r.config.Presenter.Timeout, r.config.Catalog.BackdropBaseURL, r.logger),
		feed:         tasks.NewNotificationFeed(st, r.backend, remote, r.logger),
		exporter:     tasks.NewExporter(st, hydrator, r.logger),
	}, nil
}

// printProgress writes updates from the returned channel until it is closed.
// The returned done channel closes once every update has been written.
func (r *Runner) printProgress() (chan tasks.ProgressUpdate, <-chan struct{}) {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			switch update.Phase {
			case tasks.FetchLists:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.FetchRows:
				r.writePlain("🎬 %s\n", update.Message)
			case tasks.Hydrate:
				r.writePlain("💧 %s\n", update.Message)
			case tasks.Export:
				r.writePlain("📝 %s\n", update.Message)
			}
		}
	}()

	return progress, done
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
