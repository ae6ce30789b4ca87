package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"bizdash/internal/amqp"
	"bizdash/internal/auth"
	"bizdash/internal/backend"
	"bizdash/internal/cache"
	"bizdash/internal/config"
	"bizdash/internal/core"
	"bizdash/internal/log"
	"bizdash/internal/metrics"
	"bizdash/internal/optimistic"
	"bizdash/internal/override"
	"bizdash/internal/remote"
	"bizdash/internal/services"
	"bizdash/internal/sheets"
	gsheet "bizdash/internal/sheets/google"
	"bizdash/internal/state"
	"bizdash/internal/syncer"
)

// ErrExportDisabled is returned by export commands when no sheet writer is set up.
var ErrExportDisabled = errors.New("sheets export is not configured (set GOOGLE_SPREADSHEET_ID)")

// App holds every collaborator the commands use.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Metrics   *metrics.Metrics
	SessionID string

	Session    *auth.Session
	Client     *remote.Client
	State      *state.Store
	Overrides  *override.Cache
	Syncer     *syncer.Syncer
	Controller *optimistic.Controller
	Cache      *cache.Manager
	Ledger     backend.ScopeLedger
	AMQP       *amqp.Client
	Sheets     sheets.RowWriter

	Clients     *services.ClientService
	Projects    *services.ProjectService
	Invoices    *services.InvoiceService
	CreditNotes *services.CreditNoteService
	Deals       *services.PipelineService
	Leads       *services.PipelineService
	TimeLogs    *services.TimeLogService

	store *backend.StoreResult
}

type appOptions struct {
	transport http.RoundTripper
	writer    sheets.RowWriter
	backend   *backend.Config
	noAMQP    bool
}

// AppOption adjusts NewApp, mostly for tests.
type AppOption func(*appOptions)

// WithTransport sends backend calls through rt.
func WithTransport(rt http.RoundTripper) AppOption {
	return func(o *appOptions) { o.transport = rt }
}

// WithRowWriter uses w for exports instead of the configured spreadsheet.
func WithRowWriter(w sheets.RowWriter) AppOption {
	return func(o *appOptions) { o.writer = w }
}

// WithBackend overrides the key/value backend from the config.
func WithBackend(cfg backend.Config) AppOption {
	return func(o *appOptions) { o.backend = &cfg }
}

// WithoutAMQP skips the broker even when AMQP_URL is set.
func WithoutAMQP() AppOption {
	return func(o *appOptions) { o.noAMQP = true }
}

// NewApp wires the stack described by cfg.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...AppOption) (*App, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = log.Discard()
	}

	app := &App{Config: cfg, Logger: logger, SessionID: uuid.NewString()}

	m, err := metrics.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}
	app.Metrics = m

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	if o.backend != nil {
		bcfg = *o.backend
	}
	store, err := backend.NewFactory(logger).CreateStore(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	app.store = store
	app.Ledger = store.Ledger

	app.Session = auth.NewSession(store.Store)
	clientOpts := []remote.Option{remote.WithTimeout(cfg.RequestTimeout), remote.WithLogger(logger)}
	if o.transport != nil {
		clientOpts = append(clientOpts, remote.WithTransport(o.transport))
	}
	app.Client = remote.New(cfg.APIBaseURL, app.Session, clientOpts...)

	app.State = state.NewStore(cfg.StateCacheSize, cfg.StateCacheTTL)
	app.Overrides = override.New(store.Store,
		override.WithNamespace(cfg.OverrideNamespace),
		override.WithIDKeys(core.MustResource(core.Projects).IDKeys...),
		override.WithLogger(logger))

	app.Cache = cache.NewManager(logger)
	app.Cache.Register(app.State.Cleaner())
	app.State.OnEvict(func(key string) {
		logger.Debug("Scope evicted from state", log.FieldScope, key)
	})

	syncOpts := []syncer.Option{
		syncer.WithOverride(core.Projects, app.Overrides),
		syncer.WithLogger(logger),
	}
	if store.Ledger != nil {
		syncOpts = append(syncOpts, syncer.WithLedger(store.Ledger))
	}
	app.Syncer = syncer.New(app.Client, app.State, syncOpts...)

	ctrlOpts := []optimistic.Option{
		optimistic.WithOverrides(app.Overrides),
		optimistic.WithRecorder(app.Metrics),
		optimistic.WithLogger(logger),
	}
	if cfg.AMQPEnabled() && !o.noAMQP {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// events are best effort; the dashboard works without them
			logger.Warn("AMQP unavailable, mutation events disabled", log.FieldError, err.Error())
		} else {
			app.AMQP = client
			ctrlOpts = append(ctrlOpts, optimistic.WithNotifier(amqp.NewNotifier(client, app.SessionID, app.Metrics, logger)))
		}
	}
	app.Controller = optimistic.New(app.State, app.Client, app.Syncer, ctrlOpts...)

	switch {
	case o.writer != nil:
		app.Sheets = o.writer
	case cfg.SheetsEnabled():
		w, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			OAuthTokenJSON:     cfg.GoogleOAuthTokenJSON,
		}, logger)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("create sheets client: %w", err)
		}
		app.Sheets = w
	}

	deps := services.Deps{Syncer: app.Syncer, Controller: app.Controller, Client: app.Client, Logger: logger}
	app.Clients = services.NewClientService(deps)
	app.Projects = services.NewProjectService(deps)
	app.Invoices = services.NewInvoiceService(deps)
	app.CreditNotes = services.NewCreditNoteService(deps)
	app.TimeLogs = services.NewTimeLogService(deps)
	if app.Deals, err = services.NewPipelineService(deps, core.Deals); err != nil {
		return nil, err
	}
	if app.Leads, err = services.NewPipelineService(deps, core.Leads); err != nil {
		return nil, err
	}

	return app, nil
}

// Close releases the broker connection and the key/value store.
func (a *App) Close() error {
	a.Cache.Stop()
	var errs []error
	if a.AMQP != nil {
		errs = append(errs, a.AMQP.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}
