package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/event-roster/internal/adapters"
	"github.com/example/event-roster/internal/application"
	"github.com/example/event-roster/internal/persistence"
	"github.com/example/event-roster/internal/persistence/memory"
)

// Services is a fully wired application layer over a document store.
type Services struct {
	Store    persistence.Store
	Clock    *Clock
	IDs      *IDGenerator
	Tokens   *IDGenerator
	Verifier *StaticVerifier
	Columns  application.ColumnMapping

	Directory *application.DirectoryService
	Import    *application.ImportService
	Ledger    *application.LedgerService
	Feedback  *application.FeedbackService
	Roster    *application.RosterService
	Events    *application.EventService
	CheckIn   *application.CheckInService
}

// ServicesOption configures NewServices.
type ServicesOption func(*servicesConfig)

type servicesConfig struct {
	store    persistence.Store
	clock    *Clock
	location *time.Location
	baseURL  string
	logger   *slog.Logger
}

// WithStore runs the services over store instead of an in-memory one.
func WithStore(store persistence.Store) ServicesOption {
	return func(c *servicesConfig) { c.store = store }
}

// WithClock overrides the clock shared by the services.
func WithClock(clock *Clock) ServicesOption {
	return func(c *servicesConfig) { c.clock = clock }
}

// WithLocation sets the location used for event times and feedback stamps.
func WithLocation(loc *time.Location) ServicesOption {
	return func(c *servicesConfig) { c.location = loc }
}

// WithPublicBaseURL sets the share link prefix.
func WithPublicBaseURL(base string) ServicesOption {
	return func(c *servicesConfig) { c.baseURL = base }
}

// WithLogger sets the logger handed to every service.
func WithLogger(logger *slog.Logger) ServicesOption {
	return func(c *servicesConfig) { c.logger = logger }
}

// NewServices wires every application service with deterministic clocks and
// ids. Registration instants tick by one second per reading.
func NewServices(opts ...ServicesOption) *Services {
	cfg := servicesConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.store == nil {
		cfg.store = memory.New()
	}
	if cfg.clock == nil {
		cfg.clock = NewTickingClock(time.Time{}, time.Second)
	}
	if cfg.location == nil {
		cfg.location = time.UTC
	}

	repos := adapters.New(persistence.NewRepositories(cfg.store))
	columns := application.DefaultColumnMapping()
	now := cfg.clock.NowFunc()

	s := &Services{
		Store:    cfg.store,
		Clock:    cfg.clock,
		IDs:      NewIDGenerator("evt"),
		Tokens:   NewIDGenerator("tok"),
		Verifier: NewStaticVerifier(),
		Columns:  columns,
	}

	s.Directory = application.NewDirectoryServiceWithLogger(repos.Directory, columns, cfg.logger)
	s.Import = application.NewImportServiceWithLogger(repos.Directory, columns, 4, cfg.logger)
	s.Ledger = application.NewLedgerServiceWithLogger(repos.Registrations, now, cfg.logger)
	s.Feedback = application.NewFeedbackServiceWithLogger(repos.Registrations, now, cfg.location, cfg.logger)
	s.Roster = application.NewRosterServiceWithLogger(repos.Registrations, repos.Directory, columns, 4, cfg.logger)
	s.Events = application.NewEventServiceWithLogger(repos.Events, s.Ledger, s.IDs.NextFunc(), now, application.EventServiceConfig{
		Location:      cfg.location,
		PublicBaseURL: cfg.baseURL,
	}, cfg.logger)
	s.CheckIn = application.NewCheckInService(application.CheckInDeps{
		Verifier:       s.Verifier,
		Events:         repos.Events,
		Ledger:         s.Ledger,
		Sessions:       repos.Sessions,
		Directory:      repos.Directory,
		Columns:        columns,
		TokenGenerator: s.Tokens.NextFunc(),
		Now:            now,
		Logger:         cfg.logger,
	})
	return s
}
