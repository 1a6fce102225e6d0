package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/event-roster/internal/adapters"
	"github.com/example/event-roster/internal/application"
	"github.com/example/event-roster/internal/config"
	"github.com/example/event-roster/internal/persistence"
	"github.com/example/event-roster/internal/persistence/memory"
	"github.com/example/event-roster/internal/persistence/mongo"
	"github.com/example/event-roster/internal/persistence/sqlite"
)

// openStore connects the document store selected by cfg.StoreDriver and
// bounds every call by cfg.StoreTimeout.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, error) {
	var store persistence.Store

	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		store = memory.New()
	case config.DriverMongo:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		defer cancel()
		mstore, err := mongo.Connect(connectCtx, mongo.Config{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDatabase,
			ConnectTimeout: cfg.StoreTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		store = mstore
	default:
		sstore, err := sqlite.Open(cfg.SQLiteDSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := sstore.Migrate(ctx); err != nil {
			_ = sstore.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		store = sstore
	}

	logger.Info("document store ready", "driver", cfg.StoreDriver)
	return persistence.WithTimeout(store, cfg.StoreTimeout), nil
}

// services is the application layer wired over one store.
type services struct {
	directory *application.DirectoryService
	importer  *application.ImportService
	ledger    *application.LedgerService
	feedback  *application.FeedbackService
	roster    *application.RosterService
	events    *application.EventService
	checkIn   *application.CheckInService
}

func newServices(store persistence.Store, cfg config.Config, verifier application.PhoneVerifier, logger *slog.Logger) services {
	repos := adapters.New(persistence.NewRepositories(store))
	columns := columnMapping(cfg)
	now := time.Now

	var s services
	s.directory = application.NewDirectoryServiceWithLogger(repos.Directory, columns, logger)
	s.importer = application.NewImportServiceWithLogger(repos.Directory, columns, cfg.ImportConcurrency, logger)
	s.ledger = application.NewLedgerServiceWithLogger(repos.Registrations, now, logger)
	s.feedback = application.NewFeedbackServiceWithLogger(repos.Registrations, now, cfg.Location, logger)
	s.roster = application.NewRosterServiceWithLogger(repos.Registrations, repos.Directory, columns, cfg.ImportConcurrency, logger)
	s.events = application.NewEventServiceWithLogger(repos.Events, s.ledger, uuid.NewString, now, application.EventServiceConfig{
		Location:      cfg.Location,
		PublicBaseURL: cfg.PublicBaseURL,
	}, logger)
	s.checkIn = application.NewCheckInService(application.CheckInDeps{
		Verifier:       verifier,
		Events:         repos.Events,
		Ledger:         s.ledger,
		Sessions:       repos.Sessions,
		Directory:      repos.Directory,
		Columns:        columns,
		TokenGenerator: func() string { return randomHex(32) },
		Now:            now,
		SessionTTL:     cfg.SessionTTL,
		Logger:         logger,
	})
	return s
}

func columnMapping(cfg config.Config) application.ColumnMapping {
	columns := application.DefaultColumnMapping()
	if len(cfg.PhoneColumns) > 0 {
		columns.PhoneColumns = cfg.PhoneColumns
	}
	if cfg.NameColumn != "" {
		columns.NameColumn = cfg.NameColumn
	}
	if cfg.CodeColumn != "" {
		columns.CodeColumn = cfg.CodeColumn
	}
	if cfg.CategoryColumn != "" {
		columns.CategoryColumn = cfg.CategoryColumn
	}
	return columns
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
