package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/event-roster/internal/application"
	"github.com/example/event-roster/internal/config"
	httptransport "github.com/example/event-roster/internal/http"
	"github.com/example/event-roster/internal/logging"
	"github.com/example/event-roster/internal/verification"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := logging.New(os.Stdout, cfg.LogLevel)

	adminKeys, err := application.NewAdminKeyVerifier(cfg.AdminKeyHash)
	if err != nil {
		return fmt.Errorf("ROSTER_ADMIN_KEY_HASH: %w", err)
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	verifier := verification.NewClient(cfg.VerifyURL, cfg.VerifyTimeout, verification.WithLogger(logger))
	svc := newServices(store, cfg, verifier, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		CheckIn:    httptransport.NewCheckInHandler(svc.checkIn, logger),
		Events:     httptransport.NewEventHandler(svc.events, logger),
		Roster:     httptransport.NewRosterHandler(svc.roster, svc.ledger, svc.feedback, logger),
		Directory:  httptransport.NewDirectoryHandler(svc.directory, svc.importer, logger),
		Admin:      httptransport.RequireAdmin(adminKeys, logger),
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("roster API listening", "addr", server.Addr, "store", cfg.StoreDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		return err
	}
	return nil
}
