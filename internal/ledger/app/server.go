// Package app assembles the ledger service: it opens the configured
// record store, wires the ledger facade over it, and serves the HTTP
// collaborator surface until the context ends.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/louisbranch/questline/internal/ledger/api"
	"github.com/louisbranch/questline/internal/ledger/domain"
	"github.com/louisbranch/questline/internal/ledger/service"
	"github.com/louisbranch/questline/internal/ledger/storage"
	bboltstore "github.com/louisbranch/questline/internal/ledger/storage/bbolt"
	sqlitestore "github.com/louisbranch/questline/internal/ledger/storage/sqlite"
	"github.com/louisbranch/questline/internal/platform/timeouts"
	"github.com/louisbranch/questline/internal/telemetry"
)

// Config holds the assembled service's runtime settings.
type Config struct {
	// Port is the HTTP listen port.
	Port int
	// StorageDriver selects the record store backend: "bbolt" or "sqlite".
	StorageDriver string
	// StoragePath is the store's on-disk location.
	StoragePath string
	// ServiceIdentity is the ledger's own account name.
	ServiceIdentity string
	// Identities enrolls the identities the authorization oracle accepts.
	// Empty means every well-formed identity is accepted and authorization
	// is delegated to the transport in front of the service.
	Identities []string
}

// dataStore is the store surface the assembled service needs: the full
// record store plus the telemetry log, and a shutdown hook.
type dataStore interface {
	storage.Store
	storage.TelemetryStore
	Close() error
}

func openStore(cfg Config) (dataStore, error) {
	switch cfg.StorageDriver {
	case "", "bbolt":
		return bboltstore.Open(cfg.StoragePath)
	case "sqlite":
		return sqlitestore.Open(cfg.StoragePath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// Run assembles the service from cfg and serves HTTP until ctx ends. On
// cancellation it performs a bounded shutdown so in-flight requests are
// drained before hard close.
func Run(ctx context.Context, cfg Config) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	ledger := service.NewLedger(store,
		newEnrollmentAuthenticator(cfg.Identities),
		domain.Identity(cfg.ServiceIdentity),
		service.WithTelemetry(telemetry.NewEmitter(store)),
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.NewServer(ledger).Handler(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	serveErr := make(chan error, 1)
	log.Printf("questline ledger listening on %s", httpServer.Addr)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
