// Package questline parses ledger service flags and launches the service.
package questline

import (
	"context"
	"flag"
	"strings"

	"github.com/louisbranch/questline/internal/ledger/app"
	entrypoint "github.com/louisbranch/questline/internal/platform/cmd"
)

// Config holds questline command configuration.
type Config struct {
	Port            int      `env:"QUESTLINE_PORT" envDefault:"8090"`
	StorageDriver   string   `env:"QUESTLINE_STORAGE_DRIVER" envDefault:"bbolt"`
	StoragePath     string   `env:"QUESTLINE_STORAGE_PATH" envDefault:"questline.db"`
	ServiceIdentity string   `env:"QUESTLINE_SERVICE_IDENTITY" envDefault:"questline"`
	Identities      []string `env:"QUESTLINE_IDENTITIES" envSeparator:","`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The ledger HTTP server port")
	fs.StringVar(&cfg.StorageDriver, "storage-driver", cfg.StorageDriver, "Record store backend (bbolt or sqlite)")
	fs.StringVar(&cfg.StoragePath, "storage-path", cfg.StoragePath, "Record store on-disk path")
	fs.StringVar(&cfg.ServiceIdentity, "service-identity", cfg.ServiceIdentity, "The ledger's own account name")
	identities := fs.String("identities", strings.Join(cfg.Identities, ","), "Comma-separated enrolled identities (empty accepts all)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if *identities == "" {
		cfg.Identities = nil
	} else {
		cfg.Identities = strings.Split(*identities, ",")
	}
	return cfg, nil
}

// Run starts the quest ledger service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceLedger, func(context.Context) error {
		return app.Run(ctx, app.Config{
			Port:            cfg.Port,
			StorageDriver:   cfg.StorageDriver,
			StoragePath:     cfg.StoragePath,
			ServiceIdentity: cfg.ServiceIdentity,
			Identities:      cfg.Identities,
		})
	})
}
