package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/sandevgo/tusknet/internal/config"
	"github.com/sandevgo/tusknet/internal/core"
	"github.com/sandevgo/tusknet/internal/providers/driver"
	"github.com/sandevgo/tusknet/internal/providers/parser"
	"github.com/sandevgo/tusknet/internal/service/device"
	"github.com/sandevgo/tusknet/internal/storage/sqlite"
	"github.com/sandevgo/tusknet/internal/transport/mcp"
	"github.com/sandevgo/tusknet/pkg/log"
	"github.com/sandevgo/tusknet/pkg/srv"
)

// loadConfig reads .env, the process config and the device manifest.
func loadConfig(ctx context.Context) (*config.AppConfig, *config.Manifest, error) {
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		return nil, nil, err
	}

	appCfg, err := config.LoadAppConfig()
	if err != nil {
		return nil, nil, err
	}

	manifest, err := config.LoadManifest(appCfg.GetManifestPath())
	if err != nil {
		return nil, nil, err
	}

	if lvl := manifest.Server.LogLevel; lvl != "" && !debug && !config.IsDebug() {
		if err := log.SetLevel(lvl); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Msg("ignoring manifest log level")
		}
	}
	return appCfg, manifest, nil
}

func NewServices(ctx context.Context, appCfg *config.AppConfig, manifest *config.Manifest) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// 1. Storage
	var journal core.SessionJournal
	if appCfg.IsJournalEnabled() {
		db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize storage")
		}
		services = append(services, srv.NewCleanup(db.Close))
		journal = sqlite.NewJournal(db)
	}

	// 2. Devices
	dispatcher, err := newDispatcher(appCfg, manifest, journal)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize device drivers")
	}
	services = append(services, dispatcher)

	logger.Info().
		Int("manifest_devices", len(manifest.Devices)).
		Str("manifest", appCfg.GetManifestPath()).
		Msg("device inventory loaded")

	// 3. Transport
	var opts []mcp.Option
	if appCfg.IsHTTPTransport() {
		opts = append(opts, mcp.WithHTTP(appCfg.GetHTTPAddr()))
	}
	services = append(services, mcp.NewServer(dispatcher, opts...))

	return services
}

func newDispatcher(appCfg *config.AppConfig, manifest *config.Manifest, journal core.SessionJournal) (*device.Dispatcher, error) {
	drivers, err := driver.NewFactory(appCfg.GetKnownHostsPath())
	if err != nil {
		return nil, err
	}

	inventory := make(map[string]device.InventoryEntry, len(manifest.Devices))
	for id, dev := range manifest.Devices {
		inventory[id] = device.InventoryEntry{Params: dev.Params(), AutoConnect: dev.AutoConnect}
	}

	return device.NewDispatcher(device.NewRegistry(), drivers,
		device.WithParser(parser.New()),
		device.WithJournal(journal),
		device.WithCommandTimeout(appCfg.GetCommandTimeout()),
		device.WithInventory(inventory),
	), nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
