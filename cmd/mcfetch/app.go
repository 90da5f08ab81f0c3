package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/vertextoedge/mcfetch/internal/adapter/filesystem"
	"github.com/vertextoedge/mcfetch/internal/adapter/httpclient"
	"github.com/vertextoedge/mcfetch/internal/adapter/loadermeta"
	"github.com/vertextoedge/mcfetch/internal/adapter/sqlite"
	"github.com/vertextoedge/mcfetch/internal/config"
	"github.com/vertextoedge/mcfetch/internal/domain/event"
	"github.com/vertextoedge/mcfetch/internal/domain/service"
	"github.com/vertextoedge/mcfetch/internal/logger"
	"github.com/vertextoedge/mcfetch/internal/port"
	"github.com/vertextoedge/mcfetch/internal/service/downloader"
	"github.com/vertextoedge/mcfetch/internal/service/gate"
	"github.com/vertextoedge/mcfetch/internal/service/maintenance"
	"github.com/vertextoedge/mcfetch/internal/service/resolver"
)

// app holds the shared services every command wires from config.
// The gate and version cache are built once and shared by reference.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	fs         *filesystem.Manager
	store      *sqlite.Store
	dispatcher *event.InMemoryDispatcher
	metrics    *event.MetricsHandler
	gate       *gate.Gate
	downloader *downloader.Downloader
	resolver   *resolver.Resolver
}

func loadConfig(o *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.rootDir != "" {
		cfg.Storage.RootDir = o.rootDir
	}
	return cfg, cfg.Validate()
}

func newApp(o *globalOptions) (*app, error) {
	cfg, err := loadConfig(o)
	if err != nil {
		return nil, err
	}

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{cfg: cfg, logger: zapLogger}

	a.fs, err = filesystem.NewManager(cfg.Storage.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem manager: %w", err)
	}

	dbPath := cfg.Storage.GetDatabasePath()
	a.store, err = sqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}

	a.dispatcher = event.NewInMemoryDispatcher(false)
	a.metrics = event.NewMetricsHandler()
	a.dispatcher.Subscribe(event.NewLoggingHandler(zapLogger))
	a.dispatcher.Subscribe(a.metrics)

	client := httpclient.New(&httpclient.Config{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: cfg.Network.MaxIdleConnsPerHost,
		IdleConnTimeout:     httpclient.DefaultConfig().IdleConnTimeout,
		DialTimeout:         cfg.Network.GetDialTimeout(),
		TLSHandshakeTimeout: httpclient.DefaultConfig().TLSHandshakeTimeout,
		SkipTLSVerify:       cfg.Network.SkipTLSVerify,
	})

	a.gate, err = gate.New(cfg.Download.GateLimits(), cfg.Download.GlobalConcurrency)
	if err != nil {
		a.Close()
		return nil, err
	}

	mirrors, err := service.NewMirrorRegistry(cfg.MirrorRules())
	if err != nil {
		a.Close()
		return nil, err
	}

	a.downloader = downloader.New(&downloader.Config{
		Timeouts:            cfg.Download.GetTimeouts(downloader.DefaultTimeouts()),
		ProgressInterval:    cfg.Download.GetProgressInterval(),
		RetriesPerMirror:    cfg.Download.RetriesPerMirror,
		VerifySidecar:       cfg.Download.VerifySidecar,
		MaxDiskUsagePercent: cfg.Download.MaxDiskUsagePercent,
		UserAgent:           cfg.Network.UserAgent,
		MaxParallelFetches:  cfg.Download.MaxParallelFetches,
	}, client, a.fs, a.gate, mirrors, a.store, a.dispatcher, zapLogger)

	fetchers := loadermeta.NewFetchers(client, &loadermeta.Config{
		FabricURL:   cfg.Versions.FabricURL,
		QuiltURL:    cfg.Versions.QuiltURL,
		ForgeURL:    cfg.Versions.ForgeURL,
		NeoForgeURL: cfg.Versions.NeoForgeURL,
		Timeout:     cfg.Versions.GetFetchTimeout(),
		UserAgent:   cfg.Network.UserAgent,
	})
	cache := resolver.NewVersionCache(cfg.Versions.GetCacheTTL(), port.SystemClock{})
	a.resolver = resolver.New(fetchers, cache, a.dispatcher, zapLogger)

	zapLogger.Debug("services initialized",
		zap.String("root_dir", a.fs.RootDir()),
		zap.String("database", dbPath),
		zap.Int("mirror_rules", mirrors.Len()),
		zap.Strings("loaders", a.resolver.Loaders()))

	return a, nil
}

func (a *app) maintenance() *maintenance.Service {
	return maintenance.New(&maintenance.Config{
		CleanupInterval: a.cfg.Maintenance.GetInterval(),
		TempFileMaxAge:  a.cfg.Maintenance.GetTempFileMaxAge(),
	}, a.store, a.fs, a.logger)
}

// Close releases the ledger and flushes logs
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
