package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/conduit-lang/dataservice/internal/cli/config"
	"github.com/conduit-lang/dataservice/internal/orm/crud"
	"github.com/conduit-lang/dataservice/internal/orm/migrate"
	"github.com/conduit-lang/dataservice/internal/platform/logging"
	"github.com/conduit-lang/dataservice/internal/web/autoapi"
	"github.com/conduit-lang/dataservice/internal/web/cache"
	"github.com/conduit-lang/dataservice/internal/web/middleware"
	"github.com/conduit-lang/dataservice/internal/web/router"
	"github.com/conduit-lang/dataservice/internal/web/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API for every model",
		Long: `Load the models file, connect to the database and serve the auto-REST API.

Set models.sync (or DATASERVICE_MODELS_SYNC=true) to create missing tables on start.
SIGINT or SIGTERM drains in-flight requests before exiting.`,
		RunE: runServe,
	}

	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides server.port)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	gs, err := buildServer(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("api ready", zap.String("url", describeAddr(cfg)))
	return gs.Run(cmd.Context())
}

// buildServer wires config into a ready-to-run server. Resources opened here are
// released by the returned shutdown hooks.
func buildServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*server.GracefulShutdown, error) {
	schemas, err := loadSchemas(cfg)
	if err != nil {
		return nil, err
	}

	db, dialect, err := openDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	fail := func(err error) (*server.GracefulShutdown, error) {
		db.Close()
		return nil, err
	}

	if cfg.Models.Sync {
		n, err := migrate.Sync(ctx, db, schemas, dialect)
		if err != nil {
			return fail(err)
		}
		logger.Info("tables synced", zap.Int("statements", n))
	}

	registry, err := crud.NewRegistry(schemas, db, dialect)
	if err != nil {
		return fail(err)
	}

	var gatherer prometheus.Gatherer
	var metrics *autoapi.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewDBStatsCollector(db, "dataservice"),
		)
		metrics = autoapi.NewMetrics(reg)
		gatherer = reg
	}

	store, err := openCache(ctx, cfg.Cache, logger)
	if err != nil {
		return fail(err)
	}

	dispatcher := autoapi.New(registry,
		autoapi.WithPrefix(cfg.API.Prefix),
		autoapi.WithLogger(logger),
		autoapi.WithMetrics(metrics),
		autoapi.WithMaxBodyBytes(cfg.API.MaxBodyBytes),
	)

	handler := router.New(router.Config{
		Dispatcher: dispatcher,
		Logger:     logger,
		Middleware: []middleware.Middleware{
			middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins...)),
			cache.Middleware(cache.MiddlewareConfig{
				Cache:  store,
				Prefix: dispatcher.Prefix(),
				TTL:    cfg.Cache.TTL,
				Logger: logger,
			}),
		},
		Health:   db.PingContext,
		Gatherer: gatherer,
	})

	srvCfg := server.DefaultConfig(handler)
	srvCfg.Address = cfg.Server.Address()
	srvCfg.Database = server.DefaultDatabaseConfig(db)
	if cfg.Database.MaxOpenConns > 0 {
		srvCfg.Database.MaxOpenConns = cfg.Database.MaxOpenConns
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return fail(err)
	}

	gs := server.NewGracefulShutdown(srv, &server.ShutdownConfig{
		Timeout: cfg.Server.ShutdownTimeout,
		Logger:  logger,
	})
	if store != nil {
		gs.RegisterHook(func(context.Context) error { return store.Close() })
	}
	gs.RegisterHook(func(context.Context) error { return db.Close() })

	logger.Info("serving models",
		zap.Strings("models", registry.Names()),
		zap.String("prefix", dispatcher.Prefix()),
		zap.String("driver", cfg.Database.Driver),
	)
	return gs, nil
}

func describeAddr(cfg *config.Config) string {
	return fmt.Sprintf("http://%s%s/", cfg.Server.Address(), strings.TrimSuffix(cfg.API.Prefix, "/"))
}
