package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/skirmish/internal/battleserver"
	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/server"
	"github.com/cory-johannsen/skirmish/internal/storage"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
	"github.com/cory-johannsen/skirmish/internal/storage/sqlite"
)

// configPath is the location of the YAML configuration file.
type configPath string

// App is the assembled battle server.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Lifecycle *server.Lifecycle
}

func provideConfig(path configPath) (config.Config, error) {
	return config.Load(string(path))
}

func provideLogger(cfg config.Config) (*zap.Logger, func(), error) {
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// tracing marks that the global tracer provider has been installed.
type tracing struct{}

func provideTracing(ctx context.Context, cfg config.Config, logger *zap.Logger) (tracing, func(), error) {
	shutdown, err := observability.SetupTracing(ctx, cfg.Telemetry)
	if err != nil {
		return tracing{}, nil, fmt.Errorf("initializing tracing: %w", err)
	}
	return tracing{}, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("flushing traces", zap.Error(err))
		}
	}, nil
}

func provideReportStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.ReportStore, func(), error) {
	start := time.Now()
	switch cfg.Storage.Driver {
	case "postgres":
		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(cfg.Database); err != nil {
				return nil, nil, err
			}
			logger.Info("database schema migrated")
		}
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(start)),
		)
		return postgres.NewReportRepository(pool.DB()), pool.Close, nil
	case "sqlite":
		store, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Info("sqlite store opened",
			zap.String("path", cfg.Storage.SQLitePath),
			zap.Duration("elapsed", time.Since(start)),
		)
		return store, func() { _ = store.Close() }, nil
	default:
		logger.Info("report persistence disabled")
		return storage.Discard{}, func() {}, nil
	}
}

func provideController(logger *zap.Logger) (combat.EnemyController, error) {
	reg, err := ai.NewBuiltinRegistry(logger)
	if err != nil {
		return nil, fmt.Errorf("loading ai domains: %w", err)
	}
	return reg, nil
}

func provideManager(cfg config.Config, controller combat.EnemyController, store storage.ReportStore, logger *zap.Logger, _ tracing) (*battleserver.Manager, func()) {
	m := battleserver.NewManager(cfg.Engine, controller, store, logger, battleserver.DefaultSessionLimit)
	return m, m.CloseAll
}

func provideService(m *battleserver.Manager, logger *zap.Logger) *battleserver.Service {
	return battleserver.NewService(m, logger)
}

func provideHealthServer() *health.Server {
	healthServer := health.NewServer()
	healthServer.SetServingStatus(battleserver.ServiceName, healthpb.HealthCheckResponse_SERVING)
	return healthServer
}

func provideGRPCServer(svc *battleserver.Service, healthServer *health.Server) *grpc.Server {
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	battleserver.RegisterBattleServiceServer(grpcServer, svc)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	return grpcServer
}

func provideLifecycle(cfg config.Config, logger *zap.Logger, m *battleserver.Manager, grpcServer *grpc.Server, healthServer *health.Server) *server.Lifecycle {
	lc := server.NewLifecycle(logger)
	lc.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.GRPC.Addr(), err)
			}
			if cfg.GRPC.MaxConns > 0 {
				lis = netutil.LimitListener(lis, cfg.GRPC.MaxConns)
			}
			logger.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
			return grpcServer.Serve(lis)
		},
		StopFn: func() {
			healthServer.Shutdown()
			grpcServer.GracefulStop()
		},
	})
	if cfg.Engine.TickInterval > 0 {
		lc.Add("animation-ticker", server.NewTicker(cfg.Engine.TickInterval, m.Tick))
	}
	return lc
}

func provideApp(cfg config.Config, logger *zap.Logger, lc *server.Lifecycle) *App {
	return &App{Config: cfg, Logger: logger, Lifecycle: lc}
}
