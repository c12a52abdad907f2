// Package main provides the battle server binary that hosts tactical battles
// behind a gRPC service.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"
)

func main() {
	start := time.Now()

	cfgPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	app, cleanup, err := initializeApp(ctx, configPath(*cfgPath))
	if err != nil {
		log.Fatalf("initializing battle server: %v", err)
	}
	defer cleanup()

	app.Logger.Info("battle server initialized",
		zap.String("grpc_addr", app.Config.GRPC.Addr()),
		zap.String("storage", app.Config.Storage.Driver),
		zap.Duration("startup", time.Since(start)),
	)

	if err := app.Lifecycle.Run(ctx); err != nil {
		app.Logger.Error("battle server stopped with error", zap.Error(err))
		cleanup()
		log.Fatalf("battle server: %v", err)
	}
}
