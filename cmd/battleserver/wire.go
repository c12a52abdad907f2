//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
)

func initializeApp(ctx context.Context, path configPath) (*App, func(), error) {
	wire.Build(
		provideConfig,
		provideLogger,
		provideTracing,
		provideReportStore,
		provideController,
		provideManager,
		provideService,
		provideHealthServer,
		provideGRPCServer,
		provideLifecycle,
		provideApp,
	)
	return nil, nil, nil
}
