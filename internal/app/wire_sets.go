//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
)

var CoreInfraSet = wire.NewSet(
	NewDomainConfig,
	NewLogger,
	NewMetricsRegistry,
	NewMetrics,
	NewHealthTracker,
)

var FigmaSet = wire.NewSet(
	NewFigmaClient,
	NewSwappableClient,
	NewExportCache,
	NewResolver,
	NewGatewayServer,
)

var AppSet = wire.NewSet(
	CoreInfraSet,
	FigmaSet,
	wire.Struct(new(ApplicationOptions), "*"),
	NewApplication,
)
