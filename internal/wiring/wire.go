//go:build wireinject

// Package wiring assembles hdcore's components with google/wire: a
// wire.NewSet per concern plus a single injector function wire.Build
// composes from them. This file is never compiled; `go generate`
// regenerates wire_gen.go from it.
package wiring

import (
	"github.com/google/wire"
)

// storageSet provides the cache's backing filesystem driver.
var storageSet = wire.NewSet(
	ProvideFileSystemDriver,
)

// cacheSet provides the factor-instances cache over whatever driver
// storageSet resolved.
var cacheSet = wire.NewSet(
	storageSet,
	ProvideCache,
)

// coreSet provides the profile/eventbus/metrics singletons every
// host-facing entry point shares.
var coreSet = wire.NewSet(
	ProvideEventBus,
	ProvideMetricsRegisterer,
	ProvideMetrics,
	ProvideProfile,
)

// providerSet wires the FactorInstancesProvider over the cache.
var providerSet = wire.NewSet(
	cacheSet,
	ProvideProvider,
)

// appSet is everything InitApp needs.
var appSet = wire.NewSet(
	providerSet,
	coreSet,
	wire.Struct(new(App), "*"),
)

// InitApp wires a full App from cfg and interactor.
func InitApp(cfg Deps) (*App, error) {
	wire.Build(appSet)
	return nil, nil
}
