// Package wiring: provider functions referenced by wire.go's sets and
// by wire_gen.go's InitApp. Kept in a build-tag-free file so both the
// wireinject source and the generated code can call them.
package wiring

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vaultwarden-hd/hdcore/cache"
	"github.com/vaultwarden-hd/hdcore/eventbus"
	"github.com/vaultwarden-hd/hdcore/internal/config"
	"github.com/vaultwarden-hd/hdcore/internal/metrics"
	"github.com/vaultwarden-hd/hdcore/interactors"
	"github.com/vaultwarden-hd/hdcore/profile"
	"github.com/vaultwarden-hd/hdcore/provider"
	"github.com/vaultwarden-hd/hdcore/storage"
)

// Deps is everything InitApp needs that cannot itself be derived from
// cfg: the interactor a caller picked for this run (a DeviceInteractor
// for the CLI demo, something hardware-backed in a real host).
type Deps struct {
	Config     config.Config
	Interactor interactors.KeyDerivationInteractor
}

// App bundles the long-lived singletons cmd/hdcore's subcommands
// share.
type App struct {
	Config   config.Config
	Bus      eventbus.EventBus
	Metrics  *metrics.Metrics
	Profile  *profile.Profile
	Provider *provider.Provider
}

// ProvideFileSystemDriver returns a local file-system driver rooted at
// the working directory; the cache file name is applied by
// ProvideCache.
func ProvideFileSystemDriver(d Deps) (storage.FileSystemDriver, error) {
	return storage.NewLocalFileSystemDriver(".")
}

// ProvideCache wraps driver with the file name from cfg.Cache.FilePath.
func ProvideCache(d Deps, driver storage.FileSystemDriver) *cache.Cache {
	return cache.New(driver, d.Config.Cache.FilePath)
}

// ProvideProvider wires the FactorInstancesProvider over c and the
// caller-supplied interactor.
func ProvideProvider(d Deps, c *cache.Cache) *provider.Provider {
	return provider.New(c, d.Interactor)
}

// ProvideEventBus constructs the in-process bus every profile mutation
// publishes to, announcing the boot on it.
func ProvideEventBus() eventbus.EventBus {
	bus := eventbus.NewInProcessEventBus()
	bus.Publish(eventbus.Event{Kind: eventbus.KindBooted})
	return bus
}

// ProvideMetricsRegisterer exposes the default Prometheus registry.
func ProvideMetricsRegisterer() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}

// ProvideMetrics registers hdcore's collectors against reg.
func ProvideMetrics(reg prometheus.Registerer) *metrics.Metrics {
	return metrics.New(reg)
}

// ProvideProfile constructs the empty Profile new hosts start from.
func ProvideProfile(d Deps, bus eventbus.EventBus) *profile.Profile {
	return profile.New("default", d.Config.CurrentNetwork, bus)
}
