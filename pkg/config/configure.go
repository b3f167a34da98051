package config

import (
	"log/slog"

	"github.com/picloud/picloud/internal/logging"
	"github.com/picloud/picloud/pkg/devtools"
	"github.com/picloud/picloud/pkg/domain"
	"github.com/picloud/picloud/pkg/middleware"
	"github.com/picloud/picloud/pkg/ports"
	"github.com/picloud/picloud/pkg/progress"
	"github.com/picloud/picloud/pkg/store"
)

// Dependencies are the optional collaborators wired into a store.
type Dependencies struct {
	Logger     *slog.Logger
	Collectors *middleware.Collectors
	Journal    ports.Journal
	Hooks      domain.Hooks
}

// Configured is an assembled store.
type Configured struct {
	Store *store.Store
	// Recorder is nil in production.
	Recorder *devtools.Recorder
}

// Configurator assembles a store. Every environment has one, with this signature.
type Configurator func(cfg Config, initial domain.State, deps Dependencies) *Configured

var (
	_ Configurator = ConfigureProduction
	_ Configurator = ConfigureDevelopment
)

// Registry returns the slices of the root reducer.
func Registry(cfg Config) *store.Registry {
	counter := progress.Slice()
	if cfg.ClampAtZero {
		counter = progress.ClampedSlice()
	}
	return store.NewRegistry().MustRegister(domain.SliceCallsInProgress, counter)
}

// ConfigureStore assembles the store for cfg.Environment.
func ConfigureStore(cfg Config, initial domain.State, deps Dependencies) *Configured {
	if cfg.IsProduction() {
		return ConfigureProduction(cfg, initial, deps)
	}
	return ConfigureDevelopment(cfg, initial, deps)
}

// ConfigureProduction attaches async-action support and logging, plus the
// optional metrics and journal observers.
func ConfigureProduction(cfg Config, initial domain.State, deps Dependencies) *Configured {
	deps = withDefaults(deps)
	mws := []store.Middleware{store.ThunkMiddleware(), middleware.Logger(deps.Logger)}
	return &Configured{Store: build(cfg, initial, deps, mws, observers(cfg, deps))}
}

// ConfigureDevelopment is ConfigureProduction plus the state mutation
// invariant and the devtools recorder.
func ConfigureDevelopment(cfg Config, initial domain.State, deps Dependencies) *Configured {
	deps = withDefaults(deps)
	rec := devtools.NewRecorder(cfg.HistoryLimit)

	mws := []store.Middleware{
		store.ThunkMiddleware(),
		middleware.ImmutableInvariant(deps.Logger),
		middleware.Logger(deps.Logger),
	}
	obs := append(observers(cfg, deps), rec.Observer())
	return &Configured{Store: build(cfg, initial, deps, mws, obs), Recorder: rec}
}

func withDefaults(deps Dependencies) Dependencies {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	return deps
}

func observers(cfg Config, deps Dependencies) []store.Observer {
	var obs []store.Observer
	if deps.Collectors != nil {
		obs = append(obs, middleware.Metrics(deps.Collectors))
	}
	if deps.Journal != nil {
		obs = append(obs, middleware.Journal(deps.Journal, cfg.Name, deps.Logger))
	}
	return obs
}

func build(cfg Config, initial domain.State, deps Dependencies, mws []store.Middleware, obs []store.Observer) *store.Store {
	reg := Registry(cfg)
	if initial == nil {
		initial = reg.InitialState()
	}
	return store.New(reg.Reducer(), initial,
		store.WithName(cfg.Name),
		store.WithLogger(deps.Logger),
		store.WithHooks(deps.Hooks),
		store.WithMiddleware(mws...),
		store.WithObserver(obs...),
	)
}
