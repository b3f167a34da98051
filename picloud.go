package picloud

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"

	backend "github.com/redis/go-redis/v9"

	"github.com/picloud/picloud/internal/logging"
	"github.com/picloud/picloud/pkg/adapters/file"
	"github.com/picloud/picloud/pkg/adapters/memory"
	"github.com/picloud/picloud/pkg/adapters/redis"
	"github.com/picloud/picloud/pkg/config"
	"github.com/picloud/picloud/pkg/devtools"
	"github.com/picloud/picloud/pkg/domain"
	"github.com/picloud/picloud/pkg/middleware"
	"github.com/picloud/picloud/pkg/ports"
	"github.com/picloud/picloud/pkg/replay"
	"github.com/picloud/picloud/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
)

// App is an opened store together with its persistence backends.
type App struct {
	Config   config.Config
	Store    *store.Store
	Recorder *devtools.Recorder
	Registry *store.Registry

	Journal   ports.Journal
	Snapshots ports.SnapshotStore
	// Locker is nil without Redis.
	Locker ports.DistributedLocker

	logger *slog.Logger
	client *backend.Client
}

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	hooks      domain.Hooks
}

// WithLogger sets the logger of the store and its middleware.
func WithLogger(l *slog.Logger) Option {
	return func(o *openOptions) {
		o.logger = l
	}
}

// WithRegisterer enables the metrics middleware, registering its collectors with r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *openOptions) {
		o.registerer = r
	}
}

// WithHooks registers dispatch hooks.
func WithHooks(h domain.Hooks) Option {
	return func(o *openOptions) {
		o.hooks = h
	}
}

// Open assembles the store described by cfg.
//
// Journal and snapshots live in Redis when cfg.Redis.Addr is set, below
// cfg.DataPath when that is set, in memory otherwise. The initial state is
// the saved snapshot, if any, with the journal folded on top; the in-flight
// counter always starts from zero.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := openOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}

	app, err := connect(ctx, cfg, o.logger)
	if err != nil {
		return nil, err
	}

	initial, compact, err := app.initialState(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	deps := config.Dependencies{
		Logger:  o.logger,
		Journal: app.Journal,
		Hooks:   o.hooks,
	}
	if o.registerer != nil {
		collectors, err := middleware.NewCollectors(o.registerer)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		deps.Collectors = collectors
	}

	configured := config.ConfigureStore(cfg, initial, deps)
	app.Store = configured.Store
	app.Recorder = configured.Recorder
	if compact {
		if err := app.Flusher().Flush(ctx); err != nil {
			app.Close()
			return nil, err
		}
	}
	o.logger.Info("Store opened",
		"store", cfg.Name,
		"environment", cfg.Environment,
		"calls_in_progress", app.Store.CallsInProgress(),
	)
	return app, nil
}

// Inspect reads the persisted state of stream without opening a store or
// changing anything: the snapshot, if any, with the journal folded on top.
// It returns the state and the number of journal signals folded.
func Inspect(ctx context.Context, cfg config.Config, stream string) (domain.State, int, error) {
	app, err := connect(ctx, cfg, logging.NewNop())
	if err != nil {
		return nil, 0, err
	}
	defer app.Close()
	return replay.Resume(ctx, app.Snapshots, app.Journal, stream, app.Registry)
}

// connect selects the persistence backends.
func connect(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config:   cfg,
		Registry: config.Registry(cfg),
		logger:   logger,
	}

	switch {
	case cfg.Redis.Addr != "":
		app.client = redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := app.client.Ping(ctx).Err(); err != nil {
			app.client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		redisOpts := []redis.Option{redis.WithPrefix(cfg.Redis.Prefix), redis.WithTTL(cfg.Redis.TTL)}
		app.Journal = redis.NewJournal(app.client, redisOpts...)
		app.Snapshots = redis.NewStore(app.client, redisOpts...)
		app.Locker = redis.NewLocker(app.client, redisOpts...)
	case cfg.DataPath != "":
		app.Journal = file.NewJournal(filepath.Join(cfg.DataPath, "journal"))
		app.Snapshots = file.NewStore(filepath.Join(cfg.DataPath, "snapshots"))
	default:
		app.Journal = memory.NewJournal()
		app.Snapshots = memory.NewStore()
	}
	return app, nil
}

// initialState resumes the persisted state with the in-flight counter back
// at its initial value: calls do not outlive the process that started them.
// compact reports whether the persisted state differs from the result.
func (a *App) initialState(ctx context.Context) (state domain.State, compact bool, err error) {
	state, folded, err := replay.Resume(ctx, a.Snapshots, a.Journal, a.Config.Name, a.Registry)
	if err != nil {
		return nil, false, err
	}
	if n := state.CallsInProgress(); n != 0 {
		a.logger.Warn("Discarding calls left in flight by a previous process",
			"store", a.Config.Name, "calls", n)
	}
	initial := a.Registry.InitialState()
	state = state.Clone()
	reset := !reflect.DeepEqual(state[domain.SliceCallsInProgress], initial[domain.SliceCallsInProgress])
	state[domain.SliceCallsInProgress] = initial[domain.SliceCallsInProgress]
	a.logger.Debug("Resumed", "store", a.Config.Name, "signals", folded, "reset", reset)
	return state, folded > 0 || reset, nil
}

// Flusher returns a snapshot flusher for the store. It compacts the journal
// on every save and uses the Redis lock when available.
func (a *App) Flusher() *replay.Flusher {
	opts := []replay.FlusherOption{
		replay.WithInterval(a.Config.SnapshotInterval),
		replay.WithJournal(a.Journal),
		replay.WithLogger(a.logger),
	}
	if a.Locker != nil {
		opts = append(opts, replay.WithLocker(a.Locker))
	}
	return replay.NewFlusher(a.Store, a.Snapshots, opts...)
}

// Close releases the Redis connection, if any.
func (a *App) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}
