// Package di wires the client core together. It manages singleton
// instances of the state manager, query cache, router, and offline
// worker, and provides factory methods for per-user components.
package di

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/plusopinion/go-client-core/backend"
	"github.com/plusopinion/go-client-core/backendcache"
	"github.com/plusopinion/go-client-core/cache"
	"github.com/plusopinion/go-client-core/config"
	"github.com/plusopinion/go-client-core/notify"
	"github.com/plusopinion/go-client-core/offline"
	"github.com/plusopinion/go-client-core/persist"
	"github.com/plusopinion/go-client-core/prefetch"
	"github.com/plusopinion/go-client-core/router"
	"github.com/plusopinion/go-client-core/state"
	"github.com/plusopinion/go-client-core/version"
)

// Container provides dependency injection for the client core. One
// Container is one client session: it owns the state manager's
// lifecycle and the persistence handle.
type Container struct {
	cfg           config.Config
	log           *slog.Logger
	store         persist.Store
	stateManager  *state.Manager
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	base          backend.Client
	client        backend.Client
	router        *router.Router
	storage       offline.Storage
	worker        *offline.Worker
	preloader     *prefetch.Preloader
	notifier      backend.Notifier

	closers []func() error
}

// ContainerOption overrides a default dependency.
type ContainerOption func(*containerDeps)

type containerDeps struct {
	log      *slog.Logger
	history  router.History
	viewport router.Viewport
	storage  offline.Storage
	notifier backend.Notifier
}

func WithLogger(log *slog.Logger) ContainerOption {
	return func(d *containerDeps) { d.log = log }
}

func WithHistory(h router.History) ContainerOption {
	return func(d *containerDeps) { d.history = h }
}

func WithViewport(v router.Viewport) ContainerOption {
	return func(d *containerDeps) { d.viewport = v }
}

func WithOfflineStorage(s offline.Storage) ContainerOption {
	return func(d *containerDeps) { d.storage = s }
}

func WithNotifier(n backend.Notifier) ContainerOption {
	return func(d *containerDeps) { d.notifier = n }
}

// NewContainer builds the full runtime from configuration, a base
// backend client, and a network fetcher for the offline worker.
func NewContainer(cfg config.Config, base backend.Client, fetch offline.Fetcher, opts ...ContainerOption) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	deps := &containerDeps{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		history:  router.NewMemoryHistory("/"),
		viewport: router.NewMemoryViewport(),
		storage:  offline.NewMemoryStorage(),
		notifier: backend.NopNotifier{},
	}
	for _, opt := range opts {
		opt(deps)
	}

	c := &Container{
		cfg:      cfg,
		log:      deps.log,
		base:     base,
		storage:  deps.storage,
		notifier: deps.notifier,
	}

	var store persist.Store
	if cfg.StatePath != "" {
		sqlite, err := persist.OpenSQLite(cfg.StatePath, cfg.StateNamespace)
		if err != nil {
			return nil, fmt.Errorf("di: open state store: %w", err)
		}
		c.closers = append(c.closers, sqlite.Close)
		store = sqlite
	} else {
		store = persist.NewMemory()
	}
	c.store = store

	c.stateManager = state.NewManager(
		state.WithStore(store),
		state.WithLogger(deps.log),
		state.WithSweepInterval(cfg.SweepInterval),
	)

	cacheCfg := cache.DefaultConfig()
	cacheCfg.Capacity = cfg.QueryCacheCapacity
	cacheCfg.TTL = cfg.QueryCacheTTL
	svc, err := cache.NewCacheService(cacheCfg)
	if err != nil {
		c.stateManager.Close()
		c.close()
		return nil, fmt.Errorf("di: build query cache: %w", err)
	}
	c.cacheService = svc
	c.keySerializer = cache.NewDefaultKeySerializer()
	c.client = backendcache.New(base, svc, c.keySerializer)

	cleaner := router.DefaultPathCleaner(router.WithHost(cfg.Host))
	c.router = router.NewRouter(deps.history, deps.viewport,
		router.WithPathCleaner(cleaner),
		router.WithNavigateTimeout(cfg.NavigateTimeout),
		router.WithRouterLogger(deps.log),
	)

	c.worker = offline.NewWorker(version.CacheVersion(time.Now), deps.storage, fetch,
		offline.WithOrigin(cfg.Origin),
		offline.WithWorkerLogger(deps.log),
	)
	c.preloader = prefetch.NewPreloader(c.worker,
		prefetch.WithPreloaderOrigin(cfg.Origin),
		prefetch.WithPreloaderLogger(deps.log),
	)

	return c, nil
}

// NewContainerWithDefaults builds a Container from environment
// configuration.
func NewContainerWithDefaults(base backend.Client, fetch offline.Fetcher, opts ...ContainerOption) (*Container, error) {
	cfg, err := config.Parse()
	if err != nil {
		return nil, err
	}
	return NewContainer(cfg, base, fetch, opts...)
}

// Config returns a copy of the container's configuration.
func (c *Container) Config() config.Config { return c.cfg }

// State returns the singleton state manager.
func (c *Container) State() *state.Manager { return c.stateManager }

// Store returns the durable storage boundary used by the state manager.
func (c *Container) Store() persist.Store { return c.store }

// CacheService returns the singleton read-through query cache.
func (c *Container) CacheService() cache.CacheService { return c.cacheService }

// KeySerializer returns the singleton key serializer.
func (c *Container) KeySerializer() cache.KeySerializer { return c.keySerializer }

// Client returns the cached backend client. Reads are served through
// the query cache; writes invalidate their table's cached reads.
func (c *Container) Client() backend.Client { return c.client }

// BaseClient returns the undecorated backend client for callers that
// must bypass the query cache.
func (c *Container) BaseClient() backend.Client { return c.base }

// Router returns the singleton navigation router.
func (c *Container) Router() *router.Router { return c.router }

// Worker returns the singleton offline worker.
func (c *Container) Worker() *offline.Worker { return c.worker }

// Preloader returns the singleton navigation preloader.
func (c *Container) Preloader() *prefetch.Preloader { return c.preloader }

// UnreadCounter builds a badge counter for the given user. Counters
// read through the base client so the badge never lags behind a cached
// query result.
func (c *Container) UnreadCounter(userID string) *notify.UnreadCounter {
	return notify.NewUnreadCounter(c.base, c.store, userID,
		notify.WithCounterLogger(c.log),
		notify.WithCounterNotifier(c.notifier))
}

// Close releases everything the container owns: the state manager's
// background sweep and the persistence handle.
func (c *Container) Close() error {
	c.stateManager.Close()
	return c.close()
}

func (c *Container) close() error {
	var first error
	for _, fn := range c.closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
