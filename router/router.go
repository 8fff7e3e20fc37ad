package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultNavigateTimeout bounds how long a route handler may run before
// the navigation fails and the in-flight guard is released.
const DefaultNavigateTimeout = 30 * time.Second

var (
	// ErrNavigationInFlight is returned when Navigate is called while
	// another navigation is still running. The call is dropped, not
	// queued.
	ErrNavigationInFlight = errors.New("router: navigation already in progress")

	// ErrNoRoute is returned when no registered pattern matches the
	// requested path. History is left untouched.
	ErrNoRoute = errors.New("router: no route registered for path")
)

// Request carries everything a route handler needs: the captured
// pattern parameters, the state attached to the navigation, and the
// raw path that was navigated to.
type Request struct {
	Params Params
	State  map[string]any
	Path   string
}

// Handler is invoked when its route's pattern matches a navigation.
// The context carries the per-navigation deadline.
type Handler func(ctx context.Context, req Request) error

// Listener receives fire-and-forget lifecycle signals around each
// navigation. NavigationFinished fires only after the handler settles.
type Listener interface {
	NavigationStarted(path string)
	NavigationFinished(path string, err error)
}

// Router dispatches paths to registered handlers while maintaining the
// history stack, per-route scroll memory, and the single-navigation
// guarantee.
type Router struct {
	history   History
	viewport  Viewport
	cleaner   *PathCleaner
	listeners []Listener
	log       *slog.Logger
	timeout   time.Duration

	inFlight chan struct{}

	mu      sync.Mutex
	routes  []route
	current string
	scroll  map[string]int
}

// Option configures a Router.
type Option func(*Router)

// WithPathCleaner installs a display-path table used when writing
// history entries.
func WithPathCleaner(c *PathCleaner) Option {
	return func(r *Router) { r.cleaner = c }
}

// WithListener registers a lifecycle listener. May be given multiple
// times.
func WithListener(l Listener) Option {
	return func(r *Router) { r.listeners = append(r.listeners, l) }
}

func WithRouterLogger(log *slog.Logger) Option {
	return func(r *Router) { r.log = log }
}

// WithNavigateTimeout overrides DefaultNavigateTimeout. Zero or
// negative disables the deadline.
func WithNavigateTimeout(d time.Duration) Option {
	return func(r *Router) { r.timeout = d }
}

// NewRouter builds a Router over the given history and viewport.
func NewRouter(history History, viewport Viewport, opts ...Option) *Router {
	r := &Router{
		history:  history,
		viewport: viewport,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout:  DefaultNavigateTimeout,
		inFlight: make(chan struct{}, 1),
		scroll:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a pattern and its handler. Patterns are matched in
// registration order and the first match wins. Registration is meant
// to happen once at startup.
func (r *Router) Register(pattern string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes = append(r.routes, newRoute(pattern, handler))
}

// Navigate dispatches path to its matching handler. It saves the scroll
// offset of the route being left, writes a history entry with the
// cleaned display path, runs the handler under the navigation deadline,
// and restores the destination's saved scroll offset (or resets to top).
//
// When another navigation is still in flight the call returns
// ErrNavigationInFlight immediately. When no pattern matches, history
// is not touched and ErrNoRoute is returned.
func (r *Router) Navigate(ctx context.Context, path string, state map[string]any, replace bool) error {
	select {
	case r.inFlight <- struct{}{}:
	default:
		r.log.Warn("navigation already in progress, dropping", "path", path)
		return ErrNavigationInFlight
	}
	defer func() { <-r.inFlight }()

	r.mu.Lock()
	if r.current != "" {
		r.scroll[r.current] = r.viewport.ScrollOffset()
	}
	matched, params := r.matchLocked(path)
	r.mu.Unlock()

	if matched == nil {
		r.log.Error("no route handler found", "path", path)
		return fmt.Errorf("%w: %s", ErrNoRoute, path)
	}

	display := path
	if r.cleaner != nil {
		display = r.cleaner.Display(path)
	}

	entryState := make(map[string]any, len(state)+1)
	for k, v := range state {
		entryState[k] = v
	}
	entryState["path"] = path

	if replace {
		r.history.Replace(display, entryState)
	} else {
		r.history.Push(display, entryState)
	}

	for _, l := range r.listeners {
		l.NavigationStarted(path)
	}

	err := r.runHandler(ctx, matched.handler, Request{Params: params, State: state, Path: path})

	for _, l := range r.listeners {
		l.NavigationFinished(path, err)
	}

	if err != nil {
		r.log.Error("navigation failed", "path", path, "error", err)
		return err
	}

	r.mu.Lock()
	r.current = path
	offset, saved := r.scroll[path]
	r.mu.Unlock()

	if saved {
		r.viewport.ScrollTo(offset)
	} else {
		r.viewport.ScrollTo(0)
	}
	return nil
}

// runHandler executes the handler under the per-navigation deadline.
// On timeout the handler goroutine is abandoned and the navigation
// fails, so a hung handler cannot hold the in-flight guard forever.
func (r *Router) runHandler(ctx context.Context, h Handler, req Request) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- h(ctx, req)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("router: handler for %s: %w", req.Path, ctx.Err())
	}
}

func (r *Router) matchLocked(path string) (*route, Params) {
	for i := range r.routes {
		if params, ok := r.routes[i].matchPath(path); ok {
			return &r.routes[i], params
		}
	}
	return nil, nil
}

// HandlePop replays a back/forward transition. The path comes from the
// history entry's state when present, else from location, and the
// navigation replaces the current entry instead of pushing a new one.
func (r *Router) HandlePop(ctx context.Context, state map[string]any, location string) error {
	path := location
	if p, ok := state["path"].(string); ok && p != "" {
		path = p
	}
	return r.Navigate(ctx, path, state, true)
}

// CurrentPath returns the path of the last successful navigation, or
// the history location before any navigation has completed.
func (r *Router) CurrentPath() string {
	r.mu.Lock()
	current := r.current
	r.mu.Unlock()

	if current != "" {
		return current
	}
	return r.history.Location()
}

// Back moves one entry back in history.
func (r *Router) Back() { r.history.Back() }

// Forward moves one entry forward in history.
func (r *Router) Forward() { r.history.Forward() }
