package prefetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/plusopinion/go-client-core/offline"
)

// CommonPages are the navigation targets most sessions visit, warmed
// as a batch shortly after startup.
var CommonPages = []string{
	"/HOMEPAGE_FINAL.HTML",
	"/BOOKMARKS.HTML",
	"/NOTIFICATION%20PANEL.HTML",
}

// Preloader warms pages into the offline Worker's cache.
type Preloader struct {
	worker *offline.Worker
	origin string
	log    *slog.Logger

	group singleflight.Group

	mu      sync.Mutex
	visited map[string]bool
}

// PreloaderOption configures a Preloader.
type PreloaderOption func(*Preloader)

func WithPreloaderLogger(log *slog.Logger) PreloaderOption {
	return func(p *Preloader) { p.log = log }
}

// WithPreloaderOrigin sets the origin used to resolve relative targets.
func WithPreloaderOrigin(origin string) PreloaderOption {
	return func(p *Preloader) { p.origin = strings.TrimSuffix(origin, "/") }
}

// NewPreloader builds a Preloader over the given Worker.
func NewPreloader(worker *offline.Worker, opts ...PreloaderOption) *Preloader {
	p := &Preloader{
		worker:  worker,
		origin:  "https://plusopinion.com",
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		visited: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ShouldPreload reports whether target is a warmable page: a
// same-origin HTML path not yet visited this session.
func (p *Preloader) ShouldPreload(target string) bool {
	if target == "" {
		return false
	}
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		if !strings.HasPrefix(target, p.origin+"/") && target != p.origin {
			return false
		}
	}
	if !strings.HasSuffix(strings.ToLower(target), ".html") {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.visited[p.resolve(target)]
}

// Preload warms one page. Repeated calls for the same target are no-ops
// and concurrent calls collapse into a single fetch. Failures are
// logged and the target stays eligible for a later attempt.
func (p *Preloader) Preload(ctx context.Context, target string) error {
	url := p.resolve(target)

	p.mu.Lock()
	if p.visited[url] {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	_, err, _ := p.group.Do(url, func() (any, error) {
		// Re-check under the flight: a caller that lost the visited
		// race may start a fresh flight after the first completed.
		p.mu.Lock()
		if p.visited[url] {
			p.mu.Unlock()
			return nil, nil
		}
		p.mu.Unlock()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Sec-Fetch-Dest", "document")

		resp, err := p.worker.Fetch(ctx, req)
		if err != nil {
			return nil, err
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			p.mu.Lock()
			p.visited[url] = true
			p.mu.Unlock()
		}
		return nil, nil
	})
	if err != nil {
		p.log.Debug("preload failed", "target", target, "error", err)
		return err
	}
	return nil
}

// WarmCommon preloads the common navigation targets, skipping the page
// the session is currently on. The first failure stops the batch.
func (p *Preloader) WarmCommon(ctx context.Context, currentPath string) error {
	for _, page := range CommonPages {
		if page == currentPath {
			continue
		}
		if err := p.Preload(ctx, page); err != nil {
			return err
		}
	}
	return nil
}

// Visited reports whether target was warmed this session.
func (p *Preloader) Visited(target string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visited[p.resolve(target)]
}

func (p *Preloader) resolve(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	return p.origin + target
}
