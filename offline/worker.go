package offline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// CacheNamePrefix prefixes every bucket the Worker manages. Buckets
// outside this prefix are never touched by activation cleanup.
const CacheNamePrefix = "plusopinion-pwa-"

// Phase is a Worker's position in the install/activate lifecycle.
type Phase int

const (
	PhaseInstalling Phase = iota
	PhaseWaiting
	PhaseActive
)

func (p Phase) String() string {
	switch p {
	case PhaseInstalling:
		return "installing"
	case PhaseWaiting:
		return "waiting"
	case PhaseActive:
		return "active"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Fetcher performs the actual network request for a Worker. Tests and
// hosts inject whatever transport they have.
type Fetcher func(ctx context.Context, req *http.Request) (*http.Response, error)

// Worker applies the offline cache policy to every request routed
// through Fetch.
type Worker struct {
	version  string
	storage  Storage
	fetch    Fetcher
	origin   string
	precache []string
	log      *slog.Logger

	mu    sync.Mutex
	phase Phase
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithOrigin sets the origin (scheme://host) the Worker treats as its
// own. Requests to any other origin pass through uncached.
func WithOrigin(origin string) WorkerOption {
	return func(w *Worker) { w.origin = strings.TrimSuffix(origin, "/") }
}

// WithPrecache replaces the default app-shell manifest.
func WithPrecache(paths []string) WorkerOption {
	return func(w *Worker) { w.precache = paths }
}

func WithWorkerLogger(log *slog.Logger) WorkerOption {
	return func(w *Worker) { w.log = log }
}

// NewWorker builds a Worker for the given build version. It starts in
// the installing phase.
func NewWorker(version string, storage Storage, fetch Fetcher, opts ...WorkerOption) *Worker {
	w := &Worker{
		version:  version,
		storage:  storage,
		fetch:    fetch,
		origin:   "https://plusopinion.com",
		precache: DefaultPrecacheManifest(),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		phase:    PhaseInstalling,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// CacheName returns the version-stamped bucket name this Worker owns.
func (w *Worker) CacheName() string {
	return CacheNamePrefix + w.version
}

// Phase returns the Worker's current lifecycle phase.
func (w *Worker) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// Install precaches the app-shell manifest into the Worker's bucket.
// Any path that fails to fetch, or fetches with a non-200 status,
// aborts the install and leaves the Worker in the installing phase.
// On success the Worker moves to waiting.
func (w *Worker) Install(ctx context.Context) error {
	w.mu.Lock()
	if w.phase != PhaseInstalling {
		phase := w.phase
		w.mu.Unlock()
		return fmt.Errorf("offline: install from the %s phase", phase)
	}
	w.mu.Unlock()

	w.log.Info("installing", "version", w.version, "files", len(w.precache))

	bucket := w.storage.Open(w.CacheName())
	for _, path := range w.precache {
		stored, err := w.fetchAndStore(ctx, path)
		if err != nil {
			return fmt.Errorf("offline: precache %s: %w", path, err)
		}
		bucket.Put(w.requestKey(path), stored)
	}

	w.mu.Lock()
	w.phase = PhaseWaiting
	w.mu.Unlock()
	return nil
}

// Activate deletes every managed bucket belonging to another version
// and moves the Worker to the active phase.
func (w *Worker) Activate(ctx context.Context) error {
	w.mu.Lock()
	if w.phase == PhaseInstalling {
		w.mu.Unlock()
		return fmt.Errorf("offline: activate before install completed")
	}
	w.mu.Unlock()

	w.log.Info("activating", "version", w.version)

	own := w.CacheName()
	for _, name := range w.storage.Names() {
		if name == own || !strings.HasPrefix(name, CacheNamePrefix) {
			continue
		}
		w.log.Info("deleting old cache", "name", name)
		w.storage.Drop(name)
	}

	w.mu.Lock()
	w.phase = PhaseActive
	w.mu.Unlock()
	return nil
}

// SkipWaiting activates a waiting Worker immediately. It is a no-op in
// any other phase.
func (w *Worker) SkipWaiting(ctx context.Context) error {
	w.mu.Lock()
	waiting := w.phase == PhaseWaiting
	w.mu.Unlock()

	if !waiting {
		return nil
	}
	return w.Activate(ctx)
}

// Message is a control message from the host page.
type Message struct {
	Action string
}

// HandleMessage dispatches host control messages. The only recognized
// action is "skipWaiting".
func (w *Worker) HandleMessage(ctx context.Context, msg Message) error {
	if msg.Action == "skipWaiting" {
		return w.SkipWaiting(ctx)
	}
	return nil
}

// Fetch routes one request through the cache policy.
//
// Non-GET requests and requests to other origins pass straight through.
// Documents are served network-first with a cache fallback when the
// network fails. All other same-origin GETs are served cache-first,
// fetching and storing on a miss. Only 200 responses enter the cache.
func (w *Worker) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || !w.sameOrigin(req) {
		return w.fetch(ctx, req)
	}

	if isDocument(req) {
		return w.networkFirst(ctx, req)
	}
	return w.cacheFirst(ctx, req)
}

func (w *Worker) networkFirst(ctx context.Context, req *http.Request) (*http.Response, error) {
	key := req.URL.String()
	bucket := w.storage.Open(w.CacheName())

	resp, err := w.fetch(ctx, req)
	if err != nil {
		if stored, ok := bucket.Match(key); ok {
			w.log.Debug("network failed, serving cached document", "url", key)
			return stored.HTTPResponse(req), nil
		}
		return nil, err
	}

	return w.maybeStore(bucket, key, resp)
}

func (w *Worker) cacheFirst(ctx context.Context, req *http.Request) (*http.Response, error) {
	key := req.URL.String()
	bucket := w.storage.Open(w.CacheName())

	if stored, ok := bucket.Match(key); ok {
		return stored.HTTPResponse(req), nil
	}

	resp, err := w.fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	return w.maybeStore(bucket, key, resp)
}

// maybeStore clones a 200 response into the bucket and returns the
// response with a replayable body. Other statuses are returned
// untouched and never cached.
func (w *Worker) maybeStore(bucket Bucket, key string, resp *http.Response) (*http.Response, error) {
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("offline: read response body: %w", err)
	}

	bucket.Put(key, StoredResponse{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	})

	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

func (w *Worker) fetchAndStore(ctx context.Context, path string) (StoredResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.requestKey(path), nil)
	if err != nil {
		return StoredResponse{}, err
	}

	resp, err := w.fetch(ctx, req)
	if err != nil {
		return StoredResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StoredResponse{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return StoredResponse{}, err
	}

	return StoredResponse{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}, nil
}

func (w *Worker) requestKey(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return w.origin + path
}

func (w *Worker) sameOrigin(req *http.Request) bool {
	return req.URL.Scheme+"://"+req.URL.Host == w.origin
}

// isDocument reports whether a request targets an HTML page. The
// Sec-Fetch-Dest header is authoritative when present; otherwise the
// path decides.
func isDocument(req *http.Request) bool {
	if req.Header.Get("Sec-Fetch-Dest") == "document" {
		return true
	}
	path := strings.ToLower(req.URL.Path)
	return path == "/" || strings.HasSuffix(path, "/") || strings.HasSuffix(path, ".html")
}

// HTTPResponse materializes a stored response for the given request.
func (s StoredResponse) HTTPResponse(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode: s.Status,
		Status:     fmt.Sprintf("%d %s", s.Status, http.StatusText(s.Status)),
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     s.Header.Clone(),
		Body:       io.NopCloser(bytes.NewReader(s.Body)),
		Request:    req,
	}
}

// DefaultPrecacheManifest lists the app shell cached at install time.
func DefaultPrecacheManifest() []string {
	return []string{
		"/",
		"/index.html",
		"/onboarding.html",
		"/HOMEPAGE_FINAL.HTML",
		"/BOOKMARKS.HTML",
		"/CATAGORYPAGE.HTML",
		"/PRIVATE_OWNER_PROFILE.HTML",
		"/PUBLIC_POV_PROFILE.HTML",
		"/MY_SPACE_USER.HTML",
		"/MY_SPACE_COMPANIES.HTML",
		"/NOTIFICATION_PANEL.HTML",
		"/reset-password.html",
		"/global.css",
		"/manifest.json",
		"/icon-192.png",
		"/icon-512.png",
	}
}
