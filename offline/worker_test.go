package offline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
)

// scriptedFetcher serves canned responses by URL and counts hits.
type scriptedFetcher struct {
	mu        sync.Mutex
	responses map[string]StoredResponse
	failures  map[string]error
	hits      map[string]int
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		responses: make(map[string]StoredResponse),
		failures:  make(map[string]error),
		hits:      make(map[string]int),
	}
}

func (f *scriptedFetcher) serve(url, body string) {
	f.serveStatus(url, http.StatusOK, body)
}

func (f *scriptedFetcher) serveStatus(url string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = StoredResponse{Status: status, Header: http.Header{}, Body: []byte(body)}
}

func (f *scriptedFetcher) fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[url] = err
}

func (f *scriptedFetcher) hitCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[url]
}

func (f *scriptedFetcher) Fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	url := req.URL.String()
	f.hits[url]++

	if err, ok := f.failures[url]; ok {
		return nil, err
	}
	if resp, ok := f.responses[url]; ok {
		return resp.HTTPResponse(req), nil
	}
	return StoredResponse{Status: http.StatusNotFound, Header: http.Header{}}.HTTPResponse(req), nil
}

func newTestWorker(t *testing.T, fetcher *scriptedFetcher, opts ...WorkerOption) (*Worker, *MemoryStorage) {
	t.Helper()

	storage := NewMemoryStorage()
	opts = append([]WorkerOption{WithPrecache(nil)}, opts...)
	w := NewWorker("20250601", storage, fetcher.Fetch, opts...)
	return w, storage
}

func get(t *testing.T, url string, header http.Header) *http.Request {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	return req
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return string(body)
}

func TestWorker_CacheName(t *testing.T) {
	w, _ := newTestWorker(t, newScriptedFetcher())

	if got := w.CacheName(); got != "plusopinion-pwa-20250601" {
		t.Errorf("CacheName = %q", got)
	}
}

func TestWorker_InstallPrecachesManifest(t *testing.T) {
	fetcher := newScriptedFetcher()
	fetcher.serve("https://plusopinion.com/index.html", "<html>shell</html>")
	fetcher.serve("https://plusopinion.com/global.css", "body{}")

	storage := NewMemoryStorage()
	w := NewWorker("20250601", storage, fetcher.Fetch,
		WithPrecache([]string{"/index.html", "/global.css"}))

	if err := w.Install(context.Background()); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if w.Phase() != PhaseWaiting {
		t.Errorf("phase = %v, want waiting", w.Phase())
	}

	bucket := storage.Open(w.CacheName())
	if _, ok := bucket.Match("https://plusopinion.com/index.html"); !ok {
		t.Error("index.html not precached")
	}
	if _, ok := bucket.Match("https://plusopinion.com/global.css"); !ok {
		t.Error("global.css not precached")
	}
}

func TestWorker_InstallAbortsOnFailure(t *testing.T) {
	fetcher := newScriptedFetcher()
	fetcher.serve("https://plusopinion.com/index.html", "<html>shell</html>")
	fetcher.fail("https://plusopinion.com/global.css", errors.New("offline"))

	storage := NewMemoryStorage()
	w := NewWorker("20250601", storage, fetcher.Fetch,
		WithPrecache([]string{"/index.html", "/global.css"}))

	err := w.Install(context.Background())
	if err == nil || !strings.Contains(err.Error(), "global.css") {
		t.Fatalf("Install err = %v, want precache failure", err)
	}
	if w.Phase() != PhaseInstalling {
		t.Errorf("phase = %v, want installing after failed install", w.Phase())
	}
}

func TestWorker_InstallRejectsNon200(t *testing.T) {
	fetcher := newScriptedFetcher()
	fetcher.serveStatus("https://plusopinion.com/index.html", http.StatusNotFound, "missing")

	storage := NewMemoryStorage()
	w := NewWorker("20250601", storage, fetcher.Fetch,
		WithPrecache([]string{"/index.html"}))

	if err := w.Install(context.Background()); err == nil {
		t.Fatal("Install accepted a 404 precache response")
	}
}

func TestWorker_ActivateDeletesStaleBuckets(t *testing.T) {
	fetcher := newScriptedFetcher()
	w, storage := newTestWorker(t, fetcher)

	// Leftovers from two earlier builds, plus an unmanaged bucket.
	storage.Open("plusopinion-pwa-20250101")
	storage.Open("plusopinion-pwa-20250301")
	storage.Open("unrelated-store")

	ctx := context.Background()
	if err := w.Install(ctx); err != nil {
		t.Fatal(err)
	}
	if err := w.Activate(ctx); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if w.Phase() != PhaseActive {
		t.Errorf("phase = %v, want active", w.Phase())
	}

	names := storage.Names()
	for _, name := range names {
		if name == "plusopinion-pwa-20250101" || name == "plusopinion-pwa-20250301" {
			t.Errorf("stale bucket %s survived activation", name)
		}
	}

	var keptUnmanaged bool
	for _, name := range names {
		if name == "unrelated-store" {
			keptUnmanaged = true
		}
	}
	if !keptUnmanaged {
		t.Error("activation deleted a bucket outside its prefix")
	}
}

func TestWorker_ActivateRequiresInstall(t *testing.T) {
	w, _ := newTestWorker(t, newScriptedFetcher())

	if err := w.Activate(context.Background()); err == nil {
		t.Fatal("Activate succeeded without a completed install")
	}
}

func TestWorker_SkipWaitingActivates(t *testing.T) {
	fetcher := newScriptedFetcher()
	w, _ := newTestWorker(t, fetcher)
	ctx := context.Background()

	// skipWaiting before install is a no-op.
	if err := w.HandleMessage(ctx, Message{Action: "skipWaiting"}); err != nil {
		t.Fatal(err)
	}
	if w.Phase() != PhaseInstalling {
		t.Errorf("phase = %v, want installing", w.Phase())
	}

	if err := w.Install(ctx); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleMessage(ctx, Message{Action: "skipWaiting"}); err != nil {
		t.Fatal(err)
	}
	if w.Phase() != PhaseActive {
		t.Errorf("phase = %v, want active after skipWaiting", w.Phase())
	}
}

func TestWorker_NonGETPassesThrough(t *testing.T) {
	fetcher := newScriptedFetcher()
	fetcher.serve("https://plusopinion.com/api", "ok")
	w, storage := newTestWorker(t, fetcher)

	req, _ := http.NewRequest(http.MethodPost, "https://plusopinion.com/api", strings.NewReader("{}"))
	resp, err := w.Fetch(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)

	if keys := storage.Open(w.CacheName()).Keys(); len(keys) != 0 {
		t.Errorf("POST response was cached: %v", keys)
	}
}

func TestWorker_CrossOriginPassesThrough(t *testing.T) {
	fetcher := newScriptedFetcher()
	fetcher.serve("https://cdn.example.com/lib.js", "console.log(1)")
	w, storage := newTestWorker(t, fetcher)
	ctx := context.Background()

	resp, err := w.Fetch(ctx, get(t, "https://cdn.example.com/lib.js", nil))
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)

	if keys := storage.Open(w.CacheName()).Keys(); len(keys) != 0 {
		t.Errorf("cross-origin response was cached: %v", keys)
	}
	// Every repeat goes back to the network.
	w.Fetch(ctx, get(t, "https://cdn.example.com/lib.js", nil))
	if fetcher.hitCount("https://cdn.example.com/lib.js") != 2 {
		t.Errorf("hits = %d, want 2", fetcher.hitCount("https://cdn.example.com/lib.js"))
	}
}

func TestWorker_DocumentNetworkFirst(t *testing.T) {
	const url = "https://plusopinion.com/HOMEPAGE_FINAL.HTML"
	fetcher := newScriptedFetcher()
	fetcher.serve(url, "v1")
	w, _ := newTestWorker(t, fetcher)
	ctx := context.Background()

	resp, err := w.Fetch(ctx, get(t, url, nil))
	if err != nil {
		t.Fatal(err)
	}
	if got := readBody(t, resp); got != "v1" {
		t.Fatalf("body = %q", got)
	}

	// The network copy wins even with a cached copy present.
	fetcher.serve(url, "v2")
	resp, err = w.Fetch(ctx, get(t, url, nil))
	if err != nil {
		t.Fatal(err)
	}
	if got := readBody(t, resp); got != "v2" {
		t.Errorf("body = %q, want the fresh network copy", got)
	}

	// Offline: the last cached copy is served.
	fetcher.fail(url, errors.New("network down"))
	resp, err = w.Fetch(ctx, get(t, url, nil))
	if err != nil {
		t.Fatalf("offline fetch: %v", err)
	}
	if got := readBody(t, resp); got != "v2" {
		t.Errorf("offline body = %q, want cached v2", got)
	}
}

func TestWorker_DocumentOfflineWithoutCacheFails(t *testing.T) {
	const url = "https://plusopinion.com/BOOKMARKS.HTML"
	fetcher := newScriptedFetcher()
	netErr := errors.New("network down")
	fetcher.fail(url, netErr)
	w, _ := newTestWorker(t, fetcher)

	_, err := w.Fetch(context.Background(), get(t, url, nil))
	if !errors.Is(err, netErr) {
		t.Errorf("err = %v, want the network error", err)
	}
}

func TestWorker_AssetCacheFirst(t *testing.T) {
	const url = "https://plusopinion.com/global.css"
	fetcher := newScriptedFetcher()
	fetcher.serve(url, "body{}")
	w, _ := newTestWorker(t, fetcher)
	ctx := context.Background()

	resp, err := w.Fetch(ctx, get(t, url, nil))
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)

	// Second read is served from cache without touching the network.
	resp, err = w.Fetch(ctx, get(t, url, nil))
	if err != nil {
		t.Fatal(err)
	}
	if got := readBody(t, resp); got != "body{}" {
		t.Errorf("cached body = %q", got)
	}
	if fetcher.hitCount(url) != 1 {
		t.Errorf("network hits = %d, want 1", fetcher.hitCount(url))
	}
}

func TestWorker_Non200NeverCached(t *testing.T) {
	const url = "https://plusopinion.com/missing.js"
	fetcher := newScriptedFetcher()
	fetcher.serveStatus(url, http.StatusNotFound, "nope")
	w, storage := newTestWorker(t, fetcher)
	ctx := context.Background()

	resp, err := w.Fetch(ctx, get(t, url, nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	readBody(t, resp)

	if keys := storage.Open(w.CacheName()).Keys(); len(keys) != 0 {
		t.Errorf("404 was cached: %v", keys)
	}
	// The miss keeps hitting the network.
	w.Fetch(ctx, get(t, url, nil))
	if fetcher.hitCount(url) != 2 {
		t.Errorf("hits = %d, want 2", fetcher.hitCount(url))
	}
}

func TestWorker_SecFetchDestMarksDocument(t *testing.T) {
	const url = "https://plusopinion.com/feed"
	fetcher := newScriptedFetcher()
	fetcher.serve(url, "v1")
	w, _ := newTestWorker(t, fetcher)
	ctx := context.Background()

	header := http.Header{"Sec-Fetch-Dest": []string{"document"}}
	resp, err := w.Fetch(ctx, get(t, url, header))
	readBody(t, must(t, resp, err))

	// Network-first: a second fetch reaches the network again.
	resp, err = w.Fetch(ctx, get(t, url, header))
	readBody(t, must(t, resp, err))
	if fetcher.hitCount(url) != 2 {
		t.Errorf("hits = %d, want network-first behavior", fetcher.hitCount(url))
	}
}

func must(t *testing.T, resp *http.Response, err error) *http.Response {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestIsDocument(t *testing.T) {
	tests := []struct {
		url  string
		dest string
		want bool
	}{
		{"https://plusopinion.com/", "", true},
		{"https://plusopinion.com/index.html", "", true},
		{"https://plusopinion.com/HOMEPAGE_FINAL.HTML", "", true},
		{"https://plusopinion.com/global.css", "", false},
		{"https://plusopinion.com/api/feed", "", false},
		{"https://plusopinion.com/api/feed", "document", true},
	}
	for _, tc := range tests {
		req, _ := http.NewRequest(http.MethodGet, tc.url, nil)
		if tc.dest != "" {
			req.Header.Set("Sec-Fetch-Dest", tc.dest)
		}
		if got := isDocument(req); got != tc.want {
			t.Errorf("isDocument(%s, dest=%q) = %v, want %v", tc.url, tc.dest, got, tc.want)
		}
	}
}
