package di

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/plusopinion/go-client-core/backend"
	"github.com/plusopinion/go-client-core/config"
	"github.com/plusopinion/go-client-core/offline"
	"github.com/plusopinion/go-client-core/router"
)

func testConfig() config.Config {
	return config.Config{
		Origin:             "https://plusopinion.com",
		Host:               "plusopinion.com",
		StateNamespace:     "plusopinion_cache",
		SweepInterval:      0,
		NavigateTimeout:    30 * time.Second,
		QueryCacheCapacity: 100,
		QueryCacheTTL:      time.Minute,
	}
}

func noFetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	return offline.StoredResponse{Status: http.StatusOK, Header: http.Header{}}.HTTPResponse(req), nil
}

func TestNewContainer(t *testing.T) {
	c, err := NewContainer(testConfig(), backend.NewMemoryClient(), noFetch)
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	defer c.Close()

	if c.State() == nil {
		t.Error("nil state manager")
	}
	if c.CacheService() == nil {
		t.Error("nil cache service")
	}
	if c.KeySerializer() == nil {
		t.Error("nil key serializer")
	}
	if c.Client() == nil {
		t.Error("nil cached client")
	}
	if c.Router() == nil {
		t.Error("nil router")
	}
	if c.Worker() == nil {
		t.Error("nil worker")
	}
	if c.Preloader() == nil {
		t.Error("nil preloader")
	}
	if c.Config().QueryCacheCapacity != 100 {
		t.Errorf("config not retained: %+v", c.Config())
	}
}

func TestNewContainer_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.QueryCacheCapacity = 0

	if _, err := NewContainer(cfg, backend.NewMemoryClient(), noFetch); err == nil {
		t.Fatal("invalid config accepted")
	}
}

func TestContainer_WiredEndToEnd(t *testing.T) {
	base := backend.NewMemoryClient()
	base.Seed("posts", backend.Record{"id": "p1", "author": "ada"})

	history := router.NewMemoryHistory("/")
	c, err := NewContainer(testConfig(), base, noFetch, WithHistory(history))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	ctx := context.Background()

	// A route handler reads through the cached client and caches the
	// result in the state manager, the flow every page load follows.
	c.Router().Register("/profile/:id", func(ctx context.Context, req router.Request) error {
		rows, err := c.Client().Select(ctx, "posts", backend.Eq("author", "ada"))
		if err != nil {
			return err
		}
		c.State().Set("feed_"+req.Params["id"], rows, time.Minute)
		return nil
	})

	if err := c.Router().Navigate(ctx, "/profile/42", nil, false); err != nil {
		t.Fatalf("Navigate: %v", err)
	}

	rows, ok := c.State().Get("feed_42").([]backend.Record)
	if !ok || len(rows) != 1 {
		t.Fatalf("state after navigation = %v", c.State().Get("feed_42"))
	}
	if history.Location() != "/profile/42" {
		t.Errorf("history location = %q", history.Location())
	}
}

func TestContainer_SQLitePersistenceAcrossSessions(t *testing.T) {
	cfg := testConfig()
	cfg.StatePath = filepath.Join(t.TempDir(), "state.db")

	first, err := NewContainer(cfg, backend.NewMemoryClient(), noFetch)
	if err != nil {
		t.Fatal(err)
	}
	first.State().Set("user_profile", map[string]any{"username": "dev"}, 0)
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := NewContainer(cfg, backend.NewMemoryClient(), noFetch)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	profile, ok := second.State().Get("user_profile").(map[string]any)
	if !ok || profile["username"] != "dev" {
		t.Errorf("profile after restart = %v", second.State().Get("user_profile"))
	}
}

func TestContainer_UnreadCounter(t *testing.T) {
	base := backend.NewMemoryClient()
	base.Seed("notifications", backend.Record{"id": "n1", "user_id": "u1", "is_read": false})

	c, err := NewContainer(testConfig(), base, noFetch)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	ctx := context.Background()

	counter := c.UnreadCounter("u1")
	count, err := counter.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Refresh = %d, want 1", count)
	}

	// The mirror lives in the container's shared store.
	if got := counter.Cached(ctx); got != 1 {
		t.Errorf("Cached = %d, want 1", got)
	}
}
