package router

import "testing"

func TestPathCleaner_Display(t *testing.T) {
	c := DefaultPathCleaner(WithHost("plusopinion.com"))

	tests := []struct {
		physical string
		want     string
	}{
		{"/HOMEPAGE_FINAL.HTML", "/feed"},
		{"HOMEPAGE_FINAL.HTML", "/feed"},
		{"/index.html", "/"},
		{"/BOOKMARKS.HTML", "/bookmarks"},
		{"/unknown.html", "/unknown.html"},
	}
	for _, tc := range tests {
		if got := c.Display(tc.physical); got != tc.want {
			t.Errorf("Display(%q) = %q, want %q", tc.physical, got, tc.want)
		}
	}
}

func TestPathCleaner_Physical(t *testing.T) {
	c := DefaultPathCleaner(WithHost("plusopinion.com"))

	if got := c.Physical("/feed"); got != "/HOMEPAGE_FINAL.HTML" {
		t.Errorf("Physical(/feed) = %q", got)
	}
	if got := c.Physical("/not-mapped"); got != "/not-mapped" {
		t.Errorf("unknown display path changed to %q", got)
	}
}

func TestPathCleaner_DevelopmentHostPassThrough(t *testing.T) {
	for _, host := range []string{"localhost", "127.0.0.1"} {
		c := DefaultPathCleaner(WithHost(host))
		if !c.DevelopmentHost() {
			t.Errorf("%s not recognized as development host", host)
		}
		if got := c.Display("/HOMEPAGE_FINAL.HTML"); got != "/HOMEPAGE_FINAL.HTML" {
			t.Errorf("masking active on %s: %q", host, got)
		}
	}
}

func TestPathCleaner_RewriteCurrent(t *testing.T) {
	c := DefaultPathCleaner(WithHost("plusopinion.com"))

	h := NewMemoryHistory("/BOOKMARKS.HTML")
	c.RewriteCurrent(h)
	if h.Location() != "/bookmarks" {
		t.Errorf("location = %q, want /bookmarks", h.Location())
	}

	// Percent-encoded physical paths match their decoded spelling.
	h = NewMemoryHistory("/MY SPACE FINAL (USER).HTML")
	c.RewriteCurrent(h)
	if h.Location() != "/myspace" {
		t.Errorf("location = %q, want /myspace", h.Location())
	}

	// Deep deployments keep working through the suffix match.
	h = NewMemoryHistory("/app/BOOKMARKS.HTML")
	c.RewriteCurrent(h)
	if h.Location() != "/bookmarks" {
		t.Errorf("location = %q, want /bookmarks", h.Location())
	}

	// Unmapped locations stay put.
	h = NewMemoryHistory("/feed")
	c.RewriteCurrent(h)
	if h.Location() != "/feed" {
		t.Errorf("unmapped location rewritten to %q", h.Location())
	}
}

func TestPathCleaner_RewriteCurrentSkippedInDev(t *testing.T) {
	c := DefaultPathCleaner(WithHost("localhost"))

	h := NewMemoryHistory("/BOOKMARKS.HTML")
	c.RewriteCurrent(h)
	if h.Location() != "/BOOKMARKS.HTML" {
		t.Errorf("dev host rewrote location to %q", h.Location())
	}
}
