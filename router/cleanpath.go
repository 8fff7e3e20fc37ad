package router

import (
	"net/url"
	"strings"
)

// PathCleaner maintains a bidirectional table between physical resource
// paths and the display paths shown to users. Masking is disabled on
// development hosts so a manual refresh keeps resolving to the real
// file.
type PathCleaner struct {
	toDisplay  map[string]string
	toPhysical map[string]string
	host       string
}

// devHosts are the hostnames on which masking is skipped.
var devHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
}

// CleanerOption configures a PathCleaner.
type CleanerOption func(*PathCleaner)

// WithHost sets the hostname the cleaner considers itself running on.
// The zero value behaves like a production host.
func WithHost(host string) CleanerOption {
	return func(c *PathCleaner) { c.host = host }
}

// NewPathCleaner builds a cleaner from a physical-to-display mapping.
func NewPathCleaner(mapping map[string]string, opts ...CleanerOption) *PathCleaner {
	c := &PathCleaner{
		toDisplay:  make(map[string]string, len(mapping)),
		toPhysical: make(map[string]string, len(mapping)),
	}
	for physical, display := range mapping {
		c.toDisplay[physical] = display
		c.toPhysical[display] = physical
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultPathCleaner returns a cleaner loaded with the application's
// page table.
func DefaultPathCleaner(opts ...CleanerOption) *PathCleaner {
	return NewPathCleaner(map[string]string{
		"/index.html":                          "/",
		"/HOMEPAGE_FINAL.HTML":                 "/feed",
		"/BOOKMARKS.HTML":                      "/bookmarks",
		"/CATAGORYPAGE.HTML":                   "/categories",
		"/MY%20SPACE%20FINAL%20(USER).HTML":    "/myspace",
		"/MY%20SPACE%20FINAL(COMPANIES).HTML":  "/workspace",
		"/NOTIFICATION%20PANEL.HTML":           "/notifications",
		"/PRIVATE%20OWNER%20PROFILE.HTML":      "/myprofile",
		"/PUBLIC%20POV%20PROFILE.HTML":         "/profile",
		"/onboarding.html":                     "/onboarding",
		"/reset-password.html":                 "/reset-password",
		"/change-password.html":                "/change-password",
		"/ABOUT.HTML":                          "/about",
		"/SUPPORT.HTML":                        "/support",
		"/PRIVACY_POLICY.HTML":                 "/privacy-policy",
		"/TERMS_AND_CONDITIONS.HTML":           "/T&C",
	}, opts...)
}

// DevelopmentHost reports whether the cleaner is running on a host
// where masking is disabled.
func (c *PathCleaner) DevelopmentHost() bool {
	return devHosts[c.host]
}

// Display translates a physical path into its display form. Unknown
// paths and development hosts pass through unchanged.
func (c *PathCleaner) Display(physical string) string {
	if c.DevelopmentHost() {
		return physical
	}

	normalized := physical
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if display, ok := c.toDisplay[normalized]; ok {
		return display
	}
	return physical
}

// Physical translates a display path back to the resource it masks.
// Unknown paths pass through unchanged.
func (c *PathCleaner) Physical(display string) string {
	if physical, ok := c.toPhysical[display]; ok {
		return physical
	}
	return display
}

// RewriteCurrent replaces the history's current entry with the display
// form of its path, preserving nothing else. It is a no-op on
// development hosts and for paths outside the table. Matching is done
// on the percent-decoded path so encoded and literal spellings of the
// same file both rewrite.
func (c *PathCleaner) RewriteCurrent(h History) {
	if c.DevelopmentHost() {
		return
	}

	location := h.Location()
	decoded, err := url.PathUnescape(location)
	if err != nil {
		decoded = location
	}

	for physical, display := range c.toDisplay {
		decodedPhysical, err := url.PathUnescape(physical)
		if err != nil {
			decodedPhysical = physical
		}
		if decoded == decodedPhysical || strings.HasSuffix(decoded, decodedPhysical) {
			h.Replace(display, nil)
			return
		}
	}
}
