// Package prefetch warms the offline cache ahead of navigation. A
// Preloader fetches pages through the offline Worker when a link is
// about to be followed, so the eventual navigation is served from
// cache. Each target is warmed at most once per session and concurrent
// requests for the same target share a single fetch.
package prefetch
