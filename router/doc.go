// Package router implements client-side navigation for a single-page
// application runtime: a pattern registry with :name parameter segments,
// history-entry management, scroll-position memory per route, and a
// display-path table that masks physical resource paths behind clean URLs.
//
// A Router never processes two navigations at once. A Navigate call made
// while another is still running fails fast with ErrNavigationInFlight
// rather than queueing. Each handler runs under a per-navigation deadline
// so a hung handler releases the guard instead of blocking navigation
// forever.
//
// The browser surfaces (history stack, scroll viewport) are injected as
// the History and Viewport interfaces. MemoryHistory and MemoryViewport
// provide in-process implementations.
package router
