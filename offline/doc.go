// Package offline implements the application's offline cache layer: a
// versioned store of HTTP responses and a Worker that sits between the
// application and the network, applying a network-first policy to
// documents and a cache-first policy to static assets.
//
// Each Worker owns one bucket named for its build version
// ("plusopinion-pwa-<version>"). Installing a new version precaches the
// app shell into a fresh bucket; activating it deletes every bucket
// belonging to an older version, so exactly one version's responses
// survive an upgrade.
//
// Only successful (HTTP 200) same-origin GET responses are ever cached.
// Everything else passes through to the network untouched.
package offline
