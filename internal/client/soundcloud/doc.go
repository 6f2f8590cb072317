// Package soundcloud is a typed client for the subset of the SoundCloud v2 web API
// needed to resolve references, enumerate collections and locate audio.
// Requests carry a public client_id; when the platform rejects it the client
// scrapes a fresh one from the web app and retries once.
// Track and playlist responses are kept in LRU caches for the lifetime of a run.
package soundcloud
