// Package blob defines the durable content store behind the TTL disk cache.
// Content is addressed by an opaque identifier minted on Put; backends are
// registered by key (fs, s3) and selected through configuration. Lookups
// distinguish "not found" (absent, no error) from "backend unavailable"
// (StorageError) so the orchestrator's fallback chain never masks an outage.
package blob
