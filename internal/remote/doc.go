// Package remote implements the HTTP client for the upstream batch API. It
// wraps every call in a bounded retry loop with exponential backoff, maps
// upstream status codes onto typed errors (org/batch not found, rate limited,
// download failed) and validates list payloads at the parse boundary so that
// a malformed response never masquerades as an empty one. The orchestrator
// depends on this package as the final tier of the cache → blob → network
// fallback chain.
package remote
