// Package cache provides the TTL-bound disk tier that sits in front of the
// durable blob store. Each batch body lives in a single <Dir>/<batchID>.cache
// file whose modification time doubles as the freshness marker: entries older
// than the configured TTL are treated as misses and reaped lazily on read.
// Writes go through temp file + rename so readers never observe partial
// bodies. When caching is disabled the store degrades to an always-miss
// no-op, letting callers keep a single code path.
package cache
