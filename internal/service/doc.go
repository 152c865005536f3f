// Package service orchestrates the retrieval pipeline: remote metadata sync
// into the local store, tiered content reads (disk cache, then blob store,
// then network with write-through), bulk downloads with partial-success
// progress accounting, and cascading org deletion. Handlers call into this
// package only; they never touch the storage tiers directly.
package service
