// Package store persists organization and batch records in an embedded
// SQLite database via GORM. It enforces uniqueness on organization codes
// and batch identifiers, supports per-field partial updates, and reports
// absence as a found-boolean rather than an error so that callers can
// treat the store as a cache tier in front of the network.
package store
