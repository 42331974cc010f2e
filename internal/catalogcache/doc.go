// Package catalogcache persists raw Hall of Beorn responses in SQLite so
// repeated runs do not refetch every set document.
//
// Entries are keyed by request URL and expire after a configurable TTL. Only
// fetched documents are stored; match results are always recomputed.
package catalogcache
