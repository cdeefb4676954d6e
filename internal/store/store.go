// Package store persists each chat's watchlist of monitored products.
//
// All state flows through the narrow Store interface so the file-backed
// default can be swapped for the redis backend (or something transactional
// later) without touching the watcher or the dispatcher. Implementations
// keep an in-memory copy guarded by a mutex: a single-writer discipline that
// closes the load/save race a bare flat-file design would have.
package store

import (
	"time"
)

// Product is one monitored product owned by a chat
type Product struct {
	Name      string    `json:"name"`
	LastPrice float64   `json:"last_price"`
	LastCheck time.Time `json:"last_check"`
}

// ChatProducts maps a product URL to its record. At most one record exists
// per (chat, URL) pair.
type ChatProducts map[string]Product

// State is the full persisted collection, keyed by chat identifier
type State map[string]ChatProducts

// Store is the single shared mutable resource of the system
type Store interface {
	// Snapshot returns a deep copy of the full state, safe to iterate
	// while mutations happen concurrently
	Snapshot() State

	// Products returns a copy of one chat's records (nil-safe, may be empty)
	Products(chatID string) ChatProducts

	// Get returns one record
	Get(chatID, url string) (Product, bool)

	// Upsert creates or replaces a record and persists the new state.
	// A persistence failure is returned but the in-memory state keeps the
	// mutation; callers log and continue (best-effort persistence).
	Upsert(chatID, url string, p Product) error

	// Delete removes a record and persists, reporting the removed record
	Delete(chatID, url string) (Product, bool, error)
}

// Clone deep-copies a state
func Clone(s State) State {
	out := make(State, len(s))
	for chatID, products := range s {
		cp := make(ChatProducts, len(products))
		for url, p := range products {
			cp[url] = p
		}
		out[chatID] = cp
	}
	return out
}
