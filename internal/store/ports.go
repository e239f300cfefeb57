// Package store defines the session ledger ports consumed by ingestion, analytics
// and the HTTP layer.
package store

import "spendwise/internal/core"

// Snapshot is a point-in-time copy of a ledger, safe to aggregate without locks.
type Snapshot struct {
	Transactions []core.Transaction
	Categories   []core.Category
}

// Ports for the session ledger.
type (
	TransactionWriter interface {
		Append(txs ...core.Transaction)
		// ReassignCategory is a silent no-op for unknown transaction ids.
		ReassignCategory(id int64, categoryID *int64) bool
	}

	CategoryManager interface {
		AddCategory(name, color string) (core.Category, error)
		// UpdateCategory reports false without error when id is unknown.
		UpdateCategory(id int64, name, color string) (core.Category, bool, error)
		// DeleteCategory never touches transactions referencing id.
		DeleteCategory(id int64) bool
		Categories() []core.Category
	}

	SnapshotReader interface {
		Snapshot() Snapshot
	}

	// Ledger is everything a session needs from its store.
	Ledger interface {
		TransactionWriter
		CategoryManager
		SnapshotReader
		NextID() int64
	}
)
