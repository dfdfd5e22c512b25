package ledger

import "errors"

var (
	// ErrDuplicate reports that a uniqueness constraint rejected an insert
	// because another writer already committed the same identity.
	ErrDuplicate = errors.New("ledger: duplicate key")

	// ErrNotFound reports that a lookup matched no row.
	ErrNotFound = errors.New("ledger: not found")

	// ErrSchemaTooNew reports a stored schema version newer than the running
	// binary understands.
	ErrSchemaTooNew = errors.New("ledger: schema version too new")
)
