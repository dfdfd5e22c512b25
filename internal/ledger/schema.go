package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// schema.sql is the version 1 layout. Later versions are reached through
// upgradeSteps only.
//
//go:embed schema.sql
var baseSchemaSQL string

// CurrentVersion is the newest schema version this build understands.
const CurrentVersion = 2

type upgradeStep struct {
	version    int
	statements []string
}

// upgradeSteps are additive and ordered by the version they produce.
var upgradeSteps = []upgradeStep{
	{
		version: 2,
		statements: []string{
			"CREATE INDEX IF NOT EXISTS idx_segments_item_id ON segments(item_id)",
			"CREATE INDEX IF NOT EXISTS idx_source_refs_fingerprint ON source_refs(fingerprint)",
		},
	},
}

const schemaLockPollInterval = 50 * time.Millisecond

// VersionStamp is one row of the schema_version table.
type VersionStamp struct {
	Version   int       `json:"version"`
	AppliedAt time.Time `json:"applied_at"`
}

// Ensure brings the ledger to target. An empty ledger gets the full layout;
// an older one gets the missing upgrade steps; a newer one is rejected with
// ErrSchemaTooNew without any writes. The check runs in one transaction
// under an exclusive file lock, so concurrent processes never race on it.
// Run it once before starting any worker pool.
func (l *Ledger) Ensure(ctx context.Context, target int) error {
	ctx = ensureContext(ctx)
	if target < 1 || target > CurrentVersion {
		return fmt.Errorf("ledger: unsupported target schema version %d (this build supports 1..%d)", target, CurrentVersion)
	}

	lock := flock.New(l.path + ".lock")
	locked, err := lock.TryLockContext(ctx, schemaLockPollInterval)
	if err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire schema lock: %s is held", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	session, err := l.Session(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	return session.withTx(ctx, func(tx *sql.Tx) error {
		stored, err := readVersion(ctx, tx)
		if err != nil {
			return err
		}
		switch {
		case stored > target:
			return fmt.Errorf("%w: ledger %s has version %d, this build expects %d", ErrSchemaTooNew, l.path, stored, target)
		case stored == target:
			return nil
		case stored == 0:
			if _, err := tx.ExecContext(ctx, baseSchemaSQL); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
			stored = 1
		}
		for _, step := range upgradeSteps {
			if step.version <= stored || step.version > target {
				continue
			}
			for _, stmt := range step.statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("upgrade schema to version %d: %w", step.version, err)
				}
			}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
			target, formatTime(time.Now()),
		); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	})
}

// Version reports the stored schema version; 0 means uninitialized.
func (l *Ledger) Version(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	return readVersion(ctx, l.db)
}

// VersionHistory lists every version stamp in the order it was applied.
func (l *Ledger) VersionHistory(ctx context.Context) ([]VersionStamp, error) {
	ctx = ensureContext(ctx)
	present, err := hasVersionTable(ctx, l.db)
	if err != nil || !present {
		return nil, err
	}
	rows, err := l.db.QueryContext(ctx, "SELECT version, applied_at FROM schema_version ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("list schema versions: %w", err)
	}
	defer rows.Close()

	var stamps []VersionStamp
	for rows.Next() {
		var (
			stamp   VersionStamp
			applied sql.NullString
		)
		if err := rows.Scan(&stamp.Version, &applied); err != nil {
			return nil, err
		}
		stamp.AppliedAt = parseTimeString(applied)
		stamps = append(stamps, stamp)
	}
	return stamps, rows.Err()
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func hasVersionTable(ctx context.Context, q queryRower) (bool, error) {
	var count int
	if err := q.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&count); err != nil {
		return false, fmt.Errorf("check schema_version table: %w", err)
	}
	return count > 0, nil
}

func readVersion(ctx context.Context, q queryRower) (int, error) {
	present, err := hasVersionTable(ctx, q)
	if err != nil || !present {
		return 0, err
	}
	var version int
	if err := q.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
