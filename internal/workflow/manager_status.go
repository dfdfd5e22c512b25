package workflow

import (
	"context"

	"clipper/internal/ledger"
)

// StatusSnapshot describes the ledger for the status command.
type StatusSnapshot struct {
	LedgerPath    string                `json:"ledger_path"`
	SchemaVersion int                   `json:"schema_version"`
	History       []ledger.VersionStamp `json:"history"`
	Counts        ledger.Counts         `json:"counts"`
	Orphans       []string              `json:"orphans,omitempty"`
}

// Status reports schema version, row counts, and unreferenced content
// objects.
func (m *Manager) Status(ctx context.Context) (StatusSnapshot, error) {
	snapshot := StatusSnapshot{LedgerPath: m.ledger.Path()}

	version, err := m.ledger.Version(ctx)
	if err != nil {
		return snapshot, err
	}
	snapshot.SchemaVersion = version
	if snapshot.History, err = m.ledger.VersionHistory(ctx); err != nil {
		return snapshot, err
	}

	session, err := m.ledger.Session(ctx)
	if err != nil {
		return snapshot, err
	}
	defer session.Close()

	if snapshot.Counts, err = session.Counts(ctx); err != nil {
		return snapshot, err
	}
	orphans, err := session.OrphanContent(ctx)
	if err != nil {
		return snapshot, err
	}
	for _, obj := range orphans {
		snapshot.Orphans = append(snapshot.Orphans, obj.Fingerprint)
	}
	m.recorder.SetCounts(snapshot.Counts)
	return snapshot, nil
}

// Clips returns the highest-confidence contradictions with both clip
// ranges, for a downstream renderer. limit <= 0 returns all.
func (m *Manager) Clips(ctx context.Context, limit int) ([]ledger.ContradictionClip, error) {
	session, err := m.ledger.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()
	return session.ContradictionClips(ctx, limit)
}
