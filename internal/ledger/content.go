package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const contentColumns = "fingerprint, item_id, location, size_bytes, created_at"

func scanContent(scanner interface{ Scan(dest ...any) error }) (ContentObject, error) {
	var (
		obj     ContentObject
		created sql.NullString
	)
	if err := scanner.Scan(&obj.Fingerprint, &obj.ItemID, &obj.Location, &obj.SizeBytes, &created); err != nil {
		return ContentObject{}, err
	}
	obj.CreatedAt = parseTimeString(created)
	return obj, nil
}

// InsertContentObject records obj as the owner of its fingerprint. It
// returns ErrDuplicate when the fingerprint is already owned.
func (s *Session) InsertContentObject(ctx context.Context, obj ContentObject) error {
	if obj.Fingerprint == "" {
		return errors.New("content object fingerprint is required")
	}
	created := obj.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return s.insertOnce(ctx,
		`INSERT INTO content_objects (fingerprint, item_id, location, size_bytes, created_at)
		 VALUES (?, ?, ?, ?, ?) ON CONFLICT(fingerprint) DO NOTHING`,
		obj.Fingerprint, obj.ItemID, obj.Location, obj.SizeBytes, formatTime(created),
	)
}

// ContentByFingerprint loads the content object owning fingerprint.
func (s *Session) ContentByFingerprint(ctx context.Context, fingerprint string) (ContentObject, error) {
	ctx = ensureContext(ctx)
	row := s.conn.QueryRowContext(ctx, "SELECT "+contentColumns+" FROM content_objects WHERE fingerprint = ?", fingerprint)
	obj, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ContentObject{}, fmt.Errorf("content %s: %w", fingerprint, ErrNotFound)
	}
	if err != nil {
		return ContentObject{}, fmt.Errorf("load content %s: %w", fingerprint, err)
	}
	return obj, nil
}

// ListContent returns every content object ordered by creation time.
func (s *Session) ListContent(ctx context.Context) ([]ContentObject, error) {
	return s.queryContent(ctx, "SELECT "+contentColumns+" FROM content_objects ORDER BY created_at, fingerprint")
}

// OrphanContent returns content objects that no source locator references.
// They are left in place by the pipeline; an offline sweep may reclaim them.
func (s *Session) OrphanContent(ctx context.Context) ([]ContentObject, error) {
	return s.queryContent(ctx,
		`SELECT `+contentColumns+` FROM content_objects c
		 WHERE NOT EXISTS (SELECT 1 FROM source_refs r WHERE r.fingerprint = c.fingerprint)
		 ORDER BY created_at, fingerprint`)
}

func (s *Session) queryContent(ctx context.Context, query string, args ...any) ([]ContentObject, error) {
	ctx = ensureContext(ctx)
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}
	defer rows.Close()

	var out []ContentObject
	for rows.Next() {
		obj, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		out = append(out, obj)
	}
	return out, rows.Err()
}

// IsBound reports whether locator already resolved to content.
func (s *Session) IsBound(ctx context.Context, locator string) (bool, error) {
	return s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM source_refs WHERE locator = ?)", locator)
}

// BindSource records that locator resolved to fingerprint. It returns
// ErrDuplicate when the locator is already bound.
func (s *Session) BindSource(ctx context.Context, locator, fingerprint string) error {
	if locator == "" || fingerprint == "" {
		return errors.New("locator and fingerprint are required")
	}
	return s.insertOnce(ctx,
		`INSERT INTO source_refs (locator, fingerprint, resolved_at)
		 VALUES (?, ?, ?) ON CONFLICT(locator) DO NOTHING`,
		locator, fingerprint, formatTime(time.Now()),
	)
}

// SourceRef loads the binding for locator.
func (s *Session) SourceRef(ctx context.Context, locator string) (SourceRef, error) {
	ctx = ensureContext(ctx)
	var (
		ref      SourceRef
		resolved sql.NullString
	)
	err := s.conn.QueryRowContext(ctx,
		"SELECT locator, fingerprint, resolved_at FROM source_refs WHERE locator = ?", locator,
	).Scan(&ref.Locator, &ref.Fingerprint, &resolved)
	if errors.Is(err, sql.ErrNoRows) {
		return SourceRef{}, fmt.Errorf("source %s: %w", locator, ErrNotFound)
	}
	if err != nil {
		return SourceRef{}, fmt.Errorf("load source %s: %w", locator, err)
	}
	ref.ResolvedAt = parseTimeString(resolved)
	return ref, nil
}

// ListSourceRefs returns every binding ordered by locator.
func (s *Session) ListSourceRefs(ctx context.Context) ([]SourceRef, error) {
	ctx = ensureContext(ctx)
	rows, err := s.conn.QueryContext(ctx, "SELECT locator, fingerprint, resolved_at FROM source_refs ORDER BY locator")
	if err != nil {
		return nil, fmt.Errorf("query source refs: %w", err)
	}
	defer rows.Close()

	var out []SourceRef
	for rows.Next() {
		var (
			ref      SourceRef
			resolved sql.NullString
		)
		if err := rows.Scan(&ref.Locator, &ref.Fingerprint, &resolved); err != nil {
			return nil, fmt.Errorf("scan source ref: %w", err)
		}
		ref.ResolvedAt = parseTimeString(resolved)
		out = append(out, ref)
	}
	return out, rows.Err()
}

// IsLocationClaimed reports whether any content object stores its media at
// location.
func (s *Session) IsLocationClaimed(ctx context.Context, location string) (bool, error) {
	return s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM content_objects WHERE location = ?)", location)
}
