package db

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// DocumentKind names a stored input document.
type DocumentKind string

const (
	DocumentItems     DocumentKind = "items"
	DocumentCostToMax DocumentKind = "cost_to_max"
)

// Document is the latest stored copy of one input document.
type Document struct {
	Kind       DocumentKind
	Content    []byte
	Checksum   string
	Source     string
	ImportedAt time.Time
}

// DocumentStore handles raw input document access.
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Put replaces the stored document of the given kind. It reports whether the
// content differs from what was stored before.
func (s *DocumentStore) Put(ctx context.Context, kind DocumentKind, content []byte, source string) (bool, error) {
	checksum := Checksum(content)

	var changed bool
	err := s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		var previous string
		err := tx.QueryRowContext(ctx,
			`SELECT checksum FROM documents WHERE kind = ?`, kind,
		).Scan(&previous)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("querying previous document: %w", err)
		}
		changed = previous != checksum

		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (kind, content, checksum, source, imported_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(kind) DO UPDATE SET
				content = excluded.content,
				checksum = excluded.checksum,
				source = excluded.source,
				imported_at = excluded.imported_at
		`, kind, content, checksum, source, formatTime(time.Now()))
		if err != nil {
			return fmt.Errorf("storing %s document: %w", kind, err)
		}
		return nil
	})
	return changed, err
}

// Get returns the stored document of the given kind, or nil if none exists.
func (s *DocumentStore) Get(ctx context.Context, kind DocumentKind) (*Document, error) {
	doc := &Document{Kind: kind}
	var importedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT content, checksum, source, imported_at
		FROM documents WHERE kind = ?
	`, kind).Scan(&doc.Content, &doc.Checksum, &doc.Source, &importedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s document: %w", kind, err)
	}

	if doc.ImportedAt, err = parseTime(importedAt); err != nil {
		return nil, err
	}
	return doc, nil
}

// Checksum is the hex SHA-256 of a document.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
