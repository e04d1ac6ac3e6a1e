// Package store persists annotated documents and their relation triples in SQLite.
// It uses the pure Go modernc.org/sqlite driver so the binary stays cgo free.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/relmark/internal/model"
)

const driverName = "sqlite"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	language   TEXT NOT NULL DEFAULT '',
	text       TEXT NOT NULL,
	stored_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS annotations (
	document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	view_id     TEXT NOT NULL,
	id          TEXT NOT NULL,
	type        TEXT NOT NULL,
	start_offset INTEGER,
	end_offset   INTEGER,
	features    TEXT NOT NULL,
	PRIMARY KEY (document_id, view_id, id)
);
CREATE TABLE IF NOT EXISTS relations (
	document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	view_id     TEXT NOT NULL,
	id          TEXT NOT NULL,
	subject     TEXT NOT NULL,
	predicate   TEXT NOT NULL,
	object      TEXT NOT NULL,
	label       TEXT NOT NULL,
	PRIMARY KEY (document_id, view_id, id)
);
CREATE INDEX IF NOT EXISTS relations_label ON relations(label);
`

// ErrNotFound is returned when a document name is not stored
var ErrNotFound = errors.New("not found")

// Store is a SQLite backed document store
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and applies the schema.
// ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// A single connection keeps :memory: databases and pragmas consistent
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// DocumentInfo summarizes one stored document
type DocumentInfo struct {
	ID        int64
	Name      string
	Language  string
	StoredAt  time.Time
	Relations int
}

// SaveDocument stores doc under name, replacing any previous document with
// the same name. Every view's annotations and relation triples are stored.
func (s *Store) SaveDocument(ctx context.Context, name string, doc *model.Document) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE name = ?", name); err != nil {
		return 0, fmt.Errorf("replace %s: %w", name, err)
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO documents (name, language, text, stored_at) VALUES (?, ?, ?, ?)",
		name, doc.Language(), doc.Text(), s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("insert document %s: %w", name, err)
	}
	docID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("document id: %w", err)
	}

	annStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO annotations (document_id, view_id, id, type, start_offset, end_offset, features) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare annotations: %w", err)
	}
	defer func() { _ = annStmt.Close() }()

	for _, v := range doc.Views() {
		for _, a := range v.Annotations {
			features, err := json.Marshal(a.Features)
			if err != nil {
				return 0, fmt.Errorf("encode features of %s: %w", a.ID, err)
			}
			var start, end sql.NullInt64
			if a.Span != nil {
				start = sql.NullInt64{Int64: int64(a.Span.Start), Valid: true}
				end = sql.NullInt64{Int64: int64(a.Span.End), Valid: true}
			}
			if _, err := annStmt.ExecContext(ctx, docID, v.ID, a.ID, a.Type, start, end, string(features)); err != nil {
				return 0, fmt.Errorf("insert annotation %s/%s: %w", v.ID, a.ID, err)
			}
		}
	}

	relStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO relations (document_id, view_id, id, subject, predicate, object, label) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare relations: %w", err)
	}
	defer func() { _ = relStmt.Close() }()

	for _, t := range Triples(doc) {
		if _, err := relStmt.ExecContext(ctx, docID, t.ViewID, t.ID, t.Subject, t.Predicate, t.Object, t.Label); err != nil {
			return 0, fmt.Errorf("insert relation %s/%s: %w", t.ViewID, t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return docID, nil
}

// Documents lists stored documents ordered by name
func (s *Store) Documents(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.name, d.language, d.stored_at, COUNT(r.id)
		FROM documents d LEFT JOIN relations r ON r.document_id = d.id
		GROUP BY d.id ORDER BY d.name`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []DocumentInfo
	for rows.Next() {
		var info DocumentInfo
		var storedAt string
		if err := rows.Scan(&info.ID, &info.Name, &info.Language, &storedAt, &info.Relations); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		info.StoredAt, _ = time.Parse(time.RFC3339, storedAt)
		docs = append(docs, info)
	}
	return docs, rows.Err()
}

// LoadText returns the stored text of a document
func (s *Store) LoadText(ctx context.Context, name string) (string, error) {
	var text string
	err := s.db.QueryRowContext(ctx, "SELECT text FROM documents WHERE name = ?", name).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("document %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("load %s: %w", name, err)
	}
	return text, nil
}

// CountAnnotations returns how many annotations of a type are stored for a document
func (s *Store) CountAnnotations(ctx context.Context, name, annotationType string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM annotations a JOIN documents d ON d.id = a.document_id
		WHERE d.name = ? AND a.type = ?`, name, annotationType).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count annotations: %w", err)
	}
	return n, nil
}

// RelationFilter narrows a relation query; zero values match everything
type RelationFilter struct {
	Document string
	Label    string
	Limit    int
}

// Relations lists stored triples ordered by document and relation position
func (s *Store) Relations(ctx context.Context, f RelationFilter) ([]Triple, error) {
	query := `
		SELECT d.name, r.view_id, r.id, r.subject, r.predicate, r.object, r.label
		FROM relations r JOIN documents d ON d.id = r.document_id
		WHERE (? = '' OR d.name = ?) AND (? = '' OR r.label = ?)
		ORDER BY d.name, r.view_id, r.rowid`
	args := []any{f.Document, f.Document, f.Label, f.Label}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query relations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var triples []Triple
	for rows.Next() {
		var t Triple
		if err := rows.Scan(&t.Document, &t.ViewID, &t.ID, &t.Subject, &t.Predicate, &t.Object, &t.Label); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		triples = append(triples, t)
	}
	return triples, rows.Err()
}
