package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/specgate/domain/spec"
	"github.com/artpar/specgate/ports"
)

// timeLayout is fixed width so created_at sorts as text. The column is
// declared TEXT so the driver hands the value back unconverted.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SpecStore implements ports.SpecStore using SQLite. Every Put adds a
// revision; reads return the newest one.
type SpecStore struct {
	db    *DB
	ids   ports.IDGenerator
	clock ports.Clock
}

// NewSpecStore creates a new spec store.
func NewSpecStore(db *DB, ids ports.IDGenerator, clock ports.Clock) *SpecStore {
	return &SpecStore{db: db, ids: ids, clock: clock}
}

// specName accepts both "core.echo" and "apispec/core.echo.json".
func specName(name string) string {
	name = strings.TrimPrefix(name, spec.Namespace)
	return strings.TrimSuffix(name, ".json")
}

// ReadSpec returns the newest document stored under name.
func (s *SpecStore) ReadSpec(ctx context.Context, name string) ([]byte, error) {
	var document string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM api_specs WHERE name = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		specName(name),
	).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ports.ErrSpecNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read spec %s: %w", name, err)
	}
	return []byte(document), nil
}

// Put stores document as the newest revision of name.
func (s *SpecStore) Put(ctx context.Context, name string, document []byte) (ports.SpecRevision, error) {
	name = specName(name)
	if name == "" {
		return ports.SpecRevision{}, errors.New("spec name is required")
	}
	if !json.Valid(document) {
		return ports.SpecRevision{}, fmt.Errorf("spec %s: document is not valid JSON", name)
	}

	rev := ports.SpecRevision{
		ID:        s.ids.New(),
		Name:      name,
		Document:  append([]byte(nil), document...),
		CreatedAt: s.clock.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_specs (id, name, document, created_at) VALUES (?, ?, ?, ?)`,
		rev.ID, rev.Name, string(rev.Document), rev.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return ports.SpecRevision{}, fmt.Errorf("store spec %s: %w", name, err)
	}
	return rev, nil
}

// Revisions returns every revision of name, newest first.
func (s *SpecStore) Revisions(ctx context.Context, name string) ([]ports.SpecRevision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, document, created_at FROM api_specs WHERE name = ?
		 ORDER BY created_at DESC, rowid DESC`,
		specName(name),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revs []ports.SpecRevision
	for rows.Next() {
		var rev ports.SpecRevision
		var document, createdAt string
		if err := rows.Scan(&rev.ID, &rev.Name, &document, &createdAt); err != nil {
			return nil, err
		}
		rev.Document = []byte(document)
		at, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("revision %s of %s: parse created_at: %w", rev.ID, rev.Name, err)
		}
		rev.CreatedAt = at
		revs = append(revs, rev)
	}
	return revs, rows.Err()
}

// Names returns the stored spec names in sorted order.
func (s *SpecStore) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT name FROM api_specs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes every revision of name.
func (s *SpecStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM api_specs WHERE name = ?`, specName(name))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ports.ErrSpecNotFound, name)
	}
	return nil
}
