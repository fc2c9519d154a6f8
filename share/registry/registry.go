// Package registry persists configured share roots and profiles across
// process restarts (spec §4.14, an ambient convenience layer supplementing
// the §6.2 Shares.xml cache format, not replacing it).
package registry

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/tursodatabase/go-libsql"
)

// RootRow is one persisted share root.
type RootRow struct {
	ProfileID   int
	ProfileName string
	RootPath    string
	VirtualName string
	Flags       int
}

// Registry wraps a database/sql connection to the libsql-backed root/profile
// store, following the teacher's CentralDBProvider (vvfs/db/centraldbprovider.go)
// pattern: CREATE TABLE IF NOT EXISTS at open time, explicit transactions
// for every mutating call.
type Registry struct {
	db *sql.DB
}

// Open connects to dsn (a libsql/sqlite DSN, e.g. "file:registry.db") and
// ensures the schema exists.
func Open(dsn string) (*Registry, error) {
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening registry database: %w", err)
	}
	r := &Registry{db: db}
	if err := r.init(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Registry) init() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS share_roots (
		profile_id INTEGER NOT NULL,
		profile_name TEXT NOT NULL,
		root_path TEXT NOT NULL,
		virtual_name TEXT NOT NULL,
		flags INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (profile_id, root_path)
	)`)
	if err != nil {
		return fmt.Errorf("creating share_roots table: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (r *Registry) Close() error {
	return r.db.Close()
}

// SaveRoot upserts one root/profile pairing.
func (r *Registry) SaveRoot(row RootRow) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO share_roots (profile_id, profile_name, root_path, virtual_name, flags)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (profile_id, root_path) DO UPDATE SET
			profile_name = excluded.profile_name,
			virtual_name = excluded.virtual_name,
			flags = excluded.flags`,
		row.ProfileID, row.ProfileName, row.RootPath, row.VirtualName, row.Flags)
	if err != nil {
		return fmt.Errorf("saving share root: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteRoot removes every profile pairing for rootPath.
func (r *Registry) DeleteRoot(rootPath string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM share_roots WHERE root_path = ?`, rootPath); err != nil {
		return fmt.Errorf("deleting share root: %w", err)
	}
	return tx.Commit()
}

// LoadRoots returns every persisted root/profile pairing.
func (r *Registry) LoadRoots() ([]RootRow, error) {
	rows, err := r.db.Query(`SELECT profile_id, profile_name, root_path, virtual_name, flags FROM share_roots`)
	if err != nil {
		return nil, fmt.Errorf("loading share roots: %w", err)
	}
	defer rows.Close()

	var out []RootRow
	for rows.Next() {
		var row RootRow
		if err := rows.Scan(&row.ProfileID, &row.ProfileName, &row.RootPath, &row.VirtualName, &row.Flags); err != nil {
			return nil, fmt.Errorf("scanning share root row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slog.Debug("loaded persisted share roots", "count", len(out))
	return out, nil
}
