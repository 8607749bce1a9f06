package docset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/doctool/internal/identity"
	"git.home.luguber.info/inful/doctool/internal/model"
)

const searchIndexSchema = `
CREATE TABLE searchIndex (
	id INTEGER PRIMARY KEY,
	name TEXT,
	type TEXT,
	path TEXT
);
CREATE UNIQUE INDEX anchor ON searchIndex (name, type, path);
`

// writeSearchIndex rebuilds the search index at path and returns the number of entries.
// The index is built next to path and moved into place once complete.
func writeSearchIndex(ctx context.Context, path string, lib *model.Library) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return 0, fmt.Errorf("create resources directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove stale index: %w", err)
	}

	rows, err := buildSearchIndex(ctx, tmp, lib)
	if err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("replace search index: %w", err)
	}
	return rows, nil
}

func buildSearchIndex(ctx context.Context, path string, lib *model.Library) (int, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return 0, fmt.Errorf("open search index: %w", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, searchIndexSchema); err != nil {
		return 0, fmt.Errorf("create search index schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin search index transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO searchIndex (name, type, path) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare search index insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	rows := 0
	insert := func(name string, n *model.Node) error {
		if n.AppleRef == "" || n.HTMLPath == "" {
			return nil
		}
		res, err := stmt.ExecContext(ctx, name, identity.TokenType(n.AppleRef), n.HTMLPath)
		if err != nil {
			return fmt.Errorf("index %s: %w", n.ID, err)
		}
		if affected, err := res.RowsAffected(); err == nil {
			rows += int(affected)
		}
		return nil
	}
	for _, n := range lib.TopLevel() {
		if err := insert(displayName(n), n); err != nil {
			return 0, err
		}
		for _, m := range searchableMembers(n) {
			if err := insert(m.Name, m); err != nil {
				return 0, err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit search index: %w", err)
	}
	return rows, nil
}
