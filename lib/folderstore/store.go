// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package folderstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/geocam-project/folderacl/lib/agent"
	"github.com/geocam-project/folderacl/lib/clock"
	"github.com/geocam-project/folderacl/lib/folder"
	"github.com/geocam-project/folderacl/lib/permission"
	"github.com/geocam-project/folderacl/lib/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS folders (
	id         TEXT PRIMARY KEY,
	parent_id  TEXT,
	name       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	UNIQUE (parent_id, name)
);

CREATE TABLE IF NOT EXISTS acl_entries (
	folder_id TEXT NOT NULL,
	agent_key TEXT NOT NULL,
	actions   TEXT NOT NULL,
	PRIMARY KEY (folder_id, agent_key)
);
`

// Config holds the parameters for opening a folder store.
type Config struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory must exist.
	Path string

	// PoolSize is the number of connections in the pool. Defaults to
	// 4 if zero or negative.
	PoolSize int

	// Clock provides creation timestamps. If nil, the real clock is
	// used.
	Clock clock.Clock

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Store is the durable folder hierarchy. All reads and permission
// checks are served by the in-memory tree; mutations write through to
// SQLite.
//
// Store is safe for concurrent use. writeMu serializes mutations so
// that the tree change and its database write form one unit with
// respect to other writers; readers go straight to the tree, which
// has its own lock.
type Store struct {
	pool   *storage.Pool
	logger *slog.Logger
	clock  clock.Clock

	writeMu sync.Mutex
	tree    *folder.Tree
}

// Open opens the database at cfg.Path, creating the schema and the
// root folder on first use, and rebuilds the folder tree from the
// stored records.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := storage.Open(storage.Config{
		Path:     cfg.Path,
		PoolSize: poolSize,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("folder store: %w", err)
	}

	store := &Store{
		pool:   pool,
		logger: logger,
		clock:  clk,
	}
	if err := store.load(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("folder store: %w", err)
	}
	return store, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// load rebuilds the tree from the database, bootstrapping the root
// folder if the database is empty.
func (s *Store) load(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	records, err := loadRecords(conn)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		tree := folder.New(s.clock)
		root := tree.Root()
		if err := insertFolder(conn, recordOf(root)); err != nil {
			return fmt.Errorf("bootstrapping root: %w", err)
		}
		s.tree = tree
		s.logger.Info("folder store bootstrapped", "root_id", root.ID)
		return nil
	}

	tree, err := folder.Rebuild(s.clock, records)
	if err != nil {
		return fmt.Errorf("rebuilding tree: %w", err)
	}
	s.tree = tree
	s.logger.Info("folder store loaded", "folders", len(records))
	return nil
}

// Root returns the root folder.
func (s *Store) Root() folder.Info {
	return s.tree.Root()
}

// Lookup resolves a path without permission checks.
func (s *Store) Lookup(path string) (folder.Info, error) {
	return s.tree.Lookup(path)
}

// LookupID resolves a folder by its stable ID.
func (s *Store) LookupID(id uuid.UUID) (folder.Info, error) {
	return s.tree.LookupID(id)
}

// LookupAs resolves a path on behalf of an identity with checked
// traversal.
func (s *Store) LookupAs(identity agent.Identity, path string) (folder.Info, error) {
	return s.tree.LookupAs(identity, path)
}

// List returns the direct subfolders of path without permission
// checks.
func (s *Store) List(path string) ([]folder.Info, error) {
	return s.tree.List(path)
}

// ListAs is the checked form of List.
func (s *Store) ListAs(identity agent.Identity, path string) ([]folder.Info, error) {
	return s.tree.ListAs(identity, path)
}

// GetACL returns a copy of the ACL of the folder at path.
func (s *Store) GetACL(path string) (folder.ACL, error) {
	return s.tree.GetACL(path)
}

// IsAllowed reports whether the identity holds action on the folder
// at path.
func (s *Store) IsAllowed(identity agent.Identity, action permission.Set, path string) (bool, error) {
	return s.tree.IsAllowed(identity, action, path)
}

// Effective returns the union of every action the identity holds on
// the folder at path.
func (s *Store) Effective(identity agent.Identity, path string) (permission.Set, error) {
	return s.tree.Effective(identity, path)
}

// AllowedFolders returns every folder the identity both holds action
// on and can reach, in path order.
func (s *Store) AllowedFolders(identity agent.Identity, action permission.Set) []folder.Info {
	return s.tree.AllowedFolders(identity, action)
}

// Records exports every folder record, parents before children.
func (s *Store) Records() []folder.Record {
	return s.tree.Records()
}

// Mkdir creates a folder without permission checks and persists it.
func (s *Store) Mkdir(ctx context.Context, path string) (folder.Info, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	info, err := s.tree.Mkdir(path)
	if err != nil {
		return folder.Info{}, err
	}
	return s.persistMkdir(ctx, info)
}

// MkdirAs creates a folder on behalf of an identity (checked
// traversal, Add on the parent, creator grant) and persists it.
func (s *Store) MkdirAs(ctx context.Context, identity agent.Identity, path string) (folder.Info, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	info, err := s.tree.MkdirAs(identity, path)
	if err != nil {
		return folder.Info{}, err
	}
	return s.persistMkdir(ctx, info)
}

// persistMkdir writes the freshly created folder to the database,
// removing it from the tree again if the write fails.
func (s *Store) persistMkdir(ctx context.Context, info folder.Info) (folder.Info, error) {
	err := s.withTransaction(ctx, func(conn *sqlite.Conn) error {
		return insertFolder(conn, recordOf(info))
	})
	if err != nil {
		if rollbackErr := s.tree.Rmdir(info.Path); rollbackErr != nil {
			s.logger.Error("mkdir rollback failed",
				"path", info.Path, "error", rollbackErr)
		}
		return folder.Info{}, fmt.Errorf("folder store: persisting %s: %w", info.Path, err)
	}
	return info, nil
}

// Rmdir removes a folder without permission checks and deletes it
// from the database.
func (s *Store) Rmdir(ctx context.Context, path string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	info, err := s.tree.Lookup(path)
	if err != nil {
		return err
	}
	if err := s.tree.Rmdir(path); err != nil {
		return err
	}
	return s.persistRmdir(ctx, info)
}

// RmdirAs removes a folder on behalf of an identity (Delete on the
// parent) and deletes it from the database.
func (s *Store) RmdirAs(ctx context.Context, identity agent.Identity, path string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	info, err := s.tree.Lookup(path)
	if err != nil {
		return err
	}
	if err := s.tree.RmdirAs(identity, path); err != nil {
		return err
	}
	return s.persistRmdir(ctx, info)
}

// persistRmdir deletes the folder's rows, grafting the folder back
// into the tree if the write fails.
func (s *Store) persistRmdir(ctx context.Context, info folder.Info) error {
	err := s.withTransaction(ctx, func(conn *sqlite.Conn) error {
		return deleteFolder(conn, info.ID)
	})
	if err != nil {
		if rollbackErr := s.tree.Graft(recordOf(info)); rollbackErr != nil {
			s.logger.Error("rmdir rollback failed",
				"path", info.Path, "error", rollbackErr)
		}
		return fmt.Errorf("folder store: removing %s: %w", info.Path, err)
	}
	return nil
}

// SetPermissions sets one ACL entry without permission checks and
// persists the folder's ACL.
func (s *Store) SetPermissions(ctx context.Context, path string, key agent.Key, actions permission.Set) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	previous, err := s.tree.GetACL(path)
	if err != nil {
		return err
	}
	if err := s.tree.SetPermissions(path, key, actions); err != nil {
		return err
	}
	return s.persistACL(ctx, path, previous)
}

// SetPermissionsAs is the checked form of SetPermissions (Manage on
// the folder).
func (s *Store) SetPermissionsAs(ctx context.Context, identity agent.Identity, path string, key agent.Key, actions permission.Set) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	previous, err := s.tree.GetACL(path)
	if err != nil {
		return err
	}
	if err := s.tree.SetPermissionsAs(identity, path, key, actions); err != nil {
		return err
	}
	return s.persistACL(ctx, path, previous)
}

// ReplaceACL replaces the folder's entire ACL and persists it.
func (s *Store) ReplaceACL(ctx context.Context, path string, acl folder.ACL) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	previous, err := s.tree.GetACL(path)
	if err != nil {
		return err
	}
	if err := s.tree.ReplaceACL(path, acl); err != nil {
		return err
	}
	return s.persistACL(ctx, path, previous)
}

// persistACL rewrites the folder's ACL rows from the tree's current
// state, restoring the previous ACL in the tree if the write fails.
func (s *Store) persistACL(ctx context.Context, path string, previous folder.ACL) error {
	info, err := s.tree.Lookup(path)
	if err != nil {
		return err
	}
	err = s.withTransaction(ctx, func(conn *sqlite.Conn) error {
		return replaceACLRows(conn, info.ID, info.ACL)
	})
	if err != nil {
		if rollbackErr := s.tree.ReplaceACL(path, previous); rollbackErr != nil {
			s.logger.Error("acl rollback failed",
				"path", path, "error", rollbackErr)
		}
		return fmt.Errorf("folder store: persisting acl of %s: %w", path, err)
	}
	return nil
}

// Restore replaces the entire hierarchy with the given records, both
// in memory and in the database. Used by snapshot restore. The
// records are validated by rebuilding a tree before any row is
// touched.
func (s *Store) Restore(ctx context.Context, records []folder.Record) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tree, err := folder.Rebuild(s.clock, records)
	if err != nil {
		return fmt.Errorf("folder store: restore: %w", err)
	}

	err = s.withTransaction(ctx, func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, "DELETE FROM acl_entries", nil); err != nil {
			return err
		}
		if err := sqlitex.Execute(conn, "DELETE FROM folders", nil); err != nil {
			return err
		}
		for _, rec := range records {
			if err := insertFolder(conn, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("folder store: restore: %w", err)
	}

	s.tree = tree
	s.logger.Info("folder store restored", "folders", len(records))
	return nil
}

// withTransaction runs fn inside one IMMEDIATE transaction on a
// pooled connection.
func (s *Store) withTransaction(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = fn(conn)
	return err
}

// recordOf converts a value snapshot into its persistence form.
func recordOf(info folder.Info) folder.Record {
	return folder.Record{
		ID:        info.ID,
		ParentID:  info.ParentID,
		Name:      info.Name,
		CreatedAt: info.CreatedAt,
		ACL:       info.ACL,
	}
}

// insertFolder writes one folder row plus its ACL rows. The root's
// parent_id is stored as NULL so the (parent_id, name) uniqueness
// constraint ignores it.
func insertFolder(conn *sqlite.Conn, rec folder.Record) error {
	var parentID any
	if rec.ParentID != uuid.Nil {
		parentID = rec.ParentID.String()
	}
	err := sqlitex.Execute(conn,
		"INSERT INTO folders (id, parent_id, name, created_at) VALUES (?, ?, ?, ?)",
		&sqlitex.ExecOptions{
			Args: []any{rec.ID.String(), parentID, rec.Name, rec.CreatedAt.UnixNano()},
		})
	if err != nil {
		return fmt.Errorf("inserting folder %s: %w", rec.ID, err)
	}
	return writeACLRows(conn, rec.ID, rec.ACL)
}

// deleteFolder removes a folder row and its ACL rows.
func deleteFolder(conn *sqlite.Conn, id uuid.UUID) error {
	err := sqlitex.Execute(conn, "DELETE FROM acl_entries WHERE folder_id = ?",
		&sqlitex.ExecOptions{Args: []any{id.String()}})
	if err != nil {
		return fmt.Errorf("deleting acl of %s: %w", id, err)
	}
	err = sqlitex.Execute(conn, "DELETE FROM folders WHERE id = ?",
		&sqlitex.ExecOptions{Args: []any{id.String()}})
	if err != nil {
		return fmt.Errorf("deleting folder %s: %w", id, err)
	}
	return nil
}

// replaceACLRows deletes and rewrites a folder's ACL rows.
func replaceACLRows(conn *sqlite.Conn, id uuid.UUID, acl folder.ACL) error {
	err := sqlitex.Execute(conn, "DELETE FROM acl_entries WHERE folder_id = ?",
		&sqlitex.ExecOptions{Args: []any{id.String()}})
	if err != nil {
		return fmt.Errorf("clearing acl of %s: %w", id, err)
	}
	return writeACLRows(conn, id, acl)
}

func writeACLRows(conn *sqlite.Conn, id uuid.UUID, acl folder.ACL) error {
	for _, key := range acl.SortedKeys() {
		err := sqlitex.Execute(conn,
			"INSERT INTO acl_entries (folder_id, agent_key, actions) VALUES (?, ?, ?)",
			&sqlitex.ExecOptions{
				Args: []any{id.String(), string(key), acl[key].String()},
			})
		if err != nil {
			return fmt.Errorf("inserting acl entry %s/%s: %w", id, key, err)
		}
	}
	return nil
}

// loadRecords reads every folder row and its ACL rows.
func loadRecords(conn *sqlite.Conn) ([]folder.Record, error) {
	acls := make(map[uuid.UUID]folder.ACL)
	err := sqlitex.Execute(conn,
		"SELECT folder_id, agent_key, actions FROM acl_entries",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				folderID, err := uuid.Parse(stmt.ColumnText(0))
				if err != nil {
					return fmt.Errorf("acl row folder_id: %w", err)
				}
				key, err := agent.ParseKey(stmt.ColumnText(1))
				if err != nil {
					return fmt.Errorf("acl row agent_key: %w", err)
				}
				actions, err := permission.Parse(stmt.ColumnText(2))
				if err != nil {
					return fmt.Errorf("acl row actions: %w", err)
				}
				if acls[folderID] == nil {
					acls[folderID] = folder.ACL{}
				}
				acls[folderID][key] = actions
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("loading acl entries: %w", err)
	}

	var records []folder.Record
	err = sqlitex.Execute(conn,
		"SELECT id, parent_id, name, created_at FROM folders",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id, err := uuid.Parse(stmt.ColumnText(0))
				if err != nil {
					return fmt.Errorf("folder row id: %w", err)
				}
				rec := folder.Record{
					ID:        id,
					Name:      stmt.ColumnText(2),
					CreatedAt: time.Unix(0, stmt.ColumnInt64(3)).UTC(),
					ACL:       acls[id],
				}
				if stmt.ColumnType(1) != sqlite.TypeNull {
					parentID, err := uuid.Parse(stmt.ColumnText(1))
					if err != nil {
						return fmt.Errorf("folder row parent_id: %w", err)
					}
					rec.ParentID = parentID
				}
				records = append(records, rec)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("loading folders: %w", err)
	}
	return records, nil
}
