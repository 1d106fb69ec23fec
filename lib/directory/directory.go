// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/geocam-project/folderacl/lib/agent"
	"github.com/geocam-project/folderacl/lib/clock"
	"github.com/geocam-project/folderacl/lib/storage"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUserExists     = errors.New("user already exists")
	ErrGroupNotFound  = errors.New("group not found")
	ErrGroupExists    = errors.New("group already exists")
	ErrBadCredentials = errors.New("bad credentials")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	name          TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL DEFAULT '',
	superuser     INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
	name       TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS memberships (
	group_name TEXT NOT NULL,
	user_name  TEXT NOT NULL,
	PRIMARY KEY (group_name, user_name)
);
`

// User is one directory account. It implements [agent.Identity]:
// Groups carries the user's memberships as loaded, so permission
// resolution never goes back to the database.
type User struct {
	Name      string
	Superuser bool
	Groups    []string
	CreatedAt time.Time
}

func (u *User) AgentName() string    { return u.Name }
func (u *User) IsSuperuser() bool    { return u.Superuser }
func (u *User) GroupNames() []string { return u.Groups }

// Group is one directory group with its member user names sorted.
type Group struct {
	Name      string
	Members   []string
	CreatedAt time.Time
}

// Config holds the parameters for opening a directory.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
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

// Directory is the user and group database.
type Directory struct {
	pool   *storage.Pool
	logger *slog.Logger
	clock  clock.Clock
}

// Open opens the directory database at cfg.Path, creating the schema
// on first use.
func Open(cfg Config) (*Directory, error) {
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
		return nil, fmt.Errorf("directory: %w", err)
	}
	return &Directory{pool: pool, logger: logger, clock: clk}, nil
}

// Close closes the underlying connection pool.
func (d *Directory) Close() error {
	return d.pool.Close()
}

// CreateUser adds a user. An empty password leaves the account
// without a hash, which disables authentication until SetPassword.
func (d *Directory) CreateUser(ctx context.Context, name, password string, superuser bool) error {
	if err := agent.ValidateUserName(name); err != nil {
		return fmt.Errorf("directory: %w", err)
	}
	hash := ""
	if password != "" {
		var err error
		hash, err = hashPassword(password)
		if err != nil {
			return fmt.Errorf("directory: %w", err)
		}
	}

	conn, err := d.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer d.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"INSERT INTO users (name, password_hash, superuser, created_at) VALUES (?, ?, ?, ?)",
		&sqlitex.ExecOptions{
			Args: []any{name, hash, boolToInt(superuser), d.clock.Now().UnixNano()},
		})
	if err != nil {
		if sqlite.ErrCode(err) == sqlite.ResultConstraintPrimaryKey {
			return fmt.Errorf("directory: %w: %s", ErrUserExists, name)
		}
		return fmt.Errorf("directory: creating user %s: %w", name, err)
	}
	d.logger.Info("user created", "user", name, "superuser", superuser)
	return nil
}

// DeleteUser removes a user and all of its group memberships.
func (d *Directory) DeleteUser(ctx context.Context, name string) error {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer d.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("directory: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, "DELETE FROM users WHERE name = ?",
		&sqlitex.ExecOptions{Args: []any{name}})
	if err != nil {
		return fmt.Errorf("directory: deleting user %s: %w", name, err)
	}
	if conn.Changes() == 0 {
		err = fmt.Errorf("directory: %w: %s", ErrUserNotFound, name)
		return err
	}
	err = sqlitex.Execute(conn, "DELETE FROM memberships WHERE user_name = ?",
		&sqlitex.ExecOptions{Args: []any{name}})
	if err != nil {
		return fmt.Errorf("directory: deleting memberships of %s: %w", name, err)
	}
	d.logger.Info("user deleted", "user", name)
	return nil
}

// SetPassword replaces the user's password hash.
func (d *Directory) SetPassword(ctx context.Context, name, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("directory: %w", err)
	}

	conn, err := d.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer d.pool.Put(conn)

	err = sqlitex.Execute(conn, "UPDATE users SET password_hash = ? WHERE name = ?",
		&sqlitex.ExecOptions{Args: []any{hash, name}})
	if err != nil {
		return fmt.Errorf("directory: setting password of %s: %w", name, err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("directory: %w: %s", ErrUserNotFound, name)
	}
	return nil
}

// SetSuperuser flips the user's superuser flag.
func (d *Directory) SetSuperuser(ctx context.Context, name string, superuser bool) error {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer d.pool.Put(conn)

	err = sqlitex.Execute(conn, "UPDATE users SET superuser = ? WHERE name = ?",
		&sqlitex.ExecOptions{Args: []any{boolToInt(superuser), name}})
	if err != nil {
		return fmt.Errorf("directory: setting superuser of %s: %w", name, err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("directory: %w: %s", ErrUserNotFound, name)
	}
	return nil
}

// GetUser loads a user with its group memberships.
func (d *Directory) GetUser(ctx context.Context, name string) (*User, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer d.pool.Put(conn)

	user, _, err := loadUser(conn, name)
	return user, err
}

// Authenticate verifies the user's password and returns the user on
// success. Unknown users, passwordless accounts, and wrong passwords
// all return [ErrBadCredentials] so callers cannot probe for account
// existence.
func (d *Directory) Authenticate(ctx context.Context, name, password string) (*User, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer d.pool.Put(conn)

	user, hash, err := loadUser(conn, name)
	if errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("directory: %w", ErrBadCredentials)
	}
	if err != nil {
		return nil, err
	}
	if hash == "" {
		return nil, fmt.Errorf("directory: %w", ErrBadCredentials)
	}
	ok, err := verifyPassword(hash, password)
	if err != nil {
		return nil, fmt.Errorf("directory: verifying password of %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("directory: %w", ErrBadCredentials)
	}
	return user, nil
}

// ListUsers returns all users with their memberships, sorted by name.
func (d *Directory) ListUsers(ctx context.Context) ([]*User, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer d.pool.Put(conn)

	memberships, err := loadMemberships(conn)
	if err != nil {
		return nil, err
	}

	var users []*User
	err = sqlitex.Execute(conn,
		"SELECT name, superuser, created_at FROM users ORDER BY name",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				name := stmt.ColumnText(0)
				users = append(users, &User{
					Name:      name,
					Superuser: stmt.ColumnInt(1) != 0,
					Groups:    memberships[name],
					CreatedAt: time.Unix(0, stmt.ColumnInt64(2)).UTC(),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("directory: listing users: %w", err)
	}
	return users, nil
}

// CreateGroup adds a group. Reserved virtual group names are
// rejected.
func (d *Directory) CreateGroup(ctx context.Context, name string) error {
	if err := agent.ValidateGroupName(name); err != nil {
		return fmt.Errorf("directory: %w", err)
	}

	conn, err := d.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer d.pool.Put(conn)

	err = sqlitex.Execute(conn, "INSERT INTO groups (name, created_at) VALUES (?, ?)",
		&sqlitex.ExecOptions{Args: []any{name, d.clock.Now().UnixNano()}})
	if err != nil {
		if sqlite.ErrCode(err) == sqlite.ResultConstraintPrimaryKey {
			return fmt.Errorf("directory: %w: %s", ErrGroupExists, name)
		}
		return fmt.Errorf("directory: creating group %s: %w", name, err)
	}
	d.logger.Info("group created", "group", name)
	return nil
}

// DeleteGroup removes a group and its memberships.
func (d *Directory) DeleteGroup(ctx context.Context, name string) error {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer d.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("directory: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, "DELETE FROM groups WHERE name = ?",
		&sqlitex.ExecOptions{Args: []any{name}})
	if err != nil {
		return fmt.Errorf("directory: deleting group %s: %w", name, err)
	}
	if conn.Changes() == 0 {
		err = fmt.Errorf("directory: %w: %s", ErrGroupNotFound, name)
		return err
	}
	err = sqlitex.Execute(conn, "DELETE FROM memberships WHERE group_name = ?",
		&sqlitex.ExecOptions{Args: []any{name}})
	if err != nil {
		return fmt.Errorf("directory: deleting memberships of %s: %w", name, err)
	}
	d.logger.Info("group deleted", "group", name)
	return nil
}

// AddMember puts a user in a group. Both must exist. Adding an
// existing member is a no-op.
func (d *Directory) AddMember(ctx context.Context, group, user string) error {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer d.pool.Put(conn)

	if err := requireGroup(conn, group); err != nil {
		return err
	}
	if err := requireUser(conn, user); err != nil {
		return err
	}
	err = sqlitex.Execute(conn,
		"INSERT OR IGNORE INTO memberships (group_name, user_name) VALUES (?, ?)",
		&sqlitex.ExecOptions{Args: []any{group, user}})
	if err != nil {
		return fmt.Errorf("directory: adding %s to %s: %w", user, group, err)
	}
	return nil
}

// RemoveMember takes a user out of a group. Removing a non-member is
// a no-op.
func (d *Directory) RemoveMember(ctx context.Context, group, user string) error {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer d.pool.Put(conn)

	if err := requireGroup(conn, group); err != nil {
		return err
	}
	err = sqlitex.Execute(conn,
		"DELETE FROM memberships WHERE group_name = ? AND user_name = ?",
		&sqlitex.ExecOptions{Args: []any{group, user}})
	if err != nil {
		return fmt.Errorf("directory: removing %s from %s: %w", user, group, err)
	}
	return nil
}

// ListGroups returns all groups with their members, sorted by name.
func (d *Directory) ListGroups(ctx context.Context) ([]*Group, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer d.pool.Put(conn)

	members := make(map[string][]string)
	err = sqlitex.Execute(conn,
		"SELECT group_name, user_name FROM memberships ORDER BY user_name",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				group := stmt.ColumnText(0)
				members[group] = append(members[group], stmt.ColumnText(1))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("directory: listing memberships: %w", err)
	}

	var groups []*Group
	err = sqlitex.Execute(conn,
		"SELECT name, created_at FROM groups ORDER BY name",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				name := stmt.ColumnText(0)
				groups = append(groups, &Group{
					Name:      name,
					Members:   members[name],
					CreatedAt: time.Unix(0, stmt.ColumnInt64(1)).UTC(),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("directory: listing groups: %w", err)
	}
	return groups, nil
}

// UserRecord is the persistence form of one account, password hash
// included, for snapshot export.
type UserRecord struct {
	Name         string    `cbor:"name"`
	PasswordHash string    `cbor:"password_hash,omitempty"`
	Superuser    bool      `cbor:"superuser,omitempty"`
	CreatedAt    time.Time `cbor:"created_at"`
}

// GroupRecord is the persistence form of one group.
type GroupRecord struct {
	Name      string    `cbor:"name"`
	Members   []string  `cbor:"members,omitempty"`
	CreatedAt time.Time `cbor:"created_at"`
}

// Export returns every user and group record, sorted by name.
func (d *Directory) Export(ctx context.Context) ([]UserRecord, []GroupRecord, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer d.pool.Put(conn)

	var users []UserRecord
	err = sqlitex.Execute(conn,
		"SELECT name, password_hash, superuser, created_at FROM users ORDER BY name",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				users = append(users, UserRecord{
					Name:         stmt.ColumnText(0),
					PasswordHash: stmt.ColumnText(1),
					Superuser:    stmt.ColumnInt(2) != 0,
					CreatedAt:    time.Unix(0, stmt.ColumnInt64(3)).UTC(),
				})
				return nil
			},
		})
	if err != nil {
		return nil, nil, fmt.Errorf("directory: exporting users: %w", err)
	}

	members := make(map[string][]string)
	err = sqlitex.Execute(conn,
		"SELECT group_name, user_name FROM memberships ORDER BY user_name",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				group := stmt.ColumnText(0)
				members[group] = append(members[group], stmt.ColumnText(1))
				return nil
			},
		})
	if err != nil {
		return nil, nil, fmt.Errorf("directory: exporting memberships: %w", err)
	}

	var groups []GroupRecord
	err = sqlitex.Execute(conn,
		"SELECT name, created_at FROM groups ORDER BY name",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				name := stmt.ColumnText(0)
				groups = append(groups, GroupRecord{
					Name:      name,
					Members:   members[name],
					CreatedAt: time.Unix(0, stmt.ColumnInt64(1)).UTC(),
				})
				return nil
			},
		})
	if err != nil {
		return nil, nil, fmt.Errorf("directory: exporting groups: %w", err)
	}
	return users, groups, nil
}

// Import replaces the directory's entire contents with the given
// records, in one transaction. Used by snapshot restore.
func (d *Directory) Import(ctx context.Context, users []UserRecord, groups []GroupRecord) error {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer d.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("directory: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	for _, table := range []string{"memberships", "groups", "users"} {
		if err = sqlitex.Execute(conn, "DELETE FROM "+table, nil); err != nil {
			return fmt.Errorf("directory: clearing %s: %w", table, err)
		}
	}
	for _, user := range users {
		err = sqlitex.Execute(conn,
			"INSERT INTO users (name, password_hash, superuser, created_at) VALUES (?, ?, ?, ?)",
			&sqlitex.ExecOptions{
				Args: []any{user.Name, user.PasswordHash, boolToInt(user.Superuser), user.CreatedAt.UnixNano()},
			})
		if err != nil {
			return fmt.Errorf("directory: importing user %s: %w", user.Name, err)
		}
	}
	for _, group := range groups {
		err = sqlitex.Execute(conn, "INSERT INTO groups (name, created_at) VALUES (?, ?)",
			&sqlitex.ExecOptions{Args: []any{group.Name, group.CreatedAt.UnixNano()}})
		if err != nil {
			return fmt.Errorf("directory: importing group %s: %w", group.Name, err)
		}
		for _, member := range group.Members {
			err = sqlitex.Execute(conn,
				"INSERT INTO memberships (group_name, user_name) VALUES (?, ?)",
				&sqlitex.ExecOptions{Args: []any{group.Name, member}})
			if err != nil {
				return fmt.Errorf("directory: importing membership %s/%s: %w", group.Name, member, err)
			}
		}
	}
	d.logger.Info("directory imported", "users", len(users), "groups", len(groups))
	return nil
}

// loadUser reads one user row plus memberships, returning the stored
// password hash alongside.
func loadUser(conn *sqlite.Conn, name string) (*User, string, error) {
	var user *User
	var hash string
	err := sqlitex.Execute(conn,
		"SELECT name, password_hash, superuser, created_at FROM users WHERE name = ?",
		&sqlitex.ExecOptions{
			Args: []any{name},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				user = &User{
					Name:      stmt.ColumnText(0),
					Superuser: stmt.ColumnInt(2) != 0,
					CreatedAt: time.Unix(0, stmt.ColumnInt64(3)).UTC(),
				}
				hash = stmt.ColumnText(1)
				return nil
			},
		})
	if err != nil {
		return nil, "", fmt.Errorf("directory: loading user %s: %w", name, err)
	}
	if user == nil {
		return nil, "", fmt.Errorf("directory: %w: %s", ErrUserNotFound, name)
	}

	err = sqlitex.Execute(conn,
		"SELECT group_name FROM memberships WHERE user_name = ?",
		&sqlitex.ExecOptions{
			Args: []any{name},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				user.Groups = append(user.Groups, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return nil, "", fmt.Errorf("directory: loading memberships of %s: %w", name, err)
	}
	sort.Strings(user.Groups)
	return user, hash, nil
}

// loadMemberships returns user name → sorted group names.
func loadMemberships(conn *sqlite.Conn) (map[string][]string, error) {
	memberships := make(map[string][]string)
	err := sqlitex.Execute(conn,
		"SELECT user_name, group_name FROM memberships ORDER BY group_name",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				user := stmt.ColumnText(0)
				memberships[user] = append(memberships[user], stmt.ColumnText(1))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("directory: loading memberships: %w", err)
	}
	return memberships, nil
}

func requireUser(conn *sqlite.Conn, name string) error {
	exists, err := rowExists(conn, "SELECT 1 FROM users WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("directory: checking user %s: %w", name, err)
	}
	if !exists {
		return fmt.Errorf("directory: %w: %s", ErrUserNotFound, name)
	}
	return nil
}

func requireGroup(conn *sqlite.Conn, name string) error {
	exists, err := rowExists(conn, "SELECT 1 FROM groups WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("directory: checking group %s: %w", name, err)
	}
	if !exists {
		return fmt.Errorf("directory: %w: %s", ErrGroupNotFound, name)
	}
	return nil
}

func rowExists(conn *sqlite.Conn, query, arg string) (bool, error) {
	var exists bool
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: []any{arg},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			exists = true
			return nil
		},
	})
	return exists, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
