// Copyright 2026 The Folderacl Authors
// SPDX-License-Identifier: Apache-2.0

package folder

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/geocam-project/folderacl/lib/agent"
	"github.com/geocam-project/folderacl/lib/clock"
	"github.com/geocam-project/folderacl/lib/permission"
)

// node is a folder in the tree. Nodes never escape the tree's lock;
// all public accessors return Info or Record value snapshots.
type node struct {
	id        uuid.UUID
	name      string // "" only for the root
	parent    *node  // nil only for the root
	children  map[string]*node
	acl       ACL
	createdAt time.Time
}

// path walks the parent chain to build the node's canonical path.
func (n *node) path() string {
	if n.parent == nil {
		return "/"
	}
	var segments []string
	for cur := n; cur.parent != nil; cur = cur.parent {
		segments = append(segments, cur.name)
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return joinSegments(segments)
}

// Info is a value snapshot of one folder. The ACL is a copy; mutating
// it does not affect the tree. ParentID is uuid.Nil only for the root.
type Info struct {
	ID        uuid.UUID
	ParentID  uuid.UUID
	Name      string // "" for the root
	Path      string
	CreatedAt time.Time
	ACL       ACL
}

// Record is the persistence form of one folder: identity, parentage,
// and ACL, with no tree pointers. ParentID is uuid.Nil only for the
// root.
type Record struct {
	ID        uuid.UUID
	ParentID  uuid.UUID
	Name      string
	CreatedAt time.Time
	ACL       ACL
}

// Tree is the folder hierarchy. The zero value is not usable; create
// trees with [New] or [Rebuild].
//
// A single RWMutex guards the whole tree. Checked mutations evaluate
// their permission check and apply the mutation under one write-lock
// acquisition, which is the check-then-act atomicity the ACL model
// requires.
type Tree struct {
	mu    sync.RWMutex
	root  *node
	byID  map[uuid.UUID]*node
	clock clock.Clock
}

// New returns an empty tree. The root folder is created lazily on
// first access with [DefaultRootACL]. A nil clk uses the real clock.
func New(clk clock.Clock) *Tree {
	if clk == nil {
		clk = clock.Real()
	}
	return &Tree{
		byID:  make(map[uuid.UUID]*node),
		clock: clk,
	}
}

// rootNode returns the root, bootstrapping it on first access. Caller
// must hold the write lock (the read paths take the write lock when
// the root does not exist yet; see lockedRoot).
func (t *Tree) rootNode() *node {
	if t.root == nil {
		t.root = &node{
			id:        uuid.New(),
			children:  make(map[string]*node),
			acl:       DefaultRootACL(),
			createdAt: t.clock.Now(),
		}
		t.byID[t.root.id] = t.root
	}
	return t.root
}

// Root returns the root folder, creating it if this is the first
// access. Idempotent: every call observes the same folder.
func (t *Tree) Root() Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.info(t.rootNode())
}

// lookup descends from the root one segment at a time. Caller must
// hold at least the read lock and have ensured the root exists.
func (t *Tree) lookup(segments []string) (*node, error) {
	current := t.root
	for i, name := range segments {
		child, ok := current.children[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, joinSegments(segments[:i+1]))
		}
		current = child
	}
	return current, nil
}

// Lookup resolves a path without any permission checks.
func (t *Tree) Lookup(path string) (Info, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rootNode()
	n, err := t.lookup(Split(path))
	if err != nil {
		return Info{}, err
	}
	return t.info(n), nil
}

// LookupID resolves a folder by its stable ID. This is the hook for
// external objects, which associate with a folder by carrying its ID
// and check permissions against the resolved folder's path.
func (t *Tree) LookupID(id uuid.UUID) (Info, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.byID[id]
	if !ok {
		return Info{}, fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	return t.info(n), nil
}

// LookupAs resolves a path on behalf of an identity, requiring List
// permission on every folder traversed before descending into it. The
// denial names the first ancestor the identity cannot list.
func (t *Tree) LookupAs(identity agent.Identity, path string) (Info, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rootNode()
	n, err := t.lookupAs(identity, Split(path))
	if err != nil {
		return Info{}, err
	}
	return t.info(n), nil
}

func (t *Tree) lookupAs(identity agent.Identity, segments []string) (*node, error) {
	current := t.root
	for i, name := range segments {
		if !t.allowed(identity, permission.List, current) {
			return nil, &DeniedError{
				Agent:  agent.DisplayName(identity),
				Action: permission.List,
				Path:   current.path(),
			}
		}
		child, ok := current.children[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, joinSegments(segments[:i+1]))
		}
		current = child
	}
	return current, nil
}

// List returns the direct subfolders of path, sorted by name, without
// permission checks.
func (t *Tree) List(path string) ([]Info, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rootNode()
	n, err := t.lookup(Split(path))
	if err != nil {
		return nil, err
	}
	return t.listChildren(n), nil
}

// ListAs is the checked form of List: traversal requires List on every
// ancestor, and listing requires List on the folder itself.
func (t *Tree) ListAs(identity agent.Identity, path string) ([]Info, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rootNode()
	n, err := t.lookupAs(identity, Split(path))
	if err != nil {
		return nil, err
	}
	if !t.allowed(identity, permission.List, n) {
		return nil, &DeniedError{
			Agent:  agent.DisplayName(identity),
			Action: permission.List,
			Path:   n.path(),
		}
	}
	return t.listChildren(n), nil
}

func (t *Tree) listChildren(n *node) []Info {
	infos := make([]Info, 0, len(n.children))
	for _, name := range sortedChildNames(n) {
		infos = append(infos, t.info(n.children[name]))
	}
	return infos
}

// Mkdir creates the folder named by path without permission checks.
// The immediate parent must already exist; there is no recursive
// create. The new folder starts with a value copy of the parent's
// ACL taken now — later parent edits do not reach it.
func (t *Tree) Mkdir(path string) (Info, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rootNode()
	parentSegments, name, err := splitTarget(path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s", ErrExists, "/")
	}
	parent, err := t.lookup(parentSegments)
	if err != nil {
		return Info{}, err
	}
	n, err := t.mkdir(parent, name)
	if err != nil {
		return Info{}, err
	}
	return t.info(n), nil
}

// MkdirAs creates a folder on behalf of an identity. The parent is
// resolved with checked traversal, the identity must hold Add on the
// parent, and the creator is granted All on the new folder on top of
// the inherited ACL — whoever creates a folder keeps control of it no
// matter what it inherited. This asymmetry with Mkdir is deliberate.
func (t *Tree) MkdirAs(identity agent.Identity, path string) (Info, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rootNode()
	parentSegments, name, err := splitTarget(path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s", ErrExists, "/")
	}
	parent, err := t.lookupAs(identity, parentSegments)
	if err != nil {
		return Info{}, err
	}
	if !t.allowed(identity, permission.Add, parent) {
		return Info{}, &DeniedError{
			Agent:  agent.DisplayName(identity),
			Action: permission.Add,
			Path:   parent.path(),
		}
	}
	n, err := t.mkdir(parent, name)
	if err != nil {
		return Info{}, err
	}
	if identity != nil {
		n.acl[agent.UserKey(identity.AgentName())] = permission.All
	}
	return t.info(n), nil
}

// mkdir is the unchecked creation core shared by both variants.
func (t *Tree) mkdir(parent *node, name string) (*node, error) {
	if err := validateFolderName(name); err != nil {
		return nil, err
	}
	if _, ok := parent.children[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrExists, childPath(parent, name))
	}
	n := &node{
		id:        uuid.New(),
		name:      name,
		parent:    parent,
		children:  make(map[string]*node),
		acl:       parent.acl.Clone(),
		createdAt: t.clock.Now(),
	}
	parent.children[name] = n
	t.byID[n.id] = n
	return n, nil
}

// Rmdir removes the folder named by path without permission checks.
// The root cannot be removed, and a folder that still has subfolders
// is rejected with [ErrNotEmpty] — removal is leaf-first, never a
// cascade, so no folder can end up reachable only through a removed
// ancestor.
func (t *Tree) Rmdir(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rootNode()
	n, err := t.lookup(Split(path))
	if err != nil {
		return err
	}
	return t.rmdir(n)
}

// RmdirAs removes a folder on behalf of an identity, requiring Delete
// on the target's parent. A denied or failed check leaves the tree
// untouched.
func (t *Tree) RmdirAs(identity agent.Identity, path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rootNode()
	parentSegments, name, err := splitTarget(path)
	if err != nil {
		return fmt.Errorf("cannot remove the root folder")
	}
	parent, err := t.lookupAs(identity, parentSegments)
	if err != nil {
		return err
	}
	if !t.allowed(identity, permission.Delete, parent) {
		return &DeniedError{
			Agent:  agent.DisplayName(identity),
			Action: permission.Delete,
			Path:   parent.path(),
		}
	}
	n, ok := parent.children[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, childPath(parent, name))
	}
	return t.rmdir(n)
}

// rmdir is the unchecked removal core shared by both variants.
func (t *Tree) rmdir(n *node) error {
	if n.parent == nil {
		return fmt.Errorf("cannot remove the root folder")
	}
	if len(n.children) > 0 {
		return fmt.Errorf("%w: %s has %d subfolders", ErrNotEmpty, n.path(), len(n.children))
	}
	delete(n.parent.children, n.name)
	delete(t.byID, n.id)
	return nil
}

// SetPermissions sets the ACL entry for key on the folder at path,
// without permission checks. Setting permission.None removes the
// entry entirely rather than storing an empty set.
func (t *Tree) SetPermissions(path string, key agent.Key, actions permission.Set) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rootNode()
	n, err := t.lookup(Split(path))
	if err != nil {
		return err
	}
	t.setPermissions(n, key, actions)
	return nil
}

// SetPermissionsAs is the checked form of SetPermissions: the
// requesting identity must hold Manage on the folder.
func (t *Tree) SetPermissionsAs(identity agent.Identity, path string, key agent.Key, actions permission.Set) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rootNode()
	n, err := t.lookup(Split(path))
	if err != nil {
		return err
	}
	if !t.allowed(identity, permission.Manage, n) {
		return &DeniedError{
			Agent:  agent.DisplayName(identity),
			Action: permission.Manage,
			Path:   n.path(),
		}
	}
	t.setPermissions(n, key, actions)
	return nil
}

func (t *Tree) setPermissions(n *node, key agent.Key, actions permission.Set) {
	if actions == permission.None {
		delete(n.acl, key)
		return
	}
	n.acl[key] = actions
}

// ReplaceACL replaces the folder's entire ACL with a copy of acl.
// Unchecked; used by seed application and snapshot restore.
func (t *Tree) ReplaceACL(path string, acl ACL) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rootNode()
	n, err := t.lookup(Split(path))
	if err != nil {
		return err
	}
	n.acl = acl.Clone()
	return nil
}

// GetACL returns a copy of the ACL of the folder at path.
func (t *Tree) GetACL(path string) (ACL, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rootNode()
	n, err := t.lookup(Split(path))
	if err != nil {
		return nil, err
	}
	return n.acl.Clone(), nil
}

// Records exports every folder as a Record, parents before children
// and siblings in name order, so the slice both serializes
// deterministically and feeds [Rebuild] directly.
func (t *Tree) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	root := t.rootNode()

	var records []Record
	queue := []*node{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		rec := Record{
			ID:        n.id,
			Name:      n.name,
			CreatedAt: n.createdAt,
			ACL:       n.acl.Clone(),
		}
		if n.parent != nil {
			rec.ParentID = n.parent.id
		}
		records = append(records, rec)
		for _, name := range sortedChildNames(n) {
			queue = append(queue, n.children[name])
		}
	}
	return records
}

// Rebuild reconstructs a tree from persisted records. Exactly one
// record must be the root (ParentID == uuid.Nil); every other record
// must name an existing parent, and no record may be unreachable from
// the root. Record order does not matter.
func Rebuild(clk clock.Clock, records []Record) (*Tree, error) {
	t := New(clk)
	if len(records) == 0 {
		return t, nil
	}

	nodes := make(map[uuid.UUID]*node, len(records))
	var root *node
	for _, rec := range records {
		if _, ok := nodes[rec.ID]; ok {
			return nil, fmt.Errorf("duplicate folder record %s", rec.ID)
		}
		n := &node{
			id:        rec.ID,
			name:      rec.Name,
			children:  make(map[string]*node),
			acl:       rec.ACL.Clone(),
			createdAt: rec.CreatedAt,
		}
		nodes[rec.ID] = n
		if rec.ParentID == uuid.Nil {
			if root != nil {
				return nil, fmt.Errorf("multiple root folder records (%s and %s)", root.id, rec.ID)
			}
			root = n
		}
	}
	if root == nil {
		return nil, fmt.Errorf("no root folder record")
	}

	for _, rec := range records {
		if rec.ParentID == uuid.Nil {
			continue
		}
		parent, ok := nodes[rec.ParentID]
		if !ok {
			return nil, fmt.Errorf("folder record %s references missing parent %s", rec.ID, rec.ParentID)
		}
		child := nodes[rec.ID]
		if _, taken := parent.children[child.name]; taken {
			return nil, fmt.Errorf("duplicate sibling name %q under folder %s", child.name, rec.ParentID)
		}
		parent.children[child.name] = child
	}

	// A node whose parent chain does not reach the root is persisted
	// but unreachable; refuse the whole data set rather than silently
	// dropping it.
	reachable := 0
	queue := []*node{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		reachable++
		t.byID[n.id] = n
		for _, child := range n.children {
			child.parent = n
			queue = append(queue, child)
		}
	}
	if reachable != len(records) {
		return nil, fmt.Errorf("%d folder records unreachable from the root", len(records)-reachable)
	}

	t.root = root
	return t, nil
}

// Graft re-inserts a previously exported record under its recorded
// parent, keeping its ID, ACL, and creation time. Used by the store
// to roll back an in-memory removal whose database write failed.
func (t *Tree) Graft(rec Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rootNode()
	parent, ok := t.byID[rec.ParentID]
	if !ok {
		return fmt.Errorf("%w: parent id %s", ErrNotFound, rec.ParentID)
	}
	if _, taken := parent.children[rec.Name]; taken {
		return fmt.Errorf("%w: %s", ErrExists, childPath(parent, rec.Name))
	}
	n := &node{
		id:        rec.ID,
		name:      rec.Name,
		parent:    parent,
		children:  make(map[string]*node),
		acl:       rec.ACL.Clone(),
		createdAt: rec.CreatedAt,
	}
	parent.children[rec.Name] = n
	t.byID[n.id] = n
	return nil
}

// info builds a value snapshot. Caller must hold at least the read
// lock.
func (t *Tree) info(n *node) Info {
	info := Info{
		ID:        n.id,
		Name:      n.name,
		Path:      n.path(),
		CreatedAt: n.createdAt,
		ACL:       n.acl.Clone(),
	}
	if n.parent != nil {
		info.ParentID = n.parent.id
	}
	return info
}

func sortedChildNames(n *node) []string {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func childPath(parent *node, name string) string {
	if parent.parent == nil {
		return "/" + name
	}
	return parent.path() + "/" + name
}
