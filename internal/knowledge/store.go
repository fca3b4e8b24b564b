package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lifebank/internal/taxonomy"
)

// Store holds the knowledge base. All mutations go through a single write
// path guarded by one mutex, so concurrent extraction runs for different
// days can never interleave writes to the same node unsafely.
//
// Nodes whose type does not validate against the taxonomy are stored with
// NeedsReview set rather than rejected; level 3 is intentionally
// AI-extensible and imperfect classification must not lose user data.
type Store struct {
	mu       sync.RWMutex
	nodes    map[string]*Node
	registry *taxonomy.Registry
	logger   *zap.Logger

	// path is the JSON snapshot location; empty disables persistence.
	path string

	index *Index
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSnapshotPath enables JSON snapshot persistence at the given path.
func WithSnapshotPath(path string) StoreOption {
	return func(s *Store) { s.path = path }
}

// WithIndex attaches a semantic index that is kept in sync on mutation.
func WithIndex(idx *Index) StoreOption {
	return func(s *Store) { s.index = idx }
}

// NewStore creates a store backed by the given taxonomy registry. When a
// snapshot path is configured and a snapshot exists, it is loaded.
func NewStore(registry *taxonomy.Registry, logger *zap.Logger, opts ...StoreOption) (*Store, error) {
	if registry == nil {
		return nil, fmt.Errorf("taxonomy registry cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		nodes:    make(map[string]*Node),
		registry: registry,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.path != "" {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("loading snapshot: %w", err)
		}
	}
	return s, nil
}

// Upsert stores or replaces a node. The node type is migrated off any
// legacy flat key first, then validated; invalid types are stored with
// NeedsReview set. Parent/child references are kept consistent both ways.
func (s *Store) Upsert(node *Node) error {
	if node == nil || node.ID == "" {
		return ErrInvalidNode
	}
	if node.Name == "" {
		return ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	node.NodeType = s.registry.Migrate(node.NodeType)
	if !s.registry.ValidateString(node.NodeType) {
		node.Verification.NeedsReview = true
		s.logger.Warn("node type failed taxonomy validation, flagged for review",
			zap.String("id", node.ID),
			zap.String("node_type", node.NodeType))
	}

	if node.OwnerID == "" {
		node.OwnerID = OwnerUser
	}
	if node.CreatedAt.IsZero() {
		node.CreatedAt = time.Now()
	}
	node.UpdatedAt = time.Now()

	if prev, ok := s.nodes[node.ID]; ok && prev.ParentNodeID != node.ParentNodeID {
		s.detachChildLocked(prev.ParentNodeID, node.ID)
	}
	if node.ParentNodeID != "" {
		s.attachChildLocked(node.ParentNodeID, node.ID)
	}

	s.nodes[node.ID] = node
	s.afterMutateLocked(node)
	return nil
}

// Get returns the node by ID.
func (s *Store) Get(id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, ErrNodeNotFound
	}
	cp := *n
	return &cp, nil
}

// Find returns all nodes whose type equals the query or sits under it as a
// dot-prefix, sorted by creation time. An empty prefix returns everything.
func (s *Store) Find(nodeTypePrefix string) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Node
	for _, n := range s.nodes {
		if nodeTypePrefix == "" || taxonomy.HasPrefix(n.NodeType, nodeTypePrefix) {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// FindByOwner returns the nodes belonging to an owner, optionally narrowed
// by a node-type prefix.
func (s *Store) FindByOwner(ownerID, nodeTypePrefix string) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Node
	for _, n := range s.nodes {
		if n.OwnerID != ownerID {
			continue
		}
		if nodeTypePrefix == "" || taxonomy.HasPrefix(n.NodeType, nodeTypePrefix) {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ChildrenOf returns the child nodes of a parent.
func (s *Store) ChildrenOf(parentID string) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parent, ok := s.nodes[parentID]
	if !ok {
		return nil
	}
	out := make([]*Node, 0, len(parent.ChildNodeIDs))
	for _, id := range parent.ChildNodeIDs {
		if c, ok := s.nodes[id]; ok {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out
}

// Delete removes a node. Children are detached by clearing their parent
// reference, not deleted; removing a list must never destroy its members.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}

	for _, childID := range node.ChildNodeIDs {
		if child, ok := s.nodes[childID]; ok && child.ParentNodeID == id {
			child.ParentNodeID = ""
			child.UpdatedAt = time.Now()
		}
	}
	if node.ParentNodeID != "" {
		s.detachChildLocked(node.ParentNodeID, id)
	}

	delete(s.nodes, id)
	if s.index != nil {
		if err := s.index.Remove(id); err != nil {
			s.logger.Warn("removing node from index", zap.String("id", id), zap.Error(err))
		}
	}
	s.saveLocked()
	return nil
}

// Len returns the number of stored nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// attachChildLocked records id under the parent's child list (idempotent).
func (s *Store) attachChildLocked(parentID, id string) {
	parent, ok := s.nodes[parentID]
	if !ok {
		return
	}
	for _, c := range parent.ChildNodeIDs {
		if c == id {
			return
		}
	}
	parent.ChildNodeIDs = append(parent.ChildNodeIDs, id)
}

// detachChildLocked removes id from the parent's child list.
func (s *Store) detachChildLocked(parentID, id string) {
	parent, ok := s.nodes[parentID]
	if !ok {
		return
	}
	for i, c := range parent.ChildNodeIDs {
		if c == id {
			parent.ChildNodeIDs = append(parent.ChildNodeIDs[:i], parent.ChildNodeIDs[i+1:]...)
			return
		}
	}
}

// afterMutateLocked updates the index and snapshot after a write.
func (s *Store) afterMutateLocked(node *Node) {
	if s.index != nil {
		if err := s.index.Put(node); err != nil {
			s.logger.Warn("indexing node", zap.String("id", node.ID), zap.Error(err))
		}
	}
	s.saveLocked()
}

// snapshot is the on-disk shape.
type snapshot struct {
	Version int     `json:"version"`
	Nodes   []*Node `json:"nodes"`
}

// load reads the JSON snapshot if present. Legacy node types in the
// snapshot are migrated once here, so the in-memory store never carries
// flat category keys.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parsing snapshot %s: %w", s.path, err)
	}

	for _, n := range snap.Nodes {
		n.NodeType = s.registry.Migrate(n.NodeType)
		s.nodes[n.ID] = n
	}
	s.logger.Info("knowledge snapshot loaded",
		zap.String("path", s.path),
		zap.Int("nodes", len(snap.Nodes)))
	return nil
}

// saveLocked writes the snapshot. Failures are logged, not returned; a
// missed snapshot must not fail the merge that triggered it.
func (s *Store) saveLocked() {
	if s.path == "" {
		return
	}

	nodes := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	data, err := json.MarshalIndent(snapshot{Version: 1, Nodes: nodes}, "", "  ")
	if err != nil {
		s.logger.Error("marshaling knowledge snapshot", zap.Error(err))
		return
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		s.logger.Error("creating snapshot directory", zap.Error(err))
		return
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		s.logger.Error("writing knowledge snapshot", zap.Error(err))
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Error("replacing knowledge snapshot", zap.Error(err))
	}
}
