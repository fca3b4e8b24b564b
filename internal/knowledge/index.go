package knowledge

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// collectionName is the single chromem collection holding node embeddings.
const collectionName = "lifebank_nodes"

// Index is an embedded semantic index over knowledge nodes, backed by
// chromem-go. It is an acceleration structure only: the store remains the
// source of truth and prefix lookups never touch the index.
type Index struct {
	collection *chromem.Collection
	logger     *zap.Logger
}

// SearchHit is one semantic search result.
type SearchHit struct {
	NodeID     string  `json:"node_id"`
	Similarity float32 `json:"similarity"`
}

// NewIndex creates an index. When path is empty the index lives purely in
// memory; otherwise chromem persists to the given directory. The embedding
// function decides how node text becomes vectors; tests inject a
// deterministic one.
func NewIndex(path string, compress bool, embed chromem.EmbeddingFunc, logger *zap.Logger) (*Index, error) {
	if embed == nil {
		return nil, fmt.Errorf("embedding function is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		db  *chromem.DB
		err error
	)
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, compress)
		if err != nil {
			return nil, fmt.Errorf("opening chromem db: %w", err)
		}
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}

	return &Index{collection: collection, logger: logger}, nil
}

// Put adds or replaces a node's embedding.
func (i *Index) Put(node *Node) error {
	content := node.Name
	if node.Description != "" {
		content += "\n\n" + node.Description
	}
	return i.collection.AddDocument(context.Background(), chromem.Document{
		ID:      node.ID,
		Content: content,
		Metadata: map[string]string{
			"owner_id":  node.OwnerID,
			"node_type": node.NodeType,
		},
	})
}

// Remove drops a node's embedding.
func (i *Index) Remove(nodeID string) error {
	return i.collection.Delete(context.Background(), nil, nil, nodeID)
}

// Search returns the node IDs most similar to the query, best first.
func (i *Index) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	count := i.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	results, err := i.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, SearchHit{NodeID: r.ID, Similarity: r.Similarity})
	}
	return hits, nil
}

// Search resolves semantic hits back to full nodes. Hits whose node has
// been deleted since indexing are skipped.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]*Node, error) {
	if s.index == nil {
		return nil, fmt.Errorf("semantic index not configured")
	}

	hits, err := s.index.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*Node, 0, len(hits))
	for _, h := range hits {
		node, err := s.Get(h.NodeID)
		if err != nil {
			continue
		}
		out = append(out, node)
	}
	return out, nil
}
