package merge

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lifebank/internal/knowledge"
	"github.com/fyrsmithlabs/lifebank/internal/pseudonym"
	"github.com/fyrsmithlabs/lifebank/internal/taxonomy"
	"github.com/fyrsmithlabs/lifebank/internal/wire"
)

// DefaultReviewConfidence is the confidence below which a newly created
// node is flagged for user review. A policy constant, not a contract.
const DefaultReviewConfidence = 0.6

// Engine applies extraction responses to the knowledge store.
type Engine struct {
	store            *knowledge.Store
	registry         *taxonomy.Registry
	reviewConfidence float64
	logger           *zap.Logger

	// mu serializes Apply. The create-or-append merge is a read-modify-write
	// against the store; concurrent runs for different days may target the
	// same node, and interleaved merges would lose source links or create
	// duplicates.
	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithReviewConfidence overrides the review-flag threshold.
func WithReviewConfidence(threshold float64) Option {
	return func(e *Engine) { e.reviewConfidence = threshold }
}

// NewEngine creates a merge engine over the given store and registry.
func NewEngine(store *knowledge.Store, registry *taxonomy.Registry, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if store == nil || registry == nil {
		return nil, fmt.Errorf("store and registry are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		store:            store,
		registry:         registry,
		reviewConfidence: DefaultReviewConfidence,
		logger:           logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Apply merges every result of a successful response. One unresolvable
// result is recorded in the report and does not block its siblings.
// Re-applying the same response is idempotent: source links are deduped by
// (sourceType, sourceID) within each node.
func (e *Engine) Apply(_ context.Context, resp *wire.ExtractionResponse) (*Report, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}
	if !resp.Success {
		return nil, fmt.Errorf("refusing to merge failed response for day %s", resp.DayID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	report := &Report{DayID: resp.DayID}
	for i, result := range resp.Results {
		if err := e.applyOne(result, report); err != nil {
			report.skip(i, result.Target, err.Error())
			e.logger.Warn("extraction result skipped",
				zap.Int("index", i),
				zap.String("type", result.Type),
				zap.String("reason", err.Error()))
		}
	}
	return report, nil
}

// applyOne merges a single result.
func (e *Engine) applyOne(result wire.ExtractedResult, report *Report) error {
	ownerID, err := e.resolveTarget(result.Target)
	if err != nil {
		return err
	}

	switch result.Type {
	case wire.ResultKnowledgeNode, wire.ResultRelationshipAttribute, wire.ResultProfileInsight, wire.ResultCustom:
		return e.mergeNode(ownerID, result, report)
	default:
		return fmt.Errorf("unknown result type %q", result.Type)
	}
}

// resolveTarget maps a result target to a node owner: the literal "user",
// or a pseudonym token naming a relationship.
func (e *Engine) resolveTarget(target string) (string, error) {
	if target == wire.TargetUser {
		return knowledge.OwnerUser, nil
	}
	ref, ok := pseudonym.Parse(target)
	if !ok {
		return "", fmt.Errorf("unresolvable target %q", target)
	}
	return ref.RelationshipID, nil
}

// mergeNode is the shared create-or-append path for every result type.
func (e *Engine) mergeNode(ownerID string, result wire.ExtractedResult, report *Report) error {
	data := result.Data

	name := data.Name
	if name == "" && result.Type == wire.ResultProfileInsight {
		name = data.Insight
	}
	if name == "" {
		return fmt.Errorf("result carries no name")
	}

	nodeType := e.resolveNodeType(data)
	if nodeType == "" {
		return fmt.Errorf("result carries no node type or category")
	}

	if existing := e.findMatch(ownerID, nodeType, name); existing != nil {
		// Match: provenance only. Name and description belong to the user
		// once a node exists; AI re-extraction must not rewrite them.
		added := appendLinks(existing, data.SourceLinks)
		if err := e.store.Upsert(existing); err != nil {
			return fmt.Errorf("updating node: %w", err)
		}
		report.Updated++
		report.LinksAdded += added
		return nil
	}

	confidence := data.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	node, err := knowledge.NewNode(ownerID, nodeType, name, contentTypeFor(result.Type), knowledge.Source{
		Kind:       knowledge.SourceAIExtracted,
		Confidence: confidence,
	})
	if err != nil {
		return fmt.Errorf("building node: %w", err)
	}
	node.Description = data.Description
	if node.Description == "" && data.Insight != "" {
		node.Description = data.Insight
	}
	node.Tags = data.Tags
	if len(data.Attributes) > 0 {
		node.Attributes = data.Attributes
	}
	if result.Type == wire.ResultCustom && len(data.CustomData) > 0 {
		node.Attributes = data.CustomData
	}
	if confidence < e.reviewConfidence {
		node.Verification.NeedsReview = true
	}
	report.LinksAdded += appendLinks(node, data.SourceLinks)

	if err := e.store.Upsert(node); err != nil {
		return fmt.Errorf("creating node: %w", err)
	}
	report.Created++
	return nil
}

// resolveNodeType picks the taxonomy path for a result: the explicit node
// type when given, otherwise the (possibly legacy) category. Migration off
// legacy keys happens in both cases; validation happens in the store, which
// flags rather than rejects.
func (e *Engine) resolveNodeType(data wire.ExtractedData) string {
	if data.NodeType != "" {
		return e.registry.Migrate(data.NodeType)
	}
	if data.Category != "" {
		return e.registry.Migrate(data.Category)
	}
	return ""
}

// findMatch looks for an existing node with the same owner, node type and
// name, case-insensitively.
func (e *Engine) findMatch(ownerID, nodeType, name string) *knowledge.Node {
	for _, n := range e.store.FindByOwner(ownerID, "") {
		if strings.EqualFold(n.NodeType, nodeType) && strings.EqualFold(n.Name, name) {
			return n
		}
	}
	return nil
}

// contentTypeFor maps a result type to the node content type.
func contentTypeFor(resultType string) knowledge.ContentType {
	if resultType == wire.ResultCustom {
		return knowledge.ContentSubsystem
	}
	return knowledge.ContentAITag
}

// appendLinks attaches the result's source links, skipping duplicates.
func appendLinks(node *knowledge.Node, links []wire.ResultSourceLink) int {
	added := 0
	for _, l := range links {
		if l.SourceType == "" || l.SourceID == "" {
			continue
		}
		if node.AppendSourceLink(knowledge.SourceLink{
			SourceType: l.SourceType,
			SourceID:   l.SourceID,
			DayID:      l.DayID,
			Snippet:    l.Snippet,
		}) {
			added++
		}
	}
	return added
}
