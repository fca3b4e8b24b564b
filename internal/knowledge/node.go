// Package knowledge holds the personal knowledge base: atomic facts about
// the user and the people in their life, classified by taxonomy path and
// carrying provenance back to the raw records that evidenced them.
package knowledge

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// OwnerUser is the owner ID for nodes that describe the user themself.
// Nodes about third parties carry the relationship ID instead.
const OwnerUser = "user"

// Common errors for node operations.
var (
	ErrNodeNotFound = errors.New("knowledge node not found")
	ErrInvalidNode  = errors.New("invalid knowledge node")
	ErrEmptyName    = errors.New("node name cannot be empty")
)

// ContentType discriminates the node payload shape.
type ContentType string

const (
	// ContentAITag is the minimal shape: name, description, provenance.
	ContentAITag ContentType = "aiTag"

	// ContentSubsystem is a fixed key/value attribute bag maintained by a
	// feature subsystem rather than by extraction.
	ContentSubsystem ContentType = "subsystem"

	// ContentEntityRef points at a relationship entity.
	ContentEntityRef ContentType = "entityRef"

	// ContentNestedList is a parent node whose children are nodes themselves.
	ContentNestedList ContentType = "nestedList"
)

// SourceKind records how a node came to exist.
type SourceKind string

const (
	SourceUserInput   SourceKind = "userInput"
	SourceAIExtracted SourceKind = "aiExtracted"
	SourceAIInferred  SourceKind = "aiInferred"
)

// Source is the provenance header of a node.
type Source struct {
	Kind       SourceKind `json:"kind"`
	Confidence float64    `json:"confidence"`
}

// Verification tracks the user's review state for a node.
type Verification struct {
	ConfirmedByUser bool `json:"confirmed_by_user"`
	NeedsReview     bool `json:"needs_review"`
}

// SourceLink is a back-reference from a node to the raw record that
// evidenced it. Links are immutable once attached.
type SourceLink struct {
	SourceType       string   `json:"source_type"` // diary, conversation, tracker, mindState, ...
	SourceID         string   `json:"source_id"`
	DayID            string   `json:"day_id"`
	Snippet          string   `json:"snippet,omitempty"`
	RelevanceScore   float64  `json:"relevance_score,omitempty"`
	RelatedEntityIDs []string `json:"related_entity_ids,omitempty"`
}

// Node is one atomic fact in the knowledge base.
type Node struct {
	ID               string                 `json:"id"`
	OwnerID          string                 `json:"owner_id"`
	NodeType         string                 `json:"node_type"` // taxonomy path string
	ContentType      ContentType            `json:"content_type"`
	Name             string                 `json:"name"`
	Description      string                 `json:"description,omitempty"`
	Tags             []string               `json:"tags,omitempty"`
	Attributes       map[string]any         `json:"attributes,omitempty"`
	SourceLinks      []SourceLink           `json:"source_links,omitempty"`
	RelatedEntityIDs []string               `json:"related_entity_ids,omitempty"`
	ParentNodeID     string                 `json:"parent_node_id,omitempty"`
	ChildNodeIDs     []string               `json:"child_node_ids,omitempty"`
	Source           Source                 `json:"source"`
	Verification     Verification           `json:"verification"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// NewNode creates a node with a generated ID and timestamps. The node type
// is stored as given; Store.Upsert migrates and validates it.
func NewNode(ownerID, nodeType, name string, contentType ContentType, src Source) (*Node, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if ownerID == "" {
		ownerID = OwnerUser
	}
	if src.Confidence < 0 || src.Confidence > 1 {
		return nil, errors.New("confidence must be between 0.0 and 1.0")
	}

	now := time.Now()
	return &Node{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		NodeType:    nodeType,
		ContentType: contentType,
		Name:        name,
		Source:      src,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// MentionCount is the number of raw records that evidence this node.
func (n *Node) MentionCount() int {
	return len(n.SourceLinks)
}

// SourceTypeDistribution counts source links grouped by source type.
func (n *Node) SourceTypeDistribution() map[string]int {
	dist := make(map[string]int, len(n.SourceLinks))
	for _, l := range n.SourceLinks {
		dist[l.SourceType]++
	}
	return dist
}

// HasSourceLink reports whether the node already carries a link to the
// given raw record. Identity is the (sourceType, sourceID) pair; the same
// record never contributes two links no matter how often it is re-merged.
func (n *Node) HasSourceLink(sourceType, sourceID string) bool {
	for _, l := range n.SourceLinks {
		if l.SourceType == sourceType && l.SourceID == sourceID {
			return true
		}
	}
	return false
}

// AppendSourceLink attaches a link unless an identical (sourceType,
// sourceID) pair is already present. Returns true when the link was added.
func (n *Node) AppendSourceLink(link SourceLink) bool {
	if n.HasSourceLink(link.SourceType, link.SourceID) {
		return false
	}
	n.SourceLinks = append(n.SourceLinks, link)
	return true
}

// Rarity tiers derived from mention count. The boundaries are a display
// policy, tunable without affecting merge correctness.
type Rarity string

const (
	RarityNone Rarity = "none"
	RarityFew  Rarity = "few"
	RaritySome Rarity = "some"
	RarityMany Rarity = "many"
)

// Tier boundaries for Rarity. Exposed as variables so the presentation
// layer can tune them.
var (
	RarityFewMax  = 2
	RaritySomeMax = 9
)

// Rarity buckets the node's mention count into a display tier.
func (n *Node) Rarity() Rarity {
	c := n.MentionCount()
	switch {
	case c == 0:
		return RarityNone
	case c <= RarityFewMax:
		return RarityFew
	case c <= RaritySomeMax:
		return RaritySome
	default:
		return RarityMany
	}
}

// Summary is the reduced node view shared with the external collaborator:
// classification and content without provenance or verification state.
type Summary struct {
	NodeType    string   `json:"node_type"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Summarize reduces the node to its exportable summary.
func (n *Node) Summarize() Summary {
	return Summary{
		NodeType:    n.NodeType,
		Name:        n.Name,
		Description: n.Description,
		Tags:        append([]string(nil), n.Tags...),
	}
}
