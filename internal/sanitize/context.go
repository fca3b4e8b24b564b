package sanitize

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lifebank/internal/knowledge"
	"github.com/fyrsmithlabs/lifebank/internal/pseudonym"
	"github.com/fyrsmithlabs/lifebank/internal/records"
	"github.com/fyrsmithlabs/lifebank/internal/wire"
)

// NodeSource provides the knowledge-node summaries included in sanitized
// context. Satisfied by knowledge.Store.
type NodeSource interface {
	FindByOwner(ownerID, nodeTypePrefix string) []*knowledge.Node
}

// BuildContext answers a collaborator's context request with sanitized
// material. Unknown request types and unknown relationship IDs are skipped;
// answering with less than asked is always safe, answering with raw data
// never is.
func (s *Sanitizer) BuildContext(ctx context.Context, requested []wire.ContextRequestItem, nodes NodeSource) (*wire.SanitizedContext, error) {
	relationships, err := s.profiles.Relationships(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading relationship roster: %w", err)
	}
	ros := newRoster(relationships)

	out := &wire.SanitizedContext{Relationships: []wire.RelationshipContext{}}

	for _, item := range requested {
		switch item.Type {
		case wire.ContextUserProfile:
			if out.UserProfile != nil {
				continue
			}
			profile, err := s.buildUserProfile(ctx, nodes)
			if err != nil {
				return nil, err
			}
			out.UserProfile = profile

		case wire.ContextRelationship:
			rc, err := s.buildRelationship(ctx, item.ID, ros, nodes)
			if errors.Is(err, records.ErrRelationshipNotFound) {
				s.logger.Warn("context request for unknown relationship skipped",
					zap.String("id", item.ID))
				continue
			}
			if err != nil {
				return nil, err
			}
			out.Relationships = append(out.Relationships, *rc)

		default:
			s.logger.Warn("unknown context request type skipped",
				zap.String("type", item.Type))
		}
	}

	return out, nil
}

// buildUserProfile reduces the profile to its exportable StaticCore subset.
// Hometown and current city are not copied, and the birth date is reduced to
// year and month.
func (s *Sanitizer) buildUserProfile(ctx context.Context, nodes NodeSource) (*wire.UserProfileContext, error) {
	p, err := s.profiles.Profile(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	core := wire.StaticCore{
		Nickname:   p.Nickname,
		Gender:     p.Gender,
		Occupation: p.Occupation,
		Industry:   p.Industry,
		Education:  p.Education,
	}
	if !p.BirthDate.IsZero() {
		core.BirthYearMonth = p.BirthDate.Format("2006-01")
	}

	out := &wire.UserProfileContext{
		StaticCore:     core,
		KnowledgeNodes: []wire.NodeSummary{},
		AIPreferences:  p.AIPreferences,
	}
	if nodes != nil {
		for _, n := range nodes.FindByOwner(knowledge.OwnerUser, "") {
			out.KnowledgeNodes = append(out.KnowledgeNodes, nodeSummary(n))
		}
	}
	return out, nil
}

// buildRelationship reduces one relationship to its exportable subset. The
// real name is not copied; the collaborator sees only the display identity
// it already knows from tokens. The narrative is free text and may mention
// other people, so it passes through the same name substitution as journal
// content.
func (s *Sanitizer) buildRelationship(ctx context.Context, id string, ros *roster, nodes NodeSource) (*wire.RelationshipContext, error) {
	rel, err := s.profiles.Relationship(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &wire.RelationshipContext{
		ID:          rel.ID,
		Ref:         pseudonym.Format(rel.ID, rel.DisplayName),
		Type:        rel.Type,
		DisplayName: rel.DisplayName,
		Aliases:     append([]string{}, rel.Aliases...),
		Narrative:   s.clean(ros.substitute(rel.Narrative)),
		Tags:        append([]string{}, rel.Tags...),
		Attributes:  []wire.NodeSummary{},
	}
	if rel.FactAnchors.FirstMeetingDate != "" || len(rel.FactAnchors.SharedExperiences) > 0 {
		out.FactAnchors = &wire.FactAnchors{
			FirstMeetingDate:  rel.FactAnchors.FirstMeetingDate,
			SharedExperiences: rel.FactAnchors.SharedExperiences,
		}
	}
	if nodes != nil {
		for _, n := range nodes.FindByOwner(rel.ID, "") {
			out.Attributes = append(out.Attributes, nodeSummary(n))
		}
	}
	return out, nil
}

// nodeSummary converts a node to its wire summary (no provenance).
func nodeSummary(n *knowledge.Node) wire.NodeSummary {
	return wire.NodeSummary{
		NodeType:    n.NodeType,
		Name:        n.Name,
		Description: n.Description,
		Tags:        n.Tags,
	}
}
