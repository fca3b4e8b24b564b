package merge

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lifebank/internal/knowledge"
	"github.com/fyrsmithlabs/lifebank/internal/taxonomy"
	"github.com/fyrsmithlabs/lifebank/internal/wire"
)

func newTestEngine(t *testing.T) (*Engine, *knowledge.Store) {
	t.Helper()
	reg := taxonomy.NewRegistry()
	store, err := knowledge.NewStore(reg, zap.NewNop())
	require.NoError(t, err)
	e, err := NewEngine(store, reg, zap.NewNop())
	require.NoError(t, err)
	return e, store
}

func valueResult(target, name string, links ...wire.ResultSourceLink) wire.ExtractedResult {
	return wire.ExtractedResult{
		Type:   wire.ResultKnowledgeNode,
		Target: target,
		Data: wire.ExtractedData{
			NodeType:    "spirit.ideology.values",
			Name:        name,
			Confidence:  0.9,
			SourceLinks: links,
		},
	}
}

func TestApply_CreatesNodes(t *testing.T) {
	e, store := newTestEngine(t)

	resp := &wire.ExtractionResponse{
		Success: true,
		DayID:   "2026-08-30",
		Results: []wire.ExtractedResult{
			valueResult("user", "Family first",
				wire.ResultSourceLink{SourceType: "journal", SourceID: "j1", DayID: "2026-08-30"}),
		},
	}

	report, err := e.Apply(context.Background(), resp)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 1, report.LinksAdded)
	assert.Empty(t, report.Skipped)

	nodes := store.FindByOwner(knowledge.OwnerUser, "spirit.ideology.values")
	require.Len(t, nodes, 1)
	assert.Equal(t, "Family first", nodes[0].Name)
	assert.Equal(t, knowledge.SourceAIExtracted, nodes[0].Source.Kind)
	assert.False(t, nodes[0].Verification.NeedsReview)
}

func TestApply_IdempotentUnderRedelivery(t *testing.T) {
	e, store := newTestEngine(t)

	resp := &wire.ExtractionResponse{
		Success: true,
		DayID:   "2026-08-30",
		Results: []wire.ExtractedResult{
			valueResult("user", "Family first",
				wire.ResultSourceLink{SourceType: "journal", SourceID: "j1", DayID: "2026-08-30"}),
			{
				Type:   wire.ResultRelationshipAttribute,
				Target: "[REL_r1:Mia]",
				Data: wire.ExtractedData{
					NodeType:   "self.preferences.hobbies",
					Name:       "Bouldering",
					Confidence: 0.8,
					SourceLinks: []wire.ResultSourceLink{
						{SourceType: "activity", SourceID: "a1", DayID: "2026-08-30"},
					},
				},
			},
		},
	}

	first, err := e.Apply(context.Background(), resp)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)

	countBefore := store.Len()
	linksBefore := len(store.FindByOwner(knowledge.OwnerUser, "")[0].SourceLinks)

	second, err := e.Apply(context.Background(), resp)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Updated)
	assert.Equal(t, 0, second.LinksAdded, "links are deduped on re-delivery")
	assert.Equal(t, countBefore, store.Len())
	assert.Len(t, store.FindByOwner(knowledge.OwnerUser, "")[0].SourceLinks, linksBefore)
}

func TestApply_MergesMatchingResultsFromDifferentSources(t *testing.T) {
	e, store := newTestEngine(t)

	dayOne := &wire.ExtractionResponse{
		Success: true,
		DayID:   "2026-08-29",
		Results: []wire.ExtractedResult{
			valueResult("user", "Family first",
				wire.ResultSourceLink{SourceType: "journal", SourceID: "j1", DayID: "2026-08-29"}),
		},
	}
	dayTwo := &wire.ExtractionResponse{
		Success: true,
		DayID:   "2026-08-30",
		Results: []wire.ExtractedResult{
			valueResult("user", "family FIRST",
				wire.ResultSourceLink{SourceType: "conversation", SourceID: "c7", DayID: "2026-08-30"}),
		},
	}

	_, err := e.Apply(context.Background(), dayOne)
	require.NoError(t, err)
	report, err := e.Apply(context.Background(), dayTwo)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.LinksAdded)

	nodes := store.FindByOwner(knowledge.OwnerUser, "spirit.ideology.values")
	require.Len(t, nodes, 1, "case-insensitive name match merges into one node")
	require.Len(t, nodes[0].SourceLinks, 2)
	assert.Equal(t, "Family first", nodes[0].Name, "existing name is kept")
}

func TestApply_ConcurrentDaysKeepEveryLink(t *testing.T) {
	e, store := newTestEngine(t)

	// Simulates parallel runs for different days all landing on the same
	// (owner, nodeType, name) node. Every day's provenance must survive and
	// exactly one node may exist afterwards.
	const days = 8
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < days; i++ {
		dayID := fmt.Sprintf("2026-08-%02d", i+1)
		resp := &wire.ExtractionResponse{
			Success: true,
			DayID:   dayID,
			Results: []wire.ExtractedResult{
				valueResult("user", "Family first",
					wire.ResultSourceLink{SourceType: "journal", SourceID: "j-" + dayID, DayID: dayID}),
			},
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := e.Apply(context.Background(), resp)
			assert.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	nodes := store.FindByOwner(knowledge.OwnerUser, "spirit.ideology.values")
	require.Len(t, nodes, 1, "concurrent merges must not create duplicates")
	assert.Len(t, nodes[0].SourceLinks, days, "no day's source link may be lost")
}

func TestApply_MatchNeverRewritesContent(t *testing.T) {
	e, store := newTestEngine(t)

	first := valueResult("user", "Family first")
	first.Data.Description = "edited by the user"
	_, err := e.Apply(context.Background(), &wire.ExtractionResponse{
		Success: true, DayID: "d1", Results: []wire.ExtractedResult{first},
	})
	require.NoError(t, err)

	again := valueResult("user", "Family first")
	again.Data.Description = "model rewording"
	_, err = e.Apply(context.Background(), &wire.ExtractionResponse{
		Success: true, DayID: "d2", Results: []wire.ExtractedResult{again},
	})
	require.NoError(t, err)

	nodes := store.FindByOwner(knowledge.OwnerUser, "spirit.ideology.values")
	require.Len(t, nodes, 1)
	assert.Equal(t, "edited by the user", nodes[0].Description)
}

func TestApply_LowConfidenceFlagsReview(t *testing.T) {
	e, store := newTestEngine(t)

	result := valueResult("user", "Maybe vegetarian")
	result.Data.Confidence = 0.4
	_, err := e.Apply(context.Background(), &wire.ExtractionResponse{
		Success: true, DayID: "d", Results: []wire.ExtractedResult{result},
	})
	require.NoError(t, err)

	nodes := store.FindByOwner(knowledge.OwnerUser, "")
	require.Len(t, nodes, 1)
	assert.True(t, nodes[0].Verification.NeedsReview)
}

func TestApply_PseudonymTargetResolvesToRelationship(t *testing.T) {
	e, store := newTestEngine(t)

	result := wire.ExtractedResult{
		Type:   wire.ResultRelationshipAttribute,
		Target: "[REL_r1:Mia]",
		Data: wire.ExtractedData{
			NodeType:   "self.preferences.hobbies",
			Name:       "Bouldering",
			Confidence: 0.85,
		},
	}
	_, err := e.Apply(context.Background(), &wire.ExtractionResponse{
		Success: true, DayID: "d", Results: []wire.ExtractedResult{result},
	})
	require.NoError(t, err)

	nodes := store.FindByOwner("r1", "")
	require.Len(t, nodes, 1)
	assert.Equal(t, "Bouldering", nodes[0].Name)
	assert.Empty(t, store.FindByOwner(knowledge.OwnerUser, ""))
}

func TestApply_SkipsBadResultsKeepsSiblings(t *testing.T) {
	e, store := newTestEngine(t)

	resp := &wire.ExtractionResponse{
		Success: true,
		DayID:   "d",
		Results: []wire.ExtractedResult{
			{Type: wire.ResultKnowledgeNode, Target: "somebody", Data: wire.ExtractedData{NodeType: "x", Name: "y"}},
			{Type: "prophecy", Target: "user"},
			{Type: wire.ResultKnowledgeNode, Target: "user", Data: wire.ExtractedData{NodeType: "spirit.ideology.values"}},
			valueResult("user", "Family first"),
		},
	}

	report, err := e.Apply(context.Background(), resp)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	require.Len(t, report.Skipped, 3)
	assert.Equal(t, 0, report.Skipped[0].Index)
	assert.Contains(t, report.Skipped[0].Reason, "unresolvable target")
	assert.Contains(t, report.Skipped[1].Reason, "unknown result type")
	assert.Contains(t, report.Skipped[2].Reason, "no name")
	assert.Equal(t, 1, store.Len())
}

func TestApply_LegacyCategoryIsMigrated(t *testing.T) {
	e, store := newTestEngine(t)

	result := wire.ExtractedResult{
		Type:   wire.ResultKnowledgeNode,
		Target: "user",
		Data: wire.ExtractedData{
			Category:   "skill",
			Name:       "Woodworking",
			Confidence: 0.9,
		},
	}
	_, err := e.Apply(context.Background(), &wire.ExtractionResponse{
		Success: true, DayID: "d", Results: []wire.ExtractedResult{result},
	})
	require.NoError(t, err)

	nodes := store.FindByOwner(knowledge.OwnerUser, "achievements.competencies")
	require.Len(t, nodes, 1)
	assert.Equal(t, "achievements.competencies.professional_skills", nodes[0].NodeType)
}

func TestApply_ProfileInsightUsesInsightText(t *testing.T) {
	e, store := newTestEngine(t)

	result := wire.ExtractedResult{
		Type:   wire.ResultProfileInsight,
		Target: "user",
		Data: wire.ExtractedData{
			NodeType:   "self.personality.traits",
			Insight:    "Recharges through solitary hikes",
			Confidence: 0.7,
		},
	}
	_, err := e.Apply(context.Background(), &wire.ExtractionResponse{
		Success: true, DayID: "d", Results: []wire.ExtractedResult{result},
	})
	require.NoError(t, err)

	nodes := store.FindByOwner(knowledge.OwnerUser, "")
	require.Len(t, nodes, 1)
	assert.Equal(t, "Recharges through solitary hikes", nodes[0].Name)
	assert.Equal(t, "Recharges through solitary hikes", nodes[0].Description)
}

func TestApply_CustomResultCarriesCustomData(t *testing.T) {
	e, store := newTestEngine(t)

	result := wire.ExtractedResult{
		Type:   wire.ResultCustom,
		Target: "user",
		Data: wire.ExtractedData{
			NodeType:   "experiences.events.gatherings",
			Name:       "Housewarming",
			Confidence: 0.8,
			CustomData: map[string]any{"guests": float64(6)},
		},
	}
	_, err := e.Apply(context.Background(), &wire.ExtractionResponse{
		Success: true, DayID: "d", Results: []wire.ExtractedResult{result},
	})
	require.NoError(t, err)

	nodes := store.FindByOwner(knowledge.OwnerUser, "")
	require.Len(t, nodes, 1)
	assert.Equal(t, knowledge.ContentSubsystem, nodes[0].ContentType)
	assert.Equal(t, float64(6), nodes[0].Attributes["guests"])
}

func TestApply_RefusesFailedResponse(t *testing.T) {
	e, store := newTestEngine(t)

	_, err := e.Apply(context.Background(), &wire.ExtractionResponse{
		Success: false,
		DayID:   "d",
		Error:   &wire.APIErrorInfo{Code: "RATE_LIMIT", Message: "slow down"},
	})
	assert.Error(t, err)
	assert.Equal(t, 0, store.Len(), "failed responses never mutate the store")
}
