package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNode(t *testing.T) {
	n, err := NewNode("", "spirit.ideology.values", "Family first", ContentAITag, Source{Kind: SourceAIExtracted, Confidence: 0.9})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, OwnerUser, n.OwnerID, "empty owner defaults to the user")
	assert.False(t, n.CreatedAt.IsZero())

	_, err = NewNode(OwnerUser, "self", "", ContentAITag, Source{})
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = NewNode(OwnerUser, "self", "x", ContentAITag, Source{Confidence: 1.5})
	assert.Error(t, err)
}

func TestNode_SourceLinks(t *testing.T) {
	n, err := NewNode(OwnerUser, "self.preferences.hobbies", "Bouldering", ContentAITag, Source{Kind: SourceAIExtracted, Confidence: 0.8})
	require.NoError(t, err)

	assert.Equal(t, 0, n.MentionCount())
	assert.Equal(t, RarityNone, n.Rarity())

	added := n.AppendSourceLink(SourceLink{SourceType: "diary", SourceID: "j1", DayID: "2026-08-30"})
	assert.True(t, added)

	// Same (sourceType, sourceID) pair is a no-op regardless of other fields.
	added = n.AppendSourceLink(SourceLink{SourceType: "diary", SourceID: "j1", DayID: "2026-08-31", Snippet: "different"})
	assert.False(t, added)
	assert.Equal(t, 1, n.MentionCount())

	n.AppendSourceLink(SourceLink{SourceType: "tracker", SourceID: "t1", DayID: "2026-08-30"})
	n.AppendSourceLink(SourceLink{SourceType: "diary", SourceID: "j2", DayID: "2026-08-31"})

	dist := n.SourceTypeDistribution()
	assert.Equal(t, 2, dist["diary"])
	assert.Equal(t, 1, dist["tracker"])
}

func TestNode_Rarity(t *testing.T) {
	n := &Node{}
	tiers := []struct {
		links int
		want  Rarity
	}{
		{0, RarityNone},
		{1, RarityFew},
		{2, RarityFew},
		{3, RaritySome},
		{9, RaritySome},
		{10, RarityMany},
	}
	for _, tt := range tiers {
		n.SourceLinks = make([]SourceLink, tt.links)
		assert.Equal(t, tt.want, n.Rarity(), "%d links", tt.links)
	}
}

func TestNode_Summarize(t *testing.T) {
	n := &Node{
		NodeType:    "self.identity.social_roles",
		Name:        "Mentor",
		Description: "Mentors juniors at work",
		Tags:        []string{"work"},
		SourceLinks: []SourceLink{{SourceType: "diary", SourceID: "j1"}},
	}
	s := n.Summarize()
	assert.Equal(t, "Mentor", s.Name)
	assert.Equal(t, []string{"work"}, s.Tags)
}
