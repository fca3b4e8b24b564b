package knowledge

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// hashEmbedding is a deterministic bag-of-words embedding for tests: each
// token bumps a hashed dimension, then the vector is L2-normalized. Shared
// tokens between texts yield higher cosine similarity, which is all the
// index tests need.
func hashEmbedding(_ context.Context, text string) ([]float32, error) {
	const dims = 64
	vec := make([]float32, dims)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%dims]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
	}
	return vec, nil
}

func TestIndex_SearchOrdersBySimilarity(t *testing.T) {
	idx, err := NewIndex("", false, hashEmbedding, zap.NewNop())
	require.NoError(t, err)

	s := newTestStore(t, WithIndex(idx))

	climbing := mustNode(t, OwnerUser, "self.preferences.hobbies", "Bouldering")
	climbing.Description = "climbing gym sessions every week"
	cooking := mustNode(t, OwnerUser, "self.preferences.hobbies", "Cooking")
	cooking.Description = "weeknight pasta experiments"
	require.NoError(t, s.Upsert(climbing))
	require.NoError(t, s.Upsert(cooking))

	got, err := s.Search(context.Background(), "climbing gym", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, climbing.ID, got[0].ID)
}

func TestIndex_DeletedNodesDropOut(t *testing.T) {
	idx, err := NewIndex("", false, hashEmbedding, zap.NewNop())
	require.NoError(t, err)
	s := newTestStore(t, WithIndex(idx))

	n := mustNode(t, OwnerUser, "spirit.ideology.values", "Honesty")
	require.NoError(t, s.Upsert(n))
	require.NoError(t, s.Delete(n.ID))

	got, err := s.Search(context.Background(), "Honesty", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_SearchWithoutIndex(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Search(context.Background(), "anything", 3)
	assert.Error(t, err)
}

func TestIndex_EmptyQuery(t *testing.T) {
	idx, err := NewIndex("", false, hashEmbedding, zap.NewNop())
	require.NoError(t, err)
	_, err = idx.Search(context.Background(), "", 3)
	assert.Error(t, err)
}
