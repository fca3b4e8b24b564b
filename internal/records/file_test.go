package records

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"profile": {"nickname": "Jo", "hometown": "Heidelberg"},
		"relationships": [
			{"id": "r1", "display_name": "Mia", "real_name": "Mia Schneider"}
		],
		"journal": [
			{"id": "j1", "day_id": "2026-08-30", "content": "Had lunch with Mia"}
		],
		"trackers": [
			{"day_id": "2026-08-30", "mood": "calm"}
		],
		"questions": [
			{"id": "q1", "day_id": "2026-08-30", "text": "What went well?"}
		]
	}`), 0600))

	src, err := LoadFile(path)
	require.NoError(t, err)

	ctx := context.Background()
	profile, err := src.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Jo", profile.Nickname)

	rel, err := src.Relationship(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Mia", rel.DisplayName)

	entries, err := src.JournalEntries(ctx, "2026-08-30")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	tracker, err := src.Tracker(ctx, "2026-08-30")
	require.NoError(t, err)
	require.NotNil(t, tracker)
	assert.Equal(t, "calm", tracker.Mood)

	questions, err := src.Questions(ctx, "2026-08-30")
	require.NoError(t, err)
	assert.Len(t, questions, 1)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0600))
	_, err = LoadFile(bad)
	assert.Error(t, err)

	noID := filepath.Join(t.TempDir(), "noid.json")
	require.NoError(t, os.WriteFile(noID, []byte(`{"relationships":[{"display_name":"Mia"}]}`), 0600))
	_, err = LoadFile(noID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relationship without ID")
}
