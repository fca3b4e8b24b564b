package records

import (
	"encoding/json"
	"fmt"
	"os"
)

// Archive is the JSON document format for an exported record set. The
// journaling features write it; lifebankd only reads it.
type Archive struct {
	Profile       Profile        `json:"profile"`
	Relationships []Relationship `json:"relationships,omitempty"`
	Journal       []JournalEntry `json:"journal,omitempty"`
	Trackers      []TrackerRecord `json:"trackers,omitempty"`
	LoveLogs      []LoveLog      `json:"love_logs,omitempty"`
	Conversations []Conversation `json:"conversations,omitempty"`
	Questions     []Question     `json:"questions,omitempty"`
}

// LoadFile reads a record archive into a MemorySource.
func LoadFile(path string) (*MemorySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading records file: %w", err)
	}

	var archive Archive
	if err := json.Unmarshal(data, &archive); err != nil {
		return nil, fmt.Errorf("parsing records file %s: %w", path, err)
	}

	src := NewMemorySource()
	src.SetProfile(archive.Profile)
	for _, r := range archive.Relationships {
		if r.ID == "" {
			return nil, fmt.Errorf("records file %s: relationship without ID", path)
		}
		src.PutRelationship(r)
	}
	for _, e := range archive.Journal {
		src.AddJournalEntry(e)
	}
	for _, tr := range archive.Trackers {
		src.SetTracker(tr)
	}
	for _, l := range archive.LoveLogs {
		src.AddLoveLog(l)
	}
	for _, c := range archive.Conversations {
		src.AddConversation(c)
	}
	for _, q := range archive.Questions {
		src.AddQuestion(q)
	}
	return src, nil
}
