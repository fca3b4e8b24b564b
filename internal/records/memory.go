package records

import (
	"context"
	"sync"
)

// MemorySource is an in-memory implementation of DaySource and
// ProfileSource. The daemon uses it when no backing store is wired up, and
// tests use it to stage raw data.
type MemorySource struct {
	mu            sync.RWMutex
	journal       map[string][]JournalEntry // keyed by day ID
	tracker       map[string]*TrackerRecord
	loveLogs      map[string][]LoveLog
	conversations map[string][]Conversation
	questions     map[string][]Question
	profile       Profile
	relationships map[string]Relationship
	order         []string // relationship insertion order, for stable listing
}

// NewMemorySource creates an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		journal:       make(map[string][]JournalEntry),
		tracker:       make(map[string]*TrackerRecord),
		loveLogs:      make(map[string][]LoveLog),
		conversations: make(map[string][]Conversation),
		questions:     make(map[string][]Question),
		relationships: make(map[string]Relationship),
	}
}

var (
	_ DaySource     = (*MemorySource)(nil)
	_ ProfileSource = (*MemorySource)(nil)
)

// AddJournalEntry stages a journal entry.
func (m *MemorySource) AddJournalEntry(e JournalEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal[e.DayID] = append(m.journal[e.DayID], e)
}

// SetTracker stages the tracker record for its day.
func (m *MemorySource) SetTracker(t TrackerRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := t
	m.tracker[t.DayID] = &cp
}

// AddLoveLog stages a love-log entry.
func (m *MemorySource) AddLoveLog(l LoveLog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loveLogs[l.DayID] = append(m.loveLogs[l.DayID], l)
}

// AddConversation stages a conversation.
func (m *MemorySource) AddConversation(c Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[c.DayID] = append(m.conversations[c.DayID], c)
}

// AddQuestion stages a delivered question.
func (m *MemorySource) AddQuestion(q Question) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.DayID] = append(m.questions[q.DayID], q)
}

// SetProfile stages the user profile.
func (m *MemorySource) SetProfile(p Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = p
}

// PutRelationship stages or replaces a relationship.
func (m *MemorySource) PutRelationship(r Relationship) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.relationships[r.ID]; !exists {
		m.order = append(m.order, r.ID)
	}
	m.relationships[r.ID] = r
}

// JournalEntries implements DaySource.
func (m *MemorySource) JournalEntries(_ context.Context, dayID string) ([]JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]JournalEntry, len(m.journal[dayID]))
	copy(out, m.journal[dayID])
	return out, nil
}

// Tracker implements DaySource.
func (m *MemorySource) Tracker(_ context.Context, dayID string) (*TrackerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tracker[dayID]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// LoveLogs implements DaySource.
func (m *MemorySource) LoveLogs(_ context.Context, dayID string) ([]LoveLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]LoveLog, len(m.loveLogs[dayID]))
	copy(out, m.loveLogs[dayID])
	return out, nil
}

// Conversations implements DaySource.
func (m *MemorySource) Conversations(_ context.Context, dayID string) ([]Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Conversation, len(m.conversations[dayID]))
	copy(out, m.conversations[dayID])
	return out, nil
}

// Questions implements DaySource.
func (m *MemorySource) Questions(_ context.Context, dayID string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Question, len(m.questions[dayID]))
	copy(out, m.questions[dayID])
	return out, nil
}

// Profile implements ProfileSource.
func (m *MemorySource) Profile(_ context.Context) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := m.profile
	return &cp, nil
}

// Relationships implements ProfileSource.
func (m *MemorySource) Relationships(_ context.Context) ([]Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Relationship, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.relationships[id])
	}
	return out, nil
}

// Relationship implements ProfileSource.
func (m *MemorySource) Relationship(_ context.Context, id string) (*Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.relationships[id]
	if !ok {
		return nil, ErrRelationshipNotFound
	}
	cp := r
	return &cp, nil
}
