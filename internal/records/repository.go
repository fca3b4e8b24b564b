package records

import (
	"context"
	"errors"
)

// ErrRelationshipNotFound is returned when a relationship ID is unknown.
var ErrRelationshipNotFound = errors.New("relationship not found")

// DaySource provides read access to the per-day raw records.
type DaySource interface {
	// JournalEntries returns the journal entries written on the day.
	JournalEntries(ctx context.Context, dayID string) ([]JournalEntry, error)

	// Tracker returns the day's tracker record, or nil when nothing was tracked.
	Tracker(ctx context.Context, dayID string) (*TrackerRecord, error)

	// LoveLogs returns the love-log entries for the day.
	LoveLogs(ctx context.Context, dayID string) ([]LoveLog, error)

	// Conversations returns the AI conversations held on the day.
	Conversations(ctx context.Context, dayID string) ([]Conversation, error)

	// Questions returns the questions delivered on the day.
	Questions(ctx context.Context, dayID string) ([]Question, error)
}

// ProfileSource provides read access to the user profile and the
// relationship roster.
type ProfileSource interface {
	// Profile returns the user's own profile.
	Profile(ctx context.Context) (*Profile, error)

	// Relationships returns the full relationship roster.
	Relationships(ctx context.Context) ([]Relationship, error)

	// Relationship returns one relationship by ID.
	Relationship(ctx context.Context, id string) (*Relationship, error)
}
