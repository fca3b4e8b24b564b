// Package records defines the raw on-device data the knowledge pipeline
// reads from: journal entries, activity tracker records, love logs, AI
// conversations, delivered questions, and the user/relationship profile.
//
// The pipeline never writes these records; they are owned by the journaling
// and tracking features and consumed here read-only. Everything in this
// package may contain personally identifying data and must pass through the
// sanitize package before leaving the process.
package records

import "time"

// JournalEntry is one free-text journal record for a day.
type JournalEntry struct {
	ID        string    `json:"id"`
	DayID     string    `json:"day_id"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity is a single tracked activity within a day.
type Activity struct {
	Name             string   `json:"name"`
	Details          string   `json:"details,omitempty"`
	CompanionIDs     []string `json:"companion_ids,omitempty"` // raw relationship IDs
	DurationMinutes  int      `json:"duration_minutes,omitempty"`
}

// TrackerRecord is the per-day mood/activity tracker snapshot.
type TrackerRecord struct {
	DayID      string             `json:"day_id"`
	Mood       string             `json:"mood,omitempty"`
	Energy     int                `json:"energy,omitempty"`
	Activities []Activity         `json:"activities,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// LoveLog is one entry in the relationship log. Sender and receiver are raw
// relationship IDs, or empty for the user themself.
type LoveLog struct {
	ID         string    `json:"id"`
	DayID      string    `json:"day_id"`
	SenderID   string    `json:"sender_id,omitempty"`
	ReceiverID string    `json:"receiver_id,omitempty"`
	Kind       string    `json:"kind,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChatMessage is one turn of an AI conversation. ReasoningContent holds the
// model's private reasoning trace and must never leave the device.
type ChatMessage struct {
	Role             string `json:"role"`
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

// Conversation is one AI conversation held on a day.
type Conversation struct {
	ID       string        `json:"id"`
	DayID    string        `json:"day_id"`
	Title    string        `json:"title,omitempty"`
	Messages []ChatMessage `json:"messages"`
}

// Question is a reflective question delivered to the user, with any answer
// they gave.
type Question struct {
	ID     string `json:"id"`
	DayID  string `json:"day_id"`
	Text   string `json:"text"`
	Answer string `json:"answer,omitempty"`
}

// Profile is the user's own profile. Hometown, CurrentCity and the
// day-level birth date are classified sensitive and are stripped or reduced
// by the sanitize package before export.
type Profile struct {
	Nickname      string    `json:"nickname,omitempty"`
	Gender        string    `json:"gender,omitempty"`
	BirthDate     time.Time `json:"birth_date,omitempty"`
	Hometown      string    `json:"hometown,omitempty"`
	CurrentCity   string    `json:"current_city,omitempty"`
	Occupation    string    `json:"occupation,omitempty"`
	Industry      string    `json:"industry,omitempty"`
	Education     string    `json:"education,omitempty"`
	AIPreferences string    `json:"ai_preferences,omitempty"`
}

// FactAnchors are the stable, user-confirmed facts about a relationship.
type FactAnchors struct {
	FirstMeetingDate  string   `json:"first_meeting_date,omitempty"`
	SharedExperiences []string `json:"shared_experiences,omitempty"`
}

// Relationship is one third party in the user's life. RealName never leaves
// the device; DisplayName and Aliases are what appear in tokens and in text
// substitution.
type Relationship struct {
	ID          string      `json:"id"`
	RealName    string      `json:"real_name,omitempty"`
	DisplayName string      `json:"display_name"`
	Aliases     []string    `json:"aliases,omitempty"`
	Type        string      `json:"type,omitempty"` // friend, family, partner, colleague, ...
	Narrative   string      `json:"narrative,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	FactAnchors FactAnchors `json:"fact_anchors,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
