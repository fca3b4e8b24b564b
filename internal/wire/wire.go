// Package wire defines the JSON messages exchanged with the external AI
// collaborator. Everything here is a transient payload: packages are built
// fresh per extraction run and never persisted beyond it.
//
// Nothing in this package may carry raw personally identifying data. Third
// parties appear only as pseudonym tokens, and the sanitize package is the
// sole producer of outbound messages.
package wire

import "time"

// TargetUser is the literal target value for results that attach to the
// user's own node space rather than to a relationship.
const TargetUser = "user"

// ExtractedResult types.
const (
	ResultKnowledgeNode         = "knowledge_node"
	ResultRelationshipAttribute = "relationship_attribute"
	ResultProfileInsight        = "profile_insight"
	ResultCustom                = "custom"
)

// Context request types.
const (
	ContextUserProfile  = "user_profile"
	ContextRelationship = "relationship"
)

// SanitizedJournalEntry is a journal entry with names tokenized.
type SanitizedJournalEntry struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Mood    string `json:"mood,omitempty"`
}

// SanitizedActivity is one tracked activity with companions tokenized.
type SanitizedActivity struct {
	Name       string   `json:"name"`
	Details    string   `json:"details,omitempty"`
	Companions []string `json:"companions,omitempty"` // pseudonym tokens
}

// SanitizedTracker is the per-day tracker snapshot.
type SanitizedTracker struct {
	Mood       string              `json:"mood,omitempty"`
	Energy     int                 `json:"energy,omitempty"`
	Activities []SanitizedActivity `json:"activities,omitempty"`
	Metrics    map[string]float64  `json:"metrics,omitempty"`
}

// SanitizedLoveLog is one relationship-log entry with parties tokenized.
// Sender and Receiver are pseudonym tokens or the literal "Me".
type SanitizedLoveLog struct {
	ID       string `json:"id"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Kind     string `json:"kind,omitempty"`
	Message  string `json:"message"`
}

// SanitizedMessage is one conversation turn: role and content only,
// reasoning traces never cross the wire.
type SanitizedMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SanitizedConversation is one AI conversation.
type SanitizedConversation struct {
	ID       string             `json:"id"`
	Messages []SanitizedMessage `json:"messages"`
}

// SanitizedQuestion is a delivered question and any answer.
type SanitizedQuestion struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

// DailyExtractionPackage is the round-1 payload: one day's records,
// de-identified.
type DailyExtractionPackage struct {
	DayID           string                  `json:"day_id"`
	ExtractedAt     time.Time               `json:"extracted_at"`
	JournalEntries  []SanitizedJournalEntry `json:"journal_entries"`
	TrackerRecord   *SanitizedTracker       `json:"tracker_record,omitempty"`
	LoveLogs        []SanitizedLoveLog      `json:"love_logs"`
	AIConversations []SanitizedConversation `json:"ai_conversations"`
	Questions       []SanitizedQuestion     `json:"questions"`
}

// ContextRequestItem is one piece of context the collaborator asks for.
type ContextRequestItem struct {
	Type   string `json:"type"` // user_profile | relationship
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ContextRequest is the collaborator's round-1 reply when it wants more
// context before extracting.
type ContextRequest struct {
	Summary           string               `json:"summary,omitempty"`
	DetectedPersons   []string             `json:"detected_persons"`
	RequestedContexts []ContextRequestItem `json:"requested_contexts"`
}

// StaticCore is the exportable subset of the user profile. Hometown and
// current city have no field here on purpose: the schema is an allow-list.
type StaticCore struct {
	Nickname       string `json:"nickname,omitempty"`
	Gender         string `json:"gender,omitempty"`
	BirthYearMonth string `json:"birth_year_month,omitempty"` // "2006-01", never day-level
	Occupation     string `json:"occupation,omitempty"`
	Industry       string `json:"industry,omitempty"`
	Education      string `json:"education,omitempty"`
}

// NodeSummary is the reduced knowledge-node view shared with the
// collaborator (no provenance, no verification state).
type NodeSummary struct {
	NodeType    string   `json:"node_type"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// UserProfileContext is the sanitized user-profile section.
type UserProfileContext struct {
	StaticCore     StaticCore    `json:"static_core"`
	KnowledgeNodes []NodeSummary `json:"knowledge_nodes"`
	AIPreferences  string        `json:"ai_preferences,omitempty"`
}

// FactAnchors are the user-confirmed stable facts about a relationship.
type FactAnchors struct {
	FirstMeetingDate  string   `json:"first_meeting_date,omitempty"`
	SharedExperiences []string `json:"shared_experiences,omitempty"`
}

// RelationshipContext is the sanitized view of one relationship. There is
// deliberately no real-name field.
type RelationshipContext struct {
	ID          string        `json:"id"`
	Ref         string        `json:"ref"` // pseudonym token
	Type        string        `json:"type,omitempty"`
	DisplayName string        `json:"display_name"`
	Aliases     []string      `json:"aliases"`
	Narrative   string        `json:"narrative,omitempty"`
	Tags        []string      `json:"tags"`
	Attributes  []NodeSummary `json:"attributes"`
	FactAnchors *FactAnchors  `json:"fact_anchors,omitempty"`
}

// SanitizedContext is the round-2 payload answering a ContextRequest.
type SanitizedContext struct {
	UserProfile   *UserProfileContext   `json:"user_profile,omitempty"`
	Relationships []RelationshipContext `json:"relationships"`
}

// ResultSourceLink is the provenance the collaborator attaches to a result.
type ResultSourceLink struct {
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
	DayID      string `json:"day_id"`
	Snippet    string `json:"snippet,omitempty"`
}

// ExtractedData is the typed payload of one result.
type ExtractedData struct {
	NodeType    string             `json:"node_type,omitempty"`
	Name        string             `json:"name,omitempty"`
	Description string             `json:"description,omitempty"`
	Confidence  float64            `json:"confidence,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	Attributes  map[string]any     `json:"attributes,omitempty"`
	Insight     string             `json:"insight,omitempty"`
	Category    string             `json:"category,omitempty"`
	CustomData  map[string]any     `json:"custom_data,omitempty"`
	SourceLinks []ResultSourceLink `json:"source_links,omitempty"`
}

// ExtractedResult is one proposed fact. Target is either the literal
// "user" or a pseudonym token.
type ExtractedResult struct {
	Type   string        `json:"type"`
	Target string        `json:"target"`
	Data   ExtractedData `json:"data"`
}

// APIErrorInfo carries a collaborator-side failure.
type APIErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ExtractionResponse is the terminal reply of a run.
type ExtractionResponse struct {
	Success bool              `json:"success"`
	DayID   string            `json:"day_id"`
	Results []ExtractedResult `json:"results,omitempty"`
	Error   *APIErrorInfo     `json:"error,omitempty"`
}

// RoundOneReply is what the collaborator may answer round 1 with: either a
// context request, or an immediate extraction response when it needs nothing
// further. Exactly one field is set.
type RoundOneReply struct {
	ContextRequest *ContextRequest     `json:"context_request,omitempty"`
	Response       *ExtractionResponse `json:"response,omitempty"`
}
