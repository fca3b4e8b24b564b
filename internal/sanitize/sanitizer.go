package sanitize

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lifebank/internal/records"
	"github.com/fyrsmithlabs/lifebank/internal/wire"
)

// MeLiteral is how the user appears in sanitized love logs.
const MeLiteral = "Me"

// Omission records one raw record left out of a daily package because it
// could not be safely redacted.
type Omission struct {
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
	Reason     string `json:"reason"`
}

// BuildReport is the extraction log for one package build. A package is
// best-effort: one bad record is omitted and noted here, never fatal.
type BuildReport struct {
	DayID     string     `json:"day_id"`
	Omissions []Omission `json:"omissions,omitempty"`
}

func (r *BuildReport) omit(sourceType, sourceID, reason string) {
	r.Omissions = append(r.Omissions, Omission{SourceType: sourceType, SourceID: sourceID, Reason: reason})
}

// Sanitizer turns raw per-day records and profile data into de-identified
// wire payloads.
type Sanitizer struct {
	days     records.DaySource
	profiles records.ProfileSource
	scrubber *Scrubber
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Sanitizer.
type Option func(*Sanitizer)

// WithScrubber enables secret scrubbing on outbound free text.
func WithScrubber(s *Scrubber) Option {
	return func(sz *Sanitizer) { sz.scrubber = s }
}

// withClock overrides the clock, for tests.
func withClock(now func() time.Time) Option {
	return func(sz *Sanitizer) { sz.now = now }
}

// New creates a Sanitizer over the given read sources.
func New(days records.DaySource, profiles records.ProfileSource, logger *zap.Logger, opts ...Option) (*Sanitizer, error) {
	if days == nil || profiles == nil {
		return nil, fmt.Errorf("day and profile sources are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Sanitizer{
		days:     days,
		profiles: profiles,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// clean runs free text through the secret scrubber when one is configured.
func (s *Sanitizer) clean(text string) string {
	return s.scrubber.Scrub(text)
}

// BuildDailyPackage assembles the round-1 payload for a day. Every record
// passes its source-specific redaction rule; records that cannot be redacted
// are omitted and listed in the report.
func (s *Sanitizer) BuildDailyPackage(ctx context.Context, dayID string) (*wire.DailyExtractionPackage, *BuildReport, error) {
	if dayID == "" {
		return nil, nil, fmt.Errorf("day ID cannot be empty")
	}

	relationships, err := s.profiles.Relationships(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading relationship roster: %w", err)
	}
	ros := newRoster(relationships)

	report := &BuildReport{DayID: dayID}
	pkg := &wire.DailyExtractionPackage{
		DayID:           dayID,
		ExtractedAt:     s.now(),
		JournalEntries:  []wire.SanitizedJournalEntry{},
		LoveLogs:        []wire.SanitizedLoveLog{},
		AIConversations: []wire.SanitizedConversation{},
		Questions:       []wire.SanitizedQuestion{},
	}

	entries, err := s.days.JournalEntries(ctx, dayID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading journal entries: %w", err)
	}
	for _, e := range entries {
		pkg.JournalEntries = append(pkg.JournalEntries, wire.SanitizedJournalEntry{
			ID:      e.ID,
			Content: s.clean(ros.substitute(e.Content)),
			Mood:    e.Mood,
		})
	}

	tracker, err := s.days.Tracker(ctx, dayID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading tracker record: %w", err)
	}
	if tracker != nil {
		pkg.TrackerRecord = s.sanitizeTracker(tracker, ros, report)
	}

	logs, err := s.days.LoveLogs(ctx, dayID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading love logs: %w", err)
	}
	for _, l := range logs {
		sanitized, ok := s.sanitizeLoveLog(l, ros, report)
		if ok {
			pkg.LoveLogs = append(pkg.LoveLogs, sanitized)
		}
	}

	conversations, err := s.days.Conversations(ctx, dayID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading conversations: %w", err)
	}
	for _, c := range conversations {
		// Only role and content survive; reasoning traces stay on device.
		sc := wire.SanitizedConversation{ID: c.ID}
		for _, m := range c.Messages {
			sc.Messages = append(sc.Messages, wire.SanitizedMessage{
				Role:    m.Role,
				Content: s.clean(ros.substitute(m.Content)),
			})
		}
		pkg.AIConversations = append(pkg.AIConversations, sc)
	}

	questions, err := s.days.Questions(ctx, dayID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading questions: %w", err)
	}
	for _, q := range questions {
		pkg.Questions = append(pkg.Questions, wire.SanitizedQuestion{
			ID:       q.ID,
			Question: q.Text,
			Answer:   s.clean(ros.substitute(q.Answer)),
		})
	}

	if len(report.Omissions) > 0 {
		s.logger.Warn("daily package built with omissions",
			zap.String("day_id", dayID),
			zap.Int("omitted", len(report.Omissions)))
	}
	return pkg, report, nil
}

// sanitizeTracker tokenizes activity details and companions. Companions are
// raw relationship IDs in the tracker; IDs missing from the roster are
// dropped rather than exported raw.
func (s *Sanitizer) sanitizeTracker(t *records.TrackerRecord, ros *roster, report *BuildReport) *wire.SanitizedTracker {
	out := &wire.SanitizedTracker{
		Mood:    t.Mood,
		Energy:  t.Energy,
		Metrics: t.Metrics,
	}
	for _, a := range t.Activities {
		sa := wire.SanitizedActivity{
			Name:    a.Name,
			Details: s.clean(ros.substitute(a.Details)),
		}
		for _, companionID := range a.CompanionIDs {
			token, ok := ros.tokenForID(companionID)
			if !ok {
				report.omit("tracker", a.Name, fmt.Sprintf("unknown companion relationship %q dropped", companionID))
				continue
			}
			sa.Companions = append(sa.Companions, token)
		}
		out.Activities = append(out.Activities, sa)
	}
	return out
}

// sanitizeLoveLog tokenizes both parties. An empty party ID means the user.
// A party whose relationship is unknown cannot be tokenized, so the whole
// entry is omitted; exporting a raw ID would defeat the pseudonymization.
func (s *Sanitizer) sanitizeLoveLog(l records.LoveLog, ros *roster, report *BuildReport) (wire.SanitizedLoveLog, bool) {
	party := func(id string) (string, bool) {
		if id == "" {
			return MeLiteral, true
		}
		return ros.tokenForID(id)
	}

	sender, ok := party(l.SenderID)
	if !ok {
		report.omit("love_log", l.ID, fmt.Sprintf("unknown sender relationship %q", l.SenderID))
		return wire.SanitizedLoveLog{}, false
	}
	receiver, ok := party(l.ReceiverID)
	if !ok {
		report.omit("love_log", l.ID, fmt.Sprintf("unknown receiver relationship %q", l.ReceiverID))
		return wire.SanitizedLoveLog{}, false
	}

	return wire.SanitizedLoveLog{
		ID:       l.ID,
		Sender:   sender,
		Receiver: receiver,
		Kind:     l.Kind,
		Message:  s.clean(ros.substitute(l.Message)),
	}, true
}
