package taxonomy

import "strings"

// Core level-1 identifiers. Every knowledge fact ultimately hangs off one of
// these five branches.
const (
	Level1Self         = "self"
	Level1Material     = "material"
	Level1Achievements = "achievements"
	Level1Experiences  = "experiences"
	Level1Spirit       = "spirit"
)

// Reserved level-1 identifiers. Recognized by Validate so that data written
// by future versions is not flagged for review, but they carry no level-2
// vocabulary yet.
const (
	Level1Social   = "social"
	Level1Wellness = "wellness"
)

// Registry is the immutable classification scheme. Construct once with
// NewRegistry at process start and pass by reference; it is never mutated
// at runtime and is safe for concurrent use.
type Registry struct {
	children map[string][]string
	reserved map[string]bool
	display  map[string]string
	legacy   map[string]string
}

// NewRegistry builds the registry from the static tables.
func NewRegistry() *Registry {
	return &Registry{
		children: map[string][]string{
			Level1Self:         {"identity", "personality", "preferences"},
			Level1Material:     {"possessions", "finances", "environment"},
			Level1Achievements: {"competencies", "milestones", "works"},
			Level1Experiences:  {"events", "places", "periods"},
			Level1Spirit:       {"ideology", "emotions", "aspirations"},
		},
		reserved: map[string]bool{
			Level1Social:   true,
			Level1Wellness: true,
		},
		display: displayNames(),
		legacy:  legacyTable(),
	}
}

// Validate reports whether the path conforms to the scheme: level 1 must be
// a core or reserved identifier, level 2 (when present) must belong to that
// level 1's fixed child set, and level 3 is always accepted because its
// vocabulary is open.
func (r *Registry) Validate(p *Path) bool {
	if p == nil {
		return false
	}

	children, core := r.children[p.Level1]
	if !core && !r.reserved[p.Level1] {
		return false
	}

	if p.Level2 == "" {
		return true
	}
	for _, c := range children {
		if c == p.Level2 {
			return true
		}
	}
	return false
}

// ValidateString parses and validates in one step.
func (r *Registry) ValidateString(raw string) bool {
	p, ok := ParsePath(raw)
	if !ok {
		return false
	}
	return r.Validate(p)
}

// Level1Identifiers returns the recognized level-1 identifiers, core first.
func (r *Registry) Level1Identifiers() []string {
	ids := []string{Level1Self, Level1Material, Level1Achievements, Level1Experiences, Level1Spirit}
	for k := range r.reserved {
		ids = append(ids, k)
	}
	return ids
}

// ChildrenOf returns the fixed level-2 vocabulary for a level-1 identifier,
// or nil when the identifier is unknown or reserved.
func (r *Registry) ChildrenOf(level1 string) []string {
	children := r.children[level1]
	out := make([]string, len(children))
	copy(out, children)
	return out
}

// DisplayPath joins the localized display names of the present levels with
// " / ". Levels without a display-name entry are skipped rather than
// rendered as raw identifiers.
func (r *Registry) DisplayPath(p *Path) string {
	if p == nil {
		return ""
	}

	var parts []string
	for _, key := range []string{p.Level1, p.Level2, p.Level3} {
		if key == "" {
			continue
		}
		if name, ok := r.display[key]; ok {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, " / ")
}

// displayNames maps segment identifiers to user-facing names. Level-3
// identifiers coined by the extraction pipeline have no entry and are
// skipped by DisplayPath.
func displayNames() map[string]string {
	return map[string]string{
		Level1Self:         "Self",
		Level1Material:     "Material Life",
		Level1Achievements: "Achievements",
		Level1Experiences:  "Experiences",
		Level1Spirit:       "Spirit",
		Level1Social:       "Social",
		Level1Wellness:     "Wellness",

		"identity":     "Identity",
		"personality":  "Personality",
		"preferences":  "Preferences",
		"possessions":  "Possessions",
		"finances":     "Finances",
		"environment":  "Environment",
		"competencies": "Competencies",
		"milestones":   "Milestones",
		"works":        "Works",
		"events":       "Events",
		"places":       "Places",
		"periods":      "Periods",
		"ideology":     "Ideology",
		"emotions":     "Emotions",
		"aspirations":  "Aspirations",

		"social_roles":        "Social Roles",
		"professional_skills": "Professional Skills",
		"values":              "Values",
	}
}
