// Package taxonomy provides the fixed three-level classification scheme used
// to organize every fact in the personal knowledge base.
//
// A path has the string form "level1.level2.level3". Level 1 and level 2 are
// closed vocabularies defined by the registry; level 3 is open-ended and may
// be coined freely by the extraction pipeline. The registry also carries the
// migration table for deprecated flat category keys (e.g. "skill") that
// predate the three-level scheme.
package taxonomy

import "strings"

// Separator joins path components in the string form.
const Separator = "."

// MaxDepth is the number of levels a path can carry.
const MaxDepth = 3

// Path is a parsed taxonomy path. Level1 is always set; Level2 and Level3
// are empty when absent.
type Path struct {
	Level1 string `json:"level1"`
	Level2 string `json:"level2,omitempty"`
	Level3 string `json:"level3,omitempty"`
}

// ParsePath splits a dot-joined path string into up to three components.
//
// Empty or whitespace-only input yields (nil, false). Components beyond the
// third are ignored rather than rejected; the extraction pipeline sometimes
// emits over-deep paths and truncation is the documented behavior.
func ParsePath(raw string) (*Path, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	parts := strings.Split(raw, Separator)
	p := &Path{Level1: parts[0]}
	if len(parts) > 1 {
		p.Level2 = parts[1]
	}
	if len(parts) > 2 {
		p.Level3 = parts[2]
	}
	return p, true
}

// Depth returns the number of non-empty components (1-3).
func (p *Path) Depth() int {
	switch {
	case p.Level3 != "":
		return 3
	case p.Level2 != "":
		return 2
	default:
		return 1
	}
}

// String renders the path back to its dot-joined form.
func (p *Path) String() string {
	var b strings.Builder
	b.WriteString(p.Level1)
	if p.Level2 != "" {
		b.WriteString(Separator)
		b.WriteString(p.Level2)
		if p.Level3 != "" {
			b.WriteString(Separator)
			b.WriteString(p.Level3)
		}
	}
	return b.String()
}

// HasPrefix reports whether other is equal to p or a dot-prefix of p.
// "self.identity" has prefix "self" and "self.identity" but not "self.id".
func HasPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+Separator)
}
