// Package sanitize builds the de-identified payloads that leave the device.
//
// It is the only producer of outbound wire messages. Third-party names are
// replaced with pseudonym tokens, fields classified sensitive (real names,
// hometown, current city, day-level birth dates, AI reasoning traces) are
// stripped, and free text is scrubbed for embedded secrets. Outbound schemas
// are allow-lists: a field crosses the wire only because a sanitized DTO
// declares it.
package sanitize

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fyrsmithlabs/lifebank/internal/pseudonym"
	"github.com/fyrsmithlabs/lifebank/internal/records"
)

// roster is the substitution table built from the relationship list. Names
// and aliases map to tokens; a name claimed by more than one relationship is
// ambiguous and is never substituted.
type roster struct {
	byName map[string]pseudonym.PersonRef
	byID   map[string]pseudonym.PersonRef
	// names sorted longest-first so "Mia Wong" wins over "Mia" during a scan.
	names []string
}

// newRoster indexes relationships by display name, alias, and ID. Names
// that are empty, unsafe for the token grammar, or claimed by multiple
// relationships are excluded from substitution.
func newRoster(relationships []records.Relationship) *roster {
	r := &roster{
		byName: make(map[string]pseudonym.PersonRef),
		byID:   make(map[string]pseudonym.PersonRef),
	}

	claimed := make(map[string]int)
	for _, rel := range relationships {
		if rel.ID == "" || rel.DisplayName == "" {
			continue
		}
		if pseudonym.SafeDisplayName(rel.DisplayName) != nil {
			continue
		}
		ref := pseudonym.PersonRef{RelationshipID: rel.ID, DisplayName: rel.DisplayName}
		r.byID[rel.ID] = ref

		for _, name := range append([]string{rel.DisplayName}, rel.Aliases...) {
			if name == "" {
				continue
			}
			claimed[name]++
			r.byName[name] = ref
		}
	}

	// Drop ambiguous names: substitution must never guess.
	for name, count := range claimed {
		if count > 1 {
			delete(r.byName, name)
		}
	}

	r.names = make([]string, 0, len(r.byName))
	for name := range r.byName {
		r.names = append(r.names, name)
	}
	sort.Slice(r.names, func(i, j int) bool {
		if len(r.names[i]) != len(r.names[j]) {
			return len(r.names[i]) > len(r.names[j])
		}
		return r.names[i] < r.names[j]
	})

	return r
}

// tokenForID returns the token for a raw relationship ID.
func (r *roster) tokenForID(id string) (string, bool) {
	ref, ok := r.byID[id]
	if !ok {
		return "", false
	}
	return ref.Token(), true
}

// substitute replaces every whole-word occurrence of a known display name or
// alias with its token. Matching is case-sensitive and exact; partial
// matches inside longer words are left alone. The scan moves strictly left
// to right and emitted tokens are never rescanned, so a name that happens to
// appear inside another person's token cannot corrupt it.
func (r *roster) substitute(text string) string {
	if text == "" || len(r.names) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	i := 0
	for i < len(text) {
		matched := false
		before, _ := utf8.DecodeLastRuneInString(text[:i])
		if i == 0 || !isWordRune(before) {
			for _, name := range r.names {
				if !strings.HasPrefix(text[i:], name) {
					continue
				}
				after, _ := utf8.DecodeRuneInString(text[i+len(name):])
				if i+len(name) == len(text) || !isWordRune(after) {
					b.WriteString(r.byName[name].Token())
					i += len(name)
					matched = true
					break
				}
			}
		}
		if !matched {
			_, size := utf8.DecodeRuneInString(text[i:])
			b.WriteString(text[i : i+size])
			i += size
		}
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
