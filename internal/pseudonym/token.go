// Package pseudonym encodes third-party references as reversible tokens so
// free text can leave the device without exposing a real-world identity.
//
// The token grammar is "[REL_<relationshipID>:<displayName>]". Display names
// may not contain ':' or ']', which is what keeps the encoding reversible.
// Anything the external collaborator learns about a person is keyed by the
// opaque relationship ID, never by name.
package pseudonym

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Token syntax pieces. The regexp is the single source of truth for parsing;
// Format mirrors it exactly so that Parse(Format(x)) == x holds for every
// valid reference.
const (
	tokenPrefix = "[REL_"
	tokenSuffix = "]"
)

var tokenPattern = regexp.MustCompile(`\[REL_([^:]+):([^\]]+)\]`)

// ErrUnsafeDisplayName is returned when a display name contains characters
// that would corrupt the token grammar.
var ErrUnsafeDisplayName = errors.New("display name must not contain ':' or ']'")

// PersonRef identifies a third party by internal relationship ID together
// with the display name shown to the external collaborator.
type PersonRef struct {
	RelationshipID string `json:"relationship_id"`
	DisplayName    string `json:"display_name"`
}

// Format renders the reference as a token.
func Format(relationshipID, displayName string) string {
	return tokenPrefix + relationshipID + ":" + displayName + tokenSuffix
}

// Token renders the reference as a token.
func (p PersonRef) Token() string {
	return Format(p.RelationshipID, p.DisplayName)
}

// SafeDisplayName validates that a display name can be embedded in a token
// without breaking the grammar.
func SafeDisplayName(name string) error {
	if strings.ContainsAny(name, ":]") {
		return fmt.Errorf("%w: %q", ErrUnsafeDisplayName, name)
	}
	return nil
}

// Parse extracts the first token found in text. Malformed bracket syntax
// yields (zero, false) rather than a partial match; a returned reference
// always carries both fields intact.
//
// Only the first occurrence is considered. Callers that need every token in
// a string must use ParseAll; keeping Parse single-match preserves the
// behavior the rest of the system was built against.
func Parse(text string) (PersonRef, bool) {
	m := tokenPattern.FindStringSubmatch(text)
	if m == nil {
		return PersonRef{}, false
	}
	return PersonRef{RelationshipID: m[1], DisplayName: m[2]}, true
}

// ParseAll extracts every token in text, in order of appearance.
func ParseAll(text string) []PersonRef {
	matches := tokenPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	refs := make([]PersonRef, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, PersonRef{RelationshipID: m[1], DisplayName: m[2]})
	}
	return refs
}
