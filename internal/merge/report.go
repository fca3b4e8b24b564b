// Package merge applies extraction results proposed by the external AI
// collaborator to the knowledge base. Merging is create-or-append with
// dedup: a result matching an existing node only gains provenance, it never
// silently rewrites content the user may have edited.
package merge

// Skip records one result that could not be applied. Sibling results are
// unaffected; application is per-item atomic, not all-or-nothing.
type Skip struct {
	Index  int    `json:"index"`
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// Report summarizes one Apply call.
type Report struct {
	DayID      string `json:"day_id"`
	Created    int    `json:"created"`
	Updated    int    `json:"updated"`
	LinksAdded int    `json:"links_added"`
	Skipped    []Skip `json:"skipped,omitempty"`
}

func (r *Report) skip(index int, target, reason string) {
	r.Skipped = append(r.Skipped, Skip{Index: index, Target: target, Reason: reason})
}
