package collaborator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/lifebank/internal/wire"
)

// roundOnePrompt wraps the daily package. The model may either ask for
// context or extract immediately; the reply schema mirrors wire.RoundOneReply.
func roundOnePrompt(payload string) string {
	return `You are a careful knowledge curator for a personal journal application.
People are referenced as [REL_id:name] tokens; treat tokens as opaque and copy them verbatim.

Below is one day of de-identified records as JSON:

` + payload + `

Decide whether you need more background before extracting durable knowledge facts.
Reply with exactly one JSON object, no prose, in one of these two shapes:

{"context_request": {"summary": "...", "detected_persons": ["[REL_id:name]"], "requested_contexts": [{"type": "user_profile"}, {"type": "relationship", "id": "...", "reason": "..."}]}}

{"response": {"success": true, "day_id": "...", "results": [{"type": "knowledge_node|relationship_attribute|profile_insight|custom", "target": "user or [REL_id:name]", "data": {"node_type": "level1.level2.level3", "name": "...", "description": "...", "confidence": 0.0, "source_links": [{"source_type": "diary", "source_id": "...", "day_id": "..."}]}}]}}`
}

// roundTwoPrompt wraps the sanitized context and asks for the terminal
// extraction response.
func roundTwoPrompt(dayID, payload string) string {
	return fmt.Sprintf(`You are a careful knowledge curator for a personal journal application.
People are referenced as [REL_id:name] tokens; treat tokens as opaque and copy them verbatim.

Here is the background context you requested for day %s, as JSON:

%s

Extract durable knowledge facts for that day. Reply with exactly one JSON object, no prose:

{"success": true, "day_id": "%s", "results": [{"type": "knowledge_node|relationship_attribute|profile_insight|custom", "target": "user or [REL_id:name]", "data": {"node_type": "level1.level2.level3", "name": "...", "description": "...", "confidence": 0.0, "source_links": [{"source_type": "diary", "source_id": "...", "day_id": "%s"}]}}]}`,
		dayID, payload, dayID, dayID)
}

// extractJSON pulls the first JSON object out of a model reply, tolerating
// fenced code blocks and surrounding prose.
func extractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			s = strings.TrimSpace(rest[:j])
		}
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return "", fmt.Errorf("%w: no JSON object found", ErrMalformedReply)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unterminated JSON object", ErrMalformedReply)
}

// decodeRoundOne parses a round-1 reply. A bare extraction response (the
// model skipping the wrapper) is accepted and treated as an immediate
// response.
func decodeRoundOne(raw, dayID string) (*wire.RoundOneReply, error) {
	blob, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var reply wire.RoundOneReply
	if err := json.Unmarshal([]byte(blob), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	if reply.ContextRequest == nil && reply.Response == nil {
		// Some models answer with the inner response object directly.
		var resp wire.ExtractionResponse
		if err := json.Unmarshal([]byte(blob), &resp); err == nil && (resp.Success || resp.Error != nil) {
			reply.Response = &resp
		} else {
			return nil, fmt.Errorf("%w: neither context request nor response", ErrMalformedReply)
		}
	}

	if reply.Response != nil && reply.Response.DayID == "" {
		reply.Response.DayID = dayID
	}
	return &reply, nil
}

// decodeResponse parses a round-2 extraction response.
func decodeResponse(raw string) (*wire.ExtractionResponse, error) {
	blob, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var resp wire.ExtractionResponse
	if err := json.Unmarshal([]byte(blob), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if !resp.Success && resp.Error == nil {
		return nil, fmt.Errorf("%w: failed response without error info", ErrMalformedReply)
	}
	return &resp, nil
}
