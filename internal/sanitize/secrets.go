package sanitize

import (
	"fmt"
	"strings"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// Scrubber removes embedded credentials from outbound free text. Journal
// entries occasionally contain pasted API keys or tokens; those must not
// reach the collaborator any more than names may.
type Scrubber struct {
	detector *detect.Detector
}

// NewScrubber builds a scrubber on the default Gitleaks rule set.
func NewScrubber() (*Scrubber, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("creating secret detector: %w", err)
	}
	return &Scrubber{detector: detector}, nil
}

// Scrub replaces every detected secret with a "[REDACTED:<rule>]" marker.
// The marker keeps the rule ID so the text stays readable for the model
// without exposing the value.
func (s *Scrubber) Scrub(text string) string {
	if s == nil || text == "" {
		return text
	}

	findings := s.detector.DetectString(text)
	for _, f := range findings {
		if f.Secret == "" {
			continue
		}
		marker := "[REDACTED:" + f.RuleID + "]"
		text = strings.ReplaceAll(text, f.Secret, marker)
	}
	return text
}
