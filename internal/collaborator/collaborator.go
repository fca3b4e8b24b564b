// Package collaborator is the transport to the external AI service that
// proposes knowledge facts. The rest of the system treats it as an opaque
// request/response channel: a sanitized payload goes out, a typed reply
// comes back, and nothing here inspects or stores the content beyond
// decoding it.
package collaborator

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/lifebank/internal/wire"
)

// Common transport errors.
var (
	// ErrMalformedReply is returned when the collaborator's reply cannot be
	// decoded into a legal protocol message.
	ErrMalformedReply = errors.New("malformed collaborator reply")

	// ErrUnavailable is returned when the collaborator cannot be reached
	// after the configured retries.
	ErrUnavailable = errors.New("collaborator unavailable")
)

// Collaborator is the two-round exchange contract.
//
// ProposeContext ships the round-1 daily package. The reply carries either
// a context request or, when the collaborator needs nothing further, an
// immediate extraction response; both shapes are legal.
//
// Extract ships the round-2 sanitized context and returns the typed
// extraction results.
type Collaborator interface {
	ProposeContext(ctx context.Context, pkg *wire.DailyExtractionPackage) (*wire.RoundOneReply, error)
	Extract(ctx context.Context, dayID string, sc *wire.SanitizedContext) (*wire.ExtractionResponse, error)
}
