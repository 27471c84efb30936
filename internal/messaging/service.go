// Package messaging wraps the Twilio API for the WhatsApp reply channel.
package messaging

import (
	"context"
	"regexp"
)

// phoneNumberRegex matches everything that is not a digit, for canonicalizing
// phone numbers.
var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// Service defines a pluggable message delivery abstraction used by the
// webhook transport to reply out-of-band.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a
	// recipient identifier. Each service implements its own rules.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error
}
