// Package transmit defines the interface for outbound message delivery
// backends.
package transmit

import "context"

// Transmitter is the interface delivery backends must implement.
// Each transmitter hands a fully rewritten raw message to the outbound
// relay (e.g. AWS SES, stdout for dry runs).
type Transmitter interface {
	// Send delivers the raw message to the destination addresses. The
	// source address is used as the envelope sender for bounces.
	// It returns an error if the delivery fails.
	Send(ctx context.Context, destinations []string, source, raw string) error

	// Name returns the human-readable name of this transmitter.
	Name() string
}
