// Package event validates the inbound SES notification envelope and
// normalizes it into the record the forwarding pipeline consumes.
package event

import (
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

// Envelope values emitted by the SES receipt rule integration.
const (
	expectedSource  = "aws:ses"
	expectedVersion = "1.0"
)

// Record identifies one stored inbound message.
type Record struct {
	// MessageID is the key suffix the message was stored under.
	MessageID string

	// Recipients are the addresses the receiving service delivered the
	// message to, in delivery order.
	Recipients []string
}

// FromSESEvent checks the envelope shape and extracts the message record.
// The event must carry exactly one record of the recognized source and
// version, with a message id and a non-empty recipient list.
func FromSESEvent(ev events.SimpleEmailEvent) (Record, error) {
	if n := len(ev.Records); n != 1 {
		return Record{}, fmt.Errorf("expected exactly one record, got %d", n)
	}

	rec := ev.Records[0]
	if rec.EventSource != expectedSource {
		return Record{}, fmt.Errorf("unexpected event source %q", rec.EventSource)
	}
	if rec.EventVersion != expectedVersion {
		return Record{}, fmt.Errorf("unsupported event version %q", rec.EventVersion)
	}
	if rec.SES.Mail.MessageID == "" {
		return Record{}, fmt.Errorf("record has no message id")
	}
	if len(rec.SES.Receipt.Recipients) == 0 {
		return Record{}, fmt.Errorf("record has no recipients")
	}

	return Record{
		MessageID:  rec.SES.Mail.MessageID,
		Recipients: rec.SES.Receipt.Recipients,
	}, nil
}
