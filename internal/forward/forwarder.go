// Package forward runs the per-message forwarding pipeline: validate the
// inbound event, resolve destination recipients, fetch the stored body,
// rewrite the headers, and hand the result to the transmitter.
package forward

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/mailwheel/ses-forwarder/internal/event"
	"github.com/mailwheel/ses-forwarder/internal/rewrite"
	"github.com/mailwheel/ses-forwarder/internal/rules"
	"github.com/mailwheel/ses-forwarder/internal/store"
	"github.com/mailwheel/ses-forwarder/internal/transmit"
)

// Stage failure kinds. Callers branch with errors.Is; the wrapped cause
// stays in the logs rather than the returned error chain's message.
var (
	ErrInvalidEvent = errors.New("invalid inbound event")
	ErrFetch        = errors.New("message fetch failed")
	ErrSend         = errors.New("message send failed")
	ErrInternal     = errors.New("internal pipeline error")
)

// Outcome is the terminal state of one pipeline run.
type Outcome int

const (
	// OutcomeFailed is the zero value, reported alongside a non-nil error.
	OutcomeFailed Outcome = iota

	// OutcomeSent means the rewritten message was handed to the transmitter.
	OutcomeSent

	// OutcomeSkipped means no forwarding rule matched any recipient; the
	// run finished successfully without sending.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeSkipped:
		return "skipped"
	}
	return "failed"
}

// Options carries the per-invocation forwarding settings.
type Options struct {
	SenderAddress       string
	SubjectPrefix       string
	ForwardTo           string
	AllowPlusAddressing bool
}

// Forwarder runs the forwarding pipeline. One Forwarder may process
// messages concurrently: each run keeps its state on the stack, so safety
// reduces to that of the injected store and transmitter.
type Forwarder struct {
	opts        Options
	table       rules.Table
	store       store.Store
	transmitter transmit.Transmitter
	logger      *slog.Logger
}

// New creates a Forwarder. A nil logger falls back to slog.Default().
func New(opts Options, table rules.Table, st store.Store, tx transmit.Transmitter, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		opts:        opts,
		table:       table,
		store:       st,
		transmitter: tx,
		logger:      logger,
	}
}

// Forward processes one inbound event end to end. Stages run strictly in
// order and the first failure short-circuits the rest; an event whose
// recipients match no rule terminates early with OutcomeSkipped and no
// error. Each failure is logged once with its stage before being returned.
func (f *Forwarder) Forward(ctx context.Context, ev events.SimpleEmailEvent) (Outcome, error) {
	rec, err := event.FromSESEvent(ev)
	if err != nil {
		f.logger.Error("inbound event rejected", "stage", "validate", "error", err)
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	log := f.logger.With("message_id", rec.MessageID)
	log.Info("processing inbound message", "stage", "validate", "recipients", rec.Recipients)

	res := rules.Resolve(rec.Recipients, f.table, f.opts.AllowPlusAddressing)
	if res.Empty() {
		log.Info("no forwarding rule matched, skipping", "stage", "resolve")
		return OutcomeSkipped, nil
	}
	log.Info("recipients resolved",
		"stage", "resolve",
		"destinations", res.Destinations,
		"chosen_original", res.ChosenOriginal,
	)

	raw, err := f.store.FetchBody(ctx, rec.MessageID)
	if err != nil {
		log.Error("failed to fetch stored message", "stage", "fetch", "error", err)
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if raw == "" {
		// Should not happen: the store either errors or returns the text.
		log.Error("stored message is empty", "stage", "rewrite")
		return OutcomeFailed, fmt.Errorf("%w: stored message %s is empty", ErrInternal, rec.MessageID)
	}

	rewritten := rewrite.Rewrite(raw, rewrite.Options{
		SenderAddress:  f.opts.SenderAddress,
		SubjectPrefix:  f.opts.SubjectPrefix,
		ForwardTo:      f.opts.ForwardTo,
		ChosenOriginal: res.ChosenOriginal,
	})
	log.Info("headers rewritten", "stage", "rewrite", "size", len(rewritten))

	source := f.opts.SenderAddress
	if source == "" {
		source = res.ChosenOriginal
	}

	if err := f.transmitter.Send(ctx, res.Destinations, source, rewritten); err != nil {
		log.Error("failed to send message",
			"stage", "send",
			"transmitter", f.transmitter.Name(),
			"error", err,
		)
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrSend, err)
	}

	log.Info("message forwarded",
		"stage", "send",
		"transmitter", f.transmitter.Name(),
		"destinations", res.Destinations,
		"source", source,
	)
	return OutcomeSent, nil
}
