// Package store reads stored inbound messages from the blob store the
// receiving service deposits them in.
package store

import "context"

// Store is the interface message sources must implement.
type Store interface {
	// FetchBody returns the full raw text of the stored message.
	FetchBody(ctx context.Context, messageID string) (string, error)
}
