// Package stdout implements a Transmitter that prints messages to standard
// output instead of sending them. It backs the dry-run mode.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Transmitter prints would-be deliveries in a human-readable format.
type Transmitter struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Transmitter that writes to os.Stdout.
func New() *Transmitter {
	return &Transmitter{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Transmitter that writes to the given
// writer. This is useful for testing.
func NewWithWriter(w io.Writer) *Transmitter {
	return &Transmitter{writer: w}
}

// Send prints the delivery to the configured writer.
func (t *Transmitter) Send(_ context.Context, destinations []string, source, raw string) error {
	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString(fmt.Sprintf("Destinations: %s\n", strings.Join(destinations, ", ")))
	b.WriteString(fmt.Sprintf("Source: %s\n", source))
	b.WriteString("Message:\n")
	b.WriteString(raw)
	if !strings.HasSuffix(raw, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("========================================\n")

	if _, err := io.WriteString(t.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Name returns the transmitter name.
func (t *Transmitter) Name() string {
	return "stdout"
}
