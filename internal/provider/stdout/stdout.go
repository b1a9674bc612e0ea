// Package stdout implements a Provider that prints encoded messages to standard output.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shineum/mailkit-lite/internal/email"
	"github.com/shineum/mailkit-lite/internal/mailerr"
)

const separator = "========================================\n"

// Provider prints the MIME byte stream a message encodes to.
type Provider struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Provider that writes to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Provider that writes to the given writer.
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{writer: w}
}

// Send encodes msg and prints it between separator lines, preceded by a
// one-line envelope summary.
func (p *Provider) Send(_ context.Context, msg *email.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("%w: %w", mailerr.ErrEncode, err)
	}

	var b strings.Builder
	b.WriteString(separator)
	fmt.Fprintf(&b, "Envelope: %s -> %s (%s, %s)\n", msg.From, msg.To, msg.ContentType, formatSize(len(data)))
	b.Write(data)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		b.WriteString("\n")
	}
	b.WriteString(separator)

	if _, err := io.WriteString(p.writer, b.String()); err != nil {
		return fmt.Errorf("%w: %w", mailerr.ErrIO, err)
	}
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
