// Package mailbox reads mbox-style spool files: records delimited by
// "From <address> <time>" envelope lines.
package mailbox

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message/textproto"

	"github.com/shineum/mailkit-lite/internal/mailerr"
)

const envelopePrefix = "From "

// Message is one record of a mailbox file. Body holds every byte after the
// envelope line up to the next envelope line.
type Message struct {
	From    string
	Time    string
	Subject string
	Body    string
}

// Load reads and parses the mailbox file <dir>/<user>.
func Load(dir, user string) ([]Message, error) {
	path := filepath.Join(dir, user)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open mailbox %s: %w", mailerr.ErrIO, path, err)
	}
	return Parse(string(data)), nil
}

// Parse splits raw mailbox text into messages. Text before the first
// envelope line is ignored, as are records with an empty body.
func Parse(raw string) []Message {
	starts := envelopeOffsets(raw)

	var msgs []Message
	for i, start := range starts {
		end := len(raw)
		if i+1 < len(starts) {
			end = starts[i+1]
		}

		record := raw[start:end]
		envelope, body, ok := strings.Cut(record, "\n")
		if !ok || body == "" {
			continue
		}

		from, when := splitEnvelope(envelope)
		msgs = append(msgs, Message{
			From:    from,
			Time:    when,
			Subject: subject(body),
			Body:    body,
		})
	}
	return msgs
}

// envelopeOffsets returns the offset of every line that starts with "From ".
func envelopeOffsets(raw string) []int {
	var offsets []int
	for pos := 0; pos < len(raw); {
		if strings.HasPrefix(raw[pos:], envelopePrefix) {
			offsets = append(offsets, pos)
		}
		nl := strings.IndexByte(raw[pos:], '\n')
		if nl < 0 {
			break
		}
		pos += nl + 1
	}
	return offsets
}

func splitEnvelope(line string) (from, when string) {
	line = strings.TrimRight(line[len(envelopePrefix):], "\r")
	from, when, _ = strings.Cut(line, " ")
	return from, strings.TrimSpace(when)
}

// subject returns the first Subject header of a record body verbatim up to
// its line break: no unfolding, no trimming beyond the single space after the
// colon. Bodies whose header block does not parse are scanned line by line
// instead.
func subject(body string) string {
	hdr, err := textproto.ReadHeader(bufio.NewReader(strings.NewReader(body)))
	if err == nil {
		raw, err := hdr.Raw("Subject")
		if err != nil || raw == nil {
			return ""
		}
		line, _, _ := strings.Cut(string(raw), "\r\n")
		_, value, _ := strings.Cut(line, ":")
		return strings.TrimPrefix(value, " ")
	}

	for _, line := range strings.Split(body, "\n") {
		if rest, ok := strings.CutPrefix(line, "Subject: "); ok {
			return strings.TrimRight(rest, "\r")
		}
	}
	return ""
}
