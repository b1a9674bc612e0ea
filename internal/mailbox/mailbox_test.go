package mailbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineum/mailkit-lite/internal/mailerr"
)

const twoMessages = "From alice@example.com Mon Jan  1 10:00:00 2024\n" +
	"Subject: first\n" +
	"\n" +
	"hello\n" +
	"From bob@example.com Tue Jan  2 11:30:00 2024\n" +
	"Subject: second\n" +
	"\n" +
	"world\n"

func TestParse_TwoMessages(t *testing.T) {
	msgs := Parse(twoMessages)
	require.Len(t, msgs, 2)

	assert.Equal(t, Message{
		From:    "alice@example.com",
		Time:    "Mon Jan  1 10:00:00 2024",
		Subject: "first",
		Body:    "Subject: first\n\nhello\n",
	}, msgs[0])
	assert.Equal(t, Message{
		From:    "bob@example.com",
		Time:    "Tue Jan  2 11:30:00 2024",
		Subject: "second",
		Body:    "Subject: second\n\nworld\n",
	}, msgs[1])
}

func TestParse_IgnoresPreamble(t *testing.T) {
	msgs := Parse("junk before\nmore junk\n" + twoMessages)
	require.Len(t, msgs, 2)
	assert.Equal(t, "alice@example.com", msgs[0].From)
}

func TestParse_EnvelopeMustStartLine(t *testing.T) {
	msgs := Parse("From a@x now\nSubject: s\n\nquoted From b@y later\n")
	require.Len(t, msgs, 1)
	assert.Equal(t, "Subject: s\n\nquoted From b@y later\n", msgs[0].Body)
}

func TestParse_SkipsEmptyBodies(t *testing.T) {
	msgs := Parse("From a@x now\nFrom b@y later\nSubject: kept\n\nbody\nFrom c@z end")
	require.Len(t, msgs, 1)
	assert.Equal(t, "b@y", msgs[0].From)
	assert.Equal(t, "kept", msgs[0].Subject)
}

func TestParse_CRLFEnvelope(t *testing.T) {
	msgs := Parse("From a@x Wed  \r\nSubject: crlf\r\n\r\nbody\r\n")
	require.Len(t, msgs, 1)
	assert.Equal(t, "a@x", msgs[0].From)
	assert.Equal(t, "Wed", msgs[0].Time)
	assert.Equal(t, "crlf", msgs[0].Subject)
}

func TestParse_Subject(t *testing.T) {
	for _, c := range []struct {
		name string
		body string
		want string
	}{
		{name: "header block", body: "To: b@y\nSubject: hi there\n\nbody\n", want: "hi there"},
		{name: "no subject header", body: "To: b@y\n\nSubject: not a header\n", want: ""},
		{name: "malformed block falls back to scan", body: "plain text first\nSubject: found\n", want: "found"},
		{name: "padding kept", body: "Subject:   padded  \n\nbody\n", want: "  padded  "},
		{name: "folded keeps first line", body: "Subject: folded\n continued\nTo: b@y\n\nbody\n", want: "folded"},
		{name: "first of two", body: "Subject: one\nSubject: two\n\nbody\n", want: "one"},
		{name: "no headers at all", body: "just text\n", want: ""},
	} {
		t.Run(c.name, func(t *testing.T) {
			msgs := Parse("From a@x now\n" + c.body)
			require.Len(t, msgs, 1)
			assert.Equal(t, c.want, msgs[0].Subject)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("no envelope here\n"))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alice"), []byte(twoMessages), 0o600))

	msgs, err := Load(dir, "alice")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	_, err = Load(dir, "nobody")
	assert.ErrorIs(t, err, mailerr.ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
