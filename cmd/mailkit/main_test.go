package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shineum/mailkit-lite/internal/mime"
	"github.com/shineum/mailkit-lite/internal/pop3"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		"PROVIDER",
		"POP3_LISTEN", "POP3_MAIL_DIR",
		"SMTP_HOST", "SMTP_HELO", "SMTP_USERNAME", "SMTP_PASSWORD",
		"FETCH_HOST", "FETCH_USERNAME", "FETCH_PASSWORD",
		"SES_REGION", "SES_ACCESS_KEY_ID", "SES_SECRET_ACCESS_KEY", "SES_SENDER",
		"METRICS_LISTEN", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(env, "")
	}
}

// noEnvFile returns a .env path that does not exist.
func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), ".env")
}

// startPOP3 serves a mailbox for alice on a loopback port until the test ends.
func startPOP3(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	box := "From carol@example.com Mon Jan  1 10:00:00 2024\nSubject: first\n\nhello\n" +
		"From dave@example.com Tue Jan  2 11:30:00 2024\nSubject: second\n\nworld\n"
	if err := os.WriteFile(filepath.Join(dir, "alice"), []byte(box), 0o600); err != nil {
		t.Fatalf("failed to write mailbox: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		pop3.NewServer(pop3.ServerConfig{MailDir: dir}).Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ln.Addr().String()
}

func TestRun_Usage(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: []string{"-env", noEnvFile(t)}},
		{name: "unknown command", args: []string{"-env", noEnvFile(t), "bounce"}},
		{name: "unknown flag", args: []string{"-bogus"}},
		{name: "send without recipient", args: []string{"-env", noEnvFile(t), "send", "-body", "x"}},
		{name: "recv bad id", args: []string{"-env", noEnvFile(t), "recv", "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name == "recv bad id" {
				t.Setenv("FETCH_USERNAME", "alice")
			}
			err := run(tt.args, strings.NewReader(""), &bytes.Buffer{})
			if !errors.Is(err, errUsage) {
				t.Errorf("run(%v): got %v, want errUsage", tt.args, err)
			}
		})
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROVIDER", "graph")

	err := run([]string{"-env", noEnvFile(t), "send", "-to", "x@example.com", "-body", "hi"}, strings.NewReader(""), &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "unknown provider") {
		t.Errorf("got %v, want unknown provider error", err)
	}
}

func TestRun_SendToStdout(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROVIDER", "stdout")

	attachment := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(attachment, []byte("some notes"), 0o644); err != nil {
		t.Fatalf("failed to write attachment: %v", err)
	}

	var out bytes.Buffer
	err := run([]string{
		"-env", noEnvFile(t),
		"send",
		"-from", "alice@example.com",
		"-to", "bob@example.com",
		"-subject", "Hello",
		"-attach", attachment,
	}, strings.NewReader("<p>hi</p>\n.\nignored\n"), &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := out.String()
	for _, want := range []string{
		"Envelope: alice@example.com -> bob@example.com (multipart/mixed, ",
		"Subject: Hello\r\n",
		"Content-Type: text/html",
		"<p>hi</p>",
		`name="notes.txt"`,
		"c29tZSBub3Rlcw==",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(output, "ignored") {
		t.Error("body should stop at the lone dot line")
	}
}

func TestRun_RecvIDs(t *testing.T) {
	clearEnv(t)
	t.Setenv("FETCH_HOST", startPOP3(t))
	t.Setenv("FETCH_USERNAME", "alice")

	var out bytes.Buffer
	if err := run([]string{"-env", noEnvFile(t), "recv", "0", "1"}, strings.NewReader(""), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := out.String()
	for _, want := range []string{"carol@example.com", "dave@example.com", "hello", "world"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Index(output, "hello") > strings.Index(output, "world") {
		t.Error("messages should be printed in the requested order")
	}
}

func TestRun_RecvPrompt(t *testing.T) {
	clearEnv(t)
	t.Setenv("FETCH_HOST", startPOP3(t))
	t.Setenv("FETCH_USERNAME", "alice")

	var out bytes.Buffer
	if err := run([]string{"-env", noEnvFile(t), "recv"}, strings.NewReader("1\nabc\n9\nquit\n"), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := out.String()
	if !strings.Contains(output, "world") {
		t.Errorf("output missing second message:\n%s", output)
	}
	if strings.Contains(output, "hello") {
		t.Errorf("first message was not requested:\n%s", output)
	}
	if !strings.Contains(output, `invalid id "abc"`) {
		t.Errorf("output missing invalid id notice:\n%s", output)
	}
	if !strings.Contains(output, "message 9") {
		t.Errorf("output missing out-of-range error:\n%s", output)
	}
}

func TestRun_RecvRequiresUser(t *testing.T) {
	clearEnv(t)

	err := run([]string{"-env", noEnvFile(t), "recv"}, strings.NewReader(""), &bytes.Buffer{})
	if !errors.Is(err, errUsage) {
		t.Errorf("got %v, want errUsage", err)
	}
}

func TestBuildMessage(t *testing.T) {
	t.Parallel()

	msg, err := buildMessage(sendOptions{
		from:     "a@example.com",
		to:       "b@example.com",
		subject:  "s",
		body:     "body",
		bodyType: "text/plain",
		encoding: "quoted-printable",
		attach:   "photo.png, ,report.pdf",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.ContentType != mime.MultipartMixed {
		t.Errorf("ContentType: got %v, want multipart/mixed", msg.ContentType)
	}
	if len(msg.Parts) != 3 {
		t.Fatalf("parts: got %d, want 3", len(msg.Parts))
	}
	if p := msg.Parts[0]; p.Content != "body" || p.ContentType != mime.TextPlain || p.Encoding != mime.QuotedPrintable {
		t.Errorf("body part: got %+v", p)
	}
	if p := msg.Parts[1]; p.Filename != "photo.png" || p.ContentType != mime.ImagePNG || p.Encoding != mime.Base64 {
		t.Errorf("first attachment: got %+v", p)
	}
	if p := msg.Parts[2]; p.Filename != "report.pdf" || p.ContentType != mime.ApplicationPDF {
		t.Errorf("second attachment: got %+v", p)
	}
}

func TestBuildMessage_InvalidOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts sendOptions
	}{
		{name: "content type", opts: sendOptions{bodyType: "text/markdown", encoding: "7bit"}},
		{name: "encoding", opts: sendOptions{bodyType: "text/html", encoding: "8bit"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := buildMessage(tt.opts); !errors.Is(err, errUsage) {
				t.Errorf("got %v, want errUsage", err)
			}
		})
	}
}

func TestReadBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "dot terminator", input: "one\ntwo\n.\nthree\n", want: "one\ntwo\n"},
		{name: "crlf dot terminator", input: "one\r\n.\r\n", want: "one\n"},
		{name: "eof", input: "only line", want: "only line\n"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := readBody(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("readBody: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.level); got != tt.want {
			t.Errorf("parseLevel(%q): got %v, want %v", tt.level, got, tt.want)
		}
	}
}
