package pop3

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/google/uuid"

	"github.com/shineum/mailkit-lite/internal/mailbox"
	"github.com/shineum/mailkit-lite/internal/mailerr"
	"github.com/shineum/mailkit-lite/internal/metrics"
)

// DefaultMailDir is where mailbox files are looked up when none is configured.
const DefaultMailDir = "/var/mail"

const greeting = "+OK POP3 server ready\r\n"

// Session serves one client connection. It is owned by a single goroutine.
type Session struct {
	id      string
	conn    net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	mailDir string

	user  string
	mails []mailbox.Message
}

// NewSession creates a session for conn reading mailboxes from mailDir.
func NewSession(conn net.Conn, mailDir string) *Session {
	if mailDir == "" {
		mailDir = DefaultMailDir
	}
	return &Session{
		id:      uuid.NewString(),
		conn:    conn,
		reader:  bufio.NewReader(conn),
		writer:  bufio.NewWriter(conn),
		mailDir: mailDir,
	}
}

// ID returns the identifier used to correlate this session's log lines.
func (s *Session) ID() string { return s.id }

// Serve runs the command loop until QUIT, end of input or a session error.
// The connection is closed on return, and also when ctx is cancelled.
func (s *Session) Serve(ctx context.Context) error {
	defer s.conn.Close()
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()

	metrics.POP3SessionsTotal.Inc()
	metrics.POP3ActiveSessions.Inc()
	defer metrics.POP3ActiveSessions.Dec()

	log := slog.With("session", s.id, "remote", s.conn.RemoteAddr().String())
	log.Debug("pop3 session started")

	if err := s.write(greeting); err != nil {
		return err
	}

	for {
		line, err := s.reader.ReadString('\n')
		if line == "" {
			if err == nil || errors.Is(err, io.EOF) || ctx.Err() != nil {
				log.Debug("pop3 session ended", "user", s.user)
				return nil
			}
			return fmt.Errorf("%w: read command: %w", mailerr.ErrIO, err)
		}

		cmd := ParseCommand([]byte(line), len(line))
		log.Debug("C->S", "line", strings.TrimRight(line, "\r\n"), "command", cmd.Verb.String())
		metrics.POP3CommandsTotal.WithLabelValues(cmd.Verb.String()).Inc()

		done, herr := s.handle(cmd)
		if herr != nil {
			log.Warn("pop3 session failed", "command", cmd.Verb.String(), "error", herr)
			return herr
		}
		if done {
			log.Debug("pop3 session ended", "user", s.user)
			return nil
		}
		if err != nil {
			// partial final line without a terminator
			return nil
		}
	}
}

// handle executes one command and reports whether the session is over.
func (s *Session) handle(cmd Command) (bool, error) {
	if cmd.Verb == VerbQuit {
		return true, s.write("+OK bye\r\n")
	}
	if cmd.Verb == VerbUser {
		return false, s.handleUser(cmd.User)
	}

	if s.user == "" {
		if err := s.write("-ERR USER required\r\n"); err != nil {
			return true, err
		}
		return true, fmt.Errorf("%w: %s before USER", mailerr.ErrSession, cmd.Verb)
	}

	switch cmd.Verb {
	case VerbInfo:
		return false, s.write(s.info())
	case VerbList:
		return false, s.write(s.list())
	case VerbRetr, VerbTop:
		if cmd.Msg < 0 || cmd.Msg >= len(s.mails) {
			return false, s.write("-ERR no such message\r\n")
		}
		return false, s.write(stuff(s.mails[cmd.Msg].Body))
	default:
		// DELE, RSET and NOOP are acknowledged without touching the mailbox.
		return false, s.write("+OK\r\n")
	}
}

func (s *Session) handleUser(name string) error {
	mails, err := mailbox.Load(s.mailDir, name)
	if err != nil {
		if werr := s.write("-ERR cannot open mailbox\r\n"); werr != nil {
			return werr
		}
		return fmt.Errorf("%w: user %q: %w", mailerr.ErrSession, name, err)
	}

	s.user = name
	s.mails = mails
	slog.Info("pop3 user selected", "session", s.id, "user", name, "messages", len(mails))
	return s.write("+OK\r\n")
}

func (s *Session) info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "No   %-20s  %-30s  %-15s\r\n", "From", "Time", "Subject")
	for i, m := range s.mails {
		fmt.Fprintf(&b, "%-4d %-20s  %-30s  %-15s\r\n", i, m.From, m.Time, m.Subject)
	}
	b.WriteString(".\r\n")
	return b.String()
}

func (s *Session) list() string {
	var b strings.Builder
	for i, m := range s.mails {
		fmt.Fprintf(&b, "%d %d\r\n", i, len(m.Body))
	}
	b.WriteString(".\r\n")
	return b.String()
}

// stuff renders a message body as a multi-line response: lines starting with
// "." get another ".", a CRLF is added when the body does not end a line, and
// the lone "." terminator follows.
func stuff(body string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(body, "\n") {
		if strings.HasPrefix(line, ".") {
			b.WriteByte('.')
		}
		b.WriteString(line)
	}
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\r\n")
	}
	b.WriteString(".\r\n")
	return b.String()
}

func (s *Session) write(resp string) error {
	slog.Debug("S->C", "session", s.id, "bytes", len(resp))
	if _, err := s.writer.WriteString(resp); err != nil {
		return fmt.Errorf("%w: write response: %w", mailerr.ErrIO, err)
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("%w: write response: %w", mailerr.ErrIO, err)
	}
	return nil
}
