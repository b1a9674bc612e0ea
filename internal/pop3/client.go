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
	"sync"

	"github.com/shineum/mailkit-lite/internal/mailerr"
	"github.com/shineum/mailkit-lite/internal/metrics"
	"github.com/shineum/mailkit-lite/internal/retry"
)

const terminator = ".\r\n"

// Client talks to a POP3 server over one lazily established connection.
// It is safe for concurrent use; commands are serialized.
type Client struct {
	email    string
	password string
	host     string
	dialer   retry.Dialer
	dialCfg  retry.DialConfig

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// ClientBuilder configures a Client.
type ClientBuilder struct {
	c Client
}

// NewClientBuilder starts a Client configuration with the default dial policy.
func NewClientBuilder() *ClientBuilder {
	return &ClientBuilder{c: Client{dialCfg: retry.DefaultDialConfig()}}
}

// Email sets the mailbox name sent with USER.
func (b *ClientBuilder) Email(email string) *ClientBuilder {
	b.c.email = email
	return b
}

// Password sets the PASS secret. Without one no PASS is sent.
func (b *ClientBuilder) Password(password string) *ClientBuilder {
	b.c.password = password
	return b
}

// Host sets the server address as host:port.
func (b *ClientBuilder) Host(host string) *ClientBuilder {
	b.c.host = host
	return b
}

// Dialer replaces the network dialer.
func (b *ClientBuilder) Dialer(d retry.Dialer) *ClientBuilder {
	b.c.dialer = d
	return b
}

// Build returns the configured Client. No connection is made yet.
func (b *ClientBuilder) Build() *Client {
	c := &Client{
		email:    b.c.email,
		password: b.c.password,
		host:     b.c.host,
		dialer:   b.c.dialer,
		dialCfg:  b.c.dialCfg,
	}
	return c
}

// Connect dials the server and logs in.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connect(ctx)
}

func (c *Client) connect(ctx context.Context) error {
	c.drop()

	err := c.login(ctx)
	metrics.ClientConnectsTotal.WithLabelValues("pop3", metrics.Result(err)).Inc()
	if err != nil {
		c.drop()
		return err
	}
	slog.Info("pop3 client connected", "host", c.host, "user", c.email)
	return nil
}

func (c *Client) login(ctx context.Context) error {
	conn, err := retry.Dial(ctx, c.dialer, c.host, c.dialCfg)
	if err != nil {
		return err
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.applyDeadline(ctx)

	greeting, err := c.readLine()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(greeting, "+OK") {
		return fmt.Errorf("%w: unexpected greeting %q", mailerr.ErrProtocol, strings.TrimSpace(greeting))
	}

	if err := c.expectOK(User(c.email).Line()); err != nil {
		return err
	}
	if c.password != "" {
		if err := c.expectOK("PASS " + c.password + "\r\n"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) expectOK(req string) error {
	if err := c.writeLine(req); err != nil {
		return err
	}
	resp, err := c.readLine()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(resp, "+OK") {
		verb, _, _ := strings.Cut(req, " ")
		return fmt.Errorf("%w: %s rejected: %q", mailerr.ErrAuth, strings.TrimSpace(verb), strings.TrimSpace(resp))
	}
	return nil
}

// Cmd sends one command and returns the server's raw reply.
//
// A NOOP probe precedes every command; a dead connection is re-established
// transparently. LIST, INFO, TOP and RETR return every reply line including
// the "." terminator, exactly as sent: message text from TOP and RETR stays
// dot-stuffed, so a body line starting with "." arrives with a second ".".
// DELE, RSET, NOOP and USER succeed only when the reply
// starts with "+Ok" and fail with mailerr.ErrCommandRejected otherwise. QUIT
// drops the connection and returns an empty reply.
func (c *Client) Cmd(ctx context.Context, cmd Command) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureAlive(ctx); err != nil {
		return "", err
	}
	c.applyDeadline(ctx)

	if err := c.writeLine(cmd.Line()); err != nil {
		return "", err
	}

	switch cmd.Verb {
	case VerbQuit:
		c.drop()
		return "", nil
	case VerbList, VerbInfo, VerbTop, VerbRetr:
		return c.readMultiline()
	default:
		resp, err := c.readLine()
		if err != nil {
			return "", err
		}
		if !strings.HasPrefix(resp, "+Ok") {
			return resp, fmt.Errorf("%w: %s: %q", mailerr.ErrCommandRejected, cmd.Verb, strings.TrimSpace(resp))
		}
		return resp, nil
	}
}

func (c *Client) ensureAlive(ctx context.Context) error {
	if c.conn == nil {
		return c.connect(ctx)
	}

	c.applyDeadline(ctx)
	if err := c.writeLine(Noop().Line()); err == nil {
		if resp, err := c.readLine(); err == nil && resp != "" {
			return nil
		}
	}

	slog.Debug("pop3 connection lost, reconnecting", "host", c.host)
	return c.connect(ctx)
}

// readMultiline accumulates lines until the terminator line. End of input
// ends the reply early with what was read so far.
func (c *Client) readMultiline() (string, error) {
	var b strings.Builder
	for first := true; ; first = false {
		line, err := c.reader.ReadString('\n')
		b.WriteString(line)
		if err != nil {
			c.drop()
			if errors.Is(err, io.EOF) {
				return b.String(), nil
			}
			return b.String(), fmt.Errorf("%w: read reply: %w", mailerr.ErrIO, err)
		}
		if first && strings.HasPrefix(line, "-ERR") {
			return line, fmt.Errorf("%w: %q", mailerr.ErrCommandRejected, strings.TrimSpace(line))
		}
		if line == terminator {
			slog.Debug("S->C", "bytes", b.Len())
			return b.String(), nil
		}
	}
}

func (c *Client) readLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.drop()
		return line, fmt.Errorf("%w: read reply: %w", mailerr.ErrIO, err)
	}
	slog.Debug("S->C", "line", strings.TrimRight(line, "\r\n"))
	return line, nil
}

func (c *Client) writeLine(line string) error {
	if c.conn == nil {
		return fmt.Errorf("%w: not connected", mailerr.ErrIO)
	}
	verb, _, _ := strings.Cut(strings.TrimRight(line, "\r\n"), " ")
	slog.Debug("C->S", "verb", verb)
	if _, err := io.WriteString(c.conn, line); err != nil {
		c.drop()
		return fmt.Errorf("%w: write request: %w", mailerr.ErrIO, err)
	}
	return nil
}

func (c *Client) applyDeadline(ctx context.Context) {
	if c.conn == nil {
		return
	}
	deadline, _ := ctx.Deadline()
	_ = c.conn.SetDeadline(deadline)
}

// drop closes and forgets the current connection.
func (c *Client) drop() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = nil
	c.reader = nil
}

// Close releases the connection without sending QUIT.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drop()
	return nil
}

// Connected reports whether the client currently holds a connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}
