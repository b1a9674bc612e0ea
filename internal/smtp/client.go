package smtp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/textproto"
	"sync"

	"github.com/shineum/mailkit-lite/internal/email"
	"github.com/shineum/mailkit-lite/internal/mailerr"
	"github.com/shineum/mailkit-lite/internal/metrics"
	"github.com/shineum/mailkit-lite/internal/retry"
)

// defaultAddress is the HELO identity used when none is configured.
const defaultAddress = "localhost"

// Client submits messages to one SMTP server. The connection is opened on
// first use and kept for later sends. Calls are serialized.
type Client struct {
	creds   *Credentials
	address string
	host    string
	dialer  retry.Dialer
	dialCfg retry.DialConfig

	mu     sync.Mutex
	conn   net.Conn
	text   *textproto.Conn
	closed bool
}

// Builder configures a Client.
type Builder struct {
	email   string
	token   string
	address string
	host    string
	dialer  retry.Dialer
}

// NewBuilder starts a Client configuration.
func NewBuilder() *Builder {
	return &Builder{}
}

// Email sets the account used for AUTH LOGIN.
func (b *Builder) Email(email string) *Builder {
	b.email = email
	return b
}

// Token sets the AUTH LOGIN secret. Without one the client does not authenticate.
func (b *Builder) Token(token string) *Builder {
	b.token = token
	return b
}

// Address sets the identity sent with HELO. Defaults to "localhost".
func (b *Builder) Address(address string) *Builder {
	b.address = address
	return b
}

// Host sets the server address as host:port.
func (b *Builder) Host(host string) *Builder {
	b.host = host
	return b
}

// Dialer replaces the network dialer.
func (b *Builder) Dialer(d retry.Dialer) *Builder {
	b.dialer = d
	return b
}

// Build returns the configured Client. No connection is made yet.
func (b *Builder) Build() *Client {
	address := b.address
	if address == "" {
		address = defaultAddress
	}
	return &Client{
		creds:   NewCredentials(b.email, b.token),
		address: address,
		host:    b.host,
		dialer:  b.dialer,
		dialCfg: retry.DefaultDialConfig(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "smtp"
}

// Connect dials the server, greets it and authenticates when a token is set.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return mailerr.ErrClientClosed
	}
	return c.connect(ctx)
}

func (c *Client) connect(ctx context.Context) error {
	c.drop()

	err := c.handshake(ctx)
	metrics.ClientConnectsTotal.WithLabelValues("smtp", metrics.Result(err)).Inc()
	if err != nil {
		c.drop()
		return err
	}
	slog.Info("smtp client connected", "host", c.host, "helo", c.address, "auth", c.creds.Enabled())
	return nil
}

func (c *Client) handshake(ctx context.Context) error {
	conn, err := retry.Dial(ctx, c.dialer, c.host, c.dialCfg)
	if err != nil {
		return err
	}
	c.conn = conn
	c.text = textproto.NewConn(conn)
	c.applyDeadline(ctx)

	code, msg, err := c.reply()
	if err != nil {
		return err
	}
	if code != 220 {
		return fmt.Errorf("%w: greeting %d %s", mailerr.ErrProtocol, code, msg)
	}

	code, msg, err = c.cmd("HELO " + c.address)
	if err != nil {
		return err
	}
	if code != 250 {
		return fmt.Errorf("%w: HELO rejected: %d %s", mailerr.ErrProtocol, code, msg)
	}

	if c.creds.Enabled() {
		return c.authLogin()
	}
	return nil
}

func (c *Client) authLogin() error {
	user, pass := c.creds.LoginResponses()

	steps := []struct {
		line   string
		logged string
		want   int
	}{
		{line: "AUTH LOGIN", logged: "AUTH LOGIN", want: 334},
		{line: user, logged: "<username>", want: 334},
		{line: pass, logged: "<token>", want: 235},
	}
	for i, step := range steps {
		code, msg, err := c.exchange(step.line, step.logged)
		if err != nil {
			return err
		}
		if code != step.want {
			return fmt.Errorf("%w: AUTH LOGIN step %d: %d %s", mailerr.ErrAuth, i+1, code, msg)
		}
	}
	return nil
}

// Send delivers msg. A NOOP probe checks the connection first; a dead or
// unhealthy connection is replaced silently. MAIL FROM and RCPT TO replies
// are logged, not checked.
//
// When the message cannot be encoded the connection is dropped and the
// error matches both mailerr.ErrEncode and the codec's own error.
func (c *Client) Send(ctx context.Context, msg *email.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return mailerr.ErrClientClosed
	}

	result, err := c.send(ctx, msg)
	if err != nil {
		result = metrics.ResultFailure
	}
	metrics.SMTPMessagesTotal.WithLabelValues(result).Inc()
	return err
}

func (c *Client) send(ctx context.Context, msg *email.Message) (string, error) {
	if err := c.ensureAlive(ctx); err != nil {
		return "", err
	}
	c.applyDeadline(ctx)

	for _, line := range []string{"MAIL FROM:<" + msg.From + ">", "RCPT TO:<" + msg.To + ">", "DATA"} {
		code, text, err := c.cmd(line)
		if err != nil {
			return "", err
		}
		slog.Debug("smtp envelope reply", "command", line, "code", code, "msg", text)
	}

	data, err := msg.Encode()
	if err != nil {
		c.drop()
		return "", fmt.Errorf("%w: %w", mailerr.ErrEncode, err)
	}

	w := c.text.DotWriter()
	if _, err := w.Write(data); err != nil {
		c.drop()
		return "", fmt.Errorf("%w: write message: %w", mailerr.ErrIO, err)
	}
	if err := w.Close(); err != nil {
		c.drop()
		return "", fmt.Errorf("%w: write message: %w", mailerr.ErrIO, err)
	}

	code, text, err := c.reply()
	if err != nil {
		return "", err
	}
	if code/100 != 2 {
		slog.Warn("smtp server did not accept message",
			"host", c.host,
			"from", msg.From,
			"to", msg.To,
			"code", code,
			"msg", text,
		)
		return "rejected", nil
	}

	slog.Info("message sent via smtp",
		"host", c.host,
		"from", msg.From,
		"to", msg.To,
		"size", len(data),
	)
	return metrics.ResultSuccess, nil
}

func (c *Client) ensureAlive(ctx context.Context) error {
	if c.text == nil {
		return c.connect(ctx)
	}

	c.applyDeadline(ctx)
	code, _, err := c.cmd("NOOP")
	if err == nil && code == 250 {
		return nil
	}

	slog.Debug("smtp connection unhealthy, reconnecting", "host", c.host, "code", code, "error", err)
	return c.connect(ctx)
}

// Quit writes QUIT and closes the connection without waiting for the
// reply. The client cannot be used afterwards.
func (c *Client) Quit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return mailerr.ErrClientClosed
	}
	c.closed = true

	if c.text != nil {
		c.applyDeadline(ctx)
		slog.Debug("C->S", "line", "QUIT")
		if err := c.text.PrintfLine("QUIT"); err != nil {
			slog.Debug("smtp QUIT failed", "host", c.host, "error", err)
		}
	}
	c.drop()
	return nil
}

// cmd writes one command line and reads the reply.
func (c *Client) cmd(line string) (int, string, error) {
	return c.exchange(line, line)
}

// exchange is cmd with a separate rendering of the line for the debug log.
func (c *Client) exchange(line, logged string) (int, string, error) {
	slog.Debug("C->S", "line", logged)
	if err := c.text.PrintfLine("%s", line); err != nil {
		c.drop()
		return 0, "", fmt.Errorf("%w: write command: %w", mailerr.ErrIO, err)
	}
	return c.reply()
}

// reply reads one reply, consuming every line of a multi-line reply.
func (c *Client) reply() (int, string, error) {
	code, msg, err := c.text.ReadResponse(0)
	if err != nil {
		c.drop()
		var perr textproto.ProtocolError
		if errors.As(err, &perr) {
			return 0, "", fmt.Errorf("%w: %w", mailerr.ErrProtocol, err)
		}
		return 0, "", fmt.Errorf("%w: read reply: %w", mailerr.ErrIO, err)
	}
	slog.Debug("S->C", "code", code, "msg", msg)
	return code, msg, nil
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
	if c.text != nil {
		c.text.Close()
	} else if c.conn != nil {
		c.conn.Close()
	}
	c.conn = nil
	c.text = nil
}
