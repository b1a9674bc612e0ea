package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shineum/mailkit-lite/internal/config"
	"github.com/shineum/mailkit-lite/internal/email"
	"github.com/shineum/mailkit-lite/internal/mime"
	"github.com/shineum/mailkit-lite/internal/provider"
	"github.com/shineum/mailkit-lite/internal/provider/ses"
	"github.com/shineum/mailkit-lite/internal/provider/stdout"
	"github.com/shineum/mailkit-lite/internal/smtp"
)

type sendOptions struct {
	from     string
	to       string
	subject  string
	body     string
	bodyType string
	encoding string
	attach   string
}

func parseSendFlags(args []string) (sendOptions, error) {
	var opts sendOptions
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.from, "from", "", "sender address")
	fs.StringVar(&opts.to, "to", "", "recipient address")
	fs.StringVar(&opts.subject, "subject", "", "subject line")
	fs.StringVar(&opts.body, "body", "", "message body; read from stdin up to a lone \".\" line when empty")
	fs.StringVar(&opts.bodyType, "type", "text/html", "content type of the body part")
	fs.StringVar(&opts.encoding, "encoding", "7bit", "transfer encoding of the body part")
	fs.StringVar(&opts.attach, "attach", "", "comma-separated list of files to attach")
	if err := fs.Parse(args); err != nil {
		return opts, fmt.Errorf("%w: %w", errUsage, err)
	}
	if opts.to == "" {
		return opts, fmt.Errorf("%w: send requires -to", errUsage)
	}
	return opts, nil
}

// send composes a multipart/mixed message from flags and stdin and delivers
// it through the configured provider.
func send(ctx context.Context, cfg *config.Config, args []string, stdin io.Reader, stdoutW io.Writer) error {
	opts, err := parseSendFlags(args)
	if err != nil {
		return err
	}
	if opts.body == "" {
		if opts.body, err = readBody(stdin); err != nil {
			return err
		}
	}

	msg, err := buildMessage(opts)
	if err != nil {
		return err
	}

	prov, err := selectProvider(ctx, cfg, stdoutW)
	if err != nil {
		return err
	}
	if q, ok := prov.(interface{ Quit(context.Context) error }); ok {
		defer q.Quit(ctx)
	}

	slog.Info("sending message",
		"provider", prov.Name(),
		"to", msg.To,
		"parts", len(msg.Parts),
	)
	return prov.Send(ctx, msg)
}

// buildMessage turns the body into an inline part and every attachment path
// into a base64 file part typed from its extension.
func buildMessage(opts sendOptions) (*email.Message, error) {
	bodyType, err := mime.ParseContentType(opts.bodyType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	enc, err := mime.ParseTransferEncoding(opts.encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	parts := []mime.Part{{
		Content:     opts.body,
		ContentType: bodyType,
		Encoding:    enc,
	}}
	for _, path := range strings.Split(opts.attach, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		parts = append(parts, mime.Part{
			Filename:    path,
			ContentType: mime.ContentTypeFromFilename(path),
			Encoding:    mime.Base64,
		})
	}

	return &email.Message{
		From:             opts.from,
		To:               opts.to,
		Subject:          opts.subject,
		ContentType:      mime.MultipartMixed,
		TransferEncoding: mime.SevenBit,
		Parts:            parts,
	}, nil
}

// readBody reads lines until a line holding a single "." or EOF. The
// terminator line is not part of the body.
func readBody(r io.Reader) (string, error) {
	var b strings.Builder
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimRight(line, "\r") == "." {
			break
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return b.String(), nil
}

// selectProvider chooses the email delivery backend based on configuration.
func selectProvider(ctx context.Context, cfg *config.Config, out io.Writer) (provider.Provider, error) {
	switch cfg.Provider {
	case config.ProviderSES:
		slog.Info("using AWS SES provider",
			"region", cfg.SES.Region,
			"sender", cfg.SES.Sender,
		)
		p, err := ses.New(ctx, ses.SESProviderConfig{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
			Sender:          cfg.SES.Sender,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SES provider: %w", err)
		}
		return p, nil

	case config.ProviderStdout:
		slog.Info("using stdout provider")
		return stdout.NewWithWriter(out), nil

	case config.ProviderSMTP:
		slog.Info("using smtp provider",
			"host", cfg.SMTP.Host,
			"auth_enabled", cfg.SMTPAuthEnabled(),
		)
		b := smtp.NewBuilder().
			Host(cfg.SMTP.Host).
			Address(cfg.SMTP.HELO)
		if cfg.SMTPAuthEnabled() {
			b = b.Email(cfg.SMTP.Username).Token(cfg.SMTP.Password)
		}
		return b.Build(), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
