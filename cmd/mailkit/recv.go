package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shineum/mailkit-lite/internal/config"
	"github.com/shineum/mailkit-lite/internal/pop3"
)

// recv prints the mailbox summary of the fetch user, then each requested
// message. Without ids it prompts for message numbers on stdin until "quit"
// or EOF.
func recv(ctx context.Context, cfg *config.Config, args []string, stdin io.Reader, out io.Writer) error {
	if cfg.Fetch.Username == "" {
		return fmt.Errorf("%w: recv requires fetch.username", errUsage)
	}

	ids := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: invalid message id %q", errUsage, arg)
		}
		ids = append(ids, n)
	}

	client := pop3.NewClientBuilder().
		Email(cfg.Fetch.Username).
		Password(cfg.Fetch.Password).
		Host(cfg.Fetch.Host).
		Build()
	defer client.Close()

	summary, err := client.Cmd(ctx, pop3.Info())
	if err != nil {
		return err
	}
	fmt.Fprint(out, summary)

	if len(ids) > 0 {
		for _, id := range ids {
			if err := retrieve(ctx, client, id, out); err != nil {
				return err
			}
		}
	} else if err := prompt(ctx, client, stdin, out); err != nil {
		return err
	}

	_, err = client.Cmd(ctx, pop3.Quit())
	return err
}

func retrieve(ctx context.Context, client *pop3.Client, id int, out io.Writer) error {
	text, err := client.Cmd(ctx, pop3.Retr(id))
	if err != nil {
		return fmt.Errorf("message %d: %w", id, err)
	}
	fmt.Fprint(out, text)
	return nil
}

func prompt(ctx context.Context, client *pop3.Client, stdin io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(out, "message id (quit to exit)# ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(input, "quit") {
			return nil
		}
		id, err := strconv.Atoi(input)
		if err != nil || id < 0 {
			fmt.Fprintf(out, "invalid id %q\n", input)
			continue
		}
		if err := retrieve(ctx, client, id, out); err != nil {
			fmt.Fprintln(out, err)
		}
	}
}
