package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"convocoach/internal/types"
)

type SendCommand struct {
	stdout    io.Writer
	stderr    io.Writer
	newClient clientFactory
}

func NewSendCommand(stdout, stderr io.Writer, newClient clientFactory) *SendCommand {
	return &SendCommand{
		stdout:    stdout,
		stderr:    stderr,
		newClient: newClient,
	}
}

func (c *SendCommand) Run(args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	noStream := fs.Bool("no-stream", false, "wait for the full reply instead of streaming it")
	timeout := fs.Duration("timeout", 3*time.Minute, "how long to wait for the reply")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return errors.New("send requires a session id and a message")
	}
	sessionID := fs.Arg(0)
	content := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
	if content == "" {
		return errors.New("message is empty")
	}

	client, err := c.newClient()
	if err != nil {
		return err
	}
	defer client.Close()
	if !client.SignedIn() {
		return errNotSignedIn
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var mu sync.Mutex
	streamed := false
	var onChunk func(string)
	if !*noStream {
		onChunk = func(chunk string) {
			mu.Lock()
			defer mu.Unlock()
			streamed = true
			fmt.Fprint(c.stdout, chunk)
		}
	}
	if _, err := client.SendMessage(ctx, sessionID, content, onChunk); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if streamed {
		fmt.Fprintln(c.stdout)
		return nil
	}
	// Nothing streamed: read the reply back from history.
	msgs, err := client.ListMessages(ctx, sessionID, 0, 1)
	if err != nil {
		return err
	}
	if len(msgs) == 0 || msgs[0].Role == types.MessageRoleUser {
		fmt.Fprintln(c.stderr, "message sent; the reply is not available yet")
		return nil
	}
	fmt.Fprintln(c.stdout, strings.TrimRight(msgs[0].Content, "\n"))
	return nil
}
