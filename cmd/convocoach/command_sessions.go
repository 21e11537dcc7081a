package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"convocoach/internal/chat"
	coachclient "convocoach/internal/client"
	"convocoach/internal/sessions"
	"convocoach/internal/types"
)

const listTimeout = 15 * time.Second

type SessionsCommand struct {
	stdout    io.Writer
	stderr    io.Writer
	newClient clientFactory
}

func NewSessionsCommand(stdout, stderr io.Writer, newClient clientFactory) *SessionsCommand {
	return &SessionsCommand{
		stdout:    stdout,
		stderr:    stderr,
		newClient: newClient,
	}
}

func (c *SessionsCommand) Run(args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	search := fs.String("search", "", "filter by title or context")
	limit := fs.Int("limit", sessions.DefaultPageSize, "sessions per page")
	page := fs.Int("page", 0, "page to fetch (0 is newest)")
	all := fs.Bool("all", false, "fetch every page")
	asJSON := fs.Bool("json", false, "print sessions as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("--limit must be positive")
	}

	client, err := c.newClient()
	if err != nil {
		return err
	}
	defer client.Close()
	if !client.SignedIn() {
		return errNotSignedIn
	}

	ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
	defer cancel()

	fetch := func(ctx context.Context, page, pageSize int, search string) ([]*types.Session, int, error) {
		res, err := client.ListSessions(ctx, coachclient.ListParams{
			Page:    page,
			PerPage: pageSize,
			Search:  search,
			Order:   coachclient.DefaultSessionOrder,
		})
		if err != nil {
			return nil, 0, err
		}
		return res.Data, res.Meta.Total, nil
	}
	syncer := sessions.NewSynchronizer(fetch, *limit)
	if *all {
		if err := syncer.Refresh(ctx, strings.TrimSpace(*search)); err != nil {
			return err
		}
		for syncer.HasMoreSessions() {
			requested, err := syncer.LoadNext(ctx)
			if err != nil {
				return err
			}
			if !requested {
				break
			}
		}
	} else {
		list, total, err := fetch(ctx, *page, *limit, strings.TrimSpace(*search))
		if err != nil {
			return err
		}
		if *asJSON {
			return writeJSON(c.stdout, list)
		}
		printSessions(c.stdout, list)
		if sessions.HasMore(len(list), total, *page, *limit) {
			fmt.Fprintf(c.stderr, "more sessions: --page %d\n", *page+1)
		}
		return nil
	}

	list := syncer.Sessions()
	if *asJSON {
		return writeJSON(c.stdout, list)
	}
	printSessions(c.stdout, list)
	return nil
}

type HistoryCommand struct {
	stdout    io.Writer
	stderr    io.Writer
	newClient clientFactory
}

func NewHistoryCommand(stdout, stderr io.Writer, newClient clientFactory) *HistoryCommand {
	return &HistoryCommand{
		stdout:    stdout,
		stderr:    stderr,
		newClient: newClient,
	}
}

func (c *HistoryCommand) Run(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	pages := fs.Int("pages", 1, "number of pages to load, newest first (0 loads everything)")
	limit := fs.Int("limit", chat.DefaultPageSize, "messages per page")
	asJSON := fs.Bool("json", false, "print messages as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("history requires a session id")
	}
	if *limit <= 0 {
		return errors.New("--limit must be positive")
	}
	sessionID := fs.Arg(0)

	client, err := c.newClient()
	if err != nil {
		return err
	}
	defer client.Close()
	if !client.SignedIn() {
		return errNotSignedIn
	}

	ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
	defer cancel()

	conv := chat.NewConversation(sessionID)
	loader := chat.NewHistoryLoader(client.ListMessages, *limit)
	loader.Reset(sessionID)
	for loaded := 0; *pages == 0 || loaded < *pages; loaded++ {
		result, applied, err := loader.Load(ctx)
		if err != nil {
			return err
		}
		if !applied {
			break
		}
		chat.Apply(conv, result)
		if loader.Exhausted() {
			break
		}
	}

	if conv.HasGreeting() {
		if *asJSON {
			return writeJSON(c.stdout, []any{})
		}
		fmt.Fprintln(c.stdout, "no messages yet")
		return nil
	}
	msgs := conv.Messages()
	if *asJSON {
		return writeJSON(c.stdout, msgs)
	}
	printMessages(c.stdout, msgs)
	return nil
}
