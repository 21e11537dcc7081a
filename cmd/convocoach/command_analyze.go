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

	"convocoach/internal/app"
	"convocoach/internal/media"
	"convocoach/internal/types"
)

const defaultAnalysisTimeout = 10 * time.Minute

type AnalyzeCommand struct {
	stdout    io.Writer
	stderr    io.Writer
	newClient clientFactory
}

func NewAnalyzeCommand(stdout, stderr io.Writer, newClient clientFactory) *AnalyzeCommand {
	return &AnalyzeCommand{
		stdout:    stdout,
		stderr:    stderr,
		newClient: newClient,
	}
}

func (c *AnalyzeCommand) Run(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	contextMessage := fs.String("context", "", "note about the conversation")
	model := fs.String("model", "", "analysis model: "+modelChoices())
	noWait := fs.Bool("no-wait", false, "print the session id and return without waiting")
	raw := fs.Bool("raw", false, "print the result as markdown source")
	width := fs.Int("width", 80, "render width")
	timeout := fs.Duration("timeout", defaultAnalysisTimeout, "how long to wait for the result")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return media.ErrNoFiles
	}
	resolvedModel, err := resolveModel(*model)
	if err != nil {
		return err
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

	progress := newProgressPrinter(c.stderr)
	session, err := client.StartAnalysis(ctx, app.AnalysisRequest{
		Paths:          fs.Args(),
		ContextMessage: *contextMessage,
		Model:          resolvedModel,
	}, progress.update)
	progress.finish()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stderr, "session %s created; analyzing…\n", session.ID)
	if *noWait {
		fmt.Fprintln(c.stdout, session.ID)
		return nil
	}

	done, err := client.WaitForAnalysis(ctx, session.ID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("analysis still running after %s; check later with `convocoach sessions`", *timeout)
		}
		return err
	}
	return printAnalysis(c.stdout, done, *raw, *width)
}

func printAnalysis(out io.Writer, session *types.Session, raw bool, width int) error {
	if session.Status == types.SessionStatusFailed {
		return fmt.Errorf("analysis %s failed", session.ID)
	}
	if session.Result == nil {
		fmt.Fprintf(out, "%s: no analysis result\n", session.ID)
		return nil
	}
	if raw {
		fmt.Fprintln(out, app.AnalysisMarkdown(session.Result))
		return nil
	}
	fmt.Fprintln(out, app.RenderAnalysis(session.Result, width))
	return nil
}

func resolveModel(raw string) (types.GeminiModel, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	for _, model := range types.GeminiModels {
		if string(model) == raw {
			return model, nil
		}
	}
	return "", fmt.Errorf("invalid model %q: must be one of %s", raw, modelChoices())
}

func modelChoices() string {
	names := make([]string, 0, len(types.GeminiModels))
	for _, model := range types.GeminiModels {
		names = append(names, string(model))
	}
	return strings.Join(names, "|")
}

// progressPrinter rewrites a single status line as uploads advance.
type progressPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	last    int
	printed bool
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, last: -1}
}

func (p *progressPrinter) update(percent float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	value := int(percent)
	if value == p.last {
		return
	}
	p.last = value
	p.printed = true
	fmt.Fprintf(p.out, "\ruploading %3d%%", value)
}

func (p *progressPrinter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.printed {
		fmt.Fprintln(p.out)
	}
}
