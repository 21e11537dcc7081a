package main

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"text/tabwriter"
	"time"

	"convocoach/internal/types"
)

const version = "dev"

func printSessions(output io.Writer, sessions []*types.Session) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tSTATUS\tUPDATED\tTITLE")
	for _, session := range sessions {
		updated := "-"
		if last := lastActive(session); !last.IsZero() {
			updated = last.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", session.ID, session.Status, updated, oneLine(session.DisplayTitle(), 60))
	}
	_ = writer.Flush()
}

func printMessages(output io.Writer, messages []*types.Message) {
	for i, msg := range messages {
		if i > 0 {
			fmt.Fprintln(output)
		}
		label := "Coach"
		if msg.Role == types.MessageRoleUser {
			label = "You"
		}
		if msg.CreatedAt != nil {
			label += " · " + msg.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintln(output, label)
		fmt.Fprintln(output, strings.TrimRight(msg.Content, "\n"))
	}
}

func userLabel(user *types.User, fallback string) string {
	if user == nil {
		return strings.TrimSpace(fallback)
	}
	switch {
	case user.DisplayName != "" && user.Email != "":
		return fmt.Sprintf("%s <%s>", user.DisplayName, user.Email)
	case user.Email != "":
		return user.Email
	case user.DisplayName != "":
		return user.DisplayName
	}
	return strings.TrimSpace(fallback)
}

func writeJSON(output io.Writer, payload any) error {
	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func lastActive(session *types.Session) time.Time {
	if session.UpdatedAt != nil && !session.UpdatedAt.IsZero() {
		return *session.UpdatedAt
	}
	return session.CreatedAt
}

func oneLine(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if limit > 0 && len(runes) > limit {
		return string(runes[:limit-1]) + "…"
	}
	return text
}

func exitOnErr(label string, err error, stderr io.Writer) {
	if err == nil {
		return
	}
	fmt.Fprintf(stderr, "%s error: %v\n", label, err)
	os.Exit(1)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		var revision string
		var modified string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				revision = setting.Value
			case "vcs.modified":
				modified = setting.Value
			}
		}
		if revision != "" {
			if modified == "true" {
				return revision + "-dirty"
			}
			return revision
		}
	}

	exe, err := os.Executable()
	if err == nil {
		file, err := os.Open(exe)
		if err == nil {
			defer file.Close()
			hasher := sha256.New()
			if _, err := io.Copy(hasher, file); err == nil {
				sum := hasher.Sum(nil)
				return fmt.Sprintf("bin-%x", sum[:6])
			}
		}
	}

	return version
}

type VersionCommand struct {
	stdout  io.Writer
	version string
}

func NewVersionCommand(stdout io.Writer, version string) *VersionCommand {
	return &VersionCommand{stdout: stdout, version: version}
}

func (c *VersionCommand) Run([]string) error {
	fmt.Fprintln(c.stdout, c.version)
	return nil
}
