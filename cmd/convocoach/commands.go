package main

import (
	"io"
	"os"
)

type commandRunner interface {
	Run(args []string) error
}

type commandWiring struct {
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	newClient clientFactory
	version   string
}

func defaultCommandWiring(stdin io.Reader, stdout, stderr io.Writer) commandWiring {
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return commandWiring{
		stdin:     stdin,
		stdout:    stdout,
		stderr:    stderr,
		newClient: newCoachClient,
		version:   buildVersion(),
	}
}

func buildCommands(wiring commandWiring) map[string]commandRunner {
	return map[string]commandRunner{
		"login":    NewLoginCommand(wiring.stdin, wiring.stdout, wiring.stderr, wiring.newClient),
		"logout":   NewLogoutCommand(wiring.stdout, wiring.stderr, wiring.newClient),
		"whoami":   NewWhoAmICommand(wiring.stdout, wiring.stderr, wiring.newClient),
		"sessions": NewSessionsCommand(wiring.stdout, wiring.stderr, wiring.newClient),
		"analyze":  NewAnalyzeCommand(wiring.stdout, wiring.stderr, wiring.newClient),
		"history":  NewHistoryCommand(wiring.stdout, wiring.stderr, wiring.newClient),
		"send":     NewSendCommand(wiring.stdout, wiring.stderr, wiring.newClient),
		"ui":       NewUICommand(wiring.stderr, wiring.newClient),
		"config":   NewConfigCommand(wiring.stdout, wiring.stderr),
		"version":  NewVersionCommand(wiring.stdout, wiring.version),
	}
}
