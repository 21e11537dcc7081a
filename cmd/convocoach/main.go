package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const usageText = `convocoach analyzes chat screenshots and lets you talk them through with a coach.

Usage:
  convocoach <command> [flags]

Commands:
  login     sign in (or --signup to create an account)
  logout    sign out and clear local credentials
  whoami    show (or --set-* flags to update) the signed-in profile
  sessions  list analysis sessions
  analyze   upload screenshots and start an analysis
  history   show a session's coach chat
  send      ask the coach a question about a session
  ui        run the terminal UI
  config    print configuration (effective or defaults)
  version   print the build version
  help      show help

Flags:
  -h, --help   show help

Examples:
  convocoach login --email me@example.com
  convocoach analyze --context "she went quiet after this" shot1.png shot2.png
  convocoach sessions --search birthday
  convocoach send <session-id> "how do I apologize without over-explaining?"
  convocoach config --format toml
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	_ = godotenv.Load()

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	wiring := defaultCommandWiring(os.Stdin, os.Stdout, os.Stderr)
	commands := buildCommands(wiring)

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	}

	runner, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	exitOnErr(args[0], runner.Run(args[1:]), wiring.stderr)
}
