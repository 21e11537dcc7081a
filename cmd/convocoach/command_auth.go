package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	coachclient "convocoach/internal/client"
	"convocoach/internal/types"
)

const authRequestTimeout = 30 * time.Second

type LoginCommand struct {
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	newClient clientFactory
}

func NewLoginCommand(stdin io.Reader, stdout, stderr io.Writer, newClient clientFactory) *LoginCommand {
	return &LoginCommand{
		stdin:     stdin,
		stdout:    stdout,
		stderr:    stderr,
		newClient: newClient,
	}
}

func (c *LoginCommand) Run(args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (read from stdin when omitted)")
	signup := fs.Bool("signup", false, "create a new account")
	name := fs.String("name", "", "display name for --signup")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reader := bufio.NewReader(c.stdin)
	if strings.TrimSpace(*email) == "" {
		value, err := prompt(reader, c.stderr, "email: ")
		if err != nil {
			return err
		}
		*email = value
	}
	if *password == "" {
		value, err := prompt(reader, c.stderr, "password: ")
		if err != nil {
			return err
		}
		*password = value
	}
	if *signup && strings.TrimSpace(*name) == "" {
		return errors.New("--signup requires --name")
	}

	client, err := c.newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), authRequestTimeout)
	defer cancel()
	if *signup {
		user, err := client.SignUp(ctx, coachclient.SignUpUser{
			DisplayName: strings.TrimSpace(*name),
			Email:       strings.TrimSpace(*email),
			Password:    *password,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "account created; signed in as %s\n", userLabel(user, *email))
		return nil
	}
	user, err := client.SignIn(ctx, *email, *password)
	if err != nil {
		if coachclient.IsUnauthorized(err) {
			return errors.New("invalid email or password")
		}
		return err
	}
	fmt.Fprintf(c.stdout, "signed in as %s\n", userLabel(user, *email))
	return nil
}

func prompt(reader *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s %w", strings.TrimSuffix(label, " "), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

type LogoutCommand struct {
	stdout    io.Writer
	stderr    io.Writer
	newClient clientFactory
}

func NewLogoutCommand(stdout, stderr io.Writer, newClient clientFactory) *LogoutCommand {
	return &LogoutCommand{
		stdout:    stdout,
		stderr:    stderr,
		newClient: newClient,
	}
}

func (c *LogoutCommand) Run(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := c.newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), authRequestTimeout)
	defer cancel()
	if err := client.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "signed out")
	return nil
}

type WhoAmICommand struct {
	stdout    io.Writer
	stderr    io.Writer
	newClient clientFactory
}

func NewWhoAmICommand(stdout, stderr io.Writer, newClient clientFactory) *WhoAmICommand {
	return &WhoAmICommand{
		stdout:    stdout,
		stderr:    stderr,
		newClient: newClient,
	}
}

func (c *WhoAmICommand) Run(args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	asJSON := fs.Bool("json", false, "print the profile as JSON")
	displayName := fs.String("set-name", "", "update the display name")
	mbti := fs.String("set-mbti", "", "update the MBTI type")
	zodiac := fs.String("set-zodiac", "", "update the zodiac sign")
	loveLanguages := fs.String("set-love-languages", "", "update love languages (comma separated)")
	avatar := fs.String("set-avatar", "", "upload an image file as the profile picture")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var update coachclient.UpdateProfileRequest
	changed := false
	if value := strings.TrimSpace(*displayName); value != "" {
		update.DisplayName = &value
		changed = true
	}
	if value := strings.ToUpper(strings.TrimSpace(*mbti)); value != "" {
		update.MBTI = &value
		changed = true
	}
	if value := strings.TrimSpace(*zodiac); value != "" {
		update.ZodiacSign = &value
		changed = true
	}
	if languages := splitList(*loveLanguages); len(languages) > 0 {
		update.LoveLanguages = languages
		changed = true
	}
	avatarPath := strings.TrimSpace(*avatar)

	client, err := c.newClient()
	if err != nil {
		return err
	}
	defer client.Close()
	if !client.SignedIn() {
		return errNotSignedIn
	}

	ctx, cancel := context.WithTimeout(context.Background(), authRequestTimeout)
	defer cancel()
	if avatarPath != "" {
		url, err := client.UploadAvatar(ctx, avatarPath)
		if err != nil {
			return fmt.Errorf("upload avatar: %w", err)
		}
		update.AvatarURL = &url
		changed = true
	}
	var user *types.User
	if changed {
		user, err = client.UpdateProfile(ctx, update)
	} else {
		user, err = client.Profile(ctx)
	}
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(c.stdout, user)
	}
	fmt.Fprintln(c.stdout, userLabel(user, ""))
	if user.MBTI != "" {
		fmt.Fprintf(c.stdout, "mbti: %s\n", user.MBTI)
	}
	if len(user.LoveLanguages) > 0 {
		fmt.Fprintf(c.stdout, "love languages: %s\n", strings.Join(user.LoveLanguages, ", "))
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if value := strings.TrimSpace(part); value != "" {
			out = append(out, value)
		}
	}
	return out
}
