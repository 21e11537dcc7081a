package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"convocoach/internal/app"
	coachclient "convocoach/internal/client"
	"convocoach/internal/config"
	"convocoach/internal/media"
	"convocoach/internal/types"
)

type fakeCommandClient struct {
	signedIn bool

	signInErr     error
	signInCalls   []string
	signUpCalls   []coachclient.SignUpUser
	signOutCalls  int
	profile       *types.User
	profileEdits  []coachclient.UpdateProfileRequest
	avatarPaths   []string
	avatarErr     error
	sessionsByPg  map[int][]*types.Session
	sessionsTotal int
	listParams    []coachclient.ListParams
	messagesByPg  map[int][]*types.Message
	analysisReqs  []app.AnalysisRequest
	startResp     *types.Session
	waitResp      *types.Session
	waitErr       error
	waitCalls     int
	sendCalls     []string
	sendChunks    []string
	uiCalls       int
	closeCalls    int
}

func (f *fakeCommandClient) SignIn(_ context.Context, email, password string) (*types.User, error) {
	f.signInCalls = append(f.signInCalls, email+":"+password)
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &types.User{Email: email, DisplayName: "Sam"}, nil
}

func (f *fakeCommandClient) SignUp(_ context.Context, user coachclient.SignUpUser) (*types.User, error) {
	f.signUpCalls = append(f.signUpCalls, user)
	return &types.User{Email: user.Email, DisplayName: user.DisplayName}, nil
}

func (f *fakeCommandClient) SignOut(context.Context) error {
	f.signOutCalls++
	f.signedIn = false
	return nil
}

func (f *fakeCommandClient) SignedIn() bool {
	return f.signedIn
}

func (f *fakeCommandClient) Profile(context.Context) (*types.User, error) {
	if f.profile == nil {
		return nil, errors.New("no profile")
	}
	return f.profile, nil
}

func (f *fakeCommandClient) UpdateProfile(_ context.Context, req coachclient.UpdateProfileRequest) (*types.User, error) {
	f.profileEdits = append(f.profileEdits, req)
	user := *f.profile
	if req.MBTI != nil {
		user.MBTI = *req.MBTI
	}
	if req.LoveLanguages != nil {
		user.LoveLanguages = req.LoveLanguages
	}
	return &user, nil
}

func (f *fakeCommandClient) UploadAvatar(_ context.Context, path string) (string, error) {
	f.avatarPaths = append(f.avatarPaths, path)
	if f.avatarErr != nil {
		return "", f.avatarErr
	}
	return "https://res.example.com/media/users/me.png", nil
}

func (f *fakeCommandClient) ListSessions(_ context.Context, params coachclient.ListParams) (*coachclient.SessionsPage, error) {
	f.listParams = append(f.listParams, params)
	return &coachclient.SessionsPage{
		Data: f.sessionsByPg[params.Page],
		Meta: coachclient.PageMeta{Total: f.sessionsTotal},
	}, nil
}

func (f *fakeCommandClient) GetSession(_ context.Context, id string) (*types.Session, error) {
	return &types.Session{ID: id, Status: types.SessionStatusCompleted}, nil
}

func (f *fakeCommandClient) ListMessages(_ context.Context, _ string, page, perPage int) ([]*types.Message, error) {
	msgs := f.messagesByPg[page]
	if len(msgs) > perPage {
		msgs = msgs[:perPage]
	}
	return msgs, nil
}

func (f *fakeCommandClient) StartAnalysis(_ context.Context, req app.AnalysisRequest, progress media.ProgressFunc) (*types.Session, error) {
	f.analysisReqs = append(f.analysisReqs, req)
	if progress != nil {
		progress(40)
		progress(100)
	}
	if f.startResp == nil {
		return &types.Session{ID: "s-new", Status: types.SessionStatusProcessing}, nil
	}
	return f.startResp, nil
}

func (f *fakeCommandClient) WaitForAnalysis(context.Context, string) (*types.Session, error) {
	f.waitCalls++
	return f.waitResp, f.waitErr
}

func (f *fakeCommandClient) SendMessage(_ context.Context, sessionID, content string, onChunk func(string)) (*types.Message, error) {
	f.sendCalls = append(f.sendCalls, sessionID+":"+content)
	if onChunk != nil {
		for _, chunk := range f.sendChunks {
			onChunk(chunk)
		}
	}
	return &types.Message{ID: "m-user", Role: types.MessageRoleUser, Content: content}, nil
}

func (f *fakeCommandClient) RunUI() error {
	f.uiCalls++
	return nil
}

func (f *fakeCommandClient) Close() error {
	f.closeCalls++
	return nil
}

func fixedFactory(client commandClient) clientFactory {
	return func() (commandClient, error) {
		return client, nil
	}
}

func stamp(minutes int) *time.Time {
	ts := time.Date(2026, 3, 14, 12, minutes, 0, 0, time.UTC)
	return &ts
}

func TestLoginCommandWithFlags(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := &fakeCommandClient{}
	cmd := NewLoginCommand(strings.NewReader(""), stdout, &bytes.Buffer{}, fixedFactory(fake))

	if err := cmd.Run([]string{"--email", "sam@example.com", "--password", "hunter22"}); err != nil {
		t.Fatalf("expected login to succeed, got err=%v", err)
	}
	if len(fake.signInCalls) != 1 || fake.signInCalls[0] != "sam@example.com:hunter22" {
		t.Fatalf("unexpected sign in calls: %v", fake.signInCalls)
	}
	if got := stdout.String(); got != "signed in as Sam <sam@example.com>\n" {
		t.Fatalf("unexpected stdout: %q", got)
	}
	if fake.closeCalls != 1 {
		t.Fatalf("expected client closed once, got %d", fake.closeCalls)
	}
}

func TestLoginCommandPromptsForPassword(t *testing.T) {
	stderr := &bytes.Buffer{}
	fake := &fakeCommandClient{}
	cmd := NewLoginCommand(strings.NewReader("secret99\n"), &bytes.Buffer{}, stderr, fixedFactory(fake))

	if err := cmd.Run([]string{"--email", "sam@example.com"}); err != nil {
		t.Fatalf("expected login to succeed, got err=%v", err)
	}
	if fake.signInCalls[0] != "sam@example.com:secret99" {
		t.Fatalf("expected password read from stdin, got %v", fake.signInCalls)
	}
	if !strings.Contains(stderr.String(), "password: ") {
		t.Fatalf("expected password prompt, got %q", stderr.String())
	}
}

func TestLoginCommandMapsUnauthorized(t *testing.T) {
	fake := &fakeCommandClient{signInErr: &coachclient.APIError{StatusCode: http.StatusUnauthorized, Message: "nope"}}
	cmd := NewLoginCommand(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{}, fixedFactory(fake))

	err := cmd.Run([]string{"--email", "sam@example.com", "--password", "wrong-pass"})
	if err == nil || err.Error() != "invalid email or password" {
		t.Fatalf("expected friendly auth error, got %v", err)
	}
}

func TestLoginCommandSignupRequiresName(t *testing.T) {
	fake := &fakeCommandClient{}
	cmd := NewLoginCommand(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{}, fixedFactory(fake))

	if err := cmd.Run([]string{"--signup", "--email", "a@b.co", "--password", "secret99"}); err == nil {
		t.Fatalf("expected error without --name")
	}
	if err := cmd.Run([]string{"--signup", "--name", "Ava", "--email", "a@b.co", "--password", "secret99"}); err != nil {
		t.Fatalf("expected signup to succeed, got err=%v", err)
	}
	if len(fake.signUpCalls) != 1 || fake.signUpCalls[0].DisplayName != "Ava" {
		t.Fatalf("unexpected signup calls: %#v", fake.signUpCalls)
	}
}

func TestLogoutCommandAlwaysClears(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := &fakeCommandClient{}
	cmd := NewLogoutCommand(stdout, &bytes.Buffer{}, fixedFactory(fake))

	if err := cmd.Run(nil); err != nil {
		t.Fatalf("expected logout to succeed, got err=%v", err)
	}
	if fake.signOutCalls != 1 || stdout.String() != "signed out\n" {
		t.Fatalf("unexpected logout result: calls=%d out=%q", fake.signOutCalls, stdout.String())
	}
}

func TestCommandsRequireSignIn(t *testing.T) {
	fake := &fakeCommandClient{}
	runners := map[string]commandRunner{
		"whoami":   NewWhoAmICommand(&bytes.Buffer{}, &bytes.Buffer{}, fixedFactory(fake)),
		"sessions": NewSessionsCommand(&bytes.Buffer{}, &bytes.Buffer{}, fixedFactory(fake)),
		"ui":       NewUICommand(&bytes.Buffer{}, fixedFactory(fake)),
	}
	for name, runner := range runners {
		if err := runner.Run(nil); !errors.Is(err, errNotSignedIn) {
			t.Fatalf("%s: expected errNotSignedIn, got %v", name, err)
		}
	}
	if fake.uiCalls != 0 {
		t.Fatalf("expected ui not started")
	}
}

func TestWhoAmICommandPrintsProfile(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := &fakeCommandClient{
		signedIn: true,
		profile:  &types.User{Email: "sam@example.com", DisplayName: "Sam", MBTI: "INFJ", LoveLanguages: []string{"words", "time"}},
	}
	cmd := NewWhoAmICommand(stdout, &bytes.Buffer{}, fixedFactory(fake))

	if err := cmd.Run(nil); err != nil {
		t.Fatalf("expected whoami to succeed, got err=%v", err)
	}
	want := "Sam <sam@example.com>\nmbti: INFJ\nlove languages: words, time\n"
	if got := stdout.String(); got != want {
		t.Fatalf("unexpected stdout: %q", got)
	}
}

func TestWhoAmICommandUpdatesProfile(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := &fakeCommandClient{signedIn: true, profile: &types.User{Email: "sam@example.com"}}
	cmd := NewWhoAmICommand(stdout, &bytes.Buffer{}, fixedFactory(fake))

	if err := cmd.Run([]string{"--set-mbti", " enfp "}); err != nil {
		t.Fatalf("expected update to succeed, got err=%v", err)
	}
	if len(fake.profileEdits) != 1 || fake.profileEdits[0].MBTI == nil || *fake.profileEdits[0].MBTI != "ENFP" {
		t.Fatalf("unexpected profile edits: %#v", fake.profileEdits)
	}
	if fake.profileEdits[0].DisplayName != nil || fake.profileEdits[0].ZodiacSign != nil {
		t.Fatalf("expected unset fields left nil")
	}
	if !strings.Contains(stdout.String(), "mbti: ENFP") {
		t.Fatalf("expected updated profile printed, got %q", stdout.String())
	}
}

func TestWhoAmICommandSetsLoveLanguagesAndAvatar(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := &fakeCommandClient{signedIn: true, profile: &types.User{Email: "sam@example.com"}}
	cmd := NewWhoAmICommand(stdout, &bytes.Buffer{}, fixedFactory(fake))

	if err := cmd.Run([]string{"--set-love-languages", "words, time,, touch ", "--set-avatar", "me.png"}); err != nil {
		t.Fatalf("expected update to succeed, got err=%v", err)
	}
	if len(fake.avatarPaths) != 1 || fake.avatarPaths[0] != "me.png" {
		t.Fatalf("expected avatar uploaded once, got %#v", fake.avatarPaths)
	}
	if len(fake.profileEdits) != 1 {
		t.Fatalf("expected one profile edit, got %d", len(fake.profileEdits))
	}
	edit := fake.profileEdits[0]
	if got := strings.Join(edit.LoveLanguages, "|"); got != "words|time|touch" {
		t.Fatalf("unexpected love languages: %q", got)
	}
	if edit.AvatarURL == nil || *edit.AvatarURL != "https://res.example.com/media/users/me.png" {
		t.Fatalf("expected uploaded avatar url in edit, got %#v", edit.AvatarURL)
	}
	if !strings.Contains(stdout.String(), "love languages: words, time, touch") {
		t.Fatalf("expected updated profile printed, got %q", stdout.String())
	}
}

func TestWhoAmICommandAvatarUploadFailureSkipsUpdate(t *testing.T) {
	fake := &fakeCommandClient{
		signedIn:  true,
		profile:   &types.User{Email: "sam@example.com"},
		avatarErr: media.ErrNotImage,
	}
	cmd := NewWhoAmICommand(&bytes.Buffer{}, &bytes.Buffer{}, fixedFactory(fake))

	err := cmd.Run([]string{"--set-avatar", "notes.txt", "--set-mbti", "intj"})
	if !errors.Is(err, media.ErrNotImage) {
		t.Fatalf("expected avatar error, got %v", err)
	}
	if len(fake.profileEdits) != 0 {
		t.Fatalf("expected no profile edit after failed upload, got %#v", fake.profileEdits)
	}
}

func TestSessionsCommandPrintsPage(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	fake := &fakeCommandClient{
		signedIn: true,
		sessionsByPg: map[int][]*types.Session{
			0: {
				{ID: "s1", Status: types.SessionStatusCompleted, Title: "Birthday dinner"},
				{ID: "s2", Status: types.SessionStatusProcessing, ContextMessage: "group chat"},
			},
		},
		sessionsTotal: 3,
	}
	cmd := NewSessionsCommand(stdout, stderr, fixedFactory(fake))

	if err := cmd.Run([]string{"--limit", "2", "--search", " dinner "}); err != nil {
		t.Fatalf("expected sessions to succeed, got err=%v", err)
	}
	out := stdout.String()
	for _, want := range []string{"ID", "STATUS", "s1", "Birthday dinner", "s2", "group chat", "processing"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
	if !strings.Contains(stderr.String(), "--page 1") {
		t.Fatalf("expected next page hint, got %q", stderr.String())
	}
	params := fake.listParams[0]
	if params.Search != "dinner" || params.PerPage != 2 || params.Order != coachclient.DefaultSessionOrder {
		t.Fatalf("unexpected list params: %#v", params)
	}
}

func TestSessionsCommandAllPages(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := &fakeCommandClient{
		signedIn: true,
		sessionsByPg: map[int][]*types.Session{
			0: {{ID: "s1"}, {ID: "s2"}},
			1: {{ID: "s2"}, {ID: "s3"}},
			2: {{ID: "s4"}},
		},
		sessionsTotal: 5,
	}
	cmd := NewSessionsCommand(stdout, &bytes.Buffer{}, fixedFactory(fake))

	if err := cmd.Run([]string{"--all", "--limit", "2"}); err != nil {
		t.Fatalf("expected sessions to succeed, got err=%v", err)
	}
	if len(fake.listParams) != 3 {
		t.Fatalf("expected three page fetches, got %d", len(fake.listParams))
	}
	out := stdout.String()
	rows := map[string]int{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n")[1:] {
		rows[strings.Fields(line)[0]]++
	}
	if rows["s2"] != 1 {
		t.Fatalf("expected duplicate session collapsed, got %q", out)
	}
	if len(rows) != 4 || rows["s4"] != 1 {
		t.Fatalf("expected four distinct rows including the last page, got %q", out)
	}
}

func TestHistoryCommandPrintsOldestFirst(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := &fakeCommandClient{
		signedIn: true,
		messagesByPg: map[int][]*types.Message{
			0: {
				{ID: "m4", Role: types.MessageRoleAssistant, Content: "fourth", CreatedAt: stamp(4)},
				{ID: "m3", Role: types.MessageRoleUser, Content: "third", CreatedAt: stamp(3)},
			},
			1: {
				{ID: "m2", Role: types.MessageRoleAssistant, Content: "second", CreatedAt: stamp(2)},
				{ID: "m1", Role: types.MessageRoleUser, Content: "first", CreatedAt: stamp(1)},
			},
		},
	}
	cmd := NewHistoryCommand(stdout, &bytes.Buffer{}, fixedFactory(fake))

	if err := cmd.Run([]string{"--pages", "0", "--limit", "2", "s1"}); err != nil {
		t.Fatalf("expected history to succeed, got err=%v", err)
	}
	out := stdout.String()
	last := -1
	for _, want := range []string{"first", "second", "third", "fourth"} {
		idx := strings.Index(out, want)
		if idx <= last {
			t.Fatalf("expected %q after previous message in %q", want, out)
		}
		last = idx
	}
}

func TestHistoryCommandEmpty(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := &fakeCommandClient{signedIn: true}
	cmd := NewHistoryCommand(stdout, &bytes.Buffer{}, fixedFactory(fake))

	if err := cmd.Run([]string{"s1"}); err != nil {
		t.Fatalf("expected history to succeed, got err=%v", err)
	}
	if got := stdout.String(); got != "no messages yet\n" {
		t.Fatalf("unexpected stdout: %q", got)
	}
	if err := cmd.Run(nil); err == nil {
		t.Fatalf("expected error without a session id")
	}
}

func TestSendCommandStreamsReply(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := &fakeCommandClient{signedIn: true, sendChunks: []string{"Try ", "asking ", "first."}}
	cmd := NewSendCommand(stdout, &bytes.Buffer{}, fixedFactory(fake))

	if err := cmd.Run([]string{"s1", "what", "now?"}); err != nil {
		t.Fatalf("expected send to succeed, got err=%v", err)
	}
	if len(fake.sendCalls) != 1 || fake.sendCalls[0] != "s1:what now?" {
		t.Fatalf("unexpected send calls: %v", fake.sendCalls)
	}
	if got := stdout.String(); got != "Try asking first.\n" {
		t.Fatalf("unexpected stdout: %q", got)
	}
}

func TestSendCommandFallsBackToHistory(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := &fakeCommandClient{
		signedIn: true,
		messagesByPg: map[int][]*types.Message{
			0: {{ID: "a1", Role: types.MessageRoleAssistant, Content: "Full reply.\n"}},
		},
	}
	cmd := NewSendCommand(stdout, &bytes.Buffer{}, fixedFactory(fake))

	if err := cmd.Run([]string{"--no-stream", "s1", "hello"}); err != nil {
		t.Fatalf("expected send to succeed, got err=%v", err)
	}
	if got := stdout.String(); got != "Full reply.\n" {
		t.Fatalf("unexpected stdout: %q", got)
	}
}

func TestAnalyzeCommandNoWait(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	fake := &fakeCommandClient{signedIn: true}
	cmd := NewAnalyzeCommand(stdout, stderr, fixedFactory(fake))

	err := cmd.Run([]string{"--no-wait", "--context", "after the party", "--model", "gemini-2.5-pro", "a.png", "b.png"})
	if err != nil {
		t.Fatalf("expected analyze to succeed, got err=%v", err)
	}
	if got := stdout.String(); got != "s-new\n" {
		t.Fatalf("unexpected stdout: %q", got)
	}
	if fake.waitCalls != 0 {
		t.Fatalf("expected no wait with --no-wait")
	}
	req := fake.analysisReqs[0]
	if len(req.Paths) != 2 || req.ContextMessage != "after the party" || req.Model != types.GeminiModel25Pro {
		t.Fatalf("unexpected analysis request: %#v", req)
	}
	if !strings.Contains(stderr.String(), "uploading 100%") {
		t.Fatalf("expected upload progress, got %q", stderr.String())
	}
}

func TestAnalyzeCommandWaitsForResult(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := &fakeCommandClient{
		signedIn: true,
		waitResp: &types.Session{
			ID:     "s-new",
			Status: types.SessionStatusCompleted,
			Result: &types.AnalysisResult{Summary: "You both want the same thing."},
		},
	}
	cmd := NewAnalyzeCommand(stdout, &bytes.Buffer{}, fixedFactory(fake))

	if err := cmd.Run([]string{"--raw", "shot.png"}); err != nil {
		t.Fatalf("expected analyze to succeed, got err=%v", err)
	}
	if got := stdout.String(); got != "## Summary\n\nYou both want the same thing.\n" {
		t.Fatalf("unexpected stdout: %q", got)
	}
}

func TestAnalyzeCommandReportsFailure(t *testing.T) {
	fake := &fakeCommandClient{
		signedIn: true,
		waitResp: &types.Session{ID: "s-new", Status: types.SessionStatusFailed},
	}
	cmd := NewAnalyzeCommand(&bytes.Buffer{}, &bytes.Buffer{}, fixedFactory(fake))

	if err := cmd.Run([]string{"shot.png"}); err == nil || !strings.Contains(err.Error(), "failed") {
		t.Fatalf("expected failure error, got %v", err)
	}
}

func TestAnalyzeCommandValidatesInput(t *testing.T) {
	fake := &fakeCommandClient{signedIn: true}
	cmd := NewAnalyzeCommand(&bytes.Buffer{}, &bytes.Buffer{}, fixedFactory(fake))

	if err := cmd.Run(nil); !errors.Is(err, media.ErrNoFiles) {
		t.Fatalf("expected ErrNoFiles, got %v", err)
	}
	if err := cmd.Run([]string{"--model", "gpt-4", "a.png"}); err == nil || !strings.Contains(err.Error(), "invalid model") {
		t.Fatalf("expected invalid model error, got %v", err)
	}
	if len(fake.analysisReqs) != 0 {
		t.Fatalf("expected no analysis started")
	}
}

func TestUICommandRunsUI(t *testing.T) {
	fake := &fakeCommandClient{signedIn: true}
	cmd := NewUICommand(&bytes.Buffer{}, fixedFactory(fake))

	if err := cmd.Run(nil); err != nil {
		t.Fatalf("expected ui to succeed, got err=%v", err)
	}
	if fake.uiCalls != 1 || fake.closeCalls != 1 {
		t.Fatalf("unexpected calls: ui=%d close=%d", fake.uiCalls, fake.closeCalls)
	}
}

func TestConfigCommandPrintsDefaultsAsTOML(t *testing.T) {
	t.Setenv(config.DataDirEnv, t.TempDir())
	stdout := &bytes.Buffer{}
	cmd := NewConfigCommand(stdout, &bytes.Buffer{})

	if err := cmd.Run([]string{"--default", "--format", "toml"}); err != nil {
		t.Fatalf("expected config to succeed, got err=%v", err)
	}
	out := stdout.String()
	for _, want := range []string{"[api]", "base_url = 'http://127.0.0.1:3000/api'", "url = 'ws://127.0.0.1:3000/socket.io/'", "backend = 'bbolt'"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestConfigCommandInitWritesOnce(t *testing.T) {
	t.Setenv(config.DataDirEnv, t.TempDir())
	cmd := NewConfigCommand(&bytes.Buffer{}, &bytes.Buffer{})

	if err := cmd.Run([]string{"--init"}); err != nil {
		t.Fatalf("expected init to succeed, got err=%v", err)
	}
	if err := cmd.Run([]string{"--init"}); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected second init to fail, got %v", err)
	}
}

func TestResolveConfigFormat(t *testing.T) {
	for raw, want := range map[string]string{"": configFormatJSON, " JSON ": configFormatJSON, "toml": configFormatTOML} {
		got, err := resolveConfigFormat(raw)
		if err != nil || got != want {
			t.Fatalf("resolveConfigFormat(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := resolveConfigFormat("yaml"); err == nil {
		t.Fatalf("expected error for yaml")
	}
}

func TestBuildCommandsCoversEveryCommand(t *testing.T) {
	commands := buildCommands(defaultCommandWiring(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{}))
	for _, name := range []string{"login", "logout", "whoami", "sessions", "analyze", "history", "send", "ui", "config", "version"} {
		if _, ok := commands[name]; !ok {
			t.Fatalf("missing command %s", name)
		}
		if !strings.Contains(usageText, fmt.Sprintf("  %s ", name)) {
			t.Fatalf("usage does not mention %s", name)
		}
	}
}
