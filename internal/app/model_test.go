package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"

	"convocoach/internal/auth"
	"convocoach/internal/client"
	"convocoach/internal/realtime"
	"convocoach/internal/sessions"
	"convocoach/internal/types"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fakeSessionAPI struct {
	mu      sync.Mutex
	list    func(params client.ListParams) (*client.SessionsPage, error)
	get     func(id string) (*types.Session, error)
	create  func(req client.CreateSessionRequest) (*types.Session, error)
	listed  []client.ListParams
	created []client.CreateSessionRequest
}

func (f *fakeSessionAPI) ListSessions(_ context.Context, params client.ListParams) (*client.SessionsPage, error) {
	f.mu.Lock()
	f.listed = append(f.listed, params)
	f.mu.Unlock()
	if f.list == nil {
		return &client.SessionsPage{}, nil
	}
	return f.list(params)
}

func (f *fakeSessionAPI) GetSession(_ context.Context, id string) (*types.Session, error) {
	if f.get == nil {
		return &types.Session{ID: id, Status: types.SessionStatusCompleted}, nil
	}
	return f.get(id)
}

func (f *fakeSessionAPI) CreateSession(_ context.Context, req client.CreateSessionRequest) (*types.Session, error) {
	f.mu.Lock()
	f.created = append(f.created, req)
	f.mu.Unlock()
	if f.create == nil {
		return &types.Session{ID: "new", Status: types.SessionStatusPending}, nil
	}
	return f.create(req)
}

type fakeChatAPI struct {
	send func(req client.SendMessageRequest) (*types.Message, error)
	list func(sessionID string, page, perPage int) ([]*types.Message, error)
}

func (f *fakeChatAPI) SendMessage(_ context.Context, req client.SendMessageRequest) (*types.Message, error) {
	if f.send == nil {
		return &types.Message{ID: "srv", Role: req.Role, Content: req.Content}, nil
	}
	return f.send(req)
}

func (f *fakeChatAPI) ListMessages(_ context.Context, sessionID string, page, perPage int) ([]*types.Message, error) {
	if f.list == nil {
		return nil, nil
	}
	return f.list(sessionID, page, perPage)
}

type fakeRealtime struct {
	opened   []string
	closed   int
	handlers realtime.Handlers
}

func (f *fakeRealtime) Open(sessionID string) (*realtime.Channel, error) {
	f.opened = append(f.opened, sessionID)
	return nil, nil
}

func (f *fakeRealtime) SetHandlers(handlers realtime.Handlers) {
	f.handlers = handlers
}

func (f *fakeRealtime) Close() {
	f.closed++
}

func newTestModel(t *testing.T, configure ...func(*Options)) *Model {
	t.Helper()
	opts := Options{Now: func() time.Time { return testNow }}
	for _, fn := range configure {
		fn(&opts)
	}
	m := NewModel(opts)
	return &m
}

// drive runs cmd and every command it produces, feeding results back into
// the model. Timers and quit are skipped.
func drive(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case nil, tickMsg, spinner.TickMsg, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, follow := m.Update(msg)
			queue = append(queue, follow)
			for _, posted := range m.pump.drain() {
				_, follow := m.Update(posted)
				queue = append(queue, follow)
			}
		}
	}
}

func stamp(offset time.Duration) *time.Time {
	ts := testNow.Add(offset)
	return &ts
}

func TestProgressChunksAccumulateForActiveSession(t *testing.T) {
	rt := &fakeRealtime{}
	m := newTestModel(t, func(o *Options) { o.Realtime = rt })
	m.openSession("s1")

	m.Update(realtimeProgressMsg{sessionID: "s1", payload: types.ChatAnalysisProgressPayload{MessageID: "m1", Chunk: "Hel"}})
	m.Update(realtimeProgressMsg{sessionID: "s1", payload: types.ChatAnalysisProgressPayload{MessageID: "m1", Chunk: "lo"}})
	m.Update(realtimeProgressMsg{sessionID: "s2", payload: types.ChatAnalysisProgressPayload{MessageID: "m9", Chunk: "stray"}})

	last := m.conversation.LastAssistant()
	if last == nil || last.Content != "Hello" {
		t.Fatalf("expected streamed reply Hello, got %#v", last)
	}
	if m.conversation.Len() != 2 {
		t.Fatalf("expected greeting plus one reply, got %d", m.conversation.Len())
	}
	if len(rt.opened) != 1 || rt.opened[0] != "s1" {
		t.Fatalf("expected realtime opened for s1, got %v", rt.opened)
	}
	if rt.handlers.OnProgress == nil {
		t.Fatalf("expected realtime handlers installed")
	}
}

func TestOpenSameSessionIsNoop(t *testing.T) {
	rt := &fakeRealtime{}
	m := newTestModel(t, func(o *Options) { o.Realtime = rt })
	m.openSession("s1")
	if cmd := m.openSession("s1"); cmd != nil {
		t.Fatalf("expected no commands when reopening the active session")
	}
	if len(rt.opened) != 1 {
		t.Fatalf("expected a single realtime open, got %v", rt.opened)
	}
}

func TestSendFailureRollsBackOptimisticMessage(t *testing.T) {
	chatAPI := &fakeChatAPI{send: func(client.SendMessageRequest) (*types.Message, error) {
		return nil, errors.New("boom")
	}}
	m := newTestModel(t, func(o *Options) { o.Chat = chatAPI })
	m.openSession("s1")
	m.activeSession.Status = types.SessionStatusCompleted
	m.compose.SetValue("how did I sound?")

	cmd := m.submitMessage()
	if cmd == nil {
		t.Fatalf("expected send command")
	}
	if m.conversation.Len() != 2 {
		t.Fatalf("expected optimistic message appended, got %d", m.conversation.Len())
	}
	drive(t, m, cmd)

	if m.conversation.Len() != 1 {
		t.Fatalf("expected optimistic message removed, got %d", m.conversation.Len())
	}
	if !strings.Contains(m.toastText, "boom") || m.toastLevel != toastLevelError {
		t.Fatalf("expected error toast, got %q (%v)", m.toastText, m.toastLevel)
	}
}

func TestSendSuccessConfirmsMessageWithAnalysisContext(t *testing.T) {
	var got client.SendMessageRequest
	chatAPI := &fakeChatAPI{send: func(req client.SendMessageRequest) (*types.Message, error) {
		got = req
		return &types.Message{ID: "srv-1", Role: req.Role, Content: req.Content}, nil
	}}
	m := newTestModel(t, func(o *Options) { o.Chat = chatAPI })
	m.openSession("s1")
	m.activeSession.Status = types.SessionStatusCompleted
	m.activeSession.Result = &types.AnalysisResult{Summary: "calm"}
	m.compose.SetValue("hello")

	drive(t, m, m.submitMessage())

	msgs := m.conversation.Messages()
	if len(msgs) != 2 || msgs[1].ID != "srv-1" {
		t.Fatalf("expected confirmed message, got %#v", msgs)
	}
	if got.SessionID != "s1" || got.Role != types.MessageRoleUser {
		t.Fatalf("unexpected request %#v", got)
	}
	if !strings.Contains(got.AnalysisContext, `"summary":"calm"`) {
		t.Fatalf("expected analysis context, got %q", got.AnalysisContext)
	}
	if m.compose.Value() != "" {
		t.Fatalf("expected compose cleared")
	}
}

func TestSendBlockedUntilAnalysisCompletes(t *testing.T) {
	m := newTestModel(t, func(o *Options) { o.Chat = &fakeChatAPI{} })
	m.openSession("s1")
	m.compose.SetValue("hello")
	if cmd := m.submitMessage(); cmd != nil {
		t.Fatalf("expected no send while analysis is pending")
	}
	if m.conversation.Len() != 1 {
		t.Fatalf("expected no optimistic message")
	}
	if m.toastLevel != toastLevelWarning {
		t.Fatalf("expected warning toast, got %v", m.toastLevel)
	}
}

func historyPages() func(string, int, int) ([]*types.Message, error) {
	return func(_ string, page, perPage int) ([]*types.Message, error) {
		var out []*types.Message
		switch page {
		case 0:
			for i := perPage - 1; i >= 0; i-- {
				out = append(out, &types.Message{
					ID:        fmt.Sprintf("c%02d", i),
					Role:      types.MessageRoleUser,
					Content:   fmt.Sprintf("current %02d", i),
					CreatedAt: stamp(time.Duration(i) * time.Minute),
				})
			}
		case 1:
			for i := 4; i >= 0; i-- {
				out = append(out, &types.Message{
					ID:        fmt.Sprintf("o%02d", i),
					Role:      types.MessageRoleAssistant,
					Content:   fmt.Sprintf("older %02d", i),
					CreatedAt: stamp(-time.Duration(5-i) * time.Minute),
				})
			}
		}
		return out, nil
	}
}

func TestHistoryPrependKeepsViewportAnchored(t *testing.T) {
	m := newTestModel(t, func(o *Options) {
		o.Chat = &fakeChatAPI{list: historyPages()}
		o.HistoryPageSize = 20
	})
	m.resize(100, 20)
	drive(t, m, m.openSession("s1"))
	m.tab = tabChat

	if m.conversation.Len() != 20 || m.conversation.HasGreeting() {
		t.Fatalf("expected first page to replace greeting, got %d", m.conversation.Len())
	}
	if !m.transcript.AtBottom() {
		t.Fatalf("expected transcript pinned to bottom after first page")
	}

	m.transcript.GotoTop()
	m.follow = false
	cmd := m.scrollActive(-1)
	if cmd == nil {
		t.Fatalf("expected older page request at top")
	}
	if again := m.scrollActive(-1); again != nil {
		t.Fatalf("expected no second request while loading")
	}
	drive(t, m, cmd)

	if m.conversation.Len() != 25 {
		t.Fatalf("expected 25 messages after prepend, got %d", m.conversation.Len())
	}
	if m.transcript.YOffset == 0 {
		t.Fatalf("expected viewport offset shifted by the prepended lines")
	}
	visible := xansi.Strip(m.transcript.View())
	if !strings.Contains(visible, "current 00") {
		t.Fatalf("expected previous top message still visible, got %q", visible)
	}
	if strings.Contains(visible, "older 04") {
		t.Fatalf("expected prepended messages above the viewport, got %q", visible)
	}
	if !m.history.Exhausted() {
		t.Fatalf("expected history exhausted after short page")
	}
}

func TestStaleHistoryDroppedAfterSwitchingSessions(t *testing.T) {
	chatAPI := &fakeChatAPI{list: func(sessionID string, page, perPage int) ([]*types.Message, error) {
		return []*types.Message{{ID: sessionID + "-m", Role: types.MessageRoleUser, Content: "from " + sessionID, CreatedAt: stamp(0)}}, nil
	}}
	m := newTestModel(t, func(o *Options) { o.Chat = chatAPI })

	first := m.openSession("s1")
	second := m.openSession("s2")
	drive(t, m, first)

	if m.conversation.SessionID() != "s2" || !m.conversation.HasGreeting() {
		t.Fatalf("expected s1 results dropped, got %#v", m.conversation.Messages())
	}
	drive(t, m, second)
	msgs := m.conversation.Messages()
	if len(msgs) != 1 || msgs[0].Content != "from s2" {
		t.Fatalf("expected s2 history, got %#v", msgs)
	}
}

func seedSessions(t *testing.T, m *Model, list []*types.Session, total int) {
	t.Helper()
	req := m.syncer.Reset("")
	m.applySessionsPage(sessions.Result{Request: req, Sessions: list, Total: total})
}

func TestCompleteEventUpsertsAndRendersResult(t *testing.T) {
	m := newTestModel(t)
	m.resize(120, 40)
	seedSessions(t, m, []*types.Session{
		{ID: "a", Status: types.SessionStatusCompleted},
		{ID: "s1", Title: "Dinner plans", Status: types.SessionStatusProcessing},
	}, 2)
	m.openSession("s1")

	m.Update(realtimeCompleteMsg{payload: types.AnalysisSessionCompletePayload{
		SessionID:      "s1",
		Status:         types.SessionStatusCompleted,
		AnalysisResult: &types.AnalysisResult{Summary: "Both sides want reassurance"},
	}})

	list := m.syncer.Sessions()
	if list[0].ID != "s1" || list[0].Status != types.SessionStatusCompleted || list[0].Title != "Dinner plans" {
		t.Fatalf("expected s1 moved to front as completed, got %#v", list[0])
	}
	if m.activeSession.Status != types.SessionStatusCompleted {
		t.Fatalf("expected active session completed")
	}
	view := xansi.Strip(m.analysisView.View())
	if !strings.Contains(view, "reassurance") {
		t.Fatalf("expected summary in analysis pane, got %q", view)
	}
	if m.toastText != "analysis ready" {
		t.Fatalf("expected ready toast, got %q", m.toastText)
	}
}

func TestLoadMoreAtSidebarSentinel(t *testing.T) {
	api := &fakeSessionAPI{list: func(params client.ListParams) (*client.SessionsPage, error) {
		page := &client.SessionsPage{Meta: client.PageMeta{Total: 3}}
		if params.Page == 0 {
			page.Data = []*types.Session{{ID: "a"}, {ID: "b"}}
		} else {
			page.Data = []*types.Session{{ID: "c"}}
		}
		return page, nil
	}}
	m := newTestModel(t, func(o *Options) {
		o.Sessions = api
		o.SessionsPageSize = 2
	})
	m.resize(120, 30)
	drive(t, m, fetchSessionsCmd(m.syncer, m.syncer.Reset("")))

	if got := len(m.sidebar.Items()); got != 3 {
		t.Fatalf("expected two sessions plus sentinel, got %d", got)
	}
	m.handleKey(tea.KeyMsg{Type: tea.KeyDown})
	cmd := m.handleKey(tea.KeyMsg{Type: tea.KeyDown})
	if cmd == nil {
		t.Fatalf("expected next page request at sentinel")
	}
	drive(t, m, cmd)

	if got := len(m.syncer.Sessions()); got != 3 {
		t.Fatalf("expected three sessions, got %d", got)
	}
	if m.syncer.HasMoreSessions() {
		t.Fatalf("expected no more pages")
	}
	if got := len(m.sidebar.Items()); got != 3 {
		t.Fatalf("expected sentinel removed, got %d items", got)
	}
	if len(api.listed) != 2 || api.listed[1].Page != 1 || api.listed[1].Order != client.DefaultSessionOrder {
		t.Fatalf("unexpected list calls %#v", api.listed)
	}
}

func TestSearchResetsSessionList(t *testing.T) {
	api := &fakeSessionAPI{list: func(params client.ListParams) (*client.SessionsPage, error) {
		return &client.SessionsPage{Data: []*types.Session{{ID: "match-" + params.Search}}, Meta: client.PageMeta{Total: 1}}, nil
	}}
	m := newTestModel(t, func(o *Options) { o.Sessions = api })

	m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if m.mode != modeSearch {
		t.Fatalf("expected search mode")
	}
	m.search.SetValue("mom")
	drive(t, m, m.handleKey(tea.KeyMsg{Type: tea.KeyEnter}))

	list := m.syncer.Sessions()
	if len(list) != 1 || list[0].ID != "match-mom" {
		t.Fatalf("expected search results, got %#v", list)
	}
	if m.appState.SearchQuery != "mom" || m.mode != modeNormal {
		t.Fatalf("expected search saved and mode reset")
	}
}

func TestSignedOutEventQuits(t *testing.T) {
	rt := &fakeRealtime{}
	m := newTestModel(t, func(o *Options) { o.Realtime = rt })

	cmd := m.applyAuthEvent(auth.Event{Kind: auth.EventSignedOut, Err: auth.ErrSessionExpired})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
	if !errors.Is(m.exitErr, ErrSignedOut) {
		t.Fatalf("expected ErrSignedOut, got %v", m.exitErr)
	}
	if rt.closed != 1 {
		t.Fatalf("expected realtime closed, got %d", rt.closed)
	}
}

func TestRealtimeStatusTracksActiveSessionOnly(t *testing.T) {
	m := newTestModel(t)
	m.openSession("s1")

	m.Update(realtimeStatusMsg{status: realtime.Status{SessionID: "old", State: realtime.StateClosed}})
	if m.channelState != realtime.StateIdle.String() {
		t.Fatalf("expected stale status ignored, got %q", m.channelState)
	}
	m.Update(realtimeStatusMsg{status: realtime.Status{SessionID: "s1", State: realtime.StateDisconnected, Err: errors.New("reset by peer")}})
	if m.channelState != realtime.StateDisconnected.String() {
		t.Fatalf("expected disconnected state, got %q", m.channelState)
	}
	if m.toastLevel != toastLevelWarning {
		t.Fatalf("expected warning toast")
	}
}

func TestLegacyAnalysisPayloadFillsMissingResult(t *testing.T) {
	m := newTestModel(t)
	m.resize(120, 40)
	seedSessions(t, m, []*types.Session{
		{ID: "a", Status: types.SessionStatusCompleted},
		{ID: "s1", Title: "Dinner plans", Status: types.SessionStatusPending},
	}, 2)
	m.openSession("s1")
	before := m.conversation.Len()

	m.Update(realtimeResponseMsg{sessionID: "s1", data: []byte(`{"id":"a1","summary":"A tense exchange.","emotionAnalysis":{"user":"hurt","partner":"defensive"}}`)})

	if m.activeSession.Result == nil || m.activeSession.Result.Summary != "A tense exchange." {
		t.Fatalf("expected legacy payload to become the result, got %#v", m.activeSession.Result)
	}
	if m.activeSession.Status != types.SessionStatusCompleted {
		t.Fatalf("expected session completed, got %q", m.activeSession.Status)
	}
	if m.conversation.Len() != before {
		t.Fatalf("expected chat untouched, got %d messages (was %d)", m.conversation.Len(), before)
	}
	if list := m.syncer.Sessions(); list[0].ID != "s1" || list[0].Result == nil {
		t.Fatalf("expected s1 upserted with its result, got %#v", list[0])
	}
	if view := xansi.Strip(m.analysisView.View()); !strings.Contains(view, "A tense exchange.") {
		t.Fatalf("expected summary in analysis pane, got %q", view)
	}
}

func TestLegacyAnalysisPayloadKeepsExistingResult(t *testing.T) {
	m := newTestModel(t)
	seedSessions(t, m, []*types.Session{
		{ID: "s1", Status: types.SessionStatusCompleted, Result: &types.AnalysisResult{Summary: "first"}},
	}, 1)
	m.openSession("s1")

	m.Update(realtimeResponseMsg{sessionID: "s1", data: []byte(`{"summary":"second"}`)})
	m.Update(realtimeResponseMsg{sessionID: "other", data: []byte(`{"summary":"stray"}`)})

	if got := m.activeSession.Result.Summary; got != "first" {
		t.Fatalf("expected shown result kept, got %q", got)
	}
}

func TestCompletedAnalysisRefetchesSession(t *testing.T) {
	api := &fakeSessionAPI{get: func(id string) (*types.Session, error) {
		return &types.Session{
			ID:           id,
			Title:        "Dinner with Sam",
			Status:       types.SessionStatusCompleted,
			Relationship: &types.Relationship{Relation: types.RelationshipPartner},
		}, nil
	}}
	m := newTestModel(t, func(o *Options) { o.Sessions = api })
	m.resize(120, 40)
	seedSessions(t, m, []*types.Session{{ID: "s1", Status: types.SessionStatusProcessing}}, 1)
	m.openSession("s1")

	_, cmd := m.Update(realtimeCompleteMsg{payload: types.AnalysisSessionCompletePayload{
		SessionID:      "s1",
		Status:         types.SessionStatusCompleted,
		AnalysisResult: &types.AnalysisResult{Summary: "calm"},
	}})
	if cmd == nil {
		t.Fatalf("expected a session refresh after completion")
	}
	drive(t, m, cmd)

	stored := m.syncer.Find("s1")
	if stored == nil || stored.Title != "Dinner with Sam" || stored.Relationship == nil {
		t.Fatalf("expected refreshed session in the list, got %#v", stored)
	}
	if m.activeSession.Title != "Dinner with Sam" {
		t.Fatalf("expected active session refreshed, got %q", m.activeSession.Title)
	}
	if m.activeSession.Result == nil || m.activeSession.Result.Summary != "calm" {
		t.Fatalf("expected known result kept when the read lags, got %#v", m.activeSession.Result)
	}
}

func TestViewShowsToastOverlay(t *testing.T) {
	m := newTestModel(t)
	m.resize(100, 20)
	m.showErrorToast("could not reach server")

	plain := xansi.Strip(m.View())
	if !strings.Contains(plain, "could not reach server") {
		t.Fatalf("expected toast text in view output: %q", plain)
	}
}

func TestHandleTickClearsExpiredToast(t *testing.T) {
	m := newTestModel(t)
	m.showWarningToast("heads up")

	m.handleTick(tickMsg(testNow.Add(toastDuration + time.Millisecond)))
	if m.toastText != "" {
		t.Fatalf("expected toast to clear after expiry, got %q", m.toastText)
	}
	if m.toastLevel != toastLevelInfo {
		t.Fatalf("expected level reset after clear, got %v", m.toastLevel)
	}
}

func TestSidebarToggleResizesMainPane(t *testing.T) {
	m := newTestModel(t)
	m.resize(120, 30)
	withSidebar := m.transcript.Width

	m.handleKey(tea.KeyMsg{Type: tea.KeyCtrlB})
	if !m.appState.SidebarCollapsed {
		t.Fatalf("expected sidebar collapsed")
	}
	if m.transcript.Width != 120 || withSidebar >= 120 {
		t.Fatalf("expected full width transcript, got %d (was %d)", m.transcript.Width, withSidebar)
	}
}
