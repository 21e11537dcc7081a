package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"convocoach/internal/auth"
	"convocoach/internal/chat"
	"convocoach/internal/logging"
	"convocoach/internal/media"
	"convocoach/internal/realtime"
	"convocoach/internal/sessions"
	"convocoach/internal/types"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tickMsg:
		m.handleTick(msg)
		return m, tickCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.analyzing() {
			m.renderAnalysis()
		}
		return m, cmd
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.MouseMsg:
		return m, m.handleMouse(msg)
	case sessionsCachedMsg:
		if msg.err != nil {
			m.logger.Warn("session_cache_load_failed", logging.F("error", msg.err))
		} else if msg.count > 0 {
			m.refreshSidebar()
		}
		return m, nil
	case sessionsPageMsg:
		m.applySessionsPage(msg.result)
		return m, nil
	case historyPageMsg:
		m.applyHistoryPage(msg.result)
		return m, nil
	case sessionLoadedMsg:
		m.applySessionLoaded(msg)
		return m, nil
	case messageSentMsg:
		m.applyMessageSent(msg)
		return m, nil
	case uploadProgressMsg:
		if m.uploading {
			m.uploadPercent = msg.percent
		}
		return m, nil
	case analysisCreatedMsg:
		return m, m.applyAnalysisCreated(msg)
	case appStateSavedMsg:
		if msg.err != nil {
			m.logger.Warn("app_state_save_failed", logging.F("error", msg.err))
		}
		return m, nil
	case realtimeJoinedMsg:
		if msg.payload.SessionID == m.activeSessionID() {
			m.logger.Debug("realtime_joined", logging.F("session_id", msg.payload.SessionID))
		}
		return m, nil
	case realtimeProgressMsg:
		m.applyProgress(msg)
		return m, nil
	case realtimeCompleteMsg:
		return m, m.applyComplete(msg.payload)
	case realtimeResponseMsg:
		return m, m.applyLegacyResponse(msg)
	case realtimeStatusMsg:
		m.applyRealtimeStatus(msg.status)
		return m, nil
	case authEventMsg:
		return m, m.applyAuthEvent(msg.event)
	}
	return m, nil
}

func (m *Model) handleTick(msg tickMsg) {
	at := time.Time(msg)
	if m.toastText != "" && !m.toastActive(at) {
		m.clearToast()
	}
}

func (m *Model) analyzing() bool {
	return m.activeSession != nil && !m.activeSession.Status.Terminal()
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	switch m.mode {
	case modeSearch:
		return m.handleSearchKey(msg)
	case modeNewAnalysis:
		return m.handleNewAnalysisKey(msg)
	}

	switch msg.String() {
	case "tab":
		m.toggleFocus()
		return nil
	case "ctrl+b":
		m.appState.SidebarCollapsed = !m.appState.SidebarCollapsed
		m.resize(m.width, m.height)
		return saveAppStateCmd(m.stateStore, m.appState)
	case "ctrl+n":
		m.enterNewAnalysis()
		return nil
	case "ctrl+t":
		m.switchTab()
		return nil
	case "ctrl+y":
		m.copyLastReply()
		return nil
	case "ctrl+r":
		return m.reload()
	case "pgup":
		return m.scrollActive(-max(1, m.activeViewport().Height/2))
	case "pgdown":
		return m.scrollActive(max(1, m.activeViewport().Height/2))
	}

	if m.focus == focusCompose {
		switch msg.String() {
		case "esc":
			m.toggleFocus()
			return nil
		case "enter":
			return m.submitMessage()
		case "up":
			return m.scrollActive(-1)
		case "down":
			return m.scrollActive(1)
		}
		var cmd tea.Cmd
		m.compose, cmd = m.compose.Update(msg)
		return cmd
	}

	switch msg.String() {
	case "q":
		return tea.Quit
	case "up", "k":
		m.sidebar.CursorUp()
		return nil
	case "down", "j":
		m.sidebar.CursorDown()
		return m.maybeLoadMoreSessions()
	case "enter":
		return m.activateSelection()
	case "/":
		m.enterSearch()
		return nil
	case "home", "g":
		m.activeViewport().GotoTop()
		return m.scrollActive(-1)
	case "end", "G":
		m.activeViewport().GotoBottom()
		m.follow = m.tab == tabChat
		return nil
	}
	return nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if msg.Action != tea.MouseActionPress {
		return nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return m.scrollActive(-3)
	case tea.MouseButtonWheelDown:
		return m.scrollActive(3)
	}
	return nil
}

func (m *Model) toggleFocus() {
	if m.focus == focusCompose {
		m.focus = focusSidebar
		m.compose.Blur()
		return
	}
	m.focus = focusCompose
	m.tab = tabChat
	m.compose.Focus()
}

func (m *Model) switchTab() {
	if m.tab == tabChat {
		m.tab = tabAnalysis
	} else {
		m.tab = tabChat
	}
}

// scrollActive moves the visible pane. Scrolling up past the top of the
// chat asks for an older page.
func (m *Model) scrollActive(delta int) tea.Cmd {
	vp := m.activeViewport()
	atTop := vp.AtTop()
	vp.SetYOffset(vp.YOffset + delta)
	if m.tab != tabChat {
		return nil
	}
	m.follow = m.transcript.AtBottom()
	if delta < 0 && atTop {
		return m.loadOlderHistory()
	}
	return nil
}

func (m *Model) loadOlderHistory() tea.Cmd {
	ticket, ok := m.history.Begin()
	if !ok {
		return nil
	}
	m.renderTranscript()
	return fetchHistoryCmd(m.history, ticket)
}

func (m *Model) reload() tea.Cmd {
	cmds := []tea.Cmd{fetchSessionsCmd(m.syncer, m.syncer.Reset(m.syncer.Search()))}
	if id := m.activeSessionID(); id != "" {
		if m.realtime != nil {
			if _, err := m.realtime.Open(id); err != nil {
				m.showErrorToast("realtime: " + err.Error())
			}
		}
		if m.sessionsAPI != nil {
			cmds = append(cmds, fetchSessionCmd(m.sessionsAPI, id))
		}
	}
	m.refreshSidebar()
	return tea.Batch(cmds...)
}

func (m *Model) activateSelection() tea.Cmd {
	entry, ok := m.sidebar.SelectedItem().(*sidebarItem)
	if !ok || entry == nil {
		return nil
	}
	if entry.kind == sidebarLoadMore {
		return m.loadMoreSessions()
	}
	if !entry.isSession() {
		return nil
	}
	cmd := m.openSession(entry.session.ID)
	m.tab = tabAnalysis
	return cmd
}

// openSession makes id the session on screen: the transcript and history
// cursor start over and the realtime channel follows the id.
func (m *Model) openSession(id string) tea.Cmd {
	id = strings.TrimSpace(id)
	if id == "" || id == m.activeSessionID() {
		return nil
	}
	session := m.syncer.Find(id)
	if session == nil {
		session = &types.Session{ID: id, Status: types.SessionStatusPending}
	}
	m.activeSession = session
	m.conversation.Reset(id)
	m.history.Reset(id)
	m.follow = true
	m.channelState = realtime.StateIdle.String()
	m.sidebarDelegate.activeSessionID = id
	if m.realtime != nil {
		if _, err := m.realtime.Open(id); err != nil {
			m.showErrorToast("realtime: " + err.Error())
		}
	}
	m.appState.ActiveSessionID = id
	m.renderAnalysis()
	m.renderTranscript()

	cmds := []tea.Cmd{saveAppStateCmd(m.stateStore, m.appState)}
	if m.sessionsAPI != nil {
		cmds = append(cmds, fetchSessionCmd(m.sessionsAPI, id))
	}
	if ticket, ok := m.history.Begin(); ok {
		cmds = append(cmds, fetchHistoryCmd(m.history, ticket))
	}
	return tea.Batch(cmds...)
}

func (m *Model) submitMessage() tea.Cmd {
	text := strings.TrimSpace(m.compose.Value())
	if text == "" {
		return nil
	}
	session := m.activeSession
	switch {
	case session == nil:
		m.showWarningToast("open a session first")
		return nil
	case session.Status != types.SessionStatusCompleted:
		m.showWarningToast("the coach is available once the analysis completes")
		return nil
	case m.chatAPI == nil:
		m.showErrorToast("chat is not configured")
		return nil
	}
	localID := m.conversation.AppendOptimistic(text, nil)
	m.compose.Reset()
	m.follow = true
	m.renderTranscript()
	return sendMessageCmd(m.chatAPI, session.ID, localID, text, AnalysisContext(session.Result))
}

func (m *Model) applyMessageSent(msg messageSentMsg) {
	if msg.sessionID != m.conversation.SessionID() {
		return
	}
	if msg.err != nil {
		if m.conversation.Rollback(msg.localID) {
			m.renderTranscript()
		}
		m.showErrorToast("send failed: " + msg.err.Error())
		m.logger.Warn("chat_send_failed", logging.F("session_id", msg.sessionID), logging.F("error", msg.err))
		return
	}
	if m.conversation.Confirm(msg.localID, msg.message) {
		m.renderTranscript()
	}
}

func (m *Model) applySessionsPage(result sessions.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !m.syncer.Complete(ctx, result) {
		return
	}
	if result.Err != nil {
		m.showErrorToast("load sessions: " + result.Err.Error())
		m.logger.Warn("sessions_load_failed", logging.F("page", result.Page), logging.F("error", result.Err))
	}
	m.refreshSidebar()
}

func (m *Model) loadMoreSessions() tea.Cmd {
	req, ok := m.syncer.Next()
	if !ok {
		return nil
	}
	m.refreshSidebar()
	return fetchSessionsCmd(m.syncer, req)
}

// maybeLoadMoreSessions fires when the cursor reaches the sentinel row at
// the bottom of the list.
func (m *Model) maybeLoadMoreSessions() tea.Cmd {
	entry, ok := m.sidebar.SelectedItem().(*sidebarItem)
	if !ok || entry == nil || entry.kind != sidebarLoadMore {
		return nil
	}
	return m.loadMoreSessions()
}

func (m *Model) refreshSidebar() {
	selected := ""
	if entry, ok := m.sidebar.SelectedItem().(*sidebarItem); ok && entry.isSession() {
		selected = entry.session.ID
	}
	items := buildSidebarItems(m.syncer.Sessions(), m.syncer.HasMoreSessions(), m.syncer.Loading())
	m.sidebar.SetItems(items)
	if selected == "" {
		return
	}
	for i, item := range items {
		if entry, ok := item.(*sidebarItem); ok && entry.isSession() && entry.session.ID == selected {
			m.sidebar.Select(i)
			return
		}
	}
}

func (m *Model) applyHistoryPage(result chat.PageResult) {
	if !m.history.Complete(result) {
		return
	}
	if result.Err != nil {
		m.showErrorToast("load history: " + result.Err.Error())
		m.logger.Warn("history_load_failed", logging.F("session_id", result.SessionID), logging.F("page", result.Page), logging.F("error", result.Err))
		m.renderTranscript()
		return
	}
	before := m.transcript.TotalLineCount()
	offset := m.transcript.YOffset
	_, prepended := chat.Apply(m.conversation, result)
	m.renderTranscript()
	if prepended > 0 {
		// Keep the line that was on top of the viewport where it was.
		m.transcript.SetYOffset(offset + m.transcript.TotalLineCount() - before)
	}
}

func (m *Model) applySessionLoaded(msg sessionLoadedMsg) {
	if msg.err != nil {
		if msg.refreshed {
			m.logger.Warn("session_refresh_failed", logging.F("session_id", msg.sessionID), logging.F("error", msg.err))
			return
		}
		m.showErrorToast("load session: " + msg.err.Error())
		return
	}
	if msg.session == nil {
		return
	}
	session := msg.session
	if msg.refreshed {
		// A lagging read must not take back a result we already show.
		if known := m.knownSession(msg.sessionID); known != nil && known.Result != nil && session.Result == nil {
			clone := *session
			clone.Result = known.Result
			clone.Status = known.Status
			session = &clone
		}
		if m.syncer.Find(msg.sessionID) != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			m.syncer.Upsert(ctx, session)
			cancel()
			m.refreshSidebar()
		}
	}
	if msg.sessionID != m.activeSessionID() {
		return
	}
	m.activeSession = session
	m.renderAnalysis()
}

func (m *Model) knownSession(id string) *types.Session {
	if id == m.activeSessionID() {
		return m.activeSession
	}
	return m.syncer.Find(id)
}

func (m *Model) applyProgress(msg realtimeProgressMsg) {
	if msg.sessionID != m.conversation.SessionID() {
		return
	}
	if _, ok := m.conversation.ApplyChunk(msg.payload.MessageID, msg.payload.Chunk); ok {
		m.renderTranscript()
	}
}

func (m *Model) applyComplete(payload types.AnalysisSessionCompletePayload) tea.Cmd {
	id := strings.TrimSpace(payload.SessionID)
	if id == "" {
		return nil
	}
	base := m.syncer.Find(id)
	if base == nil && id == m.activeSessionID() {
		base = m.activeSession
	}
	updated := &types.Session{ID: id}
	if base != nil {
		clone := *base
		updated = &clone
	}
	if payload.Status != "" {
		updated.Status = payload.Status
	}
	if payload.AnalysisResult != nil {
		updated.Result = payload.AnalysisResult
	}
	m.storeFinished(updated)
	if updated.Status != types.SessionStatusCompleted {
		return nil
	}
	return refreshSessionCmd(m.sessionsAPI, id)
}

// applyLegacyResponse handles the older event that carries the full
// analysis result on its own. It only fills a result that is still missing.
func (m *Model) applyLegacyResponse(msg realtimeResponseMsg) tea.Cmd {
	session := m.activeSession
	if session == nil || session.ID != msg.sessionID || session.Result != nil {
		return nil
	}
	result, ok := LegacyAnalysisResult(msg.data)
	if !ok {
		m.logger.Warn("legacy_analysis_unreadable", logging.F("session_id", msg.sessionID))
		return nil
	}
	updated := *session
	updated.Result = result
	updated.Status = types.SessionStatusCompleted
	m.storeFinished(&updated)
	return refreshSessionCmd(m.sessionsAPI, updated.ID)
}

// storeFinished moves a session that reached a terminal state to the front
// of the list and shows it when it is the open one.
func (m *Model) storeFinished(updated *types.Session) {
	now := m.now().UTC()
	updated.UpdatedAt = &now

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	m.syncer.Upsert(ctx, updated)
	m.refreshSidebar()

	if updated.ID != m.activeSessionID() {
		return
	}
	m.activeSession = updated
	m.renderAnalysis()
	switch updated.Status {
	case types.SessionStatusFailed:
		m.showErrorToast("analysis failed")
	case types.SessionStatusCompleted:
		m.showInfoToast("analysis ready")
	}
}

func (m *Model) applyRealtimeStatus(status realtime.Status) {
	if status.SessionID != m.activeSessionID() {
		return
	}
	m.channelState = status.State.String()
	if status.State == realtime.StateDisconnected && status.Err != nil {
		m.showWarningToast("realtime disconnected: " + status.Err.Error())
	}
}

func (m *Model) applyAuthEvent(event auth.Event) tea.Cmd {
	if event.Kind != auth.EventSignedOut {
		return waitForAuthEventCmd(m.authEvents)
	}
	m.logger.Info("ui_signed_out", logging.F("error", event.Err))
	m.exitErr = ErrSignedOut
	if event.Err != nil && !errors.Is(event.Err, auth.ErrSessionExpired) {
		m.exitErr = errors.Join(ErrSignedOut, event.Err)
	}
	if m.realtime != nil {
		m.realtime.Close()
	}
	return tea.Quit
}

func (m *Model) enterSearch() {
	m.mode = modeSearch
	m.search.SetValue(m.syncer.Search())
	m.search.CursorEnd()
	m.search.Focus()
	m.compose.Blur()
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.exitInputMode()
		return nil
	case "enter":
		query := strings.TrimSpace(m.search.Value())
		m.exitInputMode()
		m.appState.SearchQuery = query
		req := m.syncer.Reset(query)
		m.refreshSidebar()
		return tea.Batch(fetchSessionsCmd(m.syncer, req), saveAppStateCmd(m.stateStore, m.appState))
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return cmd
}

func (m *Model) enterNewAnalysis() {
	if m.uploading {
		m.showWarningToast("an upload is already running")
		return
	}
	m.mode = modeNewAnalysis
	m.analysisField = 0
	m.filesInput.Reset()
	m.contextInput.Reset()
	m.filesInput.Focus()
	m.contextInput.Blur()
	m.compose.Blur()
}

func (m *Model) handleNewAnalysisKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.exitInputMode()
		return nil
	case "tab", "shift+tab":
		m.focusAnalysisField(1 - m.analysisField)
		return nil
	case "ctrl+g":
		m.cycleAnalysisModel()
		return nil
	case "enter":
		if m.analysisField == 0 {
			m.focusAnalysisField(1)
			return nil
		}
		return m.submitAnalysis()
	}
	var cmd tea.Cmd
	if m.analysisField == 0 {
		m.filesInput, cmd = m.filesInput.Update(msg)
	} else {
		m.contextInput, cmd = m.contextInput.Update(msg)
	}
	return cmd
}

func (m *Model) focusAnalysisField(field int) {
	m.analysisField = field
	if field == 0 {
		m.filesInput.Focus()
		m.contextInput.Blur()
		return
	}
	m.filesInput.Blur()
	m.contextInput.Focus()
}

func (m *Model) cycleAnalysisModel() {
	models := types.GeminiModels
	next := models[0]
	for i, model := range models {
		if model == m.appState.Model {
			next = models[(i+1)%len(models)]
			break
		}
	}
	m.appState.Model = next
	m.showInfoToast("model: " + string(next))
}

func (m *Model) submitAnalysis() tea.Cmd {
	paths := strings.Fields(m.filesInput.Value())
	if len(paths) == 0 {
		m.showWarningToast(media.ErrNoFiles.Error())
		m.focusAnalysisField(0)
		return nil
	}
	req := AnalysisRequest{
		Paths:          paths,
		ContextMessage: m.contextInput.Value(),
		Model:          m.appState.Model,
	}
	m.exitInputMode()
	m.uploading = true
	m.uploadPercent = 0
	return tea.Batch(
		startAnalysisCmd(m.uploader, m.sessionsAPI, req, m.post),
		saveAppStateCmd(m.stateStore, m.appState),
	)
}

func (m *Model) applyAnalysisCreated(msg analysisCreatedMsg) tea.Cmd {
	m.uploading = false
	m.uploadPercent = 0
	if msg.err != nil {
		if errors.Is(msg.err, media.ErrNotConfigured) {
			m.showErrorToast("uploads need media.cloud_name and media.upload_preset in config")
		} else {
			m.showErrorToast("analysis failed to start: " + msg.err.Error())
		}
		m.logger.Warn("analysis_start_failed", logging.F("error", msg.err))
		return nil
	}
	if msg.session == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	m.syncer.Upsert(ctx, msg.session)
	m.refreshSidebar()
	m.sidebar.Select(0)
	cmd := m.openSession(msg.session.ID)
	m.tab = tabAnalysis
	m.showInfoToast("analysis started")
	return cmd
}

func (m *Model) exitInputMode() {
	m.mode = modeNormal
	m.search.Blur()
	m.filesInput.Blur()
	m.contextInput.Blur()
	if m.focus == focusCompose {
		m.compose.Focus()
	}
}
