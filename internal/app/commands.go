package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"convocoach/internal/auth"
	"convocoach/internal/chat"
	"convocoach/internal/client"
	"convocoach/internal/sessions"
	"convocoach/internal/store"
	"convocoach/internal/types"
)

const (
	tickInterval        = 200 * time.Millisecond
	listRequestTimeout  = 8 * time.Second
	sendRequestTimeout  = 2 * time.Minute
	analysisFlowTimeout = 10 * time.Minute
)

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func loadCachedSessionsCmd(syncer *sessions.Synchronizer) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		count, err := syncer.LoadCached(ctx)
		return sessionsCachedMsg{count: count, err: err}
	}
}

func fetchSessionsCmd(syncer *sessions.Synchronizer, req sessions.Request) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), listRequestTimeout)
		defer cancel()
		return sessionsPageMsg{result: syncer.Run(ctx, req)}
	}
}

func fetchHistoryCmd(loader *chat.HistoryLoader, ticket chat.Ticket) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), listRequestTimeout)
		defer cancel()
		return historyPageMsg{result: loader.Run(ctx, ticket)}
	}
}

func fetchSessionCmd(api SessionAPI, sessionID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), listRequestTimeout)
		defer cancel()
		session, err := api.GetSession(ctx, sessionID)
		return sessionLoadedMsg{sessionID: sessionID, session: session, err: err}
	}
}

// refreshSessionCmd re-reads a session once its analysis lands; the server
// fills in the title and relationship type at that point.
func refreshSessionCmd(api SessionAPI, sessionID string) tea.Cmd {
	if api == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), listRequestTimeout)
		defer cancel()
		session, err := api.GetSession(ctx, sessionID)
		return sessionLoadedMsg{sessionID: sessionID, session: session, err: err, refreshed: true}
	}
}

func sendMessageCmd(api ChatAPI, sessionID, localID, content, analysisContext string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendRequestTimeout)
		defer cancel()
		msg, err := api.SendMessage(ctx, client.SendMessageRequest{
			SessionID:       sessionID,
			Role:            types.MessageRoleUser,
			Content:         content,
			AnalysisContext: analysisContext,
		})
		return messageSentMsg{sessionID: sessionID, localID: localID, message: msg, err: err}
	}
}

// startAnalysisCmd uploads paths and opens a session. Upload progress is
// posted through send because a tea.Cmd returns only one message.
func startAnalysisCmd(uploader MediaUploader, api SessionAPI, req AnalysisRequest, send func(tea.Msg)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), analysisFlowTimeout)
		defer cancel()
		session, err := StartAnalysis(ctx, uploader, api, req, func(percent float64) {
			if send != nil {
				send(uploadProgressMsg{percent: percent})
			}
		})
		return analysisCreatedMsg{session: session, err: err}
	}
}

func saveAppStateCmd(stateStore store.AppStateStore, state types.AppState) tea.Cmd {
	if stateStore == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return appStateSavedMsg{err: stateStore.Save(ctx, &state)}
	}
}

func waitForAuthEventCmd(events <-chan auth.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return authEventMsg{event: event}
	}
}
