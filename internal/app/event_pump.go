package app

import (
	"context"
	"encoding/json"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"convocoach/internal/realtime"
	"convocoach/internal/types"
)

// eventPump hands messages from background goroutines to the program in
// order. post never blocks, so a realtime callback that fires while Update
// is closing its channel cannot deadlock against Program.Send.
type eventPump struct {
	mu    sync.Mutex
	queue []tea.Msg
	wake  chan struct{}
}

func newEventPump() *eventPump {
	return &eventPump{wake: make(chan struct{}, 1)}
}

func (p *eventPump) post(msg tea.Msg) {
	if msg == nil {
		return
	}
	p.mu.Lock()
	p.queue = append(p.queue, msg)
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *eventPump) drain() []tea.Msg {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.queue
	p.queue = nil
	return out
}

// run delivers queued messages through send until ctx is done.
func (p *eventPump) run(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
		}
		for _, msg := range p.drain() {
			if ctx.Err() != nil {
				return
			}
			send(msg)
		}
	}
}

func realtimeHandlers(post func(tea.Msg)) realtime.Handlers {
	return realtime.Handlers{
		OnJoined: func(payload types.JoinedConversationPayload) {
			post(realtimeJoinedMsg{payload: payload})
		},
		OnProgress: func(sessionID string, payload types.ChatAnalysisProgressPayload) {
			post(realtimeProgressMsg{sessionID: sessionID, payload: payload})
		},
		OnComplete: func(payload types.AnalysisSessionCompletePayload) {
			post(realtimeCompleteMsg{payload: payload})
		},
		OnAnalysisResponse: func(sessionID string, data json.RawMessage) {
			post(realtimeResponseMsg{sessionID: sessionID, data: append(json.RawMessage(nil), data...)})
		},
		OnStatus: func(status realtime.Status) {
			post(realtimeStatusMsg{status: status})
		},
	}
}
