package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"convocoach/internal/types"
)

const DefaultPageSize = 20

var ErrHistoryBusy = errors.New("history load already in progress")

// FetchFunc returns one page of messages, newest first.
type FetchFunc func(ctx context.Context, sessionID string, page, pageSize int) ([]*types.Message, error)

// Ticket identifies one page request. Results whose ticket belongs to an
// earlier generation are discarded.
type Ticket struct {
	SessionID  string
	Page       int
	PageSize   int
	Generation uint64
}

type PageResult struct {
	Ticket
	// Messages are sorted oldest first.
	Messages  []*types.Message
	Exhausted bool
	Err       error
}

// HistoryLoader pages backwards through a session's messages. It allows one
// fetch at a time and tracks liveness by generation so results that arrive
// after Reset or Close are dropped.
type HistoryLoader struct {
	fetch    FetchFunc
	pageSize int

	mu         sync.Mutex
	sessionID  string
	generation uint64
	nextPage   int
	loading    bool
	exhausted  bool
}

func NewHistoryLoader(fetch FetchFunc, pageSize int) *HistoryLoader {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &HistoryLoader{fetch: fetch, pageSize: pageSize}
}

func (l *HistoryLoader) Reset(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	l.sessionID = strings.TrimSpace(sessionID)
	l.nextPage = 0
	l.loading = false
	l.exhausted = false
}

// Close invalidates any in-flight fetch.
func (l *HistoryLoader) Close() {
	l.Reset("")
}

func (l *HistoryLoader) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

func (l *HistoryLoader) Exhausted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exhausted
}

func (l *HistoryLoader) NextPage() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextPage
}

// Begin reserves the next page. It refuses while a fetch is in flight,
// after the last page, or with no session.
func (l *HistoryLoader) Begin() (Ticket, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sessionID == "" || l.loading || l.exhausted {
		return Ticket{}, false
	}
	l.loading = true
	return Ticket{
		SessionID:  l.sessionID,
		Page:       l.nextPage,
		PageSize:   l.pageSize,
		Generation: l.generation,
	}, true
}

// Run performs the fetch for ticket. It holds no lock and may run on any
// goroutine.
func (l *HistoryLoader) Run(ctx context.Context, ticket Ticket) PageResult {
	result := PageResult{Ticket: ticket}
	if l.fetch == nil {
		result.Err = errors.New("history fetch is not configured")
		return result
	}
	msgs, err := l.fetch(ctx, ticket.SessionID, ticket.Page, ticket.PageSize)
	if err != nil {
		result.Err = err
		return result
	}
	result.Messages = SortAscending(msgs)
	result.Exhausted = len(msgs) < ticket.PageSize
	return result
}

// Complete records the outcome and reports whether the caller should
// apply it. Stale results return false.
func (l *HistoryLoader) Complete(result PageResult) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if result.Generation != l.generation {
		return false
	}
	l.loading = false
	if result.Err != nil {
		return true
	}
	l.nextPage = result.Page + 1
	l.exhausted = result.Exhausted
	return true
}

// Load runs Begin, Run and Complete in one call.
func (l *HistoryLoader) Load(ctx context.Context) (PageResult, bool, error) {
	ticket, ok := l.Begin()
	if !ok {
		return PageResult{}, false, nil
	}
	result := l.Run(ctx, ticket)
	applied := l.Complete(result)
	return result, applied, result.Err
}

// Apply merges a completed page into conv: page zero replaces, later
// pages prepend. prepended counts messages inserted above the previous top.
func Apply(conv *Conversation, result PageResult) (changed bool, prepended int) {
	if conv == nil || result.Err != nil || conv.SessionID() != result.SessionID {
		return false, 0
	}
	if result.Page == 0 {
		return conv.ReplaceHistory(result.Messages), 0
	}
	n := conv.PrependHistory(result.Messages)
	return n > 0, n
}
