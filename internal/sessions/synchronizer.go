package sessions

import (
	"context"
	"errors"
	"strings"
	"sync"

	"convocoach/internal/logging"
	"convocoach/internal/store"
	"convocoach/internal/types"
)

const DefaultPageSize = 20

// FetchFunc loads one page ordered newest first and reports the total
// number of matching sessions.
type FetchFunc func(ctx context.Context, page, pageSize int, search string) ([]*types.Session, int, error)

type Request struct {
	Page       int
	Search     string
	Reset      bool
	Generation uint64
}

type Result struct {
	Request
	Sessions []*types.Session
	Total    int
	Err      error
}

// Synchronizer keeps the sidebar list: deduplicated by id, newest first,
// extended page by page. Results from a superseded search are dropped.
type Synchronizer struct {
	fetch    FetchFunc
	pageSize int
	cache    store.SessionCacheStore
	logger   logging.Logger

	mu         sync.Mutex
	sessions   []*types.Session
	search     string
	page       int
	hasMore    bool
	loading    bool
	generation uint64
}

type Option func(*Synchronizer)

func WithCache(cache store.SessionCacheStore) Option {
	return func(s *Synchronizer) {
		s.cache = cache
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSynchronizer(fetch FetchFunc, pageSize int, opts ...Option) *Synchronizer {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	s := &Synchronizer{
		fetch:    fetch,
		pageSize: pageSize,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// HasMore decides whether another page exists after page. A short page
// always ends the list.
func HasMore(received, total, page, pageSize int) bool {
	if received < pageSize {
		return false
	}
	return total > (page+1)*pageSize
}

// LoadCached seeds an empty list from the local cache so something shows
// before the network answers.
func (s *Synchronizer) LoadCached(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	cached, err := s.cache.Load(ctx)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) > 0 || s.search != "" {
		return 0, nil
	}
	s.sessions = dedupe(nil, cached)
	return len(s.sessions), nil
}

// Reset starts over from page zero with search. It always starts a load;
// any in-flight load is superseded.
func (s *Synchronizer) Reset(search string) Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.search = strings.TrimSpace(search)
	s.loading = true
	return Request{Page: 0, Search: s.search, Reset: true, Generation: s.generation}
}

// Next reserves the following page when one exists and nothing is loading.
func (s *Synchronizer) Next() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasMore || s.loading {
		return Request{}, false
	}
	s.loading = true
	return Request{Page: s.page + 1, Search: s.search, Generation: s.generation}, true
}

func (s *Synchronizer) Run(ctx context.Context, req Request) Result {
	result := Result{Request: req}
	if s.fetch == nil {
		result.Err = errors.New("session fetch is not configured")
		return result
	}
	result.Sessions, result.Total, result.Err = s.fetch(ctx, req.Page, s.pageSize, req.Search)
	return result
}

// Complete merges result and reports whether it was current.
func (s *Synchronizer) Complete(ctx context.Context, result Result) bool {
	s.mu.Lock()
	if result.Generation != s.generation {
		s.mu.Unlock()
		s.logger.Debug("sessions_stale_result", logging.F("search", result.Search), logging.F("page", result.Page))
		return false
	}
	s.loading = false
	if result.Err != nil {
		s.mu.Unlock()
		return true
	}
	if result.Reset {
		s.sessions = dedupe(nil, result.Sessions)
	} else {
		s.sessions = dedupe(s.sessions, result.Sessions)
	}
	s.page = result.Page
	s.hasMore = HasMore(len(result.Sessions), result.Total, result.Page, s.pageSize)
	snapshot := s.cacheSnapshotLocked()
	s.mu.Unlock()

	s.saveCache(ctx, snapshot)
	return true
}

// Refresh runs Reset, Run and Complete.
func (s *Synchronizer) Refresh(ctx context.Context, search string) error {
	result := s.Run(ctx, s.Reset(search))
	s.Complete(ctx, result)
	return result.Err
}

// LoadNext runs one Next, Run and Complete. It reports false when no page
// was requested.
func (s *Synchronizer) LoadNext(ctx context.Context) (bool, error) {
	req, ok := s.Next()
	if !ok {
		return false, nil
	}
	result := s.Run(ctx, req)
	s.Complete(ctx, result)
	return true, result.Err
}

// Upsert replaces an existing entry and moves it to the front, or inserts
// a new one at the front.
func (s *Synchronizer) Upsert(ctx context.Context, session *types.Session) {
	if session == nil || strings.TrimSpace(session.ID) == "" {
		return
	}
	clone := *session
	s.mu.Lock()
	next := make([]*types.Session, 0, len(s.sessions)+1)
	next = append(next, &clone)
	for _, existing := range s.sessions {
		if existing.ID != clone.ID {
			next = append(next, existing)
		}
	}
	s.sessions = next
	snapshot := s.cacheSnapshotLocked()
	s.mu.Unlock()

	s.saveCache(ctx, snapshot)
}

func (s *Synchronizer) Sessions() []*types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		clone := *session
		out = append(out, &clone)
	}
	return out
}

func (s *Synchronizer) Find(id string) *types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.ID == id {
			clone := *session
			return &clone
		}
	}
	return nil
}

func (s *Synchronizer) HasMoreSessions() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

func (s *Synchronizer) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Synchronizer) Search() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search
}

func (s *Synchronizer) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// cacheSnapshotLocked returns the first page for the unfiltered list, or
// nil when the list is filtered.
func (s *Synchronizer) cacheSnapshotLocked() []*types.Session {
	if s.cache == nil || s.search != "" {
		return nil
	}
	n := min(len(s.sessions), s.pageSize)
	out := make([]*types.Session, 0, n)
	for _, session := range s.sessions[:n] {
		clone := *session
		out = append(out, &clone)
	}
	return out
}

func (s *Synchronizer) saveCache(ctx context.Context, snapshot []*types.Session) {
	if snapshot == nil {
		return
	}
	if err := s.cache.Save(ctx, snapshot); err != nil {
		s.logger.Warn("sessions_cache_save_failed", logging.F("error", err))
	}
}

func dedupe(existing, incoming []*types.Session) []*types.Session {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]*types.Session, 0, len(existing)+len(incoming))
	for _, list := range [][]*types.Session{existing, incoming} {
		for _, session := range list {
			if session == nil || session.ID == "" {
				continue
			}
			if _, ok := seen[session.ID]; ok {
				continue
			}
			seen[session.ID] = struct{}{}
			clone := *session
			out = append(out, &clone)
		}
	}
	return out
}
