package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"convocoach/internal/auth"
	"convocoach/internal/chat"
	"convocoach/internal/client"
	"convocoach/internal/logging"
	"convocoach/internal/sessions"
	"convocoach/internal/store"
	"convocoach/internal/types"
)

// ErrSignedOut is returned by Run when the credentials were revoked while
// the UI was open.
var ErrSignedOut = errors.New("signed out: run `convocoach login` to continue")

const (
	headerHeight  = 1
	footerHeight  = 1
	composeHeight = 3
)

type focusArea int

const (
	focusSidebar focusArea = iota
	focusCompose
)

type inputMode int

const (
	modeNormal inputMode = iota
	modeSearch
	modeNewAnalysis
)

type sessionTab int

const (
	tabAnalysis sessionTab = iota
	tabChat
)

type Options struct {
	Sessions     SessionAPI
	Chat         ChatAPI
	Uploader     MediaUploader
	Realtime     RealtimeConnector
	Auth         *auth.Container
	AppState     store.AppStateStore
	SessionCache store.SessionCacheStore
	State        types.AppState
	Logger       logging.Logger

	HistoryPageSize  int
	SessionsPageSize int
	AnalysisModel    types.GeminiModel
	Now              func() time.Time
}

type Model struct {
	sessionsAPI   SessionAPI
	chatAPI       ChatAPI
	uploader      MediaUploader
	realtime      RealtimeConnector
	authContainer *auth.Container
	stateStore    store.AppStateStore
	logger        logging.Logger
	now           func() time.Time
	pump          *eventPump

	syncer       *sessions.Synchronizer
	history      *chat.HistoryLoader
	conversation *chat.Conversation

	sidebar         list.Model
	sidebarDelegate *sidebarDelegate
	transcript      viewport.Model
	analysisView    viewport.Model
	compose         textinput.Model
	search          textinput.Model
	filesInput      textinput.Model
	contextInput    textinput.Model
	spinner         spinner.Model

	appState      types.AppState
	activeSession *types.Session
	channelState  string
	focus         focusArea
	mode          inputMode
	tab           sessionTab
	analysisField int
	width         int
	height        int
	follow        bool
	uploading     bool
	uploadPercent float64

	authEvents <-chan auth.Event
	cancelAuth func()
	exitErr    error

	toastText  string
	toastLevel toastLevel
	toastUntil time.Time
}

func NewModel(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	state := opts.State
	if state.Model == "" {
		state.Model = opts.AnalysisModel
	}

	compose := textinput.New()
	compose.Prompt = "› "
	compose.Placeholder = "Ask your coach about this conversation"
	compose.CharLimit = 4000

	search := textinput.New()
	search.Prompt = "search: "
	search.CharLimit = 200

	filesInput := textinput.New()
	filesInput.Prompt = "files: "
	filesInput.Placeholder = "screenshot paths, separated by spaces"

	contextInput := textinput.New()
	contextInput.Prompt = "context: "
	contextInput.Placeholder = "optional note about the conversation"
	contextInput.CharLimit = 4000

	delegate := &sidebarDelegate{now: now}

	m := Model{
		sessionsAPI:     opts.Sessions,
		chatAPI:         opts.Chat,
		uploader:        opts.Uploader,
		realtime:        opts.Realtime,
		authContainer:   opts.Auth,
		stateStore:      opts.AppState,
		logger:          logger,
		now:             now,
		pump:            newEventPump(),
		history:         chat.NewHistoryLoader(historyFetcher(opts.Chat), opts.HistoryPageSize),
		conversation:    chat.NewConversation(""),
		sidebar:         newSidebarList(delegate),
		sidebarDelegate: delegate,
		transcript:      viewport.New(80, 10),
		analysisView:    viewport.New(80, 10),
		compose:         compose,
		search:          search,
		filesInput:      filesInput,
		contextInput:    contextInput,
		spinner:         spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(activityStyle)),
		appState:        state,
		focus:           focusSidebar,
		follow:          true,
	}
	m.syncer = sessions.NewSynchronizer(sessionFetcher(opts.Sessions), opts.SessionsPageSize,
		sessions.WithCache(opts.SessionCache),
		sessions.WithLogger(logger),
	)
	if m.realtime != nil {
		m.realtime.SetHandlers(realtimeHandlers(m.pump.post))
	}
	if m.authContainer != nil {
		m.authEvents, m.cancelAuth = m.authContainer.Subscribe(4)
	}
	return m
}

// Run starts the terminal UI and blocks until it exits.
func Run(opts Options) error {
	if opts.AppState != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if state, err := opts.AppState.Load(ctx); err == nil && state != nil {
			opts.State = *state
		}
		cancel()
	}
	setMarkdownBackgroundDark(lipgloss.HasDarkBackground())

	model := NewModel(opts)
	defer model.shutdown()
	p := tea.NewProgram(&model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go model.pump.run(ctx, p.Send)

	if _, err := p.Run(); err != nil {
		return err
	}
	return model.exitErr
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		tickCmd(),
		loadCachedSessionsCmd(m.syncer),
		fetchSessionsCmd(m.syncer, m.syncer.Reset(m.appState.SearchQuery)),
		waitForAuthEventCmd(m.authEvents),
	}
	if id := strings.TrimSpace(m.appState.ActiveSessionID); id != "" {
		cmds = append(cmds, m.openSession(id))
	}
	return tea.Batch(cmds...)
}

func (m *Model) shutdown() {
	if m.cancelAuth != nil {
		m.cancelAuth()
		m.cancelAuth = nil
	}
	m.history.Close()
	if m.realtime != nil {
		m.realtime.Close()
	}
}

func (m *Model) post(msg tea.Msg) {
	m.pump.post(msg)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	sidebarWidth := m.sidebarWidth()
	mainWidth := m.mainWidth()
	m.sidebar.SetSize(sidebarWidth, max(1, height-footerHeight))

	viewHeight := max(1, height-footerHeight-headerHeight-composeHeight)
	m.transcript.Width = mainWidth
	m.transcript.Height = viewHeight
	m.analysisView.Width = mainWidth
	m.analysisView.Height = viewHeight

	inputWidth := max(8, mainWidth-4)
	m.compose.Width = inputWidth - len([]rune(m.compose.Prompt))
	m.search.Width = inputWidth - len([]rune(m.search.Prompt))
	m.filesInput.Width = inputWidth - len([]rune(m.filesInput.Prompt))
	m.contextInput.Width = inputWidth - len([]rune(m.contextInput.Prompt))

	m.renderAnalysis()
	m.renderTranscript()
}

func (m *Model) sidebarWidth() int {
	if m.appState.SidebarCollapsed || m.width <= 0 {
		return 0
	}
	return sidebarWidthFor(m.width)
}

func (m *Model) mainWidth() int {
	sidebar := m.sidebarWidth()
	if sidebar == 0 {
		return max(1, m.width)
	}
	return max(1, m.width-sidebar-1)
}

func (m *Model) activeSessionID() string {
	if m.activeSession == nil {
		return ""
	}
	return m.activeSession.ID
}

func sessionFetcher(api SessionAPI) sessions.FetchFunc {
	return func(ctx context.Context, page, pageSize int, search string) ([]*types.Session, int, error) {
		if api == nil {
			return nil, 0, errors.New("session api is not configured")
		}
		res, err := api.ListSessions(ctx, client.ListParams{
			Page:    page,
			PerPage: pageSize,
			Search:  search,
			Order:   client.DefaultSessionOrder,
		})
		if err != nil {
			return nil, 0, err
		}
		return res.Data, res.Meta.Total, nil
	}
}

func historyFetcher(api ChatAPI) chat.FetchFunc {
	return func(ctx context.Context, sessionID string, page, pageSize int) ([]*types.Message, error) {
		if api == nil {
			return nil, errors.New("chat api is not configured")
		}
		return api.ListMessages(ctx, sessionID, page, pageSize)
	}
}
