package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"convocoach/internal/app"
	"convocoach/internal/auth"
	coachclient "convocoach/internal/client"
	"convocoach/internal/config"
	"convocoach/internal/logging"
	"convocoach/internal/media"
	"convocoach/internal/realtime"
	"convocoach/internal/store"
	"convocoach/internal/types"
)

var errNotSignedIn = errors.New("not signed in: run `convocoach login` first")

const (
	analysisPollInterval = 5 * time.Second
	joinWait             = 3 * time.Second
)

type clientFactory func() (commandClient, error)

type commandClient interface {
	SignIn(ctx context.Context, email, password string) (*types.User, error)
	SignUp(ctx context.Context, user coachclient.SignUpUser) (*types.User, error)
	SignOut(ctx context.Context) error
	SignedIn() bool
	Profile(ctx context.Context) (*types.User, error)
	UpdateProfile(ctx context.Context, req coachclient.UpdateProfileRequest) (*types.User, error)
	UploadAvatar(ctx context.Context, path string) (string, error)
	ListSessions(ctx context.Context, params coachclient.ListParams) (*coachclient.SessionsPage, error)
	GetSession(ctx context.Context, id string) (*types.Session, error)
	ListMessages(ctx context.Context, sessionID string, page, perPage int) ([]*types.Message, error)
	StartAnalysis(ctx context.Context, req app.AnalysisRequest, progress media.ProgressFunc) (*types.Session, error)
	WaitForAnalysis(ctx context.Context, sessionID string) (*types.Session, error)
	SendMessage(ctx context.Context, sessionID, content string, onChunk func(string)) (*types.Message, error)
	RunUI() error
	Close() error
}

// coachClientAdapter owns everything a command needs: config, the local
// store, the refresh coordinator, the API client and the realtime manager.
type coachClientAdapter struct {
	cfg         config.CoreConfig
	logger      logging.Logger
	closeLog    func() error
	repo        store.Repository
	container   *auth.Container
	coordinator *auth.Coordinator
	api         *coachclient.Client
	realtime    *realtime.Manager
	uploader    *media.Uploader
}

func newCoachClient() (commandClient, error) {
	cfg, err := config.LoadCoreConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logPath, err := config.LogPath()
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := logging.NewFile(logPath, logging.ParseLevel(cfg.LogLevel()))
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	repo, err := openRepository(cfg)
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	container := auth.NewContainer(repo.Auth(), logger)
	if err := container.Load(ctx); err != nil {
		logger.Warn("auth_load_failed", logging.F("error", err))
	}
	deviceID, err := auth.DeviceID(ctx, repo.Auth())
	if err != nil {
		_ = repo.Close()
		_ = closeLog()
		return nil, fmt.Errorf("device id: %w", err)
	}

	api := coachclient.New(cfg.APIBaseURL(),
		coachclient.WithTimeout(cfg.RequestTimeout()),
		coachclient.WithLogger(logger),
	)
	coordinator := auth.NewCoordinator(container, deviceID, api.RefreshFunc(),
		auth.WithRefreshSkew(cfg.RefreshSkew()),
		auth.WithRefreshTimeout(cfg.RequestTimeout()),
		auth.WithCoordinatorLogger(logger),
	)
	api.SetTokenSource(coordinator)

	manager := realtime.NewManager(realtime.Options{
		URL:               cfg.RealtimeURL(),
		Token:             coordinator.AccessToken,
		ReconnectAttempts: cfg.ReconnectAttempts(),
		ReconnectDelay:    cfg.ReconnectDelay(),
		HandshakeTimeout:  cfg.HandshakeTimeout(),
		Debug:             cfg.StreamDebugEnabled(),
		Logger:            logger,
	})

	adapter := &coachClientAdapter{
		cfg:         cfg,
		logger:      logger,
		closeLog:    closeLog,
		repo:        repo,
		container:   container,
		coordinator: coordinator,
		api:         api,
		realtime:    manager,
	}
	uploader, err := media.NewUploader(media.Config{
		BaseURL:      cfg.MediaBaseURL(),
		CloudName:    cfg.Media.CloudName,
		UploadPreset: cfg.Media.UploadPreset,
		Folder:       cfg.UploadFolder(),
		Timeout:      cfg.UploadTimeout(),
		Limits:       media.Limits{MaxFiles: cfg.MaxUploadFiles(), MaxBytes: cfg.MaxUploadBytes()},
		Compress:     cfg.CompressUploads(),
	}, media.WithLogger(logger))
	switch {
	case err == nil:
		adapter.uploader = uploader
	case errors.Is(err, media.ErrNotConfigured):
		logger.Info("media_uploads_disabled")
	default:
		_ = adapter.Close()
		return nil, err
	}
	return adapter, nil
}

func openRepository(cfg config.CoreConfig) (store.Repository, error) {
	authPath, err := config.AuthPath()
	if err != nil {
		return nil, err
	}
	statePath, err := config.StatePath()
	if err != nil {
		return nil, err
	}
	cachePath, err := config.SessionsCachePath()
	if err != nil {
		return nil, err
	}
	dbPath, err := config.StorePath()
	if err != nil {
		return nil, err
	}
	return store.OpenRepository(store.RepositoryPaths{
		AuthPath:          authPath,
		AppStatePath:      statePath,
		SessionsCachePath: cachePath,
		DBPath:            dbPath,
	}, cfg.StorageBackend())
}

func (c *coachClientAdapter) SignIn(ctx context.Context, email, password string) (*types.User, error) {
	resp, err := c.api.SignIn(ctx, coachclient.SignInRequest{
		Email:    strings.TrimSpace(email),
		Password: password,
		DeviceID: c.coordinator.DeviceID(),
	})
	if err != nil {
		return nil, err
	}
	if err := c.container.SignIn(ctx, resp.State()); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *coachClientAdapter) SignUp(ctx context.Context, user coachclient.SignUpUser) (*types.User, error) {
	resp, err := c.api.SignUp(ctx, coachclient.SignUpRequest{User: user, DeviceID: c.coordinator.DeviceID()})
	if err != nil {
		return nil, err
	}
	if err := c.container.SignIn(ctx, resp.State()); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// SignOut tells the server when it can and clears local credentials either way.
func (c *coachClientAdapter) SignOut(ctx context.Context) error {
	if c.SignedIn() {
		if err := c.api.SignOut(ctx); err != nil {
			c.logger.Warn("server_logout_failed", logging.F("error", err))
		}
	}
	return c.container.SignOut(ctx, nil)
}

func (c *coachClientAdapter) SignedIn() bool {
	state := c.container.Snapshot()
	return state.SignedIn()
}

func (c *coachClientAdapter) Profile(ctx context.Context) (*types.User, error) {
	return c.api.GetMyProfile(ctx)
}

func (c *coachClientAdapter) UpdateProfile(ctx context.Context, req coachclient.UpdateProfileRequest) (*types.User, error) {
	return c.api.UpdateMyProfile(ctx, req)
}

func (c *coachClientAdapter) UploadAvatar(ctx context.Context, path string) (string, error) {
	if c.uploader == nil {
		return "", media.ErrNotConfigured
	}
	file, err := media.LoadFile(path)
	if err != nil {
		return "", err
	}
	return c.uploader.UploadAvatar(ctx, file)
}

func (c *coachClientAdapter) ListSessions(ctx context.Context, params coachclient.ListParams) (*coachclient.SessionsPage, error) {
	return c.api.ListSessions(ctx, params)
}

func (c *coachClientAdapter) GetSession(ctx context.Context, id string) (*types.Session, error) {
	return c.api.GetSession(ctx, id)
}

func (c *coachClientAdapter) ListMessages(ctx context.Context, sessionID string, page, perPage int) ([]*types.Message, error) {
	return c.api.ListMessages(ctx, sessionID, page, perPage)
}

func (c *coachClientAdapter) StartAnalysis(ctx context.Context, req app.AnalysisRequest, progress media.ProgressFunc) (*types.Session, error) {
	if req.Model == "" {
		req.Model = types.GeminiModel(c.cfg.AnalysisModel())
	}
	var uploader app.MediaUploader
	if c.uploader != nil {
		uploader = c.uploader
	}
	return app.StartAnalysis(ctx, uploader, c.api, req, progress)
}

// WaitForAnalysis blocks until the session reaches a terminal status. The
// realtime events are the fast path; the session is also polled in case the
// socket drops for good.
func (c *coachClientAdapter) WaitForAnalysis(ctx context.Context, sessionID string) (*types.Session, error) {
	outcomes := make(chan analysisOutcome, 1)
	deliver := func(outcome analysisOutcome) {
		select {
		case outcomes <- outcome:
		default:
		}
	}
	c.realtime.SetHandlers(realtime.Handlers{
		OnComplete: func(payload types.AnalysisSessionCompletePayload) {
			if payload.SessionID == sessionID {
				deliver(analysisOutcome{status: payload.Status, result: payload.AnalysisResult})
			}
		},
		OnAnalysisResponse: func(id string, data json.RawMessage) {
			if id != sessionID {
				return
			}
			if result, ok := app.LegacyAnalysisResult(data); ok {
				deliver(analysisOutcome{status: types.SessionStatusCompleted, result: result})
			}
		},
	})
	if _, err := c.realtime.Open(sessionID); err != nil {
		c.logger.Warn("realtime_open_failed", logging.F("session_id", sessionID), logging.F("error", err))
	}
	defer c.realtime.Close()
	return awaitAnalysis(ctx, sessionID, c.api.GetSession, outcomes, analysisPollInterval, c.logger)
}

// analysisOutcome is what a realtime event says about a finished analysis.
type analysisOutcome struct {
	status types.SessionStatus
	result *types.AnalysisResult
}

type sessionGetter func(ctx context.Context, id string) (*types.Session, error)

func awaitAnalysis(ctx context.Context, sessionID string, get sessionGetter, outcomes <-chan analysisOutcome, interval time.Duration, logger logging.Logger) (*types.Session, error) {
	poll := time.NewTicker(interval)
	defer poll.Stop()
	for {
		session, err := get(ctx, sessionID)
		if err == nil && session != nil && session.Status.Terminal() {
			return session, nil
		}
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("analysis_poll_failed", logging.F("session_id", sessionID), logging.F("error", err))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case outcome := <-outcomes:
			// Read once more so the title and relationship the server
			// assigned on completion come along.
			if fresh, err := get(ctx, sessionID); err == nil && fresh != nil {
				session = fresh
			} else if err != nil {
				logger.Warn("analysis_refresh_failed", logging.F("session_id", sessionID), logging.F("error", err))
			}
			return mergeOutcome(session, sessionID, outcome), nil
		case <-poll.C:
		}
	}
}

func mergeOutcome(session *types.Session, sessionID string, outcome analysisOutcome) *types.Session {
	merged := &types.Session{ID: sessionID}
	if session != nil {
		clone := *session
		merged = &clone
	}
	if merged.Result == nil && outcome.result != nil {
		merged.Result = outcome.result
	}
	if !merged.Status.Terminal() && outcome.status != "" {
		merged.Status = outcome.status
	}
	return merged
}

// SendMessage posts a coach question and streams the reply chunks while the
// request is in flight. The post waits briefly for the join acknowledgement
// so the first chunks are not missed.
func (c *coachClientAdapter) SendMessage(ctx context.Context, sessionID, content string, onChunk func(string)) (*types.Message, error) {
	session, err := c.api.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != types.SessionStatusCompleted {
		return nil, fmt.Errorf("session %s is %s: the coach is available once the analysis completes", sessionID, session.Status)
	}
	if onChunk != nil {
		chunks := make(chan string, 64)
		joined := make(chan struct{})
		var joinOnce sync.Once
		done := make(chan struct{})
		go func() {
			defer close(done)
			for chunk := range chunks {
				onChunk(chunk)
			}
		}()
		c.realtime.SetHandlers(realtime.Handlers{
			OnJoined: func(payload types.JoinedConversationPayload) {
				if payload.SessionID == "" || payload.SessionID == sessionID {
					joinOnce.Do(func() { close(joined) })
				}
			},
			OnProgress: func(id string, payload types.ChatAnalysisProgressPayload) {
				if id == sessionID && payload.Chunk != "" {
					chunks <- payload.Chunk
				}
			},
		})
		if _, err := c.realtime.Open(sessionID); err != nil {
			c.logger.Warn("realtime_open_failed", logging.F("session_id", sessionID), logging.F("error", err))
		} else if !waitJoined(ctx, joined, joinWait) {
			c.logger.Warn("realtime_join_timeout", logging.F("session_id", sessionID))
		}
		defer func() {
			c.realtime.Close()
			close(chunks)
			<-done
		}()
	}
	return c.api.SendMessage(ctx, coachclient.SendMessageRequest{
		SessionID:       sessionID,
		Role:            types.MessageRoleUser,
		Content:         content,
		AnalysisContext: app.AnalysisContext(session.Result),
	})
}

// waitJoined reports whether the join arrived before timeout. A missing
// join does not block the send; the reply still lands in history.
func waitJoined(ctx context.Context, joined <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-joined:
		return true
	case <-ctx.Done():
		return false
	case <-timer.C:
		return false
	}
}

func (c *coachClientAdapter) RunUI() error {
	opts := app.Options{
		Sessions:         c.api,
		Chat:             c.api,
		Realtime:         c.realtime,
		Auth:             c.container,
		AppState:         c.repo.AppState(),
		SessionCache:     c.repo.SessionCache(),
		Logger:           c.logger,
		HistoryPageSize:  c.cfg.HistoryPageSize(),
		SessionsPageSize: c.cfg.SessionsPageSize(),
		AnalysisModel:    types.GeminiModel(c.cfg.AnalysisModel()),
	}
	if c.uploader != nil {
		opts.Uploader = c.uploader
	}
	return app.Run(opts)
}

func (c *coachClientAdapter) Close() error {
	if c.realtime != nil {
		c.realtime.Close()
	}
	var errs []error
	if c.repo != nil {
		errs = append(errs, c.repo.Close())
	}
	if c.closeLog != nil {
		errs = append(errs, c.closeLog())
	}
	return errors.Join(errs...)
}
