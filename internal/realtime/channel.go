package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"convocoach/internal/logging"
	"convocoach/internal/types"
)

const (
	defaultReconnectAttempts = 5
	defaultReconnectDelay    = time.Second
	defaultHandshakeTimeout  = 10 * time.Second
	writeTimeout             = 5 * time.Second
)

var ErrNoSession = errors.New("session id is required")

type Options struct {
	// URL is the socket.io server address; http(s) and ws(s) are accepted
	// and a bare host gets the default /socket.io/ path.
	URL string
	// Token, when set, supplies a bearer token for each dial. It is sent as
	// an Authorization header and as the namespace connect auth payload.
	Token             func(ctx context.Context) (string, error)
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	HandshakeTimeout  time.Duration
	// Debug logs every frame at debug level.
	Debug  bool
	Logger logging.Logger
}

func (o Options) withDefaults() Options {
	if o.ReconnectAttempts < 0 {
		o.ReconnectAttempts = 0
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = defaultReconnectDelay
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = defaultHandshakeTimeout
	}
	if o.Logger == nil {
		o.Logger = logging.Nop()
	}
	return o
}

// Channel is one realtime connection bound to a single session. It joins
// the session on every (re)connect and retries a bounded number of times
// with a fixed delay.
type Channel struct {
	sessionID string
	endpoint  string
	opts      Options
	logger    logging.Logger
	dialer    *websocket.Dialer
	handlers  atomic.Pointer[Handlers]

	mu      sync.Mutex
	state   State
	lastErr error
	conn    *websocket.Conn
	started bool

	writeMu sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewChannel(sessionID string, opts Options, handlers Handlers) (*Channel, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrNoSession
	}
	opts = opts.withDefaults()
	if strings.TrimSpace(opts.URL) == "" {
		return nil, errors.New("realtime url is required")
	}
	endpoint, err := endpointURL(opts.URL)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		sessionID: sessionID,
		endpoint:  endpoint,
		opts:      opts,
		logger:    opts.Logger.With(logging.F("session_id", sessionID)),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		state:  StateIdle,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.SetHandlers(handlers)
	return c, nil
}

func (c *Channel) SessionID() string {
	return c.sessionID
}

// SetHandlers swaps the handler set. The connection is untouched; the next
// event goes to the new handlers.
func (c *Channel) SetHandlers(handlers Handlers) {
	h := handlers
	c.handlers.Store(&h)
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) Connected() bool {
	return c.State() == StateConnected
}

func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Done is closed when the channel stops for good, either through Close or
// because reconnect attempts ran out.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

func (c *Channel) Live() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Start begins connecting. Calling it more than once is a no-op.
func (c *Channel) Start() {
	c.mu.Lock()
	if c.started || c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()
	go c.run()
}

// Close tears the connection down and waits for the loops to exit.
func (c *Channel) Close() {
	c.cancel()
	c.mu.Lock()
	conn := c.conn
	started := c.started
	c.mu.Unlock()
	if conn != nil {
		_ = c.write(conn, []byte{eioMessage, sioDisconnect})
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = conn.Close()
	}
	if started {
		<-c.done
	} else {
		c.finish()
	}
	if c.transition(StateClosed, nil) {
		c.logger.Debug("realtime_closed")
	}
}

func (c *Channel) run() {
	defer c.finish()
	failures := 0
	for {
		if c.ctx.Err() != nil {
			return
		}
		if !c.transition(StateConnecting, nil) {
			return
		}
		conn, token, err := c.dial()
		if err == nil {
			err = c.serve(conn, token, func() { failures = 0 })
		}
		if c.ctx.Err() != nil {
			return
		}
		c.transition(StateDisconnected, err)
		c.logger.Warn("realtime_disconnected", logging.F("error", err), logging.F("failures", failures))
		if failures >= c.opts.ReconnectAttempts {
			c.logger.Warn("realtime_reconnect_exhausted", logging.F("attempts", failures))
			return
		}
		failures++
		timer := time.NewTimer(c.opts.ReconnectDelay)
		select {
		case <-c.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (c *Channel) dial() (*websocket.Conn, string, error) {
	header := http.Header{}
	token := ""
	if c.opts.Token != nil {
		current, err := c.opts.Token(c.ctx)
		if err != nil {
			return nil, "", fmt.Errorf("realtime token: %w", err)
		}
		token = current
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}
	conn, resp, err := c.dialer.DialContext(c.ctx, c.endpoint, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, "", err
	}
	return conn, token, nil
}

// serve owns conn until it fails. Every event for this connection is
// dispatched from this goroutine, in arrival order. joined runs once the
// namespace connect is acknowledged.
func (c *Channel) serve(conn *websocket.Conn, token string, joined func()) error {
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return c.ctx.Err()
	}
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	hs, err := c.handshake(conn, token)
	if err != nil {
		return err
	}
	if !c.transition(StateConnected, nil) {
		return ErrInvalidTransition
	}
	joined()
	c.logger.Info("realtime_connected", logging.F("sid", hs.SID))
	if err := c.Send(types.EventStartChat, types.StartChatPayload{SessionID: c.sessionID}); err != nil {
		return err
	}
	window := hs.readWindow()
	for {
		_ = conn.SetReadDeadline(time.Now().Add(window))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := c.handleFrame(conn, raw); err != nil {
			return err
		}
	}
}

// handshake waits for the Engine.IO open packet, connects the default
// namespace and returns once the server acknowledges it.
func (c *Channel) handshake(conn *websocket.Conn, token string) (handshake, error) {
	var hs handshake
	opened := false
	_ = conn.SetReadDeadline(time.Now().Add(c.opts.HandshakeTimeout))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return hs, err
		}
		if c.opts.Debug {
			c.logger.Debug("realtime_recv", logging.F("frame", string(raw)))
		}
		if len(raw) == 0 {
			continue
		}
		switch raw[0] {
		case eioOpen:
			if err := json.Unmarshal(raw[1:], &hs); err != nil {
				return hs, fmt.Errorf("realtime open packet: %w", err)
			}
			opened = true
			var auth any
			if token != "" {
				auth = map[string]string{"token": token}
			}
			frame, err := encodeConnect(auth)
			if err != nil {
				return hs, err
			}
			if err := c.write(conn, frame); err != nil {
				return hs, err
			}
		case eioPing:
			if err := c.write(conn, pong(raw)); err != nil {
				return hs, err
			}
		case eioClose:
			return hs, ErrServerClosed
		case eioMessage:
			if !opened || len(raw) < 2 {
				continue
			}
			switch raw[1] {
			case sioConnect:
				return hs, nil
			case sioConnectError:
				return hs, decodeConnectError(raw[2:])
			}
		}
	}
}

func (c *Channel) handleFrame(conn *websocket.Conn, raw []byte) error {
	if c.opts.Debug {
		c.logger.Debug("realtime_recv", logging.F("frame", string(raw)))
	}
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case eioPing:
		return c.write(conn, pong(raw))
	case eioClose:
		return ErrServerClosed
	case eioNoop:
		return nil
	case eioMessage:
		if len(raw) < 2 {
			return nil
		}
		switch raw[1] {
		case sioEvent:
			ev, err := decodeEvent(raw[2:])
			if err != nil {
				c.logger.Warn("realtime_bad_frame", logging.F("error", err))
				return nil
			}
			c.dispatch(ev)
		case sioDisconnect:
			return ErrServerClosed
		case sioConnectError:
			return decodeConnectError(raw[2:])
		}
	}
	return nil
}

func pong(ping []byte) []byte {
	return append([]byte{eioPong}, ping[1:]...)
}

// Send emits one socket.io event on the current connection.
func (c *Channel) Send(name string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("realtime channel is not connected")
	}
	frame, err := encodeEvent(name, payload)
	if err != nil {
		return err
	}
	return c.write(conn, frame)
}

func (c *Channel) write(conn *websocket.Conn, frame []byte) error {
	if c.opts.Debug {
		c.logger.Debug("realtime_send", logging.F("frame", string(frame)))
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *Channel) dispatch(ev event) {
	h := c.handlers.Load()
	if h == nil {
		return
	}
	switch ev.Name {
	case types.EventJoinedConversation:
		var payload types.JoinedConversationPayload
		if decode(c.logger, ev, &payload) && h.OnJoined != nil {
			h.OnJoined(payload)
		}
	case types.EventChatAnalysisProgress:
		var payload types.ChatAnalysisProgressPayload
		if decode(c.logger, ev, &payload) && h.OnProgress != nil {
			h.OnProgress(c.sessionID, payload)
		}
	case types.EventAnalysisSessionComplete:
		var payload types.AnalysisSessionCompletePayload
		if decode(c.logger, ev, &payload) && h.OnComplete != nil {
			h.OnComplete(payload)
		}
	case types.EventChatAnalysisResponse:
		if h.OnAnalysisResponse != nil {
			h.OnAnalysisResponse(c.sessionID, ev.Data)
		}
	default:
		c.logger.Debug("realtime_unknown_event", logging.F("event", ev.Name))
	}
}

func decode(logger logging.Logger, ev event, out any) bool {
	if len(ev.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(ev.Data, out); err != nil {
		logger.Warn("realtime_bad_payload", logging.F("event", ev.Name), logging.F("error", err))
		return false
	}
	return true
}

// transition applies a checked state change and reports it. Invalid
// transitions are logged and ignored.
func (c *Channel) transition(to State, err error) bool {
	c.mu.Lock()
	from := c.state
	if checkErr := checkTransition(from, to); checkErr != nil {
		c.mu.Unlock()
		if from != StateClosed {
			c.logger.Debug("realtime_transition_rejected", logging.F("error", checkErr))
		}
		return false
	}
	c.state = to
	switch to {
	case StateConnected:
		c.lastErr = nil
	case StateDisconnected:
		if err != nil {
			c.lastErr = err
		}
	}
	status := Status{SessionID: c.sessionID, State: to, Err: c.lastErr}
	c.mu.Unlock()

	if h := c.handlers.Load(); h != nil && h.OnStatus != nil {
		h.OnStatus(status)
	}
	return true
}

func (c *Channel) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}
