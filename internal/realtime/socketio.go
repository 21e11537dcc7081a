package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// The coach backend runs a socket.io server. Frames are Engine.IO v4
// packets carried as websocket text messages; a socket.io packet rides
// inside an Engine.IO "message" packet.
const (
	eioOpen    byte = '0'
	eioClose   byte = '1'
	eioPing    byte = '2'
	eioPong    byte = '3'
	eioMessage byte = '4'
	eioNoop    byte = '6'

	sioConnect      byte = '0'
	sioDisconnect   byte = '1'
	sioEvent        byte = '2'
	sioConnectError byte = '4'

	socketIOPath     = "/socket.io/"
	engineIOProtocol = "4"
)

var (
	ErrServerClosed = errors.New("realtime server closed the connection")
	errBadPacket    = errors.New("malformed socket.io packet")
)

// ConnectError is a namespace connect rejection from the server.
type ConnectError struct {
	Message string
}

func (e *ConnectError) Error() string {
	if e.Message == "" {
		return "realtime connect rejected"
	}
	return "realtime connect rejected: " + e.Message
}

// handshake is the Engine.IO open packet payload.
type handshake struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// readWindow is how long the server may stay silent before the connection
// counts as dead. Servers ping every pingInterval.
func (h handshake) readWindow() time.Duration {
	interval := time.Duration(h.PingInterval) * time.Millisecond
	timeout := time.Duration(h.PingTimeout) * time.Millisecond
	if interval <= 0 {
		interval = 25 * time.Second
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return interval + timeout
}

// event is a decoded socket.io EVENT packet.
type event struct {
	Name string
	Data json.RawMessage
}

// endpointURL turns the configured socket server address into the
// Engine.IO websocket endpoint.
func endpointURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "http", "ws":
		parsed.Scheme = "ws"
	case "https", "wss":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported realtime url scheme %q", parsed.Scheme)
	}
	if parsed.Path == "" || parsed.Path == "/" {
		parsed.Path = socketIOPath
	}
	query := parsed.Query()
	query.Set("EIO", engineIOProtocol)
	query.Set("transport", "websocket")
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func encodeConnect(auth any) ([]byte, error) {
	frame := []byte{eioMessage, sioConnect}
	if auth == nil {
		return frame, nil
	}
	payload, err := json.Marshal(auth)
	if err != nil {
		return nil, err
	}
	return append(frame, payload...), nil
}

func encodeEvent(name string, payload any) ([]byte, error) {
	args := []any{name}
	if payload != nil {
		args = append(args, payload)
	}
	body, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return append([]byte{eioMessage, sioEvent}, body...), nil
}

// decodeEvent parses the body of a socket.io EVENT packet: an optional
// namespace ("/chat,"), an optional ack id, then ["name", data?].
func decodeEvent(body []byte) (event, error) {
	if len(body) > 0 && body[0] == '/' {
		comma := bytes.IndexByte(body, ',')
		if comma < 0 {
			return event{}, errBadPacket
		}
		body = body[comma+1:]
	}
	for len(body) > 0 && body[0] >= '0' && body[0] <= '9' {
		body = body[1:]
	}
	var args []json.RawMessage
	if err := json.Unmarshal(body, &args); err != nil || len(args) == 0 {
		return event{}, errBadPacket
	}
	var out event
	if err := json.Unmarshal(args[0], &out.Name); err != nil {
		return event{}, errBadPacket
	}
	if len(args) > 1 {
		out.Data = args[1]
	}
	return out, nil
}

func decodeConnectError(body []byte) error {
	var payload struct {
		Message string `json:"message"`
	}
	if len(body) > 0 && body[0] == '/' {
		if comma := bytes.IndexByte(body, ','); comma >= 0 {
			body = body[comma+1:]
		}
	}
	_ = json.Unmarshal(body, &payload)
	return &ConnectError{Message: payload.Message}
}
