// Package wstransport carries a call session over a WebSocket connection.
package wstransport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/voice-agent-console/internal/config"
	"gitlab.com/timkado/api/voice-agent-console/internal/session"
	"gitlab.com/timkado/api/voice-agent-console/pkg/logger"
	"gitlab.com/timkado/api/voice-agent-console/pkg/utils"
)

const (
	eventBuffer  = 64
	closeTimeout = time.Second
)

// envelope is the JSON frame sent by the call endpoint.
type envelope struct {
	Event      string `json:"event"`
	Transcript string `json:"transcript,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Transport implements session.Transport on top of gorilla/websocket.
type Transport struct {
	cfg    config.SessionConfig
	dialer *websocket.Dialer
	logger *zap.Logger

	events     chan session.TransportEvent
	stop       chan struct{}
	readerDone chan struct{}
	stopOnce   sync.Once

	mu      sync.Mutex
	conn    *websocket.Conn
	started bool
}

var _ session.Transport = (*Transport)(nil)

// New creates an unconnected transport.
func New(cfg config.SessionConfig, log *zap.Logger) *Transport {
	if log == nil {
		log = logger.Log
	}
	return &Transport{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger: log.Named("wstransport"),
		events: make(chan session.TransportEvent, eventBuffer),
		stop:   make(chan struct{}),
	}
}

// Factory returns a session.TransportFactory producing fresh transports for cfg.
func Factory(cfg config.SessionConfig, log *zap.Logger) session.TransportFactory {
	return func() (session.Transport, error) {
		if cfg.URL == "" {
			return nil, errors.New("session url is not configured")
		}
		return New(cfg, log), nil
	}
}

func (t *Transport) endpoint() (string, error) {
	u, err := url.Parse(t.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse session url: %w", err)
	}
	if t.cfg.SampleRate > 0 {
		q := u.Query()
		q.Set("sample_rate", strconv.Itoa(t.cfg.SampleRate))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Start dials the call endpoint with accessToken as bearer credential and
// begins reading events.
func (t *Transport) Start(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return errors.New("access token is required")
	}

	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return errors.New("transport already started")
	}
	select {
	case <-t.stop:
		t.mu.Unlock()
		return errors.New("transport stopped")
	default:
	}
	t.started = true
	t.mu.Unlock()

	endpoint, err := t.endpoint()
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+accessToken)

	conn, resp, err := t.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", t.cfg.URL, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", t.cfg.URL, err)
	}

	t.mu.Lock()
	select {
	case <-t.stop:
		t.mu.Unlock()
		_ = conn.Close()
		return errors.New("transport stopped")
	default:
	}
	t.conn = conn
	t.readerDone = make(chan struct{})
	t.mu.Unlock()

	t.logger.Debug("Call transport connected", zap.String("url", t.cfg.URL))

	utils.SafeGo(func() {
		t.read(conn)
	}, func(r interface{}, stack []byte) {
		t.logger.Error("[panic] Recovered from panic in transport reader", zap.Any("panic", r), zap.ByteString("stack", stack))
	})
	return nil
}

// Events returns the event stream. It is closed once the transport stops.
func (t *Transport) Events() <-chan session.TransportEvent {
	return t.events
}

// Stop closes the connection and the event stream. It is idempotent.
func (t *Transport) Stop() error {
	var err error
	t.stopOnce.Do(func() {
		close(t.stop)

		t.mu.Lock()
		conn := t.conn
		done := t.readerDone
		t.mu.Unlock()

		if conn == nil {
			close(t.events)
			return
		}

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "call ended")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout))
		err = conn.Close()
		<-done
	})
	return err
}

func (t *Transport) stopped() bool {
	select {
	case <-t.stop:
		return true
	default:
		return false
	}
}

func (t *Transport) read(conn *websocket.Conn) {
	defer close(t.readerDone)
	defer close(t.events)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if t.stopped() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.logger.Debug("Call endpoint closed the connection")
				return
			}
			t.logger.Warn("Call transport read failed", zap.Error(err))
			t.send(session.TransportEvent{Type: session.EventError, Err: err, At: utils.Now()})
			return
		}

		ev, ok := t.decode(raw)
		if !ok {
			continue
		}
		if !t.send(ev) {
			return
		}
	}
}

func (t *Transport) decode(raw []byte) (session.TransportEvent, bool) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.logger.Warn("Dropping malformed call event", zap.Error(err), zap.ByteString("frame", raw))
		return session.TransportEvent{}, false
	}

	eventType := session.EventType(env.Event)
	if !isTransportEvent(eventType) {
		t.logger.Debug("Ignoring unknown call event", zap.String("event", env.Event))
		return session.TransportEvent{}, false
	}

	ev := session.TransportEvent{Type: eventType, Transcript: env.Transcript, At: utils.Now()}
	if eventType == session.EventError {
		msg := env.Message
		if msg == "" {
			msg = "call endpoint reported an error"
		}
		ev.Err = errors.New(msg)
	}
	return ev, true
}

// send delivers ev unless the transport is stopping.
func (t *Transport) send(ev session.TransportEvent) bool {
	select {
	case t.events <- ev:
		return true
	case <-t.stop:
		return false
	}
}

func isTransportEvent(e session.EventType) bool {
	for _, known := range session.TransportEventTypes {
		if e == known {
			return true
		}
	}
	return false
}
