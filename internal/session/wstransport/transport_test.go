package wstransport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gitlab.com/timkado/api/voice-agent-console/internal/config"
	"gitlab.com/timkado/api/voice-agent-console/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type handshake struct {
	auth       string
	sampleRate string
}

// callEndpoint upgrades the request, reports the handshake and hands the conn to script.
func callEndpoint(t *testing.T, script func(conn *websocket.Conn)) (config.SessionConfig, <-chan handshake) {
	t.Helper()
	seen := make(chan handshake, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- handshake{auth: r.Header.Get("Authorization"), sampleRate: r.URL.Query().Get("sample_rate")}
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		script(conn)
	}))
	t.Cleanup(srv.Close)

	return config.SessionConfig{
		URL:              "ws" + strings.TrimPrefix(srv.URL, "http"),
		SampleRate:       24000,
		HandshakeTimeout: time.Second,
	}, seen
}

func collect(t *testing.T, events <-chan session.TransportEvent) []session.TransportEvent {
	t.Helper()
	var out []session.TransportEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("event stream was not closed")
			return out
		}
	}
}

func TestTransport_DeliversEventsUntilRemoteClose(t *testing.T) {
	cfg, seen := callEndpoint(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(envelope{Event: "call_started"})
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = conn.WriteJSON(envelope{Event: "agent_start_talking"})
		_ = conn.WriteJSON(envelope{Event: "metadata"})
		_ = conn.WriteJSON(envelope{Event: "update", Transcript: "Agent: Is this Mike?"})
		_ = conn.WriteJSON(envelope{Event: "call_ended"})
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		_, _, _ = conn.ReadMessage()
	})

	tr := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, tr.Start(context.Background(), "tok-123"))

	hs := <-seen
	assert.Equal(t, "Bearer tok-123", hs.auth)
	assert.Equal(t, "24000", hs.sampleRate)

	events := collect(t, tr.Events())
	var types []session.EventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []session.EventType{
		session.EventCallStarted, session.EventAgentStartTalking, session.EventUpdate, session.EventCallEnded,
	}, types)
	assert.Equal(t, "Agent: Is this Mike?", events[2].Transcript)
	assert.NoError(t, tr.Stop())
}

func TestTransport_ErrorFrameCarriesMessage(t *testing.T) {
	cfg, _ := callEndpoint(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(envelope{Event: "error", Message: "agent unavailable"})
		_, _, _ = conn.ReadMessage()
	})

	tr := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, tr.Start(context.Background(), "tok"))

	ev := <-tr.Events()
	assert.Equal(t, session.EventError, ev.Type)
	require.Error(t, ev.Err)
	assert.Equal(t, "agent unavailable", ev.Err.Error())
	require.NoError(t, tr.Stop())
}

func TestTransport_StopClosesStream(t *testing.T) {
	serverSawClose := make(chan struct{})
	cfg, _ := callEndpoint(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(envelope{Event: "call_started"})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(serverSawClose)
				return
			}
		}
	})

	tr := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, tr.Start(context.Background(), "tok"))
	assert.Equal(t, session.EventCallStarted, (<-tr.Events()).Type)

	_ = tr.Stop()
	_ = tr.Stop()
	collect(t, tr.Events())

	select {
	case <-serverSawClose:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not observe the close")
	}
}

func TestTransport_StopBeforeStart(t *testing.T) {
	tr := New(config.SessionConfig{URL: "ws://127.0.0.1:1"}, zaptest.NewLogger(t))
	require.NoError(t, tr.Stop())
	assert.Empty(t, collect(t, tr.Events()))
	assert.Error(t, tr.Start(context.Background(), "tok"))
}

func TestTransport_StartValidation(t *testing.T) {
	tr := New(config.SessionConfig{URL: "ws://127.0.0.1:1", HandshakeTimeout: 200 * time.Millisecond}, zaptest.NewLogger(t))
	assert.Error(t, tr.Start(context.Background(), ""))
	assert.Error(t, tr.Start(context.Background(), "tok"), "dial to a closed port fails")
	_ = tr.Stop()
}

func TestTransport_RejectedHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	tr := New(config.SessionConfig{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}, zaptest.NewLogger(t))
	err := tr.Start(context.Background(), "expired")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestFactory(t *testing.T) {
	_, err := Factory(config.SessionConfig{}, zaptest.NewLogger(t))()
	assert.Error(t, err)

	tr, err := Factory(config.SessionConfig{URL: "ws://localhost/ws"}, zaptest.NewLogger(t))()
	require.NoError(t, err)
	assert.NotNil(t, tr)
}
