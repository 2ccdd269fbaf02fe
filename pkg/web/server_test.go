package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-companion/internal/log"
	"github.com/teslashibe/go-companion/pkg/avatar"
	"github.com/teslashibe/go-companion/pkg/chat"
	"github.com/teslashibe/go-companion/pkg/eventloop"
	"github.com/teslashibe/go-companion/pkg/voice"
)

type fakeVoice struct {
	mu     sync.Mutex
	status voice.Status
	calls  []string
	subs   []func(voice.Status)
}

func (f *fakeVoice) Status() voice.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeVoice) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeVoice) StartListening() error { return f.record("listen") }
func (f *fakeVoice) StopListening() error  { return f.record("stop") }

func (f *fakeVoice) SetMuted(muted bool) error {
	if muted {
		return f.record("mute")
	}
	return f.record("unmute")
}

func (f *fakeVoice) Subscribe(fn func(voice.Status)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, fn)
	return func() {}
}

func (f *fakeVoice) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fixture struct {
	loop    *eventloop.Loop
	session *chat.Session
	voice   *fakeVoice
	server  *Server
}

func newFixture(t *testing.T, withVoice bool) *fixture {
	t.Helper()
	clock := eventloop.NewManualClock(time.Unix(1700000000, 0))
	loop := eventloop.New(eventloop.WithClock(clock), eventloop.WithLogger(log.Discard()))
	session := chat.NewSession(loop, chat.WithLogger(log.Discard()))

	f := &fixture{loop: loop, session: session}
	opts := []Option{WithLogger(log.Discard())}
	if withVoice {
		f.voice = &fakeVoice{status: voice.Status{RecognitionAvailable: true}}
		opts = append(opts, WithVoice(f.voice))
	}
	f.server = NewServer(session, opts...)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.server.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestGetSession(t *testing.T) {
	f := newFixture(t, false)

	code, body := f.do(t, "GET", "/api/session", "")
	require.Equal(t, http.StatusOK, code)

	var state chat.State
	require.NoError(t, json.Unmarshal([]byte(body), &state))
	require.Len(t, state.Messages, 1)
	assert.Equal(t, chat.DefaultGreeting, state.Messages[0].Text)
	assert.False(t, state.IsProcessing)
}

func TestPostMessage(t *testing.T) {
	f := newFixture(t, false)

	code, _ := f.do(t, "POST", "/api/messages", `{"text":"Hello"}`)
	require.Equal(t, http.StatusAccepted, code)

	f.loop.RunPending()
	state := f.session.Snapshot()
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "Hello", state.Messages[1].Text)
	assert.True(t, state.Messages[1].IsUser)
	assert.True(t, state.IsProcessing)
}

func TestPostMessageValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "empty text accepted", body: `{"text":""}`, want: http.StatusAccepted},
		{name: "missing text", body: `{"message":"hi"}`, want: http.StatusBadRequest},
		{name: "malformed json", body: `{"text":`, want: http.StatusBadRequest},
		{name: "too long", body: `{"text":"` + strings.Repeat("a", 5000) + `"}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			code, body := f.do(t, "POST", "/api/messages", tt.body)
			assert.Equal(t, tt.want, code, body)
			if tt.want == http.StatusBadRequest {
				assert.Contains(t, body, `"error"`)
			}
		})
	}
}

func TestPostMessageAfterLoopStopped(t *testing.T) {
	f := newFixture(t, false)
	f.loop.Stop()

	code, body := f.do(t, "POST", "/api/messages", `{"text":"Hello"}`)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "stopped")
}

func TestAvatarRoutes(t *testing.T) {
	f := newFixture(t, false)

	code, body := f.do(t, "GET", "/api/avatars", "")
	require.Equal(t, http.StatusOK, code)
	var presets []avatar.Preset
	require.NoError(t, json.Unmarshal([]byte(body), &presets))
	assert.Equal(t, avatar.Presets, presets)

	code, _ = f.do(t, "POST", "/api/avatar/open", "")
	require.Equal(t, http.StatusAccepted, code)
	f.loop.RunPending()
	assert.True(t, f.session.Snapshot().ShowAvatarCustomizer)

	code, _ = f.do(t, "POST", "/api/avatar", `{"ref":"preset:sage"}`)
	require.Equal(t, http.StatusAccepted, code)
	f.loop.RunPending()
	state := f.session.Snapshot()
	assert.Equal(t, "preset:sage", state.CustomAvatar)
	assert.False(t, state.ShowAvatarCustomizer)

	code, _ = f.do(t, "POST", "/api/avatar", `{"ref":""}`)
	assert.Equal(t, http.StatusBadRequest, code)

	f.do(t, "POST", "/api/avatar/open", "")
	code, _ = f.do(t, "POST", "/api/avatar/close", "")
	require.Equal(t, http.StatusAccepted, code)
	f.loop.RunPending()
	state = f.session.Snapshot()
	assert.False(t, state.ShowAvatarCustomizer)
	assert.Equal(t, "preset:sage", state.CustomAvatar)
}

func TestVoiceRoutes(t *testing.T) {
	f := newFixture(t, true)

	code, body := f.do(t, "GET", "/api/voice", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"state":"idle","muted":false,"recognitionAvailable":true,"synthesisAvailable":false}`, body)

	for _, path := range []string{"/api/voice/listen", "/api/voice/stop"} {
		code, _ = f.do(t, "POST", path, "")
		assert.Equal(t, http.StatusAccepted, code)
	}

	code, _ = f.do(t, "POST", "/api/voice/mute", `{"muted":true}`)
	assert.Equal(t, http.StatusAccepted, code)
	code, _ = f.do(t, "POST", "/api/voice/mute", `{"muted":false}`)
	assert.Equal(t, http.StatusAccepted, code)
	code, _ = f.do(t, "POST", "/api/voice/mute", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	assert.Equal(t, []string{"listen", "stop", "mute", "unmute"}, f.voice.Calls())
}

func TestVoiceRoutesDisabled(t *testing.T) {
	f := newFixture(t, false)

	code, body := f.do(t, "GET", "/api/voice", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "voice control disabled")

	code, _ = f.do(t, "POST", "/api/voice/listen", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestIndexPage(t *testing.T) {
	f := newFixture(t, false)

	code, body := f.do(t, "GET", "/", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "<title>Companion</title>")
	assert.Contains(t, body, "session.onend")
	assert.Contains(t, body, `code: "`+CodeEnded+`"`)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	f := newFixture(t, false)

	code, _ := f.do(t, "GET", "/ws/state", "")
	assert.Equal(t, http.StatusUpgradeRequired, code)
}

// serve starts the server on a random local port and returns its address.
func serve(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, s.Serve(ctx, ln))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ln.Addr().String()
}

func dial(t *testing.T, addr, path string) *websocket.Conn {
	t.Helper()
	var ws *websocket.Conn
	require.Eventually(t, func() bool {
		var err error
		ws, _, err = websocket.DefaultDialer.Dial("ws://"+addr+path, nil)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	t.Cleanup(func() { ws.Close() })
	return ws
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readEnvelope(t *testing.T, ws *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env envelope
	require.NoError(t, ws.ReadJSON(&env))
	return env
}

func TestStateWebSocket(t *testing.T) {
	f := newFixture(t, true)
	addr := serve(t, f.server)
	ws := dial(t, addr, "/ws/state")

	env := readEnvelope(t, ws)
	require.Equal(t, "session", env.Type)
	var state chat.State
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.Len(t, state.Messages, 1)

	env = readEnvelope(t, ws)
	assert.Equal(t, "voice", env.Type)

	require.NoError(t, f.session.SendUserMessage("Hello"))
	f.loop.RunPending()

	env = readEnvelope(t, ws)
	require.Equal(t, "session", env.Type)
	require.NoError(t, json.Unmarshal(env.Data, &state))
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "Hello", state.Messages[1].Text)
}
