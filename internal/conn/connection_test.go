package conn

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablestack/pokerserver/internal/protocol"
)

type fakeHandler struct {
	connects    chan struct{}
	actions     chan protocol.ActionMsg
	chats       chan protocol.ChatMsg
	sitOuts     chan bool
	disconnects chan struct{}
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{
		connects:    make(chan struct{}, 8),
		actions:     make(chan protocol.ActionMsg, 8),
		chats:       make(chan protocol.ChatMsg, 8),
		sitOuts:     make(chan bool, 8),
		disconnects: make(chan struct{}, 8),
	}
}

func (f *fakeHandler) HandleConnect(c *Connection)                  { f.connects <- struct{}{} }
func (f *fakeHandler) HandleAction(c *Connection, m protocol.ActionMsg) { f.actions <- m }
func (f *fakeHandler) HandleChat(c *Connection, m protocol.ChatMsg)  { f.chats <- m }
func (f *fakeHandler) HandleSitOut(c *Connection, out bool)          { f.sitOuts <- out }
func (f *fakeHandler) HandleDisconnect(c *Connection)                { f.disconnects <- struct{}{} }

func startTestServer(t *testing.T, h Handler) (*httptest.Server, func() *Connection) {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	var last *Connection

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		logger := log.New(os.Stderr)
		logger.SetLevel(log.ErrorLevel)
		c := New(ws, logger)
		last = c
		c.Start(h)
	}))
	t.Cleanup(ts.Close)
	return ts, func() *Connection { return last }
}

func dialConn(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return ws
}

func startAuthTestServer(t *testing.T, h Handler, key []byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	nonces := protocol.NewNonceCache()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		logger := log.New(os.Stderr)
		logger.SetLevel(log.ErrorLevel)
		c := NewWithAuth(ws, logger, MaxFrameBytes, InactivityTimeout, key, nonces)
		c.Start(h)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestConnectMessageInvokesHandleConnect(t *testing.T) {
	h := newFakeHandler()
	ts, _ := startTestServer(t, h)
	ws := dialConn(t, ts)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "Connect"}))

	select {
	case <-h.connects:
	case <-time.After(time.Second):
		t.Fatal("HandleConnect was not called")
	}
}

func TestActionMessageDispatchesToHandler(t *testing.T) {
	h := newFakeHandler()
	ts, _ := startTestServer(t, h)
	ws := dialConn(t, ts)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "Action", "action": "Fold"}))

	select {
	case m := <-h.actions:
		assert.Equal(t, protocol.ActionFold, m.Action)
	case <-time.After(time.Second):
		t.Fatal("HandleAction was not called")
	}
}

func TestUnknownTypeGetsErrorReplyNotHandlerCall(t *testing.T) {
	h := newFakeHandler()
	ts, _ := startTestServer(t, h)
	ws := dialConn(t, ts)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "Bogus"}))

	_ = ws.SetReadDeadline(time.Now().Add(time.Second))
	var resp map[string]any
	require.NoError(t, ws.ReadJSON(&resp))
	assert.Equal(t, "Error", resp["type"])
	assert.Empty(t, h.connects)
	assert.Empty(t, h.actions)
	assert.Empty(t, h.chats)
	assert.Empty(t, h.sitOuts)
}

func TestPingReceivesPongWithEchoedTimestamp(t *testing.T) {
	h := newFakeHandler()
	ts, _ := startTestServer(t, h)
	ws := dialConn(t, ts)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "Ping", "timestamp": 42}))

	_ = ws.SetReadDeadline(time.Now().Add(time.Second))
	var resp map[string]any
	require.NoError(t, ws.ReadJSON(&resp))
	assert.Equal(t, "Pong", resp["type"])
	assert.EqualValues(t, 42, resp["timestamp"])
}

func TestValidSignedEnvelopeDispatchesToHandler(t *testing.T) {
	key := []byte("test-hmac-key")
	h := newFakeHandler()
	ts := startAuthTestServer(t, h, key)
	ws := dialConn(t, ts)
	defer ws.Close()

	payload := []byte(`{"type":"Connect"}`)
	signed := protocol.Sign(key, payload, time.Now().UnixMilli(), 1)
	require.NoError(t, ws.WriteJSON(signed))

	select {
	case <-h.connects:
	case <-time.After(time.Second):
		t.Fatal("HandleConnect was not called for a validly signed envelope")
	}
}

func TestBadMACTerminatesConnectionWithError(t *testing.T) {
	key := []byte("test-hmac-key")
	wrongKey := []byte("wrong-key")
	h := newFakeHandler()
	ts := startAuthTestServer(t, h, key)
	ws := dialConn(t, ts)
	defer ws.Close()

	payload := []byte(`{"type":"Connect"}`)
	signed := protocol.Sign(wrongKey, payload, time.Now().UnixMilli(), 1)
	require.NoError(t, ws.WriteJSON(signed))

	_ = ws.SetReadDeadline(time.Now().Add(time.Second))
	var resp map[string]any
	require.NoError(t, ws.ReadJSON(&resp))
	assert.Equal(t, "Error", resp["type"])

	select {
	case <-h.connects:
		t.Fatal("HandleConnect must not run for a badly signed envelope")
	case <-time.After(100 * time.Millisecond):
	}

	select {
	case <-h.disconnects:
	case <-time.After(time.Second):
		t.Fatal("connection should be terminated after a failed verification")
	}
}

func TestClosingClientTriggersHandleDisconnect(t *testing.T) {
	h := newFakeHandler()
	ts, _ := startTestServer(t, h)
	ws := dialConn(t, ts)

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "Connect"}))
	<-h.connects
	require.NoError(t, ws.Close())

	select {
	case <-h.disconnects:
	case <-time.After(time.Second):
		t.Fatal("HandleDisconnect was not called")
	}
}
