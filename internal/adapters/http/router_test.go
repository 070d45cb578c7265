package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	signaladapter "github.com/dkeye/Rehearsal/internal/adapters/signal"
	"github.com/dkeye/Rehearsal/internal/app"
	"github.com/dkeye/Rehearsal/internal/config"
	"github.com/dkeye/Rehearsal/pkg/protocol"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.Coordinator) {
	t.Helper()
	cfg := &config.Config{
		Mode:       "release",
		StaticPath: t.TempDir(),
		ReadLimit:  32768,
		SendBuffer: 64,
		WriteWait:  2 * time.Second,
		Secret:     "test-secret",
		ICEServers: []config.ICEServer{{URLs: []string{"stun:stun.example.org:3478"}}},
	}
	coord := app.NewCoordinator(app.NewRegistry(), app.NewDirectory())
	ctl := signaladapter.NewController(coord, app.DropPolicy{}, signaladapter.Options{
		ReadLimit:  cfg.ReadLimit,
		SendBuffer: cfg.SendBuffer,
		WriteWait:  cfg.WriteWait,
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := httptest.NewServer(SetupRouter(ctx, cfg, coord, ctl))
	t.Cleanup(srv.Close)
	return srv, coord
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	return dialWSHeader(t, srv, nil)
}

func dialWSHeader(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, v string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(v)))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env protocol.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func readRoster(t *testing.T, conn *websocket.Conn) protocol.RoomUsers {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var roster protocol.RoomUsers
	require.NoError(t, json.Unmarshal(data, &roster))
	require.Equal(t, protocol.TypeRoomUsers, roster.Type)
	return roster
}

func TestSignalingEndToEnd(t *testing.T) {
	srv, _ := newTestServer(t)

	x := dialWS(t, srv)
	sendJSON(t, x, `{"type":"join","roomId":"r1","userId":"u1","nickname":"X"}`)
	roster := readRoster(t, x)
	require.Len(t, roster.Users, 1)
	assert.Equal(t, "u1", roster.Users[0].UserID)

	y := dialWS(t, srv)
	sendJSON(t, y, `{"type":"join","roomId":"r1","userId":"u2","nickname":"Y"}`)
	roster = readRoster(t, y)
	assert.Len(t, roster.Users, 2)

	joined := readEnvelope(t, x)
	assert.Equal(t, protocol.TypeUserJoined, joined.Type)
	assert.Equal(t, "u2", joined.UserID)

	// Unicast negotiation relay, payload untouched.
	sendJSON(t, x, `{"type":"signal","roomId":"r1","targetUserId":"u2","fromUserId":"u1","data":{"type":"offer","sdp":"abc"}}`)
	sig := readEnvelope(t, y)
	assert.Equal(t, protocol.TypeSignal, sig.Type)
	assert.Equal(t, "u1", sig.FromUserID)
	assert.JSONEq(t, `{"type":"offer","sdp":"abc"}`, string(sig.Data))

	// Chat echoes to the sender as well.
	sendJSON(t, x, `{"type":"chat","roomId":"r1","userId":"u1","text":"hi","timestamp":1000}`)
	for _, conn := range []*websocket.Conn{x, y} {
		chat := readEnvelope(t, conn)
		assert.Equal(t, protocol.TypeChat, chat.Type)
		assert.Equal(t, "hi", chat.Text)
		assert.Equal(t, int64(1000), chat.Timestamp)
	}

	// Latency probe works without any room context.
	before := time.Now().UnixMilli()
	sendJSON(t, x, `{"type":"ping","clientTime":777}`)
	pong := readEnvelope(t, x)
	assert.Equal(t, protocol.TypePong, pong.Type)
	assert.Equal(t, int64(777), pong.ClientTime)
	assert.GreaterOrEqual(t, pong.ServerTime, before)

	// Departure is announced to the remaining member.
	require.NoError(t, x.Close())
	left := readEnvelope(t, y)
	assert.Equal(t, protocol.TypeUserLeft, left.Type)
	assert.Equal(t, "u1", left.UserID)
}

func TestTwoConnectionsSharingBrowserCookie(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie := http.Header{"Cookie": {"ct=shared-token"}}

	// Two tabs of one browser share the ct cookie but are distinct
	// connections with independent memberships.
	x := dialWSHeader(t, srv, cookie)
	sendJSON(t, x, `{"type":"join","roomId":"r1","userId":"u1","nickname":"X"}`)
	readRoster(t, x)

	y := dialWSHeader(t, srv, cookie)
	sendJSON(t, y, `{"type":"join","roomId":"r1","userId":"u2","nickname":"Y"}`)
	roster := readRoster(t, y)
	require.Len(t, roster.Users, 2, "first tab must still be a member")

	joined := readEnvelope(t, x)
	assert.Equal(t, protocol.TypeUserJoined, joined.Type)
	assert.Equal(t, "u2", joined.UserID)

	// Closing one tab tears down only that tab's membership.
	require.NoError(t, x.Close())
	left := readEnvelope(t, y)
	assert.Equal(t, protocol.TypeUserLeft, left.Type)
	assert.Equal(t, "u1", left.UserID)

	require.Eventually(t, func() bool {
		s := fetchStats(t, srv)
		return s["rooms"] == 1 && s["members"] == 1
	}, 3*time.Second, 50*time.Millisecond, "second tab keeps the room alive")
}

func TestRoomLifecycleOverStats(t *testing.T) {
	srv, _ := newTestServer(t)

	stats := fetchStats(t, srv)
	assert.Equal(t, 0, stats["rooms"])

	x := dialWS(t, srv)
	sendJSON(t, x, `{"type":"join","roomId":"r1","userId":"u1","nickname":"X"}`)
	readRoster(t, x)

	stats = fetchStats(t, srv)
	assert.Equal(t, 1, stats["rooms"])
	assert.Equal(t, 1, stats["members"])

	require.NoError(t, x.Close())
	require.Eventually(t, func() bool {
		return fetchStats(t, srv)["rooms"] == 0
	}, 3*time.Second, 50*time.Millisecond, "room must be dropped after the last close")
}

func fetchStats(t *testing.T, srv *httptest.Server) map[string]int {
	t.Helper()
	resp, err := http.Get(srv.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	return stats
}

func TestHealthAndICE(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/ice")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body struct {
		ICEServers []struct {
			URLs []string `json:"urls"`
		} `json:"iceServers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.ICEServers, 1)
	assert.Equal(t, "stun:stun.example.org:3478", body.ICEServers[0].URLs[0])
}
