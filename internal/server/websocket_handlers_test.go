package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"socialnet/internal/cache"
	"socialnet/internal/models"
	"socialnet/internal/notifications"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueWSTicket(t *testing.T) {
	ts := newTestServer(t)
	user, token := ts.newUser(t, "pia", models.RoleUser)

	resp := ts.do(t, http.MethodPost, "/ws/ticket", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[WSTicketResponse](t, resp)
	require.NotEmpty(t, body.Ticket)
	assert.Equal(t, 30, body.ExpiresIn)

	stored, err := ts.mr.Get(cache.WSTicketKey(body.Ticket))
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatUint(uint64(user.ID), 10), stored)

	resp = ts.do(t, http.MethodPost, "/ws/ticket", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketUpgrade_Rejections(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/ws", "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = ts.app.Listener(ln) }()
	t.Cleanup(func() { _ = ts.app.Shutdown() })

	u := url.URL{Scheme: "ws", Host: ln.Addr().String(), Path: "/ws", RawQuery: "ticket=bogus"}
	conn, wsResp, err := gorillaws.DefaultDialer.Dial(u.String(), nil)
	if conn != nil {
		_ = conn.Close()
	}
	require.Error(t, err)
	require.NotNil(t, wsResp)
	assert.Equal(t, http.StatusUnauthorized, wsResp.StatusCode)
}

func TestWebSocket_ReceivesFriendRequestEvent(t *testing.T) {
	ts := newTestServer(t)
	alice, aliceToken := ts.newUser(t, "alice", models.RoleUser)
	bob, bobToken := ts.newUser(t, "bob", models.RoleUser)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, ts.srv.hub.StartWiring(ctx, ts.srv.notifier))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = ts.app.Listener(ln) }()
	t.Cleanup(func() { _ = ts.app.Shutdown() })

	resp := ts.do(t, http.MethodPost, "/ws/ticket", bobToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ticket := decode[WSTicketResponse](t, resp).Ticket

	u := url.URL{Scheme: "ws", Host: ln.Addr().String(), Path: "/ws", RawQuery: "ticket=" + ticket}
	conn, _, err := gorillaws.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	readEvent := func() notifications.Event {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		var evt notifications.Event
		require.NoError(t, json.Unmarshal(raw, &evt))
		return evt
	}

	hello := readEvent()
	assert.Equal(t, notifications.EventConnected, hello.Type)
	helloPayload, ok := hello.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(bob.ID), helloPayload["user_id"])
	assert.Equal(t, float64(1), helloPayload["connections"])
	assert.Equal(t, 1, ts.srv.hub.ConnectionCount(bob.ID))

	resp = ts.do(t, http.MethodPost, "/friendships", aliceToken, FriendRequestBody{RequesterID: alice.ID, ReceiverID: bob.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	evt := readEvent()
	assert.Equal(t, notifications.EventFriendRequestReceived, evt.Type)

	t.Run("ticket is single use", func(t *testing.T) {
		_, wsResp, err := gorillaws.DefaultDialer.Dial(u.String(), nil)
		require.Error(t, err)
		require.NotNil(t, wsResp)
		assert.Equal(t, http.StatusUnauthorized, wsResp.StatusCode)
	})
}
