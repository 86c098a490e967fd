package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umar/campus-chat/internal/auth"
	"github.com/umar/campus-chat/internal/conversation"
	"github.com/umar/campus-chat/internal/database"
	"github.com/umar/campus-chat/internal/models"
)

const testSecret = "test-secret"

type testServer struct {
	srv      *httptest.Server
	hub      *Hub
	registry *Registry
	store    *database.MemoryStore
}

func newTestServer(t *testing.T, opts HubOptions) *testServer {
	t.Helper()
	store := database.NewMemoryStore(opts.MaxContentLength)
	reg := NewRegistry(nil)
	svc := NewService(store, store, nil, reg, nil)
	hub := NewHub(reg, svc, nil, opts, nil)

	r := mux.NewRouter()
	r.HandleFunc("/ws/{room_id}/{client_name}", ServeWS(hub, testSecret)).Methods("GET")
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})
	return &testServer{srv: srv, hub: hub, registry: reg, store: store}
}

func (ts *testServer) dial(t *testing.T, roomID, name string) *websocket.Conn {
	t.Helper()
	return ts.dialAs(t, roomID, name, 1, name+"@campus.edu")
}

func (ts *testServer) dialAs(t *testing.T, roomID, name string, userID int64, email string) *websocket.Conn {
	t.Helper()
	token, err := auth.GenerateToken(userID, email, testSecret, time.Hour)
	require.NoError(t, err)

	before := ts.registry.Count(roomID)
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws/" + roomID + "/" + name + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool {
		return ts.registry.Count(roomID) == before+1
	}, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readNotification(t *testing.T, conn *websocket.Conn) Notification {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var n Notification
	require.NoError(t, conn.ReadJSON(&n))
	return n
}

func TestSession_MessageReachesRoomOnly(t *testing.T) {
	ts := newTestServer(t, HubOptions{})
	alice := ts.dial(t, "5-2", "alice")
	bob := ts.dial(t, "5-2", "bob")
	carol := ts.dial(t, "9-1", "carol")

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("is it still for sale?")))

	for _, conn := range []*websocket.Conn{alice, bob} {
		n := readNotification(t, conn)
		assert.Equal(t, TypeMessageNew, n.Type)
		assert.Equal(t, "alice@campus.edu", n.Sender)
		assert.Equal(t, "alice", n.SenderName)
		assert.Equal(t, "is it still for sale?", n.Message)
	}

	carol.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := carol.ReadMessage()
	require.Error(t, err)

	msgs, err := ts.store.ListMessages(context.Background(), "5-2")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice@campus.edu", msgs[0].Sender)
}

func TestSession_DepartureNotice(t *testing.T) {
	ts := newTestServer(t, HubOptions{})
	alice := ts.dial(t, "5-2", "alice")
	bob := ts.dial(t, "5-2", "bob")

	require.NoError(t, bob.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	bob.Close()

	n := readNotification(t, alice)
	assert.Equal(t, TypeMemberLeft, n.Type)
	assert.Equal(t, "bob@campus.edu", n.Sender)
	assert.Equal(t, "bob", n.SenderName)
	assert.Equal(t, "left the chat room", n.Message)

	require.Eventually(t, func() bool {
		return ts.registry.Count("5-2") == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"alice"}, ts.registry.Members("5-2"))
}

func TestSession_InvalidMessageGetsErrorFrame(t *testing.T) {
	ts := newTestServer(t, HubOptions{MaxContentLength: 5})
	alice := ts.dial(t, "5-2", "alice")

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("way too long")))

	alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame ErrorFrame
	require.NoError(t, alice.ReadJSON(&frame))
	assert.Equal(t, TypeError, frame.Type)
	assert.Equal(t, "INVALID_MESSAGE", frame.Code)

	msgs, _ := ts.store.ListMessages(context.Background(), "5-2")
	assert.Empty(t, msgs)
}

func TestSession_RateLimited(t *testing.T) {
	ts := newTestServer(t, HubOptions{MessagesPerSecond: 0.001, Burst: 1})
	alice := ts.dial(t, "5-2", "alice")

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("one")))
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("two")))

	n := readNotification(t, alice)
	assert.Equal(t, TypeMessageNew, n.Type)

	alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame ErrorFrame
	require.NoError(t, alice.ReadJSON(&frame))
	assert.Equal(t, "RATE_LIMITED", frame.Code)
}

func TestServeWS_RejectsBadRequests(t *testing.T) {
	ts := newTestServer(t, HubOptions{})
	token, err := auth.GenerateToken(1, "a@campus.edu", testSecret, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		path   string
		status int
	}{
		{"missing token", "/ws/5-2/alice", http.StatusUnauthorized},
		{"bad token", "/ws/5-2/alice?token=garbage", http.StatusUnauthorized},
		{"malformed room", "/ws/abc/alice?token=" + token, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(ts.srv.URL + tc.path)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestHub_MembersWithoutPresence(t *testing.T) {
	ts := newTestServer(t, HubOptions{})
	ts.dial(t, "5-2", "alice")
	ts.dial(t, "5-2", "bob")

	names, err := ts.hub.Members(context.Background(), "5-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, names)
}

// The display name in the URL never decides authorship: a message sent over
// the socket is stored under the token's email, so it is not unread for its
// author.
func TestSession_AuthorNeverHasOwnMessageUnread(t *testing.T) {
	ts := newTestServer(t, HubOptions{})
	dir := database.NewMemoryDirectory()
	dir.PutUser(models.User{ID: 1, Nickname: "seller"})
	dir.PutUser(models.User{ID: 2, Nickname: "alice"})
	dir.PutItem(models.Item{ID: 5, OwnerID: 1, Title: "desk lamp", Status: models.ItemOnSale})
	agg := conversation.NewAggregator(ts.store, dir, dir, ts.store, ts.store, nil)

	alice := ts.dialAs(t, "5-2", "alice", 2, "alice@campus.edu")
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("hi")))
	readNotification(t, alice)

	ctx := context.Background()
	convs, err := agg.List(ctx, models.Caller{ID: 2, Email: "alice@campus.edu"})
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, models.RoleBuyer, convs[0].Role)
	assert.Equal(t, 0, convs[0].UnreadCount)

	convs, err = agg.List(ctx, models.Caller{ID: 1, Email: "seller@campus.edu"})
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 1, convs[0].UnreadCount)
}

func TestServeWS_RefusesAfterShutdown(t *testing.T) {
	ts := newTestServer(t, HubOptions{})
	ts.hub.Shutdown()

	token, err := auth.GenerateToken(1, "a@campus.edu", testSecret, time.Hour)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws/5-2/alice?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if conn != nil {
		conn.Close()
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 0, ts.registry.Count("5-2"))
}

func TestHub_ConnectRefusedOnceClosed(t *testing.T) {
	reg := NewRegistry(nil)
	hub := NewHub(reg, NewService(database.NewMemoryStore(0), database.NewMemoryStore(0), nil, reg, nil), nil, HubOptions{}, nil)
	hub.Shutdown()

	c := &Client{hub: hub, id: "c1", name: "alice", roomID: "5-2", done: make(chan struct{})}
	assert.False(t, hub.connect(c))
	assert.Equal(t, 0, reg.Count("5-2"))
}
