package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bevops-backend/internal/middleware"
)

const testSecret = "ws-secret"

func connect(t *testing.T, userID, role string) (*Hub, *websocket.Conn) {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(HandleWebSocket(hub, testSecret))
	t.Cleanup(srv.Close)

	token, err := middleware.IssueToken(middleware.UserClaims{UserID: userID, Role: role}, testSecret, time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.IsUserConnected(userID) }, time.Second, 10*time.Millisecond)
	return hub, conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestPublishReachesClient(t *testing.T) {
	hub, conn := connect(t, "u1", "operator")

	hub.Publish(EventContainerUpdated, map[string]string{"id": "KEG-0001"})

	ev := readEvent(t, conn)
	assert.Equal(t, EventContainerUpdated, ev["type"])
	assert.Equal(t, "KEG-0001", ev["data"].(map[string]interface{})["id"])
}

func TestSubscribeFiltersTopics(t *testing.T) {
	hub, conn := connect(t, "u1", "operator")

	require.NoError(t, conn.WriteJSON(IncomingMessage{Type: "subscribe", Topics: []string{EventAlertsUpdated}}))
	assert.Equal(t, "subscribed", readEvent(t, conn)["type"])

	hub.Publish(EventContainerUpdated, nil)
	hub.Publish(EventAlertsUpdated, []string{})

	assert.Equal(t, EventAlertsUpdated, readEvent(t, conn)["type"])
}

func TestBroadcastToRole(t *testing.T) {
	hub, conn := connect(t, "d1", "driver")

	hub.BroadcastToRole(EventCleaningQueued, nil, "cleaner", "admin")
	hub.BroadcastToRole(EventTruckUpdated, nil, "driver")

	assert.Equal(t, EventTruckUpdated, readEvent(t, conn)["type"])
}

func TestRejectsMissingToken(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(HandleWebSocket(hub, testSecret))
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}
