package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callbackRecorder collects presence callbacks from the hub.
type callbackRecorder struct {
	mu     sync.Mutex
	firsts []uuid.UUID
	lasts  []uuid.UUID
}

func (r *callbackRecorder) onFirst(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.firsts = append(r.firsts, userID)
}

func (r *callbackRecorder) onLast(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lasts = append(r.lasts, userID)
}

func (r *callbackRecorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.firsts), len(r.lasts)
}

// testHub sets up a Hub behind a test HTTP server that registers every
// connection for the user named in the query string.
func testHub(t *testing.T, recorder *callbackRecorder) (*Hub, func(userID uuid.UUID) *ws.Conn) {
	t.Helper()

	var onFirst, onLast func(uuid.UUID)
	if recorder != nil {
		onFirst = recorder.onFirst
		onLast = recorder.onLast
	}

	hub := NewHub(onFirst, onLast)
	t.Cleanup(hub.Stop)

	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		userID := uuid.MustParse(r.URL.Query().Get("user"))
		if err := hub.Register(userID, conn); err != nil {
			return
		}

		go func() {
			defer hub.Unregister(userID, conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
		}()
	}))
	t.Cleanup(server.Close)

	dial := func(userID uuid.UUID) *ws.Conn {
		t.Helper()
		url := "ws" + strings.TrimPrefix(server.URL, "http") + "?user=" + userID.String()
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	return hub, dial
}

func waitForClientCount(h *Hub, userID uuid.UUID, expected int) bool {
	for range 100 {
		if h.GetClientCount(userID) == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func TestHubRegisterAndPush(t *testing.T) {
	hub, dial := testHub(t, nil)
	userID := uuid.New()

	conn := dial(userID)
	require.True(t, waitForClientCount(hub, userID, 1))

	hub.Push(userID, map[string]string{"title": "New Review", "severity": "success"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, "New Review", got["title"])
	assert.Equal(t, "success", got["severity"])
}

func TestHubPushFansOutToAllTabs(t *testing.T) {
	hub, dial := testHub(t, nil)
	userID := uuid.New()

	first := dial(userID)
	second := dial(userID)
	require.True(t, waitForClientCount(hub, userID, 2))

	hub.Push(userID, map[string]string{"title": "hello"})

	for _, conn := range []*ws.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(msg), "hello")
	}
}

func TestHubPushDoesNotCrossUsers(t *testing.T) {
	hub, dial := testHub(t, nil)
	alice := uuid.New()
	bob := uuid.New()

	aliceConn := dial(alice)
	bobConn := dial(bob)
	require.True(t, waitForClientCount(hub, alice, 1))
	require.True(t, waitForClientCount(hub, bob, 1))

	hub.Push(alice, map[string]string{"title": "for alice"})

	aliceConn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := aliceConn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "for alice")

	bobConn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = bobConn.ReadMessage()
	assert.Error(t, err)
}

func TestHubPresenceCallbacks(t *testing.T) {
	recorder := &callbackRecorder{}
	hub, dial := testHub(t, recorder)
	userID := uuid.New()

	first := dial(userID)
	require.True(t, waitForClientCount(hub, userID, 1))

	// A second tab does not re-fire onFirstConnect.
	second := dial(userID)
	require.True(t, waitForClientCount(hub, userID, 2))

	firsts, lasts := recorder.counts()
	assert.Equal(t, 1, firsts)
	assert.Equal(t, 0, lasts)

	first.Close()
	require.True(t, waitForClientCount(hub, userID, 1))
	_, lasts = recorder.counts()
	assert.Equal(t, 0, lasts)

	second.Close()
	require.True(t, waitForClientCount(hub, userID, 0))

	firsts, lasts = recorder.counts()
	assert.Equal(t, 1, firsts)
	assert.Equal(t, 1, lasts)
}

func TestHubEnforcesConnectionLimit(t *testing.T) {
	hub, dial := testHub(t, nil)
	userID := uuid.New()

	for range maxClientsPerUser {
		dial(userID)
	}
	require.True(t, waitForClientCount(hub, userID, maxClientsPerUser))

	// The next connection is registered then rejected; the server closes it.
	extra := dial(userID)
	extra.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := extra.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, maxClientsPerUser, hub.GetClientCount(userID))
}

func TestHubUnregisterUnknownConnIsNoop(t *testing.T) {
	hub, dial := testHub(t, nil)
	userID := uuid.New()

	dial(userID)
	require.True(t, waitForClientCount(hub, userID, 1))

	hub.Unregister(uuid.New(), nil)
	assert.Equal(t, 1, hub.GetClientCount(userID))
}

func TestHubPushWithoutClients(t *testing.T) {
	hub, _ := testHub(t, nil)

	// Must not block or panic.
	hub.Push(uuid.New(), map[string]string{"title": "nobody home"})
	assert.Equal(t, 0, hub.GetClientCount(uuid.New()))
}
