package realtime

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// wsPair upgrades one server-side connection and dials it from a test client
func wsPair(t *testing.T) (server *websocket.Conn, peer *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	accepted := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	peer, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { peer.Close() })

	server = <-accepted
	t.Cleanup(func() { server.Close() })
	return server, peer
}

func newTestClient(t *testing.T, bufferSize int) (*Client, *websocket.Conn) {
	t.Helper()
	server, peer := wsPair(t)
	c := NewClient(server, uuid.New(), bufferSize, time.Second, 30*time.Second)
	return c, peer
}

func TestHub_PublishToGroup(t *testing.T) {
	hub := NewHub(zap.NewNop())

	client, peer := newTestClient(t, 10)
	go client.WritePump()
	hub.Join("collector_updates", client)

	hub.Publish("collector_updates", []byte(`{"n":1}`))
	hub.Publish("collector_updates", []byte(`{"n":2}`))
	hub.Publish("collector_updates", []byte(`{"n":3}`))

	for i, want := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		peer.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, message, err := peer.ReadMessage()
		require.NoError(t, err, "message %d", i)
		assert.Equal(t, want, string(message), "in-group FIFO order")
	}
}

func TestHub_GroupIsolation(t *testing.T) {
	hub := NewHub(zap.NewNop())

	a, peerA := newTestClient(t, 10)
	b, peerB := newTestClient(t, 10)
	go a.WritePump()
	go b.WritePump()

	hub.Join("collector_updates", a)
	hub.Join("ops_activity", b)

	hub.Publish("collector_updates", []byte("for-a"))

	peerA.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := peerA.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "for-a", string(message))

	peerB.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = peerB.ReadMessage()
	assert.Error(t, err, "other group must receive nothing")
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	hub := NewHub(zap.NewNop())

	client, _ := newTestClient(t, 10)
	hub.Join("collector_updates", client)
	require.Equal(t, 1, hub.GroupSize("collector_updates"))

	hub.Leave("collector_updates", client)
	assert.Zero(t, hub.GroupSize("collector_updates"))

	// Publishing to the emptied group is a no-op, not a panic
	hub.Publish("collector_updates", []byte("x"))
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := NewHub(zap.NewNop())

	// No WritePump running, so the buffer never drains
	slow, _ := newTestClient(t, 2)
	hub.Join("collector_updates", slow)

	hub.Publish("collector_updates", []byte("1"))
	hub.Publish("collector_updates", []byte("2"))
	require.Equal(t, 1, hub.GroupSize("collector_updates"), "buffer holds, still a member")

	// Third publish overflows the buffer and evicts the client
	hub.Publish("collector_updates", []byte("3"))
	assert.Zero(t, hub.GroupSize("collector_updates"))

	// A dropped client no longer accepts messages
	assert.False(t, slow.enqueue([]byte("late")))
}

func TestHub_ConcurrentPublish(t *testing.T) {
	hub := NewHub(zap.NewNop())

	client, peer := newTestClient(t, 256)
	go client.WritePump()
	hub.Join("collector_updates", client)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Publish("collector_updates", []byte("m"))
		}()
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		peer.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err := peer.ReadMessage()
		require.NoError(t, err, "message %d", i)
	}
}

func TestHub_ConcurrentPublishersAgreeOnOrder(t *testing.T) {
	hub := NewHub(zap.NewNop())

	first, peerFirst := newTestClient(t, 512)
	second, peerSecond := newTestClient(t, 512)
	go first.WritePump()
	go second.WritePump()
	hub.Join("ops_activity", first)
	hub.Join("ops_activity", second)

	const n = 100
	var wg sync.WaitGroup
	for _, prefix := range []string{"a", "b"} {
		wg.Add(1)
		go func(prefix string) {
			defer wg.Done()
			for i := 0; i < n; i++ {
				hub.Publish("ops_activity", []byte(fmt.Sprintf("%s%d", prefix, i)))
			}
		}(prefix)
	}
	wg.Wait()

	read := func(peer *websocket.Conn) []string {
		out := make([]string, 0, 2*n)
		for i := 0; i < 2*n; i++ {
			peer.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, message, err := peer.ReadMessage()
			require.NoError(t, err, "message %d", i)
			out = append(out, string(message))
		}
		return out
	}
	assert.Equal(t, read(peerFirst), read(peerSecond), "every member sees one publish order")
}

func TestHub_RemoveDetachesEverywhere(t *testing.T) {
	hub := NewHub(zap.NewNop())

	client, _ := newTestClient(t, 10)
	id := client.PrincipalID()
	hub.Join(UserGroup(id), client)
	hub.Join(SidebarGroup(id), client)
	hub.Join(NotifyGroup(id), client)

	hub.Remove(client)
	assert.Zero(t, hub.GroupSize(UserGroup(id)))
	assert.Zero(t, hub.GroupSize(SidebarGroup(id)))
	assert.Zero(t, hub.GroupSize(NotifyGroup(id)))
}
