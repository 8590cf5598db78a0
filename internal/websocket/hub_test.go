package websocket

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
	failNext bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext {
		return errors.New("broken pipe")
	}
	c.messages = append(c.messages, data)
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func TestHubSendsOnlyToTargetUser(t *testing.T) {
	h := startHub(t)
	a1, a2, b := &fakeConn{}, &fakeConn{}, &fakeConn{}
	h.Register(NewClient("a", a1))
	h.Register(NewClient("a", a2))
	h.Register(NewClient("b", b))
	require.Equal(t, 2, h.Online("a"))

	h.SendToUser("a", []byte(`{"type":"notification"}`))

	require.Eventually(t, func() bool { return a1.received() == 1 && a2.received() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, b.received())
}

func TestHubDropsFailingClient(t *testing.T) {
	h := startHub(t)
	bad := &fakeConn{failNext: true}
	h.Register(NewClient("a", bad))

	h.SendToUser("a", []byte("x"))

	require.Eventually(t, func() bool { return h.Online("a") == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, bad.isClosed())
}

func TestHubUnregister(t *testing.T) {
	h := startHub(t)
	conn := &fakeConn{}
	client := NewClient("a", conn)
	h.Register(client)
	h.Unregister(client)
	h.Unregister(client)

	assert.Zero(t, h.Online("a"))
	require.Eventually(t, conn.isClosed, time.Second, 5*time.Millisecond)
	<-client.Closed()
}

func TestHubStopClosesConnections(t *testing.T) {
	h := NewHub()
	go h.Run()
	conn := &fakeConn{}
	client := NewClient("a", conn)
	h.Register(client)
	h.Stop()

	<-client.Closed()
	assert.True(t, conn.isClosed())
	h.SendToUser("a", []byte("after stop"))
	assert.Zero(t, h.Online("a"))
	h.Stop()
}

// stallConn blocks every write until released, like a peer that stopped
// reading.
type stallConn struct {
	release chan struct{}
	once    sync.Once
	closed  chan struct{}
}

func newStallConn() *stallConn {
	return &stallConn{release: make(chan struct{}), closed: make(chan struct{})}
}

func (c *stallConn) WriteMessage(int, []byte) error {
	<-c.release
	return errors.New("connection reset")
}

func (c *stallConn) SetWriteDeadline(time.Time) error { return nil }

func (c *stallConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func TestHubStalledClientDoesNotBlockOthers(t *testing.T) {
	h := startHub(t)
	slow := newStallConn()
	t.Cleanup(func() { close(slow.release) })
	fast := &fakeConn{}
	h.Register(NewClient("slow", slow))
	h.Register(NewClient("fast", fast))

	sent := make(chan struct{})
	go func() {
		defer close(sent)
		// one message held by the writer, clientBuffer queued, then overflow
		for i := 0; i < clientBuffer+2; i++ {
			h.SendToUser("slow", []byte("x"))
		}
		for i := 0; i < 10; i++ {
			h.SendToUser("fast", []byte("y"))
		}
	}()

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("SendToUser blocked behind a stalled client")
	}
	require.Eventually(t, func() bool { return fast.received() == 10 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return h.Online("slow") == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.Online("fast"))
}

func TestHubStopWithStalledClient(t *testing.T) {
	h := NewHub()
	go h.Run()
	slow := newStallConn()
	defer close(slow.release)
	h.Register(NewClient("slow", slow))
	h.SendToUser("slow", []byte("x"))

	stopped := make(chan struct{})
	go func() {
		h.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a stalled client")
	}
}
