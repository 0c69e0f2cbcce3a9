package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/xh-polaris/docflow-core-api/pkg/wsx"
)

// unreadConn 客户端停止读取, 写入阻塞到写超时为止
type unreadConn struct {
	mu       sync.Mutex
	deadline time.Time
	closed   bool
}

func (c *unreadConn) ReadMessage() (int, []byte, error) { return 0, nil, errors.New("not read") }

func (c *unreadConn) WriteMessage(int, []byte) error {
	c.mu.Lock()
	d := c.deadline
	c.mu.Unlock()
	time.Sleep(time.Until(d))
	return errors.New("write: i/o timeout")
}

func (c *unreadConn) WriteControl(int, []byte, time.Time) error { return nil }

func (c *unreadConn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	return nil
}

func (c *unreadConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func TestPushStuckSessionDoesNotBlockOthers(t *testing.T) {
	r := NewRegistry()
	conn := &unreadConn{}
	r.Join("u1", wsx.NewSession("stuck", wsx.NewHZWSClient(conn, wsx.WithWriteTimeout(50*time.Millisecond))))
	healthy := &stubSession{id: "healthy"}
	r.Join("u2", healthy)

	// 与总线消费者一样串行推送
	start := time.Now()
	r.Push(context.Background(), "u1", "doc-1", map[string]any{"done": true})
	r.Push(context.Background(), "u2", "doc-2", map[string]any{"done": true})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, healthy.received(), 1)
	assert.Zero(t, r.Count("u1"))
	conn.mu.Lock()
	assert.True(t, conn.closed)
	conn.mu.Unlock()
}
