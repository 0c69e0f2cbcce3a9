package wsx

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/websocket"
	"github.com/xh-polaris/docflow-core-api/pkg/logs"
)

var upgrader = websocket.HertzUpgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*app.RequestContext) bool { return true },
}

// UpgradeWs 将hertz请求升级为websocket, handler返回后连接由调用方负责关闭
func UpgradeWs(ctx context.Context, c *app.RequestContext, handler func(ctx context.Context, conn *websocket.Conn)) error {
	return upgrader.Upgrade(c, func(conn *websocket.Conn) {
		handler(ctx, conn)
	})
}

// Conn HZWSClient依赖的连接操作, 便于测试替换
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// HZWSClient 是基于hertz-contrib/websocket的工具类, 封装了常见读写操作, 简化了异常处理
// 最佳实践是单线程读, 所以此处不设读锁
// 写操作和关闭可能来自推送协程, 由写锁串行化
type HZWSClient struct {
	// 写锁
	mu   sync.Mutex
	conn Conn
	// 是否不再可写, 对端关闭或本端关闭
	closed bool
	// 底层连接是否已释放
	released bool
	// 单次写入的超时, 对端不读时写入不会无限阻塞
	writeTimeout time.Duration
}

type Option func(*HZWSClient)

// WithWriteTimeout 替换默认的写超时
func WithWriteTimeout(d time.Duration) Option {
	return func(ws *HZWSClient) {
		if d > 0 {
			ws.writeTimeout = d
		}
	}
}

func NewHZWSClient(conn Conn, opts ...Option) *HZWSClient {
	ws := &HZWSClient{conn: conn, writeTimeout: DefaultTimeout}
	for _, opt := range opts {
		opt(ws)
	}
	return ws
}

func (ws *HZWSClient) classifyErr(err error) error {
	err = Classify(err)
	if err == AbnormalCloseErr {
		logs.Warnf("[HZWSClient] abnormal close")
	}
	if err == NormalCloseErr || err == AbnormalCloseErr {
		ws.mu.Lock()
		ws.closed = true
		ws.mu.Unlock()
	}
	return err
}

// Read 读取一条消息
func (ws *HZWSClient) Read() (mt int, data []byte, err error) {
	mt, data, err = ws.conn.ReadMessage()
	return mt, data, ws.classifyErr(err)
}

// Write 写入指定类型消息, 超过writeTimeout未写完时返回错误
// 写入失败后连接不可再写, 后续写入直接返回ClosedErr
func (ws *HZWSClient) Write(mt int, data []byte) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.closed {
		return ClosedErr
	}
	if err := ws.conn.SetWriteDeadline(time.Now().Add(ws.writeTimeout)); err != nil {
		ws.closed = true
		return err
	}
	if err := ws.conn.WriteMessage(mt, data); err != nil {
		ws.closed = true
		return Classify(err)
	}
	return nil
}

// WriteString 写入文本消息
func (ws *HZWSClient) WriteString(data string) error {
	return ws.Write(websocket.TextMessage, []byte(data))
}

// Ping 写入心跳消息
func (ws *HZWSClient) Ping(data []byte) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.closed {
		return ClosedErr
	}
	return ws.conn.WriteControl(websocket.PingMessage, data, time.Now().Add(ws.writeTimeout))
}

// Close 释放连接, 对端未关闭时先发送关闭帧, 可重复调用
func (ws *HZWSClient) Close() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.released {
		return nil
	}
	if !ws.closed {
		if err := ws.conn.WriteControl(websocket.CloseMessage, NormalCloseMsg, time.Now().Add(ws.writeTimeout)); err != nil {
			logs.Warnf("[HZWSClient] send close message error: %v", err)
		}
	}
	ws.closed, ws.released = true, true
	return ws.conn.Close()
}

func (ws *HZWSClient) IsClosed() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.closed
}
