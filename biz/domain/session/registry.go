package session

import (
	"context"
	"sync"

	"github.com/xh-polaris/docflow-core-api/biz/infra/metrics"
	"github.com/xh-polaris/docflow-core-api/pkg/errorx"
	"github.com/xh-polaris/docflow-core-api/pkg/logs"
)

// Session 一个在线的实时会话, 例如一条websocket连接
type Session interface {
	Id() string
	// Emit 以event为主题向客户端推送data
	Emit(event string, data any) error
	Close() error
}

// Registry 记录每个用户当前在线的会话, 一个用户可以同时有多个会话(多设备/多标签页)
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Session // userId -> sessionId -> session
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]map[string]Session)}
}

// Join 将会话加入用户的房间, 重复加入无副作用
func (r *Registry) Join(userId string, s Session) {
	if s == nil {
		return
	}
	r.mu.Lock()
	room, ok := r.rooms[userId]
	if !ok {
		room = make(map[string]Session)
		r.rooms[userId] = room
	}
	if _, exist := room[s.Id()]; !exist {
		room[s.Id()] = s
		metrics.Sessions.Inc()
	}
	r.mu.Unlock()
}

// Leave 将会话移出房间, 房间为空时一并删除
func (r *Registry) Leave(userId string, s Session) {
	if s == nil {
		return
	}
	r.mu.Lock()
	r.leaveLocked(userId, s.Id())
	r.mu.Unlock()
}

func (r *Registry) leaveLocked(userId, sessionId string) {
	room, ok := r.rooms[userId]
	if !ok {
		return
	}
	if _, exist := room[sessionId]; exist {
		delete(room, sessionId)
		metrics.Sessions.Dec()
	}
	if len(room) == 0 {
		delete(r.rooms, userId)
	}
}

func (r *Registry) Count(userId string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[userId])
}

func (r *Registry) sessions(userId string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room := r.rooms[userId]
	ss := make([]Session, 0, len(room))
	for _, s := range room {
		ss = append(ss, s)
	}
	return ss
}

// Push 向用户所有在线会话推送, 尽力而为: 不重试, 不保存
// 推送失败的会话会被移出房间并关闭, 客户端重连后从存储中拉取最新状态
func (r *Registry) Push(ctx context.Context, userId, topicKey string, payload any) {
	ss := r.sessions(userId)
	if len(ss) == 0 {
		logs.CtxDebugf(ctx, "[session] no live session for user=%s topic=%s", userId, topicKey)
		return
	}
	for _, s := range ss {
		if err := s.Emit(topicKey, payload); err != nil {
			logs.CtxWarnf(ctx, "[session] push to session=%s user=%s failed, dropping: %s", s.Id(), userId, errorx.ErrorWithoutStack(err))
			r.mu.Lock()
			r.leaveLocked(userId, s.Id())
			r.mu.Unlock()
			_ = s.Close()
		}
	}
}
