package answer

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/xh-polaris/docflow-core-api/biz/infra/mapper/conversation"
	"github.com/xh-polaris/docflow-core-api/biz/infra/mapper/notice"
	"github.com/xh-polaris/docflow-core-api/biz/infra/mapper/user"
	"github.com/xh-polaris/docflow-core-api/pkg/errorx"
	"github.com/xh-polaris/docflow-core-api/types/errno"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// memStore 内存存储, SaveAnswer与mongo实现一样以finalized=false为条件
type memStore struct {
	mu      sync.Mutex
	rows    map[string]*conversation.Conversation
	failIns error
	failGet error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]*conversation.Conversation)}
}

func (s *memStore) InsertPair(_ context.Context, q, a *conversation.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIns != nil {
		return s.failIns
	}
	s.rows[q.Id.Hex()], s.rows[a.Id.Hex()] = q.Clone(), a.Clone()
	return nil
}

func (s *memStore) FindById(_ context.Context, id string) (*conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return nil, s.failGet
	}
	c, ok := s.rows[id]
	if !ok {
		return nil, errorx.New(errno.ConversationNotFoundErrCode)
	}
	return c.Clone(), nil
}

func (s *memStore) SaveAnswer(_ context.Context, c *conversation.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[c.Id.Hex()]
	if !ok || cur.Finalized {
		return errorx.New(errno.ConversationFinalizedCode)
	}
	s.saves++
	s.rows[c.Id.Hex()] = c.Clone()
	return nil
}

func (s *memStore) ListByNoticeAndUser(_ context.Context, noticeId, userId string) ([]*conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*conversation.Conversation
	for _, c := range s.rows {
		if c.NoticeId.Hex() == noticeId && c.UserId.Hex() == userId {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreateTime.Before(out[j].CreateTime) })
	return out, nil
}

func (s *memStore) get(id string) *conversation.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id].Clone()
}

func (s *memStore) put(c *conversation.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[c.Id.Hex()] = c.Clone()
}

type memNotices map[string]*notice.Notice

func (m memNotices) FindById(_ context.Context, id string) (*notice.Notice, error) {
	if n, ok := m[id]; ok {
		return n, nil
	}
	return nil, errorx.New(errno.NoticeNotFoundErrCode)
}

type memUsers map[string]*user.User

func (m memUsers) FindById(_ context.Context, id string) (*user.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, errorx.New(errno.UserNotFoundErrCode)
}

type published struct {
	topic, key string
	msg        *OutboundQuestion
}

type recordBus struct {
	mu   sync.Mutex
	sent []published
	fail error
}

func (b *recordBus) Publish(_ context.Context, topic, key string, v any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.sent = append(b.sent, published{topic: topic, key: key, msg: v.(*OutboundQuestion)})
	return nil
}

func (b *recordBus) last() published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sent[len(b.sent)-1]
}

type pushed struct {
	userId, topicKey string
	conversation     *conversation.Conversation
	done             bool
}

type recordFanout struct {
	mu     sync.Mutex
	pushes []pushed
}

func (f *recordFanout) Push(_ context.Context, userId, topicKey string, payload any) {
	p := payload.(*AnswerPush)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, pushed{userId: userId, topicKey: topicKey, conversation: p.Conversation.Clone(), done: p.Done})
}

func (f *recordFanout) all() []pushed {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pushed(nil), f.pushes...)
}

// fakeClock 手动触发的计时器
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	c       chan time.Time
	d       time.Duration
	stopped bool
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: make(chan time.Time, 1), d: d}
	c.timers = append(c.timers, t)
	return t
}

// fire 触发所有已创建的计时器
func (c *fakeClock) fire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.timers {
		select {
		case t.c <- time.Now():
		default:
		}
	}
}

func (c *fakeClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

type fixture struct {
	store  *memStore
	bus    *recordBus
	fanout *recordFanout
	clock  *fakeClock
	orch   *Orchestrator
	notice *notice.Notice
	user   *user.User
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		store:  newMemStore(),
		bus:    &recordBus{},
		fanout: &recordFanout{},
		clock:  &fakeClock{},
		notice: &notice.Notice{Id: bson.NewObjectID(), ExternalId: "doc-42", Title: "采购公告"},
		user:   &user.User{Id: bson.NewObjectID(), Name: "alice"},
	}
	opts = append([]Option{WithClock(f.clock), WithQuestionTopic("questions"), WithDeadline(time.Minute)}, opts...)
	f.orch = New(f.store,
		memNotices{f.notice.Id.Hex(): f.notice},
		memUsers{f.user.Id.Hex(): f.user},
		f.bus, f.fanout, opts...)
	return f
}

func (f *fixture) ask(prompt string) (question *conversation.Conversation, answerId string, err error) {
	// 回答占位比提问晚1ms, 间隔开相邻两次提问使排序稳定
	time.Sleep(2 * time.Millisecond)
	q, err := f.orch.AskQuestion(context.Background(), f.notice.Id.Hex(), prompt, f.user.Id.Hex())
	if err != nil {
		return nil, "", err
	}
	return q, f.bus.last().key, nil
}

var errBoom = errors.New("boom")
