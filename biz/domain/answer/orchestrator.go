package answer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/xh-polaris/docflow-core-api/biz/infra/cst"
	"github.com/xh-polaris/docflow-core-api/biz/infra/mapper/conversation"
	"github.com/xh-polaris/docflow-core-api/biz/infra/mapper/notice"
	"github.com/xh-polaris/docflow-core-api/biz/infra/mapper/user"
	"github.com/xh-polaris/docflow-core-api/biz/infra/metrics"
	"github.com/xh-polaris/docflow-core-api/pkg/errorx"
	"github.com/xh-polaris/docflow-core-api/pkg/logs"
	"github.com/xh-polaris/docflow-core-api/types/errno"
)

const (
	DefaultDeadline     = 30 * time.Second
	DefaultHistoryLimit = 20
)

type Store interface {
	InsertPair(ctx context.Context, question, answer *conversation.Conversation) error
	FindById(ctx context.Context, id string) (*conversation.Conversation, error)
	// SaveAnswer 只更新未完成的回答, 已完成时返回ConversationFinalized
	SaveAnswer(ctx context.Context, c *conversation.Conversation) error
	ListByNoticeAndUser(ctx context.Context, noticeId, userId string) ([]*conversation.Conversation, error)
}

type NoticeFinder interface {
	FindById(ctx context.Context, id string) (*notice.Notice, error)
}

type UserFinder interface {
	FindById(ctx context.Context, id string) (*user.User, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, v any) error
}

type Fanout interface {
	Push(ctx context.Context, userId, topicKey string, payload any)
}

// Orchestrator 连接同步的提问和异步的回答
// 提问时创建提问/回答占位并投递给worker, 回答事件到达后写入占位并推送给用户的所有会话
// 每个占位有一个看门狗, 超时未收到回答时写入兜底内容
// 同一占位的读-改-写由按id的锁串行化, 存储层再以finalized=false为条件更新
type Orchestrator struct {
	store   Store
	notices NoticeFinder
	users   UserFinder
	bus     Publisher
	fanout  Fanout

	clock        Clock
	topic        string
	deadline     time.Duration
	historyLimit int

	locks *keyedMutex

	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	watchdogs map[string]*watchdog
}

type Option func(*Orchestrator)

func WithQuestionTopic(topic string) Option {
	return func(o *Orchestrator) { o.topic = topic }
}

func WithDeadline(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.deadline = d
		}
	}
}

func WithHistoryLimit(n int) Option {
	return func(o *Orchestrator) { o.historyLimit = n }
}

func WithClock(c Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

func New(store Store, notices NoticeFinder, users UserFinder, bus Publisher, fanout Fanout, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		store:        store,
		notices:      notices,
		users:        users,
		bus:          bus,
		fanout:       fanout,
		clock:        realClock{},
		deadline:     DefaultDeadline,
		historyLimit: DefaultHistoryLimit,
		locks:        newKeyedMutex(),
		ctx:          ctx,
		cancel:       cancel,
		watchdogs:    make(map[string]*watchdog),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AskQuestion 创建提问和回答占位, 投递给worker并启动看门狗, 立即返回提问
// 回答通过ApplyAnswerEvent异步到达
func (o *Orchestrator) AskQuestion(ctx context.Context, noticeId, prompt, userId string) (*conversation.Conversation, error) {
	return o.ask(ctx, noticeId, prompt, userId, false)
}

// AskQuestionWithAck 与AskQuestion相同, 但在投递前先把提问推送给用户的所有会话
func (o *Orchestrator) AskQuestionWithAck(ctx context.Context, noticeId, prompt, userId string) (*conversation.Conversation, error) {
	return o.ask(ctx, noticeId, prompt, userId, true)
}

func (o *Orchestrator) ask(ctx context.Context, noticeId, prompt, userId string, ack bool) (*conversation.Conversation, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errorx.New(errno.InvalidArgumentErrCode, errorx.KV("field", "promptText"))
	}
	n, err := o.notices.FindById(ctx, noticeId)
	if err != nil {
		logs.CtxErrorf(ctx, "[answer] find notice=%s user=%s err: %s", noticeId, userId, errorx.ErrorWithoutStack(err))
		return nil, errorx.WrapByCode(err, errno.ConversationCreateErrCode)
	}
	u, err := o.users.FindById(ctx, userId)
	if err != nil {
		logs.CtxErrorf(ctx, "[answer] find user=%s err: %s", userId, errorx.ErrorWithoutStack(err))
		return nil, errorx.WrapByCode(err, errno.ConversationCreateErrCode)
	}

	// 历史在插入前读取, 不包含本次提问
	history := o.history(ctx, n.Id.Hex(), u.Id.Hex())

	q, a := conversation.NewPair(n.Id, u.Id, prompt)
	if err = o.store.InsertPair(ctx, q, a); err != nil {
		logs.CtxErrorf(ctx, "[answer] create pair notice=%s user=%s err: %s", noticeId, userId, errorx.ErrorWithoutStack(err))
		return nil, errorx.WrapByCode(err, errno.ConversationCreateErrCode)
	}
	correlationId := a.Id.Hex()
	o.arm(correlationId, u.Id.Hex(), n.ExternalId)

	if ack {
		o.fanout.Push(ctx, u.Id.Hex(), n.ExternalId, &AnswerPush{Conversation: q, Done: false})
	}

	out := &OutboundQuestion{
		PromptText:          prompt,
		ExternalDocumentId:  n.ExternalId,
		RequestingUserId:    u.Id.Hex(),
		AnswerCorrelationId: correlationId,
		PriorMessages:       history,
	}
	if err = o.bus.Publish(ctx, o.topic, correlationId, out); err != nil {
		logs.CtxErrorf(ctx, "[answer] publish question answer=%s user=%s err: %s", correlationId, userId, errorx.ErrorWithoutStack(err))
		o.abandon(ctx, correlationId, errorx.ErrorWithoutStack(err))
		return nil, err
	}
	logs.CtxInfof(ctx, "[answer] question=%s dispatched, answer=%s user=%s notice=%s", q.Id.Hex(), correlationId, userId, noticeId)
	return q, nil
}

// history 取出历史消息并映射角色, 未完成/失败/超时的回答不作为上下文
// 读取失败时不带历史继续提问
func (o *Orchestrator) history(ctx context.Context, noticeId, userId string) []*PriorMessage {
	rows, err := o.store.ListByNoticeAndUser(ctx, noticeId, userId)
	if err != nil {
		logs.CtxWarnf(ctx, "[answer] load history notice=%s user=%s err: %s", noticeId, userId, errorx.ErrorWithoutStack(err))
		return nil
	}
	msgs := make([]*PriorMessage, 0, len(rows))
	for _, r := range rows {
		if r.Content == "" {
			continue
		}
		role := cst.User
		if r.IsAI() {
			if !r.Finalized || r.Error != "" || r.Content == cst.TimeoutFallback {
				continue
			}
			role = cst.System
		}
		msgs = append(msgs, &PriorMessage{Role: role, Content: r.Content})
	}
	if o.historyLimit > 0 && len(msgs) > o.historyLimit {
		msgs = msgs[len(msgs)-o.historyLimit:]
	}
	if len(msgs) == 0 {
		return nil
	}
	return msgs
}

// abandon 投递失败时结束占位, 避免留下永远为空的回答
func (o *Orchestrator) abandon(ctx context.Context, id, reason string) {
	err := o.ApplyAnswerEvent(context.WithoutCancel(ctx), &InboundAnswerEvent{AnswerCorrelationId: id, Done: true, Error: reason})
	if err != nil {
		logs.CtxErrorf(ctx, "[answer] finalize undelivered answer=%s err: %s", id, errorx.ErrorWithoutStack(err))
	}
}

// ApplyAnswerEvent 将回答事件写入对应占位并推送
// 找不到占位或占位已完成时丢弃事件, 只有存储错误会返回, 由总线重新投递
func (o *Orchestrator) ApplyAnswerEvent(ctx context.Context, e *InboundAnswerEvent) error {
	id := e.AnswerCorrelationId
	unlock := o.locks.Lock(id)
	defer unlock()

	row, err := o.store.FindById(ctx, id)
	if err != nil {
		if errorx.Is(err, errno.ConversationNotFoundErrCode) {
			metrics.AnswerEvents.WithLabelValues("stale").Inc()
			logs.CtxWarnf(ctx, "[answer] discard event for unknown answer=%s user=%s", id, e.RequestingUserId)
			return nil
		}
		metrics.AnswerEvents.WithLabelValues("failed").Inc()
		logs.CtxErrorf(ctx, "[answer] load answer=%s user=%s err: %s", id, e.RequestingUserId, errorx.ErrorWithoutStack(err))
		return errorx.WrapByCode(err, errno.AnswerApplyErrCode)
	}
	if !row.IsAI() {
		metrics.AnswerEvents.WithLabelValues("stale").Inc()
		logs.CtxWarnf(ctx, "[answer] discard event targeting question row=%s", id)
		return nil
	}
	if row.Finalized {
		metrics.AnswerEvents.WithLabelValues("duplicate").Inc()
		logs.CtxInfof(ctx, "[answer] discard event for finalized answer=%s user=%s", id, row.UserId.Hex())
		return nil
	}

	var by string
	switch {
	case e.Error != "" || row.Error != "":
		if e.Error != "" {
			row.Error = e.Error
		}
		row.Content, row.Finalized, by = cst.ErrorSentinel, true, "error"
		logs.CtxWarnf(ctx, "[answer] worker reported error answer=%s user=%s: %s", id, row.UserId.Hex(), row.Error)
	case !e.Done:
		row.Content += e.AnswerText
	default:
		row.Content, row.Finalized, by = e.AnswerText, true, "answer"
	}

	if err = o.store.SaveAnswer(ctx, row); err != nil {
		if errorx.Is(err, errno.ConversationFinalizedCode) {
			metrics.AnswerEvents.WithLabelValues("duplicate").Inc()
			return nil
		}
		metrics.AnswerEvents.WithLabelValues("failed").Inc()
		logs.CtxErrorf(ctx, "[answer] save answer=%s user=%s err: %s", id, row.UserId.Hex(), errorx.ErrorWithoutStack(err))
		return errorx.WrapByCode(err, errno.AnswerApplyErrCode)
	}
	metrics.AnswerEvents.WithLabelValues("applied").Inc()
	if by != "" {
		metrics.AnswerFinalized.WithLabelValues(by).Inc()
	}
	if row.Finalized || row.Content != "" {
		o.resolve(id)
	}

	topicKey := e.ExternalDocumentId
	if topicKey == "" {
		topicKey = o.topicKey(ctx, row)
	}
	// 仍持有锁, 同一回答的推送顺序与写入顺序一致
	o.fanout.Push(ctx, row.UserId.Hex(), topicKey, &AnswerPush{Conversation: row, Done: row.Finalized})
	return nil
}

func (o *Orchestrator) topicKey(ctx context.Context, row *conversation.Conversation) string {
	n, err := o.notices.FindById(ctx, row.NoticeId.Hex())
	if err != nil {
		logs.CtxWarnf(ctx, "[answer] resolve topic for answer=%s err: %s", row.Id.Hex(), errorx.ErrorWithoutStack(err))
		return row.NoticeId.Hex()
	}
	return n.ExternalId
}

// List 用户在某公告下的全部消息, 按时间正序
func (o *Orchestrator) List(ctx context.Context, noticeId, userId string) ([]*conversation.Conversation, error) {
	if _, err := o.notices.FindById(ctx, noticeId); err != nil {
		return nil, errorx.WrapByCode(err, errno.ConversationListErrCode)
	}
	cs, err := o.store.ListByNoticeAndUser(ctx, noticeId, userId)
	if err != nil {
		logs.CtxErrorf(ctx, "[answer] list notice=%s user=%s err: %s", noticeId, userId, errorx.ErrorWithoutStack(err))
		return nil, errorx.WrapByCode(err, errno.ConversationListErrCode)
	}
	return cs, nil
}

// Close 停止所有看门狗, 仅在进程退出时调用
func (o *Orchestrator) Close() {
	o.cancel()
}
