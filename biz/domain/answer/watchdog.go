package answer

import (
	"context"

	"github.com/xh-polaris/docflow-core-api/biz/infra/cst"
	"github.com/xh-polaris/docflow-core-api/biz/infra/metrics"
	"github.com/xh-polaris/docflow-core-api/pkg/errorx"
	"github.com/xh-polaris/docflow-core-api/pkg/logs"
	"github.com/xh-polaris/docflow-core-api/pkg/safego"
	"github.com/xh-polaris/docflow-core-api/types/errno"
)

// watchdog 每个回答占位一个, armed -> resolved
// 在截止前收到非空内容或完成通知则直接退出, 否则写入兜底回答
type watchdog struct {
	id       string
	userId   string
	topicKey string
	resolved chan struct{}
}

func (o *Orchestrator) arm(id, userId, topicKey string) {
	w := &watchdog{id: id, userId: userId, topicKey: topicKey, resolved: make(chan struct{}, 1)}
	o.mu.Lock()
	o.watchdogs[id] = w
	o.mu.Unlock()
	timer := o.clock.NewTimer(o.deadline)
	safego.Go(o.ctx, func() { o.watch(w, timer) })
}

func (o *Orchestrator) watch(w *watchdog, timer Timer) {
	defer o.retire(w.id)
	defer timer.Stop()
	select {
	case <-w.resolved:
		logs.Debugf("[watchdog] answer=%s resolved before deadline", w.id)
	case <-o.ctx.Done():
	case <-timer.C():
		o.expire(w)
	}
}

// resolve 通知看门狗回答已有内容
func (o *Orchestrator) resolve(id string) {
	o.mu.Lock()
	w := o.watchdogs[id]
	o.mu.Unlock()
	if w == nil {
		return
	}
	select {
	case w.resolved <- struct{}{}:
	default:
	}
}

func (o *Orchestrator) retire(id string) {
	o.mu.Lock()
	delete(o.watchdogs, id)
	o.mu.Unlock()
}

// expire 截止时重新读取占位, 仍为空且未完成时写入兜底回答
func (o *Orchestrator) expire(w *watchdog) {
	ctx := context.WithoutCancel(o.ctx)
	unlock := o.locks.Lock(w.id)
	defer unlock()

	row, err := o.store.FindById(ctx, w.id)
	if err != nil {
		logs.CtxErrorf(ctx, "[watchdog] load answer=%s user=%s err: %s", w.id, w.userId, errorx.ErrorWithoutStack(err))
		return
	}
	if row.Finalized || row.Content != "" {
		return
	}
	row.Content, row.Finalized = cst.TimeoutFallback, true
	if err = o.store.SaveAnswer(ctx, row); err != nil {
		if !errorx.Is(err, errno.ConversationFinalizedCode) {
			logs.CtxErrorf(ctx, "[watchdog] save fallback answer=%s user=%s err: %s", w.id, w.userId, errorx.ErrorWithoutStack(err))
		}
		return
	}
	metrics.AnswerFinalized.WithLabelValues("timeout").Inc()
	logs.CtxWarnf(ctx, "[watchdog] answer=%s user=%s timed out after %s", w.id, w.userId, o.deadline)
	o.fanout.Push(ctx, w.userId, w.topicKey, &AnswerPush{Conversation: row, Done: true})
}

// Pending 仍在等待的看门狗数量
func (o *Orchestrator) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.watchdogs)
}
