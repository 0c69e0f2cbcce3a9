package service

import (
	"context"
	"errors"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
	"github.com/google/wire"
	"github.com/hertz-contrib/websocket"
	"github.com/xh-polaris/docflow-core-api/biz/adaptor"
	"github.com/xh-polaris/docflow-core-api/biz/application/dto/core_api"
	"github.com/xh-polaris/docflow-core-api/biz/domain/answer"
	"github.com/xh-polaris/docflow-core-api/biz/domain/session"
	"github.com/xh-polaris/docflow-core-api/biz/infra/auth"
	"github.com/xh-polaris/docflow-core-api/biz/infra/cst"
	"github.com/xh-polaris/docflow-core-api/biz/infra/mapper/conversation"
	"github.com/xh-polaris/docflow-core-api/pkg/errorx"
	"github.com/xh-polaris/docflow-core-api/pkg/logs"
	"github.com/xh-polaris/docflow-core-api/pkg/wsx"
	"github.com/xh-polaris/docflow-core-api/types/errno"
)

// Asker 会话中提问所需的编排能力
type Asker interface {
	AskQuestionWithAck(ctx context.Context, noticeId, prompt, userId string) (*conversation.Conversation, error)
}

type IChatService interface {
	// Chat 校验握手凭证, 通过后升级为websocket并处理到连接关闭
	Chat(ctx context.Context, c *app.RequestContext)
	// Serve 处理一条已鉴权的websocket连接, 直到连接关闭
	Serve(ctx context.Context, userId string, conn *websocket.Conn)
}

type ChatService struct {
	Verifier     auth.Verifier
	Orchestrator *answer.Orchestrator
	Registry     *session.Registry
}

var ChatServiceSet = wire.NewSet(
	wire.Struct(new(ChatService), "*"),
	wire.Bind(new(IChatService), new(*ChatService)),
)

// Chat 凭证缺失或无效时直接返回401, 不升级连接也不加入房间
func (s *ChatService) Chat(ctx context.Context, c *app.RequestContext) {
	uid, err := adaptor.ExtractUserId(adaptor.InjectContext(ctx, c), s.Verifier)
	if err != nil {
		adaptor.PostError(ctx, c, errorx.WrapByCode(err, errno.UnAuthErrCode))
		return
	}
	if err = wsx.UpgradeWs(ctx, c, func(ctx context.Context, conn *websocket.Conn) {
		s.Serve(ctx, uid, conn)
	}); err != nil {
		logs.CtxErrorf(ctx, "[chat] websocket upgrade user=%s error: %s", uid, errorx.ErrorWithoutStack(err))
	}
}

func (s *ChatService) Serve(ctx context.Context, userId string, conn *websocket.Conn) {
	serve(ctx, userId, wsx.NewSession(uuid.NewString(), wsx.NewHZWSClient(conn)), s.Orchestrator, s.Registry)
}

// serve 加入用户房间后循环读取上行帧, 连接断开时离开房间
// 断开不会取消已发出的提问, 回答仍会写入存储
func serve(ctx context.Context, userId string, ss *wsx.Session, asker Asker, registry *session.Registry) {
	registry.Join(userId, ss)
	logs.CtxInfof(ctx, "[chat] session=%s user=%s joined", ss.Id(), userId)
	defer func() {
		registry.Leave(userId, ss)
		_ = ss.Close()
		logs.CtxInfof(ctx, "[chat] session=%s user=%s left", ss.Id(), userId)
	}()

	for {
		f, err := ss.Next()
		if err != nil {
			if errors.Is(err, wsx.BadFrameErr) {
				emitError(ctx, ss, errorx.New(errno.InvalidArgumentErrCode, errorx.KV("field", "frame")))
				continue
			}
			if !wsx.IsNormal(err) {
				logs.CtxWarnf(ctx, "[chat] session=%s user=%s read error: %s", ss.Id(), userId, errorx.ErrorWithoutStack(err))
			}
			return
		}
		switch f.Event {
		case cst.EventQuestion:
			q := new(core_api.QuestionEvent)
			if err = sonic.Unmarshal(f.Data, q); err != nil {
				emitError(ctx, ss, errorx.New(errno.InvalidArgumentErrCode, errorx.KV("field", "data")))
				continue
			}
			if q.NoticeId == "" {
				emitError(ctx, ss, errorx.New(errno.InvalidArgumentErrCode, errorx.KV("field", "noticeId")))
				continue
			}
			// 确认帧由编排器推送到用户的所有会话, 包括当前会话
			if _, err = asker.AskQuestionWithAck(ctx, q.NoticeId, q.PromptText, userId); err != nil {
				emitError(ctx, ss, err)
			}
		default:
			emitError(ctx, ss, errorx.New(errno.InvalidArgumentErrCode, errorx.KV("field", "event")))
		}
	}
}

func emitError(ctx context.Context, ss *wsx.Session, err error) {
	_, body := adaptor.MapError(err)
	if e := ss.Emit(cst.EventError, &core_api.ErrorEvent{Code: body.Code, Msg: body.Msg}); e != nil {
		logs.CtxWarnf(ctx, "[chat] emit error to session=%s failed: %s", ss.Id(), errorx.ErrorWithoutStack(e))
	}
}
