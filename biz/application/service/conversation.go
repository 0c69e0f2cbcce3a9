package service

import (
	"context"
	"strings"

	"github.com/google/wire"
	"github.com/xh-polaris/docflow-core-api/biz/adaptor"
	"github.com/xh-polaris/docflow-core-api/biz/application/dto/core_api"
	"github.com/xh-polaris/docflow-core-api/biz/domain/answer"
	"github.com/xh-polaris/docflow-core-api/biz/infra/auth"
	"github.com/xh-polaris/docflow-core-api/biz/infra/util"
	"github.com/xh-polaris/docflow-core-api/pkg/errorx"
	"github.com/xh-polaris/docflow-core-api/pkg/logs"
	"github.com/xh-polaris/docflow-core-api/types/errno"
)

type IConversationService interface {
	CreateConversation(ctx context.Context, req *core_api.CreateConversationReq) (*core_api.CreateConversationResp, error)
	ListConversation(ctx context.Context, req *core_api.ListConversationReq) (*core_api.ListConversationResp, error)
}

type ConversationService struct {
	Verifier     auth.Verifier
	Orchestrator *answer.Orchestrator
}

var ConversationServiceSet = wire.NewSet(
	wire.Struct(new(ConversationService), "*"),
	wire.Bind(new(IConversationService), new(*ConversationService)),
)

// CreateConversation 提问, 立即返回提问消息, 回答通过会话推送
func (s *ConversationService) CreateConversation(ctx context.Context, req *core_api.CreateConversationReq) (*core_api.CreateConversationResp, error) {
	// 鉴权
	uid, err := adaptor.ExtractUserId(ctx, s.Verifier)
	if err != nil {
		return nil, errorx.WrapByCode(err, errno.UnAuthErrCode)
	}
	if strings.TrimSpace(req.GetNoticeId()) == "" {
		return nil, errorx.New(errno.InvalidArgumentErrCode, errorx.KV("field", "noticeId"))
	}

	q, err := s.Orchestrator.AskQuestion(ctx, req.GetNoticeId(), req.GetPromptText(), uid)
	if err != nil {
		logs.CtxErrorf(ctx, "ask question notice=%s user=%s error: %s", req.GetNoticeId(), uid, errorx.ErrorWithoutStack(err))
		return nil, err
	}
	return &core_api.CreateConversationResp{Resp: util.Success(), Conversation: q}, nil
}

// ListConversation 用户在公告下的全部消息
func (s *ConversationService) ListConversation(ctx context.Context, req *core_api.ListConversationReq) (*core_api.ListConversationResp, error) {
	uid, err := adaptor.ExtractUserId(ctx, s.Verifier)
	if err != nil {
		return nil, errorx.WrapByCode(err, errno.UnAuthErrCode)
	}
	if strings.TrimSpace(req.GetNoticeId()) == "" {
		return nil, errorx.New(errno.InvalidArgumentErrCode, errorx.KV("field", "noticeId"))
	}

	cs, err := s.Orchestrator.List(ctx, req.GetNoticeId(), uid)
	if err != nil {
		logs.CtxErrorf(ctx, "list conversation notice=%s user=%s error: %s", req.GetNoticeId(), uid, errorx.ErrorWithoutStack(err))
		return nil, err
	}
	return &core_api.ListConversationResp{Resp: util.Success(), Conversations: cs}, nil
}
