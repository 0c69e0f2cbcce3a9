package core_api

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/xh-polaris/docflow-core-api/biz/adaptor"
	"github.com/xh-polaris/docflow-core-api/biz/application/dto/core_api"
	"github.com/xh-polaris/docflow-core-api/pkg/errorx"
	"github.com/xh-polaris/docflow-core-api/provider"
	"github.com/xh-polaris/docflow-core-api/types/errno"
)

// CreateConversation .
// @router /v1/conversations [POST]
func CreateConversation(ctx context.Context, c *app.RequestContext) {
	var err error
	var req core_api.CreateConversationReq
	err = c.BindAndValidate(&req)
	if err != nil {
		adaptor.PostError(ctx, c, errorx.WrapByCode(err, errno.InvalidArgumentErrCode, errorx.KV("field", "body")))
		return
	}

	ctx = adaptor.InjectContext(ctx, c)
	p := provider.Get()
	resp, err := p.ConversationService.CreateConversation(ctx, &req)
	adaptor.PostProcess(ctx, c, &req, resp, err)
}

// ListConversation .
// @router /v1/conversations [GET]
func ListConversation(ctx context.Context, c *app.RequestContext) {
	var err error
	var req core_api.ListConversationReq
	err = c.BindAndValidate(&req)
	if err != nil {
		adaptor.PostError(ctx, c, errorx.WrapByCode(err, errno.InvalidArgumentErrCode, errorx.KV("field", "query")))
		return
	}

	ctx = adaptor.InjectContext(ctx, c)
	p := provider.Get()
	resp, err := p.ConversationService.ListConversation(ctx, &req)
	adaptor.PostProcess(ctx, c, &req, resp, err)
}
