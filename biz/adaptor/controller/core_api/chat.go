package core_api

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/xh-polaris/docflow-core-api/provider"
)

// Chat 实时会话, 握手时校验凭证, 失败时直接拒绝不升级
// @router /v1/conversations/ws [GET]
func Chat(ctx context.Context, c *app.RequestContext) {
	p := provider.Get()
	p.ChatService.Chat(ctx, c)
}
