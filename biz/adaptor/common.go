package adaptor

import (
	"context"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/xh-polaris/docflow-core-api/biz/infra/auth"
	"github.com/xh-polaris/docflow-core-api/pkg/logs"
)

const hertzContext = "hertz_context"

func InjectContext(ctx context.Context, c *app.RequestContext) context.Context {
	return context.WithValue(ctx, hertzContext, c)
}

func ExtractContext(ctx context.Context) (*app.RequestContext, error) {
	c, ok := ctx.Value(hertzContext).(*app.RequestContext)
	if !ok {
		return nil, errors.New("hertz context not found")
	}
	return c, nil
}

// ExtractToken 优先从Authorization头读取凭证, websocket握手时浏览器无法设置头, 回退到token参数
func ExtractToken(c *app.RequestContext) string {
	if token := string(c.GetHeader("Authorization")); token != "" {
		return token
	}
	return c.Query("token")
}

// ExtractUserId 校验请求携带的凭证并返回用户id
func ExtractUserId(ctx context.Context, v auth.Verifier) (userId string, err error) {
	defer func() {
		if err != nil {
			logs.CtxInfof(ctx, "extract user meta fail, err=%v", err)
		}
	}()
	c, err := ExtractContext(ctx)
	if err != nil {
		return "", err
	}
	return v.Verify(ExtractToken(c))
}
