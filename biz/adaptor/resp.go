package adaptor

// HTTP 响应相关

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol"
	hertz "github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/xh-polaris/docflow-core-api/pkg/errorx"
	"github.com/xh-polaris/docflow-core-api/pkg/logs"
	"github.com/xh-polaris/gopkg/util"
	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Body 错误响应体
type Body struct {
	Code int32  `json:"code"`
	Msg  string `json:"msg"`
}

// PostProcess 处理http响应, resp要求指针或接口类型
// 在日志中记录本次调用详情, 同时向响应头中注入符合b3规范的链路信息, 主要是trace_id
// 最佳实践:
// - 在controller中调用业务处理, 处理结束后调用PostProcess
func PostProcess(ctx context.Context, c *app.RequestContext, req, resp any, err error) {
	b3.New().Inject(ctx, &headerProvider{headers: &c.Response.Header})
	logs.CtxInfof(ctx, "[%s] req=%s, resp=%s, err=%s, trace=%s", c.Path(), util.JSONF(req), util.JSONF(resp), errorx.ErrorWithoutStack(err), trace.SpanContextFromContext(ctx).TraceID().String())

	// 无错, 正常响应
	if err == nil {
		c.JSON(hertz.StatusOK, makeResponse(resp))
		return
	}
	PostError(ctx, c, err)
}

// PostError 处理错误
func PostError(ctx context.Context, c *app.RequestContext, err error) {
	status, body := MapError(err)
	if status >= http.StatusInternalServerError {
		logs.CtxErrorf(ctx, "[ErrorX] status=%d code=%d err=%s", status, body.Code, errorx.ErrorWithoutStack(err))
	} else {
		logs.CtxWarnf(ctx, "[ErrorX] status=%d code=%d err=%s", status, body.Code, errorx.ErrorWithoutStack(err))
	}
	c.AbortWithStatusJSON(status, body)
}

// MapError 错误到http状态码和响应体的统一映射, http接口和websocket会话共用
// 未注册的错误一律视为500, 不向客户端暴露内部信息
func MapError(err error) (int, Body) {
	var customErr errorx.StatusError
	if errors.As(err, &customErr) && customErr.Code() != 0 {
		return customErr.HTTPStatus(), Body{Code: customErr.Code(), Msg: customErr.Msg()}
	}
	return http.StatusInternalServerError, Body{Code: http.StatusInternalServerError, Msg: http.StatusText(http.StatusInternalServerError)}
}

// makeResponse 通过反射构造嵌套格式的响应体
func makeResponse(resp any) map[string]any {
	if resp == nil {
		return nil
	}
	v := reflect.ValueOf(resp)
	if v.IsZero() || v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil
	}
	// 构建返回数据
	v = v.Elem()
	response := map[string]any{"code": 200, "msg": "success"}
	if r := v.FieldByName("Resp"); r.IsValid() && !r.IsNil() {
		r = r.Elem()
		response["code"], response["msg"] = r.FieldByName("Code").Int(), r.FieldByName("Msg").String()
	}

	data := make(map[string]any)
	for i := 0; i < v.NumField(); i++ {
		field := v.Type().Field(i)
		if jsonTag := field.Tag.Get("json"); jsonTag != "" && field.Name != "Resp" {
			name := strings.Split(jsonTag, ",")[0]
			if fieldValue := v.Field(i).Interface(); !reflect.ValueOf(fieldValue).IsZero() || !strings.Contains(jsonTag, "omitempty") {
				data[name] = fieldValue
			}
		}
	}
	if len(data) > 0 {
		response["data"] = data
	}
	return response
}

var _ propagation.TextMapCarrier = &headerProvider{}

type headerProvider struct {
	headers *protocol.ResponseHeader
}

// Get a value from metadata by key
func (m *headerProvider) Get(key string) string {
	return m.headers.Get(key)
}

// Set a value to metadata by k/v
func (m *headerProvider) Set(key, value string) {
	m.headers.Set(key, value)
}

// Keys Iteratively get all keys of metadata
func (m *headerProvider) Keys() []string {
	out := make([]string, 0)
	m.headers.VisitAll(func(key, value []byte) {
		out = append(out, string(key))
	})
	return out
}
