package errno

import (
	"net/http"

	"github.com/xh-polaris/docflow-core-api/pkg/errorx/code"
)

const (
	PayloadTooLargeErrCode = 40001
	BusPublishErrCode      = 40002
	BusSubscribeErrCode    = 40003
)

func init() {
	code.Register(
		PayloadTooLargeErrCode,
		"消息大小 {size} 字节超过上限 {limit} 字节",
		code.WithAffectStability(false),
		code.WithHTTPStatus(http.StatusRequestEntityTooLarge),
	)
	code.Register(
		BusPublishErrCode,
		"向 {topic} 投递消息失败",
		code.WithAffectStability(true),
		code.WithHTTPStatus(http.StatusServiceUnavailable),
	)
	code.Register(
		BusSubscribeErrCode,
		"订阅 {topic} 失败",
		code.WithAffectStability(true),
		code.WithHTTPStatus(http.StatusServiceUnavailable),
	)
}
