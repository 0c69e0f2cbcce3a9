package errno

import (
	"net/http"

	"github.com/xh-polaris/docflow-core-api/pkg/errorx/code"
)

const (
	UnAuthErrCode          = 1000
	InvalidArgumentErrCode = 30010
)

func init() {
	code.Register(
		UnAuthErrCode,
		"身份认证失败",
		code.WithAffectStability(false),
		code.WithHTTPStatus(http.StatusUnauthorized),
	)
	code.Register(
		InvalidArgumentErrCode,
		"参数错误: {field}",
		code.WithAffectStability(false),
		code.WithHTTPStatus(http.StatusBadRequest),
	)
}
