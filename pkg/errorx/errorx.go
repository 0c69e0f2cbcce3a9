package errorx

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	pkgerrs "github.com/pkg/errors"
	"github.com/xh-polaris/docflow-core-api/pkg/errorx/code"
)

// StatusError 是带错误码的业务错误
// 业务链路末端返回StatusError, 由adaptor转换为用户友好的响应
type StatusError interface {
	error
	Code() int32
	Msg() string
	HTTPStatus() int
	IsAffectStability() bool
	Extra() map[string]string
}

type Option func(*statusError)

// KV 为错误信息中的{key}占位符填充值, 同时记录在Extra中
func KV(k, v string) Option {
	return func(e *statusError) {
		if e.extra == nil {
			e.extra = make(map[string]string)
		}
		e.extra[k] = v
	}
}

type statusError struct {
	code   int32
	msg    string
	status int
	affect bool
	extra  map[string]string
	cause  error
	stack  error
}

func (e *statusError) Code() int32 { return e.code }

func (e *statusError) Msg() string { return e.msg }

func (e *statusError) HTTPStatus() int { return e.status }

func (e *statusError) IsAffectStability() bool { return e.affect }

func (e *statusError) Extra() map[string]string { return e.extra }

func (e *statusError) Unwrap() error { return e.cause }

func (e *statusError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("code=%d, msg=%s, cause=%s", e.code, e.msg, e.cause.Error())
	}
	return fmt.Sprintf("code=%d, msg=%s", e.code, e.msg)
}

// Format 支持%+v打印堆栈
func (e *statusError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') && e.stack != nil {
		_, _ = fmt.Fprintf(s, "%s\n%+v", e.Error(), e.stack)
		return
	}
	_, _ = fmt.Fprint(s, e.Error())
}

func build(c int32, cause error, opts ...Option) *statusError {
	e := &statusError{code: c, msg: "未知错误", status: http.StatusInternalServerError, affect: true, cause: cause}
	if d, ok := code.Get(c); ok {
		e.msg, e.status, e.affect = d.Message, d.HTTPStatus, d.AffectStability
	}
	for _, opt := range opts {
		opt(e)
	}
	for k, v := range e.extra {
		e.msg = strings.ReplaceAll(e.msg, "{"+k+"}", v)
	}
	e.stack = pkgerrs.New(e.msg)
	return e
}

// New 根据注册的错误码创建错误
func New(c int32, opts ...Option) error {
	return build(c, nil, opts...)
}

// WrapByCode 使用错误码包装err, err为nil时返回nil
// err本身已是StatusError时原样返回, 保留最内层的错误码
func WrapByCode(err error, c int32, opts ...Option) error {
	if err == nil {
		return nil
	}
	var se StatusError
	if errors.As(err, &se) {
		return err
	}
	return build(c, err, opts...)
}

// Is 判断err链上是否存在指定错误码
func Is(err error, c int32) bool {
	var se StatusError
	if errors.As(err, &se) {
		return se.Code() == c
	}
	return false
}

// ErrorWithoutStack 返回不带堆栈的错误字符串, 便于日志单行输出
func ErrorWithoutStack(err error) string {
	if err == nil {
		return "<nil>"
	}
	return strings.SplitN(err.Error(), "\n", 2)[0]
}
