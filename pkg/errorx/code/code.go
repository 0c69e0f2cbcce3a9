package code

import (
	"net/http"
	"sync"
)

// 错误码注册表, 各业务模块在init中注册自己的错误码

type CodeDefinition struct {
	Code            int32
	Message         string
	AffectStability bool
	HTTPStatus      int
}

type RegisterOption func(*CodeDefinition)

// WithAffectStability 标记该错误是否影响服务稳定性, 影响的错误需要告警
func WithAffectStability(affect bool) RegisterOption {
	return func(d *CodeDefinition) {
		d.AffectStability = affect
	}
}

// WithHTTPStatus 指定错误返回给调用方时的HTTP状态码, 默认200
func WithHTTPStatus(status int) RegisterOption {
	return func(d *CodeDefinition) {
		d.HTTPStatus = status
	}
}

var (
	mu          sync.RWMutex
	definitions = map[int32]*CodeDefinition{}
)

func Register(code int32, msg string, opts ...RegisterOption) {
	d := &CodeDefinition{Code: code, Message: msg, AffectStability: true, HTTPStatus: http.StatusOK}
	for _, opt := range opts {
		opt(d)
	}
	mu.Lock()
	definitions[code] = d
	mu.Unlock()
}

func Get(code int32) (*CodeDefinition, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := definitions[code]
	return d, ok
}
