package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/cors"
	"github.com/xh-polaris/docflow-core-api/biz/adaptor/controller/core_api"
)

// GeneratedRegister 注册所有路由
func GeneratedRegister(r *server.Hertz) {
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-B3-TraceId", "X-B3-SpanId"},
		AllowCredentials: false,
	}))
	r.GET("/ping", Ping)

	v1 := r.Group("/v1")
	{
		_conversations := v1.Group("/conversations")
		_conversations.POST("", core_api.CreateConversation)
		_conversations.GET("", core_api.ListConversation)
		_conversations.GET("/ws", core_api.Chat)
	}
}

// Ping 存活探针
func Ping(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]string{"message": "pong"})
}
