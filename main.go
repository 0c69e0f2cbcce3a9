package main

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/hertz-contrib/monitor-prometheus"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/xh-polaris/docflow-core-api/biz/adaptor/router"
	"github.com/xh-polaris/docflow-core-api/biz/infra/bus"
	"github.com/xh-polaris/docflow-core-api/biz/infra/metrics"
	"github.com/xh-polaris/docflow-core-api/pkg/errorx"
	"github.com/xh-polaris/docflow-core-api/pkg/logs"
	"github.com/xh-polaris/docflow-core-api/provider"
	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func main() {
	provider.Init()
	p := provider.Get()
	logs.SetLevel(p.Config.Log.Level)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(b3.New(), propagation.Baggage{}, propagation.TraceContext{}))
	tracer, cfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(p.Config.ListenOn),
		server.WithExitWaitTime(5*time.Second),
		server.WithTracer(prometheus.NewServerTracer(p.Config.Metrics.ListenOn, p.Config.Metrics.Path,
			prometheus.WithRegistry(metrics.Registry))),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(cfg))
	router.GeneratedRegister(h)

	// 回答事件消费者, 与http服务同生命周期
	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Bus.Consume(ctx, p.Config.Bus.AnswerTopic, bus.Handle(p.Orchestrator.ApplyAnswerEvent)); err != nil {
		logs.Errorf("[main] consume %s error: %s", p.Config.Bus.AnswerTopic, errorx.ErrorWithoutStack(err))
		panic(err)
	}
	h.OnShutdown = append(h.OnShutdown, func(context.Context) {
		cancel()
		p.Orchestrator.Close()
		if err := p.Bus.Close(); err != nil {
			logs.Errorf("[main] close bus error: %s", errorx.ErrorWithoutStack(err))
		}
	})
	logs.Infof("[main] %s listening on %s", p.Config.Name, p.Config.ListenOn)
	h.Spin()
}
