package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry 与hertz监控共用, 业务指标和http指标在同一个端点暴露
var Registry = prometheus.NewRegistry()

var (
	// AnswerEvents 收到的回答事件, result: applied/duplicate/stale/failed
	AnswerEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docflow",
		Name:      "answer_events_total",
		Help:      "answer events received from the bus",
	}, []string{"result"})

	// AnswerFinalized 完成的回答, by: answer/error/timeout
	AnswerFinalized = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docflow",
		Name:      "answer_finalized_total",
		Help:      "answers that reached their final state",
	}, []string{"by"})

	// BusPublish 投递结果, result: ok/too_large/failed
	BusPublish = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docflow",
		Name:      "bus_publish_total",
		Help:      "messages published to the bus",
	}, []string{"topic", "result"})

	// Sessions 当前在线的会话数
	Sessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "docflow",
		Name:      "live_sessions",
		Help:      "currently joined live sessions",
	})
)

func init() {
	Registry.MustRegister(AnswerEvents, AnswerFinalized, BusPublish, Sessions)
}
