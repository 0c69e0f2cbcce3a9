package bus

import (
	"context"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/xh-polaris/docflow-core-api/biz/infra/config"
	"github.com/xh-polaris/docflow-core-api/biz/infra/metrics"
	"github.com/xh-polaris/docflow-core-api/pkg/errorx"
	"github.com/xh-polaris/docflow-core-api/pkg/logs"
	"github.com/xh-polaris/docflow-core-api/pkg/safego"
	"github.com/xh-polaris/docflow-core-api/types/errno"
)

const (
	// DefaultMaxPayloadBytes 单条消息序列化后的上限
	DefaultMaxPayloadBytes = 50 * 1024 * 1024
	DefaultMaxRetries      = 5

	// MetaKey 分区键, 同一个key的消息有序
	MetaKey      = "key"
	MetaClientId = "client_id"
)

// Handler 处理一条消息, 返回错误时消息会被重新投递
type Handler func(ctx context.Context, payload []byte) error

// Bus 消息总线, 封装watermill的发布订阅
// 发布前检查大小并在失败时有限次重试, 同一条消息重试时uuid不变
type Bus struct {
	pub        message.Publisher
	sub        message.Subscriber
	rdb        redis.UniversalClient // 为nil时不创建消费组
	clientId   string
	groupId    string
	maxRetries uint64
	maxPayload int
	backoff    func() backoff.BackOff
}

type Option func(*Bus)

func WithMaxRetries(n uint64) Option {
	return func(b *Bus) { b.maxRetries = n }
}

func WithMaxPayload(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.maxPayload = n
		}
	}
}

func WithClientId(id string) Option {
	return func(b *Bus) { b.clientId = id }
}

// WithBackOff 替换重试间隔策略, 测试中使用零间隔
func WithBackOff(f func() backoff.BackOff) Option {
	return func(b *Bus) { b.backoff = f }
}

func New(pub message.Publisher, sub message.Subscriber, opts ...Option) *Bus {
	b := &Bus{
		pub:        pub,
		sub:        sub,
		maxRetries: DefaultMaxRetries,
		maxPayload: DefaultMaxPayloadBytes,
		backoff: func() backoff.BackOff {
			eb := backoff.NewExponentialBackOff()
			eb.InitialInterval = 200 * time.Millisecond
			eb.MaxInterval = 5 * time.Second
			return eb
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewRedisBus 基于Redis Streams的总线, topic即stream名
func NewRedisBus(config *config.Config) (*Bus, error) {
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:      config.Redis.Addrs,
		Password:   config.Redis.Password,
		ClientName: config.Bus.ClientId,
	})
	logger := NewLogger()
	codec := redisstream.DefaultMarshallerUnmarshaller{}

	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client:     rdb,
		Marshaller: codec,
	}, logger)
	if err != nil {
		return nil, err
	}
	sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        rdb,
		Unmarshaller:  codec,
		ConsumerGroup: config.Bus.GroupId,
		Consumer:      ConsumerName(config.Bus.ClientId),
	}, logger)
	if err != nil {
		return nil, err
	}

	b := New(pub, sub,
		WithClientId(config.Bus.ClientId),
		WithMaxRetries(config.Bus.MaxRetries),
		WithMaxPayload(config.Bus.MaxPayloadBytes),
	)
	b.rdb, b.groupId = rdb, config.Bus.GroupId
	return b, nil
}

// ConsumerName 同一消费组内每个进程的消费者名需唯一, 在ClientId后追加主机名和随机后缀
func ConsumerName(clientId string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return clientId + "-" + host + "-" + uuid.NewString()[:8]
}

// Publish 序列化v并发布到topic, key相同的消息保持顺序
// 超过大小上限时直接失败, 不会产生任何网络调用
func (b *Bus) Publish(ctx context.Context, topic, key string, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	if len(data) > b.maxPayload {
		metrics.BusPublish.WithLabelValues(topic, "too_large").Inc()
		logs.CtxErrorf(ctx, "[bus] message size (%d bytes) exceeds %d bytes, topic=%s key=%s", len(data), b.maxPayload, topic, key)
		return errorx.New(errno.PayloadTooLargeErrCode,
			errorx.KV("size", strconv.Itoa(len(data))), errorx.KV("limit", strconv.Itoa(b.maxPayload)))
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(MetaKey, key)
	if b.clientId != "" {
		msg.Metadata.Set(MetaClientId, b.clientId)
	}
	msg.SetContext(ctx)

	policy := backoff.WithContext(backoff.WithMaxRetries(b.backoff(), b.maxRetries), ctx)
	err = backoff.RetryNotify(func() error {
		return b.pub.Publish(topic, msg)
	}, policy, func(err error, next time.Duration) {
		logs.CtxWarnf(ctx, "[bus] publish to %s failed, retry in %s, key=%s err=%s", topic, next, key, errorx.ErrorWithoutStack(err))
	})
	if err != nil {
		metrics.BusPublish.WithLabelValues(topic, "failed").Inc()
		logs.CtxErrorf(ctx, "[bus] publish to %s exhausted retries, key=%s err=%s", topic, key, errorx.ErrorWithoutStack(err))
		return errorx.WrapByCode(err, errno.BusPublishErrCode, errorx.KV("topic", topic))
	}
	metrics.BusPublish.WithLabelValues(topic, "ok").Inc()
	logs.CtxInfof(ctx, "[bus] published to %s, key=%s size=%.2fKB", topic, key, float64(len(data))/1024)
	return nil
}

// Consume 订阅topic并在后台逐条处理, handler返回nil时ack, 否则nack等待重投
// ctx结束或总线关闭时停止
func (b *Bus) Consume(ctx context.Context, topic string, handler Handler) error {
	if err := b.ensureGroup(ctx, topic); err != nil {
		return errorx.WrapByCode(err, errno.BusSubscribeErrCode, errorx.KV("topic", topic))
	}
	msgs, err := b.sub.Subscribe(ctx, topic)
	if err != nil {
		return errorx.WrapByCode(err, errno.BusSubscribeErrCode, errorx.KV("topic", topic))
	}
	safego.Go(ctx, func() {
		for msg := range msgs {
			b.handle(topic, msg, handler)
		}
		logs.Infof("[bus] consumer of %s stopped", topic)
	})
	return nil
}

func (b *Bus) handle(topic string, msg *message.Message, handler Handler) {
	if err := b.call(msg, handler); err != nil {
		logs.CtxWarnf(msg.Context(), "[bus] handle message %s from %s failed, nack: %s", msg.UUID, topic, errorx.ErrorWithoutStack(err))
		msg.Nack()
		return
	}
	msg.Ack()
}

// call 执行handler, panic的消息记录后按成功处理, 避免无限重投
func (b *Bus) call(msg *message.Message, handler Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logs.CtxErrorf(msg.Context(), "[bus] handler panic on message %s, dropped: %v\n%s", msg.UUID, r, debug.Stack())
			err = nil
		}
	}()
	return handler(msg.Context(), msg.Payload)
}

// ensureGroup 在stream末尾创建消费组, 避免首次订阅时重放全部历史
func (b *Bus) ensureGroup(ctx context.Context, topic string) error {
	if b.rdb == nil {
		return nil
	}
	err := b.rdb.XGroupCreateMkStream(ctx, topic, b.groupId, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (b *Bus) Close() error {
	var first error
	if err := b.pub.Close(); err != nil {
		first = err
	}
	if err := b.sub.Close(); err != nil && first == nil {
		first = err
	}
	if b.rdb != nil {
		if err := b.rdb.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Handle 将payload解码为T后交给fn, 无法解码的消息记录日志后丢弃
func Handle[T any](fn func(ctx context.Context, v *T) error) Handler {
	return func(ctx context.Context, payload []byte) error {
		v := new(T)
		if err := sonic.Unmarshal(payload, v); err != nil {
			logs.CtxErrorf(ctx, "[bus] drop undecodable message: %s", err)
			return nil
		}
		return fn(ctx, v)
	}
}
