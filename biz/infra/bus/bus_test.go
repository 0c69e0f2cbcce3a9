package bus

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xh-polaris/docflow-core-api/pkg/errorx"
	"github.com/xh-polaris/docflow-core-api/types/errno"
)

type payload struct {
	Id   string `json:"id"`
	Text string `json:"text"`
}

// flakyPublisher 前failures次发布失败, 记录每次调用的消息uuid
type flakyPublisher struct {
	mu       sync.Mutex
	failures int
	uuids    []string
	topics   []string
}

func (p *flakyPublisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		p.uuids = append(p.uuids, m.UUID)
	}
	p.topics = append(p.topics, topic)
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	return nil
}

func (p *flakyPublisher) Close() error { return nil }

func (p *flakyPublisher) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.topics)
}

func zeroBackOff() backoff.BackOff { return &backoff.ZeroBackOff{} }

func newChannelBus(t *testing.T, opts ...Option) *Bus {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, NewLogger())
	b := New(ch, ch, opts...)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestPublishConsumeRoundTrip(t *testing.T) {
	b := newChannelBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *payload, 1)
	require.NoError(t, b.Consume(ctx, "answers", Handle(func(_ context.Context, p *payload) error {
		got <- p
		return nil
	})))

	require.NoError(t, b.Publish(ctx, "answers", "k1", &payload{Id: "k1", Text: "hello"}))
	select {
	case p := <-got:
		assert.Equal(t, "k1", p.Id)
		assert.Equal(t, "hello", p.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestConsumeRedeliversOnHandlerError(t *testing.T) {
	b := newChannelBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})
	require.NoError(t, b.Consume(ctx, "answers", Handle(func(_ context.Context, p *payload) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return errors.New("store down")
		}
		close(done)
		return nil
	})))

	require.NoError(t, b.Publish(ctx, "answers", "k1", &payload{Id: "k1"}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("message not redelivered")
	}
	mu.Lock()
	assert.Equal(t, 2, attempts)
	mu.Unlock()
}

func TestConsumeDropsUndecodable(t *testing.T) {
	b := newChannelBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *payload, 2)
	require.NoError(t, b.Consume(ctx, "answers", Handle(func(_ context.Context, p *payload) error {
		got <- p
		return nil
	})))

	require.NoError(t, b.pub.Publish("answers", message.NewMessage("bad", []byte("{not json"))))
	require.NoError(t, b.Publish(ctx, "answers", "k2", &payload{Id: "k2"}))
	select {
	case p := <-got:
		assert.Equal(t, "k2", p.Id)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer stuck on undecodable message")
	}
}

func TestPublishRejectsOversizedPayload(t *testing.T) {
	pub := &flakyPublisher{}
	b := New(pub, nil, WithMaxPayload(64), WithBackOff(zeroBackOff))

	err := b.Publish(context.Background(), "questions", "k", &payload{Text: strings.Repeat("x", 100)})
	require.Error(t, err)
	assert.True(t, errorx.Is(err, errno.PayloadTooLargeErrCode))
	assert.Equal(t, 0, pub.calls())
}

func TestPublishDefaultLimitIsFiftyMegabytes(t *testing.T) {
	pub := &flakyPublisher{}
	b := New(pub, nil, WithBackOff(zeroBackOff))

	err := b.Publish(context.Background(), "questions", "k", &payload{Text: strings.Repeat("x", DefaultMaxPayloadBytes)})
	require.Error(t, err)
	assert.True(t, errorx.Is(err, errno.PayloadTooLargeErrCode))
	assert.Equal(t, 0, pub.calls())

	require.NoError(t, b.Publish(context.Background(), "questions", "k", &payload{Text: "small"}))
	assert.Equal(t, 1, pub.calls())
}

func TestPublishRetriesWithSameMessageId(t *testing.T) {
	pub := &flakyPublisher{failures: 2}
	b := New(pub, nil, WithMaxRetries(5), WithBackOff(zeroBackOff))

	require.NoError(t, b.Publish(context.Background(), "questions", "k", &payload{Id: "a"}))
	require.Equal(t, 3, pub.calls())
	assert.Equal(t, pub.uuids[0], pub.uuids[1])
	assert.Equal(t, pub.uuids[0], pub.uuids[2])
}

func TestPublishGivesUpAfterMaxRetries(t *testing.T) {
	pub := &flakyPublisher{failures: 10}
	b := New(pub, nil, WithMaxRetries(2), WithBackOff(zeroBackOff))

	err := b.Publish(context.Background(), "questions", "k", &payload{Id: "a"})
	require.Error(t, err)
	assert.True(t, errorx.Is(err, errno.BusPublishErrCode))
	assert.Equal(t, 3, pub.calls())
}

func TestConsumerNameIsUniquePerProcess(t *testing.T) {
	a, b := ConsumerName("docflow-core-api"), ConsumerName("docflow-core-api")
	assert.True(t, strings.HasPrefix(a, "docflow-core-api-"))
	assert.NotEqual(t, a, b)
}
