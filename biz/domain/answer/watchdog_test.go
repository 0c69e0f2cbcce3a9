package answer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xh-polaris/docflow-core-api/biz/infra/cst"
)

func TestWatchdog_TimeoutWritesFallback(t *testing.T) {
	f := newFixture()
	defer f.orch.Close()
	_, id, err := f.ask("What is the deadline?")
	require.NoError(t, err)

	f.clock.fire()
	require.Eventually(t, func() bool { return f.store.get(id).Finalized }, time.Second, 5*time.Millisecond)

	a := f.store.get(id)
	assert.Equal(t, cst.TimeoutFallback, a.Content)
	require.Eventually(t, func() bool { return len(f.fanout.all()) == 1 }, time.Second, 5*time.Millisecond)
	p := f.fanout.all()[0]
	assert.True(t, p.done)
	assert.Equal(t, f.user.Id.Hex(), p.userId)
	assert.Equal(t, "doc-42", p.topicKey)
	assert.Equal(t, cst.TimeoutFallback, p.conversation.Content)
	require.Eventually(t, func() bool { return f.orch.Pending() == 0 }, time.Second, 5*time.Millisecond)

	// 超时后到达的回答被丢弃
	require.NoError(t, f.orch.ApplyAnswerEvent(context.Background(), &InboundAnswerEvent{AnswerCorrelationId: id, AnswerText: "June 1st.", Done: true}))
	assert.Equal(t, cst.TimeoutFallback, f.store.get(id).Content)
	assert.Len(t, f.fanout.all(), 1)
}

func TestWatchdog_ResolvesOnFirstContent(t *testing.T) {
	f := newFixture()
	defer f.orch.Close()
	_, id, err := f.ask("hi")
	require.NoError(t, err)

	require.NoError(t, f.orch.ApplyAnswerEvent(context.Background(), &InboundAnswerEvent{AnswerCorrelationId: id, AnswerText: "partial"}))
	require.Eventually(t, func() bool { return f.orch.Pending() == 0 }, time.Second, 5*time.Millisecond)

	f.clock.fire()
	time.Sleep(20 * time.Millisecond)
	a := f.store.get(id)
	assert.Equal(t, "partial", a.Content)
	assert.False(t, a.Finalized)
	assert.Len(t, f.fanout.all(), 1)
}

func TestWatchdog_EmptyChunkDoesNotResolve(t *testing.T) {
	f := newFixture()
	defer f.orch.Close()
	_, id, err := f.ask("hi")
	require.NoError(t, err)

	require.NoError(t, f.orch.ApplyAnswerEvent(context.Background(), &InboundAnswerEvent{AnswerCorrelationId: id}))
	assert.Equal(t, 1, f.orch.Pending())

	f.clock.fire()
	require.Eventually(t, func() bool { return f.store.get(id).Finalized }, time.Second, 5*time.Millisecond)
	assert.Equal(t, cst.TimeoutFallback, f.store.get(id).Content)
}

func TestWatchdog_UsesConfiguredDeadline(t *testing.T) {
	f := newFixture(WithDeadline(5 * time.Second))
	defer f.orch.Close()
	_, _, err := f.ask("hi")
	require.NoError(t, err)

	f.clock.mu.Lock()
	defer f.clock.mu.Unlock()
	require.Len(t, f.clock.timers, 1)
	assert.Equal(t, 5*time.Second, f.clock.timers[0].d)
}

func TestWatchdog_RaceWithFinalAnswer(t *testing.T) {
	for i := 0; i < 50; i++ {
		f := newFixture()
		_, id, err := f.ask("hi")
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.clock.fire()
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, f.orch.ApplyAnswerEvent(context.Background(), &InboundAnswerEvent{AnswerCorrelationId: id, AnswerText: "answer", Done: true}))
		}()
		wg.Wait()
		require.Eventually(t, func() bool { return f.orch.Pending() == 0 }, time.Second, time.Millisecond)

		a := f.store.get(id)
		assert.True(t, a.Finalized)
		assert.Contains(t, []string{"answer", cst.TimeoutFallback}, a.Content)

		// 只有一方写入成功, 也只推送一次完成
		done := 0
		for _, p := range f.fanout.all() {
			if p.done {
				done++
				assert.Equal(t, a.Content, p.conversation.Content)
			}
		}
		assert.Equal(t, 1, done)
		assert.Equal(t, 1, f.store.saves)
		f.orch.Close()
	}
}

func TestWatchdog_CloseStopsPending(t *testing.T) {
	f := newFixture()
	for i := 0; i < 3; i++ {
		_, _, err := f.ask("hi")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, f.orch.Pending())

	f.orch.Close()
	require.Eventually(t, func() bool { return f.orch.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, f.fanout.all())
}

func TestWatchdog_RealClock(t *testing.T) {
	f := newFixture(WithClock(realClock{}), WithDeadline(20*time.Millisecond))
	defer f.orch.Close()
	_, id, err := f.ask("hi")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return f.store.get(id).Finalized }, time.Second, 5*time.Millisecond)
	assert.Equal(t, cst.TimeoutFallback, f.store.get(id).Content)
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		running = map[string]int{}
		maxSeen int
	)
	for i := 0; i < 40; i++ {
		key := []string{"a", "b"}[i%2]
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(key)
			mu.Lock()
			running[key]++
			if running[key] > maxSeen {
				maxSeen = running[key]
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			running[key]--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, k.size())
}
