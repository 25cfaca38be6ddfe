package events

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubscribeMatchesWildcardSuffix(t *testing.T) {
	b := New(nil)
	var got atomic.Int32
	b.Subscribe("policy.*", func(Event) { got.Add(1) })

	b.Emit("policy.denied", nil, false)
	b.Emit("webhook.delivered", nil, false)

	require.Equal(t, int32(1), got.Load())
}

func TestSubscribeMatchesWildcardPrefix(t *testing.T) {
	b := New(nil)
	var got atomic.Int32
	b.Subscribe("*.created", func(Event) { got.Add(1) })

	b.Emit("payment.created", nil, false)
	b.Emit("payment.updated", nil, false)

	require.Equal(t, int32(1), got.Load())
}

func TestSubscribeBareStarMatchesEverything(t *testing.T) {
	b := New(nil)
	var got atomic.Int32
	b.Subscribe("*", func(Event) { got.Add(1) })

	b.Emit("a", nil, false)
	b.Emit("b.c", nil, false)

	require.Equal(t, int32(2), got.Load())
}

func TestUnsubscribeStopsFurtherDelivery(t *testing.T) {
	b := New(nil)
	var got atomic.Int32
	unsubscribe := b.Subscribe("x.*", func(Event) { got.Add(1) })

	b.Emit("x.one", nil, false)
	unsubscribe()
	b.Emit("x.two", nil, false)

	require.Equal(t, int32(1), got.Load())
}

func TestEmitSynchronousRunsBeforeReturning(t *testing.T) {
	b := New(nil)
	var ran bool
	b.Subscribe("sync.*", func(Event) { ran = true })

	b.Emit("sync.event", nil, false)
	require.True(t, ran)
}

func TestEmitFireAndForgetTracksBackgroundTask(t *testing.T) {
	b := New(nil)
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	b.Subscribe("async.*", func(Event) {
		defer wg.Done()
		<-release
	})

	b.Emit("async.event", nil, true)
	close(release)
	wg.Wait()

	require.True(t, b.WaitForBackgroundTasks(time.Second))
}

func TestWaitForBackgroundTasksTimesOutWhenHandlerHangs(t *testing.T) {
	b := New(nil)
	block := make(chan struct{})
	defer close(block)
	b.Subscribe("slow.*", func(Event) { <-block })

	b.Emit("slow.event", nil, true)
	require.False(t, b.WaitForBackgroundTasks(20*time.Millisecond))
}

func TestEmitFireAndForgetHandlerPanicDoesNotPropagate(t *testing.T) {
	b := New(nil)
	var wg sync.WaitGroup
	wg.Add(1)
	b.Subscribe("panicky.*", func(Event) {
		defer wg.Done()
		panic("boom")
	})

	require.NotPanics(t, func() {
		b.Emit("panicky.event", nil, true)
		wg.Wait()
	})
}

func TestEmitAssignsUniqueEventID(t *testing.T) {
	b := New(nil)
	first := b.Emit("a", nil, false)
	second := b.Emit("a", nil, false)
	require.NotEmpty(t, first.EventID)
	require.NotEqual(t, first.EventID, second.EventID)
}
