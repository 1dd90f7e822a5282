package sidechain

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessReturnsSameBusByName(t *testing.T) {
	reg := NewRegistry()
	a := reg.Access("compressor")
	b := reg.Access("compressor")
	assert.Same(t, a, b)

	other := reg.Access("vad")
	assert.NotSame(t, a, other)
}

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	bus := &Bus{}
	var mu sync.Mutex
	received := make([]Event, 0, 2)

	bus.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e)
	})
	bus.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e)
	})

	bus.Publish(Event{Name: "sidechain-decibel", Node: "comp1", Data: -6.0})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, "sidechain-decibel", received[0].Name)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := &Bus{}
	var count int
	var mu sync.Mutex

	unsub := bus.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	bus.Publish(Event{Name: "x"})
	unsub()
	bus.Publish(Event{Name: "x"})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

func TestPublishSurvivesPanickingListener(t *testing.T) {
	bus := &Bus{}
	bus.Subscribe(func(Event) { panic("boom") })

	var called bool
	bus.Subscribe(func(Event) { called = true })

	assert.NotPanics(t, func() {
		bus.Publish(Event{Name: "x"})
	})
	assert.True(t, called)
}

func TestNamesReflectsRegisteredBuses(t *testing.T) {
	reg := NewRegistry()
	reg.Access("a")
	reg.Access("b")

	names := reg.Names()
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

// TestScenarioS6SidechainCoupling exercises spec §8 S6: a measure-mode
// publisher driving a monotonic gain reduction on an adjust-mode subscriber.
func TestScenarioS6SidechainCoupling(t *testing.T) {
	reg := NewRegistry()
	bus := reg.Access("compressor")

	var mu sync.Mutex
	var gains []float64
	bus.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if db, ok := e.Data.(float64); ok {
			gains = append(gains, db)
		}
	})

	start := time.Now()
	for i := 0; i < 10; i++ {
		level := -1.0 * float64(i) // monotonically decreasing level
		bus.Publish(Event{Name: "sidechain-decibel", Node: "measure", Data: level})
	}
	elapsed := time.Since(start)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, gains, 10)
	for i := 1; i < len(gains); i++ {
		assert.LessOrEqual(t, gains[i], gains[i-1])
	}
	assert.Less(t, elapsed, time.Second)
}
