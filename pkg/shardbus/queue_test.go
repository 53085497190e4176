package shardbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardQueueFIFO(t *testing.T) {
	q := newShardQueue()

	for i := 0; i < 10; i++ {
		q.push(NewEvent("test", i))
	}
	assert.Equal(t, 10, q.len())

	for i := 0; i < 10; i++ {
		evt, ok := q.tryPop()
		require.True(t, ok)
		assert.Equal(t, i, evt.Data)
	}

	_, ok := q.tryPop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.len())
}

func TestShardQueuePopEmpty(t *testing.T) {
	q := newShardQueue()

	evt, ok := q.tryPop()
	assert.False(t, ok)
	assert.Equal(t, Event{}, evt)
}

func TestShardQueueSignalCoalesces(t *testing.T) {
	q := newShardQueue()

	// Many pushes leave at most one pending wakeup.
	for i := 0; i < 5; i++ {
		q.push(NewEvent("test", i))
	}

	select {
	case <-q.wait():
	default:
		t.Fatal("expected a pending wakeup after push")
	}

	select {
	case <-q.wait():
		t.Fatal("expected the wakeup to be coalesced")
	default:
	}

	// The queue still drains fully without further signals.
	for i := 0; i < 5; i++ {
		evt, ok := q.tryPop()
		require.True(t, ok)
		assert.Equal(t, i, evt.Data)
	}
}

func TestShardQueueSignalAfterDrain(t *testing.T) {
	q := newShardQueue()

	q.push(NewEvent("test", 1))
	<-q.wait()
	_, ok := q.tryPop()
	require.True(t, ok)

	// A fresh push re-arms the signal.
	q.push(NewEvent("test", 2))
	select {
	case <-q.wait():
	default:
		t.Fatal("expected a wakeup for the new event")
	}
}

func TestShardQueueConcurrentPush(t *testing.T) {
	q := newShardQueue()

	const goroutines = 8
	const perGoroutine = 200

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				q.push(NewEvent("test", i))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*perGoroutine, q.len())

	popped := 0
	for {
		if _, ok := q.tryPop(); !ok {
			break
		}
		popped++
	}
	assert.Equal(t, goroutines*perGoroutine, popped)
}
