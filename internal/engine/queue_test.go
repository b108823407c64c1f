package engine

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pantry/internal/ir"
)

func TestCommandQueue_EnqueueDequeue(t *testing.T) {
	q := newCommandQueue()

	ok := q.Enqueue(ir.PlaceOrder{Recipe: "bread", Quantity: 3})
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, ir.PlaceOrder{Recipe: "bread", Quantity: 3}, got)
}

func TestCommandQueue_FIFO(t *testing.T) {
	q := newCommandQueue()

	for _, name := range []string{"A", "B", "C"} {
		q.Enqueue(ir.RemoveRecipe{Name: name})
	}

	for _, want := range []string{"A", "B", "C"} {
		c, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, ir.RemoveRecipe{Name: want}, c)
	}
}

func TestCommandQueue_TryDequeue_Empty(t *testing.T) {
	q := newCommandQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestCommandQueue_Enqueue_AfterClose(t *testing.T) {
	q := newCommandQueue()
	q.Close()
	q.Close() // idempotent

	ok := q.Enqueue(ir.Unknown{Token: "late"})
	assert.False(t, ok, "enqueue after close should return false")
	assert.True(t, q.Closed())
}

func TestCommandQueue_Close_WakesWaiters(t *testing.T) {
	q := newCommandQueue()

	done := make(chan struct{})
	go func() {
		<-q.Wait()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("waiter did not wake after close")
	}
}

func TestCommandQueue_Len(t *testing.T) {
	q := newCommandQueue()

	assert.Equal(t, 0, q.Len())

	q.Enqueue(ir.Unknown{Token: "1"})
	assert.Equal(t, 1, q.Len())

	q.Enqueue(ir.Unknown{Token: "2"})
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())

	q.TryDequeue()
	assert.Equal(t, 0, q.Len())
}

func TestCommandQueue_ThreadSafe(t *testing.T) {
	q := newCommandQueue()

	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(producerID int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(ir.Unknown{Token: fmt.Sprintf("%d-%d", producerID, i)})
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for {
		c, ok := q.TryDequeue()
		if !ok {
			break
		}
		seen[c.(ir.Unknown).Token] = true
	}
	assert.Len(t, seen, producers*perProducer)
}
