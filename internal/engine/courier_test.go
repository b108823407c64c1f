package engine

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/roach88/pantry/internal/ir"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func queueOf(orders ...Order) *OrderQueue {
	q := &OrderQueue{}
	for _, o := range orders {
		q.Insert(o)
	}
	return q
}

func TestCourier_Due(t *testing.T) {
	c := NewCourier(5, 100, &OrderQueue{}, discardLogger())

	assert.False(t, c.Due(0), "tick 0 is never a visit")
	assert.False(t, c.Due(4))
	assert.True(t, c.Due(5))
	assert.True(t, c.Due(10))
	assert.False(t, c.Due(11))

	assert.False(t, NewCourier(0, 100, &OrderQueue{}, discardLogger()).Due(5), "zero period never visits")
}

func TestCourier_LoadStopsAtFirstMisfit(t *testing.T) {
	tests := []struct {
		name     string
		capacity int64
		weights  []int64
		loaded   []int64
		left     int
	}{
		{name: "head too heavy", capacity: 50, weights: []int64{60, 10, 5}, loaded: nil, left: 3},
		{name: "second misfit", capacity: 50, weights: []int64{20, 40, 5}, loaded: []int64{20}, left: 2},
		{name: "exact fill does not fit", capacity: 50, weights: []int64{30, 20}, loaded: []int64{30}, left: 1},
		{name: "everything fits", capacity: 100, weights: []int64{30, 20, 10}, loaded: []int64{30, 20, 10}, left: 0},
		{name: "sum past int64 does not fit", capacity: math.MaxInt64, weights: []int64{math.MaxInt64 - 10, 20}, loaded: []int64{math.MaxInt64 - 10}, left: 1},
		{name: "huge head below huge capacity", capacity: math.MaxInt64, weights: []int64{math.MaxInt64 - 1}, loaded: []int64{math.MaxInt64 - 1}, left: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &OrderQueue{}
			for i, w := range tt.weights {
				q.Insert(Order{Recipe: fmt.Sprintf("r%d", i), Quantity: 1, Weight: w, Tick: int64(i)})
			}

			d := NewCourier(1, tt.capacity, q, discardLogger()).Load(7)
			require.NotNil(t, d)
			assert.Equal(t, int64(7), d.Tick)

			var got []int64
			var load int64
			for _, s := range d.Shipments {
				got = append(got, s.Weight)
				load += s.Weight
			}
			assert.Equal(t, tt.loaded, got)
			assert.Equal(t, load, d.Load)
			assert.Equal(t, tt.left, q.Len())
			assert.Equal(t, len(tt.loaded) == 0, d.Empty())
		})
	}
}

func TestCourier_LoadSortsReport(t *testing.T) {
	q := queueOf(
		Order{Recipe: "a", Quantity: 1, Weight: 10, Tick: 1},
		Order{Recipe: "b", Quantity: 2, Weight: 30, Tick: 2},
		Order{Recipe: "c", Quantity: 1, Weight: 10, Tick: 3},
		Order{Recipe: "d", Quantity: 3, Weight: 30, Tick: 3},
		Order{Recipe: "e", Quantity: 1, Weight: 10, Tick: 3},
	)

	d := NewCourier(1, 1000, q, discardLogger()).Load(5)

	want := []ir.Shipment{
		{Tick: 2, Recipe: "b", Quantity: 2, Weight: 30},
		{Tick: 3, Recipe: "d", Quantity: 3, Weight: 30},
		{Tick: 1, Recipe: "a", Quantity: 1, Weight: 10},
		{Tick: 3, Recipe: "c", Quantity: 1, Weight: 10},
		{Tick: 3, Recipe: "e", Quantity: 1, Weight: 10},
	}
	if diff := cmp.Diff(want, d.Shipments); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, int64(90), d.Load)
}

func TestCourier_EmptyQueue(t *testing.T) {
	d := NewCourier(1, 100, &OrderQueue{}, discardLogger()).Load(3)
	require.NotNil(t, d)
	assert.True(t, d.Empty())
	assert.NotNil(t, d.Shipments, "empty report is an empty slice")
}

func TestProperty_DispatchReportIsSorted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(t, "n")
		capacity := rapid.Int64Range(1, 500).Draw(t, "capacity")

		q := &OrderQueue{}
		for i := 0; i < n; i++ {
			q.Insert(Order{
				Recipe:   fmt.Sprintf("r%d", i),
				Quantity: 1,
				Weight:   rapid.Int64Range(1, 100).Draw(t, fmt.Sprintf("weight-%d", i)),
				Tick:     rapid.Int64Range(0, 20).Draw(t, fmt.Sprintf("tick-%d", i)),
			})
		}
		before := q.Orders()

		d := NewCourier(1, capacity, q, discardLogger()).Load(21)

		if d.Load >= capacity && len(d.Shipments) > 0 {
			t.Fatalf("load %d reached capacity %d", d.Load, capacity)
		}

		// Loaded orders are exactly a prefix of the queue.
		k := len(d.Shipments)
		if got := len(before) - q.Len(); got != k {
			t.Fatalf("queue shrank by %d, report has %d", got, k)
		}
		if k < len(before) && d.Load+before[k].Weight < capacity {
			t.Fatalf("order %d would have fit but loading stopped", k)
		}

		for i := 1; i < k; i++ {
			a, b := d.Shipments[i-1], d.Shipments[i]
			if a.Weight < b.Weight || (a.Weight == b.Weight && a.Tick > b.Tick) {
				t.Fatalf("report out of order at %d: %+v before %+v", i, a, b)
			}
		}
	})
}
