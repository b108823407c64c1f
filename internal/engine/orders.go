package engine

import (
	"sort"

	"github.com/roach88/pantry/internal/catalog"
)

// Order is a fulfilled, undispatched order.
// It holds a copy of the recipe name, never the recipe itself, so removing a
// recipe can never leave an Order dangling.
type Order struct {
	Recipe   string `json:"recipe"`
	Quantity int64  `json:"quantity"`
	Weight   int64  `json:"weight"`
	Tick     int64  `json:"tick"`
}

// OrderQueue holds fulfilled orders ascending by creation tick.
// Orders with equal ticks keep their arrival order.
type OrderQueue struct {
	orders []Order
}

// Insert places o after every queued order with tick <= o.Tick.
func (q *OrderQueue) Insert(o Order) {
	i := sort.Search(len(q.orders), func(i int) bool { return q.orders[i].Tick > o.Tick })
	q.orders = append(q.orders, Order{})
	copy(q.orders[i+1:], q.orders[i:])
	q.orders[i] = o
}

// Head returns the oldest order.
func (q *OrderQueue) Head() (Order, bool) {
	if len(q.orders) == 0 {
		return Order{}, false
	}
	return q.orders[0], true
}

// Pop removes the oldest order.
func (q *OrderQueue) Pop() (Order, bool) {
	o, ok := q.Head()
	if !ok {
		return Order{}, false
	}
	q.orders[0] = Order{}
	q.orders = q.orders[1:]
	return o, true
}

// References reports whether any queued order is for recipe.
func (q *OrderQueue) References(recipe string) bool {
	for _, o := range q.orders {
		if o.Recipe == recipe {
			return true
		}
	}
	return false
}

// Len returns the number of queued orders.
func (q *OrderQueue) Len() int { return len(q.orders) }

// Orders returns a copy of the queue, oldest first.
func (q *OrderQueue) Orders() []Order {
	out := make([]Order, len(q.orders))
	copy(out, q.orders)
	return out
}

// WaitingEntry is an admitted order that failed feasibility.
type WaitingEntry struct {
	Recipe   *catalog.Recipe
	Quantity int64
	Tick     int64
}

// WaitingList is the FIFO backlog of deferred orders.
type WaitingList struct {
	entries []WaitingEntry
}

// Enqueue appends an entry at the tail.
func (w *WaitingList) Enqueue(recipe *catalog.Recipe, quantity, tick int64) {
	w.entries = append(w.entries, WaitingEntry{Recipe: recipe, Quantity: quantity, Tick: tick})
}

// Replay makes one head-to-tail pass. Each entry for which serve returns true
// is removed; the scan continues with its successor and is never restarted.
// Returns the number of entries served.
func (w *WaitingList) Replay(serve func(WaitingEntry) bool) int {
	kept := w.entries[:0]
	served := 0
	for _, entry := range w.entries {
		if serve(entry) {
			served++
			continue
		}
		kept = append(kept, entry)
	}
	for i := len(kept); i < len(w.entries); i++ {
		w.entries[i] = WaitingEntry{}
	}
	w.entries = kept
	return served
}

// References reports whether any waiting entry is for recipe.
func (w *WaitingList) References(recipe string) bool {
	for _, e := range w.entries {
		if e.Recipe.Name() == recipe {
			return true
		}
	}
	return false
}

// Len returns the number of waiting entries.
func (w *WaitingList) Len() int { return len(w.entries) }

// Entries returns a copy of the list, head first.
func (w *WaitingList) Entries() []WaitingEntry {
	out := make([]WaitingEntry, len(w.entries))
	copy(out, w.entries)
	return out
}
