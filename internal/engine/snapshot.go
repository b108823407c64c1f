package engine

// Snapshot is a read-only view of engine state between commands.
type Snapshot struct {
	Tick    int64            `json:"tick"`
	Recipes []string         `json:"recipes"`
	Stock   map[string]int64 `json:"stock"`
	Queued  []Order          `json:"queued"`
	Waiting []WaitingOrder   `json:"waiting"`
}

// WaitingOrder is the snapshot form of a waiting entry.
type WaitingOrder struct {
	Recipe   string `json:"recipe"`
	Quantity int64  `json:"quantity"`
	Tick     int64  `json:"tick"`
}

// Snapshot captures the current state. Stock counts lots usable at the
// current tick; taking a snapshot evicts nothing.
func (e *Engine) Snapshot() Snapshot {
	tick := e.clock.Current()
	s := Snapshot{
		Tick:    tick,
		Recipes: e.recipes.Names(),
		Stock:   make(map[string]int64),
		Queued:  e.orders.Orders(),
		Waiting: make([]WaitingOrder, 0, e.waiting.Len()),
	}
	for _, name := range e.stock.Ingredients() {
		if qty := e.stock.Usable(name, tick); qty > 0 {
			s.Stock[name] = qty
		}
	}
	for _, w := range e.waiting.Entries() {
		s.Waiting = append(s.Waiting, WaitingOrder{Recipe: w.Recipe.Name(), Quantity: w.Quantity, Tick: w.Tick})
	}
	return s
}
