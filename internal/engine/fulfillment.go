package engine

import (
	"log/slog"

	"github.com/roach88/pantry/internal/catalog"
	"github.com/roach88/pantry/internal/ledger"
)

// Fulfiller commits feasible orders: it consumes ingredients and queues the
// resulting Order.
type Fulfiller struct {
	stock  *ledger.Ledger
	orders *OrderQueue
	logger *slog.Logger
}

// NewFulfiller creates a fulfiller that consumes from stock into orders.
func NewFulfiller(stock *ledger.Ledger, orders *OrderQueue, logger *slog.Logger) *Fulfiller {
	return &Fulfiller{stock: stock, orders: orders, logger: logger}
}

// Place consumes quantity units of recipe and queues an order created at
// orderTick, using consumeTick's view of expiration.
//
// Precondition: Check(recipe, quantity, consumeTick) returned true and
// nothing changed since. A fresh order has orderTick == consumeTick; a
// replayed waiting entry keeps the tick it was admitted at.
func (f *Fulfiller) Place(recipe *catalog.Recipe, quantity, orderTick, consumeTick int64) Order {
	for _, req := range recipe.Requirements() {
		need, _ := req.Need(quantity)
		if err := f.stock.Consume(req.Ingredient, need, consumeTick); err != nil {
			// Only reachable if the feasibility precondition was broken
			f.logger.Warn("consumed past available stock",
				"recipe", recipe.Name(),
				"ingredient", req.Ingredient,
				"need", need,
				"tick", consumeTick,
				"error", err,
			)
		}
	}

	weight, _ := recipe.Weight(quantity)
	o := Order{
		Recipe:   recipe.Name(),
		Quantity: quantity,
		Weight:   weight,
		Tick:     orderTick,
	}
	f.orders.Insert(o)

	f.logger.Debug("order queued",
		"recipe", o.Recipe,
		"quantity", o.Quantity,
		"weight", o.Weight,
		"order_tick", o.Tick,
		"tick", consumeTick,
	)
	return o
}
