package engine

import (
	"log/slog"

	"github.com/roach88/pantry/internal/catalog"
	"github.com/roach88/pantry/internal/ledger"
)

// Checker decides whether a quantity of a recipe can be produced now.
//
// Check has two persistent side effects: it updates the recipe's memo on
// failure, and the ledger scans it performs evict expired lots.
type Checker struct {
	stock  *ledger.Ledger
	logger *slog.Logger
}

// NewChecker creates a checker over stock.
func NewChecker(stock *ledger.Ledger, logger *slog.Logger) *Checker {
	return &Checker{stock: stock, logger: logger}
}

// Check reports whether quantity units of recipe can be produced at tick.
//
// Within one tick stock only ever shrinks between checks, so a quantity known
// infeasible makes every larger quantity infeasible too; the memo answers
// those without touching the ledger.
//
// A quantity whose total weight does not fit in an int64 can never be
// stocked or shipped and is infeasible.
func (c *Checker) Check(recipe *catalog.Recipe, quantity, tick int64) bool {
	if recipe.KnownInfeasible(quantity, tick) {
		c.logger.Debug("feasibility memo hit",
			"recipe", recipe.Name(),
			"quantity", quantity,
			"tick", tick,
		)
		return false
	}

	if _, ok := recipe.Weight(quantity); !ok {
		recipe.MarkInfeasible(quantity, tick)
		c.logger.Debug("order weight overflows int64",
			"recipe", recipe.Name(),
			"quantity", quantity,
			"tick", tick,
		)
		return false
	}

	for _, req := range recipe.Requirements() {
		need, _ := req.Need(quantity) // bounded by Weight
		have, ok := c.stock.Reaches(req.Ingredient, need, tick)
		if !ok {
			recipe.MarkInfeasible(quantity, tick)
			c.logger.Debug("order infeasible",
				"recipe", recipe.Name(),
				"quantity", quantity,
				"ingredient", req.Ingredient,
				"need", need,
				"have", have,
				"tick", tick,
			)
			return false
		}
	}
	return true
}
