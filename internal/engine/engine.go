package engine

import (
	"errors"
	"io"
	"log/slog"

	"github.com/roach88/pantry/internal/catalog"
	"github.com/roach88/pantry/internal/ir"
	"github.com/roach88/pantry/internal/ledger"
)

// Limits are the fixed parameters of one run.
type Limits struct {
	// Period is the number of ticks between courier visits.
	Period int64

	// Capacity is the courier's weight bound; a load must stay strictly below it.
	Capacity int64

	// MaxIngredients caps a recipe's ingredient list.
	// Zero selects catalog.DefaultMaxIngredients.
	MaxIngredients int
}

// Engine processes commands one tick at a time.
//
// CRITICAL: Engine is not safe for concurrent use. All mutation happens in
// whichever single goroutine calls Apply and Finish; use Loop to feed it from
// several producers.
//
// INVARIANTS:
//   - the tick advances by exactly one per Apply
//   - a due dispatch runs before the command of its tick
//   - orders hold recipe names, never recipes
type Engine struct {
	limits   Limits
	clock    *Clock
	recipes  *catalog.Registry
	stock    *ledger.Ledger
	orders   *OrderQueue
	waiting  *WaitingList
	checker  *Checker
	fulfill  *Fulfiller
	courier  *Courier
	logger   *slog.Logger
	finished bool
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the engine's logger. Default: a logger that discards.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock starts the engine from a pre-configured clock.
func WithClock(clock *Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// New creates an Engine for the given limits.
func New(limits Limits, opts ...Option) *Engine {
	e := &Engine{
		limits: limits,
		clock:  NewClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.recipes = catalog.NewRegistry(limits.MaxIngredients)
	e.stock = ledger.New()
	e.orders = &OrderQueue{}
	e.waiting = &WaitingList{}
	e.checker = NewChecker(e.stock, e.logger)
	e.fulfill = NewFulfiller(e.stock, e.orders, e.logger)
	e.courier = NewCourier(limits.Period, limits.Capacity, e.orders, e.logger)
	return e
}

// Limits returns the run parameters.
func (e *Engine) Limits() Limits { return e.limits }

// Tick returns the tick the next command will run at.
func (e *Engine) Tick() int64 { return e.clock.Current() }

// Apply processes one command and advances the tick.
func (e *Engine) Apply(cmd ir.Command) ir.Outcome {
	tick := e.clock.Current()
	out := ir.Outcome{Tick: tick}

	if e.courier.Due(tick) {
		out.Dispatch = e.courier.Load(tick)
	}

	switch c := cmd.(type) {
	case ir.AddRecipe:
		out.Ack, out.Err = e.addRecipe(c, tick)
	case ir.RemoveRecipe:
		out.Ack, out.Err = e.removeRecipe(c, tick)
	case ir.Resupply:
		out.Ack = e.resupply(c, tick)
	case ir.PlaceOrder:
		out.Ack, out.Err = e.placeOrder(c, tick)
	case ir.Unknown:
		out.Ack = ir.AckUnrecognized
		out.Token = c.Token
		out.Err = newUnrecognizedError(c.Token, tick)
	default:
		out.Ack = ir.AckUnrecognized
		out.Err = newUnrecognizedError(string(cmd.Kind()), tick)
	}

	e.logger.Debug("command applied",
		"tick", tick,
		"kind", cmd.Kind(),
		"ack", out.Ack,
		"queued", e.orders.Len(),
		"waiting", e.waiting.Len(),
	)

	e.clock.Advance()
	return out
}

// Finish runs the trailing dispatch after the last command, if the final
// tick is a courier visit. It returns nil when no dispatch is due or Finish
// was already called.
func (e *Engine) Finish() *ir.Dispatch {
	if e.finished {
		return nil
	}
	e.finished = true

	tick := e.clock.Current()
	// An empty stream ends at tick 0, which is not a visit: no empty-truck
	// report for a run that processed nothing.
	if !e.courier.Due(tick) {
		return nil
	}
	return e.courier.Load(tick)
}

func (e *Engine) addRecipe(c ir.AddRecipe, tick int64) (ir.Ack, error) {
	recipe, err := e.recipes.Create(c.Name)
	if err != nil {
		return ir.AckIgnored, newCatalogError(err, c.Name, tick)
	}

	for _, ing := range c.Ingredients {
		if err := e.recipes.AddIngredient(recipe, ing.Name, ing.Quantity); err != nil {
			e.logger.Warn("ingredient dropped",
				"recipe", c.Name,
				"ingredient", ing.Name,
				"max_ingredients", e.recipes.MaxIngredients(),
				"error", err,
			)
		}
	}
	return ir.AckAdded, nil
}

func (e *Engine) removeRecipe(c ir.RemoveRecipe, tick int64) (ir.Ack, error) {
	err := e.recipes.Remove(c.Name, e.referenced)
	switch {
	case err == nil:
		return ir.AckRemoved, nil
	case errors.Is(err, catalog.ErrInUse):
		return ir.AckPendingOrders, newCatalogError(err, c.Name, tick)
	default:
		return ir.AckNotPresent, newCatalogError(err, c.Name, tick)
	}
}

// referenced scans both the order queue and the waiting list.
func (e *Engine) referenced(recipe string) bool {
	return e.orders.References(recipe) || e.waiting.References(recipe)
}

func (e *Engine) resupply(c ir.Resupply, tick int64) ir.Ack {
	for _, lot := range c.Lots {
		if !e.stock.AddLot(lot.Ingredient, lot.Quantity, lot.Expiration, tick) {
			e.logger.Debug("lot discarded",
				"ingredient", lot.Ingredient,
				"quantity", lot.Quantity,
				"expiration", lot.Expiration,
				"tick", tick,
			)
		}
	}

	served := e.waiting.Replay(func(w WaitingEntry) bool {
		if !e.checker.Check(w.Recipe, w.Quantity, tick) {
			return false
		}
		e.fulfill.Place(w.Recipe, w.Quantity, w.Tick, tick)
		return true
	})
	if served > 0 {
		e.logger.Debug("waiting orders served", "tick", tick, "served", served, "waiting", e.waiting.Len())
	}
	return ir.AckRestocked
}

func (e *Engine) placeOrder(c ir.PlaceOrder, tick int64) (ir.Ack, error) {
	recipe, ok := e.recipes.Lookup(c.Recipe)
	if !ok {
		return ir.AckRejected, newCatalogError(catalog.ErrNotFound, c.Recipe, tick)
	}

	if e.checker.Check(recipe, c.Quantity, tick) {
		e.fulfill.Place(recipe, c.Quantity, tick, tick)
	} else {
		e.waiting.Enqueue(recipe, c.Quantity, tick)
	}
	return ir.AckAccepted, nil
}
