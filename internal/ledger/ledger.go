// Package ledger tracks raw-ingredient stock as expiring lots.
//
// Lots are kept per full ingredient name, ascending by expiration tick, with at
// most one lot per (name, expiration). A lot is usable while its expiration is
// at or after the current tick; every scan first evicts the expired prefix of
// the sequence it touches.
package ledger

import (
	"errors"
	"math"
	"sort"
)

// ErrInsufficient is returned by Consume when the sequence ran dry before the
// requested quantity was covered. Callers must have checked availability.
var ErrInsufficient = errors.New("insufficient stock")

// Lot is a quantity of one ingredient with an expiration tick.
type Lot struct {
	Ingredient string
	Quantity   int64
	Expiration int64
}

// Ledger owns all lots.
type Ledger struct {
	lots map[string][]Lot
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{lots: make(map[string][]Lot)}
}

// AddLot stores a lot arriving at tick.
//
// A lot already expired on arrival (expiration <= tick) or carrying no
// quantity is discarded and AddLot reports false. A lot whose expiration
// matches an existing lot of the same ingredient is merged into it.
func (l *Ledger) AddLot(ingredient string, quantity, expiration, tick int64) bool {
	if expiration <= tick || quantity <= 0 {
		return false
	}

	seq := l.lots[ingredient]
	i := sort.Search(len(seq), func(i int) bool { return seq[i].Expiration >= expiration })
	if i < len(seq) && seq[i].Expiration == expiration {
		seq[i].Quantity = addQuantity(seq[i].Quantity, quantity)
		return true
	}

	seq = append(seq, Lot{})
	copy(seq[i+1:], seq[i:])
	seq[i] = Lot{Ingredient: ingredient, Quantity: quantity, Expiration: expiration}
	l.lots[ingredient] = seq
	return true
}

// Reaches sums non-expired stock of ingredient until it covers need.
// It returns the running sum at the point the scan stopped and whether need
// was covered. Expired lots are evicted as a side effect.
func (l *Ledger) Reaches(ingredient string, need, tick int64) (int64, bool) {
	var total int64
	for _, lot := range l.prune(ingredient, tick) {
		if total >= need {
			break
		}
		total = addQuantity(total, lot.Quantity)
	}
	return total, total >= need
}

// Consume deducts need units of ingredient, earliest expiration first.
//
// Fully depleted lots are removed; a partially consumed lot keeps its place
// with a reduced quantity. Consume performs no feasibility check: the caller
// must have confirmed availability at the same tick. If the stock runs out
// anyway, everything available has been taken and ErrInsufficient returned.
func (l *Ledger) Consume(ingredient string, need, tick int64) error {
	if need <= 0 {
		return nil
	}

	seq := l.prune(ingredient, tick)
	left := need
	n := 0
	for n < len(seq) && left > 0 {
		lot := &seq[n]
		if left < lot.Quantity {
			lot.Quantity -= left
			left = 0
			break
		}
		left -= lot.Quantity
		n++
	}
	l.store(ingredient, seq[n:])

	if left > 0 {
		return ErrInsufficient
	}
	return nil
}

// Lots returns a copy of the lots currently held for ingredient, including
// any that have expired but were not yet evicted.
func (l *Ledger) Lots(ingredient string) []Lot {
	seq := l.lots[ingredient]
	if len(seq) == 0 {
		return nil
	}
	out := make([]Lot, len(seq))
	copy(out, seq)
	return out
}

// Ingredients returns ingredient names with at least one stored lot, sorted.
func (l *Ledger) Ingredients() []string {
	names := make([]string, 0, len(l.lots))
	for name := range l.lots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Usable returns the non-expired quantity of ingredient at tick without
// evicting anything. Used for read-only snapshots.
func (l *Ledger) Usable(ingredient string, tick int64) int64 {
	var total int64
	for _, lot := range l.lots[ingredient] {
		if lot.Expiration >= tick {
			total = addQuantity(total, lot.Quantity)
		}
	}
	return total
}

// prune evicts the expired prefix of ingredient's lots and returns the rest.
// Lots are ascending by expiration, so expired lots are always a prefix.
func (l *Ledger) prune(ingredient string, tick int64) []Lot {
	seq := l.lots[ingredient]
	i := sort.Search(len(seq), func(i int) bool { return seq[i].Expiration >= tick })
	if i > 0 {
		seq = seq[i:]
		l.store(ingredient, seq)
	}
	return seq
}

func (l *Ledger) store(ingredient string, seq []Lot) {
	if len(seq) == 0 {
		delete(l.lots, ingredient)
		return
	}
	l.lots[ingredient] = seq
}

// addQuantity adds two non-negative quantities, saturating at MaxInt64.
func addQuantity(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}
