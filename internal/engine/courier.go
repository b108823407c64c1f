package engine

import (
	"log/slog"
	"sort"

	"github.com/roach88/pantry/internal/ir"
)

// Courier periodically drains the order queue under a capacity bound.
type Courier struct {
	period   int64
	capacity int64
	orders   *OrderQueue
	logger   *slog.Logger
}

// NewCourier creates a courier visiting every period ticks with the given
// weight capacity.
func NewCourier(period, capacity int64, orders *OrderQueue, logger *slog.Logger) *Courier {
	return &Courier{period: period, capacity: capacity, orders: orders, logger: logger}
}

// Due reports whether the courier visits at tick: a strictly positive
// multiple of the period.
func (c *Courier) Due(tick int64) bool {
	return c.period > 0 && tick > 0 && tick%c.period == 0
}

// Load runs one dispatch at tick.
//
// Loading is greedy and sequential, not bin packing: orders are taken from the
// queue head while the accumulated load plus the next order's weight stays
// strictly below capacity. The first order that does not fit ends loading;
// later, possibly smaller, orders wait for the next visit.
//
// The report is sorted by weight descending, then creation tick ascending.
// Orders equal on both keys keep queue order.
func (c *Courier) Load(tick int64) *ir.Dispatch {
	d := &ir.Dispatch{Tick: tick, Shipments: []ir.Shipment{}}

	for {
		head, ok := c.orders.Head()
		// compared as a difference so load+weight cannot overflow
		if !ok || head.Weight >= c.capacity-d.Load {
			break
		}
		c.orders.Pop()
		d.Load += head.Weight
		d.Shipments = append(d.Shipments, ir.Shipment{
			Tick:     head.Tick,
			Recipe:   head.Recipe,
			Quantity: head.Quantity,
			Weight:   head.Weight,
		})
	}

	sort.SliceStable(d.Shipments, func(i, j int) bool {
		a, b := d.Shipments[i], d.Shipments[j]
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return a.Tick < b.Tick
	})

	c.logger.Debug("courier dispatched",
		"tick", tick,
		"shipments", len(d.Shipments),
		"load", d.Load,
		"capacity", c.capacity,
		"left_queued", c.orders.Len(),
	)
	return d
}
