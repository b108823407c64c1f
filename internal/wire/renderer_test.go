package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pantry/internal/ir"
)

func TestDialect_AckText(t *testing.T) {
	tests := []struct {
		ack ir.Ack
		en  string
		it  string
	}{
		{ir.AckAdded, "added", "aggiunta"},
		{ir.AckIgnored, "ignored", "ignorato"},
		{ir.AckRemoved, "removed", "rimossa"},
		{ir.AckNotPresent, "not present", "non presente"},
		{ir.AckPendingOrders, "pending orders", "ordini in sospeso"},
		{ir.AckRestocked, "restocked", "rifornito"},
		{ir.AckAccepted, "accepted", "accettato"},
		{ir.AckRejected, "rejected", "rifiutato"},
	}

	for _, tt := range tests {
		t.Run(string(tt.ack), func(t *testing.T) {
			assert.Equal(t, tt.en, English.AckText(tt.ack, ""))
			assert.Equal(t, tt.it, Italian.AckText(tt.ack, ""))
		})
	}

	assert.Equal(t, "unknown command: bake", English.AckText(ir.AckUnrecognized, "bake"))
	assert.Equal(t, "Comando non esistente: bake", Italian.AckText(ir.AckUnrecognized, "bake"))
}

func TestDispatchLines(t *testing.T) {
	d := &ir.Dispatch{Tick: 5, Load: 40, Shipments: []ir.Shipment{
		{Tick: 1, Recipe: "bread", Quantity: 3, Weight: 30},
		{Tick: 2, Recipe: "cake", Quantity: 1, Weight: 10},
	}}

	assert.Equal(t, []string{"1 bread 3", "2 cake 1"}, DispatchLines(d, English))
	assert.Equal(t, []string{"empty truck"}, DispatchLines(&ir.Dispatch{Tick: 5}, English))
	assert.Equal(t, []string{"camioncino vuoto"}, DispatchLines(&ir.Dispatch{Tick: 5}, Italian))
}

func TestRenderer_DispatchBeforeAck(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, English)

	require.NoError(t, r.Outcome(ir.Unknown{Token: "x"}, ir.Outcome{Tick: 0, Ack: ir.AckAdded}))
	require.NoError(t, r.Outcome(ir.PlaceOrder{}, ir.Outcome{
		Tick:     5,
		Ack:      ir.AckAccepted,
		Dispatch: &ir.Dispatch{Tick: 5, Shipments: []ir.Shipment{{Tick: 1, Recipe: "bread", Quantity: 3}}},
	}))
	require.NoError(t, r.Outcome(ir.Unknown{Token: "bake"}, ir.Outcome{Tick: 6, Ack: ir.AckUnrecognized, Token: "bake"}))

	assert.Empty(t, buf.String(), "output is buffered until flushed")

	require.NoError(t, r.Finish(&ir.Dispatch{Tick: 10}))
	assert.Equal(t, "added\n1 bread 3\naccepted\nunknown command: bake\nempty truck\n", buf.String())
}

func TestRenderer_FinishWithoutDispatch(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, Italian)

	require.NoError(t, r.Outcome(nil, ir.Outcome{Ack: ir.AckRestocked}))
	require.NoError(t, r.Finish(nil))
	assert.Equal(t, "rifornito\n", buf.String())
}

func TestOutcomeLines(t *testing.T) {
	out := ir.Outcome{
		Tick:     4,
		Ack:      ir.AckRemoved,
		Dispatch: &ir.Dispatch{Tick: 4},
	}
	assert.Equal(t, []string{"empty truck", "removed"}, OutcomeLines(out, English))
}
