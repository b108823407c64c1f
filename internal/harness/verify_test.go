package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pantry/internal/engine"
	"github.com/roach88/pantry/internal/ir"
	"github.com/roach88/pantry/internal/store"
)

func openJournal(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// journal runs cmds through an engine and records them under runID.
func journal(t *testing.T, st *store.Store, runID string, finish bool, cmds ...ir.Command) {
	t.Helper()
	ctx := context.Background()
	_, err := st.CreateRun(ctx, store.Run{ID: runID, Period: 2, Capacity: 100, Dialect: "en", MaxIngredients: 10})
	require.NoError(t, err)

	e := engine.New(engine.Limits{Period: 2, Capacity: 100, MaxIngredients: 10})
	rec := st.NewRecorder(ctx, runID)
	for _, c := range cmds {
		require.NoError(t, rec.Outcome(c, e.Apply(c)))
	}
	if finish {
		require.NoError(t, rec.Finish(e.Finish()))
	}
}

func breadCommands() []ir.Command {
	return []ir.Command{
		ir.AddRecipe{Name: "bread", Ingredients: []ir.Ingredient{{Name: "flour", Quantity: 10}}},
		ir.Resupply{Lots: []ir.LotSpec{{Ingredient: "flour", Quantity: 50, Expiration: 100}}},
		ir.PlaceOrder{Recipe: "bread", Quantity: 3},
		ir.PlaceOrder{Recipe: "bread", Quantity: 1},
	}
}

func TestVerify_Deterministic(t *testing.T) {
	st := openJournal(t)
	journal(t, st, "run-1", true, breadCommands()...)

	v, err := Verify(context.Background(), st, "run-1", nil)
	require.NoError(t, err)

	assert.True(t, v.Deterministic(), "divergences: %+v", v.Divergences)
	assert.True(t, v.Complete)
	assert.Equal(t, 4, v.Commands)
	assert.Equal(t, 2, v.Dispatches, "visits at ticks 2 and 4")
}

func TestVerify_Interrupted(t *testing.T) {
	st := openJournal(t)
	journal(t, st, "run-1", false, breadCommands()[:3]...)

	// A dispatch written just before the stream stopped has no command.
	_, err := st.WriteDispatch(context.Background(), "run-1", &ir.Dispatch{Tick: 3, Shipments: []ir.Shipment{}})
	require.NoError(t, err)

	v, err := Verify(context.Background(), st, "run-1", nil)
	require.NoError(t, err)
	assert.False(t, v.Complete)
	assert.True(t, v.Deterministic(), "divergences: %+v", v.Divergences)
}

func TestVerify_AckDivergence(t *testing.T) {
	st := openJournal(t)
	ctx := context.Background()
	_, err := st.CreateRun(ctx, store.Run{ID: "run-1", Period: 5, Capacity: 100, Dialect: "en", MaxIngredients: 10})
	require.NoError(t, err)

	_, err = st.WriteCommand(ctx, "run-1", 0, ir.PlaceOrder{Recipe: "bread", Quantity: 1}, ir.AckAccepted, "")
	require.NoError(t, err)
	require.NoError(t, st.FinishRun(ctx, "run-1", 1))

	v, err := Verify(ctx, st, "run-1", nil)
	require.NoError(t, err)
	require.False(t, v.Deterministic())
	assert.Equal(t, []Divergence{
		{Tick: 0, What: "ack", Journaled: "accepted", Replayed: "rejected"},
	}, v.Divergences)
}

func TestVerify_DispatchDivergence(t *testing.T) {
	st := openJournal(t)
	ctx := context.Background()
	_, err := st.CreateRun(ctx, store.Run{ID: "run-1", Period: 1, Capacity: 100, Dialect: "en", MaxIngredients: 10})
	require.NoError(t, err)

	_, err = st.WriteCommand(ctx, "run-1", 0, ir.Unknown{Token: "noop"}, ir.AckUnrecognized, "noop")
	require.NoError(t, err)
	_, err = st.WriteDispatch(ctx, "run-1", &ir.Dispatch{
		Tick:      1,
		Load:      10,
		Shipments: []ir.Shipment{{Tick: 0, Recipe: "bread", Quantity: 1, Weight: 10}},
	})
	require.NoError(t, err)
	require.NoError(t, st.FinishRun(ctx, "run-1", 1))

	v, err := Verify(ctx, st, "run-1", nil)
	require.NoError(t, err)
	require.Len(t, v.Divergences, 1)
	assert.Equal(t, int64(1), v.Divergences[0].Tick)
	assert.Equal(t, "dispatch", v.Divergences[0].What)
	assert.Contains(t, v.Divergences[0].Replayed, `"shipments":[]`)
}

func TestVerify_TickGap(t *testing.T) {
	st := openJournal(t)
	ctx := context.Background()
	_, err := st.CreateRun(ctx, store.Run{ID: "run-1", Period: 5, Capacity: 100, Dialect: "en", MaxIngredients: 10})
	require.NoError(t, err)

	for _, tick := range []int64{0, 2} {
		_, err := st.WriteCommand(ctx, "run-1", tick, ir.Unknown{Token: "noop"}, ir.AckUnrecognized, "noop")
		require.NoError(t, err)
	}

	v, err := Verify(ctx, st, "run-1", nil)
	require.NoError(t, err)
	assert.Equal(t, []Divergence{
		{Tick: 2, What: "tick", Journaled: "2", Replayed: "1"},
	}, v.Divergences)
}

func TestVerify_UnknownRun(t *testing.T) {
	_, err := Verify(context.Background(), openJournal(t), "missing", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}
