package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_Demand(t *testing.T) {
	o := &Order{Items: []LineItem{
		{ItemID: "item2", Quantity: 1},
		{ItemID: "item1", Quantity: 2},
		{ItemID: "item2", Quantity: 3},
	}}

	assert.Equal(t, int64(6), o.TotalQuantity())
	assert.Equal(t, map[string]int64{"item1": 2, "item2": 4}, o.Demand())
	assert.Equal(t, []string{"item1", "item2"}, o.ItemIDs())
}

func TestOrder_Clone(t *testing.T) {
	o := &Order{ID: "order1", Items: []LineItem{{ItemID: "item1", Quantity: 2}}}
	cp := o.Clone()
	cp.Items[0].Quantity = 9

	assert.Equal(t, int64(2), o.Items[0].Quantity)
}

func TestSagaStep_Transitions(t *testing.T) {
	s := NewSagaStep(StepBalance)
	assert.Equal(t, SagaStepPending, s.Status)

	s.Complete()
	assert.Equal(t, SagaStepCompleted, s.Status)
	assert.False(t, s.ExecutedAt.IsZero())

	s.Fail("Insufficient balance")
	assert.Equal(t, SagaStepFailed, s.Status)
	assert.Equal(t, "Insufficient balance", s.Error)

	s.Compensate("")
	assert.Equal(t, SagaStepCompensated, s.Status)
	assert.Equal(t, "Insufficient balance", s.Error)
}

func TestSagaRun_Snapshot(t *testing.T) {
	run := NewSagaRun("saga-1", "order1", []string{StepBalance, StepStock})
	require.Len(t, run.Steps, 2)
	assert.Equal(t, SagaStateIdle, run.State)

	snap := run.Snapshot()
	run.Steps[0].Complete()
	run.Finish()

	assert.Equal(t, SagaStepPending, snap.Steps[0].Status)
	assert.Nil(t, snap.FinishedAt)
	assert.NotNil(t, run.FinishedAt)
}

func TestOutcome_JSON(t *testing.T) {
	data, err := json.Marshal(Completed())
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Order Completed"}`, string(data))

	data, err = json.Marshal(Failed("Not enough stock"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"Not enough stock"}`, string(data))

	assert.True(t, Completed().OK())
	assert.False(t, Failed("x").OK())
}
