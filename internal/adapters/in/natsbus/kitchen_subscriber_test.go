package natsbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"ordering/internal/adapters/out/kitchen"
	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCommands struct {
	startProcessing []kernel.UUID
	finishItem      [][2]kernel.UUID
	err             error
	failures        int
}

// StartProcessing fails the next `failures` calls with `err`, then succeeds.
func (r *recordingCommands) StartProcessing(_ context.Context, orderID kernel.UUID) error {
	if r.failures > 0 {
		r.failures--
		return r.err
	}
	r.startProcessing = append(r.startProcessing, orderID)
	return nil
}

func (r *recordingCommands) FinishItem(_ context.Context, orderID, itemID kernel.UUID) error {
	if r.failures > 0 {
		r.failures--
		return r.err
	}
	r.finishItem = append(r.finishItem, [2]kernel.UUID{orderID, itemID})
	return nil
}

func newTestSubscriber(commands OrderCommands) (*KitchenSubscriber, *[]string) {
	var deadLettered []string
	sub := &KitchenSubscriber{
		commands: commands,
		publish: func(subject string, _ []byte) error {
			deadLettered = append(deadLettered, subject)
			return nil
		},
		logger: slog.Default(),
	}
	return sub, &deadLettered
}

func Test_KitchenSubscriber_StartProcessing(t *testing.T) {
	commands := &recordingCommands{}
	sub, deadLettered := newTestSubscriber(commands)

	orderID := kernel.NewUUID()
	data, err := json.Marshal(kitchen.OrderMessage{OrderID: orderID.String()})
	require.NoError(t, err)

	sub.process(context.Background(), kitchen.SubjectStartProcessing, data, sub.applyStartProcessing)

	require.Len(t, commands.startProcessing, 1)
	assert.True(t, commands.startProcessing[0].IsEqual(orderID))
	assert.Empty(t, *deadLettered)
}

func Test_KitchenSubscriber_ItemFinished(t *testing.T) {
	commands := &recordingCommands{}
	sub, deadLettered := newTestSubscriber(commands)

	orderID := kernel.NewUUID()
	itemID := kernel.NewUUID()
	data, err := json.Marshal(kitchen.ItemMessage{OrderID: orderID.String(), ItemID: itemID.String()})
	require.NoError(t, err)

	sub.process(context.Background(), kitchen.SubjectItemFinished, data, sub.applyItemFinished)

	require.Len(t, commands.finishItem, 1)
	assert.True(t, commands.finishItem[0][0].IsEqual(orderID))
	assert.True(t, commands.finishItem[0][1].IsEqual(itemID))
	assert.Empty(t, *deadLettered)
}

func Test_KitchenSubscriber_RetriesTransientFailures(t *testing.T) {
	commands := &recordingCommands{
		err:      errs.NewPersistenceFailureError("update order", assert.AnError),
		failures: 2,
	}
	sub, deadLettered := newTestSubscriber(commands)

	orderID := kernel.NewUUID()
	data, err := json.Marshal(kitchen.OrderMessage{OrderID: orderID.String()})
	require.NoError(t, err)

	sub.process(context.Background(), kitchen.SubjectStartProcessing, data, sub.applyStartProcessing)

	// Third attempt lands.
	require.Len(t, commands.startProcessing, 1)
	assert.Empty(t, *deadLettered)
}

func Test_KitchenSubscriber_DeadLettersExhaustedRetries(t *testing.T) {
	commands := &recordingCommands{
		err:      errs.NewPersistenceFailureError("update order", assert.AnError),
		failures: maxAttempts,
	}
	sub, deadLettered := newTestSubscriber(commands)

	orderID := kernel.NewUUID()
	data, err := json.Marshal(kitchen.OrderMessage{OrderID: orderID.String()})
	require.NoError(t, err)

	sub.process(context.Background(), kitchen.SubjectStartProcessing, data, sub.applyStartProcessing)

	assert.Empty(t, commands.startProcessing)
	require.Len(t, *deadLettered, 1)
	assert.Equal(t, "deadletter."+kitchen.SubjectStartProcessing, (*deadLettered)[0])
}

func Test_KitchenSubscriber_StateGuardViolationIsNotRetried(t *testing.T) {
	orderID := kernel.NewUUID()
	guardErr := errs.NewInvalidStateTransitionError(orderID.String(), "StartProcessing", "Creating")
	commands := &recordingCommands{err: guardErr, failures: maxAttempts}
	sub, deadLettered := newTestSubscriber(commands)

	data, err := json.Marshal(kitchen.OrderMessage{OrderID: orderID.String()})
	require.NoError(t, err)

	sub.process(context.Background(), kitchen.SubjectStartProcessing, data, sub.applyStartProcessing)

	// One attempt, then straight to the dead-letter subject.
	assert.Equal(t, maxAttempts-1, commands.failures)
	require.Len(t, *deadLettered, 1)
}

func Test_KitchenSubscriber_MalformedPayloadIsDeadLettered(t *testing.T) {
	commands := &recordingCommands{}
	sub, deadLettered := newTestSubscriber(commands)

	sub.process(context.Background(), kitchen.SubjectItemFinished, []byte("{not json"), sub.applyItemFinished)

	assert.Empty(t, commands.finishItem)
	require.Len(t, *deadLettered, 1)
	assert.Equal(t, "deadletter."+kitchen.SubjectItemFinished, (*deadLettered)[0])
}
