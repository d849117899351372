package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/savings-plan/internal/common"
)

func TestEvent_JSONRoundTrip(t *testing.T) {
	at := time.Date(2024, 8, 3, 10, 0, 0, 0, time.UTC)
	e := New(TransactionLinked, at)
	e.TransactionID = "rent-2024-8"
	e.ScheduleID = "rent"

	data, err := e.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"transaction.linked"`)
	assert.NotContains(t, string(data), "detail")

	back, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, e, back)

	_, err = FromJSON([]byte("{"))
	assert.Error(t, err)
}

func TestNew_UniqueIDs(t *testing.T) {
	a := New(ConfigurationUpdated, time.Now())
	b := New(ConfigurationUpdated, time.Now())
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, a.ID, 36)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Publish(context.Background(), New(TiersRefreshed, time.Now())))
	require.NoError(t, Nop{}.Publish(context.Background(), New(TiersRefreshed, time.Now())))

	got := r.Events()
	require.Len(t, got, 1)
	assert.Equal(t, TiersRefreshed, got[0].Type)
}

func TestClassifyPublishError(t *testing.T) {
	assert.NoError(t, classifyPublishError(nil))

	recoverable := &amqp091.Error{Code: amqp091.ChannelError, Reason: "busy", Recover: true}
	assert.ErrorIs(t, classifyPublishError(recoverable), common.ErrPublisherUnavailable)
	assert.True(t, common.IsRetryable(classifyPublishError(recoverable)))

	fatal := &amqp091.Error{Code: amqp091.NotFound, Reason: "no exchange"}
	assert.False(t, common.IsRetryable(classifyPublishError(fatal)))

	timeout := classifyPublishError(context.DeadlineExceeded)
	assert.True(t, errors.Is(timeout, common.ErrPublisherUnavailable))
}
