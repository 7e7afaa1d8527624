package rabbitmq

import (
	"errors"
	"testing"

	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type mockAcknowledger struct {
	mock.Mock
}

func (m *mockAcknowledger) Ack(multiple bool) error {
	return m.Called(multiple).Error(0)
}

func (m *mockAcknowledger) Nack(multiple, requeue bool) error {
	return m.Called(multiple, requeue).Error(0)
}

func TestSettle_AcksHandledMessage(t *testing.T) {
	ack := new(mockAcknowledger)
	ack.On("Ack", false).Return(nil).Once()

	var got []byte
	settle(zap.NewNop(), 1, "tx.placeOrder", []byte(`{"id":"a"}`), ack, func(body []byte) error {
		got = body
		return nil
	})

	assert.JSONEq(t, `{"id":"a"}`, string(got))
	ack.AssertExpectations(t)
	ack.AssertNotCalled(t, "Nack", mock.Anything, mock.Anything)
}

func TestSettle_RequeuesOnHandlerError(t *testing.T) {
	ack := new(mockAcknowledger)
	ack.On("Nack", false, true).Return(errors.New("channel closed")).Once()

	settle(zap.NewNop(), 2, "tx.acceptOrder", nil, ack, func([]byte) error {
		return errors.New("database unavailable")
	})

	ack.AssertExpectations(t)
	ack.AssertNotCalled(t, "Ack", mock.Anything)
}

func TestPublish_WithoutChannel(t *testing.T) {
	c := &Client{log: zap.NewNop()}
	assert.EqualError(t, c.Publish("tx.claimRefund", nil), "RabbitMQ channel is not available")
	assert.Error(t, c.ConsumeTransactions(func([]byte) error { return nil }))
	assert.NoError(t, c.Close())
}

func TestDispatch_UninitializedDelivery(t *testing.T) {
	called := false
	Dispatch(zap.NewNop(), amqp.Delivery{Body: []byte("{}")}, func([]byte) error {
		called = true
		return nil
	})
	assert.True(t, called)
}
