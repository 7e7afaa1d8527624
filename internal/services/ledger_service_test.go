package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"agrichain/internal/models"
	"agrichain/internal/repositories"
	"agrichain/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// submit stores a pending transaction and returns its published form.
func submit(t *testing.T, f *fixture, method models.TxMethod, caller string, payload any) (*models.Transaction, []byte) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	tx := &models.Transaction{Method: method, Caller: caller, Payload: body}
	require.NoError(t, f.txs.Create(context.Background(), tx))
	msg, err := json.Marshal(tx)
	require.NoError(t, err)
	return tx, msg
}

func receipt(t *testing.T, f *fixture, id string) *models.Transaction {
	t.Helper()
	tx, err := f.txs.GetByID(context.Background(), id)
	require.NoError(t, err)
	return tx
}

type recordingInvalidator struct {
	ids []uint64
}

func (r *recordingInvalidator) Invalidate(id uint64) { r.ids = append(r.ids, id) }

func TestLedgerService_RevertsStaleTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, farmer, models.RoleFarmer)
	p := f.listProduce(t, farmer, 10)
	o := f.putOrder(t, p.ID, consumer, models.OrderStatusPending, models.DeliveryStatusNone)

	first, firstMsg := submit(t, f, models.TxAcceptOrder, farmer, services.OrderCommand{OrderID: o.ID})
	second, secondMsg := submit(t, f, models.TxRejectOrder, farmer, services.RejectOrderCommand{OrderID: o.ID, Reason: "late"})

	require.NoError(t, f.ledger.Handle(ctx, firstMsg))
	require.NoError(t, f.ledger.Handle(ctx, secondMsg))

	assert.Equal(t, models.TxStatusConfirmed, receipt(t, f, first.ID).Status)
	reverted := receipt(t, f, second.ID)
	assert.Equal(t, models.TxStatusReverted, reverted.Status)
	assert.Contains(t, reverted.RevertReason, services.ErrInvalidTransition.Error())

	stored, err := f.orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAccepted, stored.Status)
	assert.Equal(t, models.DeliveryStatusInDelivery, stored.DeliveryStatus)
	assert.Empty(t, stored.RejectionMessage)
}

func TestLedgerService_Reverts(t *testing.T) {
	f := newFixture(t)
	f.register(t, farmer, models.RoleFarmer)
	f.register(t, consumer, models.RoleConsumer)
	p := f.listProduce(t, farmer, 5)

	tests := []struct {
		name    string
		method  models.TxMethod
		caller  string
		payload any
		reason  error
	}{
		{"second registration", models.TxRegisterUser, farmer, services.RegisterRoleCommand{Role: models.RoleConsumer}, services.ErrAlreadyRegistered},
		{"unregistered places order", models.TxPlaceOrder, stranger, services.PlaceOrderCommand{ProduceID: p.ID, QuantityKg: 1, DeliveryAddress: "x"}, services.ErrForbidden},
		{"order exceeds stock", models.TxPlaceOrder, consumer, services.PlaceOrderCommand{ProduceID: p.ID, QuantityKg: 6, DeliveryAddress: "x"}, services.ErrInsufficientStock},
		{"order for missing produce", models.TxPlaceOrder, consumer, services.PlaceOrderCommand{ProduceID: 9, QuantityKg: 1, DeliveryAddress: "x"}, services.ErrProduceNotFound},
		{"consumer lists produce", models.TxRegisterProduce, consumer, services.RegisterProduceCommand{Name: "Oats", QuantityKg: 1}, services.ErrForbidden},
		{"accept missing order", models.TxAcceptOrder, farmer, services.OrderCommand{OrderID: 3}, services.ErrOrderNotFound},
		{"malformed payload", models.TxAcceptOrder, farmer, "not an object", services.ErrInvalidRequest},
		{"unknown method", models.TxMethod("burn"), farmer, services.OrderCommand{OrderID: 1}, services.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, msg := submit(t, f, tt.method, tt.caller, tt.payload)
			require.NoError(t, f.ledger.Handle(context.Background(), msg))
			got := receipt(t, f, tx.ID)
			assert.Equal(t, models.TxStatusReverted, got.Status)
			assert.Contains(t, got.RevertReason, tt.reason.Error())
		})
	}

	count, err := f.orders.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	unchanged, err := f.produces.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), unchanged.AvailableQuantityKg)
}

func TestLedgerService_RedeliveryIsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, consumer, models.RoleConsumer)
	p := f.listProduce(t, farmer, 10)

	tx, msg := submit(t, f, models.TxPlaceOrder, consumer, services.PlaceOrderCommand{ProduceID: p.ID, QuantityKg: 4, DeliveryAddress: "x"})
	require.NoError(t, f.ledger.Handle(ctx, msg))
	require.NoError(t, f.ledger.Handle(ctx, msg))

	count, err := f.orders.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
	assert.Equal(t, uint64(1), receipt(t, f, tx.ID).OrderID)
	stock, err := f.produces.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), stock.AvailableQuantityKg)
}

func TestLedgerService_InvalidatesProduceCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, consumer, models.RoleConsumer)
	p := f.listProduce(t, farmer, 10)

	cache := &recordingInvalidator{}
	store := repositories.NewMockStore(repositories.Repositories{
		Accounts: f.accounts, Orders: f.orders, Produces: f.produces, Transactions: f.txs,
	})
	ledger := services.NewLedgerService(store, f.txs, cache, nil)

	_, msg := submit(t, f, models.TxPlaceOrder, consumer, services.PlaceOrderCommand{ProduceID: p.ID, QuantityKg: 1, DeliveryAddress: "x"})
	require.NoError(t, ledger.Handle(ctx, msg))
	assert.Equal(t, []uint64{p.ID}, cache.ids)

	_, msg = submit(t, f, models.TxPlaceOrder, consumer, services.PlaceOrderCommand{ProduceID: p.ID, QuantityKg: 100, DeliveryAddress: "x"})
	require.NoError(t, ledger.Handle(ctx, msg))
	assert.Equal(t, []uint64{p.ID}, cache.ids)
}

func TestLedgerService_UnknownTransactionIsRetried(t *testing.T) {
	f := newFixture(t)
	msg, err := json.Marshal(models.Transaction{ID: "6c1a1d52-2f7e-4a3c-9d0b-8d8e3f0c9a11", Method: models.TxAcceptOrder})
	require.NoError(t, err)

	assert.ErrorIs(t, f.ledger.Handle(context.Background(), msg), repositories.ErrNotFound)
	assert.NoError(t, f.ledger.Handle(context.Background(), []byte("{")))
}

func TestLedgerService_RevertsUnknownAndFinalOrders(t *testing.T) {
	f := newFixture(t)
	f.register(t, farmer, models.RoleFarmer)
	f.register(t, consumer, models.RoleConsumer)
	p := f.listProduce(t, farmer, 50)

	corrupt := f.putOrder(t, p.ID, consumer, models.OrderStatus(9), models.DeliveryStatusNone)
	badDelivery := f.putOrder(t, p.ID, consumer, models.OrderStatusAccepted, models.DeliveryStatus(7))
	completed := f.putOrder(t, p.ID, consumer, models.OrderStatusCompleted, models.DeliveryStatusDelivered)
	refunded := f.putOrder(t, p.ID, consumer, models.OrderStatusRefunded, models.DeliveryStatusNone)

	tests := []struct {
		name    string
		method  models.TxMethod
		caller  string
		orderID uint64
	}{
		{"unknown status", models.TxAcceptOrder, farmer, corrupt.ID},
		{"unknown delivery", models.TxMarkDelivered, farmer, badDelivery.ID},
		{"completed", models.TxMarkDelivered, farmer, completed.ID},
		{"refunded", models.TxClaimRefund, consumer, refunded.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, msg := submit(t, f, tt.method, tt.caller, services.OrderCommand{OrderID: tt.orderID})
			require.NoError(t, f.ledger.Handle(context.Background(), msg))
			got := receipt(t, f, tx.ID)
			assert.Equal(t, models.TxStatusReverted, got.Status)
			assert.Contains(t, got.RevertReason, services.ErrInvalidTransition.Error())
		})
	}
}
