package services_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"agrichain/internal/models"
	"agrichain/internal/repositories"
	"agrichain/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// overlappingStore runs units of work side by side, the way separate
// database transactions would, and records the most that ran at once.
type overlappingStore struct {
	repos  repositories.Repositories
	active atomic.Int32
	peak   atomic.Int32
}

func (s *overlappingStore) Atomic(ctx context.Context, fn func(repos repositories.Repositories) error) error {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	return fn(s.repos)
}

func TestLedgerService_ConcurrentOrdersDoNotOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, consumer, models.RoleConsumer)
	f.register(t, otherConsumer, models.RoleConsumer)
	p := f.listProduce(t, farmer, 10)

	store := &overlappingStore{repos: repositories.Repositories{
		Accounts: f.accounts, Orders: f.orders, Produces: f.produces, Transactions: f.txs,
	}}
	dispatcher := services.NewLocalDispatcher(services.NewLedgerService(store, f.txs, nil, nil))

	const buyers = 8
	txs := make([]*models.Transaction, buyers)
	msgs := make([][]byte, buyers)
	for i := range txs {
		buyer := consumer
		if i%2 == 1 {
			buyer = otherConsumer
		}
		txs[i], msgs[i] = submit(t, f, models.TxPlaceOrder, buyer,
			services.PlaceOrderCommand{ProduceID: p.ID, QuantityKg: 6, DeliveryAddress: "x"})
	}

	var wg sync.WaitGroup
	for _, msg := range msgs {
		wg.Add(1)
		go func(body []byte) {
			defer wg.Done()
			assert.NoError(t, dispatcher.Publish("tx.placeOrder", body))
		}(msg)
	}
	wg.Wait()

	assert.Equal(t, int32(1), store.peak.Load())

	confirmed := 0
	for _, tx := range txs {
		got := receipt(t, f, tx.ID)
		switch got.Status {
		case models.TxStatusConfirmed:
			confirmed++
		case models.TxStatusReverted:
			assert.Contains(t, got.RevertReason, services.ErrInsufficientStock.Error())
		default:
			t.Errorf("transaction %s left %s", tx.ID, got.Status)
		}
	}
	assert.Equal(t, 1, confirmed)

	count, err := f.orders.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
	stock, err := f.produces.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), stock.AvailableQuantityKg)
}

func editCommand(id, total uint64) services.EditProduceCommand {
	return services.EditProduceCommand{
		ProduceID:       id,
		Name:            "Brown Rice",
		ProduceType:     models.ProduceTypeGrain,
		Grade:           "A+",
		PriceWei:        decimal.RequireFromString("3000000000000000"),
		TotalQuantityKg: total,
	}
}

func TestLedgerService_EditProduce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, farmer, models.RoleFarmer)
	f.register(t, otherFarmer, models.RoleFarmer)
	f.register(t, consumer, models.RoleConsumer)
	p := f.listProduce(t, farmer, 10)

	cache := &recordingInvalidator{}
	store := repositories.NewMockStore(repositories.Repositories{
		Accounts: f.accounts, Orders: f.orders, Produces: f.produces, Transactions: f.txs,
	})
	ledger := services.NewLedgerService(store, f.txs, cache, nil)

	_, msg := submit(t, f, models.TxPlaceOrder, consumer, services.PlaceOrderCommand{ProduceID: p.ID, QuantityKg: 4, DeliveryAddress: "x"})
	require.NoError(t, ledger.Handle(ctx, msg))

	reverts := []struct {
		name   string
		caller string
		cmd    services.EditProduceCommand
		reason error
	}{
		{"other farmer", otherFarmer, editCommand(p.ID, 20), services.ErrForbidden},
		{"consumer", consumer, editCommand(p.ID, 20), services.ErrForbidden},
		{"below sold", farmer, editCommand(p.ID, 3), services.ErrInsufficientStock},
		{"missing listing", farmer, editCommand(42, 20), services.ErrProduceNotFound},
	}
	for _, tt := range reverts {
		t.Run(tt.name, func(t *testing.T) {
			tx, msg := submit(t, f, models.TxEditProduce, tt.caller, tt.cmd)
			require.NoError(t, ledger.Handle(ctx, msg))
			got := receipt(t, f, tx.ID)
			assert.Equal(t, models.TxStatusReverted, got.Status)
			assert.Contains(t, got.RevertReason, tt.reason.Error())
		})
	}

	cache.ids = nil
	tx, msg := submit(t, f, models.TxEditProduce, farmer, editCommand(p.ID, 20))
	require.NoError(t, ledger.Handle(ctx, msg))
	assert.Equal(t, models.TxStatusConfirmed, receipt(t, f, tx.ID).Status)
	assert.Equal(t, []uint64{p.ID}, cache.ids)

	edited, err := f.produces.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Brown Rice", edited.Name)
	assert.Equal(t, "A+", edited.Grade)
	assert.Equal(t, uint64(20), edited.TotalQuantityKg)
	assert.Equal(t, uint64(16), edited.AvailableQuantityKg)
	assert.Equal(t, models.ProduceStatusHarvested, edited.Status)
	assert.True(t, decimal.RequireFromString("3000000000000000").Equal(edited.CurrentPrice))

	// Shrinking to exactly what was sold closes the listing.
	_, msg = submit(t, f, models.TxEditProduce, farmer, editCommand(p.ID, 4))
	require.NoError(t, ledger.Handle(ctx, msg))
	edited, err = f.produces.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, edited.AvailableQuantityKg)
	assert.Equal(t, models.ProduceStatusSold, edited.Status)
}

func TestOrderService_EditProduce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, farmer, models.RoleFarmer)
	f.register(t, otherFarmer, models.RoleFarmer)
	p := f.listProduce(t, farmer, 10)

	pub := new(MockPublisher)
	pub.On("Publish", "tx.editProduce", mock.Anything).Return(nil).Once()
	svc := services.NewOrderService(f.accounts, f.orders, f.produces, f.txs, f.boards, pub, 11155111)

	_, err := svc.EditProduce(ctx, otherFarmer, editCommand(p.ID, 20))
	assert.ErrorIs(t, err, services.ErrForbidden)
	zeroPrice := editCommand(p.ID, 20)
	zeroPrice.PriceWei = decimal.Zero
	_, err = svc.EditProduce(ctx, farmer, zeroPrice)
	assert.ErrorIs(t, err, services.ErrInvalidRequest)

	tx, err := svc.EditProduce(ctx, farmer, editCommand(p.ID, 20))
	require.NoError(t, err)
	assert.Equal(t, models.TxEditProduce, tx.Method)
	pub.AssertExpectations(t)
}

func TestOrderService_ListProduce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, farmer, models.RoleFarmer)
	f.register(t, consumer, models.RoleConsumer)
	rice := f.listProduce(t, farmer, 10)
	other := f.listProduce(t, otherFarmer, 5)
	sold := f.listProduce(t, farmer, 1)
	sold.Grade = "B"
	sold.AvailableQuantityKg = 0
	sold.Status = models.ProduceStatusSold
	require.NoError(t, f.produces.Update(ctx, sold))

	all, err := f.svc.ListProduce(ctx, services.ProduceQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uint64{rice.ID, other.ID, sold.ID}, []uint64{all[0].ID, all[1].ID, all[2].ID})

	available, err := f.svc.ListProduce(ctx, services.ProduceQuery{AvailableOnly: true})
	require.NoError(t, err)
	assert.Len(t, available, 2)

	graded, err := f.svc.ListProduce(ctx, services.ProduceQuery{Grade: "b"})
	require.NoError(t, err)
	require.Len(t, graded, 1)
	assert.Equal(t, sold.ID, graded[0].ID)

	grain := models.ProduceTypeGrain
	none, err := f.svc.ListProduce(ctx, services.ProduceQuery{Search: "basmati", Type: &grain})
	require.NoError(t, err)
	assert.Empty(t, none)

	mine, err := f.svc.ListOwnProduce(ctx, farmer)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = f.svc.ListOwnProduce(ctx, consumer)
	assert.ErrorIs(t, err, services.ErrForbidden)
	_, err = f.svc.ListOwnProduce(ctx, stranger)
	assert.ErrorIs(t, err, services.ErrNotRegistered)
}

func TestOrderService_Records(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, farmer, models.RoleFarmer)
	f.register(t, consumer, models.RoleConsumer)
	f.register(t, otherConsumer, models.RoleConsumer)
	p := f.listProduce(t, farmer, 10)
	o := f.putOrder(t, p.ID, consumer, models.OrderStatusAccepted, models.DeliveryStatusInDelivery)

	rec, err := f.svc.GetOrderRecord(ctx, consumer, o.ID)
	require.NoError(t, err)
	decoded, err := models.DecodeOrderRecord(o.ID, rec)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAccepted, decoded.Status)
	assert.Equal(t, models.DeliveryStatusInDelivery, decoded.DeliveryStatus)
	assert.True(t, o.AmountPaid.Equal(decoded.AmountPaid))

	_, err = f.svc.GetOrderRecord(ctx, otherConsumer, o.ID)
	assert.ErrorIs(t, err, services.ErrOrderNotFound)

	prec, err := f.svc.GetProduceRecord(ctx, p.ID)
	require.NoError(t, err)
	listing, err := models.DecodeProduceRecord(prec)
	require.NoError(t, err)
	assert.Equal(t, p.Name, listing.Name)
	assert.Equal(t, uint64(10), listing.AvailableQuantityKg)

	_, err = f.svc.GetProduceRecord(ctx, 99)
	assert.ErrorIs(t, err, services.ErrProduceNotFound)
}
