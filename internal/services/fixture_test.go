package services_test

import (
	"context"
	"os"
	"testing"
	"time"

	"agrichain/internal/logger"
	"agrichain/internal/models"
	"agrichain/internal/repositories"
	"agrichain/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	farmer        = "0x00000000000000000000000000000000000000f1"
	otherFarmer   = "0x00000000000000000000000000000000000000f2"
	consumer      = "0x00000000000000000000000000000000000000c1"
	otherConsumer = "0x00000000000000000000000000000000000000c2"
	stranger      = "0x0000000000000000000000000000000000000099"
)

func TestMain(m *testing.M) {
	logger.Set(zap.NewNop())
	os.Exit(m.Run())
}

// fixture wires the services over in-memory repositories with transactions
// applied synchronously.
type fixture struct {
	accounts *repositories.MockAccountRepository
	orders   *repositories.MockOrderRepository
	produces *repositories.MockProduceRepository
	txs      *repositories.MockTransactionRepository
	boards   *services.BoardRegistry
	ledger   *services.LedgerService
	svc      *services.OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		accounts: repositories.NewMockAccountRepository(),
		orders:   repositories.NewMockOrderRepository(),
		produces: repositories.NewMockProduceRepository(),
		txs:      repositories.NewMockTransactionRepository(),
	}
	store := repositories.NewMockStore(repositories.Repositories{
		Accounts:     f.accounts,
		Orders:       f.orders,
		Produces:     f.produces,
		Transactions: f.txs,
	})
	f.boards = services.NewBoardRegistry(services.NewOrderResolver(f.orders, f.produces), f.orders, 4, time.Minute)
	f.ledger = services.NewLedgerService(store, f.txs, nil, f.boards)
	f.svc = services.NewOrderService(f.accounts, f.orders, f.produces, f.txs, f.boards,
		services.NewLocalDispatcher(f.ledger), 11155111)
	return f
}

// register gives address a role directly in the registry.
func (f *fixture) register(t *testing.T, address string, role models.Role) {
	t.Helper()
	require.NoError(t, f.accounts.Create(context.Background(), &models.Account{Address: address, Role: role}))
}

// listProduce stores a listing owned by owner.
func (f *fixture) listProduce(t *testing.T, owner string, quantity uint64) *models.Produce {
	t.Helper()
	p := &models.Produce{
		Name:                "Basmati Rice",
		ProduceType:         models.ProduceType(1),
		CurrentOwner:        owner,
		CurrentPrice:        decimal.RequireFromString("2000000000000000"),
		Status:              models.ProduceStatusHarvested,
		TotalQuantityKg:     quantity,
		AvailableQuantityKg: quantity,
	}
	require.NoError(t, f.produces.Create(context.Background(), p))
	return p
}

// putOrder stores an order in the given state.
func (f *fixture) putOrder(t *testing.T, produceID uint64, buyer string, status models.OrderStatus, delivery models.DeliveryStatus) *models.Order {
	t.Helper()
	o := &models.Order{
		ProduceID:       produceID,
		Buyer:           buyer,
		QuantityKg:      10,
		AmountPaid:      decimal.RequireFromString("20000000000000000"),
		Status:          status,
		DeliveryStatus:  delivery,
		DeliveryAddress: "12 Mill Road",
	}
	require.NoError(t, f.orders.Create(context.Background(), o))
	return o
}

// setStatus moves a stored order without going through the ledger.
func (f *fixture) setStatus(t *testing.T, id uint64, status models.OrderStatus, delivery models.DeliveryStatus) {
	t.Helper()
	ctx := context.Background()
	o, err := f.orders.GetByID(ctx, id)
	require.NoError(t, err)
	o.Status = status
	o.DeliveryStatus = delivery
	require.NoError(t, f.orders.Update(ctx, o))
}

// MockOrderRepository is a testify mock of repositories.OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Count(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uint64) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// MockPublisher is a testify mock of services.TxPublisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, body []byte) error {
	args := m.Called(routingKey, body)
	return args.Error(0)
}
