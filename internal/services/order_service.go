package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"agrichain/internal/logger"
	"agrichain/internal/models"
	"agrichain/internal/orderstatus"
	"agrichain/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TxPublisher hands a submitted transaction to whatever applies it.
type TxPublisher interface {
	Publish(routingKey string, body []byte) error
}

// OrderView is an owned order prepared for display.
type OrderView struct {
	ID                 uint64                `json:"id"`
	ProduceID          uint64                `json:"produce_id"`
	ProduceName        string                `json:"produce_name"`
	Buyer              string                `json:"buyer"`
	QuantityKg         uint64                `json:"quantity_kg"`
	AmountPaid         decimal.Decimal       `json:"amount_paid"`
	AmountPaidEth      string                `json:"amount_paid_eth"`
	Status             models.OrderStatus    `json:"status"`
	StatusName         string                `json:"status_name"`
	DeliveryStatus     models.DeliveryStatus `json:"delivery_status"`
	DeliveryStatusName string                `json:"delivery_status_name"`
	DeliveryAddress    string                `json:"delivery_address"`
	RejectionMessage   string                `json:"rejection_message,omitempty"`
	Label              string                `json:"label"`
	Color              orderstatus.Color     `json:"color"`
}

// Listing is a viewer's orders page under one filter.
type Listing struct {
	Role   string                   `json:"role"`
	Filter orderstatus.Filter       `json:"filter"`
	Counts orderstatus.StatusCounts `json:"counts"`
	Orders []OrderView              `json:"orders"`
}

// OrderService handles reads of the order boards and submission of contract writes.
type OrderService struct {
	accounts  repositories.AccountRepository
	orders    repositories.OrderRepository
	produces  repositories.ProduceRepository
	txs       repositories.TransactionRepository
	resolver  *OrderResolver
	boards    *BoardRegistry
	publisher TxPublisher
	chainID   uint64
	validate  *validator.Validate
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	accounts repositories.AccountRepository,
	orders repositories.OrderRepository,
	produces repositories.ProduceRepository,
	txs repositories.TransactionRepository,
	boards *BoardRegistry,
	publisher TxPublisher,
	chainID uint64,
) *OrderService {
	return &OrderService{
		accounts:  accounts,
		orders:    orders,
		produces:  produces,
		txs:       txs,
		resolver:  NewOrderResolver(orders, produces),
		boards:    boards,
		publisher: publisher,
		chainID:   chainID,
		validate:  validator.New(),
	}
}

// Viewer looks up the role address is registered under.
func (s *OrderService) Viewer(ctx context.Context, address string) (models.Viewer, error) {
	addr, err := models.NormalizeAddress(address)
	if err != nil {
		return models.Viewer{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	role, err := s.accounts.GetRole(ctx, addr)
	if err != nil {
		return models.Viewer{}, err
	}
	return models.Viewer{Address: addr, Role: role}, nil
}

func (s *OrderService) registeredViewer(ctx context.Context, address string) (models.Viewer, error) {
	viewer, err := s.Viewer(ctx, address)
	if err != nil {
		return viewer, err
	}
	if viewer.Role == models.RoleNone {
		return viewer, ErrNotRegistered
	}
	return viewer, nil
}

// ListOrders syncs the viewer's board and returns the orders listed under filter.
func (s *OrderService) ListOrders(ctx context.Context, address, filter string) (*Listing, error) {
	viewer, err := s.registeredViewer(ctx, address)
	if err != nil {
		return nil, err
	}

	board := s.boards.For(viewer)
	if err := board.Sync(ctx); err != nil {
		return nil, fmt.Errorf("failed to sync orders of %s: %w", viewer.Address, err)
	}

	f := orderstatus.ParseFilter(filter)
	cards := board.Orders(f)
	listing := &Listing{
		Role:   viewer.Role.String(),
		Filter: f,
		Counts: board.Counts(),
		Orders: make([]OrderView, 0, len(cards)),
	}
	for _, res := range cards {
		listing.Orders = append(listing.Orders, newOrderView(res))
	}
	return listing, nil
}

// Counts syncs the viewer's board and returns its tally.
func (s *OrderService) Counts(ctx context.Context, address string) (orderstatus.StatusCounts, error) {
	viewer, err := s.registeredViewer(ctx, address)
	if err != nil {
		return orderstatus.StatusCounts{}, err
	}
	board := s.boards.For(viewer)
	if err := board.Sync(ctx); err != nil {
		return orderstatus.StatusCounts{}, fmt.Errorf("failed to sync orders of %s: %w", viewer.Address, err)
	}
	return board.Counts(), nil
}

// GetOrder returns one of the viewer's orders. Orders that are not the
// viewer's, or not indexed yet, are reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, address string, id uint64) (*OrderView, error) {
	res, err := s.ownedOrder(ctx, address, id)
	if err != nil {
		return nil, err
	}
	view := newOrderView(res)
	return &view, nil
}

func (s *OrderService) ownedOrder(ctx context.Context, address string, id uint64) (Resolution, error) {
	viewer, err := s.registeredViewer(ctx, address)
	if err != nil {
		return Resolution{}, err
	}
	res, err := s.resolver.Resolve(ctx, id, viewer)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to resolve order %d: %w", id, err)
	}
	if res.State != StateOwned {
		return Resolution{}, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
	}
	return res, nil
}

// GetProduce returns a listing.
func (s *OrderService) GetProduce(ctx context.Context, id uint64) (*models.Produce, error) {
	p, err := s.produces.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("produce %d: %w", id, ErrProduceNotFound)
		}
		return nil, err
	}
	return p, nil
}

// ProduceQuery narrows the marketplace listing. Zero fields match everything.
type ProduceQuery struct {
	Search        string
	Grade         string
	Type          *models.ProduceType
	AvailableOnly bool
}

func (q ProduceQuery) matches(p *models.Produce) bool {
	if q.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Search)) &&
		!strings.Contains(strings.ToLower(p.OriginFarm), strings.ToLower(q.Search)) {
		return false
	}
	if q.Grade != "" && !strings.EqualFold(p.Grade, q.Grade) {
		return false
	}
	if q.Type != nil && p.ProduceType != *q.Type {
		return false
	}
	if q.AvailableOnly && (p.Status != models.ProduceStatusHarvested || p.AvailableQuantityKg == 0) {
		return false
	}
	return true
}

// ListProduce returns the marketplace listings matching q, oldest first.
func (s *OrderService) ListProduce(ctx context.Context, q ProduceQuery) ([]models.Produce, error) {
	all, err := s.produces.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Produce, 0, len(all))
	for i := range all {
		if q.matches(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// ListOwnProduce returns the listings of the farmer at address.
func (s *OrderService) ListOwnProduce(ctx context.Context, address string) ([]models.Produce, error) {
	viewer, err := s.registeredViewer(ctx, address)
	if err != nil {
		return nil, err
	}
	if viewer.Role != models.RoleFarmer {
		return nil, fmt.Errorf("%w: only farmers own produce", ErrForbidden)
	}
	return s.produces.GetByOwner(ctx, viewer.Address)
}

// GetOrderRecord returns one of the viewer's orders as the contract tuple.
func (s *OrderService) GetOrderRecord(ctx context.Context, address string, id uint64) ([]any, error) {
	res, err := s.ownedOrder(ctx, address, id)
	if err != nil {
		return nil, err
	}
	return res.Order.Record(), nil
}

// GetProduceRecord returns a listing as the contract tuple.
func (s *OrderService) GetProduceRecord(ctx context.Context, id uint64) ([]any, error) {
	p, err := s.GetProduce(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Record(), nil
}

// GetTransaction returns the receipt of a submitted transaction.
func (s *OrderService) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: transaction id %q", ErrInvalidRequest, id)
	}
	return s.txs.GetByID(ctx, id)
}

// RegisterRole submits registerUser for address.
func (s *OrderService) RegisterRole(ctx context.Context, address string, cmd RegisterRoleCommand) (*models.Transaction, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, err
	}
	viewer, err := s.Viewer(ctx, address)
	if err != nil {
		return nil, err
	}
	if viewer.Role != models.RoleNone {
		return nil, fmt.Errorf("%w as %s", ErrAlreadyRegistered, viewer.Role)
	}
	return s.submit(ctx, viewer.Address, models.TxRegisterUser, 0, cmd)
}

// RegisterProduce submits registerProduce for a farmer.
func (s *OrderService) RegisterProduce(ctx context.Context, address string, cmd RegisterProduceCommand) (*models.Transaction, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, err
	}
	if !cmd.PriceWei.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidRequest)
	}
	viewer, err := s.registeredViewer(ctx, address)
	if err != nil {
		return nil, err
	}
	if viewer.Role != models.RoleFarmer {
		return nil, fmt.Errorf("%w: only farmers list produce", ErrForbidden)
	}
	return s.submit(ctx, viewer.Address, models.TxRegisterProduce, 0, cmd)
}

// EditProduce submits editProduce for the farmer listing the produce.
func (s *OrderService) EditProduce(ctx context.Context, address string, cmd EditProduceCommand) (*models.Transaction, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, err
	}
	if !cmd.PriceWei.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidRequest)
	}
	viewer, err := s.registeredViewer(ctx, address)
	if err != nil {
		return nil, err
	}
	if viewer.Role != models.RoleFarmer {
		return nil, fmt.Errorf("%w: only farmers edit produce", ErrForbidden)
	}
	produce, err := s.GetProduce(ctx, cmd.ProduceID)
	if err != nil {
		return nil, err
	}
	if err := checkProduceEdit(viewer.Address, produce, cmd); err != nil {
		return nil, err
	}
	return s.submit(ctx, viewer.Address, models.TxEditProduce, 0, cmd)
}

// PlaceOrder submits placeOrder for a consumer.
func (s *OrderService) PlaceOrder(ctx context.Context, address string, cmd PlaceOrderCommand) (*models.Transaction, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, err
	}
	viewer, err := s.registeredViewer(ctx, address)
	if err != nil {
		return nil, err
	}
	if viewer.Role != models.RoleConsumer {
		return nil, fmt.Errorf("%w: only consumers place orders", ErrForbidden)
	}
	produce, err := s.GetProduce(ctx, cmd.ProduceID)
	if err != nil {
		return nil, err
	}
	if produce.AvailableQuantityKg < cmd.QuantityKg {
		return nil, fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, cmd.QuantityKg, produce.AvailableQuantityKg)
	}
	return s.submit(ctx, viewer.Address, models.TxPlaceOrder, 0, cmd)
}

// AcceptOrder submits acceptOrder for the farmer owning the order's produce.
func (s *OrderService) AcceptOrder(ctx context.Context, address string, id uint64) (*models.Transaction, error) {
	return s.submitTransition(ctx, address, models.TxAcceptOrder, OrderCommand{OrderID: id})
}

// RejectOrder submits rejectOrder. A reason is required.
func (s *OrderService) RejectOrder(ctx context.Context, address string, id uint64, reason string) (*models.Transaction, error) {
	return s.submitTransition(ctx, address, models.TxRejectOrder, RejectOrderCommand{OrderID: id, Reason: reason})
}

// MarkDelivered submits markDelivered for the farmer owning the order's produce.
func (s *OrderService) MarkDelivered(ctx context.Context, address string, id uint64) (*models.Transaction, error) {
	return s.submitTransition(ctx, address, models.TxMarkDelivered, OrderCommand{OrderID: id})
}

// ClaimRefund submits claimRefund for the buyer of a rejected order.
func (s *OrderService) ClaimRefund(ctx context.Context, address string, id uint64) (*models.Transaction, error) {
	return s.submitTransition(ctx, address, models.TxClaimRefund, OrderCommand{OrderID: id})
}

func (s *OrderService) submitTransition(ctx context.Context, address string, method models.TxMethod, cmd any) (*models.Transaction, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, err
	}
	var id uint64
	switch c := cmd.(type) {
	case OrderCommand:
		id = c.OrderID
	case RejectOrderCommand:
		id = c.OrderID
	}

	viewer, err := s.registeredViewer(ctx, address)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
		}
		return nil, err
	}
	produce, err := s.GetProduce(ctx, order.ProduceID)
	if err != nil {
		return nil, err
	}
	if _, err := checkTransition(method, viewer.Address, viewer.Role, order, produce); err != nil {
		return nil, err
	}
	return s.submit(ctx, viewer.Address, method, id, cmd)
}

// submit records the transaction as pending and publishes it. The outcome is
// observed later through GetTransaction and the order reads.
func (s *OrderService) submit(ctx context.Context, caller string, method models.TxMethod, orderID uint64, payload any) (*models.Transaction, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", method, err)
	}
	tx := &models.Transaction{
		ID:      uuid.New().String(),
		ChainID: s.chainID,
		Method:  method,
		Caller:  caller,
		OrderID: orderID,
		Payload: body,
		Status:  models.TxStatusPending,
	}
	if err := s.txs.Create(ctx, tx); err != nil {
		return nil, err
	}
	// Snapshot before publishing: a local publisher may settle the stored row immediately.
	submitted := *tx

	msg, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction %s: %w", tx.ID, err)
	}
	if s.publisher == nil {
		logger.L().Warn("no transaction publisher configured, transaction left pending", zap.String("tx_id", tx.ID))
		return &submitted, nil
	}
	if err := s.publisher.Publish("tx."+string(method), msg); err != nil {
		if serr := s.txs.SetStatus(ctx, tx.ID, models.TxStatusReverted, "submission failed: "+err.Error()); serr != nil {
			logger.L().Error("failed to settle unsent transaction", zap.String("tx_id", tx.ID), zap.Error(serr))
		}
		return nil, fmt.Errorf("failed to submit %s: %w", method, err)
	}

	logger.L().Info("transaction submitted",
		zap.String("tx_id", tx.ID), zap.String("method", string(method)),
		zap.String("caller", caller), zap.Uint64("order_id", orderID))
	return &submitted, nil
}

func newOrderView(res Resolution) OrderView {
	o := res.Order
	v := OrderView{
		ID:                 o.ID,
		ProduceID:          o.ProduceID,
		Buyer:              o.Buyer,
		QuantityKg:         o.QuantityKg,
		AmountPaid:         o.AmountPaid,
		AmountPaidEth:      models.FormatEther(o.AmountPaid),
		Status:             o.Status,
		StatusName:         o.Status.String(),
		DeliveryStatus:     o.DeliveryStatus,
		DeliveryStatusName: o.DeliveryStatus.String(),
		DeliveryAddress:    o.DeliveryAddress,
		RejectionMessage:   o.RejectionMessage,
		Label:              res.Label.Text,
		Color:              res.Label.Color,
	}
	if res.Produce != nil {
		v.ProduceName = res.Produce.Name
	}
	return v
}
