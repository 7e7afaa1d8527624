package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"agrichain/internal/logger"
	"agrichain/internal/models"
	"agrichain/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProduceInvalidator drops cached listings after the ledger changed them.
type ProduceInvalidator interface {
	Invalidate(id uint64)
}

// LedgerService applies submitted transactions with contract semantics.
// Every transaction either commits all its writes and is confirmed, or
// commits none and is reverted with a reason. Transactions are applied one
// at a time, whichever goroutine delivers them.
type LedgerService struct {
	store  repositories.Store
	txs    repositories.TransactionRepository
	cache  ProduceInvalidator
	boards *BoardRegistry

	mu sync.Mutex // serializes settle
}

// NewLedgerService creates a new LedgerService. cache and boards may be nil.
func NewLedgerService(store repositories.Store, txs repositories.TransactionRepository, cache ProduceInvalidator, boards *BoardRegistry) *LedgerService {
	return &LedgerService{
		store:  store,
		txs:    txs,
		cache:  cache,
		boards: boards,
	}
}

// effect is what a confirmed transaction touched.
type effect struct {
	orderID   uint64
	produceID uint64
}

// Handle decodes and applies one published transaction. Reverts are settled
// and reported as success; any other error means the message should be retried.
func (l *LedgerService) Handle(ctx context.Context, body []byte) error {
	var tx models.Transaction
	if err := json.Unmarshal(body, &tx); err != nil {
		logger.L().Error("dropping undecodable transaction", zap.Error(err))
		return nil
	}

	eff, err := l.settle(ctx, &tx)
	if err != nil || eff == nil {
		return err
	}

	logger.L().Info("transaction confirmed",
		zap.String("tx_id", tx.ID), zap.String("method", string(tx.Method)), zap.Uint64("order_id", eff.orderID))
	l.publishEffects(ctx, &tx, *eff)
	return nil
}

// settle applies tx in one unit of work. It returns a nil effect when tx
// reverted or was settled by an earlier delivery.
func (l *LedgerService) settle(ctx context.Context, tx *models.Transaction) (*effect, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var eff effect
	err := l.store.Atomic(ctx, func(repos repositories.Repositories) error {
		stored, err := repos.Transactions.GetByID(ctx, tx.ID)
		if err != nil {
			return err
		}
		if stored.Status != models.TxStatusPending {
			return errAlreadySettled
		}
		eff, err = l.apply(ctx, repos, stored)
		if err != nil {
			return err
		}
		return repos.Transactions.SetStatus(ctx, stored.ID, models.TxStatusConfirmed, "")
	})

	var rev *RevertError
	switch {
	case errors.Is(err, errAlreadySettled):
		logger.L().Info("transaction already settled", zap.String("tx_id", tx.ID))
		return nil, nil
	case errors.As(err, &rev):
		if serr := l.txs.SetStatus(ctx, tx.ID, models.TxStatusReverted, rev.Err.Error()); serr != nil {
			return nil, serr
		}
		logger.L().Info("transaction reverted",
			zap.String("tx_id", tx.ID), zap.String("method", string(tx.Method)), zap.String("reason", rev.Err.Error()))
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to apply transaction %s: %w", tx.ID, err)
	}
	return &eff, nil
}

var errAlreadySettled = errors.New("transaction already settled")

func (l *LedgerService) publishEffects(ctx context.Context, tx *models.Transaction, eff effect) {
	if l.cache != nil && eff.produceID != 0 {
		l.cache.Invalidate(eff.produceID)
	}
	if l.boards == nil {
		return
	}
	if tx.Method == models.TxRegisterUser {
		l.boards.Evict(tx.Caller)
	}
	if eff.orderID != 0 {
		l.boards.RefreshOrder(ctx, eff.orderID)
	}
}

func (l *LedgerService) apply(ctx context.Context, repos repositories.Repositories, tx *models.Transaction) (effect, error) {
	role, err := repos.Accounts.GetRole(ctx, tx.Caller)
	if err != nil {
		return effect{}, err
	}

	switch tx.Method {
	case models.TxRegisterUser:
		var cmd RegisterRoleCommand
		if err := decodePayload(tx, &cmd); err != nil {
			return effect{}, err
		}
		return effect{}, registerUser(ctx, repos, tx.Caller, role, cmd)
	case models.TxRegisterProduce:
		var cmd RegisterProduceCommand
		if err := decodePayload(tx, &cmd); err != nil {
			return effect{}, err
		}
		return registerProduce(ctx, repos, tx.Caller, role, cmd)
	case models.TxEditProduce:
		var cmd EditProduceCommand
		if err := decodePayload(tx, &cmd); err != nil {
			return effect{}, err
		}
		return editProduce(ctx, repos, tx.Caller, role, cmd)
	case models.TxPlaceOrder:
		var cmd PlaceOrderCommand
		if err := decodePayload(tx, &cmd); err != nil {
			return effect{}, err
		}
		eff, err := placeOrder(ctx, repos, tx.Caller, role, cmd)
		if err != nil {
			return eff, err
		}
		return eff, repos.Transactions.LinkOrder(ctx, tx.ID, eff.orderID)
	case models.TxRejectOrder:
		var cmd RejectOrderCommand
		if err := decodePayload(tx, &cmd); err != nil {
			return effect{}, err
		}
		return transitionOrder(ctx, repos, tx.Method, tx.Caller, role, cmd.OrderID, cmd.Reason)
	case models.TxAcceptOrder, models.TxMarkDelivered, models.TxClaimRefund:
		var cmd OrderCommand
		if err := decodePayload(tx, &cmd); err != nil {
			return effect{}, err
		}
		return transitionOrder(ctx, repos, tx.Method, tx.Caller, role, cmd.OrderID, "")
	}
	return effect{}, revert(fmt.Errorf("%w: unknown method %q", ErrInvalidRequest, tx.Method))
}

func decodePayload(tx *models.Transaction, v any) error {
	if err := json.Unmarshal(tx.Payload, v); err != nil {
		return revert(fmt.Errorf("%w: malformed %s payload: %v", ErrInvalidRequest, tx.Method, err))
	}
	return nil
}

func registerUser(ctx context.Context, repos repositories.Repositories, caller string, role models.Role, cmd RegisterRoleCommand) error {
	if role != models.RoleNone {
		return revert(ErrAlreadyRegistered)
	}
	if cmd.Role != models.RoleFarmer && cmd.Role != models.RoleConsumer {
		return revert(fmt.Errorf("%w: role %d", ErrInvalidRequest, cmd.Role))
	}
	return repos.Accounts.Create(ctx, &models.Account{Address: caller, Role: cmd.Role})
}

func registerProduce(ctx context.Context, repos repositories.Repositories, caller string, role models.Role, cmd RegisterProduceCommand) (effect, error) {
	if role != models.RoleFarmer {
		return effect{}, revert(fmt.Errorf("%w: only farmers list produce", ErrForbidden))
	}
	if cmd.QuantityKg == 0 || !cmd.PriceWei.IsPositive() {
		return effect{}, revert(fmt.Errorf("%w: quantity and price must be positive", ErrInvalidRequest))
	}
	p := &models.Produce{
		Name:                cmd.Name,
		ProduceType:         cmd.ProduceType,
		OriginFarm:          cmd.OriginFarm,
		Grade:               cmd.Grade,
		HarvestTime:         cmd.HarvestTime,
		CurrentOwner:        caller,
		CurrentPrice:        cmd.PriceWei,
		Status:              models.ProduceStatusHarvested,
		LabCertURI:          cmd.LabCertURI,
		TotalQuantityKg:     cmd.QuantityKg,
		AvailableQuantityKg: cmd.QuantityKg,
	}
	if err := repos.Produces.Create(ctx, p); err != nil {
		return effect{}, err
	}
	return effect{produceID: p.ID}, nil
}

// editProduce rewrites a listing's details. Quantity already sold stays sold,
// so the new total may not fall below it.
func editProduce(ctx context.Context, repos repositories.Repositories, caller string, role models.Role, cmd EditProduceCommand) (effect, error) {
	if role != models.RoleFarmer {
		return effect{}, revert(fmt.Errorf("%w: only farmers edit produce", ErrForbidden))
	}
	if !cmd.PriceWei.IsPositive() {
		return effect{}, revert(fmt.Errorf("%w: price must be positive", ErrInvalidRequest))
	}
	produce, err := getProduce(ctx, repos, cmd.ProduceID)
	if err != nil {
		return effect{}, err
	}
	if err := checkProduceEdit(caller, produce, cmd); err != nil {
		return effect{}, revert(err)
	}

	sold := produce.TotalQuantityKg - produce.AvailableQuantityKg
	produce.Name = cmd.Name
	produce.ProduceType = cmd.ProduceType
	produce.Grade = cmd.Grade
	produce.CurrentPrice = cmd.PriceWei
	produce.LabCertURI = cmd.LabCertURI
	produce.TotalQuantityKg = cmd.TotalQuantityKg
	produce.AvailableQuantityKg = cmd.TotalQuantityKg - sold
	produce.Status = models.ProduceStatusHarvested
	if produce.AvailableQuantityKg == 0 {
		produce.Status = models.ProduceStatusSold
	}
	if err := repos.Produces.Update(ctx, produce); err != nil {
		return effect{}, err
	}
	return effect{produceID: produce.ID}, nil
}

func placeOrder(ctx context.Context, repos repositories.Repositories, caller string, role models.Role, cmd PlaceOrderCommand) (effect, error) {
	if role != models.RoleConsumer {
		return effect{}, revert(fmt.Errorf("%w: only consumers place orders", ErrForbidden))
	}
	produce, err := getProduce(ctx, repos, cmd.ProduceID)
	if err != nil {
		return effect{}, err
	}
	if cmd.QuantityKg == 0 || produce.Status != models.ProduceStatusHarvested || produce.AvailableQuantityKg < cmd.QuantityKg {
		return effect{}, revert(fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, cmd.QuantityKg, produce.AvailableQuantityKg))
	}

	order := &models.Order{
		ProduceID:       produce.ID,
		Buyer:           caller,
		QuantityKg:      cmd.QuantityKg,
		AmountPaid:      produce.CurrentPrice.Mul(decimal.NewFromBigInt(new(big.Int).SetUint64(cmd.QuantityKg), 0)),
		Status:          models.OrderStatusPending,
		DeliveryStatus:  models.DeliveryStatusNone,
		DeliveryAddress: cmd.DeliveryAddress,
	}
	if err := repos.Orders.Create(ctx, order); err != nil {
		return effect{}, err
	}

	produce.AvailableQuantityKg -= cmd.QuantityKg
	if produce.AvailableQuantityKg == 0 {
		produce.Status = models.ProduceStatusSold
	}
	if err := repos.Produces.Update(ctx, produce); err != nil {
		return effect{}, err
	}
	return effect{orderID: order.ID, produceID: produce.ID}, nil
}

// transitionOrder applies acceptOrder, rejectOrder, markDelivered or claimRefund.
func transitionOrder(ctx context.Context, repos repositories.Repositories, method models.TxMethod, caller string, role models.Role, id uint64, reason string) (effect, error) {
	order, err := repos.Orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return effect{}, revert(fmt.Errorf("order %d: %w", id, ErrOrderNotFound))
		}
		return effect{}, err
	}
	produce, err := getProduce(ctx, repos, order.ProduceID)
	if err != nil {
		return effect{}, err
	}
	t, err := checkTransition(method, caller, role, order, produce)
	if err != nil {
		return effect{}, revert(err)
	}

	order.Status = t.to
	order.DeliveryStatus = t.toDelivery
	eff := effect{orderID: order.ID}
	if method == models.TxRejectOrder {
		order.RejectionMessage = reason
	}
	if err := repos.Orders.Update(ctx, order); err != nil {
		return effect{}, err
	}

	// Rejected quantity goes back on sale.
	if method == models.TxRejectOrder {
		produce.AvailableQuantityKg += order.QuantityKg
		produce.Status = models.ProduceStatusHarvested
		if err := repos.Produces.Update(ctx, produce); err != nil {
			return effect{}, err
		}
		eff.produceID = produce.ID
	}
	return eff, nil
}

func getProduce(ctx context.Context, repos repositories.Repositories, id uint64) (*models.Produce, error) {
	p, err := repos.Produces.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, revert(fmt.Errorf("produce %d: %w", id, ErrProduceNotFound))
		}
		return nil, err
	}
	return p, nil
}

// LocalDispatcher is a TxPublisher that applies transactions in the caller's
// goroutine. It stands in for the broker when none is configured. Concurrent
// publishes are applied one after another by the ledger.
type LocalDispatcher struct {
	ledger *LedgerService
}

// NewLocalDispatcher creates a new LocalDispatcher.
func NewLocalDispatcher(ledger *LedgerService) *LocalDispatcher {
	return &LocalDispatcher{
		ledger: ledger,
	}
}

// Publish applies body immediately.
func (d *LocalDispatcher) Publish(_ string, body []byte) error {
	return d.ledger.Handle(context.Background(), body)
}
