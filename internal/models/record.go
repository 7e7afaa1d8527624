package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Positional layouts of the contract's public getters. Consumers index these tuples
// positionally, so the order must never change.
const (
	orderRecordLen   = 8
	produceRecordLen = 12
)

// ErrMalformedRecord is returned when a contract tuple has the wrong shape.
var ErrMalformedRecord = errors.New("malformed contract record")

// DecodeOrderRecord converts the contract tuple
// [produceId, buyer, quantityKg, amountPaid, status, deliveryStatus, deliveryAddress, rejectionMessage]
// into an Order with the given id.
func DecodeOrderRecord(id uint64, rec []any) (*Order, error) {
	if len(rec) != orderRecordLen {
		return nil, fmt.Errorf("%w: order tuple has %d fields, want %d", ErrMalformedRecord, len(rec), orderRecordLen)
	}

	var (
		o   = &Order{ID: id}
		err error
	)
	if o.ProduceID, err = toUint64(rec[0]); err != nil {
		return nil, fieldErr("produceId", err)
	}
	if o.Buyer, err = toString(rec[1]); err != nil {
		return nil, fieldErr("buyer", err)
	}
	if o.QuantityKg, err = toUint64(rec[2]); err != nil {
		return nil, fieldErr("quantityKg", err)
	}
	if o.AmountPaid, err = toDecimal(rec[3]); err != nil {
		return nil, fieldErr("amountPaid", err)
	}
	status, err := toUint64(rec[4])
	if err != nil {
		return nil, fieldErr("status", err)
	}
	if status > math.MaxUint8 || !OrderStatus(status).IsValid() {
		return nil, fieldErr("status", fmt.Errorf("unknown order status %d", status))
	}
	o.Status = OrderStatus(status)
	delivery, err := toUint64(rec[5])
	if err != nil {
		return nil, fieldErr("deliveryStatus", err)
	}
	if delivery > math.MaxUint8 || !DeliveryStatus(delivery).IsValid() {
		return nil, fieldErr("deliveryStatus", fmt.Errorf("unknown delivery status %d", delivery))
	}
	o.DeliveryStatus = DeliveryStatus(delivery)
	// Address and message are absent on freshly created tuples.
	o.DeliveryAddress, _ = toString(rec[6])
	o.RejectionMessage, _ = toString(rec[7])
	return o, nil
}

// Record returns the order as the contract's positional tuple.
func (o *Order) Record() []any {
	return []any{
		o.ProduceID,
		o.Buyer,
		o.QuantityKg,
		o.AmountPaid.BigInt(),
		uint8(o.Status),
		uint8(o.DeliveryStatus),
		o.DeliveryAddress,
		o.RejectionMessage,
	}
}

// DecodeProduceRecord converts the contract tuple
// [id, name, produceType, originFarm, grade, harvestTime, currentOwner, currentPrice,
// status, labCertUri, totalQuantityKg, availableQuantityKg] into a Produce.
func DecodeProduceRecord(rec []any) (*Produce, error) {
	if len(rec) != produceRecordLen {
		return nil, fmt.Errorf("%w: produce tuple has %d fields, want %d", ErrMalformedRecord, len(rec), produceRecordLen)
	}

	var (
		p   = &Produce{}
		err error
	)
	if p.ID, err = toUint64(rec[0]); err != nil {
		return nil, fieldErr("id", err)
	}
	p.Name, _ = toString(rec[1])
	if p.Name == "" {
		p.Name = "Unknown Product"
	}
	pt, err := toUint64(rec[2])
	if err != nil {
		return nil, fieldErr("produceType", err)
	}
	if pt > uint64(ProduceTypeOther) {
		return nil, fieldErr("produceType", fmt.Errorf("unknown produce type %d", pt))
	}
	p.ProduceType = ProduceType(pt)
	p.OriginFarm, _ = toString(rec[3])
	p.Grade, _ = toString(rec[4])
	harvest, err := toUint64(rec[5])
	if err != nil {
		return nil, fieldErr("harvestTime", err)
	}
	if harvest > math.MaxInt64 {
		return nil, fieldErr("harvestTime", fmt.Errorf("out of range: %d", harvest))
	}
	if harvest > 0 {
		p.HarvestTime = time.Unix(int64(harvest), 0).UTC()
	}
	if p.CurrentOwner, err = toString(rec[6]); err != nil {
		return nil, fieldErr("currentOwner", err)
	}
	if p.CurrentPrice, err = toDecimal(rec[7]); err != nil {
		return nil, fieldErr("currentPrice", err)
	}
	st, err := toUint64(rec[8])
	if err != nil {
		return nil, fieldErr("status", err)
	}
	if st > uint64(ProduceStatusSold) {
		return nil, fieldErr("status", fmt.Errorf("unknown produce status %d", st))
	}
	p.Status = ProduceStatus(st)
	p.LabCertURI, _ = toString(rec[9])
	if p.TotalQuantityKg, err = toUint64(rec[10]); err != nil {
		return nil, fieldErr("totalQuantityKg", err)
	}
	if p.AvailableQuantityKg, err = toUint64(rec[11]); err != nil {
		return nil, fieldErr("availableQuantityKg", err)
	}
	return p, nil
}

// Record returns the produce as the contract's positional tuple.
func (p *Produce) Record() []any {
	var harvest uint64
	if !p.HarvestTime.IsZero() {
		harvest = uint64(p.HarvestTime.Unix())
	}
	return []any{
		p.ID,
		p.Name,
		uint8(p.ProduceType),
		p.OriginFarm,
		p.Grade,
		harvest,
		p.CurrentOwner,
		p.CurrentPrice.BigInt(),
		uint8(p.Status),
		p.LabCertURI,
		p.TotalQuantityKg,
		p.AvailableQuantityKg,
	}
}

func fieldErr(field string, err error) error {
	return fmt.Errorf("%w: field %s: %v", ErrMalformedRecord, field, err)
}

func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint8:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case uint64:
		return n, nil
	case uint:
		return uint64(n), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("negative value %d", n)
		}
		return uint64(n), nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("negative value %d", n)
		}
		return uint64(n), nil
	case json.Number:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("not an unsigned integer: %s", n)
		}
		return u, nil
	case float64: // JSON numbers
		if n < 0 || n != float64(uint64(n)) {
			return 0, fmt.Errorf("not an unsigned integer: %v", n)
		}
		return uint64(n), nil
	case *big.Int:
		if n == nil || n.Sign() < 0 || !n.IsUint64() {
			return 0, fmt.Errorf("out of range: %v", n)
		}
		return n.Uint64(), nil
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return decimal.Zero, fmt.Errorf("nil amount")
		}
		return decimal.NewFromBigInt(n, 0), nil
	case decimal.Decimal:
		return n, nil
	case string:
		return decimal.NewFromString(n)
	case json.Number:
		return decimal.NewFromString(n.String())
	}
	u, err := toUint64(v)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0), nil
}

func toString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case nil:
		return "", fmt.Errorf("missing value")
	}
	return "", fmt.Errorf("unsupported type %T", v)
}
