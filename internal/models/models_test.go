package models_test

import (
	"bytes"
	"encoding/json"
	"math"
	"math/big"
	"testing"
	"time"

	"agrichain/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, models.OrderStatusPending.CanTransitionTo(models.OrderStatusAccepted))
	assert.True(t, models.OrderStatusPending.CanTransitionTo(models.OrderStatusRejected))
	assert.True(t, models.OrderStatusAccepted.CanTransitionTo(models.OrderStatusCompleted))
	assert.True(t, models.OrderStatusRejected.CanTransitionTo(models.OrderStatusRefunded))

	assert.False(t, models.OrderStatusPending.CanTransitionTo(models.OrderStatusCompleted))
	assert.False(t, models.OrderStatusAccepted.CanTransitionTo(models.OrderStatusRejected))
	assert.False(t, models.OrderStatusNone.CanTransitionTo(models.OrderStatusAccepted))

	for _, terminal := range []models.OrderStatus{models.OrderStatusCompleted, models.OrderStatusRefunded} {
		assert.True(t, terminal.IsTerminal())
		for s := models.OrderStatusNone; s <= models.OrderStatusCompleted; s++ {
			assert.False(t, terminal.CanTransitionTo(s), "%s -> %s", terminal, s)
		}
	}

	assert.False(t, models.OrderStatus(6).IsValid())
	assert.Equal(t, "IN_DELIVERY", models.DeliveryStatusInDelivery.String())
}

func TestDecodeOrderRecord(t *testing.T) {
	amount, ok := new(big.Int).SetString("2500000000000000000", 10)
	require.True(t, ok)

	order, err := models.DecodeOrderRecord(7, []any{
		big.NewInt(3), "0xAbC0000000000000000000000000000000000001", big.NewInt(12), amount,
		uint8(3), uint8(0), "12 Farm Rd", "Out of stock",
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(7), order.ID)
	assert.Equal(t, uint64(3), order.ProduceID)
	assert.Equal(t, uint64(12), order.QuantityKg)
	assert.Equal(t, "2500000000000000000", order.AmountPaid.String())
	assert.Equal(t, models.OrderStatusRejected, order.Status)
	assert.Equal(t, models.DeliveryStatusNone, order.DeliveryStatus)
	assert.Equal(t, "Out of stock", order.RejectionMessage)

	back, err := models.DecodeOrderRecord(7, order.Record())
	require.NoError(t, err)
	assert.Equal(t, order.Buyer, back.Buyer)
	assert.Equal(t, order.Status, back.Status)
	assert.Equal(t, order.DeliveryAddress, back.DeliveryAddress)
	assert.True(t, order.AmountPaid.Equal(back.AmountPaid))
}

func TestDecodeOrderRecordRejectsBadShape(t *testing.T) {
	_, err := models.DecodeOrderRecord(1, []any{1, "0x1"})
	assert.ErrorIs(t, err, models.ErrMalformedRecord)

	_, err = models.DecodeOrderRecord(1, []any{-1, "0x1", 1, 1, 1, 0, "", ""})
	assert.ErrorIs(t, err, models.ErrMalformedRecord)

	// Optional strings may be missing.
	o, err := models.DecodeOrderRecord(1, []any{1, "0x1", 1, 1, 1, 0, nil, nil})
	require.NoError(t, err)
	assert.Empty(t, o.DeliveryAddress)
}

func TestDecodeOrderRecordRejectsUnknownEnums(t *testing.T) {
	addr := "0x00000000000000000000000000000000000000c1"
	tests := []struct {
		name     string
		status   any
		delivery any
	}{
		{"status wraps to pending", uint64(257), uint64(0)},
		{"delivery wraps to delivered", uint64(1), uint64(258)},
		{"status past completed", uint8(6), uint8(0)},
		{"delivery past delivered", uint8(1), uint8(3)},
		{"huge status", new(big.Int).Lsh(big.NewInt(1), 70), uint8(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := models.DecodeOrderRecord(1, []any{1, addr, 1, 1, tt.status, tt.delivery, "", ""})
			assert.ErrorIs(t, err, models.ErrMalformedRecord)
		})
	}
}

func TestDecodeOrderRecordFromJSON(t *testing.T) {
	o := &models.Order{
		ID:             2,
		ProduceID:      1,
		Buyer:          "0x00000000000000000000000000000000000000c1",
		QuantityKg:     25,
		AmountPaid:     decimal.RequireFromString("123456789012345678901"),
		Status:         models.OrderStatusAccepted,
		DeliveryStatus: models.DeliveryStatusInDelivery,
	}
	body, err := json.Marshal(o.Record())
	require.NoError(t, err)

	var rec []any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&rec))

	got, err := models.DecodeOrderRecord(2, rec)
	require.NoError(t, err)
	assert.True(t, o.AmountPaid.Equal(got.AmountPaid), got.AmountPaid.String())
	assert.Equal(t, models.OrderStatusAccepted, got.Status)
	assert.Equal(t, models.DeliveryStatusInDelivery, got.DeliveryStatus)
}

func TestDecodeProduceRecordRejectsOutOfRange(t *testing.T) {
	valid := func() []any {
		return (&models.Produce{ID: 1, Name: "Oats", CurrentOwner: "0x1", CurrentPrice: decimal.NewFromInt(1)}).Record()
	}

	rec := valid()
	rec[5] = uint64(math.MaxInt64) + 1
	_, err := models.DecodeProduceRecord(rec)
	assert.ErrorIs(t, err, models.ErrMalformedRecord)

	rec = valid()
	rec[2] = uint64(266)
	_, err = models.DecodeProduceRecord(rec)
	assert.ErrorIs(t, err, models.ErrMalformedRecord)

	rec = valid()
	rec[8] = uint8(2)
	_, err = models.DecodeProduceRecord(rec)
	assert.ErrorIs(t, err, models.ErrMalformedRecord)

	_, err = models.DecodeProduceRecord(valid())
	assert.NoError(t, err)
}

func TestDecodeProduceRecord(t *testing.T) {
	harvest := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	p := &models.Produce{
		ID:                  4,
		Name:                "Tomatoes",
		ProduceType:         models.ProduceTypeVegetable,
		OriginFarm:          "Green Acres",
		Grade:               "A",
		HarvestTime:         harvest,
		CurrentOwner:        "0x00000000000000000000000000000000000000f1",
		CurrentPrice:        decimal.NewFromInt(1000),
		Status:              models.ProduceStatusHarvested,
		TotalQuantityKg:     100,
		AvailableQuantityKg: 60,
	}

	got, err := models.DecodeProduceRecord(p.Record())
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.CurrentOwner, got.CurrentOwner)
	assert.True(t, p.CurrentPrice.Equal(got.CurrentPrice))
	assert.True(t, harvest.Equal(got.HarvestTime))
	assert.Equal(t, uint64(60), got.AvailableQuantityKg)
	assert.Equal(t, "Vegetable", got.ProduceType.Label())
	assert.True(t, got.IsBulk())
}

func TestAddresses(t *testing.T) {
	norm, err := models.NormalizeAddress(" 0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED ")
	require.NoError(t, err)
	assert.Equal(t, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", norm)

	_, err = models.NormalizeAddress("0x1234")
	assert.Error(t, err)
	_, err = models.NormalizeAddress("0xzzzzb6053f3e94c9b9a09f33669435e7ef1beaed")
	assert.Error(t, err)

	assert.True(t, models.SameAddress("0xABCDEF", "0xabcdef"))
	assert.False(t, models.SameAddress("", ""))

	for _, want := range []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	} {
		got, err := models.ChecksumAddress(want)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	assert.Equal(t, "0x5aAe...eAed", models.ShortAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"))
	assert.Equal(t, "Unknown", models.ShortAddress(""))
}

func TestFormatEther(t *testing.T) {
	tests := []struct {
		wei  string
		want string
	}{
		{"0", "0.00"},
		{"1000000000000000", "0.001000"},
		{"10000000000000000", "0.0100"},
		{"500000000000000000", "0.5000"},
		{"2500000000000000000", "2.50"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, models.FormatEther(decimal.RequireFromString(tt.wei)), tt.wei)
	}
}
