package main

import (
	"context"
	"fmt"
	"time"

	"agrichain/internal/logger"
	"agrichain/internal/models"
	"agrichain/internal/services"

	"go.uber.org/zap"
)

const (
	demoFarmer   = "0x1111111111111111111111111111111111111111"
	demoConsumer = "0x2222222222222222222222222222222222222222"
)

// demoListings are produce tuples in the contract's getter layout:
// [id, name, produceType, originFarm, grade, harvestTime, currentOwner,
// currentPrice, status, labCertUri, totalQuantityKg, availableQuantityKg].
var demoListings = [][]any{
	{uint64(1), "Basmati Rice", uint8(models.ProduceTypeGrain), "Green Valley Farm", "A",
		uint64(time.Now().AddDate(0, 0, -14).Unix()), demoFarmer, "2000000000000000", uint8(0), "", uint64(500), uint64(500)},
	{uint64(2), "Heirloom Tomatoes", uint8(models.ProduceTypeVegetable), "Green Valley Farm", "B",
		uint64(time.Now().AddDate(0, 0, -2).Unix()), demoFarmer, "900000000000000", uint8(0), "", uint64(120), uint64(120)},
}

// listDemoProduce decodes rec and submits it as a new listing of its owner.
func listDemoProduce(ctx context.Context, svc *services.OrderService, rec []any) func() (*models.Transaction, error) {
	return func() (*models.Transaction, error) {
		p, err := models.DecodeProduceRecord(rec)
		if err != nil {
			return nil, err
		}
		return svc.RegisterProduce(ctx, p.CurrentOwner, services.NewRegisterProduceCommand(p))
	}
}

// seedDemoData registers a farmer and a consumer, lists produce and places a
// few orders so every board tab has something in it. Transactions go through
// the normal submission path. It is a no-op once the farmer is registered.
func seedDemoData(ctx context.Context, app *App) error {
	log := logger.L()
	svc := app.Orders

	viewer, err := svc.Viewer(ctx, demoFarmer)
	if err != nil {
		return err
	}
	if viewer.Role != models.RoleNone {
		log.Info("demo data already present")
		return logDemoTokens(app)
	}

	steps := []struct {
		name string
		run  func() (*models.Transaction, error)
	}{
		{"register farmer", func() (*models.Transaction, error) {
			return svc.RegisterRole(ctx, demoFarmer, services.RegisterRoleCommand{Role: models.RoleFarmer})
		}},
		{"register consumer", func() (*models.Transaction, error) {
			return svc.RegisterRole(ctx, demoConsumer, services.RegisterRoleCommand{Role: models.RoleConsumer})
		}},
		{"list rice", listDemoProduce(ctx, svc, demoListings[0])},
		{"list tomatoes", listDemoProduce(ctx, svc, demoListings[1])},
		{"order rice", func() (*models.Transaction, error) {
			return svc.PlaceOrder(ctx, demoConsumer, services.PlaceOrderCommand{ProduceID: 1, QuantityKg: 25, DeliveryAddress: "14 Harbour Street"})
		}},
		{"order tomatoes", func() (*models.Transaction, error) {
			return svc.PlaceOrder(ctx, demoConsumer, services.PlaceOrderCommand{ProduceID: 2, QuantityKg: 10, DeliveryAddress: "14 Harbour Street"})
		}},
		{"order more rice", func() (*models.Transaction, error) {
			return svc.PlaceOrder(ctx, demoConsumer, services.PlaceOrderCommand{ProduceID: 1, QuantityKg: 5, DeliveryAddress: "14 Harbour Street"})
		}},
		{"accept rice", func() (*models.Transaction, error) { return svc.AcceptOrder(ctx, demoFarmer, 1) }},
		{"reject tomatoes", func() (*models.Transaction, error) {
			return svc.RejectOrder(ctx, demoFarmer, 2, "Frost damaged the batch")
		}},
	}
	for _, step := range steps {
		tx, err := step.run()
		if err != nil {
			return fmt.Errorf("demo step %q: %w", step.name, err)
		}
		receipt, err := waitForReceipt(ctx, svc, tx.ID)
		if err != nil {
			return fmt.Errorf("demo step %q: %w", step.name, err)
		}
		if receipt.Status != models.TxStatusConfirmed {
			return fmt.Errorf("demo step %q reverted: %s", step.name, receipt.RevertReason)
		}
		log.Debug("demo transaction confirmed", zap.String("step", step.name), zap.String("tx_id", tx.ID))
	}
	log.Info("demo data seeded")
	return logDemoTokens(app)
}

// waitForReceipt polls a transaction until it leaves pending. Submissions
// through the broker are applied asynchronously.
func waitForReceipt(ctx context.Context, svc *services.OrderService, id string) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		tx, err := svc.GetTransaction(ctx, id)
		if err != nil {
			return nil, err
		}
		if tx.Status != models.TxStatusPending {
			return tx, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s still pending: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

func logDemoTokens(app *App) error {
	for _, addr := range []string{demoFarmer, demoConsumer} {
		token, err := app.Tokens.IssueToken(addr)
		if err != nil {
			return err
		}
		logger.L().Info("demo session token", zap.String("address", addr), zap.String("token", token))
	}
	return nil
}
