package broker

import (
	"context"
	"errors"
	"testing"

	apperrors "adaptive-trader/internal/errors"
	"adaptive-trader/internal/models"
)

func TestPaperBrokerBuySell(t *testing.T) {
	ctx := context.Background()
	p := NewPaperBroker(10_000)
	p.UpdatePrice("AAPL", 100)

	result, err := p.PlaceOrder(ctx, models.Order{
		Symbol: "AAPL", Side: models.OrderSideBuy, Type: models.OrderTypeMarket, Quantity: 10,
	})
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if result.Status != StatusFilled || result.FilledPrice != 100 {
		t.Fatalf("buy result = %+v", result)
	}
	if p.Cash() != 9_000 {
		t.Fatalf("cash after buy = %v, want 9000", p.Cash())
	}

	positions, _ := p.GetPositions(ctx)
	if len(positions) != 1 || positions[0].Quantity != 10 {
		t.Fatalf("positions after buy = %+v", positions)
	}

	// Averaging in at a higher price.
	p.UpdatePrice("AAPL", 110)
	if _, err := p.PlaceOrder(ctx, models.Order{
		Symbol: "AAPL", Side: models.OrderSideBuy, Type: models.OrderTypeMarket, Quantity: 10,
	}); err != nil {
		t.Fatalf("second buy: %v", err)
	}
	positions, _ = p.GetPositions(ctx)
	if positions[0].AveragePrice != 105 {
		t.Fatalf("avg price = %v, want 105", positions[0].AveragePrice)
	}

	// Full exit removes the position.
	if _, err := p.PlaceOrder(ctx, models.Order{
		Symbol: "AAPL", Side: models.OrderSideSell, Type: models.OrderTypeMarket, Quantity: 20,
	}); err != nil {
		t.Fatalf("sell: %v", err)
	}
	positions, _ = p.GetPositions(ctx)
	if len(positions) != 0 {
		t.Fatalf("positions after full exit = %+v", positions)
	}
}

func TestPaperBrokerRejections(t *testing.T) {
	ctx := context.Background()
	p := NewPaperBroker(100)
	p.UpdatePrice("AAPL", 100)

	if _, err := p.PlaceOrder(ctx, models.Order{
		Symbol: "AAPL", Side: models.OrderSideBuy, Quantity: 10,
	}); !errors.Is(err, apperrors.ErrInsufficientFunds) {
		t.Errorf("oversized buy error = %v, want ErrInsufficientFunds", err)
	}

	if _, err := p.PlaceOrder(ctx, models.Order{
		Symbol: "AAPL", Side: models.OrderSideSell, Quantity: 1,
	}); !errors.Is(err, apperrors.ErrPositionNotFound) {
		t.Errorf("sell of unheld symbol error = %v, want ErrPositionNotFound", err)
	}

	if _, err := p.PlaceOrder(ctx, models.Order{
		Symbol: "AAPL", Side: models.OrderSideBuy, Quantity: 0,
	}); !errors.Is(err, apperrors.ErrOrderRejected) {
		t.Errorf("zero-quantity order error = %v, want ErrOrderRejected", err)
	}

	if _, err := p.PlaceOrder(ctx, models.Order{
		Symbol: "MSFT", Side: models.OrderSideBuy, Quantity: 1,
	}); !errors.Is(err, apperrors.ErrNoData) {
		t.Errorf("order without price error = %v, want ErrNoData", err)
	}
}

func TestPaperBrokerQuote(t *testing.T) {
	ctx := context.Background()
	p := NewPaperBroker(1000)

	if _, err := p.GetQuote(ctx, "AAPL"); !errors.Is(err, apperrors.ErrNoData) {
		t.Errorf("quote without price error = %v, want ErrNoData", err)
	}

	p.UpdatePrice("AAPL", 123.45)
	quote, err := p.GetQuote(ctx, "AAPL")
	if err != nil || quote.Price != 123.45 {
		t.Errorf("quote = %+v err=%v", quote, err)
	}
}

func TestPaperBrokerRestore(t *testing.T) {
	p := NewPaperBroker(10_000)
	p.Restore(5_000, []models.Position{
		{Symbol: "AAPL", Quantity: 10, AveragePrice: 90, CurrentPrice: 100},
	})

	if p.Cash() != 5_000 {
		t.Errorf("cash after restore = %v, want 5000", p.Cash())
	}
	positions, _ := p.GetPositions(context.Background())
	if len(positions) != 1 || positions[0].Quantity != 10 {
		t.Errorf("positions after restore = %+v", positions)
	}
	quote, err := p.GetQuote(context.Background(), "AAPL")
	if err != nil || quote.Price != 100 {
		t.Errorf("restored price cache quote = %+v err=%v", quote, err)
	}
}

func TestPaperBrokerReset(t *testing.T) {
	p := NewPaperBroker(10_000)
	p.UpdatePrice("AAPL", 100)
	p.PlaceOrder(context.Background(), models.Order{
		Symbol: "AAPL", Side: models.OrderSideBuy, Quantity: 5,
	})

	p.Reset(10_000)
	if p.Cash() != 10_000 {
		t.Errorf("cash after reset = %v", p.Cash())
	}
	positions, _ := p.GetPositions(context.Background())
	if len(positions) != 0 {
		t.Errorf("positions after reset = %+v", positions)
	}
}
