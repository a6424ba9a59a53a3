package broker

import (
	"fmt"
	"sync"
	"time"

	"context"

	apperrors "adaptive-trader/internal/errors"
	"adaptive-trader/internal/models"
)

// PaperBroker simulates order execution against cached last prices. The
// price cache is fed by the batch orchestrator's last-price extraction,
// so fills use the same prices the signal pipeline saw.
type PaperBroker struct {
	positions    map[string]*models.Position
	priceCache   map[string]float64
	cash         float64
	orderCounter int

	mu sync.RWMutex
}

// NewPaperBroker creates a paper broker with the given starting cash.
func NewPaperBroker(initialCash float64) *PaperBroker {
	return &PaperBroker{
		positions:  make(map[string]*models.Position),
		priceCache: make(map[string]float64),
		cash:       initialCash,
	}
}

// UpdatePrice updates the cached price for a symbol.
func (p *PaperBroker) UpdatePrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.priceCache[symbol] = price
}

// GetQuote returns the cached last price for a symbol.
func (p *PaperBroker) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	price, ok := p.priceCache[symbol]
	if !ok || price <= 0 {
		return nil, apperrors.NewDataError("paper", symbol, "no cached price", apperrors.ErrNoData)
	}
	return &models.Quote{Symbol: symbol, Price: price, Timestamp: time.Now()}, nil
}

// GetPositions returns the simulated positions with refreshed values.
func (p *PaperBroker) GetPositions(ctx context.Context) ([]models.Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	positions := make([]models.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out := *pos
		if price := p.priceCache[pos.Symbol]; price > 0 {
			out.CurrentPrice = price
			out.MarketValue = price * out.Quantity
		}
		positions = append(positions, out)
	}
	return positions, nil
}

// PlaceOrder simulates a market-order fill at the cached price. Buy
// orders reject on insufficient funds; sell orders reject when the
// symbol is not held or the quantity exceeds the position.
func (p *PaperBroker) PlaceOrder(ctx context.Context, order models.Order) (*OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if order.Quantity <= 0 {
		return nil, apperrors.NewOrderError(order.Symbol, string(order.Side), "non-positive quantity", apperrors.ErrOrderRejected)
	}

	price := p.priceCache[order.Symbol]
	if price <= 0 {
		return nil, apperrors.NewOrderError(order.Symbol, string(order.Side), "no price available", apperrors.ErrNoData)
	}

	p.orderCounter++
	orderID := fmt.Sprintf("PAPER_%d_%d", time.Now().Unix(), p.orderCounter)
	value := price * order.Quantity

	switch order.Side {
	case models.OrderSideBuy:
		if value > p.cash {
			return nil, apperrors.NewOrderError(order.Symbol, string(order.Side),
				fmt.Sprintf("need %.2f, have %.2f", value, p.cash), apperrors.ErrInsufficientFunds)
		}
		p.cash -= value
		p.applyBuy(order.Symbol, order.Quantity, price)
	case models.OrderSideSell:
		pos, ok := p.positions[order.Symbol]
		if !ok {
			return nil, apperrors.NewOrderError(order.Symbol, string(order.Side), "not held", apperrors.ErrPositionNotFound)
		}
		if order.Quantity > pos.Quantity+1e-9 {
			return nil, apperrors.NewOrderError(order.Symbol, string(order.Side), "quantity exceeds position", apperrors.ErrOrderRejected)
		}
		p.cash += value
		p.applySell(order.Symbol, order.Quantity)
	default:
		return nil, apperrors.NewOrderError(order.Symbol, string(order.Side), "unknown side", apperrors.ErrOrderRejected)
	}

	return &OrderResult{
		OrderID:     orderID,
		Status:      StatusFilled,
		Message:     "paper order filled",
		FilledQty:   order.Quantity,
		FilledPrice: price,
	}, nil
}

func (p *PaperBroker) applyBuy(symbol string, qty, price float64) {
	pos, ok := p.positions[symbol]
	if !ok {
		p.positions[symbol] = &models.Position{
			Symbol:       symbol,
			Quantity:     qty,
			AveragePrice: price,
			CurrentPrice: price,
			MarketValue:  qty * price,
		}
		return
	}
	totalCost := pos.AveragePrice*pos.Quantity + price*qty
	pos.Quantity += qty
	pos.AveragePrice = totalCost / pos.Quantity
	pos.CurrentPrice = price
	pos.MarketValue = pos.Quantity * price
}

func (p *PaperBroker) applySell(symbol string, qty float64) {
	pos := p.positions[symbol]
	pos.Quantity -= qty
	if pos.Quantity <= 1e-9 {
		delete(p.positions, symbol)
		return
	}
	pos.MarketValue = pos.Quantity * pos.CurrentPrice
}

// Restore loads persisted account state into the simulated broker so a
// restarted process resumes where it left off.
func (p *PaperBroker) Restore(cash float64, positions []models.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cash = cash
	p.positions = make(map[string]*models.Position, len(positions))
	for _, pos := range positions {
		cp := pos
		p.positions[pos.Symbol] = &cp
		if pos.CurrentPrice > 0 {
			p.priceCache[pos.Symbol] = pos.CurrentPrice
		}
	}
}

// Cash returns the available simulated cash.
func (p *PaperBroker) Cash() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cash
}

// Reset restores the paper broker to its initial state.
func (p *PaperBroker) Reset(initialCash float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions = make(map[string]*models.Position)
	p.priceCache = make(map[string]float64)
	p.cash = initialCash
	p.orderCounter = 0
}

var _ Broker = (*PaperBroker)(nil)
