// Package broker provides order execution and position listing.
package broker

import (
	"context"

	"adaptive-trader/internal/models"
)

// Broker defines the execution interface the cycle orchestrator uses.
// Order submission is synchronous: the result is known before portfolio
// state is mutated.
type Broker interface {
	GetPositions(ctx context.Context) ([]models.Position, error)
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	PlaceOrder(ctx context.Context, order models.Order) (*OrderResult, error)
}

// OrderResult represents the result of an order placement.
type OrderResult struct {
	OrderID     string
	Status      string
	Message     string
	FilledQty   float64
	FilledPrice float64
}

// Order statuses.
const (
	StatusFilled   = "FILLED"
	StatusRejected = "REJECTED"
)
