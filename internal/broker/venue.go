package broker

import (
	"context"
	"sync"
	"time"

	"papertrade/internal/errors"
	"papertrade/internal/models"
)

// SimulatedVenue acknowledges every order as filled at its price. It stands
// in for a real brokerage so that LIVE routing can be exercised end to end.
type SimulatedVenue struct {
	mu        sync.Mutex
	submitted []models.Order
	reject    error
	now       func() time.Time
	newID     func(models.TradingMode) string
}

// NewSimulatedVenue creates a venue. newID generates order ids.
func NewSimulatedVenue(now func() time.Time, newID func(models.TradingMode) string) *SimulatedVenue {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = models.NewOrderID
	}
	return &SimulatedVenue{now: now, newID: newID}
}

// Name implements Venue.
func (v *SimulatedVenue) Name() string {
	return "simulated"
}

// RejectWith makes subsequent submissions fail with err. Nil accepts again.
func (v *SimulatedVenue) RejectWith(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reject = err
}

// Submit implements Venue.
func (v *SimulatedVenue) Submit(ctx context.Context, order models.Order) (*models.Fill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.reject != nil {
		return nil, errors.NewOrderError("", order.Symbol, string(order.Side), v.reject.Error(), errors.ErrVenueRejected)
	}
	v.submitted = append(v.submitted, order)

	return &models.Fill{
		OrderID:       v.newID(models.TradingModeLive),
		Symbol:        order.Symbol,
		Side:          order.Side,
		Type:          order.Type,
		Quantity:      order.Quantity,
		Price:         order.Price,
		TotalNotional: order.Notional(),
		Status:        models.FillStatusFilled,
		Mode:          models.TradingModeLive,
		ExecutedAt:    v.now(),
	}, nil
}

// Submitted returns the orders accepted so far.
func (v *SimulatedVenue) Submitted() []models.Order {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.Order, len(v.submitted))
	copy(out, v.submitted)
	return out
}
