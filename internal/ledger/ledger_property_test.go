package ledger

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"papertrade/internal/models"
)

type step struct {
	Symbol string
	Side   models.OrderSide
	Qty    int64
	Cents  int64
}

func (s step) order() models.Order {
	return models.NewOrder(s.Symbol, s.Side, decimal.NewFromInt(s.Qty), decimal.New(s.Cents, -2))
}

func stepGen() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("AAPL", "MSFT", "TSLA"),
		gen.OneConstOf(models.OrderSideBuy, models.OrderSideSell),
		gen.Int64Range(1, 50),
		gen.Int64Range(100, 50000),
	).Map(func(vals []interface{}) step {
		return step{
			Symbol: vals[0].(string),
			Side:   vals[1].(models.OrderSide),
			Qty:    vals[2].(int64),
			Cents:  vals[3].(int64),
		}
	})
}

// Property: for any sequence of fills, cash spent on the book plus realized
// P&L balances exactly against the cost basis still held.
func TestProperty_CostConservation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("cash flow + held cost basis - realized is constant", prop.ForAll(
		func(steps []step) bool {
			b := NewBook()
			cashFlow := decimal.Zero
			realizedTotal := decimal.Zero

			for _, s := range steps {
				o := s.order()
				realized, err := b.Apply(o, t0)
				if err != nil {
					continue
				}
				if o.Side == models.OrderSideBuy {
					cashFlow = cashFlow.Sub(o.Notional())
				} else {
					cashFlow = cashFlow.Add(o.Notional())
					realizedTotal = realizedTotal.Add(*realized)
				}
			}

			return cashFlow.Add(b.CostBasis()).Sub(realizedTotal).IsZero()
		},
		gen.SliceOf(stepGen()),
	))

	properties.TestingRun(t)
}

// Property: a SELL never changes the average cost of the remaining units and
// realizes exactly (price - average) * quantity on a partial close.
func TestProperty_SellKeepsAverageCost(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("partial SELL leaves average cost untouched", prop.ForAll(
		func(steps []step, sellCents int64) bool {
			b := NewBook()
			for _, s := range steps {
				s.Side = models.OrderSideBuy
				if _, err := b.Apply(s.order(), t0); err != nil {
					return false
				}
			}

			for _, sym := range b.Symbols() {
				before, _ := b.Get(sym)
				if before.Quantity.LessThanOrEqual(decimal.NewFromInt(1)) {
					continue
				}
				price := decimal.New(sellCents, -2)
				realized, err := b.Apply(models.NewOrder(sym, models.OrderSideSell, decimal.NewFromInt(1), price), t0)
				if err != nil {
					return false
				}
				after, _ := b.Get(sym)
				if !after.AverageCost.Equal(before.AverageCost) {
					return false
				}
				if !realized.Equal(price.Sub(before.AverageCost)) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(10, stepGen()),
		gen.Int64Range(100, 50000),
	))

	properties.TestingRun(t)
}

// Property: selling more than is held is rejected and leaves the book unchanged.
func TestProperty_OversellRejected(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("SELL of held+extra fails without mutation", prop.ForAll(
		func(held, extra int64) bool {
			b := NewBook()
			if _, err := b.Apply(models.NewOrder("AAPL", models.OrderSideBuy, decimal.NewFromInt(held), decimal.NewFromInt(10)), t0); err != nil {
				return false
			}
			before := b.Clone()

			_, err := b.Apply(models.NewOrder("AAPL", models.OrderSideSell, decimal.NewFromInt(held+extra), decimal.NewFromInt(10)), t0)
			if err == nil {
				return false
			}
			got, _ := b.Get("AAPL")
			want, _ := before.Get("AAPL")
			return got.Quantity.Equal(want.Quantity) && got.CostBasis.Equal(want.CostBasis)
		},
		gen.Int64Range(1, 1000),
		gen.Int64Range(1, 1000),
	))

	properties.TestingRun(t)
}
