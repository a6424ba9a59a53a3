package risk

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"adaptive-trader/internal/config"
	"adaptive-trader/internal/models"
)

func testEngine() *Engine {
	return NewEngine(config.Default().Risk)
}

func TestProperty_PositionSizeNeverExceedsCash(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	e := testEngine()

	properties.Property("shares*price never exceeds available cash", prop.ForAll(
		func(pv, cash, price, atr float64) bool {
			shares := e.PositionSize(pv, cash, price, atr)
			return shares*price <= cash+1e-9
		},
		gen.Float64Range(100, 1_000_000),
		gen.Float64Range(1, 1_000_000),
		gen.Float64Range(0.01, 10_000),
		gen.Float64Range(0, 500),
	))

	properties.Property("shares*price never exceeds the max position fraction", prop.ForAll(
		func(pv, cash, price, atr float64) bool {
			shares := e.PositionSize(pv, cash, price, atr)
			return shares*price <= pv*e.Config().MaxPositionSize+1e-9
		},
		gen.Float64Range(100, 1_000_000),
		gen.Float64Range(1, 1_000_000),
		gen.Float64Range(0.01, 10_000),
		gen.Float64Range(0, 500),
	))

	properties.TestingRun(t)
}

func TestPositionSizeMinTradeValue(t *testing.T) {
	e := testEngine()

	// Tiny cash cannot produce a position above the minimum trade value.
	if shares := e.PositionSize(10_000, 10, 100, 2); shares != 0 {
		t.Errorf("PositionSize with tiny cash = %v, want 0", shares)
	}
	if shares := e.PositionSize(0, 1000, 100, 2); shares != 0 {
		t.Errorf("PositionSize with zero portfolio = %v, want 0", shares)
	}
}

func TestPositionSizeFlatFallbackWithoutATR(t *testing.T) {
	e := testEngine()
	shares := e.PositionSize(10_000, 10_000, 100, 0)
	want := 10_000 * e.Config().MaxPositionSize / 100
	if shares != want {
		t.Errorf("PositionSize without ATR = %v, want flat cap %v", shares, want)
	}
}

func TestTrailingStopStrictness(t *testing.T) {
	e := testEngine()
	hwm, atr := 100.0, 2.0
	trigger := e.StopPrice(hwm, atr) // 96 with the default 2x multiplier

	if trigger != 96 {
		t.Fatalf("StopPrice = %v, want 96", trigger)
	}
	if e.TrailingStopHit(trigger, hwm, atr) {
		t.Error("price exactly at the trigger must not fire")
	}
	if !e.TrailingStopHit(trigger-0.01, hwm, atr) {
		t.Error("price one tick below the trigger must fire")
	}
	if e.TrailingStopHit(50, hwm, 0) {
		t.Error("unknown entry ATR must never fire the stop")
	}
}

func TestProfitFractionTiers(t *testing.T) {
	e := testEngine()

	h := &models.Holding{AvgCost: 100, EntryATR: 2}

	h.CurrentPrice = 103 // below the 3x tier (gain 3 < 6)
	if f := e.ProfitFraction(h); f != 0 {
		t.Errorf("fraction below first tier = %v, want 0", f)
	}

	h.CurrentPrice = 107 // past 3x (6), below 5x (10)
	if f := e.ProfitFraction(h); f != 0.25 {
		t.Errorf("fraction past first tier = %v, want 0.25", f)
	}

	h.CurrentPrice = 111 // past 5x
	if f := e.ProfitFraction(h); f != 0.5 {
		t.Errorf("fraction past second tier = %v, want 0.5", f)
	}

	h.EntryATR = 0
	if f := e.ProfitFraction(h); f != 0 {
		t.Errorf("fraction without entry ATR = %v, want 0", f)
	}
}

func TestPromoteToFullExit(t *testing.T) {
	e := testEngine()

	small := &models.Holding{Shares: 1, CurrentPrice: 60}
	if !e.PromoteToFullExit(small, 0.5) {
		t.Error("remainder below min trade value should promote to full exit")
	}

	large := &models.Holding{Shares: 100, CurrentPrice: 60}
	if e.PromoteToFullExit(large, 0.25) {
		t.Error("large remainder should not promote")
	}
}

func TestGuards(t *testing.T) {
	e := testEngine()
	now := time.Now()

	if e.OnCooldown(time.Time{}, now) {
		t.Error("zero last-trade time must not be on cooldown")
	}
	if !e.OnCooldown(now.Add(-time.Hour), now) {
		t.Error("trade one hour ago is within the 2h cooldown")
	}
	if e.OnCooldown(now.Add(-3*time.Hour), now) {
		t.Error("trade three hours ago is past the 2h cooldown")
	}

	h := &models.Holding{BarsHeld: 2}
	if e.PastMinHold(h) {
		t.Error("2 bars held is below the 3-bar minimum")
	}
	h.BarsHeld = 3
	if !e.PastMinHold(h) {
		t.Error("3 bars held meets the minimum")
	}

	dust := &models.Holding{Shares: 0.1, CurrentPrice: 100}
	if !e.IsDust(dust) {
		t.Error("10 dollar holding is dust below the 25 minimum")
	}
}
