package backtest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhkim0428/stockbot/internal/domain"
)

func sellCandidate() domain.Candidate {
	return domain.Candidate{
		Symbol:     "005930",
		SignalTime: at(9, 5, 0),
		EntryPrice: 10_000,
		Quantity:   100,
	}
}

func sellSeries(ticks ...domain.Tick) *domain.IntradaySeries {
	return &domain.IntradaySeries{Symbol: "005930", Ticks: ticks}
}

func TestSeller_IntradayTargetBeforeStop(t *testing.T) {
	// El target (10200) se toca antes que el stop (9900): gana el target.
	series := sellSeries(
		tick(at(9, 10, 0), 10_050, 0, 0, 0),
		tick(at(9, 20, 0), 10_200, 0, 0, 0),
		tick(at(9, 30, 0), 9_800, 0, 0, 0),
	)
	prices := &fakePrices{closes: map[string]float64{"005930": 9_950}}

	seller := NewSeller(prices, PolicyIntradayTargetStop, 1.02, 0.99)
	settlement, err := seller.Settle(context.Background(), sellCandidate(), series, day(2025, 8, 4))
	require.NoError(t, err)

	assert.InDelta(t, 10_200.0, settlement.ExitPrice, 1e-9)
	assert.InDelta(t, 2.0, settlement.ProfitRate, 1e-9)
}

func TestSeller_IntradayStopBeforeTarget(t *testing.T) {
	series := sellSeries(
		tick(at(9, 10, 0), 9_880, 0, 0, 0),
		tick(at(9, 20, 0), 10_300, 0, 0, 0),
	)
	prices := &fakePrices{closes: map[string]float64{"005930": 10_300}}

	seller := NewSeller(prices, PolicyIntradayTargetStop, 1.02, 0.99)
	settlement, err := seller.Settle(context.Background(), sellCandidate(), series, day(2025, 8, 4))
	require.NoError(t, err)

	assert.InDelta(t, 9_900.0, settlement.ExitPrice, 1e-9)
	assert.InDelta(t, -1.0, settlement.ProfitRate, 1e-9)
}

func TestSeller_IntradayFallsBackToClose(t *testing.T) {
	// Ningún umbral se toca: liquida al cierre.
	series := sellSeries(
		tick(at(9, 10, 0), 10_050, 0, 0, 0),
		tick(at(9, 20, 0), 9_990, 0, 0, 0),
	)
	prices := &fakePrices{closes: map[string]float64{"005930": 10_100}}

	seller := NewSeller(prices, PolicyIntradayTargetStop, 1.02, 0.99)
	settlement, err := seller.Settle(context.Background(), sellCandidate(), series, day(2025, 8, 4))
	require.NoError(t, err)

	assert.InDelta(t, 10_100.0, settlement.ExitPrice, 1e-9)
	assert.InDelta(t, 1.0, settlement.ProfitRate, 1e-9)
}

func TestSeller_IntradayIgnoresTicksBeforeEntry(t *testing.T) {
	// El toque de target es anterior a la señal: no cuenta.
	series := sellSeries(
		tick(at(9, 2, 0), 10_500, 0, 0, 0),
		tick(at(9, 10, 0), 10_050, 0, 0, 0),
	)
	prices := &fakePrices{closes: map[string]float64{"005930": 10_000}}

	seller := NewSeller(prices, PolicyIntradayTargetStop, 1.02, 0.99)
	settlement, err := seller.Settle(context.Background(), sellCandidate(), series, day(2025, 8, 4))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, settlement.ProfitRate, 1e-9)
}

func TestSeller_CloseWithStopClampsCloseReturn(t *testing.T) {
	// Sin rotura intradía pero el cierre (9850) rinde -1.5%, por debajo del
	// stop: el retorno se fija en -1.0% y se liquida al precio de stop.
	series := sellSeries(tick(at(9, 10, 0), 10_050, 0, 0, 0))
	prices := &fakePrices{closes: map[string]float64{"005930": 9_850}}

	seller := NewSeller(prices, PolicyCloseWithStop, 1.02, 0.99)
	settlement, err := seller.Settle(context.Background(), sellCandidate(), series, day(2025, 8, 4))
	require.NoError(t, err)

	assert.InDelta(t, 9_900.0, settlement.ExitPrice, 1e-9)
	assert.InDelta(t, -1.0, settlement.ProfitRate, 1e-9)
}

func TestSeller_CloseWithStopBreachShortCircuits(t *testing.T) {
	// La rotura intradía tiene precedencia aunque el cierre recupere.
	series := sellSeries(
		tick(at(9, 10, 0), 9_890, 0, 0, 0),
		tick(at(9, 20, 0), 10_400, 0, 0, 0),
	)
	prices := &fakePrices{closes: map[string]float64{"005930": 10_400}}

	seller := NewSeller(prices, PolicyCloseWithStop, 1.02, 0.99)
	settlement, err := seller.Settle(context.Background(), sellCandidate(), series, day(2025, 8, 4))
	require.NoError(t, err)

	assert.InDelta(t, 9_900.0, settlement.ExitPrice, 1e-9)
	assert.InDelta(t, -1.0, settlement.ProfitRate, 1e-9)
}

func TestSeller_CloseWithStopSettlesAtCloseAboveStop(t *testing.T) {
	series := sellSeries(tick(at(9, 10, 0), 10_050, 0, 0, 0))
	prices := &fakePrices{closes: map[string]float64{"005930": 10_150}}

	seller := NewSeller(prices, PolicyCloseWithStop, 1.02, 0.99)
	settlement, err := seller.Settle(context.Background(), sellCandidate(), series, day(2025, 8, 4))
	require.NoError(t, err)

	assert.InDelta(t, 10_150.0, settlement.ExitPrice, 1e-9)
	assert.InDelta(t, 1.5, settlement.ProfitRate, 1e-9)
}

func TestSeller_CloseOnlyIgnoresIntradayExtremes(t *testing.T) {
	series := sellSeries(
		tick(at(9, 10, 0), 12_000, 0, 0, 0),
		tick(at(9, 20, 0), 8_000, 0, 0, 0),
	)
	prices := &fakePrices{closes: map[string]float64{"005930": 10_100}}

	seller := NewSeller(prices, PolicyCloseOnly, 1.02, 0.99)
	settlement, err := seller.Settle(context.Background(), sellCandidate(), series, day(2025, 8, 4))
	require.NoError(t, err)

	assert.InDelta(t, 10_100.0, settlement.ExitPrice, 1e-9)
	assert.InDelta(t, 1.0, settlement.ProfitRate, 1e-9)
}

func TestSeller_ClosePriceLookupFailureIsAnError(t *testing.T) {
	lookupErr := errors.New("quote service down")
	prices := &fakePrices{err: lookupErr}

	seller := NewSeller(prices, PolicyCloseOnly, 1.02, 0.99)
	_, err := seller.Settle(context.Background(), sellCandidate(), sellSeries(), day(2025, 8, 4))
	require.Error(t, err)
	assert.ErrorIs(t, err, lookupErr)
}

func TestSettlement_ProceedsAppliesTransactionCost(t *testing.T) {
	settlement := domain.Settlement{ExitPrice: 10_200, ProfitRate: 2.0}
	// 100 × 10200 × (1 - 0.0018)
	assert.InDelta(t, 1_018_164.0, settlement.Proceeds(100, 0.0018), 1e-6)
}

func TestParsePolicy(t *testing.T) {
	for _, name := range []string{"intraday_target_stoploss", "close_with_stoploss", "close_only"} {
		policy, err := ParsePolicy(name)
		require.NoError(t, err)
		assert.Equal(t, name, policy.String())
	}

	_, err := ParsePolicy("hold_forever")
	assert.Error(t, err)
}
