package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhkim0428/stockbot/internal/domain"
)

type recordingNotifier struct {
	days    []domain.DayResult
	reports []domain.Report
}

func (n *recordingNotifier) NotifyDay(_ context.Context, day domain.DayResult) error {
	n.days = append(n.days, day)
	return nil
}

func (n *recordingNotifier) NotifyReport(_ context.Context, report domain.Report) error {
	n.reports = append(n.reports, report)
	return nil
}

// driverFixture monta un backtest de dos días de test con un único símbolo
// que dispara la señal todos los días.
func driverFixture(prices *fakePrices, symbols []string) (*Driver, *recordingNotifier) {
	d0, d1, d2 := day(2025, 8, 1), day(2025, 8, 4), day(2025, 8, 5)

	series := &fakeSeries{series: map[string]*domain.IntradaySeries{
		"005930": {Symbol: "005930", Ticks: []domain.Tick{
			tick(at(9, 1, 0), 10_000, 500, 80, 1.5),
		}},
	}}
	volumes := &fakeVolumes{
		days:    []time.Time{d0, d1, d2},
		volumes: map[string][]float64{"005930": {1000}},
	}

	criteria := NewCriteriaBuilder(
		&fakeGridSource{grid: flatGrid([]int{541}, []time.Time{d0, d1}, 40)},
		&fakeGridSource{grid: flatGrid([]int{541}, []time.Time{d0, d1}, 70)},
	)
	buyer := NewBuyer(series, volumes, 20, 1_000_000, signalFrom, signalTo)
	seller := NewSeller(prices, PolicyCloseOnly, 1.02, 0.99)

	notifier := &recordingNotifier{}
	driver := NewDriver(Config{
		TestStart:      d0,
		TestEnd:        d2,
		CriteriaStart:  d0,
		Workers:        2,
		InitialBalance: 10_000_000,
		Symbols:        symbols,
	}, criteria, buyer, seller, series, volumes, nil, notifier)

	return driver, notifier
}

func TestDriver_RunTwoDayLoop(t *testing.T) {
	prices := &fakePrices{closes: map[string]float64{"005930": 10_100}}
	driver, notifier := driverFixture(prices, []string{"005930"})

	report, err := driver.Run(context.Background())
	require.NoError(t, err)

	// El primer día de mercado solo cierra la ventana: se procesan 2 días.
	require.Len(t, report.Days, 2)
	assert.Equal(t, "close_only", report.Strategy)

	// Por día: compra 100 × 10000, venta 100 × 10100 sin comisión → +10000.
	assert.InDelta(t, 10_010_000.0, report.Days[0].Balance, 1e-6)
	assert.InDelta(t, 10_020_000.0, report.FinalBalance, 1e-6)
	assert.InDelta(t, 0.2, report.TotalReturn, 1e-9)
	assert.Equal(t, 2, report.TotalTrades)
	assert.Equal(t, 0.0, report.MaxDrawdown)

	for _, dayResult := range report.Days {
		assert.Equal(t, 1, dayResult.Candidates)
		assert.Zero(t, dayResult.Unsettled)
		assert.InDelta(t, 1.0, dayResult.Trades["005930"], 1e-9)
	}

	// El notifier recibe cada día y el reporte final.
	assert.Len(t, notifier.days, 2)
	require.Len(t, notifier.reports, 1)
	assert.InDelta(t, report.FinalBalance, notifier.reports[0].FinalBalance, 1e-6)
}

func TestDriver_DegenerateSymbolDoesNotHaltTheDay(t *testing.T) {
	prices := &fakePrices{closes: map[string]float64{"005930": 10_100}}
	// "000000" no tiene serie: se descarta en silencio cada día.
	driver, _ := driverFixture(prices, []string{"000000", "005930"})

	report, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalTrades)
	assert.InDelta(t, 10_020_000.0, report.FinalBalance, 1e-6)
}

func TestDriver_SettleFailureLeavesPositionUnsettled(t *testing.T) {
	prices := &fakePrices{err: errors.New("quote service down")}
	driver, _ := driverFixture(prices, []string{"005930"})

	report, err := driver.Run(context.Background())
	require.NoError(t, err)

	// La compra se debita pero la venta nunca acredita.
	assert.InDelta(t, 8_000_000.0, report.FinalBalance, 1e-6)
	assert.Zero(t, report.TotalTrades)
	for _, dayResult := range report.Days {
		assert.Equal(t, 1, dayResult.Unsettled)
		assert.Empty(t, dayResult.Trades)
	}
}

func TestDriver_NeedsAtLeastTwoTradingDays(t *testing.T) {
	prices := &fakePrices{closes: map[string]float64{"005930": 10_100}}
	driver, _ := driverFixture(prices, []string{"005930"})
	driver.cfg.TestEnd = driver.cfg.TestStart // deja un solo día en rango

	_, err := driver.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2 trading days")
}

func TestDriver_CancelledContextAbortsRun(t *testing.T) {
	prices := &fakePrices{closes: map[string]float64{"005930": 10_100}}
	driver, _ := driverFixture(prices, []string{"005930"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := driver.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
