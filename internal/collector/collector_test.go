package collector

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhkim0428/stockbot/internal/adapters/csvstore"
)

type fakeQuotes struct {
	prevDayRate float64
	cumVolume   float64
	price       float64
	strength    float64
	totalAsk    float64
	totalBid    float64
}

func (f *fakeQuotes) GetDailyTrades(context.Context, string) (float64, float64, float64, float64, error) {
	return f.prevDayRate, f.cumVolume, f.price, f.strength, nil
}

func (f *fakeQuotes) GetHogaRemainingInfo(context.Context, string) (float64, float64, float64, error) {
	return f.totalAsk, f.totalBid, 0, nil
}

func (f *fakeQuotes) GetRateComparedPrevDay(context.Context, string) (float64, error) {
	return f.prevDayRate, nil
}

func TestSplitBySide(t *testing.T) {
	// fuerza 100: mitad compra, mitad venta.
	buy, sell := splitBySide(100, 1000)
	assert.Equal(t, 500.0, buy)
	assert.Equal(t, 500.0, sell)

	// fuerza 150: 150v/(100+150) = 600 compra.
	buy, sell = splitBySide(150, 1000)
	assert.Equal(t, 600.0, buy)
	assert.Equal(t, 400.0, sell)

	buy, sell = splitBySide(0, 1000)
	assert.Zero(t, buy)
	assert.Zero(t, sell)

	buy, sell = splitBySide(120, 0)
	assert.Zero(t, buy)
	assert.Zero(t, sell)
}

func TestSnapshot_VolumeSinceFirstObservation(t *testing.T) {
	quotes := &fakeQuotes{cumVolume: 10_000, price: 70_100, strength: 120, totalAsk: 500, totalBid: 1000}
	c := New(quotes, []string{"005930"}, t.TempDir())

	// La primera observación fija la base: el volumen de sesión arranca en 0.
	record, err := c.snapshot(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, "0", record[7]) // cum_sell_volume
	assert.Equal(t, "0", record[8]) // cum_buy_volume

	quotes.cumVolume = 11_000
	record, err = c.snapshot(context.Background(), "005930")
	require.NoError(t, err)
	// 1000 desde la base, fuerza 120 → compra 545, venta 455.
	assert.Equal(t, "455", record[7])
	assert.Equal(t, "545", record[8])
	assert.Equal(t, "200", record[11]) // remaining_ratio = bid/ask × 100
}

func TestRun_FlushWritesBacktestCompatibleCSV(t *testing.T) {
	quotes := &fakeQuotes{prevDayRate: 1.2, cumVolume: 10_000, price: 70_100, strength: 120, totalAsk: 500, totalBid: 1000}
	outDir := t.TempDir()
	c := New(quotes, []string{"005930"}, outDir)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	require.NoError(t, c.Run(ctx, time.Now().Add(time.Hour)))

	today := time.Now().Format("20060102")
	path := filepath.Join(outDir, today, "005930_"+today+".csv")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(records), 2)
	assert.Equal(t, csvstore.IntradayHeader, records[0])

	first := records[1]
	assert.Equal(t, "005930", first[1])
	assert.Equal(t, "70100", first[3])
	assert.Equal(t, "1.2", first[4])
}
