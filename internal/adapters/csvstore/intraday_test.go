package csvstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhkim0428/stockbot/internal/domain"
)

func writeIntradayCSV(t *testing.T, path string, rows ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	content := strings.Join(IntradayHeader, ",") + "\n" + strings.Join(rows, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIntradayStore_ExactLookup(t *testing.T) {
	base := t.TempDir()
	date := time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)
	writeIntradayCSV(t, filepath.Join(base, "20250804", "005930.csv"),
		"09:01:00,005930,70000,70100,1.2,1500,85.5,700,800,1000,2000,0.5",
		"09:02:00,005930,70000,70200,1.2,2500,86.0,1100,1400,1000,2000,0.5",
	)

	store, err := NewIntradayStore(base, 8)
	require.NoError(t, err)

	series, err := store.Load(context.Background(), "005930", date)
	require.NoError(t, err)
	require.Len(t, series.Ticks, 2)

	first := series.Ticks[0]
	assert.Equal(t, "005930", first.Symbol)
	assert.Equal(t, 9*60+1, first.Minute())
	assert.Equal(t, 70_100.0, first.Price)
	assert.Equal(t, 1500.0, first.CumVolume)
	assert.Equal(t, 85.5, first.CumStrength)
	assert.Equal(t, 1.2, first.PrevDayChange)
}

func TestIntradayStore_PrefixFallback(t *testing.T) {
	base := t.TempDir()
	date := time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)
	// El colector nombra con sufijo de fecha; gana el primero lexicográfico.
	writeIntradayCSV(t, filepath.Join(base, "20250804", "005930_20250804.csv"),
		"09:01:00,005930,70000,70100,1.2,1500,85.5,700,800,1000,2000,0.5",
	)

	store, err := NewIntradayStore(base, 8)
	require.NoError(t, err)

	series, err := store.Load(context.Background(), "005930", date)
	require.NoError(t, err)
	assert.Len(t, series.Ticks, 1)
}

func TestIntradayStore_MissingFileIsErrNoData(t *testing.T) {
	store, err := NewIntradayStore(t.TempDir(), 8)
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "005930", time.Now())
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestIntradayStore_EmptyCellsParseAsZero(t *testing.T) {
	base := t.TempDir()
	date := time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)
	writeIntradayCSV(t, filepath.Join(base, "20250804", "005930.csv"),
		"09:01:00,005930,70000,70100,,1500,,700,800,,,",
	)

	store, err := NewIntradayStore(base, 8)
	require.NoError(t, err)

	series, err := store.Load(context.Background(), "005930", date)
	require.NoError(t, err)
	require.Len(t, series.Ticks, 1)
	assert.Zero(t, series.Ticks[0].PrevDayChange)
	assert.Zero(t, series.Ticks[0].CumStrength)
	assert.Zero(t, series.Ticks[0].RemainingRatio)
}

func TestIntradayStore_CachesLoadedSeries(t *testing.T) {
	base := t.TempDir()
	date := time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(base, "20250804", "005930.csv")
	writeIntradayCSV(t, path,
		"09:01:00,005930,70000,70100,1.2,1500,85.5,700,800,1000,2000,0.5",
	)

	store, err := NewIntradayStore(base, 8)
	require.NoError(t, err)

	first, err := store.Load(context.Background(), "005930", date)
	require.NoError(t, err)

	// Borrado el fichero, la relectura debe servirse de la cache.
	require.NoError(t, os.Remove(path))
	second, err := store.Load(context.Background(), "005930", date)
	require.NoError(t, err)
	assert.Same(t, first, second)
}
