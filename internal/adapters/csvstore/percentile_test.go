package csvstore

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePercentileCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "percentiles.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPercentileFile_Load(t *testing.T) {
	path := writePercentileCSV(t,
		"time,vr_20250801,vr_20250804\n"+
			"09:01:00,120.5,98.2\n"+
			"09:02:00,,87.0\n",
	)

	grid, err := NewPercentileFile(path).Load(context.Background())
	require.NoError(t, err)

	require.Equal(t, []time.Time{
		time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC),
	}, grid.Dates)
	require.Equal(t, []int{9*60 + 1, 9*60 + 2}, grid.Minutes)

	assert.Equal(t, 120.5, grid.Values[0][0])
	assert.Equal(t, 98.2, grid.Values[0][1])
	// Celda vacía: minuto sin observación ese día.
	assert.True(t, math.IsNaN(grid.Values[1][0]))
	assert.Equal(t, 87.0, grid.Values[1][1])
}

func TestPercentileFile_MalformedDateHeaderIsFatal(t *testing.T) {
	for _, header := range []string{"vr20250801", "vr_2025-08-01", "vr_notadate"} {
		path := writePercentileCSV(t, "time,"+header+"\n09:01:00,120.5\n")

		_, err := NewPercentileFile(path).Load(context.Background())
		require.Error(t, err, "header %q", header)
		assert.Contains(t, err.Error(), "date column")
	}
}

func TestPercentileFile_HeaderNeedsDateColumns(t *testing.T) {
	path := writePercentileCSV(t, "time\n")

	_, err := NewPercentileFile(path).Load(context.Background())
	assert.Error(t, err)
}

func TestPercentileFile_MissingFile(t *testing.T) {
	_, err := NewPercentileFile(filepath.Join(t.TempDir(), "nope.csv")).Load(context.Background())
	assert.Error(t, err)
}
