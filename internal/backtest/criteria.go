package backtest

// criteria.go — construcción walk-forward de la tabla de criterios.
//
// Para cada día de test se construyen dos tablas independientes (ratio de
// volumen y fuerza de contratación) restringidas a las fechas históricas
// dentro de [start, end], y se combinan con un inner join sobre el minuto
// del día. La ventana crece un día en cada paso y nunca incluye el día de
// test: la tabla de un día d solo contiene estadísticos de días < d.

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dhkim0428/stockbot/internal/domain"
	"github.com/dhkim0428/stockbot/internal/ports"
)

// minuteStats son los percentiles de un minuto sobre la sección cruzada de
// fechas en ventana.
type minuteStats struct {
	minute int
	median float64
	q3     float64
}

// CriteriaBuilder construye la tabla combinada de criterios de cada día.
// Las tablas crudas se cargan una sola vez y se reutilizan entre días.
type CriteriaBuilder struct {
	volumeSrc   ports.PercentileSource
	strengthSrc ports.PercentileSource

	volumeGrid   *domain.PercentileGrid
	strengthGrid *domain.PercentileGrid
}

// NewCriteriaBuilder crea un builder sobre las dos fuentes de percentiles.
func NewCriteriaBuilder(volume, strength ports.PercentileSource) *CriteriaBuilder {
	return &CriteriaBuilder{volumeSrc: volume, strengthSrc: strength}
}

// Build construye la tabla de criterios para la ventana [start, end].
// Si ninguna columna histórica cae en la ventana, la tabla resultante queda
// rellena a cero: la condición de entrada nunca se cumple pero el día ejecuta.
func (b *CriteriaBuilder) Build(ctx context.Context, start, end time.Time) (*domain.CriteriaTable, error) {
	if err := b.loadGrids(ctx); err != nil {
		return nil, err
	}

	volumeStats := summarizeGrid(b.volumeGrid, start, end)
	strengthStats := summarizeGrid(b.strengthGrid, start, end)

	// Inner join sobre el minuto del día: minutos ausentes en cualquiera de
	// las dos tablas se descartan.
	strengthByMinute := make(map[int]minuteStats, len(strengthStats))
	for _, s := range strengthStats {
		if _, dup := strengthByMinute[s.minute]; !dup {
			strengthByMinute[s.minute] = s
		}
	}

	rows := make([]domain.CriteriaRow, 0, len(volumeStats))
	q3Strengths := make([]float64, 0, len(volumeStats))
	for _, v := range volumeStats {
		s, ok := strengthByMinute[v.minute]
		if !ok {
			continue
		}
		rows = append(rows, domain.CriteriaRow{
			Minute:            v.minute,
			MedianVolumeRatio: v.median,
			Q3VolumeRatio:     v.q3,
			MedianStrength:    s.median,
			Q3Strength:        s.q3,
		})
		q3Strengths = append(q3Strengths, s.q3)
	}

	// Umbral de fuerza de toda la sesión: percentil 75 de la columna q3 de
	// la propia tabla (percentil de percentiles, deliberadamente).
	strengthBar := quantile(q3Strengths, 0.75)
	if math.IsNaN(strengthBar) {
		strengthBar = 0
	}

	table := domain.NewCriteriaTable(rows, strengthBar)
	slog.Debug("criteria built",
		"window_start", start.Format("2006-01-02"),
		"window_end", end.Format("2006-01-02"),
		"minutes", table.Len(),
		"strength_bar", strengthBar,
	)
	return table, nil
}

// loadGrids carga las tablas crudas la primera vez que se necesitan.
func (b *CriteriaBuilder) loadGrids(ctx context.Context) error {
	if b.volumeGrid == nil {
		grid, err := b.volumeSrc.Load(ctx)
		if err != nil {
			return fmt.Errorf("backtest.CriteriaBuilder: load volume grid: %w", err)
		}
		b.volumeGrid = grid
	}
	if b.strengthGrid == nil {
		grid, err := b.strengthSrc.Load(ctx)
		if err != nil {
			return fmt.Errorf("backtest.CriteriaBuilder: load strength grid: %w", err)
		}
		b.strengthGrid = grid
	}
	return nil
}

// summarizeGrid calcula mediana y q3 por minuto sobre las columnas de fecha
// dentro de [start, end]. Ante minutos duplicados gana la primera aparición.
// Sin columnas en rango devuelve todas las filas a cero.
func summarizeGrid(grid *domain.PercentileGrid, start, end time.Time) []minuteStats {
	var cols []int
	for i, date := range grid.Dates {
		if !date.Before(start) && !date.After(end) {
			cols = append(cols, i)
		}
	}

	stats := make([]minuteStats, 0, len(grid.Minutes))
	seen := make(map[int]bool, len(grid.Minutes))
	for row, minute := range grid.Minutes {
		if seen[minute] {
			continue
		}
		seen[minute] = true

		if len(cols) == 0 {
			stats = append(stats, minuteStats{minute: minute})
			continue
		}

		values := make([]float64, 0, len(cols))
		for _, col := range cols {
			values = append(values, grid.Values[row][col])
		}
		median := quantile(values, 0.5)
		q3 := quantile(values, 0.75)
		if math.IsNaN(median) {
			median = 0
		}
		if math.IsNaN(q3) {
			q3 = 0
		}
		stats = append(stats, minuteStats{minute: minute, median: median, q3: q3})
	}
	return stats
}
