package csvstore

// percentile.go — tablas crudas de percentiles (minuto × fecha histórica).
//
// Formato: la primera columna es el minuto del día ("HH:MM:SS" o "HH:MM");
// cada columna restante es una fecha histórica con cabecera <nombre>_YYYYMMDD
// (p. ej. vr_20250804). Las celdas vacías son NaN: minutos sin observación
// en esa fecha.

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dhkim0428/stockbot/internal/domain"
)

// PercentileFile implementa ports.PercentileSource sobre un CSV.
type PercentileFile struct {
	path string
}

// NewPercentileFile crea la fuente sobre la ruta dada.
func NewPercentileFile(path string) *PercentileFile {
	return &PercentileFile{path: path}
}

// Load parsea la tabla completa. Una cabecera de fecha malformada es fatal:
// sin fechas parseables la construcción de criterios no puede continuar.
func (p *PercentileFile) Load(_ context.Context) (*domain.PercentileGrid, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("csvstore.PercentileFile: open %s: %w", p.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("csvstore.PercentileFile: read header %s: %w", p.path, err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("csvstore.PercentileFile: %s: header needs a time column and at least one date column", p.path)
	}

	dates, err := parseDateHeaders(header[1:])
	if err != nil {
		return nil, fmt.Errorf("csvstore.PercentileFile: %s: %w", p.path, err)
	}

	grid := &domain.PercentileGrid{Dates: dates}
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvstore.PercentileFile: %s line %d: %w", p.path, line, err)
		}

		minute, err := domain.ParseMinuteOfDay(record[0])
		if err != nil {
			return nil, fmt.Errorf("csvstore.PercentileFile: %s line %d: %w", p.path, line, err)
		}

		values := make([]float64, len(dates))
		for i, raw := range record[1:] {
			if raw == "" {
				values[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("csvstore.PercentileFile: %s line %d col %s: %w", p.path, line, header[i+1], err)
			}
			values[i] = v
		}

		grid.Minutes = append(grid.Minutes, minute)
		grid.Values = append(grid.Values, values)
	}

	return grid, nil
}

// parseDateHeaders extrae la fecha de cada cabecera <nombre>_YYYYMMDD.
func parseDateHeaders(headers []string) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(headers))
	for _, h := range headers {
		idx := strings.LastIndex(h, "_")
		if idx < 0 {
			return nil, fmt.Errorf("date column %q: missing _YYYYMMDD suffix", h)
		}
		date, err := time.Parse("20060102", h[idx+1:])
		if err != nil {
			return nil, fmt.Errorf("date column %q: %w", h, err)
		}
		dates = append(dates, date)
	}
	return dates, nil
}
