package csvstore

// dailyvolume.go — volúmenes diarios históricos por símbolo.
//
// Formato: primera columna "date" (YYYY-MM-DD), una columna por código.
// Las filas son días de mercado; por eso la misma tabla sirve de calendario
// bursátil para indexar el loop del backtest.

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/dhkim0428/stockbot/internal/domain"
)

// DailyVolumeFile implementa ports.DailyVolumeSource sobre un CSV cargado
// entero en memoria (unas decenas de KB por año y universo).
type DailyVolumeFile struct {
	dates   []time.Time          // orden ascendente
	volumes map[string][]float64 // código → volumen por fila de dates
}

// OpenDailyVolumeFile carga y ordena la tabla completa.
func OpenDailyVolumeFile(path string) (*DailyVolumeFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvstore.OpenDailyVolumeFile: open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csvstore.OpenDailyVolumeFile: %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("csvstore.OpenDailyVolumeFile: %s: empty table", path)
	}

	header := records[0]
	rows := records[1:]

	type row struct {
		date   time.Time
		values []string
	}
	parsed := make([]row, 0, len(rows))
	for i, record := range rows {
		date, err := time.Parse("2006-01-02", record[0])
		if err != nil {
			return nil, fmt.Errorf("csvstore.OpenDailyVolumeFile: %s line %d: %w", path, i+2, err)
		}
		parsed = append(parsed, row{date: date, values: record[1:]})
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].date.Before(parsed[j].date) })

	file := &DailyVolumeFile{volumes: make(map[string][]float64, len(header)-1)}
	for _, r := range parsed {
		file.dates = append(file.dates, r.date)
	}
	for col, symbol := range header[1:] {
		series := make([]float64, len(parsed))
		for i, r := range parsed {
			if r.values[col] == "" {
				// Sin dato ese día (suspensión, nueva cotización): la celda
				// queda fuera de cualquier media, no cuenta como volumen cero.
				series[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(r.values[col], 64)
			if err != nil {
				return nil, fmt.Errorf("csvstore.OpenDailyVolumeFile: %s symbol %s: %w", path, symbol, err)
			}
			series[i] = v
		}
		file.volumes[symbol] = series
	}

	return file, nil
}

// TradingDays devuelve los días de mercado dentro de [from, to].
func (d *DailyVolumeFile) TradingDays(from, to time.Time) ([]time.Time, error) {
	var days []time.Time
	for _, date := range d.dates {
		if !date.Before(from) && !date.After(to) {
			days = append(days, date)
		}
	}
	return days, nil
}

// TrailingVolumes devuelve hasta n volúmenes del símbolo estrictamente
// anteriores a la fecha dada, en orden cronológico. Los días sin dato dentro
// de la ventana se omiten: un símbolo suspendido o de reciente cotización no
// arrastra ceros que deflactarían su media.
func (d *DailyVolumeFile) TrailingVolumes(symbol string, before time.Time, n int) ([]float64, error) {
	series, ok := d.volumes[symbol]
	if !ok {
		return nil, fmt.Errorf("csvstore.TrailingVolumes: %s: %w", symbol, domain.ErrNoData)
	}

	end := sort.Search(len(d.dates), func(i int) bool {
		return !d.dates[i].Before(before)
	})

	start := end - n
	if start < 0 {
		start = 0
	}

	out := make([]float64, 0, end-start)
	for _, v := range series[start:end] {
		if math.IsNaN(v) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
