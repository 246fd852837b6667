package csvstore

// intraday.go — carga de series intradía desde CSV con cache LRU.
//
// Lookup en dos niveles, detrás de un único accessor:
//   1. exacto:  <dir>/<YYYYMMDD>/<código>.csv
//   2. prefijo: <dir>/<YYYYMMDD>/<código>_*.csv (el colector añade la fecha
//      al nombre; se toma el primero en orden lexicográfico)
// La cache está acotada (evicción LRU) porque la fase de venta relee la
// misma serie que cargó la fase de compra: la corrección no depende de los
// hits, solo el tiempo de corrida.

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dhkim0428/stockbot/internal/domain"
)

// IntradayHeader es la cabecera canónica de los ficheros de series intradía.
var IntradayHeader = []string{
	"time", "code", "open", "price", "prev_day_change",
	"cum_volume", "cum_strength", "cum_sell_volume", "cum_buy_volume",
	"total_ask_remaining", "total_bid_remaining", "remaining_ratio",
}

// IntradayStore implementa ports.SeriesSource sobre un directorio de CSVs
// organizados por fecha.
type IntradayStore struct {
	baseDir string
	cache   *lru.Cache[string, *domain.IntradaySeries]
}

// NewIntradayStore crea el store con una cache LRU de la capacidad dada.
func NewIntradayStore(baseDir string, cacheSize int) (*IntradayStore, error) {
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, err := lru.New[string, *domain.IntradaySeries](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("csvstore.NewIntradayStore: %w", err)
	}
	return &IntradayStore{baseDir: baseDir, cache: cache}, nil
}

// Load devuelve la serie del (símbolo, fecha), cacheada por (símbolo, directorio).
// Sin fichero para el símbolo en esa fecha devuelve domain.ErrNoData.
func (s *IntradayStore) Load(_ context.Context, symbol string, date time.Time) (*domain.IntradaySeries, error) {
	dir := filepath.Join(s.baseDir, date.Format("20060102"))
	key := symbol + "|" + dir

	if series, ok := s.cache.Get(key); ok {
		return series, nil
	}

	path, err := resolveFile(dir, symbol)
	if err != nil {
		return nil, err
	}

	series, err := parseIntradayFile(path, symbol)
	if err != nil {
		return nil, err
	}

	s.cache.Add(key, series)
	return series, nil
}

// resolveFile aplica el lookup en dos niveles: exacto, luego prefijo.
func resolveFile(dir, symbol string) (string, error) {
	exact := filepath.Join(dir, symbol+".csv")
	if _, err := os.Stat(exact); err == nil {
		return exact, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, symbol+"_*.csv"))
	if err != nil {
		return "", fmt.Errorf("csvstore.resolveFile: glob %s: %w", symbol, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("csvstore.resolveFile: %s in %s: %w", symbol, dir, domain.ErrNoData)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// parseIntradayFile parsea un CSV de serie intradía completo.
func parseIntradayFile(path, symbol string) (*domain.IntradaySeries, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("csvstore.parseIntradayFile: %s: %w", path, domain.ErrNoData)
		}
		return nil, fmt.Errorf("csvstore.parseIntradayFile: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(IntradayHeader)

	// La primera fila es la cabecera; no se valida campo a campo porque los
	// ficheros del colector siempre escriben el mismo orden.
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("csvstore.parseIntradayFile: read header %s: %w", path, err)
	}

	var ticks []domain.Tick
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvstore.parseIntradayFile: %s line %d: %w", path, line, err)
		}

		tick, err := parseTick(record)
		if err != nil {
			return nil, fmt.Errorf("csvstore.parseIntradayFile: %s line %d: %w", path, line, err)
		}
		ticks = append(ticks, tick)
	}

	return &domain.IntradaySeries{Symbol: symbol, Ticks: ticks}, nil
}

func parseTick(record []string) (domain.Tick, error) {
	when, err := time.Parse("15:04:05", record[0])
	if err != nil {
		return domain.Tick{}, fmt.Errorf("parse time %q: %w", record[0], err)
	}

	fields := make([]float64, len(record)-2)
	for i, raw := range record[2:] {
		if raw == "" {
			continue // celda vacía: el colector no tenía el dato en ese tick
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.Tick{}, fmt.Errorf("parse %s %q: %w", IntradayHeader[i+2], raw, err)
		}
		fields[i] = v
	}

	return domain.Tick{
		Time:              when,
		Symbol:            record[1],
		Open:              fields[0],
		Price:             fields[1],
		PrevDayChange:     fields[2],
		CumVolume:         fields[3],
		CumStrength:       fields[4],
		CumSellVolume:     fields[5],
		CumBuyVolume:      fields[6],
		TotalAskRemaining: fields[7],
		TotalBidRemaining: fields[8],
		RemainingRatio:    fields[9],
	}, nil
}
