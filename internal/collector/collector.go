package collector

// collector.go — captura de snapshots intradía cada 30 segundos.
//
// Recorre el universo en chunks para repartir las llamadas al API dentro del
// ciclo, deriva los volúmenes acumulados de compra/venta a partir de la
// fuerza de contratación y encola las filas hacia una goroutine escritora.
// Al terminar (hora de fin o cancelación) vuelca un CSV por símbolo con el
// mismo formato que consume el backtest.

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dhkim0428/stockbot/internal/adapters/csvstore"
	"github.com/dhkim0428/stockbot/internal/ports"
)

const (
	cycleInterval = 30 * time.Second
	chunkSize     = 6
	chunkWait     = 1440 * time.Millisecond // 18 TR por 1.44s, medido en producción
)

// row es una observación pendiente de escribir.
type row struct {
	symbol string
	record []string
}

// Collector captura las series intradía de un universo de símbolos.
type Collector struct {
	quotes  ports.QuoteProvider
	symbols []string
	outDir  string

	firstVolume map[string]float64 // primer volumen acumulado observado
	collected   map[string][][]string
}

// New crea un colector que escribe bajo outDir/<YYYYMMDD>/.
func New(quotes ports.QuoteProvider, symbols []string, outDir string) *Collector {
	return &Collector{
		quotes:      quotes,
		symbols:     symbols,
		outDir:      outDir,
		firstVolume: make(map[string]float64),
		collected:   make(map[string][][]string),
	}
}

// Run captura snapshots hasta la hora de fin o la cancelación del contexto,
// y después vuelca los CSVs. Los fallos por símbolo se loguean y el ciclo
// continúa con el resto.
func (c *Collector) Run(ctx context.Context, endTime time.Time) error {
	slog.Info("collector starting",
		"symbols", len(c.symbols),
		"end_time", endTime.Format("15:04:05"),
		"out_dir", c.outDir,
	)

	rows := make(chan row, len(c.symbols)*2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range rows {
			c.collected[r.symbol] = append(c.collected[r.symbol], r.record)
		}
	}()

	ticker := time.NewTicker(cycleInterval)
	defer ticker.Stop()

	c.runCycle(ctx, rows)
	for {
		select {
		case <-ctx.Done():
			close(rows)
			<-done
			return c.flush()
		case now := <-ticker.C:
			if now.After(endTime) {
				close(rows)
				<-done
				return c.flush()
			}
			c.runCycle(ctx, rows)
		}
	}
}

// runCycle captura un snapshot de todos los símbolos, en chunks espaciados.
func (c *Collector) runCycle(ctx context.Context, rows chan<- row) {
	start := time.Now()
	for i := 0; i < len(c.symbols); i += chunkSize {
		chunkStart := time.Now()

		end := i + chunkSize
		if end > len(c.symbols) {
			end = len(c.symbols)
		}
		for _, symbol := range c.symbols[i:end] {
			if ctx.Err() != nil {
				return
			}
			record, err := c.snapshot(ctx, symbol)
			if err != nil {
				slog.Warn("snapshot failed", "symbol", symbol, "err", err)
				continue
			}
			rows <- row{symbol: symbol, record: record}
		}

		// Espaciar los chunks dentro del ciclo para no agotar el budget de TR.
		if elapsed := time.Since(chunkStart); elapsed < chunkWait {
			select {
			case <-time.After(chunkWait - elapsed):
			case <-ctx.Done():
				return
			}
		}
	}
	slog.Debug("cycle complete", "symbols", len(c.symbols), "duration", time.Since(start).Round(time.Millisecond))
}

// snapshot captura una observación de un símbolo y la formatea como fila CSV.
func (c *Collector) snapshot(ctx context.Context, symbol string) ([]string, error) {
	now := time.Now().Format("15:04:05")

	prevDayRate, cumVolume, price, strength, err := c.quotes.GetDailyTrades(ctx, symbol)
	if err != nil {
		return nil, err
	}
	totalAsk, totalBid, _, err := c.quotes.GetHogaRemainingInfo(ctx, symbol)
	if err != nil {
		return nil, err
	}

	first, seen := c.firstVolume[symbol]
	if !seen {
		c.firstVolume[symbol] = cumVolume
		first = cumVolume
	}
	buyVolume, sellVolume := splitBySide(strength, cumVolume-first)

	remainRatio := totalBid
	if totalAsk != 0 {
		remainRatio = round2(totalBid / totalAsk * 100)
	}

	return []string{
		now,
		symbol,
		num(price), // sin apertura separada en el snapshot regular
		num(price),
		num(prevDayRate),
		num(cumVolume),
		num(strength),
		num(sellVolume),
		num(buyVolume),
		num(totalAsk),
		num(totalBid),
		num(remainRatio),
	}, nil
}

// flush vuelca las filas acumuladas a un CSV por símbolo.
func (c *Collector) flush() error {
	dir := filepath.Join(c.outDir, time.Now().Format("20060102"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("collector.flush: mkdir %s: %w", dir, err)
	}

	today := time.Now().Format("20060102")
	for symbol, records := range c.collected {
		if len(records) == 0 {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", symbol, today))
		if err := writeCSV(path, records); err != nil {
			slog.Error("flush failed", "symbol", symbol, "err", err)
			continue
		}
		slog.Info("symbol flushed", "symbol", symbol, "rows", len(records), "path", path)
	}
	return nil
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvstore.IntradayHeader); err != nil {
		return err
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// splitBySide deriva los volúmenes de compra y venta a partir de la fuerza:
// fuerza = volumen de compra / volumen de venta × 100, acumulado.
func splitBySide(strength, volume float64) (buy, sell float64) {
	if strength <= 0 || volume <= 0 {
		return 0, 0
	}
	buy = math.Round(strength * volume / (100 + strength))
	return buy, volume - buy
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
