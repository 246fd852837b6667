package backtest

// Fakes compartidos por los tests del paquete.

import (
	"context"
	"fmt"
	"time"

	"github.com/dhkim0428/stockbot/internal/domain"
)

// at construye una hora del día (la fecha no importa dentro de una serie).
func at(hour, minute, second int) time.Time {
	return time.Date(0, time.January, 1, hour, minute, second, 0, time.UTC)
}

// tick construye un tick mínimo para los tests de señal y venta.
func tick(when time.Time, price, cumVolume, cumStrength, prevChange float64) domain.Tick {
	return domain.Tick{
		Time:          when,
		Price:         price,
		CumVolume:     cumVolume,
		CumStrength:   cumStrength,
		PrevDayChange: prevChange,
	}
}

type fakeSeries struct {
	series map[string]*domain.IntradaySeries // código → serie (misma para todas las fechas)
}

func (f *fakeSeries) Load(_ context.Context, symbol string, _ time.Time) (*domain.IntradaySeries, error) {
	s, ok := f.series[symbol]
	if !ok {
		return nil, fmt.Errorf("fake: %s: %w", symbol, domain.ErrNoData)
	}
	return s, nil
}

type fakeVolumes struct {
	days    []time.Time
	volumes map[string][]float64
}

func (f *fakeVolumes) TradingDays(from, to time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, d := range f.days {
		if !d.Before(from) && !d.After(to) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeVolumes) TrailingVolumes(symbol string, _ time.Time, _ int) ([]float64, error) {
	v, ok := f.volumes[symbol]
	if !ok {
		return nil, fmt.Errorf("fake: %s: %w", symbol, domain.ErrNoData)
	}
	return v, nil
}

type fakePrices struct {
	closes map[string]float64 // código → precio de cierre
	err    error
}

func (f *fakePrices) GetClosePrice(_ context.Context, symbol string, _ time.Time) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	price, ok := f.closes[symbol]
	if !ok {
		return 0, fmt.Errorf("fake: no close for %s", symbol)
	}
	return price, nil
}

type fakeGridSource struct {
	grid *domain.PercentileGrid
}

func (f *fakeGridSource) Load(_ context.Context) (*domain.PercentileGrid, error) {
	return f.grid, nil
}

// flatGrid construye una tabla cruda con el mismo valor en todas las celdas.
func flatGrid(minutes []int, dates []time.Time, value float64) *domain.PercentileGrid {
	grid := &domain.PercentileGrid{Minutes: minutes, Dates: dates}
	for range minutes {
		row := make([]float64, len(dates))
		for i := range row {
			row[i] = value
		}
		grid.Values = append(grid.Values, row)
	}
	return grid
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
