package backtest

// seller.go — máquina de estados de salida de una posición.
//
// Las tres políticas consumen los ticks estrictamente posteriores a la hora
// de entrada más el precio de cierre del día (del colaborador externo):
//   - intraday_target_stoploss: primer toque de take-profit o stop-loss en
//     orden temporal; si ninguno dispara, liquida al cierre.
//   - close_with_stoploss: liquida al cierre, pero cualquier rotura intradía
//     del stop corta el escaneo y liquida al precio de stop; el stop actúa
//     además como suelo sobre el retorno derivado del cierre.
//   - close_only: liquida siempre al cierre.

import (
	"context"
	"fmt"
	"time"

	"github.com/dhkim0428/stockbot/internal/domain"
	"github.com/dhkim0428/stockbot/internal/ports"
)

// Policy es la política de venta configurada.
type Policy int

const (
	PolicyIntradayTargetStop Policy = iota + 1
	PolicyCloseWithStop
	PolicyCloseOnly
)

// ParsePolicy convierte el nombre de configuración en una Policy.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "intraday_target_stoploss":
		return PolicyIntradayTargetStop, nil
	case "close_with_stoploss":
		return PolicyCloseWithStop, nil
	case "close_only":
		return PolicyCloseOnly, nil
	default:
		return 0, fmt.Errorf("backtest.ParsePolicy: unknown policy %q", name)
	}
}

// String devuelve el nombre de configuración de la política.
func (p Policy) String() string {
	switch p {
	case PolicyIntradayTargetStop:
		return "intraday_target_stoploss"
	case PolicyCloseWithStop:
		return "close_with_stoploss"
	case PolicyCloseOnly:
		return "close_only"
	default:
		return "unknown"
	}
}

// Seller decide el precio de salida y el retorno realizado de cada posición.
type Seller struct {
	prices     ports.ClosePriceProvider
	policy     Policy
	targetRate float64 // multiplicador de take-profit (1.02 = +2%)
	stopRate   float64 // multiplicador de stop-loss (0.99 = -1%)
}

// NewSeller crea el vendedor con la política y los umbrales configurados.
func NewSeller(prices ports.ClosePriceProvider, policy Policy, targetRate, stopRate float64) *Seller {
	return &Seller{prices: prices, policy: policy, targetRate: targetRate, stopRate: stopRate}
}

// Settle decide la salida de la posición con los ticks posteriores a la
// entrada. Si el lookup del precio de cierre falla, devuelve el error sin
// liquidar: el driver deja la posición sin liquidar y lo loguea.
func (s *Seller) Settle(ctx context.Context, cand domain.Candidate, series *domain.IntradaySeries, date time.Time) (domain.Settlement, error) {
	closePrice, err := s.prices.GetClosePrice(ctx, cand.Symbol, date)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("backtest.Seller: close price %s: %w", cand.Symbol, err)
	}

	afterEntry := series.After(cand.SignalTime)

	switch s.policy {
	case PolicyIntradayTargetStop:
		return s.settleIntraday(cand, afterEntry, closePrice), nil
	case PolicyCloseWithStop:
		return s.settleCloseWithStop(cand, afterEntry, closePrice), nil
	default:
		return s.settleClose(cand, closePrice), nil
	}
}

// settleIntraday busca el primer toque de target o stop en orden temporal;
// sin toque antes de agotar los datos, liquida al cierre.
func (s *Seller) settleIntraday(cand domain.Candidate, ticks []domain.Tick, closePrice float64) domain.Settlement {
	targetPrice := cand.EntryPrice * s.targetRate
	stopPrice := cand.EntryPrice * s.stopRate

	for _, tick := range ticks {
		if tick.Price >= targetPrice {
			return domain.Settlement{ExitPrice: targetPrice, ProfitRate: (s.targetRate - 1) * 100}
		}
		if tick.Price <= stopPrice {
			return domain.Settlement{ExitPrice: stopPrice, ProfitRate: (s.stopRate - 1) * 100}
		}
	}
	return s.settleClose(cand, closePrice)
}

// settleCloseWithStop liquida al cierre salvo rotura intradía del stop, que
// tiene precedencia y corta el escaneo en la primera rotura. El stop es un
// suelo incluso en la liquidación por cierre: un retorno de cierre por debajo
// se fija exactamente en el stop y se liquida al precio de stop.
func (s *Seller) settleCloseWithStop(cand domain.Candidate, ticks []domain.Tick, closePrice float64) domain.Settlement {
	stopPrice := cand.EntryPrice * s.stopRate
	stopReturn := (s.stopRate - 1) * 100

	for _, tick := range ticks {
		if tick.Price <= stopPrice {
			return domain.Settlement{ExitPrice: stopPrice, ProfitRate: stopReturn}
		}
	}

	settlement := s.settleClose(cand, closePrice)
	if settlement.ProfitRate < stopReturn {
		return domain.Settlement{ExitPrice: stopPrice, ProfitRate: stopReturn}
	}
	return settlement
}

// settleClose liquida al precio de cierre.
func (s *Seller) settleClose(cand domain.Candidate, closePrice float64) domain.Settlement {
	return domain.Settlement{
		ExitPrice:  closePrice,
		ProfitRate: (closePrice - cand.EntryPrice) / cand.EntryPrice * 100,
	}
}
