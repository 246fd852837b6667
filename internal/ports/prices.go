package ports

import (
	"context"
	"time"
)

// ClosePriceProvider obtiene precios de cierre del colaborador externo de
// mercado. Un fallo aquí deja la posición sin liquidar (se loguea, no se
// reintenta automáticamente).
type ClosePriceProvider interface {
	// GetClosePrice devuelve el precio de cierre del símbolo en la fecha dada.
	GetClosePrice(ctx context.Context, symbol string, date time.Time) (float64, error)
}

// QuoteProvider expone las cotizaciones en vivo que consume el colector.
// El backtest no lo usa: lee las series ya persistidas.
type QuoteProvider interface {
	// GetDailyTrades devuelve la foto actual del símbolo: variación % respecto
	// al día anterior, volumen acumulado, último precio y fuerza de contratación.
	GetDailyTrades(ctx context.Context, symbol string) (prevDayRate, cumVolume, price, strength float64, err error)

	// GetHogaRemainingInfo devuelve el remanente total de venta y de compra
	// del libro de órdenes y la variación estimada de apertura.
	GetHogaRemainingInfo(ctx context.Context, symbol string) (totalAsk, totalBid, estimatedChange float64, err error)

	// GetRateComparedPrevDay devuelve solo la variación % respecto al cierre
	// del día anterior.
	GetRateComparedPrevDay(ctx context.Context, symbol string) (float64, error)
}
