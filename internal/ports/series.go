package ports

import (
	"context"
	"time"

	"github.com/dhkim0428/stockbot/internal/domain"
)

// SeriesSource carga la serie intradía persistida de un (símbolo, fecha).
type SeriesSource interface {
	// Load devuelve la serie ordenada por tiempo. Si no existe fichero para
	// el símbolo en esa fecha devuelve domain.ErrNoData.
	Load(ctx context.Context, symbol string, date time.Time) (*domain.IntradaySeries, error)
}

// PercentileSource carga una tabla cruda de percentiles (minuto × fecha).
// Hay dos por backtest: ratio de volumen y fuerza de contratación.
type PercentileSource interface {
	// Load parsea la tabla completa. Una cabecera de fecha malformada es un
	// error fatal: sin fechas válidas no se pueden construir criterios.
	Load(ctx context.Context) (*domain.PercentileGrid, error)
}

// DailyVolumeSource expone los volúmenes diarios históricos por símbolo y el
// calendario de días de mercado que indexa el backtest.
type DailyVolumeSource interface {
	// TradingDays devuelve los días de mercado dentro de [from, to], ordenados
	// y sin huecos de calendario bursátil.
	TradingDays(from, to time.Time) ([]time.Time, error)

	// TrailingVolumes devuelve hasta n volúmenes diarios del símbolo,
	// estrictamente anteriores a la fecha dada, en orden cronológico.
	// Si el símbolo no existe devuelve domain.ErrNoData.
	TrailingVolumes(symbol string, before time.Time, n int) ([]float64, error)
}
