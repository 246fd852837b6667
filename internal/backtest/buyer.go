package backtest

// buyer.go — evaluación de la señal de compra por símbolo y día.
//
// La condición de entrada es de dos niveles: el umbral de ratio de volumen es
// local al minuto (q3 histórico de ese minuto), el de fuerza es la barra de
// toda la sesión (percentil 75 de los q3 de la tabla). Gana la primera fila
// en orden temporal que cumpla ambas junto con variación previa positiva.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dhkim0428/stockbot/internal/domain"
	"github.com/dhkim0428/stockbot/internal/ports"
)

// Buyer evalúa la señal de compra de un símbolo en un día de test.
// Es puro respecto a sus entradas (más la cache compartida de ficheros):
// seguro de invocar concurrentemente desde el pool de la fase de compra.
type Buyer struct {
	series     ports.SeriesSource
	volumes    ports.DailyVolumeSource
	windowDays int
	notional   float64
	windowFrom int // primer minuto de la ventana de señal, inclusive
	windowTo   int // último minuto de la ventana de señal, inclusive
}

// NewBuyer crea un evaluador con la ventana de señal en minutos del día.
func NewBuyer(series ports.SeriesSource, volumes ports.DailyVolumeSource, windowDays int, notional float64, windowFrom, windowTo int) *Buyer {
	return &Buyer{
		series:     series,
		volumes:    volumes,
		windowDays: windowDays,
		notional:   notional,
		windowFrom: windowFrom,
		windowTo:   windowTo,
	}
}

// Evaluate decide si el símbolo dispara una señal de compra en la fecha dada.
// Devuelve (candidato, true, nil) ante señal; (_, false, nil) si no hay datos,
// la entrada es degenerada o simplemente no se cumple la condición; y un error
// solo ante fallos inesperados (que el driver contiene y loguea por símbolo).
func (b *Buyer) Evaluate(ctx context.Context, symbol string, date time.Time, criteria *domain.CriteriaTable) (domain.Candidate, bool, error) {
	series, err := b.series.Load(ctx, symbol, date)
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			return domain.Candidate{}, false, nil
		}
		return domain.Candidate{}, false, fmt.Errorf("backtest.Buyer: load series %s: %w", symbol, err)
	}

	trailing, err := b.volumes.TrailingVolumes(symbol, date, b.windowDays)
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			return domain.Candidate{}, false, nil
		}
		return domain.Candidate{}, false, fmt.Errorf("backtest.Buyer: trailing volumes %s: %w", symbol, err)
	}

	meanVolume := mean(trailing)
	if meanVolume == 0 {
		// Denominador degenerado: sin media de volumen no hay ratio que evaluar.
		return domain.Candidate{}, false, nil
	}

	for _, tick := range series.ResampleMinutes() {
		minute := tick.Minute()
		if minute < b.windowFrom || minute > b.windowTo {
			continue
		}
		row, ok := criteria.Row(minute)
		if !ok {
			// Inner join: minutos sin criterio histórico se descartan.
			continue
		}
		if tick.Price <= 0 {
			// Tick corrupto: se ignora solo esa fila, el resto del día sigue
			// siendo evaluable.
			continue
		}

		volumeRatio := tick.CumVolume / meanVolume * 100
		if volumeRatio >= row.Q3VolumeRatio &&
			tick.CumStrength >= criteria.StrengthBar &&
			tick.PrevDayChange > 0 {
			return domain.Candidate{
				Symbol:        symbol,
				SignalTime:    tick.Time,
				EntryPrice:    tick.Price,
				PrevDayChange: tick.PrevDayChange,
				Quantity:      domain.QuantityFor(b.notional, tick.Price),
			}, true, nil
		}
	}

	return domain.Candidate{}, false, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
