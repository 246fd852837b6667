package backtest

import (
	"math"
	"sort"
)

// quantile calcula el cuantil q (0..1) por interpolación lineal entre los dos
// valores más cercanos, la misma definición que usan las tablas de percentiles
// persistidas. Los NaN (celdas sin observación) se descartan antes de ordenar.
// Devuelve NaN si no queda ningún valor.
func quantile(values []float64, q float64) float64 {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return math.NaN()
	}
	if len(clean) == 1 {
		return clean[0]
	}

	sort.Float64s(clean)

	pos := q * float64(len(clean)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return clean[lo]
	}
	frac := pos - float64(lo)
	return clean[lo]*(1-frac) + clean[hi]*frac
}
