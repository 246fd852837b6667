package domain

import "time"

// DayResult es el resultado de un día simulado.
type DayResult struct {
	Date       time.Time
	Trades     map[string]float64 // código → retorno realizado %
	Balance    float64            // balance al cierre del día
	Candidates int                // señales de compra aceptadas
	Unsettled  int                // posiciones sin liquidar por fallo de lookup
}

// Report es el resumen final del backtest.
type Report struct {
	Strategy       string
	Days           []DayResult
	InitialBalance float64
	FinalBalance   float64
	TotalReturn    float64 // %
	MaxDrawdown    float64 // % (negativo o cero)
	SharpeRatio    float64 // anualizado
	TotalTrades    int
}

// AvgTradesPerDay devuelve la media de operaciones por día simulado.
func (r Report) AvgTradesPerDay() float64 {
	if len(r.Days) == 0 {
		return 0
	}
	return float64(r.TotalTrades) / float64(len(r.Days))
}
