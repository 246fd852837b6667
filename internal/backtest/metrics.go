package backtest

// metrics.go — métricas de performance sobre el histórico de balances.

import "math"

// tradingDaysPerYear anualiza el Sharpe sobre sesiones bursátiles.
const tradingDaysPerYear = 252

// MaxDrawdown devuelve la máxima caída pico-a-valle del histórico en
// porcentaje (negativo, o 0 si el balance nunca cae bajo un pico previo).
func MaxDrawdown(balances []float64) float64 {
	if len(balances) == 0 {
		return 0
	}

	runningMax := balances[0]
	worst := 0.0
	for _, balance := range balances {
		if balance > runningMax {
			runningMax = balance
		}
		if runningMax == 0 {
			continue
		}
		drawdown := (balance - runningMax) / runningMax
		if drawdown < worst {
			worst = drawdown
		}
	}
	return worst * 100
}

// DailyReturns devuelve los cambios porcentuales entre balances consecutivos
// del histórico (el equivalente a un pct_change sin el primer elemento).
func DailyReturns(balances []float64) []float64 {
	if len(balances) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(balances)-1)
	for i := 1; i < len(balances); i++ {
		prev := balances[i-1]
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (balances[i]-prev)/prev)
	}
	return returns
}

// SharpeRatio devuelve el ratio de Sharpe anualizado de los retornos diarios
// con tasa libre de riesgo cero. Con varianza cero devuelve exactamente 0:
// es una decisión de diseño para series constantes, no una aproximación.
func SharpeRatio(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}

	meanReturn := mean(dailyReturns)

	var variance float64
	for _, r := range dailyReturns {
		variance += (r - meanReturn) * (r - meanReturn)
	}
	if len(dailyReturns) > 1 {
		variance /= float64(len(dailyReturns) - 1)
	}

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return meanReturn / std * math.Sqrt(tradingDaysPerYear)
}
