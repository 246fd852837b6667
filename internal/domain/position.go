package domain

import (
	"math"
	"time"
)

// Candidate es una posición abierta por una señal de compra. Vive solo dentro
// del día simulado: se liquida antes de que el loop avance al día siguiente.
type Candidate struct {
	Symbol        string
	SignalTime    time.Time // hora del primer minuto que cumplió la condición
	EntryPrice    float64
	PrevDayChange float64 // variación % del día anterior en el momento de la señal
	Quantity      int64
}

// QuantityFor calcula las acciones a comprar con un importe fijo:
// floor(importe ÷ precio). Cero es un resultado válido (precio > importe).
func QuantityFor(notional, price float64) int64 {
	if price <= 0 {
		return 0
	}
	return int64(math.Floor(notional / price))
}

// Cost devuelve el coste nocional de la posición (cantidad × precio de entrada).
func (c Candidate) Cost() float64 {
	return float64(c.Quantity) * c.EntryPrice
}

// Settlement es el resultado de cerrar una posición: precio de salida y
// retorno realizado en porcentaje (2.0 significa +2%).
type Settlement struct {
	ExitPrice  float64
	ProfitRate float64
}

// Proceeds devuelve el ingreso en caja tras aplicar la comisión.
func (s Settlement) Proceeds(quantity int64, transactionCost float64) float64 {
	return float64(quantity) * s.ExitPrice * (1 - transactionCost)
}
