package backtest

// ledger.go — estado mutable único del portfolio.
//
// Es el único recurso que mutan varios flujos: los workers de la fase de
// compra debitan concurrentemente (cada débito es un add atómico bajo mutex,
// independiente del valor de los demás), la fase de venta acredita en serie.
// Ninguna actualización parcial es observable desde fuera.

import (
	"sync"
	"time"

	"github.com/dhkim0428/stockbot/internal/domain"
)

// Ledger mantiene el balance de caja, el histórico de cierres diarios y el
// registro de retornos realizados por día.
type Ledger struct {
	mu        sync.Mutex
	balance   float64
	history   []float64
	trades    map[string]float64 // día actual: código → retorno %
	unsettled int                // día actual: posiciones sin liquidar
	opened    int                // día actual: señales aceptadas
}

// NewLedger crea un ledger con el balance inicial dado.
func NewLedger(initial float64) *Ledger {
	return &Ledger{balance: initial, trades: make(map[string]float64)}
}

// Debit resta el coste de una compra. Seguro desde varios workers.
func (l *Ledger) Debit(amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance -= amount
	l.opened++
}

// Credit suma el ingreso de una venta.
func (l *Ledger) Credit(amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance += amount
}

// Balance devuelve el balance de caja actual.
func (l *Ledger) Balance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// RecordTrade registra el retorno realizado de un símbolo en el día actual.
func (l *Ledger) RecordTrade(symbol string, profitRate float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trades[symbol] = profitRate
}

// MarkUnsettled cuenta una posición que quedó sin liquidar por un fallo de
// lookup del precio de cierre.
func (l *Ledger) MarkUnsettled() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unsettled++
}

// CloseDay congela el día: añade el balance al histórico, devuelve el
// snapshot del día y resetea los acumuladores diarios.
func (l *Ledger) CloseDay(date time.Time) domain.DayResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.history = append(l.history, l.balance)
	day := domain.DayResult{
		Date:       date,
		Trades:     l.trades,
		Balance:    l.balance,
		Candidates: l.opened,
		Unsettled:  l.unsettled,
	}
	l.trades = make(map[string]float64)
	l.unsettled = 0
	l.opened = 0
	return day
}

// History devuelve una copia del histórico de balances de cierre.
func (l *Ledger) History() []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]float64, len(l.history))
	copy(out, l.history)
	return out
}
