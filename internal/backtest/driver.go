package backtest

// driver.go — loop diario del backtest.
//
// Máquina de estados estrictamente secuencial por día:
//   building_criteria → buying → selling → recording
// La fase de compra evalúa símbolos en paralelo con un pool acotado y cada
// candidato debita el ledger en cuanto se acepta (orden arbitrario, débitos
// atómicos e independientes). La fase de venta es deliberadamente serial para
// que el balance final y el log de operaciones sean reproducibles entre
// corridas. El fallo de un símbolo se contiene y loguea, nunca aborta el día.

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dhkim0428/stockbot/internal/domain"
	"github.com/dhkim0428/stockbot/internal/ports"
)

// phase identifica el estado del día dentro de la máquina de estados.
type phase int

const (
	phaseIdle phase = iota
	phaseBuildingCriteria
	phaseBuying
	phaseSelling
	phaseRecording
)

func (p phase) String() string {
	switch p {
	case phaseBuildingCriteria:
		return "building_criteria"
	case phaseBuying:
		return "buying"
	case phaseSelling:
		return "selling"
	case phaseRecording:
		return "recording"
	default:
		return "idle"
	}
}

// Config contiene los parámetros del loop diario.
type Config struct {
	TestStart       time.Time
	TestEnd         time.Time
	CriteriaStart   time.Time
	Workers         int
	InitialBalance  float64
	TransactionCost float64
	Symbols         []string
}

// Driver orquesta el backtest completo sobre el rango de fechas configurado.
type Driver struct {
	cfg      Config
	criteria *CriteriaBuilder
	buyer    *Buyer
	seller   *Seller
	series   ports.SeriesSource
	calendar ports.DailyVolumeSource
	storage  ports.ResultStorage // opcional
	notifier ports.Notifier     // opcional
	ledger   *Ledger
	days     []domain.DayResult
}

// NewDriver crea el driver con todas las dependencias inyectadas.
// storage y notifier pueden ser nil.
func NewDriver(
	cfg Config,
	criteria *CriteriaBuilder,
	buyer *Buyer,
	seller *Seller,
	series ports.SeriesSource,
	calendar ports.DailyVolumeSource,
	storage ports.ResultStorage,
	notifier ports.Notifier,
) *Driver {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Driver{
		cfg:      cfg,
		criteria: criteria,
		buyer:    buyer,
		seller:   seller,
		series:   series,
		calendar: calendar,
		storage:  storage,
		notifier: notifier,
		ledger:   NewLedger(cfg.InitialBalance),
	}
}

// Run ejecuta el backtest completo y devuelve el reporte final.
// El primer día de mercado del rango solo sirve de cierre de la ventana de
// entrenamiento: el loop empieza en el segundo, de modo que todo día de test
// tiene al menos un día anterior de historia.
func (d *Driver) Run(ctx context.Context) (*domain.Report, error) {
	days, err := d.calendar.TradingDays(d.cfg.TestStart, d.cfg.TestEnd)
	if err != nil {
		return nil, fmt.Errorf("backtest.Driver: trading days: %w", err)
	}
	if len(days) < 2 {
		return nil, fmt.Errorf("backtest.Driver: need at least 2 trading days in [%s, %s], got %d",
			d.cfg.TestStart.Format("2006-01-02"), d.cfg.TestEnd.Format("2006-01-02"), len(days))
	}

	slog.Info("backtest starting",
		"strategy", d.seller.policy.String(),
		"days", len(days)-1,
		"symbols", len(d.cfg.Symbols),
		"workers", d.cfg.Workers,
	)

	for idx := 1; idx < len(days); idx++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest.Driver: %w", err)
		}

		testDate := days[idx]
		trainEnd := days[idx-1] // la ventana nunca incluye el día de test

		slog.Info("processing day",
			"date", testDate.Format("2006-01-02"),
			"progress", fmt.Sprintf("%d/%d", idx, len(days)-1),
		)

		if err := d.runDay(ctx, testDate, trainEnd); err != nil {
			return nil, err
		}
	}

	report := d.buildReport()
	d.publishReport(ctx, report)
	return report, nil
}

// runDay ejecuta las cuatro fases de un día de test.
func (d *Driver) runDay(ctx context.Context, testDate, trainEnd time.Time) error {
	slog.Debug("phase", "state", phaseBuildingCriteria, "date", testDate.Format("2006-01-02"))
	criteria, err := d.criteria.Build(ctx, d.cfg.CriteriaStart, trainEnd)
	if err != nil {
		// Sin criterios válidos no se puede procesar el día: esto es fatal.
		return fmt.Errorf("backtest.Driver: build criteria for %s: %w", testDate.Format("2006-01-02"), err)
	}

	slog.Debug("phase", "state", phaseBuying, "date", testDate.Format("2006-01-02"))
	candidates := d.buyPhase(ctx, testDate, criteria)

	slog.Debug("phase", "state", phaseSelling, "date", testDate.Format("2006-01-02"))
	d.sellPhase(ctx, testDate, candidates)

	slog.Debug("phase", "state", phaseRecording, "date", testDate.Format("2006-01-02"))
	day := d.ledger.CloseDay(testDate)
	d.days = append(d.days, day)

	if d.notifier != nil {
		if err := d.notifier.NotifyDay(ctx, day); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}
	if d.storage != nil {
		if err := d.storage.SaveDay(ctx, day); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}

	slog.Info("day complete",
		"date", testDate.Format("2006-01-02"),
		"candidates", day.Candidates,
		"unsettled", day.Unsettled,
		"balance", day.Balance,
	)
	return nil
}

// buyPhase evalúa todos los símbolos en paralelo. Cada candidato aceptado
// debita el ledger inmediatamente desde su worker; los débitos son
// independientes entre sí, así que el orden de llegada no importa.
func (d *Driver) buyPhase(ctx context.Context, testDate time.Time, criteria *domain.CriteriaTable) []domain.Candidate {
	workCh := make(chan string, len(d.cfg.Symbols))
	resultCh := make(chan domain.Candidate, len(d.cfg.Symbols))

	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range workCh {
				cand, ok, err := d.buyer.Evaluate(ctx, symbol, testDate, criteria)
				if err != nil {
					slog.Warn("buy evaluation failed",
						"symbol", symbol,
						"date", testDate.Format("2006-01-02"),
						"err", err,
					)
					continue
				}
				if !ok {
					continue
				}
				d.ledger.Debit(cand.Cost())
				resultCh <- cand
			}
		}()
	}

	for _, symbol := range d.cfg.Symbols {
		workCh <- symbol
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	candidates := make([]domain.Candidate, 0, len(d.cfg.Symbols))
	for cand := range resultCh {
		candidates = append(candidates, cand)
	}

	// Orden estable para que el log de ventas sea determinista entre corridas.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Symbol < candidates[j].Symbol
	})
	return candidates
}

// sellPhase liquida cada candidato en serie. Un fallo de un símbolo se
// contiene: la posición queda sin liquidar y el resto del día continúa.
func (d *Driver) sellPhase(ctx context.Context, testDate time.Time, candidates []domain.Candidate) {
	for _, cand := range candidates {
		series, err := d.series.Load(ctx, cand.Symbol, testDate)
		if err != nil {
			slog.Error("sell skipped: reload series failed",
				"symbol", cand.Symbol,
				"date", testDate.Format("2006-01-02"),
				"err", err,
			)
			d.ledger.MarkUnsettled()
			continue
		}

		settlement, err := d.seller.Settle(ctx, cand, series, testDate)
		if err != nil {
			slog.Error("sell skipped: settle failed",
				"symbol", cand.Symbol,
				"date", testDate.Format("2006-01-02"),
				"err", err,
			)
			d.ledger.MarkUnsettled()
			continue
		}

		d.ledger.Credit(settlement.Proceeds(cand.Quantity, d.cfg.TransactionCost))
		d.ledger.RecordTrade(cand.Symbol, settlement.ProfitRate)

		slog.Debug("position settled",
			"symbol", cand.Symbol,
			"entry", cand.EntryPrice,
			"exit", settlement.ExitPrice,
			"profit_rate", settlement.ProfitRate,
		)
	}
}

// buildReport calcula las métricas finales sobre el histórico de balances.
func (d *Driver) buildReport() *domain.Report {
	history := d.ledger.History()

	totalTrades := 0
	for _, day := range d.days {
		totalTrades += len(day.Trades)
	}

	finalBalance := d.ledger.Balance()
	return &domain.Report{
		Strategy:       d.seller.policy.String(),
		Days:           d.days,
		InitialBalance: d.cfg.InitialBalance,
		FinalBalance:   finalBalance,
		TotalReturn:    (finalBalance - d.cfg.InitialBalance) / d.cfg.InitialBalance * 100,
		MaxDrawdown:    MaxDrawdown(history),
		SharpeRatio:    SharpeRatio(DailyReturns(history)),
		TotalTrades:    totalTrades,
	}
}

// publishReport entrega el reporte al notifier y al storage si existen.
func (d *Driver) publishReport(ctx context.Context, report *domain.Report) {
	if d.notifier != nil {
		if err := d.notifier.NotifyReport(ctx, *report); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}
	if d.storage != nil {
		if err := d.storage.SaveSummary(ctx, *report); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}
}
