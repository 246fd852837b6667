package storage

// sqlite.go — persistencia de resultados de backtest.
//
// Estrategia:
//   - `runs`: una fila por corrida, con las métricas finales (se completa al
//     terminar con SaveSummary).
//   - `day_balances`: balance de cierre por día de la corrida.
//   - `trades`: una fila por operación liquidada (día, símbolo, retorno %).
//   - Prune automático al arrancar: corridas de más de 90 días y todo lo que
//     cuelga de ellas.

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dhkim0428/stockbot/internal/domain"
)

const schema = `
-- Una fila por corrida de backtest
CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    started_at      DATETIME NOT NULL,
    strategy        TEXT     NOT NULL DEFAULT '',
    initial_balance REAL     NOT NULL DEFAULT 0,
    final_balance   REAL     NOT NULL DEFAULT 0,
    total_return    REAL     NOT NULL DEFAULT 0,
    max_drawdown    REAL     NOT NULL DEFAULT 0,
    sharpe_ratio    REAL     NOT NULL DEFAULT 0,
    total_trades    INTEGER  NOT NULL DEFAULT 0
);

-- Balance de cierre por día simulado
CREATE TABLE IF NOT EXISTS day_balances (
    run_id     TEXT    NOT NULL REFERENCES runs(id),
    date       TEXT    NOT NULL,
    balance    REAL    NOT NULL,
    candidates INTEGER NOT NULL DEFAULT 0,
    unsettled  INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, date)
);

-- Una fila por operación liquidada
CREATE TABLE IF NOT EXISTS trades (
    run_id      TEXT NOT NULL REFERENCES runs(id),
    date        TEXT NOT NULL,
    symbol      TEXT NOT NULL,
    profit_rate REAL NOT NULL,
    PRIMARY KEY (run_id, date, symbol)
);

CREATE INDEX IF NOT EXISTS idx_runs_started   ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_run     ON trades(run_id, date);
CREATE INDEX IF NOT EXISTS idx_balances_run   ON day_balances(run_id, date);
`

const retentionRuns = 90 * 24 * time.Hour

// SQLiteStorage implementa ports.ResultStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db    *sql.DB
	runID string
	mu    sync.Mutex
}

// NewSQLiteStorage abre (o crea) la base de datos y registra la corrida.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db, runID: uuid.New().String()}
	s.pruneOld(context.Background())

	if _, err := db.Exec(
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		s.runID, time.Now().UTC(),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: insert run: %w", err)
	}
	return s, nil
}

// RunID devuelve el identificador de la corrida actual.
func (s *SQLiteStorage) RunID() string {
	return s.runID
}

// SaveDay persiste el balance de cierre y las operaciones de un día.
func (s *SQLiteStorage) SaveDay(ctx context.Context, day domain.DayResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveDay: begin tx: %w", err)
	}
	defer tx.Rollback()

	date := day.Date.Format("2006-01-02")
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO day_balances (run_id, date, balance, candidates, unsettled)
		 VALUES (?, ?, ?, ?, ?)`,
		s.runID, date, day.Balance, day.Candidates, day.Unsettled,
	); err != nil {
		return fmt.Errorf("storage.SaveDay: insert balance: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO trades (run_id, date, symbol, profit_rate) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveDay: prepare: %w", err)
	}
	defer stmt.Close()

	for symbol, rate := range day.Trades {
		if _, err := stmt.ExecContext(ctx, s.runID, date, symbol, rate); err != nil {
			return fmt.Errorf("storage.SaveDay: insert trade %s: %w", symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveDay: commit: %w", err)
	}
	return nil
}

// SaveSummary completa la fila de la corrida con las métricas finales.
func (s *SQLiteStorage) SaveSummary(ctx context.Context, report domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`UPDATE runs SET strategy = ?, initial_balance = ?, final_balance = ?,
		        total_return = ?, max_drawdown = ?, sharpe_ratio = ?, total_trades = ?
		 WHERE id = ?`,
		report.Strategy, report.InitialBalance, report.FinalBalance,
		report.TotalReturn, report.MaxDrawdown, report.SharpeRatio, report.TotalTrades,
		s.runID,
	); err != nil {
		return fmt.Errorf("storage.SaveSummary: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld borra corridas antiguas y sus filas dependientes.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionRuns)
	for _, q := range []string{
		`DELETE FROM trades       WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`,
		`DELETE FROM day_balances WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`,
		`DELETE FROM runs         WHERE started_at < ?`,
	} {
		if _, err := s.db.ExecContext(ctx, q, cutoff); err != nil {
			// El prune es mantenimiento: un fallo no impide la corrida.
			return
		}
	}
}
