package ports

import (
	"context"

	"github.com/dhkim0428/stockbot/internal/domain"
)

// ResultStorage persiste los resultados del backtest. Es opcional: con DSN
// vacío el driver corre sin persistencia.
type ResultStorage interface {
	// SaveDay persiste el balance de cierre y las operaciones de un día.
	SaveDay(ctx context.Context, day domain.DayResult) error

	// SaveSummary persiste el resumen final de la corrida.
	SaveSummary(ctx context.Context, report domain.Report) error

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
