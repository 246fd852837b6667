package ports

import (
	"context"

	"github.com/dhkim0428/stockbot/internal/domain"
)

// Notifier presenta el progreso y el resumen del backtest al usuario.
type Notifier interface {
	// NotifyDay muestra el resultado de un día simulado.
	NotifyDay(ctx context.Context, day domain.DayResult) error

	// NotifyReport muestra el resumen final con las métricas de la corrida.
	NotifyReport(ctx context.Context, report domain.Report) error
}
