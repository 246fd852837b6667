package notify

// console.go — salida del backtest por consola.
//
// Por defecto una línea compacta por día; con el modo tabla activo, el
// reporte final añade el desglose por día con tablewriter.

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/dhkim0428/stockbot/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador sobre un writer arbitrario, para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyDay imprime el resultado de un día en una línea.
func (c *Console) NotifyDay(_ context.Context, day domain.DayResult) error {
	line := fmt.Sprintf("[%s] trades:%d balance:%s",
		day.Date.Format("2006-01-02"), len(day.Trades), groupThousands(day.Balance))
	if day.Unsettled > 0 {
		line += fmt.Sprintf(" unsettled:%d", day.Unsettled)
	}
	fmt.Fprintln(c.out, line)
	return nil
}

// NotifyReport imprime el resumen final y, en modo tabla, el desglose diario.
func (c *Console) NotifyReport(_ context.Context, report domain.Report) error {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "============================================================")
	fmt.Fprintf(c.out, "Sell strategy: %s\n", report.Strategy)
	fmt.Fprintln(c.out, "============================================================")
	fmt.Fprintf(c.out, "Avg trades/day:          %.2f\n", report.AvgTradesPerDay())
	fmt.Fprintf(c.out, "Total Return:            %.2f%%\n", report.TotalReturn)
	fmt.Fprintf(c.out, "Maximum Drawdown (MDD):  %.2f%%\n", report.MaxDrawdown)
	fmt.Fprintf(c.out, "Sharpe Ratio:            %.2f\n", report.SharpeRatio)
	fmt.Fprintf(c.out, "Final Balance:           %s\n", groupThousands(report.FinalBalance))
	fmt.Fprintln(c.out, "============================================================")

	if c.table {
		c.printDays(report.Days)
	}
	return nil
}

// printDays imprime el desglose por día: operaciones, mejor y peor retorno.
func (c *Console) printDays(days []domain.DayResult) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "Trades", "Best", "Worst", "Unsettled", "Balance")

	for _, day := range days {
		best, worst := bestWorst(day.Trades)
		table.Append(
			day.Date.Format("2006-01-02"),
			fmt.Sprintf("%d", len(day.Trades)),
			best,
			worst,
			fmt.Sprintf("%d", day.Unsettled),
			fmt.Sprintf("%.0f", day.Balance),
		)
	}
	table.Render()
}

// bestWorst devuelve el mejor y el peor retorno del día como "símbolo %".
func bestWorst(trades map[string]float64) (best, worst string) {
	if len(trades) == 0 {
		return "-", "-"
	}

	symbols := make([]string, 0, len(trades))
	for symbol := range trades {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	bestSym, worstSym := symbols[0], symbols[0]
	for _, symbol := range symbols[1:] {
		if trades[symbol] > trades[bestSym] {
			bestSym = symbol
		}
		if trades[symbol] < trades[worstSym] {
			worstSym = symbol
		}
	}
	return fmt.Sprintf("%s %+.2f%%", bestSym, trades[bestSym]),
		fmt.Sprintf("%s %+.2f%%", worstSym, trades[worstSym])
}

// groupThousands formatea un importe con separadores de miles (1,234,567).
func groupThousands(v float64) string {
	raw := strconv.FormatFloat(v, 'f', 0, 64)
	neg := false
	if len(raw) > 0 && raw[0] == '-' {
		neg = true
		raw = raw[1:]
	}

	var out []byte
	for i, digit := range []byte(raw) {
		if i > 0 && (len(raw)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digit)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
