package domain

import "time"

// PercentileGrid es la tabla cruda de percentiles persistida: una fila por
// minuto del día y una columna por fecha histórica. Los valores son el ratio
// de volumen relativo o la fuerza de contratación de ese minuto en esa fecha.
// Las celdas sin observación se representan como NaN.
type PercentileGrid struct {
	Minutes []int       // minuto del día de cada fila (puede haber duplicados)
	Dates   []time.Time // fecha de cada columna
	Values  [][]float64 // Values[fila][columna]
}

// CriteriaRow contiene los umbrales históricos de un minuto concreto.
type CriteriaRow struct {
	Minute            int
	MedianVolumeRatio float64
	Q3VolumeRatio     float64
	MedianStrength    float64
	Q3Strength        float64
}

// CriteriaTable es la tabla combinada de criterios de un día de test:
// el join de los percentiles de volumen y de fuerza sobre el minuto del día.
// Es inmutable una vez construida — el pool de compra la lee sin locks.
type CriteriaTable struct {
	// StrengthBar es el umbral de fuerza de toda la sesión: el percentil 75
	// de la columna Q3Strength sobre todos los minutos de la tabla. El umbral
	// de volumen es por minuto; el de fuerza es este escalar único.
	StrengthBar float64

	rows     []CriteriaRow
	byMinute map[int]CriteriaRow
}

// NewCriteriaTable construye la tabla a partir de filas ya combinadas.
// Ante minutos duplicados gana la primera aparición.
func NewCriteriaTable(rows []CriteriaRow, strengthBar float64) *CriteriaTable {
	byMinute := make(map[int]CriteriaRow, len(rows))
	kept := make([]CriteriaRow, 0, len(rows))
	for _, row := range rows {
		if _, dup := byMinute[row.Minute]; dup {
			continue
		}
		byMinute[row.Minute] = row
		kept = append(kept, row)
	}
	return &CriteriaTable{StrengthBar: strengthBar, rows: kept, byMinute: byMinute}
}

// Row devuelve los umbrales del minuto dado, si el minuto existe en la tabla.
func (t *CriteriaTable) Row(minute int) (CriteriaRow, bool) {
	row, ok := t.byMinute[minute]
	return row, ok
}

// Rows devuelve todas las filas en orden de construcción.
func (t *CriteriaTable) Rows() []CriteriaRow {
	return t.rows
}

// Len devuelve el número de minutos distintos de la tabla.
func (t *CriteriaTable) Len() int {
	return len(t.rows)
}
