package domain

import (
	"fmt"
	"time"
)

// Tick es una observación intradía de un símbolo: precio, volumen acumulado
// y fuerza de contratación acumulada desde la apertura.
type Tick struct {
	Time              time.Time // hora del día (la fecha es la del fichero)
	Symbol            string
	Open              float64
	Price             float64 // último precio
	PrevDayChange     float64 // variación % respecto al cierre anterior
	CumVolume         float64 // volumen acumulado desde apertura
	CumStrength       float64 // fuerza de contratación acumulada (compra vs venta)
	CumSellVolume     float64
	CumBuyVolume      float64
	TotalAskRemaining float64
	TotalBidRemaining float64
	RemainingRatio    float64
}

// Minute devuelve el minuto del día del tick (horas×60 + minutos).
func (t Tick) Minute() int {
	return MinuteOfDay(t.Time)
}

// IntradaySeries es la serie de ticks de un (símbolo, fecha), ordenada por
// tiempo. Es de solo lectura después de cargarse: la cache la comparte entre
// goroutines sin copiar.
type IntradaySeries struct {
	Symbol string
	Ticks  []Tick
}

// ResampleMinutes reduce la serie a granularidad de un minuto tomando la
// primera observación de cada bucket. El orden temporal se preserva.
func (s *IntradaySeries) ResampleMinutes() []Tick {
	resampled := make([]Tick, 0, len(s.Ticks))
	lastMinute := -1
	for _, tick := range s.Ticks {
		m := tick.Minute()
		if m == lastMinute {
			continue
		}
		resampled = append(resampled, tick)
		lastMinute = m
	}
	return resampled
}

// After devuelve los ticks estrictamente posteriores al instante dado,
// sobre la serie cruda (sin resamplear). Es la vista que consume la fase
// de venta a partir de la hora de entrada.
func (s *IntradaySeries) After(t time.Time) []Tick {
	for i, tick := range s.Ticks {
		if tick.Time.After(t) {
			return s.Ticks[i:]
		}
	}
	return nil
}

// MinuteOfDay devuelve el minuto del día de un instante (horas×60 + minutos).
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// ParseMinuteOfDay parsea "HH:MM" o "HH:MM:SS" como minuto del día.
func ParseMinuteOfDay(s string) (int, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
			return 0, fmt.Errorf("domain.ParseMinuteOfDay: %q: %w", s, err)
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("domain.ParseMinuteOfDay: %q out of range", s)
	}
	return h*60 + m, nil
}

// FormatMinuteOfDay formatea un minuto del día como "HH:MM".
func FormatMinuteOfDay(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
