package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del backtester.
type Config struct {
	Backtest BacktestConfig `yaml:"backtest"`
	Sell     SellConfig     `yaml:"sell"`
	Data     DataConfig     `yaml:"data"`
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// BacktestConfig controla el rango de fechas y el dimensionado de las compras.
type BacktestConfig struct {
	TestStart         string   `yaml:"test_start"`          // primer día de test (YYYY-MM-DD)
	TestEnd           string   `yaml:"test_end"`            // último día de test (YYYY-MM-DD)
	CriteriaStart     string   `yaml:"criteria_start"`      // inicio de la ventana walk-forward
	VolumeWindowDays  int      `yaml:"volume_window_days"`  // media de volumen diario sobre N días
	InitialBalance    float64  `yaml:"initial_balance"`     // balance inicial en KRW
	NotionalPerSymbol float64  `yaml:"notional_per_symbol"` // importe fijo por señal de compra
	TransactionCost   float64  `yaml:"transaction_cost"`    // comisión como fracción (0.0018 = 0.18%)
	Workers           int      `yaml:"workers"`             // tamaño del pool en la fase de compra
	CacheSize         int      `yaml:"cache_size"`          // capacidad del LRU de ficheros intradía
	SignalStart       string   `yaml:"signal_start"`        // inicio de la ventana de señal (HH:MM)
	SignalEnd         string   `yaml:"signal_end"`          // fin de la ventana de señal, inclusive (HH:MM)
	Symbols           []string `yaml:"symbols"`             // universo de códigos a evaluar
}

// SellConfig selecciona la política de salida y sus umbrales.
type SellConfig struct {
	Strategy         string  `yaml:"strategy"`           // intraday_target_stoploss | close_with_stoploss | close_only
	TargetProfitRate float64 `yaml:"target_profit_rate"` // multiplicador de take-profit (1.02 = +2%)
	StopLossRate     float64 `yaml:"stop_loss_rate"`     // multiplicador de stop-loss (0.99 = -1%)
}

// DataConfig contiene las rutas de los datos persistidos.
type DataConfig struct {
	TimeseriesDir   string `yaml:"timeseries_dir"`    // CSVs intradía: <dir>/<YYYYMMDD>/<código>.csv
	VolumeRatioPath string `yaml:"volume_ratio_path"` // tabla de percentiles de ratio de volumen
	StrengthPath    string `yaml:"strength_path"`     // tabla de percentiles de fuerza de contratación
	DailyVolumePath string `yaml:"daily_volume_path"` // volúmenes diarios por código
}

// APIConfig contiene las credenciales y el base URL del API de Korea Investment.
// AppKey y AppSecret vienen normalmente del .env, nunca del YAML en producción.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"`
	AppKey    string `yaml:"app_key"`
	AppSecret string `yaml:"app_secret"`
	Account   string `yaml:"account"`
}

// StorageConfig controla dónde se persisten los resultados.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, ":memory:", o vacío para desactivar
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return &cfg, nil
}

// TestRange devuelve el rango de fechas de test parseado.
func (c *Config) TestRange() (start, end time.Time, err error) {
	start, err = time.Parse("2006-01-02", c.Backtest.TestStart)
	if err != nil {
		return start, end, fmt.Errorf("config.TestRange: test_start %q: %w", c.Backtest.TestStart, err)
	}
	end, err = time.Parse("2006-01-02", c.Backtest.TestEnd)
	if err != nil {
		return start, end, fmt.Errorf("config.TestRange: test_end %q: %w", c.Backtest.TestEnd, err)
	}
	return start, end, nil
}

// CriteriaStartDate devuelve el inicio de la ventana de entrenamiento parseado.
func (c *Config) CriteriaStartDate() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.Backtest.CriteriaStart)
	if err != nil {
		return t, fmt.Errorf("config.CriteriaStartDate: criteria_start %q: %w", c.Backtest.CriteriaStart, err)
	}
	return t, nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KIS_APP_KEY"); v != "" {
		cfg.API.AppKey = v
	}
	if v := os.Getenv("KIS_APP_SECRET"); v != "" {
		cfg.API.AppSecret = v
	}
	if v := os.Getenv("KIS_ACCOUNT"); v != "" {
		cfg.API.Account = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Backtest.VolumeWindowDays <= 0 {
		cfg.Backtest.VolumeWindowDays = 20
	}
	if cfg.Backtest.InitialBalance <= 0 {
		cfg.Backtest.InitialBalance = 100_000_000
	}
	if cfg.Backtest.NotionalPerSymbol <= 0 {
		cfg.Backtest.NotionalPerSymbol = 5_000_000
	}
	if cfg.Backtest.TransactionCost <= 0 {
		cfg.Backtest.TransactionCost = 0.0018
	}
	if cfg.Backtest.Workers <= 0 {
		cfg.Backtest.Workers = 4
	}
	if cfg.Backtest.CacheSize <= 0 {
		cfg.Backtest.CacheSize = 128
	}
	if cfg.Backtest.SignalStart == "" {
		cfg.Backtest.SignalStart = "09:01"
	}
	if cfg.Backtest.SignalEnd == "" {
		cfg.Backtest.SignalEnd = "09:59"
	}
	if cfg.Sell.Strategy == "" {
		cfg.Sell.Strategy = "close_with_stoploss"
	}
	if cfg.Sell.TargetProfitRate <= 0 {
		cfg.Sell.TargetProfitRate = 1.02
	}
	if cfg.Sell.StopLossRate <= 0 {
		cfg.Sell.StopLossRate = 0.99
	}
	if cfg.Data.TimeseriesDir == "" {
		cfg.Data.TimeseriesDir = "data/timeseries"
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://openapi.koreainvestment.com:9443"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// validate rechaza configuraciones con las que el backtest no puede arrancar.
func validate(cfg *Config) error {
	switch cfg.Sell.Strategy {
	case "intraday_target_stoploss", "close_with_stoploss", "close_only":
	default:
		return fmt.Errorf("unknown sell strategy %q", cfg.Sell.Strategy)
	}
	if cfg.Backtest.TestStart == "" || cfg.Backtest.TestEnd == "" {
		return fmt.Errorf("backtest.test_start and backtest.test_end are required")
	}
	if cfg.Backtest.CriteriaStart == "" {
		return fmt.Errorf("backtest.criteria_start is required")
	}
	return nil
}
