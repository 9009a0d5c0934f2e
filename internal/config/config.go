package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when TIDDER_CONFIG is unset.
const DefaultPath = "config/tidder.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the tidder server and client.
type Config struct {
	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
	Source  Source  `yaml:"source"`
	Alpaca  Alpaca  `yaml:"alpaca"`
	Refresh Refresh `yaml:"refresh"`
	Client  Client  `yaml:"client"`
	Logging Logging `yaml:"logging"`
}

// Server holds network listener configuration.
type Server struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	CacheTTL time.Duration `yaml:"cache_ttl"` // analysis cache; negative disables
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Source selects where quotes and bars come from.
type Source struct {
	Provider       string  `yaml:"provider"`        // "yahoo" or "alpaca"
	ExchangeSuffix string  `yaml:"exchange_suffix"` // appended to listed symbols for Yahoo, e.g. ".NS"
	CompaniesCSV   string  `yaml:"companies_csv"`
	HistoryDays    int     `yaml:"history_days"`
	Indices        []Index `yaml:"indices"`
}

// Index is one market index shown in the snapshot and summary.
type Index struct {
	Key    string `yaml:"key"`    // snapshot key, e.g. "nifty50"
	Symbol string `yaml:"symbol"` // provider symbol, e.g. "^NSEI"
	Name   string `yaml:"name"`   // display symbol, e.g. "NIFTY50"
}

// Alpaca holds credentials and endpoints for the Alpaca market data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Refresh controls the scheduled quote and bar refresh.
type Refresh struct {
	Schedule        string `yaml:"schedule"` // cron spec
	MaxWorkers      int    `yaml:"max_workers"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	RateBurst       int    `yaml:"rate_burst"` // calls allowed back to back
	MaxRetries      int    `yaml:"max_retries"`
	OnStart         bool   `yaml:"on_start"`
}

// Client configures the terminal client.
type Client struct {
	APIURL         string        `yaml:"api_url"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ListLimit      int           `yaml:"list_limit"` // gainers/losers rows
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Addr returns the listen address.
func (s Server) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Path returns the config file location, honouring TIDDER_CONFIG.
func Path() string {
	if v := os.Getenv("TIDDER_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads the YAML configuration file at the given path, loads a .env
// file from the working directory if one exists, applies environment variable
// overrides and fills in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// Default returns a configuration with only defaults and environment
// overrides applied, for running without a config file.
func Default() *Config {
	cfg := &Config{}
	_ = godotenv.Load()
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("TIDDER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TIDDER_PROVIDER"); v != "" {
		cfg.Source.Provider = v
	}
	if v := os.Getenv("COMPANIES_CSV"); v != "" {
		cfg.Source.CompaniesCSV = v
	}
	if v := os.Getenv("TIDDER_API_URL"); v != "" {
		cfg.Client.APIURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}
	// Standard Alpaca env vars take precedence.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.CacheTTL == 0 {
		cfg.Server.CacheTTL = 30 * time.Second
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = cfg.Storage.DataDir + "/tidder.db"
	}
	if cfg.Source.Provider == "" {
		cfg.Source.Provider = "yahoo"
	}
	if cfg.Source.CompaniesCSV == "" {
		cfg.Source.CompaniesCSV = "data/companies.csv"
	}
	if cfg.Source.HistoryDays == 0 {
		cfg.Source.HistoryDays = 365
	}
	if len(cfg.Source.Indices) == 0 {
		cfg.Source.Indices = []Index{
			{Key: "nifty50", Symbol: "^NSEI", Name: "NIFTY50"},
			{Key: "sensex", Symbol: "^BSESN", Name: "SENSEX"},
		}
	}
	if cfg.Refresh.Schedule == "" {
		cfg.Refresh.Schedule = "*/5 * * * *"
	}
	if cfg.Refresh.MaxWorkers == 0 {
		cfg.Refresh.MaxWorkers = 4
	}
	if cfg.Refresh.RateLimitPerMin == 0 {
		cfg.Refresh.RateLimitPerMin = 120
	}
	if cfg.Refresh.RateBurst == 0 {
		cfg.Refresh.RateBurst = 1
	}
	if cfg.Refresh.MaxRetries == 0 {
		cfg.Refresh.MaxRetries = 3
	}
	if cfg.Client.APIURL == "" {
		cfg.Client.APIURL = "http://localhost:8000"
	}
	if cfg.Client.PollInterval == 0 {
		cfg.Client.PollInterval = 60 * time.Second
	}
	if cfg.Client.RequestTimeout == 0 {
		cfg.Client.RequestTimeout = 15 * time.Second
	}
	if cfg.Client.ListLimit == 0 {
		cfg.Client.ListLimit = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
