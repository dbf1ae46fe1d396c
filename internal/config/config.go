package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log        LoggingConfig   `yaml:"log"`
	Feed       FeedConfig      `yaml:"feed"`
	Spot       VenueConfig     `yaml:"spot"`
	Futures    VenueConfig     `yaml:"futures"`
	Fees       FeeConfig       `yaml:"fees"`
	Thresholds ThresholdConfig `yaml:"thresholds"`
	Paper      PaperConfig     `yaml:"paper"`
	Journal    JournalConfig   `yaml:"journal"`
	Timescale  TimescaleConfig `yaml:"timescale"`
	Metrics    MetricsConfig   `yaml:"metrics"`
	Telegram   TelegramConfig  `yaml:"telegram"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type FeedConfig struct {
	Mode            string        `yaml:"mode"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	FundingInterval time.Duration `yaml:"funding_interval"`
	ReconnectDelay  time.Duration `yaml:"reconnect_delay"`
	PingInterval    time.Duration `yaml:"ping_interval"`
	Timeout         time.Duration `yaml:"timeout"`
	ShowUpdates     bool          `yaml:"show_updates"`
}

type VenueConfig struct {
	RESTURL string `yaml:"rest_url"`
	WSURL   string `yaml:"ws_url"`
	Symbol  string `yaml:"symbol"`
}

type FeeConfig struct {
	SpotTaker    float64 `yaml:"spot_taker"`
	FuturesTaker float64 `yaml:"futures_taker"`
}

type ThresholdConfig struct {
	OpenPercent       float64 `yaml:"open_percent"`
	ClosePercent      float64 `yaml:"close_percent"`
	MinFundingPercent float64 `yaml:"min_funding_percent"`
	FeeGate           bool    `yaml:"fee_gate"`
}

type PaperConfig struct {
	Notional        float64            `yaml:"notional"`
	QuoteAsset      string             `yaml:"quote_asset"`
	BaseAsset       string             `yaml:"base_asset"`
	InitialBalances map[string]float64 `yaml:"initial_balances"`
}

type JournalConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type TimescaleConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

const (
	FeedModePoll   = "poll"
	FeedModeStream = "stream"
)

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Feed.Mode == "" {
		cfg.Feed.Mode = FeedModeStream
	}
	if cfg.Feed.PollInterval == 0 {
		cfg.Feed.PollInterval = 2 * time.Second
	}
	if cfg.Feed.FundingInterval == 0 {
		cfg.Feed.FundingInterval = time.Hour
	}
	if cfg.Feed.ReconnectDelay == 0 {
		cfg.Feed.ReconnectDelay = 3 * time.Second
	}
	if cfg.Feed.PingInterval == 0 {
		cfg.Feed.PingInterval = 30 * time.Second
	}
	if cfg.Feed.Timeout == 0 {
		cfg.Feed.Timeout = 10 * time.Second
	}
	if cfg.Spot.RESTURL == "" {
		cfg.Spot.RESTURL = "https://api.binance.com"
	}
	if cfg.Spot.WSURL == "" {
		cfg.Spot.WSURL = "wss://stream.binance.com:9443/ws"
	}
	if cfg.Futures.RESTURL == "" {
		cfg.Futures.RESTURL = "https://fapi.binance.com"
	}
	if cfg.Futures.WSURL == "" {
		cfg.Futures.WSURL = "wss://fstream.binance.com/ws"
	}
	if cfg.Futures.Symbol == "" {
		cfg.Futures.Symbol = cfg.Spot.Symbol
	}
	if cfg.Fees.SpotTaker == 0 {
		cfg.Fees.SpotTaker = 0.001
	}
	if cfg.Fees.FuturesTaker == 0 {
		cfg.Fees.FuturesTaker = 0.0005
	}
	if cfg.Paper.QuoteAsset == "" {
		cfg.Paper.QuoteAsset = "USDT"
	}
	if cfg.Journal.SQLitePath == "" {
		cfg.Journal.SQLitePath = "data/basis-bot.db"
	}
	if cfg.Timescale.Schema == "" {
		cfg.Timescale.Schema = "public"
	}
	if cfg.Timescale.QueueSize == 0 {
		cfg.Timescale.QueueSize = 256
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = "127.0.0.1:9001"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func applyEnvOverrides(cfg *Config) {
	if token := strings.TrimSpace(os.Getenv("BASIS_TELEGRAM_TOKEN")); token != "" {
		cfg.Telegram.Token = token
	}
	if chatID := strings.TrimSpace(os.Getenv("BASIS_TELEGRAM_CHAT_ID")); chatID != "" {
		cfg.Telegram.ChatID = chatID
	}
}

func validate(cfg *Config) error {
	if cfg.Feed.Mode != FeedModePoll && cfg.Feed.Mode != FeedModeStream {
		return fmt.Errorf("feed.mode must be %q or %q", FeedModePoll, FeedModeStream)
	}
	if cfg.Spot.Symbol == "" {
		return errors.New("spot.symbol is required")
	}
	if cfg.Fees.SpotTaker < 0 || cfg.Fees.FuturesTaker < 0 {
		return errors.New("fee rates must be >= 0")
	}
	if cfg.Thresholds.OpenPercent <= cfg.Thresholds.ClosePercent {
		return errors.New("thresholds.open_percent must exceed thresholds.close_percent")
	}
	if cfg.Paper.Notional <= 0 {
		return errors.New("paper.notional must be > 0")
	}
	if cfg.Paper.BaseAsset == "" {
		return errors.New("paper.base_asset is required")
	}
	if cfg.Paper.BaseAsset == cfg.Paper.QuoteAsset {
		return errors.New("paper.base_asset and paper.quote_asset must differ")
	}
	for asset, balance := range cfg.Paper.InitialBalances {
		if balance < 0 {
			return fmt.Errorf("paper.initial_balances.%s must be >= 0", asset)
		}
	}
	if cfg.Timescale.Enabled && strings.TrimSpace(cfg.Timescale.DSN) == "" {
		return errors.New("timescale.dsn is required when timescale is enabled")
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	if cfg.Telegram.Enabled {
		if strings.TrimSpace(cfg.Telegram.Token) == "" || strings.TrimSpace(cfg.Telegram.ChatID) == "" {
			return errors.New("telegram.token and telegram.chat_id are required when telegram is enabled")
		}
	}
	return nil
}
