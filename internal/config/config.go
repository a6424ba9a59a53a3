// Package config provides configuration management for the trading engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	apperrors "adaptive-trader/internal/errors"
)

// Execution broker selection.
const (
	BrokerPaper  = "paper"
	BrokerAlpaca = "alpaca"
)

// Config holds all application configuration.
type Config struct {
	Trading     TradingConfig  `mapstructure:"trading"`
	Risk        RiskConfig     `mapstructure:"risk"`
	Data        DataConfig     `mapstructure:"data"`
	Learning    LearningConfig `mapstructure:"learning"`
	Credentials Credentials    `mapstructure:"-"` // Loaded separately
	Dir         string         `mapstructure:"-"` // Effective config directory
}

// TradingConfig holds cycle and universe configuration.
type TradingConfig struct {
	InitialCapital  float64       `mapstructure:"initial_capital"`
	CycleInterval   time.Duration `mapstructure:"cycle_interval"`
	ChunkSize       int           `mapstructure:"chunk_size"`
	BuyThreshold    float64       `mapstructure:"buy_threshold"`
	StrongThreshold float64       `mapstructure:"strong_threshold"`
	Benchmark       string        `mapstructure:"benchmark"`
	ExecutionBroker string        `mapstructure:"execution_broker"`
}

// RiskConfig holds risk management configuration.
type RiskConfig struct {
	RiskPerTrade           float64       `mapstructure:"risk_per_trade"`
	MaxPositionSize        float64       `mapstructure:"max_position_size"`
	ATRStopMultiplier      float64       `mapstructure:"atr_stop_multiplier"`
	ATRProfit1Multiplier   float64       `mapstructure:"atr_profit1_multiplier"`
	ATRProfit2Multiplier   float64       `mapstructure:"atr_profit2_multiplier"`
	MinHoldBars            int           `mapstructure:"min_hold_bars"`
	Cooldown               time.Duration `mapstructure:"cooldown"`
	MinTradeValue          float64       `mapstructure:"min_trade_value"`
	TransactionCost        float64       `mapstructure:"transaction_cost"`
	MaxPositions           int           `mapstructure:"max_positions"`
	MaxNewPositionsPerCycle int          `mapstructure:"max_new_positions_per_cycle"`
	MaxRotationsPerCycle   int           `mapstructure:"max_rotations_per_cycle"`
}

// DataConfig holds data-source configuration.
type DataConfig struct {
	AlpacaBaseURL     string        `mapstructure:"alpaca_base_url"`
	AlpacaDataURL     string        `mapstructure:"alpaca_data_url"`
	AlpacaBatchSize   int           `mapstructure:"alpaca_batch_size"`
	TwelveDataBaseURL string        `mapstructure:"twelvedata_base_url"`
	SecondaryBatch    int           `mapstructure:"secondary_batch"`
	SecondaryDelay    time.Duration `mapstructure:"secondary_delay"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RateLimitPerMin   float64       `mapstructure:"rate_limit_per_min"`
}

// LearningConfig holds self-learning adapter configuration.
type LearningConfig struct {
	WarmupTrades    int     `mapstructure:"warmup_trades"`
	WindowSize      int     `mapstructure:"window_size"`
	Smoothing       float64 `mapstructure:"smoothing"`
	WeightFloor     float64 `mapstructure:"weight_floor"`
	TuneEveryTrades int     `mapstructure:"tune_every_trades"`
	MinSamples      int     `mapstructure:"min_samples"`
}

// Credentials holds API credentials.
type Credentials struct {
	AlpacaKey      string `mapstructure:"alpaca_key"`
	AlpacaSecret   string `mapstructure:"alpaca_secret"`
	TwelveDataKey  string `mapstructure:"twelvedata_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/adaptive-trader"
	}
	return filepath.Join(home, ".config", "adaptive-trader")
}

// Default returns a configuration populated with engine defaults.
func Default() *Config {
	return &Config{
		Dir: DefaultConfigDir(),
		Trading: TradingConfig{
			InitialCapital:  10000,
			CycleInterval:   15 * time.Minute,
			ChunkSize:       200,
			BuyThreshold:    0.35,
			StrongThreshold: 0.55,
			Benchmark:       "SPY",
			ExecutionBroker: BrokerPaper,
		},
		Risk: RiskConfig{
			RiskPerTrade:            0.01,
			MaxPositionSize:         0.07,
			ATRStopMultiplier:       2.0,
			ATRProfit1Multiplier:    3.0,
			ATRProfit2Multiplier:    5.0,
			MinHoldBars:             3,
			Cooldown:                2 * time.Hour,
			MinTradeValue:           25,
			TransactionCost:         0.001,
			MaxPositions:            20,
			MaxNewPositionsPerCycle: 5,
			MaxRotationsPerCycle:    2,
		},
		Data: DataConfig{
			AlpacaBaseURL:     "https://paper-api.alpaca.markets",
			AlpacaDataURL:     "https://data.alpaca.markets",
			AlpacaBatchSize:   200,
			TwelveDataBaseURL: "https://api.twelvedata.com",
			SecondaryBatch:    4,
			SecondaryDelay:    1500 * time.Millisecond,
			RequestTimeout:    30 * time.Second,
			MaxRetries:        4,
			RateLimitPerMin:   180,
		},
		Learning: LearningConfig{
			WarmupTrades:    50,
			WindowSize:      200,
			Smoothing:       0.05,
			WeightFloor:     0.10,
			TuneEveryTrades: 50,
			MinSamples:      5,
		},
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()
	cfg.Dir = configDir

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("trading.initial_capital", cfg.Trading.InitialCapital)
	v.SetDefault("trading.cycle_interval", cfg.Trading.CycleInterval)
	v.SetDefault("trading.chunk_size", cfg.Trading.ChunkSize)
	v.SetDefault("trading.buy_threshold", cfg.Trading.BuyThreshold)
	v.SetDefault("trading.strong_threshold", cfg.Trading.StrongThreshold)
	v.SetDefault("trading.benchmark", cfg.Trading.Benchmark)
	v.SetDefault("trading.execution_broker", cfg.Trading.ExecutionBroker)
	v.SetDefault("risk.risk_per_trade", cfg.Risk.RiskPerTrade)
	v.SetDefault("risk.max_position_size", cfg.Risk.MaxPositionSize)
	v.SetDefault("risk.atr_stop_multiplier", cfg.Risk.ATRStopMultiplier)
	v.SetDefault("risk.atr_profit1_multiplier", cfg.Risk.ATRProfit1Multiplier)
	v.SetDefault("risk.atr_profit2_multiplier", cfg.Risk.ATRProfit2Multiplier)
	v.SetDefault("risk.min_hold_bars", cfg.Risk.MinHoldBars)
	v.SetDefault("risk.cooldown", cfg.Risk.Cooldown)
	v.SetDefault("risk.min_trade_value", cfg.Risk.MinTradeValue)
	v.SetDefault("risk.transaction_cost", cfg.Risk.TransactionCost)
	v.SetDefault("risk.max_positions", cfg.Risk.MaxPositions)
	v.SetDefault("risk.max_new_positions_per_cycle", cfg.Risk.MaxNewPositionsPerCycle)
	v.SetDefault("risk.max_rotations_per_cycle", cfg.Risk.MaxRotationsPerCycle)
	v.SetDefault("data.alpaca_base_url", cfg.Data.AlpacaBaseURL)
	v.SetDefault("data.alpaca_data_url", cfg.Data.AlpacaDataURL)
	v.SetDefault("data.alpaca_batch_size", cfg.Data.AlpacaBatchSize)
	v.SetDefault("data.twelvedata_base_url", cfg.Data.TwelveDataBaseURL)
	v.SetDefault("data.secondary_batch", cfg.Data.SecondaryBatch)
	v.SetDefault("data.secondary_delay", cfg.Data.SecondaryDelay)
	v.SetDefault("data.request_timeout", cfg.Data.RequestTimeout)
	v.SetDefault("data.max_retries", cfg.Data.MaxRetries)
	v.SetDefault("data.rate_limit_per_min", cfg.Data.RateLimitPerMin)
	v.SetDefault("learning.warmup_trades", cfg.Learning.WarmupTrades)
	v.SetDefault("learning.window_size", cfg.Learning.WindowSize)
	v.SetDefault("learning.smoothing", cfg.Learning.Smoothing)
	v.SetDefault("learning.weight_floor", cfg.Learning.WeightFloor)
	v.SetDefault("learning.tune_every_trades", cfg.Learning.TuneEveryTrades)
	v.SetDefault("learning.min_samples", cfg.Learning.MinSamples)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Credentials.AlpacaKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Credentials.AlpacaSecret = v
	}
	if v := os.Getenv("TWELVEDATA_API_KEY"); v != "" {
		cfg.Credentials.TwelveDataKey = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Trading.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial_capital must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Trading.ExecutionBroker != BrokerPaper && c.Trading.ExecutionBroker != BrokerAlpaca {
		return fmt.Errorf("%w: execution_broker must be %q or %q", apperrors.ErrConfigInvalid, BrokerPaper, BrokerAlpaca)
	}
	if c.Risk.RiskPerTrade <= 0 || c.Risk.RiskPerTrade > 0.1 {
		return fmt.Errorf("%w: risk_per_trade must be in (0, 0.1]", apperrors.ErrConfigInvalid)
	}
	if c.Risk.MaxPositionSize <= 0 || c.Risk.MaxPositionSize > 1 {
		return fmt.Errorf("%w: max_position_size must be in (0, 1]", apperrors.ErrConfigInvalid)
	}
	if c.Risk.ATRProfit1Multiplier >= c.Risk.ATRProfit2Multiplier {
		return fmt.Errorf("%w: atr_profit1_multiplier must be below atr_profit2_multiplier", apperrors.ErrConfigInvalid)
	}
	if c.Trading.BuyThreshold >= c.Trading.StrongThreshold {
		return fmt.Errorf("%w: buy_threshold must be below strong_threshold", apperrors.ErrConfigInvalid)
	}
	if c.Learning.WeightFloor < 0 || c.Learning.WeightFloor >= 0.5 {
		return fmt.Errorf("%w: weight_floor must be in [0, 0.5)", apperrors.ErrConfigInvalid)
	}
	if c.Trading.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive", apperrors.ErrConfigInvalid)
	}
	return nil
}

// RequireCredentials verifies that the required API credentials are set.
// Missing credentials are fatal at startup.
func (c *Config) RequireCredentials() error {
	if c.Credentials.AlpacaKey == "" || c.Credentials.AlpacaSecret == "" {
		return fmt.Errorf("%w: ALPACA_API_KEY and ALPACA_API_SECRET are required", apperrors.ErrMissingCredentials)
	}
	return nil
}
