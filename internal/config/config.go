package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Agent         AgentConfig         `mapstructure:"agent"`
	Forecast      ForecastConfig      `mapstructure:"forecast"`
	Market        MarketConfig        `mapstructure:"market"`
	Notify        NotifyConfig        `mapstructure:"notify"`
	PurchaseOrder PurchaseOrderConfig `mapstructure:"purchase_order"`
	Logger        LoggerConfig        `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// AgentConfig holds the decision engine's tunables. OrderCost and
// HoldingRate feed the EOQ formula; they are configuration, not constants.
type AgentConfig struct {
	VelocityWindowDays    int     `mapstructure:"velocity_window_days"`
	StockoutThresholdDays float64 `mapstructure:"stockout_threshold_days"`
	OrderCost             float64 `mapstructure:"order_cost"`
	HoldingRate           float64 `mapstructure:"holding_rate"`
	SlowMoverVelocity     float64 `mapstructure:"slow_mover_velocity"`
	SlowMoverMinStock     int     `mapstructure:"slow_mover_min_stock"`
	SlowMoverDaysOfSupply float64 `mapstructure:"slow_mover_days_of_supply"`
	FeedbackWindowDays    int     `mapstructure:"feedback_window_days"`
}

// ForecastConfig holds forecasting configuration
type ForecastConfig struct {
	HorizonDays     int           `mapstructure:"horizon_days"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	MinObservations int           `mapstructure:"min_observations"`
}

// MarketConfig holds market signal source configuration. The URLs are
// overridable so tests can point them at local servers.
type MarketConfig struct {
	ExchangeURL  string        `mapstructure:"exchange_url"`
	SentimentURL string        `mapstructure:"sentiment_url"`
	ShippingURL  string        `mapstructure:"shipping_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// NotifyConfig holds outbound notification configuration. When Enabled is
// false the engine logs instead of sending.
type NotifyConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	SMTPHost  string `mapstructure:"smtp_host"`
	SMTPPort  int    `mapstructure:"smtp_port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	From      string `mapstructure:"from"`
	Recipient string `mapstructure:"recipient"`
}

// PurchaseOrderConfig holds purchase order document configuration
type PurchaseOrderConfig struct {
	OutputDir   string `mapstructure:"output_dir"`
	CompanyName string `mapstructure:"company_name"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/inventory.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Agent defaults
	viper.SetDefault("agent.velocity_window_days", 30)
	viper.SetDefault("agent.stockout_threshold_days", 3.0)
	viper.SetDefault("agent.order_cost", 50.0)
	viper.SetDefault("agent.holding_rate", 0.25)
	viper.SetDefault("agent.slow_mover_velocity", 0.1)
	viper.SetDefault("agent.slow_mover_min_stock", 50)
	viper.SetDefault("agent.slow_mover_days_of_supply", 180.0)
	viper.SetDefault("agent.feedback_window_days", 90)

	// Forecast defaults
	viper.SetDefault("forecast.horizon_days", 30)
	viper.SetDefault("forecast.cache_ttl", 6*time.Hour)
	viper.SetDefault("forecast.min_observations", 10)

	// Market defaults
	viper.SetDefault("market.exchange_url", "https://api.frankfurter.app/latest?from=USD")
	viper.SetDefault("market.sentiment_url", "https://api.coinbase.com/v2/prices/BTC-USD/spot")
	viper.SetDefault("market.shipping_url", "https://open.er-api.com/v6/latest/USD")
	viper.SetDefault("market.timeout", 8*time.Second)

	// Notify defaults
	viper.SetDefault("notify.enabled", false)
	viper.SetDefault("notify.smtp_port", 587)

	// Purchase order defaults
	viper.SetDefault("purchase_order.output_dir", "generated_orders")
	viper.SetDefault("purchase_order.company_name", "STOK Inventory")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("notify.smtp_host", "SMTP_HOST")
	viper.BindEnv("notify.username", "SMTP_USERNAME")
	viper.BindEnv("notify.password", "SMTP_PASSWORD")
	viper.BindEnv("notify.from", "SMTP_FROM")
	viper.BindEnv("notify.recipient", "PURCHASING_EMAIL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Agent.VelocityWindowDays <= 0 {
		return fmt.Errorf("agent.velocity_window_days must be positive")
	}
	if c.Agent.OrderCost <= 0 {
		return fmt.Errorf("agent.order_cost must be positive")
	}
	if c.Agent.HoldingRate <= 0 {
		return fmt.Errorf("agent.holding_rate must be positive")
	}
	if c.Agent.FeedbackWindowDays <= 0 {
		return fmt.Errorf("agent.feedback_window_days must be positive")
	}

	if c.Forecast.HorizonDays <= 0 {
		return fmt.Errorf("forecast.horizon_days must be positive")
	}
	if c.Forecast.CacheTTL <= 0 {
		return fmt.Errorf("forecast.cache_ttl must be positive")
	}

	if c.Notify.Enabled {
		if c.Notify.SMTPHost == "" {
			return fmt.Errorf("notify.smtp_host is required when notifications are enabled")
		}
		if c.Notify.From == "" {
			return fmt.Errorf("notify.from is required when notifications are enabled")
		}
		if c.Notify.Recipient == "" {
			return fmt.Errorf("notify.recipient is required when notifications are enabled")
		}
	}

	return nil
}
