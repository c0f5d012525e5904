package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Executor   Executor   `mapstructure:"executor"`
	Trading    Trading    `mapstructure:"trading"`
	Broker     Broker     `mapstructure:"broker"`
	MQ         MQ         `mapstructure:"mq"`
	MarketData MarketData `mapstructure:"market_data"`
	Alert      Alert      `mapstructure:"alert"`
	Logger     Logger     `mapstructure:"logger"`
	Database   Database   `mapstructure:"database"`
}

// Executor identifies one executor instance. The name becomes part of the
// routing key its orders are published under.
type Executor struct {
	Name         string `mapstructure:"name"`
	AccountQueue string `mapstructure:"account_queue"`
}

// Trading holds the order sizing rules. Fee rate and lot sizes are
// configuration, not constants: the star-board minimum lot differs from the
// main-board one and the fee varies by broker.
type Trading struct {
	FeeRate     float64 `mapstructure:"fee_rate"`
	LotSize     int64   `mapstructure:"lot_size"`
	StarPrefix  string  `mapstructure:"star_prefix"`
	StarLotSize int64   `mapstructure:"star_lot_size"`
}

// Broker holds the terminal-facing constants passed to the submission
// primitive on every order.
type Broker struct {
	AccountID    string `mapstructure:"account_id"`
	AccountType  string `mapstructure:"account_type"`
	StrategyName string `mapstructure:"strategy_name"`
	OrderStyle   int    `mapstructure:"order_style"`
	PriceStyle   int    `mapstructure:"price_style"`
	Priority     int    `mapstructure:"priority"`
}

// MQ holds the connection settings for the account synchronization channel.
type MQ struct {
	URL           string `mapstructure:"url"`
	OrderExchange string `mapstructure:"order_exchange"`
}

// MarketData holds the configuration for the market-data HTTP API backing the
// trading-calendar and margin-debt lookups.
type MarketData struct {
	BaseURL        string  `mapstructure:"base_url"`
	Token          string  `mapstructure:"token"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Alert holds the webhook alerting credentials.
type Alert struct {
	BaseURL     string `mapstructure:"base_url"`
	AccessToken string `mapstructure:"access_token"`
	Secret      string `mapstructure:"secret"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Database holds the configuration for the order journal database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("trading.fee_rate", 0.002)
	viper.SetDefault("trading.lot_size", 100)
	viper.SetDefault("trading.star_prefix", "688")
	viper.SetDefault("trading.star_lot_size", 200)
	viper.SetDefault("broker.order_style", 1101)
	viper.SetDefault("broker.price_style", 14)
	viper.SetDefault("broker.priority", 1)
	viper.SetDefault("market_data.rate_limit", 2) // requests per second
	viper.SetDefault("market_data.rate_limit_burst", 1)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
