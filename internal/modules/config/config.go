package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"wallex_bot/internal/models"
	"wallex_bot/internal/timeidx"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
	envPrefix         = "BOT"
)

// Config ...
type Config struct {
	Exchange struct {
		BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
		APIKey         string        `mapstructure:"api_key" yaml:"api_key"`
		RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	} `mapstructure:"exchange" yaml:"exchange"`

	Trading struct {
		Symbol    string `mapstructure:"symbol" yaml:"symbol"`
		Timeframe string `mapstructure:"timeframe" yaml:"timeframe"` // только "1min"
		OrderType string `mapstructure:"order_type" yaml:"order_type"`
		Quantity  string `mapstructure:"quantity" yaml:"quantity"`
		Candles   int    `mapstructure:"candles" yaml:"candles"` // сколько свечей тянуть за раз

		// Цены в тиках инструмента
		TickValue       float64 `mapstructure:"tick_value" yaml:"tick_value"`
		StopLossTicks   float64 `mapstructure:"stop_loss_ticks" yaml:"stop_loss_ticks"`
		EntryPipTicks   float64 `mapstructure:"entry_pip_ticks" yaml:"entry_pip_ticks"`
		MinRewardToRisk float64 `mapstructure:"min_reward_to_risk" yaml:"min_reward_to_risk"`

		// Префикс client order id: трогаем только свои ордера
		NamespacePrefix string `mapstructure:"namespace_prefix" yaml:"namespace_prefix"`
	} `mapstructure:"trading" yaml:"trading"`

	Strategy struct {
		RSIPeriod    int     `mapstructure:"rsi_period" yaml:"rsi_period"`
		RSILow       float64 `mapstructure:"rsi_low" yaml:"rsi_low"`
		RSIHigh      float64 `mapstructure:"rsi_high" yaml:"rsi_high"`
		BBPeriod     int     `mapstructure:"bb_period" yaml:"bb_period"`
		BBDeviations float64 `mapstructure:"bb_deviations" yaml:"bb_deviations"`
	} `mapstructure:"strategy" yaml:"strategy"`

	Loop struct {
		BacklogDelay   time.Duration `mapstructure:"backlog_delay" yaml:"backlog_delay"`
		RetryDelay     time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
		SettleInterval time.Duration `mapstructure:"settle_interval" yaml:"settle_interval"`
		SettleTimeout  time.Duration `mapstructure:"settle_timeout" yaml:"settle_timeout"`
	} `mapstructure:"loop" yaml:"loop"`

	Telegram struct {
		Token  string `mapstructure:"token" yaml:"token"`
		ChatID int64  `mapstructure:"chat_id" yaml:"chat_id"`
	} `mapstructure:"telegram" yaml:"telegram"`

	DB string `mapstructure:"db_dsn" yaml:"db_dsn"`

	Redis struct {
		Addr     string        `mapstructure:"addr" yaml:"addr"`
		Password string        `mapstructure:"password" yaml:"password"`
		DB       int           `mapstructure:"db" yaml:"db"`
		LeaseTTL time.Duration `mapstructure:"lease_ttl" yaml:"lease_ttl"`
	} `mapstructure:"redis" yaml:"redis"`

	Tracing struct {
		Host string `mapstructure:"host" yaml:"host"`
		Port int    `mapstructure:"port" yaml:"port"`
	} `mapstructure:"tracing" yaml:"tracing"`

	Service struct {
		Name      string `mapstructure:"name" yaml:"name"`
		Host      string `mapstructure:"host" yaml:"host"`
		AdminPort int    `mapstructure:"admin_port" yaml:"admin_port"`
		LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	} `mapstructure:"service" yaml:"service"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("exchange.base_url", "https://api.wallex.ir/")
	v.SetDefault("exchange.request_timeout", "10s")

	v.SetDefault("trading.symbol", "SHIBTMN")
	v.SetDefault("trading.timeframe", "1min")
	v.SetDefault("trading.order_type", "LIMIT")
	v.SetDefault("trading.quantity", "1000000")
	v.SetDefault("trading.candles", 400)
	v.SetDefault("trading.tick_value", 0.0001)
	v.SetDefault("trading.stop_loss_ticks", 10)
	v.SetDefault("trading.entry_pip_ticks", 20)
	v.SetDefault("trading.min_reward_to_risk", 2)

	v.SetDefault("strategy.rsi_period", 13)
	v.SetDefault("strategy.rsi_low", 30)
	v.SetDefault("strategy.rsi_high", 70)
	v.SetDefault("strategy.bb_period", 20)
	v.SetDefault("strategy.bb_deviations", 2)

	v.SetDefault("loop.backlog_delay", "200ms")
	v.SetDefault("loop.retry_delay", "5s")
	v.SetDefault("loop.settle_interval", "250ms")
	v.SetDefault("loop.settle_timeout", "5s")

	v.SetDefault("redis.lease_ttl", "30s")
	v.SetDefault("tracing.port", 6831)

	v.SetDefault("service.name", "wallex_bot")
	v.SetDefault("service.host", "0.0.0.0")
	v.SetDefault("service.admin_port", 8080)
	v.SetDefault("service.log_level", "info")
}

// явные ENV без префикса, как в старом деплое
var plainEnv = map[string]string{
	"exchange.api_key": "WALLEX_API_KEY",
	"telegram.token":   "TELEGRAM_TOKEN",
	"telegram.chat_id": "TELEGRAM_CHAT_ID",
	"db_dsn":           "DATABASE_DSN",
	"redis.addr":       "REDIS_ADDR",
	"redis.password":   "REDIS_PASSWORD",
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	configDir := os.Getenv(configDirENV)
	if configDir == "" {
		configDir = "configs"
	}
	return Load(configDir + "/" + configFileName)
}

// Load reads the yaml file at path (missing file is allowed), applies
// defaults and environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range plainEnv {
		if err := v.BindEnv(key, strings.ToUpper(envPrefix+"_"+strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, errors.Wrapf(err, "bind env %s", env)
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if cfg.Trading.NamespacePrefix == "" {
		cfg.Trading.NamespacePrefix = "bot-" + cfg.Trading.Symbol
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration errors that must stop the process at startup.
func (c *Config) Validate() error {
	if c.Exchange.APIKey == "" {
		return errors.New("exchange api key is required (WALLEX_API_KEY)")
	}
	if c.Trading.Symbol == "" {
		return errors.New("trading.symbol is required")
	}
	if c.Trading.Timeframe != "1min" {
		return fmt.Errorf("unsupported timeframe %q: only 1min is supported", c.Trading.Timeframe)
	}
	if models.ValidateClientID(c.Trading.NamespacePrefix) != nil {
		return fmt.Errorf("namespace prefix %q has characters outside [A-Za-z0-9_.:-]", c.Trading.NamespacePrefix)
	}
	if c.Trading.TickValue <= 0 {
		return errors.New("trading.tick_value must be > 0")
	}
	if c.Trading.Candles <= c.Strategy.BBPeriod {
		return fmt.Errorf("trading.candles (%d) must exceed bb_period (%d)", c.Trading.Candles, c.Strategy.BBPeriod)
	}
	// курсор первого запуска уходит на BacklogCap строк назад
	if c.Trading.Candles <= -timeidx.BacklogCap {
		return fmt.Errorf("trading.candles (%d) must exceed backlog depth (%d)", c.Trading.Candles, -timeidx.BacklogCap)
	}
	return nil
}

// StopLossBuffer is the stop-loss offset in price units.
func (c *Config) StopLossBuffer() float64 { return c.Trading.StopLossTicks * c.Trading.TickValue }

// PipAllowance is the entry allowance in price units.
func (c *Config) PipAllowance() float64 { return c.Trading.EntryPipTicks * c.Trading.TickValue }

// Dump renders the effective config with secrets masked.
func (c *Config) Dump() string {
	cp := *c
	cp.Exchange.APIKey = mask(cp.Exchange.APIKey)
	cp.Telegram.Token = mask(cp.Telegram.Token)
	cp.Redis.Password = mask(cp.Redis.Password)
	if cp.DB != "" {
		cp.DB = mask(cp.DB)
	}
	bs, err := yaml.Marshal(&cp)
	if err != nil {
		return err.Error()
	}
	return string(bs)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}
