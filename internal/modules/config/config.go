package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"signal_trader/internal/helper"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	defaultConfigPath = "configs/values_local.yaml"
	envPrefix         = "BOT"
)

// Config ...
type Config struct {
	Telegram struct {
		Token      string `yaml:"token"`
		ChatID     int64  `yaml:"chat_id"`
		UseWebhook bool   `yaml:"use_webhook"`
		// публичный адрес, на который Telegram шлёт апдейты; токен дописывается в путь
		WebhookURL string `yaml:"webhook_url" validate:"omitempty,url"`
	} `yaml:"telegram"`

	Oanda struct {
		APIURL    string        `yaml:"api_url" default:"https://api-fxpractice.oanda.com/v3" validate:"required,url"`
		APIKey    string        `yaml:"api_key"`
		AccountID string        `yaml:"account_id"`
		Timeout   time.Duration `yaml:"timeout" default:"15s" validate:"gt=0s"`
	} `yaml:"oanda"`

	Predictor struct {
		URL     string        `yaml:"url" default:"http://127.0.0.1:8000" validate:"required,url"`
		Timeout time.Duration `yaml:"timeout" default:"30s" validate:"gt=0s"`
		// ретрейн заметно дольше прогноза
		RetrainTimeout time.Duration `yaml:"retrain_timeout" default:"10m" validate:"gt=0s"`
	} `yaml:"predictor"`

	Trading struct {
		Instrument          string  `yaml:"instrument" default:"EUR_USD" validate:"required"`
		Granularity         string  `yaml:"granularity" default:"M15" validate:"required"`
		ConfidenceThreshold float64 `yaml:"confidence_threshold" default:"0.6" validate:"gte=0,lte=1"`
		RiskFraction        float64 `yaml:"risk_fraction" default:"0.15" validate:"gt=0,lte=1"`
		Leverage            float64 `yaml:"leverage" default:"20" validate:"gt=0"`
		TakeProfitPips      float64 `yaml:"take_profit_pips" default:"15" validate:"gt=0"`
		StopLossPips        float64 `yaml:"stop_loss_pips" default:"10" validate:"gt=0"`
		PipSize             float64 `yaml:"pip_size" default:"0.0001" validate:"gt=0"`
		// таймаут на каждый внешний вызов внутри цикла
		CallTimeout time.Duration `yaml:"call_timeout" default:"20s" validate:"gt=0s"`
		// false: торговать без оглядки на FX-календарь
		MarketHours bool `yaml:"market_hours" default:"true"`
	} `yaml:"trading"`

	Schedule struct {
		Tick              time.Duration `yaml:"tick" default:"1s" validate:"gt=0s"`
		TradeInterval     time.Duration `yaml:"trade_interval" default:"15m" validate:"gt=0s"`
		RetrainAt         string        `yaml:"retrain_at" default:"23:00"`
		HeartbeatInterval time.Duration `yaml:"heartbeat_interval" default:"1m" validate:"gt=0s"`
		ActivityInterval  time.Duration `yaml:"activity_interval" default:"1m" validate:"gt=0s"`
		ActivityResetAt   string        `yaml:"activity_reset_at" default:"00:00"`
		ActivityLogPath   string        `yaml:"activity_log_path" default:"scheduler_log.txt" validate:"required"`
		JobTimeout        time.Duration `yaml:"job_timeout" default:"2m" validate:"gt=0s"`
		Timezone          string        `yaml:"timezone" default:"UTC"`
	} `yaml:"schedule"`

	Ledger struct {
		Backend string `yaml:"backend" default:"csv" validate:"oneof=csv postgres"`
		Dir     string `yaml:"dir" default:"."`
		DSN     string `yaml:"db_dsn"`
	} `yaml:"ledger"`

	Service struct {
		Host string `yaml:"host" default:"0.0.0.0"`
		Port int    `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
	} `yaml:"service"`

	Tracing struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host" default:"localhost"`
		Port    int    `yaml:"port" default:"6831"`
	} `yaml:"tracing"`

	Log struct {
		Level       string `yaml:"level" default:"info"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

func NewConfig() (*Config, error) {
	// .env не обязателен
	_ = godotenv.Load()

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("set config defaults: %w", err)
	}

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = defaultConfigPath
	}
	if err := decodeFile(configFileName, cfg); err != nil {
		return nil, err
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

// applyEnv накладывает переопределения из окружения (BOT_<SECTION>_<KEY> и старые имена переменных).
func applyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("telegram.token", "BOT_TELEGRAM_TOKEN", "TELEGRAM_TOKEN")
	_ = v.BindEnv("telegram.chat_id", "BOT_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")
	_ = v.BindEnv("telegram.use_webhook", "BOT_TELEGRAM_USE_WEBHOOK", "TELEGRAM_USE_WEBHOOK")
	_ = v.BindEnv("oanda.api_key", "BOT_OANDA_API_KEY", "OANDA_API_KEY")
	_ = v.BindEnv("oanda.account_id", "BOT_OANDA_ACCOUNT_ID", "OANDA_ACCOUNT_ID")
	_ = v.BindEnv("ledger.db_dsn", "BOT_LEDGER_DB_DSN", "DATABASE_DSN")
	_ = v.BindEnv("service.port", "BOT_SERVICE_PORT", "PORT")

	setString(v, "telegram.token", &cfg.Telegram.Token)
	setInt64(v, "telegram.chat_id", &cfg.Telegram.ChatID)
	setBool(v, "telegram.use_webhook", &cfg.Telegram.UseWebhook)
	setString(v, "telegram.webhook_url", &cfg.Telegram.WebhookURL)

	setString(v, "oanda.api_url", &cfg.Oanda.APIURL)
	setString(v, "oanda.api_key", &cfg.Oanda.APIKey)
	setString(v, "oanda.account_id", &cfg.Oanda.AccountID)

	setString(v, "predictor.url", &cfg.Predictor.URL)

	setString(v, "trading.instrument", &cfg.Trading.Instrument)
	setString(v, "trading.granularity", &cfg.Trading.Granularity)
	setFloat(v, "trading.confidence_threshold", &cfg.Trading.ConfidenceThreshold)
	setFloat(v, "trading.risk_fraction", &cfg.Trading.RiskFraction)
	setFloat(v, "trading.leverage", &cfg.Trading.Leverage)
	setFloat(v, "trading.take_profit_pips", &cfg.Trading.TakeProfitPips)
	setFloat(v, "trading.stop_loss_pips", &cfg.Trading.StopLossPips)
	setBool(v, "trading.market_hours", &cfg.Trading.MarketHours)

	setDuration(v, "schedule.trade_interval", &cfg.Schedule.TradeInterval)
	setString(v, "schedule.retrain_at", &cfg.Schedule.RetrainAt)

	setString(v, "ledger.backend", &cfg.Ledger.Backend)
	setString(v, "ledger.dir", &cfg.Ledger.Dir)
	setString(v, "ledger.db_dsn", &cfg.Ledger.DSN)

	setInt(v, "service.port", &cfg.Service.Port)
	setBool(v, "tracing.enabled", &cfg.Tracing.Enabled)
	setString(v, "log.level", &cfg.Log.Level)

	cfg.Trading.Granularity = helper.NormGranularity(cfg.Trading.Granularity)
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func setInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}

func setInt64(v *viper.Viper, key string, dst *int64) {
	if v.IsSet(key) {
		*dst = v.GetInt64(key)
	}
}

func setFloat(v *viper.Viper, key string, dst *float64) {
	if v.IsSet(key) {
		*dst = v.GetFloat64(key)
	}
}

func setBool(v *viper.Viper, key string, dst *bool) {
	if v.IsSet(key) {
		*dst = v.GetBool(key)
	}
}

func setDuration(v *viper.Viper, key string, dst *time.Duration) {
	if v.IsSet(key) {
		*dst = v.GetDuration(key)
	}
}

// Validate проверяет теги и то, что валидатор не умеет.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if _, _, err := helper.ParseClock(c.Schedule.RetrainAt); err != nil {
		return fmt.Errorf("schedule.retrain_at: %w", err)
	}
	if _, _, err := helper.ParseClock(c.Schedule.ActivityResetAt); err != nil {
		return fmt.Errorf("schedule.activity_reset_at: %w", err)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if c.Telegram.UseWebhook && (c.Telegram.Token == "" || c.Telegram.WebhookURL == "") {
		return errors.New("telegram.use_webhook requires telegram.token and telegram.webhook_url")
	}
	if c.Ledger.Backend == "postgres" && c.Ledger.DSN == "" {
		return errors.New("ledger.backend=postgres requires ledger.db_dsn")
	}
	return nil
}

// Location: таймзона планировщика.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
