package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Tutor    TutorConfig    `mapstructure:"tutor"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Events   EventsConfig   `mapstructure:"events"`
	Firebase FirebaseConfig `mapstructure:"firebase"`
	Log      LogConfig      `mapstructure:"log"`
}

type AppConfig struct {
	Name string `mapstructure:"name" validate:"required"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port" validate:"required"`
	Env          string        `mapstructure:"env" validate:"oneof=development staging production test"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=mysql postgres sqlite"`
	DSN             string        `mapstructure:"dsn" validate:"required"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type JWTConfig struct {
	AccessSecret string        `mapstructure:"access_secret" validate:"required"`
	AccessExpiry time.Duration `mapstructure:"access_expiry"`
	Issuer       string        `mapstructure:"issuer"`
}

type WalletConfig struct {
	// DefaultWithdrawalLimit is applied to accounts created without an explicit limit.
	DefaultWithdrawalLimit string `mapstructure:"default_withdrawal_limit" validate:"required,numeric"`
}

// WithdrawalLimit parses DefaultWithdrawalLimit; Load has already validated it.
func (w WalletConfig) WithdrawalLimit() decimal.Decimal {
	d, err := decimal.NewFromString(w.DefaultWithdrawalLimit)
	if err != nil {
		return decimal.NewFromInt(1000)
	}
	return d
}

type MonitorConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"required"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
	// NotifyTimeout bounds the delivery of each event raised during a sweep.
	NotifyTimeout time.Duration `mapstructure:"notify_timeout"`
}

// TutorConfig configures the Gemini-backed tutor response generator.
type TutorConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	Temperature     float32       `mapstructure:"temperature"`
	MaxOutputTokens int32         `mapstructure:"max_output_tokens"`
	MaxAttempts     int           `mapstructure:"max_attempts" validate:"min=1,max=10"`
	BaseBackoff     time.Duration `mapstructure:"base_backoff"`
	ContextMessages int           `mapstructure:"context_messages" validate:"min=1"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// EventsConfig selects the broker session events are published to. Empty Broker disables publishing.
type EventsConfig struct {
	Broker       string   `mapstructure:"broker" validate:"omitempty,oneof=nats kafka"`
	NatsURL      string   `mapstructure:"nats_url"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	TopicPrefix  string   `mapstructure:"topic_prefix"`
}

type FirebaseConfig struct {
	ServiceAccountPath string `mapstructure:"service_account_path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tutorwallet")
	v.SetDefault("server.port", "8099")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "tutor:tutor@tcp(localhost:3306)/tutorwallet?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("jwt.access_secret", "change-me-in-production")
	v.SetDefault("jwt.access_expiry", 15*time.Minute)
	v.SetDefault("jwt.issuer", "tutorwallet")
	v.SetDefault("wallet.default_withdrawal_limit", "1000")
	v.SetDefault("monitor.interval", 30*time.Second)
	v.SetDefault("monitor.lock_ttl", 25*time.Second)
	v.SetDefault("monitor.notify_timeout", 5*time.Second)
	v.SetDefault("tutor.api_key", "")
	v.SetDefault("tutor.model", "gemini-1.5-flash")
	v.SetDefault("tutor.temperature", 0.7)
	v.SetDefault("tutor.max_output_tokens", 1000)
	v.SetDefault("tutor.max_attempts", 3)
	v.SetDefault("tutor.base_backoff", 500*time.Millisecond)
	v.SetDefault("tutor.context_messages", 20)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("events.broker", "")
	v.SetDefault("events.nats_url", "")
	v.SetDefault("events.kafka_brokers", []string{})
	v.SetDefault("events.topic_prefix", "tutor.session")
	v.SetDefault("firebase.service_account_path", "")
	v.SetDefault("log.level", "info")
}

// NewViper builds the viper instance: defaults, optional config.yaml, then env (DATABASE_DSN, TUTOR_API_KEY, ...).
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads .env (if any) and the config file (if any) and returns a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()
	v := NewViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return FromViper(v)
}

func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
