package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/emrgen/exploration/internal/compress"
	"github.com/emrgen/exploration/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	envPrefix      = "EXPLORATION"
	configFileName = "exploration"
)

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `mapstructure:"dsn" validate:"required"`
}

// RedisConfig enables the exploration cache and pub/sub notifications when
// Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Channel  string        `mapstructure:"channel"`
}

// KafkaConfig enables kafka notifications when Brokers is set.
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic" validate:"required_with=Brokers"`
}

type Config struct {
	Mode        string             `mapstructure:"mode" validate:"oneof=dev prod"`
	LogLevel    string             `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	GrpcPort    string             `mapstructure:"grpc_port" validate:"required,numeric"`
	HttpPort    string             `mapstructure:"http_port" validate:"required,numeric"`
	Compression string             `mapstructure:"compression" validate:"oneof=nop gzip lz4 brotli"`
	Admins      []string           `mapstructure:"admins"`
	Reconcile   string             `mapstructure:"reconcile"`
	Database    DatabaseConfig     `mapstructure:"database"`
	Redis       RedisConfig        `mapstructure:"redis"`
	Kafka       KafkaConfig        `mapstructure:"kafka"`
	Rank        service.RankConfig `mapstructure:"rank"`
}

func defaults(v *viper.Viper) {
	rank := service.DefaultRankConfig()

	v.SetDefault("mode", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("grpc_port", "4020")
	v.SetDefault("http_port", "4021")
	v.SetDefault("compression", compress.NameGZip)
	v.SetDefault("admins", []string{})
	v.SetDefault("reconcile", "@every 10m")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".tmp/exploration.db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", time.Hour)
	v.SetDefault("redis.channel", "exploration.events")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "exploration.events")
	v.SetDefault("rank.baseline", rank.Baseline)
	v.SetDefault("rank.public_bonus", rank.PublicBonus)
	v.SetDefault("rank.publicized_bonus", rank.PublicizedBonus)
	weights := map[string]any{}
	for rating, weight := range rank.Weights {
		weights[strconv.Itoa(rating)] = weight
	}
	v.SetDefault("rank.weights", weights)
}

// LoadConfig reads the configuration from .env, an optional exploration.yaml
// and EXPLORATION_ prefixed environment variables, in increasing priority.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	defaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./.tmp")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// SetupLogging applies the log level and format of the mode.
func (c *Config) SetupLogging() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if c.Mode == "prod" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// GetDb opens the configured database.
func GetDb(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.Database.DSN)
	default:
		dialector = sqlite.Open(cfg.Database.DSN)
	}

	level := logger.Warn
	if cfg.Mode == "dev" && cfg.LogLevel == "debug" {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Database.Driver, err)
	}

	if cfg.Database.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}
