package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "SHORTLINK"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	Auth      AuthConfig      `mapstructure:"auth"`
	ShortLink ShortLinkConfig `mapstructure:"shortlink"`
	Stats     StatsConfig     `mapstructure:"stats"`
	Sweeper   SweeperConfig   `mapstructure:"sweeper"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	BaseURL         string        `mapstructure:"base_url" validate:"required,url"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	AllowOrigins    string        `mapstructure:"allow_origins"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

type DBConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=mysql postgres sqlite"`
	DSN             string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
}

// RedisConfig Addr 为空时关闭缓存、访问统计与限流
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// RabbitMQConfig URL 为空时不发布点击事件
type RabbitMQConfig struct {
	URL        string `mapstructure:"url"`
	ClickQueue string `mapstructure:"click_queue" validate:"required_with=URL"`
}

type AuthConfig struct {
	JWTSecret      string `mapstructure:"jwt_secret" validate:"required,min=16"`
	Issuer         string `mapstructure:"issuer"`
	AllowAnonymous bool   `mapstructure:"allow_anonymous"`
}

type ShortLinkConfig struct {
	CodeLength       int           `mapstructure:"code_length" validate:"min=6,max=12"`
	MaxAttempts      int           `mapstructure:"max_attempts" validate:"min=1,max=10"`
	BlockedDomains   []string      `mapstructure:"blocked_domains"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	NegativeCacheTTL time.Duration `mapstructure:"negative_cache_ttl"`
	RetryBackoff     time.Duration `mapstructure:"retry_backoff"`
}

type StatsConfig struct {
	Cron string `mapstructure:"cron"`
}

type SweeperConfig struct {
	Cron      string `mapstructure:"cron"`
	BatchSize int    `mapstructure:"batch_size" validate:"min=1"`
}

// RateLimitConfig Requests 为 0 表示不限流
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests" validate:"gte=0"`
	Window   time.Duration `mapstructure:"window" validate:"gt=0"`
}

// Load 读取配置：.env -> config.yaml -> SHORTLINK_ 前缀的环境变量，后者覆盖前者
func Load(searchPaths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	viper.Reset()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if len(searchPaths) == 0 {
		searchPaths = []string{".", "./config"}
	}
	for _, p := range searchPaths {
		viper.AddConfigPath(p)
	}
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		log.Printf("config.yaml not found in %v, using defaults and environment", searchPaths)
	} else {
		log.Printf("Loading config from: %s", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 使用 validator 标签校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.base_url", "http://localhost:8080")
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.allow_origins", "*")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.path", "logs/shortlink.log")
	viper.SetDefault("log.max_size", 10)
	viper.SetDefault("log.max_backups", 5)
	viper.SetDefault("log.max_age", 7)
	viper.SetDefault("log.compress", false)

	viper.SetDefault("db.driver", "mysql")
	viper.SetDefault("db.dsn", "")
	viper.SetDefault("db.max_open_conns", 50)
	viper.SetDefault("db.max_idle_conns", 10)
	viper.SetDefault("db.conn_max_lifetime", time.Hour)
	viper.SetDefault("db.slow_threshold", 200*time.Millisecond)

	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("rabbitmq.url", "")
	viper.SetDefault("rabbitmq.click_queue", "shortlink.clicks")

	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.issuer", "")
	viper.SetDefault("auth.allow_anonymous", false)

	viper.SetDefault("shortlink.code_length", 7)
	viper.SetDefault("shortlink.max_attempts", 5)
	viper.SetDefault("shortlink.blocked_domains", []string{})
	viper.SetDefault("shortlink.cache_ttl", time.Hour)
	viper.SetDefault("shortlink.negative_cache_ttl", 5*time.Minute)
	viper.SetDefault("shortlink.retry_backoff", 50*time.Millisecond)

	viper.SetDefault("stats.cron", "*/10 * * * *")

	viper.SetDefault("sweeper.cron", "*/5 * * * *")
	viper.SetDefault("sweeper.batch_size", 500)

	viper.SetDefault("ratelimit.requests", 0)
	viper.SetDefault("ratelimit.window", time.Minute)
}
