package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Store   StoreConfig   `mapstructure:"store"`
	Redis   RedisConfig   `mapstructure:"redis"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Lock    LockConfig    `mapstructure:"lock"`
	Lottery LotteryConfig `mapstructure:"lottery"`
	Admin   AdminConfig   `mapstructure:"admin"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

type LogConfig struct {
	Verbose bool   `mapstructure:"verbose"`
	File    string `mapstructure:"file"`
}

type StoreConfig struct {
	Driver   string        `mapstructure:"driver"` // memory, file, redis, mysql
	Key      string        `mapstructure:"key"`
	FilePath string        `mapstructure:"file_path"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LockConfig struct {
	Driver        string        `mapstructure:"driver"` // local, redis
	TTL           time.Duration `mapstructure:"ttl"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

type LotteryConfig struct {
	PublicDefaultChances int    `mapstructure:"public_default_chances"`
	NoPrizeText          string `mapstructure:"no_prize_text"`
}

type AdminConfig struct {
	// PasswordHash is a bcrypt hash. Admin routes are open when it is empty.
	PasswordHash string `mapstructure:"password_hash"`
}

const envPrefix = "LUCKGEN"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.verbose", true)
	v.SetDefault("log.file", "")
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.key", "luckgen_lottery_data")
	v.SetDefault("store.file_path", "data/lottery.json")
	v.SetDefault("store.cache_ttl", time.Second)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("mysql.host", "localhost")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.user", "root")
	v.SetDefault("mysql.database", "luckgen")
	v.SetDefault("mysql.max_open_conns", 20)
	v.SetDefault("mysql.max_idle_conns", 5)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "luckgen.draws")
	v.SetDefault("lock.driver", "local")
	v.SetDefault("lock.ttl", 10*time.Second)
	v.SetDefault("lock.retry_interval", 50*time.Millisecond)
	v.SetDefault("lock.max_retries", 100)
	v.SetDefault("lottery.public_default_chances", 1)
	v.SetDefault("lottery.no_prize_text", "谢谢参与")
	v.SetDefault("admin.password_hash", "")
}

// Load reads configuration from configPath (optional), the environment and a
// .env file in the working directory, in increasing order of precedence for
// the environment over the file.
func Load(configPath string) (*Config, error) {
	// A missing .env is fine; real environment variables may be set instead.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", configPath, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "file", "redis", "mysql":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Lock.Driver {
	case "local", "redis":
	default:
		return fmt.Errorf("unknown lock driver %q", c.Lock.Driver)
	}
	if c.Store.Key == "" {
		return errors.New("store.key must not be empty")
	}
	if c.Store.CacheTTL <= 0 {
		return errors.New("store.cache_ttl must be positive")
	}
	if c.Lottery.PublicDefaultChances < 0 {
		return errors.New("lottery.public_default_chances must not be negative")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers must be set when kafka is enabled")
	}
	return nil
}
