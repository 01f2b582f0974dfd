package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_shop/internal/orders"
	"github.com/spf13/viper"
)

const envPrefix = "GOSHOP"

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Invoice   InvoiceConfig   `mapstructure:"invoice"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GRPCConfig struct {
	Addr string `mapstructure:"addr"`
}

type CatalogConfig struct {
	DBPath     string `mapstructure:"db_path"`
	Migrations string `mapstructure:"migrations"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr           string        `mapstructure:"addr"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	CartTTL        time.Duration `mapstructure:"cart_ttl"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

type PostgresConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	DBName     string `mapstructure:"dbname"`
	SSLMode    string `mapstructure:"sslmode"`
	Migrations string `mapstructure:"migrations"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type PaymentConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Currency   string        `mapstructure:"currency"`
	SuccessURL string        `mapstructure:"success_url"`
	CancelURL  string        `mapstructure:"cancel_url"`
}

type InvoiceConfig struct {
	Dir string `mapstructure:"dir"`
}

type SimulatorConfig struct {
	Addr      string `mapstructure:"addr"`
	PublicURL string `mapstructure:"public_url"`
	// Outcome pins every session to one settlement ("paid", "expired",
	// "canceled"). Empty settles at random.
	Outcome string `mapstructure:"outcome"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.request_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("grpc.addr", ":50051")

	v.SetDefault("catalog.db_path", "./data/products.db")
	v.SetDefault("catalog.migrations", "internal/catalog/migrations")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "goshop")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cart_ttl", 15*time.Minute)
	v.SetDefault("redis.idempotency_ttl", 24*time.Hour)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "orders")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.migrations", "internal/orders/migrations")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", orders.TopicOrderPlaced)

	v.SetDefault("payment.base_url", "http://localhost:8090")
	v.SetDefault("payment.api_key", "sk_test_goshop")
	v.SetDefault("payment.timeout", 10*time.Second)
	v.SetDefault("payment.currency", "usd")
	v.SetDefault("payment.success_url", "http://localhost:8080/api/v1/checkout/success?session_id={CHECKOUT_SESSION_ID}")
	v.SetDefault("payment.cancel_url", "http://localhost:8080/api/v1/checkout/cancel")

	v.SetDefault("invoice.dir", "./data/invoices")

	v.SetDefault("simulator.addr", ":8090")
	v.SetDefault("simulator.public_url", "http://localhost:8090")
	v.SetDefault("simulator.outcome", "")
}

// Load reads defaults, then the YAML file at path when one is given, then
// GOSHOP_* environment variables (GOSHOP_POSTGRES_HOST overrides
// postgres.host).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.HTTP.RequestTimeout <= 0 {
		errs = append(errs, errors.New("http.request_timeout must be positive"))
	}
	if c.Payment.Timeout <= 0 {
		errs = append(errs, errors.New("payment.timeout must be positive"))
	}
	if c.Payment.APIKey == "" {
		errs = append(errs, errors.New("payment.api_key is required"))
	}
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required"))
	}
	return errors.Join(errs...)
}

// OrdersCredentials adapts the postgres section for the order ledger.
func (c *Config) OrdersCredentials() *orders.Credentials {
	return &orders.Credentials{
		Host:              c.Postgres.Host,
		Port:              c.Postgres.Port,
		User:              c.Postgres.User,
		Password:          c.Postgres.Password,
		DBName:            c.Postgres.DBName,
		SSLMode:           c.Postgres.SSLMode,
		MigrationsDirPath: c.Postgres.Migrations,
	}
}
