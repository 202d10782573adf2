package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	env "github.com/caarlos0/env/v7"
	"github.com/joho/godotenv"
)

const (
	MailerTransportSMTP  = "smtp"
	MailerTransportKafka = "kafka"

	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

type Config struct {
	HTTPPort          int      `env:"HTTP_PORT" envDefault:"8080"`
	PostgresDSN       string   `env:"POSTGRES_DSN"`
	PostgresMaxConns  int32    `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	LogLevel          string   `env:"LOG_LEVEL" envDefault:"info"`
	CookieSecure      bool     `env:"COOKIE_SECURE" envDefault:"false"`
	CorsOrigins       []string `env:"CORS_ORIGINS" envSeparator:","`
	TrustProxyHeaders bool     `env:"TRUST_PROXY_HEADERS" envDefault:"false"` // enable only behind a proxy that overwrites X-Real-IP
	JWT               JWTConfig
	OTP               OTPConfig
	Password          PasswordConfig
	Mailer            MailerConfig
	Kafka             KafkaConfig
	Storage           StorageConfig
	Redis             RedisConfig
	Lock              LockConfig
	Jobs              JobsConfig
}

type JWTConfig struct {
	PrivateKey         string        `env:"JWT_PRIVATE_KEY"`
	PublicKey          string        `env:"JWT_PUBLIC_KEY"`
	AccessTokenExpiry  time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenExpiry time.Duration `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"168h"`
}

type OTPConfig struct {
	CodeTTL     time.Duration `env:"OTP_CODE_TTL"     envDefault:"10m"`
	LockTime    time.Duration `env:"OTP_LOCK_TIME"    envDefault:"10m"`
	MaxAttempts int           `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`
	HashCost    int           `env:"OTP_HASH_COST"    envDefault:"10"`
}

type PasswordConfig struct {
	HashCost   int     `env:"PASSWORD_HASH_COST"   envDefault:"10"`
	MinEntropy float64 `env:"PASSWORD_MIN_ENTROPY" envDefault:"50"`
}

type MailerConfig struct {
	Transport string `env:"MAILER_TRANSPORT" envDefault:"smtp"`
	Host      string `env:"MAILER_HOST"`
	Port      int    `env:"MAILER_PORT" envDefault:"587"`
	Login     string `env:"MAILER_LOGIN"`
	Password  string `env:"MAILER_PASSWORD"`
	From      string `env:"MAILER_FROM"`
	FromName  string `env:"MAILER_FROM_NAME" envDefault:"Support Team"`
}

type KafkaConfig struct {
	Brokers           []string `env:"KAFKA_BROKERS" envSeparator:","`
	NotificationTopic string   `env:"KAFKA_NOTIFICATION_TOPIC" envDefault:"notifications"`
	ConsumerID        string   `env:"KAFKA_CONSUMER_ID" envDefault:"account-notifier"`
}

type StorageConfig struct {
	Endpoint  string `env:"STORAGE_ENDPOINT"`
	AccessKey string `env:"STORAGE_ACCESS_KEY"`
	SecretKey string `env:"STORAGE_SECRET_KEY"`
	Bucket    string `env:"STORAGE_BUCKET" envDefault:"profile-images"`
	PublicURL string `env:"STORAGE_PUBLIC_URL"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"true"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type LockConfig struct {
	Backend string        `env:"LOCK_BACKEND" envDefault:"local"`
	TTL     time.Duration `env:"LOCK_TTL"     envDefault:"10s"`
}

type JobsConfig struct {
	RefreshTokenCleanupInterval time.Duration `env:"JOB_REFRESH_TOKEN_CLEANUP_INTERVAL" envDefault:"1h"`
}

func New(envPath string) (Config, error) {
	var c Config

	err := godotenv.Load(envPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	err = env.Parse(&c)
	if err != nil {
		return Config{}, err
	}

	switch c.Mailer.Transport {
	case MailerTransportSMTP, MailerTransportKafka:
	default:
		return Config{}, fmt.Errorf("unknown MAILER_TRANSPORT %q", c.Mailer.Transport)
	}

	if c.Mailer.Transport == MailerTransportKafka && len(c.Kafka.Brokers) == 0 {
		return Config{}, errors.New("KAFKA_BROKERS is required for kafka mailer transport")
	}

	switch c.Lock.Backend {
	case LockBackendLocal, LockBackendRedis:
	default:
		return Config{}, fmt.Errorf("unknown LOCK_BACKEND %q", c.Lock.Backend)
	}

	for _, origin := range c.CorsOrigins {
		if origin == "*" {
			return Config{}, errors.New("CORS_ORIGINS must list explicit origins, credentials are allowed")
		}
	}

	return c, nil
}
