package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type JWTConfig struct {
	PublicKeyPath string `env:"JWT_PUBLIC_KEY_PATH" env-required:"true"`
}

type FlowKeysConfig struct {
	// PKCS#8 RSA приватный ключ, которым платформа оборачивает сессионные AES-ключи
	RSAPrivPath string `env:"FLOW_RSA_PRIV_PATH" env-required:"true"`
}

type WhatsAppConfig struct {
	BaseURL     string `env:"WA_API_BASE_URL" env-required:"true"`
	Token       string `env:"WA_API_TOKEN" env-required:"true"`
	PhoneID     string `env:"WA_PHONE_NUMBER_ID" env-required:"true"`
	VerifyToken string `env:"WA_VERIFY_TOKEN" env-required:"true"`
	AppSecret   string `env:"WA_APP_SECRET" env-required:"true"`
}

type ImageGenConfig struct {
	BaseURL string        `env:"IMAGEGEN_BASE_URL" env-required:"true"`
	APIKey  string        `env:"IMAGEGEN_API_KEY" env-required:"true"`
	Timeout time.Duration `env:"IMAGEGEN_TIMEOUT" env-default:"60s"`
}

type PaymentsConfig struct {
	BaseURL       string `env:"PAYMENTS_BASE_URL" env-required:"true"`
	APIKey        string `env:"PAYMENTS_API_KEY" env-required:"true"`
	WebhookSecret string `env:"PAYMENTS_WEBHOOK_SECRET" env-required:"true"`
	CreditPrice   int    `env:"PAYMENTS_CREDIT_PRICE" env-default:"10"`
}

type MediaConfig struct {
	FetchTimeout time.Duration `env:"MEDIA_FETCH_TIMEOUT" env-default:"30s"`
}

type MinIoConfig struct {
	Port         string        `env:"MINIO_PORT" env-required:"true"`
	RootUser     string        `env:"MINIO_ROOT_USER" env-required:"true"`
	RootPassword string        `env:"MINIO_ROOT_PASSWORD" env-required:"true"`
	UseSSL       bool          `env:"MINIO_USE_SSL" env-required:"true"`
	UrlTTL       time.Duration `env:"MINIO_URL_LIFETIME" env-required:"true"`
}

type RedisConfig struct {
	ServerAddr     string        `env:"REDIS_SERVER_ADDRESS" env-required:"true"`
	LeadTTL        time.Duration `env:"REDIS_LEAD_TTL" env-default:"720h"`
	FlowSessionTTL time.Duration `env:"REDIS_FLOW_SESSION_TTL" env-default:"1h"`
	ImageMetaTTL   time.Duration `env:"REDIS_IMAGE_META_TTL" env-default:"24h"`
}

type PostgresConfig struct {
	StoragePath string `env:"POSTGRES_STORAGE_PATH" env-required:"true"`
}

type HTTPServConfig struct {
	ServerAddr string `env:"HTTP_SERVER_ADDRESS" env-required:"true"`
}

type FlowLimiter struct {
	RPC   float64       `env:"FLOW_LIMITER_RPC" env-default:"10"`
	Burst int           `env:"FLOW_LIMITER_BURST" env-default:"20"`
	TTL   time.Duration `env:"FLOW_LIMITER_EXP_TTL" env-default:"1h"`
}

type WebhookLimiter struct {
	RPC   float64       `env:"WEBHOOK_LIMITER_RPC" env-default:"30"`
	Burst int           `env:"WEBHOOK_LIMITER_BURST" env-default:"60"`
	TTL   time.Duration `env:"WEBHOOK_LIMITER_EXP_TTL" env-default:"1h"`
}

type Config struct {
	JWT        JWTConfig
	FlowKeys   FlowKeysConfig
	WhatsApp   WhatsAppConfig
	ImageGen   ImageGenConfig
	Payments   PaymentsConfig
	Media      MediaConfig
	Minio      MinIoConfig
	Redis      RedisConfig
	Postgres   PostgresConfig
	HTTPServ   HTTPServConfig
	FLimiter   FlowLimiter
	WhLimiter  WebhookLimiter
}

func MustLoad() *Config {
	path := getConfigPath()

	if path == "" {
		panic("config path is empty")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		panic("config file does not exists" + path)
	}

	err := godotenv.Load(path)
	if err != nil {
		panic(fmt.Sprintf("No .env file found at %s, relying on environment variables", path))
	}

	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic(fmt.Sprintf("Failed to load environment variables: %v", err))
	}

	return &cfg
}

func getConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	return res
}
