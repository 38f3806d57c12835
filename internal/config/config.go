package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Configはアプリ全体の設定。起動時に一度だけ読み、各コンストラクタへ明示的に渡す。
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	DBDriver    string // postgres / sqlite
	DatabaseURL string // DSN。空なら POSTGRES_* から組み立てる

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string

	JWTSecret string // JWT署名シークレット

	RedisAddr     string // 空ならキャッシュ無効、ゲストセッションはcookieだけで扱う
	RedisPassword string
	CatalogTTL    time.Duration
	GuestTTL      time.Duration

	StorageDisk      string // local / s3
	StorageLocalRoot string
	S3Bucket         string
	S3Region         string
	S3Key            string
	S3Secret         string
	S3Endpoint       string

	PaymentDriver        string // provider / upi
	PaymentAPIBase       string
	PaymentAPIKey        string
	PaymentWebhookSecret string
	UPIID                string

	StoreName    string
	Currency     string
	SiteURL      string
	CookieSecure bool
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

// Loadは .env（あれば）と環境変数から読む
func Load() (Config, error) {
	_ = godotenv.Load()

	pgPort, err := atoiDefault("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	catalogTTL, err := durationDefault("CATALOG_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	guestTTL, err := durationDefault("GUEST_SESSION_TTL", 14*24*time.Hour)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:  getenv("PORT", "8080"),
		GoEnv: os.Getenv("GO_ENV"),

		DBDriver:    getenv("DB_DRIVER", "postgres"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       getenv("POSTGRES_DB", "digistore"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CatalogTTL:    catalogTTL,
		GuestTTL:      guestTTL,

		StorageDisk:      getenv("STORAGE_DISK", "local"),
		StorageLocalRoot: getenv("STORAGE_LOCAL_ROOT", "storage/app"),
		S3Bucket:         os.Getenv("S3_BUCKET"),
		S3Region:         getenv("S3_REGION", "us-east-1"),
		S3Key:            os.Getenv("S3_KEY"),
		S3Secret:         os.Getenv("S3_SECRET"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),

		PaymentDriver:        getenv("PAYMENT_DRIVER", "upi"),
		PaymentAPIBase:       strings.TrimRight(os.Getenv("PAYMENT_API_BASE"), "/"),
		PaymentAPIKey:        os.Getenv("PAYMENT_API_KEY"),
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		UPIID:                os.Getenv("UPI_ID"),

		StoreName:    getenv("STORE_NAME", "Digital Store"),
		Currency:     getenv("CURRENCY", "INR"),
		SiteURL:      strings.TrimRight(getenv("SITE_URL", "http://localhost:8080"), "/"),
		CookieSecure: envBool("COOKIE_SECURE", true),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

//必須チェック
func (c Config) validate() error {
	if c.GoEnv == "" {
		return fmt.Errorf("GO_ENV is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.PaymentWebhookSecret == "" {
		return fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required")
	}

	switch c.DBDriver {
	case "postgres":
		if c.DatabaseURL == "" && c.PostgresPassword == "" {
			return fmt.Errorf("DATABASE_URL or POSTGRES_PASSWORD is required")
		}
	case "sqlite":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.StorageDisk {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DISK %q", c.StorageDisk)
	}

	switch c.PaymentDriver {
	case "provider":
		if c.PaymentAPIBase == "" {
			return fmt.Errorf("PAYMENT_API_BASE is required")
		}
		if c.PaymentAPIKey == "" {
			return fmt.Errorf("PAYMENT_API_KEY is required")
		}
	case "upi":
		if c.UPIID == "" {
			return fmt.Errorf("UPI_ID is required")
		}
	default:
		return fmt.Errorf("unsupported PAYMENT_DRIVER %q", c.PaymentDriver)
	}

	return nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True":
		return true
	case "0", "false", "FALSE", "False":
		return false
	default:
		return def
	}
}
