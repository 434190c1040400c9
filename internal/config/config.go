package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env              string
	HTTPAddr         string
	DatabaseURL      string
	JWTSecret        string
	JWTExpirySeconds int64
	MaxFileSizeBytes int64

	// Order math. Tax is a fixed absolute amount per order, not a rate.
	OrderTaxAmount  float64
	DiscountPercent float64

	// Payment reference minimums differ per surface: the POS confirm screen
	// and the public proof-of-payment form each have their own threshold.
	POSReferenceMinLength   int
	ProofReferenceMinLength int

	DeliveryBaseURL      string
	DeliveryAPIKey       string
	DeliveryQuoteTimeout time.Duration
	DeliveryFallbackFee  float64

	RabbitMQURL         string
	RabbitMQWorkerMode  string
	CorsAllowedOrigins  []string
	WSBadgePollInterval time.Duration

	ObjectStoreEndpoint        string
	ObjectStoreRegion          string
	ObjectStoreAccessKeyID     string
	ObjectStoreSecretAccessKey string
	ObjectStoreBucket          string
	ObjectStorePublicBaseURL   string

	// Restaurant identity, printed on receipts and used as the courier
	// pickup point.
	StoreName      string
	StoreAddress   string
	StorePhone     string
	StoreLatitude  float64
	StoreLongitude float64
}

func Load() Config {
	cfg := Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8090"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTExpirySeconds: getEnvInt64("JWT_EXPIRY", 3600),
		MaxFileSizeBytes: getEnvInt64("MAX_FILE_SIZE", 5*1024*1024),

		OrderTaxAmount:  getEnvFloat("ORDER_TAX_AMOUNT", 5.00),
		DiscountPercent: getEnvFloat("DISCOUNT_PERCENT", 20),

		POSReferenceMinLength:   int(getEnvInt64("POS_REFERENCE_MIN_LENGTH", 8)),
		ProofReferenceMinLength: int(getEnvInt64("PROOF_REFERENCE_MIN_LENGTH", 5)),

		DeliveryBaseURL:      getEnv("DELIVERY_BASE_URL", ""),
		DeliveryAPIKey:       getEnv("DELIVERY_API_KEY", ""),
		DeliveryQuoteTimeout: getEnvDuration("DELIVERY_QUOTE_TIMEOUT", 7*time.Second),
		DeliveryFallbackFee:  getEnvFloat("DELIVERY_FALLBACK_FEE", 50),

		RabbitMQURL:         getEnv("RABBITMQ_URL", ""),
		RabbitMQWorkerMode:  getEnv("RABBITMQ_WORKER_MODE", "daemon"),
		CorsAllowedOrigins:  splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
		WSBadgePollInterval: getEnvDuration("WS_BADGE_POLL_INTERVAL", 30*time.Second),

		ObjectStoreEndpoint:        getEnv("OBJECT_STORE_ENDPOINT", ""),
		ObjectStoreRegion:          getEnv("OBJECT_STORE_REGION", "auto"),
		ObjectStoreAccessKeyID:     getEnv("OBJECT_STORE_ACCESS_KEY_ID", ""),
		ObjectStoreSecretAccessKey: getEnv("OBJECT_STORE_SECRET_ACCESS_KEY", ""),
		ObjectStoreBucket:          getEnv("OBJECT_STORE_BUCKET", ""),
		ObjectStorePublicBaseURL:   getEnv("OBJECT_STORE_PUBLIC_BASE_URL", ""),

		StoreName:      getEnv("STORE_NAME", "Kusina"),
		StoreAddress:   getEnv("STORE_ADDRESS", ""),
		StorePhone:     getEnv("STORE_PHONE", ""),
		StoreLatitude:  getEnvFloat("STORE_LATITUDE", 0),
		StoreLongitude: getEnvFloat("STORE_LONGITUDE", 0),
	}

	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 5 * 1024 * 1024
	}
	if cfg.POSReferenceMinLength <= 0 {
		cfg.POSReferenceMinLength = 8
	}
	if cfg.ProofReferenceMinLength <= 0 {
		cfg.ProofReferenceMinLength = 5
	}

	return cfg
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
