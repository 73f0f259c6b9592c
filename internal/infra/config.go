package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment
// variables, read once at process start.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string

	OpenAIAPIKey        string
	OpenAIBaseURL       string
	DetectModel         string
	DetectFallbackModel string
	DalleEditModel      string
	GPTEditModel        string
	EditRetries         int

	MaxUploadBytes  int64
	PipelineWorkers int

	// MirrorBackend selects the optional artifact mirror: "filesystem",
	// "s3", or empty to disable mirroring.
	MirrorBackend string
	StoragePath   string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3Bucket      string
	S3UseSSL      bool

	GeoIPDBPath string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		DetectModel:         getEnv("DETECT_MODEL", "gpt-4o-mini"),
		DetectFallbackModel: getEnv("DETECT_FALLBACK_MODEL", "gpt-4o"),
		DalleEditModel:      getEnv("DALLE_EDIT_MODEL", "dall-e-2"),
		GPTEditModel:        getEnv("GPT_EDIT_MODEL", "gpt-image-1"),
		EditRetries:         getEnvInt("EDIT_RETRIES", 0),

		MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_MB", 16)) * 1024 * 1024,
		PipelineWorkers: getEnvInt("PIPELINE_WORKERS", 4),

		MirrorBackend: os.Getenv("MIRROR_BACKEND"),
		StoragePath:   getEnv("STORAGE_PATH", "./storage"),
		S3Endpoint:    os.Getenv("S3_ENDPOINT"),
		S3AccessKey:   os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:   os.Getenv("S3_SECRET_KEY"),
		S3Bucket:      getEnv("S3_BUCKET", "shaggydog"),
		S3UseSSL:      getEnvBool("S3_USE_SSL", false),

		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if cfg.PipelineWorkers < 1 {
		cfg.PipelineWorkers = 1
	}
	if cfg.MirrorBackend == "s3" && (cfg.S3Endpoint == "" || cfg.S3AccessKey == "" || cfg.S3SecretKey == "") {
		return nil, fmt.Errorf("MIRROR_BACKEND=s3 requires S3_ENDPOINT, S3_ACCESS_KEY and S3_SECRET_KEY")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
