package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory    = "memory"
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
)

type Config struct {
	Server     ServerConfig
	App        AppConfig
	Store      StoreConfig
	Database   DatabaseConfig
	Firebase   FirebaseConfig
	Redis      RedisConfig
	LLM        LLMConfig
	PDF        PDFConfig
	Estimation EstimationConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

type AppConfig struct {
	ServiceName string
	Environment string
	LogLevel    string
	Version     string
}

type StoreConfig struct {
	Driver string
}

type DatabaseConfig struct {
	DSN            string
	ConnectTimeout time.Duration
	PingTimeout    time.Duration
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsPath string
}

// RedisConfig is optional. An empty Addr disables the synonym cache.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	SynonymTTL time.Duration
}

type LLMConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	ChatModel         string
	Timeout           time.Duration
	RequestsPerSecond float64
}

type PDFConfig struct {
	ExtractorURL string
	Timeout      time.Duration
	Port         string
	MaxBytes     int64
}

type EstimationConfig struct {
	HoursPerDay float64
}

func Load() (*Config, error) {
	cfg := load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadExtractor loads configuration for the standalone PDF extraction
// service, which needs neither a store nor model credentials.
func LoadExtractor() (*Config, error) {
	cfg := load()
	if cfg.PDF.Port == "" {
		return nil, fmt.Errorf("PDF_EXTRACTOR_PORT is required")
	}
	return cfg, nil
}

func load() *Config {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		App: AppConfig{
			ServiceName: getEnv("SERVICE_NAME", "estimation-backend"),
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", StoreFirestore)),
		},
		Database: DatabaseConfig{
			DSN:            getEnv("DB_DSN", ""),
			ConnectTimeout: getEnvAsDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
			PingTimeout:    getEnvAsDuration("DB_PING_TIMEOUT", 2*time.Second),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", ""),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("REDIS_DB", 0),
			SynonymTTL: getEnvAsDuration("SYNONYM_CACHE_TTL", 7*24*time.Hour),
		},
		LLM: LLMConfig{
			APIKey:            getEnv("OPENAI_API_KEY", ""),
			BaseURL:           getEnv("OPENAI_BASE_URL", ""),
			Model:             getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			ChatModel:         getEnv("OPENAI_CHAT_MODEL", "gpt-4-turbo-preview"),
			Timeout:           getEnvAsDuration("OPENAI_TIMEOUT", 0),
			RequestsPerSecond: getEnvAsFloat("OPENAI_RPS", 5),
		},
		PDF: PDFConfig{
			ExtractorURL: getEnv("PDF_EXTRACTOR_URL", "http://localhost:8082"),
			Timeout:      getEnvAsDuration("PDF_EXTRACTOR_TIMEOUT", 30*time.Second),
			Port:         getEnv("PDF_EXTRACTOR_PORT", "8082"),
			MaxBytes:     int64(getEnvAsInt("PDF_MAX_BYTES", 20<<20)),
		},
		Estimation: EstimationConfig{
			HoursPerDay: getEnvAsFloat("HOURS_PER_DAY", 8),
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Store.Driver {
	case StoreMemory, StoreFirestore:
	case StorePostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("DB_DSN is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	if c.LLM.APIKey == "" && c.App.Environment != "test" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	if c.Estimation.HoursPerDay <= 0 {
		return fmt.Errorf("HOURS_PER_DAY must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
