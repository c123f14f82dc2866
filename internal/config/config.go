package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Auth     AuthConfig
	Ai       AIConfig
	Storage  StorageConfig
	Notify   NotifyConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	RealtimeLogPath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	InstanceID         string
	QueueBufferSize    int
}

type DatabaseConfig struct {
	Connection  string
	AutoMigrate bool
	Verbose     bool
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type AuthConfig struct {
	// JWTSecret guards mutating claim routes when set.
	JWTSecret string
}

type AIConfig struct {
	LLMProvider  string // "ollama", "openai", "huggingface", "azure" or "none"
	LLMModel     string
	LLMBaseURL   string
	LLMAPIKey    string
	LLMTimeout   time.Duration
	XRayEndpoint string
	XRayKey      string
	XRayTimeout  time.Duration
	// DisabledStages lists stage names whose collaborator is left unset.
	DisabledStages []string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLExpiry time.Duration
}

type NotifyConfig struct {
	DecisionEmail string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	hostname, _ := os.Hostname()

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			RealtimeLogPath:    getEnv("REALTIME_LOG_FILE_PATH", "logs/realtime.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			InstanceID:         getEnv("INSTANCE_ID", hostname),
			QueueBufferSize:    getEnvAsInt("QUEUE_BUFFER_SIZE", 64),
		},
		Database: DatabaseConfig{
			Connection:  getEnv("DB_CONNECTION_STRING", ""),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", true),
			Verbose:     getEnvAsBool("DB_VERBOSE", false),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Claim Pipeline"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:       getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:     getEnv("LLM_BASE_URL", ""),
			LLMAPIKey:      getEnv("LLM_API_KEY", ""),
			LLMTimeout:     getEnvAsDuration("LLM_TIMEOUT", 120*time.Second),
			XRayEndpoint:   getEnv("XRAY_PREDICTION_ENDPOINT", ""),
			XRayKey:        getEnv("XRAY_PREDICTION_KEY", ""),
			XRayTimeout:    getEnvAsDuration("XRAY_TIMEOUT", 30*time.Second),
			DisabledStages: getEnvAsList("DISABLED_STAGES"),
		},
		Storage: StorageConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "claims"),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
			URLExpiry: getEnvAsDuration("MINIO_URL_EXPIRY", 15*time.Minute),
		},
		Notify: NotifyConfig{
			DecisionEmail: getEnv("DECISION_NOTIFY_EMAIL", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
