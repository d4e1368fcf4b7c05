package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type DatabaseConfig struct {
	URL      string
	MaxConns int32
}

type RabbitMQConfig struct {
	Enabled bool
	URL     string
}

type RESTconfig struct {
	PORT string
}

type StdoutLogConfig struct {
	Level string
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string
}

// ImportConfig - лимиты пакетного импорта
type ImportConfig struct {
	ChunkSize      int
	MaxJSONRecords int
	ErrorsLimit    int
	FailureFileTTL time.Duration
	UploadMaxBytes int64
}

// AppConfig хранит всю конфигурацию приложения
type AppConfig struct {
	AppName      string
	Database     DatabaseConfig
	RabbitMQ     RabbitMQConfig
	Rest         RESTconfig
	FluentBit    FluentBitConfig
	StdoutLogger StdoutLogConfig
	Import       ImportConfig
}

// LoadConfig читает .env (если он есть), затем переменные окружения
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath...)
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("could not parse .env file (path: %v): %w", envPath, err)
		}
		log.Printf("Info: .env file not found (path: %v), using process environment", envPath)
	}

	cfg := &AppConfig{}

	cfg.AppName = getEnvAsString("APP_NAME", "listing-ingest-service")

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	cfg.Database.MaxConns = int32(getEnvAsInt("DATABASE_MAX_CONNS", 0))

	cfg.Rest.PORT = getEnvAsString("PORT", "8080")

	cfg.RabbitMQ.Enabled = getEnvAsBool("RABBITMQ_ENABLED", false)
	if cfg.RabbitMQ.Enabled {
		cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
		if cfg.RabbitMQ.URL == "" {
			return nil, fmt.Errorf("RABBITMQ_URL environment variable is required when RABBITMQ_ENABLED is true")
		}
	}

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}
		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")

	cfg.Import.ChunkSize = getEnvAsInt("IMPORT_CHUNK_SIZE", 100)
	cfg.Import.MaxJSONRecords = getEnvAsInt("IMPORT_JSON_MAX_RECORDS", 10000)
	cfg.Import.ErrorsLimit = getEnvAsInt("IMPORT_ERRORS_LIMIT", 100)
	cfg.Import.FailureFileTTL = getEnvAsDuration("FAILURE_FILE_TTL", time.Hour)
	cfg.Import.UploadMaxBytes = int64(getEnvAsInt("UPLOAD_MAX_BYTES", 32<<20))

	if cfg.Import.ChunkSize <= 0 {
		return nil, fmt.Errorf("IMPORT_CHUNK_SIZE must be positive, got %d", cfg.Import.ChunkSize)
	}
	if cfg.Import.MaxJSONRecords <= 0 || cfg.Import.MaxJSONRecords > 10000 {
		return nil, fmt.Errorf("IMPORT_JSON_MAX_RECORDS must be between 1 and 10000, got %d", cfg.Import.MaxJSONRecords)
	}

	return cfg, nil
}

func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt логирует и возвращает значение по умолчанию, если переменная не число
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration принимает формат time.ParseDuration ("90s", "1h")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil || value <= 0 {
		log.Printf("Warning: Environment variable %s (value: %s) is not a positive duration. Using default value: %s\n", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
