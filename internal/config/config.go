package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	SourceMongo = "mongo"
	SourceCSV   = "csv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int           `validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects the record source. Mongo settings are only
// required for the mongo source and CSVFile only for csv.
type DatabaseConfig struct {
	Source         string        `validate:"oneof=mongo csv"`
	URI            string        `validate:"required_if=Source mongo"`
	Name           string        `validate:"required_if=Source mongo"`
	Collection     string        `validate:"required_if=Source mongo"`
	CSVFile        string        `validate:"required_if=Source csv"`
	ConnectTimeout time.Duration `validate:"gt=0"`
	QueryTimeout   time.Duration `validate:"gt=0"`
	MaxPoolSize    uint64        `validate:"gt=0,max=1000"`
}

type LoggerConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json text"`
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int `validate:"gt=0"`
	RateLimitBurst  int `validate:"gt=0"`
	AllowedOrigins  []string
	TrustedProxies  []string
}

var validate = validator.New()

// Messages for rejected fields, keyed by struct namespace.
var fieldMessages = map[string]string{
	"Config.Server.Port":             "server port must be between 1 and 65535",
	"Config.Server.ReadTimeout":      "server read timeout must be positive",
	"Config.Server.WriteTimeout":     "server write timeout must be positive",
	"Config.Database.Source":         "invalid data source, must be one of: mongo, csv",
	"Config.Database.URI":            "mongo URI cannot be empty",
	"Config.Database.Name":           "mongo database name cannot be empty",
	"Config.Database.Collection":     "mongo collection name cannot be empty",
	"Config.Database.CSVFile":        "CSV file path cannot be empty",
	"Config.Database.ConnectTimeout": "connect timeout must be positive",
	"Config.Database.QueryTimeout":   "query timeout must be positive",
	"Config.Database.MaxPoolSize":    "max pool size must be between 1 and 1000",
	"Config.Logger.Level":            "invalid log level, must be one of: debug, info, warn, error",
	"Config.Logger.Format":           "invalid log format, must be one of: json, text",
	"Config.Security.RateLimitRPS":   "rate limit RPS must be positive",
	"Config.Security.RateLimitBurst": "rate limit burst must be positive",
}

// LoadDotEnv loads variables from the given files (".env" when none are
// named) without overriding the process environment. Missing files are
// not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 5000),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Source:         getEnvString("DATA_SOURCE", SourceMongo),
			URI:            getEnvString("MONGO_URI", "mongodb://localhost:27017/"),
			Name:           getEnvString("MONGO_DB_NAME", "vikalp_db"),
			Collection:     getEnvString("MONGO_COLLECTION", "agri_demand"),
			CSVFile:        getEnvString("CSV_FILE", "agri_demand.csv"),
			ConnectTimeout: getEnvDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
			QueryTimeout:   getEnvDuration("MONGO_QUERY_TIMEOUT", 15*time.Second),
			MaxPoolSize:    uint64(getEnvInt("MONGO_MAX_POOL_SIZE", 50)),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 50),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 20),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:5000"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fe := fieldErrs[0]
	if msg, ok := fieldMessages[fe.Namespace()]; ok {
		return fmt.Errorf("%s, got %q", msg, fmt.Sprint(fe.Value()))
	}
	return fmt.Errorf("%s failed %s", fe.Namespace(), fe.Tag())
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
