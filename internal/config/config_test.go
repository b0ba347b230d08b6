package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Database.Source != SourceMongo {
		t.Errorf("Database.Source = %q, want %q", cfg.Database.Source, SourceMongo)
	}
	if cfg.Database.URI != "mongodb://localhost:27017/" {
		t.Errorf("Database.URI = %q, want localhost default", cfg.Database.URI)
	}
	if cfg.Database.Name != "vikalp_db" || cfg.Database.Collection != "agri_demand" {
		t.Errorf("Database = %s/%s, want vikalp_db/agri_demand", cfg.Database.Name, cfg.Database.Collection)
	}
	if cfg.Database.QueryTimeout != 15*time.Second {
		t.Errorf("Database.QueryTimeout = %v, want 15s", cfg.Database.QueryTimeout)
	}
	if cfg.Address() != "localhost:5000" {
		t.Errorf("Address() = %q, want localhost:5000", cfg.Address())
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MONGO_URI", "mongodb://db.internal:27017/")
	t.Setenv("MONGO_QUERY_TIMEOUT", "3s")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SECURITY_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.URI != "mongodb://db.internal:27017/" {
		t.Errorf("Database.URI = %q", cfg.Database.URI)
	}
	if cfg.Database.QueryTimeout != 3*time.Second {
		t.Errorf("Database.QueryTimeout = %v, want 3s", cfg.Database.QueryTimeout)
	}
	if cfg.Logger.Format != "text" {
		t.Errorf("Logger.Format = %q, want text", cfg.Logger.Format)
	}
	origins := cfg.Security.AllowedOrigins
	if len(origins) != 2 || origins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", origins)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"port out of range", "SERVER_PORT", "70000", "server port"},
		{"unknown source", "DATA_SOURCE", "postgres", "invalid data source"},
		{"bad log level", "LOG_LEVEL", "verbose", "invalid log level"},
		{"bad log format", "LOG_FORMAT", "xml", "invalid log format"},
		{"negative rps", "SECURITY_RATE_LIMIT_RPS", "-1", "rate limit RPS"},
		{"zero query timeout", "MONGO_QUERY_TIMEOUT", "0s", "query timeout"},
		{"zero connect timeout", "MONGO_CONNECT_TIMEOUT", "0s", "connect timeout"},
		{"negative pool size", "MONGO_MAX_POOL_SIZE", "-1", "max pool size"},
		{"zero pool size", "MONGO_MAX_POOL_SIZE", "0", "max pool size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_CSVSource(t *testing.T) {
	t.Setenv("DATA_SOURCE", "csv")
	t.Setenv("CSV_FILE", "testdata/records.csv")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Database.CSVFile != "testdata/records.csv" {
		t.Errorf("CSVFile = %q", cfg.Database.CSVFile)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("MONGO_DB_NAME=from_dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MONGO_DB_NAME", "")
	os.Unsetenv("MONGO_DB_NAME")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() failed: %v", err)
	}
	if got := os.Getenv("MONGO_DB_NAME"); got != "from_dotenv" {
		t.Errorf("MONGO_DB_NAME = %q, want from_dotenv", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("LoadDotEnv() with missing file should not fail, got %v", err)
	}
}

func TestValidate_SourceSpecificFields(t *testing.T) {
	base := func() Config {
		return Config{
			Server:   ServerConfig{Port: 5000, ReadTimeout: time.Second, WriteTimeout: time.Second},
			Database: DatabaseConfig{ConnectTimeout: time.Second, QueryTimeout: time.Second, MaxPoolSize: 10},
			Logger:   LoggerConfig{Level: "info", Format: "json"},
			Security: SecurityConfig{RateLimitRPS: 1, RateLimitBurst: 1},
		}
	}

	csv := base()
	csv.Database.Source = SourceCSV
	csv.Database.CSVFile = "records.csv"
	if err := csv.validate(); err != nil {
		t.Errorf("csv source without mongo settings: %v", err)
	}

	mongo := base()
	mongo.Database.Source = SourceMongo
	mongo.Database.Name = "vikalp_db"
	mongo.Database.Collection = "agri_demand"
	err := mongo.validate()
	if err == nil || !strings.Contains(err.Error(), "mongo URI cannot be empty") {
		t.Errorf("validate() = %v, want missing URI error", err)
	}
}
