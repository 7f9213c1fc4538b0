package config

import (
	"os"
	"strconv"
	"time"

	"davinci-allocation/internal/common/database"
	commonredis "davinci-allocation/internal/common/redis"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// MockAPIKey puts the directory into mock mode.
const MockAPIKey = "test_key"

// Config davinci-allocation settings
type Config struct {
	HTTP struct {
		Addr string
	}
	Log struct {
		Level  string
		Format string
	}
	Store struct {
		Backend        string
		DataDir        string
		SQLitePath     string
		AllocationsKey string // redis key
	}
	Database  database.Config
	Redis     commonredis.Config
	Directory DirectoryConfig
	Email     EmailConfig
	Notify    NotifyConfig
	// JobFormSpreadsheet default workbook for spreadsheet sync
	JobFormSpreadsheet string
	// CompatibilitySeed seeds the schedule compatibility placeholder; 0 means time based.
	CompatibilitySeed int64
}

// DirectoryConfig teacher directory (Crimson App) API
type DirectoryConfig struct {
	APIKey           string
	BaseURL          string
	Timeout          time.Duration
	MockTeachersFile string
}

// Mock reports whether the in-process mock directory should be used.
func (c DirectoryConfig) Mock() bool { return c.APIKey == MockAPIKey }

// EmailConfig confirmation mail settings
type EmailConfig struct {
	Server   string
	Port     int
	Username string
	Password string
	From     string
	Send     bool // false: log instead of sending
}

// NotifyConfig extra confirmation event sinks
type NotifyConfig struct {
	Stream string // redis stream, empty disables
	MQTT   struct {
		Enabled  bool
		Broker   string
		ClientID string
		Username string
		Password string
		Topic    string
	}
}

// Load reads .env (if present) and then the environment.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Store.Backend = getEnv("STORE_BACKEND", StoreFile)
	cfg.Store.DataDir = getEnv("DATA_DIR", "data")
	cfg.Store.SQLitePath = getEnv("SQLITE_PATH", "data/allocations.db")
	cfg.Store.AllocationsKey = getEnv("REDIS_ALLOCATIONS_KEY", "davinci:allocations")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "davinci")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Directory.APIKey = getEnv("CRIMSON_APP_API_KEY", MockAPIKey)
	cfg.Directory.BaseURL = getEnv("CRIMSON_APP_API_URL", "https://api.crimsonapp.example.com")
	cfg.Directory.Timeout = parseDuration(getEnv("DIRECTORY_TIMEOUT", "10s"), 10*time.Second)
	cfg.Directory.MockTeachersFile = getEnv("MOCK_TEACHERS_FILE", "data/mock_teachers.json")

	cfg.Email.Server = getEnv("EMAIL_SERVER", "smtp.example.com")
	cfg.Email.Port = parseInt(getEnv("EMAIL_PORT", "587"), 587)
	cfg.Email.Username = getEnv("EMAIL_USER", "noreply@cga.edu")
	cfg.Email.Password = getEnv("EMAIL_PASSWORD", "")
	cfg.Email.From = getEnv("EMAIL_FROM", "davinci@cga.edu")
	cfg.Email.Send = getEnv("SEND_EMAILS", "false") == "true"

	cfg.Notify.Stream = getEnv("NOTIFY_STREAM", "")
	cfg.Notify.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.Notify.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.Notify.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "davinci-allocation")
	cfg.Notify.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.Notify.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.Notify.MQTT.Topic = getEnv("MQTT_TOPIC", "davinci/allocations/confirmed")

	cfg.JobFormSpreadsheet = getEnv("JOB_FORM_SPREADSHEET", "data/sample_job_forms.xlsx")
	cfg.CompatibilitySeed = int64(parseInt(getEnv("COMPATIBILITY_SEED", "0"), 0))

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
