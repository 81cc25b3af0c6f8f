// internal/config/config.go
package config

import (
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultStorageBaseURL = "https://storage.googleapis.com"
	DefaultUploadBaseURL  = "https://storage.googleapis.com/upload/storage/v1"
)

type Config struct {
	Server   ServerConfig
	GCS      GCSConfig
	Audit    AuditConfig
	Database DatabaseConfig
	Cache    CacheConfig
}

type ServerConfig struct {
	Port         string
	Mode         string
	LogLevel     string
	ReadTimeout  int
	WriteTimeout int
}

// GCSConfig holds everything the upload pipeline needs to reach Cloud Storage.
// ProjectID, KeyFile and Bucket are required at request time, not at startup.
type GCSConfig struct {
	ProjectID      string
	KeyFile        string // service-account key JSON, not a path
	Bucket         string
	TokenURL       string // overrides the key file's token_uri when set
	StorageBaseURL string
	UploadBaseURL  string
}

type AuditConfig struct {
	Sink                   string
	Table                  string
	SupabaseURL            string
	SupabaseServiceRoleKey string
	SQLitePath             string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	StreamMaxLen  int64
}

var (
	once     sync.Once
	instance *Config
)

// Load builds the process-wide configuration once, from the environment and
// an optional .env file.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		instance = New(viper.New())
	})

	return instance
}

// New builds a Config from v. It reads the environment through v but keeps
// no global state, so tests can build independent values with t.Setenv.
func New(v *viper.Viper) *Config {
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Mode:         v.GetString("SERVER_MODE"),
			LogLevel:     v.GetString("LOG_LEVEL"),
			ReadTimeout:  v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetInt("SERVER_WRITE_TIMEOUT"),
		},
		GCS: GCSConfig{
			ProjectID:      strings.TrimSpace(v.GetString("GOOGLE_CLOUD_PROJECT_ID")),
			KeyFile:        v.GetString("GOOGLE_CLOUD_KEY_FILE"),
			Bucket:         strings.TrimSpace(v.GetString("GOOGLE_CLOUD_STORAGE_BUCKET")),
			TokenURL:       strings.TrimSpace(v.GetString("GOOGLE_CLOUD_TOKEN_URL")),
			StorageBaseURL: v.GetString("GCS_STORAGE_BASE_URL"),
			UploadBaseURL:  v.GetString("GCS_UPLOAD_BASE_URL"),
		},
		Audit: AuditConfig{
			Sink:                   strings.ToLower(strings.TrimSpace(v.GetString("AUDIT_SINK"))),
			Table:                  v.GetString("AUDIT_TABLE"),
			SupabaseURL:            v.GetString("SUPABASE_URL"),
			SupabaseServiceRoleKey: v.GetString("SUPABASE_SERVICE_ROLE_KEY"),
			SQLitePath:             v.GetString("AUDIT_SQLITE_PATH"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			RedisURL:      v.GetString("REDIS_URL"),
			RedisHost:     v.GetString("REDIS_HOST"),
			RedisPort:     v.GetString("REDIS_PORT"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			StreamMaxLen:  v.GetInt64("AUDIT_STREAM_MAXLEN"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("SERVER_READ_TIMEOUT", 0)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 0)
	v.SetDefault("GOOGLE_CLOUD_PROJECT_ID", "")
	v.SetDefault("GOOGLE_CLOUD_KEY_FILE", "")
	v.SetDefault("GOOGLE_CLOUD_STORAGE_BUCKET", "")
	v.SetDefault("GOOGLE_CLOUD_TOKEN_URL", "")
	v.SetDefault("GCS_STORAGE_BASE_URL", DefaultStorageBaseURL)
	v.SetDefault("GCS_UPLOAD_BASE_URL", DefaultUploadBaseURL)
	v.SetDefault("AUDIT_SINK", "supabase")
	v.SetDefault("AUDIT_TABLE", "upload_logs")
	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_SERVICE_ROLE_KEY", "")
	v.SetDefault("AUDIT_SQLITE_PATH", "./data/audit.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "roadreport")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("AUDIT_STREAM_MAXLEN", 10000)
}
