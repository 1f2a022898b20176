package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"basic-cleaning/models"
	"basic-cleaning/utils"
)

const (
	RegistryFile     = "file"
	RegistryPostgres = "postgres"

	BlobFS    = "fs"
	BlobMinio = "minio"
)

// Config holds the backend configuration loaded from environment variables.
// Job arguments come from command-line flags, not from here.
type Config struct {
	Project string

	RegistryBackend string
	BlobBackend     string
	ArtifactRoot    string
	CacheDir        string

	PostgresHost            string
	PostgresPort            string
	PostgresUser            string
	PostgresPassword        string
	PostgresDB              string
	PostgresSSLMode         string
	RegistryConnectAttempts int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	PushgatewayURL string
	LogLevel       utils.Level
}

// Load reads the .env file (if any) and returns a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] could not read .env: %v", err)
	}

	root := getEnv("ARTIFACT_ROOT", "./.artifacts")
	cfg := &Config{
		Project: getEnv("TRACKING_PROJECT", "nyc_airbnb"),

		RegistryBackend: strings.ToLower(getEnv("REGISTRY_BACKEND", RegistryFile)),
		BlobBackend:     strings.ToLower(getEnv("BLOB_BACKEND", BlobFS)),
		ArtifactRoot:    root,
		CacheDir:        getEnv("ARTIFACT_CACHE_DIR", root+"/cache"),

		PostgresHost:            getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:            getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:            getEnv("POSTGRES_USER", "tracker"),
		PostgresPassword:        getEnv("POSTGRES_PASSWORD", "tracker123"),
		PostgresDB:              getEnv("POSTGRES_DB", "tracking_db"),
		PostgresSSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
		RegistryConnectAttempts: getEnvInt("REGISTRY_CONNECT_ATTEMPTS", 5),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getEnv("MINIO_BUCKET", "artifacts"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		PushgatewayURL: getEnv("PUSHGATEWAY_URL", ""),
	}

	level, err := utils.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, &models.ConfigError{Key: "LOG_LEVEL", Err: err}
	}
	cfg.LogLevel = level

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.RegistryBackend {
	case RegistryFile, RegistryPostgres:
	default:
		return &models.ConfigError{Key: "REGISTRY_BACKEND",
			Err: fmt.Errorf("unknown backend %q (want %s or %s)", c.RegistryBackend, RegistryFile, RegistryPostgres)}
	}
	switch c.BlobBackend {
	case BlobFS, BlobMinio:
	default:
		return &models.ConfigError{Key: "BLOB_BACKEND",
			Err: fmt.Errorf("unknown backend %q (want %s or %s)", c.BlobBackend, BlobFS, BlobMinio)}
	}
	if c.BlobBackend == BlobMinio && c.MinioBucket == "" {
		return &models.ConfigError{Key: "MINIO_BUCKET", Err: fmt.Errorf("must not be empty")}
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
