package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultLocations are the studio labels crawled when none are configured.
var DefaultLocations = []string{
	"All Locations",
	"Kwality House, Kemps Corner",
	"Supreme HQ, Bandra",
	"Kenkere House",
}

// DefaultMaxRowsPerTable caps raw-row tables.
const DefaultMaxRowsPerTable = 10000

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DataSource string
	DataDir    string
	SQLitePath string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	Pages           []string
	Locations       []string
	IncludeTables   bool
	IncludeMetrics  bool
	MaxRowsPerTable int
	Concurrency     int
	MaxRetries      int

	ExportFormat string
	ExportDir    string
	ChromeBin    string
	LogLevel     string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return fromEnv()
}

// LoadFile reads the given env files (later files do not override earlier
// ones) and returns a populated Config struct.
func LoadFile(paths ...string) (*Config, error) {
	if err := godotenv.Load(paths...); err != nil {
		return nil, err
	}
	return fromEnv(), nil
}

func fromEnv() *Config {
	return &Config{
		DataSource: strings.ToLower(getEnv("DATA_SOURCE", "files")),
		DataDir:    getEnv("DATA_DIR", "./data"),
		SQLitePath: getEnv("SQLITE_PATH", "./data/studio.db"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "studio"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "studio123"),
		PostgresDB:       getEnv("POSTGRES_DB", "studio_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		Pages:           getEnvList("CRAWL_PAGES", nil),
		Locations:       getEnvList("CRAWL_LOCATIONS", DefaultLocations),
		IncludeTables:   getEnvBool("CRAWL_INCLUDE_TABLES", true),
		IncludeMetrics:  getEnvBool("CRAWL_INCLUDE_METRICS", true),
		MaxRowsPerTable: getEnvInt("MAX_ROWS_PER_TABLE", DefaultMaxRowsPerTable),
		Concurrency:     getEnvInt("CRAWL_CONCURRENCY", 1),
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),

		ExportFormat: strings.ToLower(getEnv("EXPORT_FORMAT", "csv")),
		ExportDir:    getEnv("EXPORT_DIR", "./output"),
		ChromeBin:    getEnv("CHROME_BIN", ""),
		LogLevel:     strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
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

// getEnvList splits a semicolon- or pipe-separated list. Commas are not used
// as separators because location labels contain them.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.FieldsFunc(val, func(r rune) bool { return r == ';' || r == '|' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
