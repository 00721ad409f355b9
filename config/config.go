package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	BaseURL      string
	ChromeBin    string
	Headless     bool
	WindowWidth  int
	WindowHeight int

	WaitTimeoutMs    int
	SpinnerTimeoutMs int
	PollIntervalMs   int
	StepPauseMs      int
	LoginWaitMs      int

	ArtifactsDir  string
	ReportCSVPath string
	LogDebug      bool

	ReportPostgres   bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		BaseURL:      getEnv("BASE_URL", "https://www.cp.pt/passageiros/en"),
		ChromeBin:    getEnv("CHROME_BIN", ""),
		Headless:     getEnvBool("HEADLESS", true),
		WindowWidth:  getEnvInt("WINDOW_WIDTH", 1920),
		WindowHeight: getEnvInt("WINDOW_HEIGHT", 1080),

		WaitTimeoutMs:    getEnvInt("WAIT_TIMEOUT_MS", 15000),
		SpinnerTimeoutMs: getEnvInt("SPINNER_TIMEOUT_MS", 6000),
		PollIntervalMs:   getEnvInt("POLL_INTERVAL_MS", 250),
		StepPauseMs:      getEnvInt("STEP_PAUSE_MS", 1500),
		LoginWaitMs:      getEnvInt("LOGIN_WAIT_MS", 10000),

		ArtifactsDir:  getEnv("ARTIFACTS_DIR", "./output/artifacts"),
		ReportCSVPath: getEnv("REPORT_CSV_PATH", "./output/runs.csv"),
		LogDebug:      getEnvBool("LOG_DEBUG", false),

		ReportPostgres:   getEnvBool("REPORT_POSTGRES", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scenario"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scenario123"),
		PostgresDB:       getEnv("POSTGRES_DB", "cp_tickets"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
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

func (c *Config) WaitTimeout() time.Duration {
	return time.Duration(c.WaitTimeoutMs) * time.Millisecond
}

func (c *Config) SpinnerTimeout() time.Duration {
	return time.Duration(c.SpinnerTimeoutMs) * time.Millisecond
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c *Config) StepPause() time.Duration {
	return time.Duration(c.StepPauseMs) * time.Millisecond
}

func (c *Config) LoginWait() time.Duration {
	return time.Duration(c.LoginWaitMs) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}
