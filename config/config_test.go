package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"BASE_URL", "HEADLESS", "WAIT_TIMEOUT_MS", "REPORT_POSTGRES", "ARTIFACTS_DIR"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "https://www.cp.pt/passageiros/en", cfg.BaseURL)
	assert.True(t, cfg.Headless)
	assert.False(t, cfg.ReportPostgres)
	assert.Equal(t, 15*time.Second, cfg.WaitTimeout())
	assert.Equal(t, "./output/artifacts", cfg.ArtifactsDir)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BASE_URL", "http://127.0.0.1:8080/en")
	t.Setenv("HEADLESS", "false")
	t.Setenv("WAIT_TIMEOUT_MS", "500")
	t.Setenv("POLL_INTERVAL_MS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "http://127.0.0.1:8080/en", cfg.BaseURL)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 500*time.Millisecond, cfg.WaitTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval(), "invalid ints fall back to the default")
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost:     "db",
		PostgresPort:     "5433",
		PostgresUser:     "u",
		PostgresPassword: "p",
		PostgresDB:       "runs",
		PostgresSSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=runs sslmode=disable", cfg.DSN())
}
