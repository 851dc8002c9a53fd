package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DETECTION_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "DATABASE_PASSWORD", "API_KEYS"} {
		t.Setenv(k, "")
	}
}

func TestParse_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte("detection:\n  apiKey: k\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "gemini", cfg.Detection.Provider)
	assert.Equal(t, 3, cfg.Detection.MaxRetries)
	assert.Equal(t, time.Second, cfg.Detection.RetryDelay)
	assert.Equal(t, "memory", cfg.History.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 2.0, cfg.Server.RateLimit.PerSecond)
	assert.Equal(t, 10, cfg.Server.RateLimit.Burst)
}

func TestParse_FullFile(t *testing.T) {
	clearEnv(t)
	yaml := `
server:
  port: 9000
  corsOrigins: ["https://dash.example"]
  apiKeys:
    grower: s3cret
detection:
  provider: openai
  model: gpt-4o
  apiKey: sk-test
  maxRetries: 5
  retryDelay: 250ms
history:
  backend: mysql
  migrate: true
database:
  host: db
  user: app
  password: pw
  name: verdant
minio:
  enabled: true
  endpoint: minio:9000
  bucketName: photos
  presignTTL: 1h
`
	cfg, err := Parse([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"https://dash.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, map[string]string{"grower": "s3cret"}, cfg.Server.APIKeys)
	assert.Equal(t, 5, cfg.Detection.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Detection.RetryDelay)
	assert.True(t, cfg.History.Migrate)
	assert.Equal(t, time.Hour, cfg.Minio.PresignTTL)
	assert.Equal(t, "app:pw@tcp(db:3306)/verdant?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
}

func TestParse_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("DATABASE_PASSWORD", "from-env")
	t.Setenv("API_KEYS", "alice:k1, bob:k2,broken")

	cfg, err := Parse([]byte("detection:\n  provider: openai\nhistory:\n  backend: postgres\npostgres:\n  host: pg\n  user: app\n  name: verdant\n"))
	require.NoError(t, err)

	assert.Equal(t, "sk-env", cfg.Detection.APIKey)
	assert.Equal(t, map[string]string{"alice": "k1", "bob": "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, "host=pg port=5432 user=app password=from-env dbname=verdant sslmode=disable", cfg.PostgresDSN())
}

func TestParse_GeminiVertexNeedsNoKey(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte("detection:\n  project: my-gcp-project\n"))
	require.NoError(t, err)
	assert.Equal(t, "us-central1", cfg.Detection.Location)
}

func TestValidate_Errors(t *testing.T) {
	clearEnv(t)
	for name, yaml := range map[string]string{
		"no credentials":   "detection:\n  provider: gemini\n",
		"openai no key":    "detection:\n  provider: openai\n",
		"unknown provider": "detection:\n  provider: llama\n  apiKey: k\n",
		"negative retries": "detection:\n  apiKey: k\n  maxRetries: -1\n",
		"mysql no host":    "detection:\n  apiKey: k\nhistory:\n  backend: mysql\n",
		"firestore no id":  "detection:\n  apiKey: k\nhistory:\n  backend: firestore\n",
		"unknown backend":  "detection:\n  apiKey: k\nhistory:\n  backend: redis\n",
		"minio no bucket":  "detection:\n  apiKey: k\nminio:\n  enabled: true\n  endpoint: minio:9000\n",
		"gcs no bucket":    "detection:\n  apiKey: k\ngcs:\n  enabled: true\n",
		"two photo stores": "detection:\n  apiKey: k\nminio:\n  enabled: true\n  endpoint: m:9000\n  bucketName: b\ngcs:\n  enabled: true\n  bucketName: b\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("detection:\n  apiKey: k\nserver:\n  port: 7000\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
