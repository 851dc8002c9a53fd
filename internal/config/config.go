package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"corsOrigins"`
		// APIKeys maps user id -> key. Empty disables auth.
		APIKeys   map[string]string `yaml:"apiKeys"`
		RateLimit struct {
			PerSecond float64 `yaml:"perSecond"`
			Burst     int     `yaml:"burst"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Detection struct {
		Provider   string        `yaml:"provider"` // openai | gemini
		Model      string        `yaml:"model"`
		APIKey     string        `yaml:"apiKey"`
		BaseURL    string        `yaml:"baseURL"`
		Project    string        `yaml:"project"`
		Location   string        `yaml:"location"`
		MaxRetries int           `yaml:"maxRetries"`
		RetryDelay time.Duration `yaml:"retryDelay"`
	} `yaml:"detection"`

	History struct {
		Backend string `yaml:"backend"` // memory | mysql | postgres | firestore
		Migrate bool   `yaml:"migrate"`
	} `yaml:"history"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Postgres struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"postgres"`

	Firestore struct {
		ProjectID  string `yaml:"projectID"`
		DatabaseID string `yaml:"databaseID"`
		Collection string `yaml:"collection"`
	} `yaml:"firestore"`

	Minio struct {
		Enabled    bool          `yaml:"enabled"`
		Endpoint   string        `yaml:"endpoint"`
		AccessKey  string        `yaml:"accessKey"`
		SecretKey  string        `yaml:"secretKey"`
		BucketName string        `yaml:"bucketName"`
		Region     string        `yaml:"region"`
		UseSSL     bool          `yaml:"useSSL"`
		PresignTTL time.Duration `yaml:"presignTTL"`
	} `yaml:"minio"`

	// GCS alternative photo store on Cloud Storage
	GCS struct {
		Enabled    bool   `yaml:"enabled"`
		BucketName string `yaml:"bucketName"`
	} `yaml:"gcs"`
}

// Load baca file config.yaml, lalu override dari env
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse config dari bytes YAML
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// secrets lebih aman lewat env
func (c *Config) applyEnv() {
	if v := os.Getenv("DETECTION_API_KEY"); v != "" {
		c.Detection.APIKey = v
	}
	if c.Detection.APIKey == "" {
		switch c.Detection.Provider {
		case "openai":
			c.Detection.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			c.Detection.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
		c.Postgres.Password = v
	}
	// API_KEYS=user1:key1,user2:key2
	if v := os.Getenv("API_KEYS"); v != "" {
		keys := map[string]string{}
		for _, pair := range strings.Split(v, ",") {
			user, key, ok := strings.Cut(strings.TrimSpace(pair), ":")
			if ok && user != "" && key != "" {
				keys[user] = key
			}
		}
		c.Server.APIKeys = keys
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit.PerSecond == 0 {
		c.Server.RateLimit.PerSecond = 2
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Detection.Provider == "" {
		c.Detection.Provider = "gemini"
	}
	if c.Detection.MaxRetries == 0 {
		c.Detection.MaxRetries = 3
	}
	if c.Detection.RetryDelay == 0 {
		c.Detection.RetryDelay = time.Second
	}
	if c.Detection.Location == "" {
		c.Detection.Location = "us-central1"
	}
	if c.History.Backend == "" {
		c.History.Backend = "memory"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
}

// Validate cek kombinasi config yang wajib
func (c *Config) Validate() error {
	switch c.Detection.Provider {
	case "openai":
		if c.Detection.APIKey == "" {
			return fmt.Errorf("detection.apiKey (or OPENAI_API_KEY) is required for provider openai")
		}
	case "gemini":
		if c.Detection.APIKey == "" && c.Detection.Project == "" {
			return fmt.Errorf("detection.apiKey (or GEMINI_API_KEY) or detection.project is required for provider gemini")
		}
	default:
		return fmt.Errorf("unknown detection.provider %q (allowed: openai, gemini)", c.Detection.Provider)
	}
	if c.Detection.MaxRetries < 1 {
		return fmt.Errorf("detection.maxRetries must be >= 1")
	}

	switch c.History.Backend {
	case "memory":
	case "mysql":
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for history backend mysql")
		}
	case "postgres":
		if c.Postgres.Host == "" || c.Postgres.Name == "" {
			return fmt.Errorf("postgres.host and postgres.name are required for history backend postgres")
		}
	case "firestore":
		if c.Firestore.ProjectID == "" {
			return fmt.Errorf("firestore.projectID is required for history backend firestore")
		}
	default:
		return fmt.Errorf("unknown history.backend %q (allowed: memory, mysql, postgres, firestore)", c.History.Backend)
	}

	if c.Minio.Enabled && (c.Minio.Endpoint == "" || c.Minio.BucketName == "") {
		return fmt.Errorf("minio.endpoint and minio.bucketName are required when minio is enabled")
	}
	if c.GCS.Enabled && c.GCS.BucketName == "" {
		return fmt.Errorf("gcs.bucketName is required when gcs is enabled")
	}
	if c.Minio.Enabled && c.GCS.Enabled {
		return fmt.Errorf("only one of minio and gcs can be enabled")
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.Name,
		c.Postgres.SSLMode,
	)
}
