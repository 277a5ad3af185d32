package main

import (
	"os"
	"time"

	"github.com/moehandi/envconf"
	"github.com/sirupsen/logrus"
)

// Configuration combines every declaration style the loader understands.
type Configuration struct {
	Name        string
	Version     *string
	Port        uint16 `envDefault:"8080"`
	Debug       bool   `env:",default"`
	DatabaseURL string `env:"DATABASE_CONNECTION_STRING"`

	// APP_API_KEY or APP_API_KEY_FILE
	APIKey     string  `env:",file"`
	OAuthToken *string `env:",file"`

	Tags     []string           `env:",conv=json"`
	Metadata *map[string]string `env:",conv=json"`
	Timeout  time.Duration      `envDefault:"30s"`
}

func main() {
	// mock environment
	os.Setenv("APP_NAME", "my-application")
	os.Setenv("APP_VERSION", "1.0.0")
	os.Setenv("APP_DATABASE_CONNECTION_STRING", "postgres://localhost/db")
	os.Setenv("APP_TAGS", `["production","api"]`)

	secret, err := os.CreateTemp("", "api-key")
	if err != nil {
		logrus.Fatalf("create secret: %v", err)
	}
	defer os.Remove(secret.Name())
	secret.WriteString("super-secret-key")
	secret.Close()
	os.Setenv("APP_API_KEY_FILE", secret.Name())

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg, err := envconf.FromEnv[Configuration](envconf.WithPrefix("APP_"), envconf.WithLogger(logger))
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	logger.Infof("name=%s port=%d debug=%v timeout=%s", cfg.Name, cfg.Port, cfg.Debug, cfg.Timeout)
	if cfg.Version != nil {
		logger.Infof("version=%s", *cfg.Version)
	}
	logger.Infof("database=%s tags=%v api key length=%d", cfg.DatabaseURL, cfg.Tags, len(cfg.APIKey))
	logger.Infof("oauth token set=%v metadata set=%v", cfg.OAuthToken != nil, cfg.Metadata != nil)
}
