package archive

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/focusgate/focusgate-server/internal/pkg/env"
)

// Config holds the payload archive settings. Archiving is optional: when
// disabled the webhook pipeline simply runs without an archiver.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // optional, for S3-compatible services
	Enabled         bool
}

// LoadConfig reads the archive configuration from environment variables.
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-west-001"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Enabled:         env.GetEnv("WEBHOOK_ARCHIVE_ENABLED", "false") == "true",
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when webhook archiving is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when webhook archiving is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when webhook archiving is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if payload archiving is enabled.
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// ObjectKey builds the key a payload is stored under. Event ids can carry a
// "hash:" prefix when the provider sent none; colons are flattened so the
// key stays portable across S3-compatible stores.
func (c *Config) ObjectKey(provider, providerEventID string, at time.Time) string {
	safeID := strings.ReplaceAll(providerEventID, ":", "-")
	return fmt.Sprintf("webhooks/%s/%04d/%02d/%s.json", provider, at.Year(), int(at.Month()), safeID)
}

// GetAppEnv returns the current application environment.
func GetAppEnv() string {
	return env.GetEnv("APP_ENV", "dev")
}
