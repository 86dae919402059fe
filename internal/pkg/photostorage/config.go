package photostorage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/recapfood/recap-food-api/internal/pkg/env"
)

// Config holds S3 photo storage configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PublicBaseURL   string // Base URL photos are served from
	Enabled         bool
}

// LoadConfig loads S3 configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicBaseURL:   strings.TrimRight(env.GetEnv("S3_PUBLIC_BASE_URL", ""), "/"),
		Enabled:         env.GetEnv("S3_PHOTOS_ENABLED", "false") == "true",
	}

	// Validate required fields if photo storage is enabled
	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when photo storage is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when photo storage is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when photo storage is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if photo storage is enabled
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// GetObjectKey generates a standardized S3 object key for a listing photo
func (c *Config) GetObjectKey(listingUUID string, position int, fileExtension string) string {
	// Format: listings/UUID/NN.ext
	return fmt.Sprintf("listings/%s/%02d%s", listingUUID, position, fileExtension)
}

// PublicURL returns the public URL for an object key, or empty when no base
// URL is configured.
func (c *Config) PublicURL(objectKey string) string {
	if c.PublicBaseURL == "" {
		return ""
	}
	return c.PublicBaseURL + "/" + objectKey
}
