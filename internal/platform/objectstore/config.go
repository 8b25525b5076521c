package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quadflow-labs/quadflow-go/internal/platform/env"
)

type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Region        string
	UseSSL        bool
	BucketSources string
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("QUADFLOW_MINIO_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:      env.String("QUADFLOW_MINIO_ENDPOINT", "localhost:9000"),
		AccessKey:     env.String("QUADFLOW_MINIO_ACCESS_KEY", "quadflow"),
		SecretKey:     env.String("QUADFLOW_MINIO_SECRET_KEY", "quadflowminio"),
		Region:        env.String("QUADFLOW_MINIO_REGION", "us-east-1"),
		UseSSL:        useSSL,
		BucketSources: env.String("QUADFLOW_MINIO_BUCKET_SOURCES", "data-sources"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.TrimSpace(c.BucketSources) == "" {
		return errors.New("sources bucket is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}
