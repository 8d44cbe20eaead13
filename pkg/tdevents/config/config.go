// Package config loads client and transport settings from YAML files,
// .env files and the process environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tdevents/tdevents-go/pkg/tdevents"
)

// ErrMissingAPIKey is returned when a transport needs an API key and none is
// configured.
var ErrMissingAPIKey = errors.New("config: api_key is required")

// Config holds every setting a client and its ingest transport accept.
// Zero values select the library defaults.
type Config struct {
	APIKey          string `yaml:"api_key"`
	Endpoint        string `yaml:"endpoint"`
	DefaultDatabase string `yaml:"default_database"`

	SessionTimeout time.Duration `yaml:"session_timeout"`

	ServerSideUploadTimestamp       bool   `yaml:"server_side_upload_timestamp"`
	ServerSideUploadTimestampColumn string `yaml:"server_side_upload_timestamp_column"`
	AutoAppendRecordUUID            bool   `yaml:"auto_append_record_uuid"`
	RecordUUIDColumn                string `yaml:"record_uuid_column"`

	// Category toggles; nil keeps the client default.
	CustomEvents        *bool `yaml:"custom_events"`
	AppLifecycleEvents  *bool `yaml:"app_lifecycle_events"`
	InAppPurchaseEvents *bool `yaml:"in_app_purchase_events"`

	MaxQueueSize   int           `yaml:"max_queue_size"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxRetries     *int          `yaml:"max_retries"`
}

// LoadConfig reads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML configuration. Unknown keys are rejected and
// ${VAR} references in api_key are expanded from the environment.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	cfg.APIKey = os.ExpandEnv(cfg.APIKey)
	return cfg, nil
}

// Validate checks the configured values.
func (c *Config) Validate() error {
	var errs []error
	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("config: endpoint %q must be an absolute http(s) URL", c.Endpoint))
		}
	}
	if c.DefaultDatabase != "" {
		if err := tdevents.ValidateDatabaseName(c.DefaultDatabase); err != nil {
			errs = append(errs, fmt.Errorf("config: default_database: %w", err))
		}
	}
	if c.SessionTimeout < 0 {
		errs = append(errs, errors.New("config: session_timeout must not be negative"))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, errors.New("config: request_timeout must not be negative"))
	}
	if c.MaxQueueSize < 0 {
		errs = append(errs, errors.New("config: max_queue_size must not be negative"))
	}
	if c.MaxRetries != nil && *c.MaxRetries < 0 {
		errs = append(errs, errors.New("config: max_retries must not be negative"))
	}
	return errors.Join(errs...)
}

// ClientOptions converts the client-side settings into options for
// tdevents.NewClient. Transport settings are applied by the transport's own
// constructor.
func (c *Config) ClientOptions() []tdevents.ClientOption {
	opts := []tdevents.ClientOption{
		tdevents.WithDefaultDatabase(c.DefaultDatabase),
		tdevents.WithSessionTimeout(c.SessionTimeout),
	}
	if c.ServerSideUploadTimestamp {
		opts = append(opts, tdevents.WithServerSideUploadTimestamp(c.ServerSideUploadTimestampColumn))
	}
	if c.AutoAppendRecordUUID {
		opts = append(opts, tdevents.WithAutoAppendRecordUUID(c.RecordUUIDColumn))
	}
	if c.CustomEvents != nil {
		opts = append(opts, tdevents.WithEventCategory(tdevents.CategoryCustom, *c.CustomEvents))
	}
	if c.AppLifecycleEvents != nil {
		opts = append(opts, tdevents.WithEventCategory(tdevents.CategoryAppLifecycle, *c.AppLifecycleEvents))
	}
	if c.InAppPurchaseEvents != nil {
		opts = append(opts, tdevents.WithEventCategory(tdevents.CategoryInAppPurchase, *c.InAppPurchaseEvents))
	}
	return opts
}
