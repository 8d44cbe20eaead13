// env.go reads configuration from TD_* environment variables.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvAPIKey                          = "TD_API_KEY"
	EnvEndpoint                        = "TD_ENDPOINT"
	EnvDefaultDatabase                 = "TD_DEFAULT_DATABASE"
	EnvSessionTimeout                  = "TD_SESSION_TIMEOUT"
	EnvServerSideUploadTimestamp       = "TD_SERVER_SIDE_UPLOAD_TIMESTAMP"
	EnvServerSideUploadTimestampColumn = "TD_SERVER_SIDE_UPLOAD_TIMESTAMP_COLUMN"
	EnvAutoAppendRecordUUID            = "TD_AUTO_APPEND_RECORD_UUID"
	EnvRecordUUIDColumn                = "TD_RECORD_UUID_COLUMN"
	EnvCustomEvents                    = "TD_CUSTOM_EVENTS"
	EnvAppLifecycleEvents              = "TD_APP_LIFECYCLE_EVENTS"
	EnvInAppPurchaseEvents             = "TD_IN_APP_PURCHASE_EVENTS"
	EnvMaxQueueSize                    = "TD_MAX_QUEUE_SIZE"
	EnvRequestTimeout                  = "TD_REQUEST_TIMEOUT"
	EnvMaxRetries                      = "TD_MAX_RETRIES"
)

// ConfigFromEnv reads configuration from the process environment.
func ConfigFromEnv() (*Config, error) {
	return configFromLookup(os.LookupEnv)
}

// ConfigFromEnvFile reads configuration from .env files (default: ".env").
// Variables already set in the process environment take precedence.
func ConfigFromEnvFile(paths ...string) (*Config, error) {
	values, err := godotenv.Read(paths...)
	if err != nil {
		return nil, fmt.Errorf("config: read env file: %w", err)
	}
	return configFromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	})
}

type lookupFunc func(key string) (string, bool)

func configFromLookup(lookup lookupFunc) (*Config, error) {
	p := envParser{lookup: lookup}
	cfg := &Config{
		APIKey:                          p.str(EnvAPIKey),
		Endpoint:                        p.str(EnvEndpoint),
		DefaultDatabase:                 p.str(EnvDefaultDatabase),
		SessionTimeout:                  p.duration(EnvSessionTimeout),
		ServerSideUploadTimestamp:       p.flag(EnvServerSideUploadTimestamp),
		ServerSideUploadTimestampColumn: p.str(EnvServerSideUploadTimestampColumn),
		AutoAppendRecordUUID:            p.flag(EnvAutoAppendRecordUUID),
		RecordUUIDColumn:                p.str(EnvRecordUUIDColumn),
		CustomEvents:                    p.boolean(EnvCustomEvents),
		AppLifecycleEvents:              p.boolean(EnvAppLifecycleEvents),
		InAppPurchaseEvents:             p.boolean(EnvInAppPurchaseEvents),
		RequestTimeout:                  p.duration(EnvRequestTimeout),
	}
	if n := p.integer(EnvMaxQueueSize); n != nil {
		cfg.MaxQueueSize = *n
	}
	cfg.MaxRetries = p.integer(EnvMaxRetries)

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envParser collects parse errors so every bad variable is reported at once.
type envParser struct {
	lookup lookupFunc
	errs   []error
}

func (p *envParser) str(key string) string {
	v, _ := p.lookup(key)
	return v
}

func (p *envParser) fail(key, v string, err error) {
	p.errs = append(p.errs, fmt.Errorf("config: %s=%q: %w", key, v, err))
}

func (p *envParser) duration(key string) time.Duration {
	v, ok := p.lookup(key)
	if !ok || v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return 0
	}
	return d
}

func (p *envParser) boolean(key string) *bool {
	v, ok := p.lookup(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return nil
	}
	return &b
}

func (p *envParser) flag(key string) bool {
	b := p.boolean(key)
	return b != nil && *b
}

func (p *envParser) integer(key string) *int {
	v, ok := p.lookup(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return nil
	}
	return &n
}
