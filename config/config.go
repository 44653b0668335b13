/* SPDX-License-Identifier: BSD-2-Clause */

// Package config loads httpio File settings from a file and the environment.
//
// Environment variables use the HTTPIO_ prefix with dots replaced by
// underscores, e.g. HTTPIO_SECTOR_SIZE=64KiB or HTTPIO_LOGGING_LEVEL=debug.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/ricardobranco777/httpio"
	"github.com/ricardobranco777/httpio/internal/logutil"
)

// ByteSize is a size that accepts human-readable forms like "64KiB" or "1MB".
type ByteSize int64

// Config is the on-disk form of a File's options.
type Config struct {
	// URL of the resource. Optional: callers may pass the URL themselves.
	URL string `mapstructure:"url" validate:"omitempty,url"`

	// SectorSize of the cache. Zero disables caching.
	SectorSize ByteSize `mapstructure:"sector_size" validate:"gte=0"`

	// Store selects the sector store: "memory" or "mmap".
	Store string `mapstructure:"store" validate:"oneof=memory mmap"`

	Headers  map[string]string `mapstructure:"headers"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password" validate:"required_with=Username"`

	// Timeout bounds each probe and fetch. Zero means none.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`

	// Conditional makes fetches fail once the resource changes.
	Conditional bool `mapstructure:"conditional"`

	// RateLimit in requests per second. Zero means unlimited.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst int     `mapstructure:"rate_burst" validate:"gte=0"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// LoggingConfig selects the slog handler used by Logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
	Output string `mapstructure:"output" validate:"oneof=stdout stderr"`
}

var validate = validator.New()

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		SectorSize: httpio.NoCache,
		Store:      "memory",
		RateBurst:  1,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads path (if non-empty and present) and HTTPIO_* variables over the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("HTTPIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AutomaticEnv only sees keys viper already knows about.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("url", d.URL)
	v.SetDefault("sector_size", int64(d.SectorSize))
	v.SetDefault("store", d.Store)
	v.SetDefault("username", d.Username)
	v.SetDefault("password", d.Password)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("conditional", d.Conditional)
	v.SetDefault("rate_limit", d.RateLimit)
	v.SetDefault("rate_burst", d.RateBurst)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", httpio.ErrInvalidArgument, strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// Logger builds the configured slog-backed logger.
func (c *Config) Logger() (httpio.Logger, error) {
	var w io.Writer = os.Stderr
	if c.Logging.Output == "stdout" {
		w = os.Stdout
	}
	return logutil.NewSlog(w, c.Logging.Level, c.Logging.Format)
}

// Options converts the configuration into File options.
func (c *Config) Options() ([]httpio.Option, error) {
	logger, err := c.Logger()
	if err != nil {
		return nil, err
	}

	opts := []httpio.Option{
		httpio.WithSectorSize(int64(c.SectorSize)),
		httpio.WithLogger(logger),
	}
	if c.Store == "mmap" {
		opts = append(opts, httpio.WithSectorStore(httpio.MmapStore))
	}
	for k, val := range c.Headers {
		opts = append(opts, httpio.WithHeader(k, val))
	}
	if c.Username != "" {
		opts = append(opts, httpio.WithBasicAuth(c.Username, c.Password))
	}
	if c.Timeout > 0 {
		opts = append(opts, httpio.WithTimeout(c.Timeout))
	}
	if c.Conditional {
		opts = append(opts, httpio.WithConditional())
	}
	if c.RateLimit > 0 {
		opts = append(opts, httpio.WithRateLimit(rate.Limit(c.RateLimit), max(c.RateBurst, 1)))
	}
	return opts, nil
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

// byteSizeDecodeHook accepts "64KiB", "1 MB" and plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			n, err := humanize.ParseBytes(v)
			if err != nil {
				return nil, fmt.Errorf("invalid size %q: %w", v, err)
			}
			return ByteSize(n), nil
		case int:
			return ByteSize(v), nil
		case int64:
			return ByteSize(v), nil
		case uint64:
			return ByteSize(v), nil
		case float64:
			return ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// String renders the size for humans.
func (b ByteSize) String() string {
	if b < 0 {
		return fmt.Sprintf("%d B", int64(b))
	}
	return humanize.IBytes(uint64(b))
}
