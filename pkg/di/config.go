package di

import (
	"bytes"
	"io"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-cache-intercept/cache"
	"github.com/goliatone/go-cache-intercept/interceptor"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the document a Container is built from.
//
//	cache:
//	  capacity: 10000
//	  ttl: 5m
//	caches: [books, authors]
//	redis:
//	  addr: localhost:6379
//	  ttl: 10m
//	logger:
//	  level: debug
//	sites:
//	  Books.find:
//	    - cacheable: [books]
//	      key: "#isbn"
type Config struct {
	Cache  cache.Config                           `yaml:"cache"`
	Caches []string                               `yaml:"caches"`
	Redis  *RedisConfig                           `yaml:"redis"`
	Logger *LoggerConfig                          `yaml:"logger"`
	Sites  map[string][]interceptor.OperationSpec `yaml:"sites"`
}

// RedisConfig selects the redis backed manager.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// LoggerConfig builds the container's zap logger.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns an in-memory configuration with dynamic caches and no
// declarations.
func DefaultConfig() Config {
	return Config{Cache: cache.DefaultConfig()}
}

// Validate checks the configuration sections that are set.
func (c Config) Validate() error {
	if c.Redis == nil {
		if err := c.Cache.Validate(); err != nil {
			return errors.Wrap(err, "cache")
		}
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.Caches, validation.Each(validation.Required)),
		validation.Field(&c.Redis),
		validation.Field(&c.Logger),
	)
}

// Validate implements validation.Validatable.
func (r RedisConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Addr, validation.Required),
		validation.Field(&r.DB, validation.Min(0)),
		validation.Field(&r.TTL, validation.Min(time.Duration(0))),
	)
}

// Validate implements validation.Validatable.
func (l LoggerConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.By(func(value any) error {
			if s, _ := value.(string); s != "" {
				if _, err := zapcore.ParseLevel(s); err != nil {
					return err
				}
			}
			return nil
		})),
		validation.Field(&l.Format, validation.In("", "console", "json")),
	)
}

// Document returns the site declarations as an interceptor document.
func (c Config) Document() interceptor.Document {
	return interceptor.Document{Sites: c.Sites}
}

// LoadConfig decodes a YAML document on top of DefaultConfig. Unknown fields
// are rejected.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "decode container config")
	}
	return cfg, nil
}

// LoadConfigFile reads the YAML document at path.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read container config %s", path)
	}
	return LoadConfig(bytes.NewReader(data))
}

func (l LoggerConfig) build() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if l.Level != "" {
		parsed, err := zapcore.ParseLevel(l.Level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	var zc zap.Config
	if l.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableStacktrace = true
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}
