package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/getmockd/soapdemo/pkg/logging"
	"github.com/getmockd/soapdemo/pkg/users"
)

// Default values
const (
	DefaultHost            = ""
	DefaultPort            = 8787
	DefaultAdminPort       = 8788
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxBodyBytes    = 10 << 20 // 10MB
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// Environment variable names
const (
	EnvPrefix          = "SOAPDEMO_"
	EnvConfig          = "SOAPDEMO_CONFIG"
	EnvHost            = "SOAPDEMO_HOST"
	EnvPort            = "SOAPDEMO_PORT"
	EnvAdminPort       = "SOAPDEMO_ADMIN_PORT"
	EnvPublicURL       = "SOAPDEMO_PUBLIC_URL"
	EnvReadTimeout     = "SOAPDEMO_READ_TIMEOUT"
	EnvWriteTimeout    = "SOAPDEMO_WRITE_TIMEOUT"
	EnvShutdownTimeout = "SOAPDEMO_SHUTDOWN_TIMEOUT"
	EnvMaxBodyBytes    = "SOAPDEMO_MAX_BODY_BYTES"
	EnvLogLevel        = "SOAPDEMO_LOG_LEVEL"
	EnvLogFormat       = "SOAPDEMO_LOG_FORMAT"
)

// Config source identifiers, recorded per key in Config.Sources.
const (
	SourceDefault = "default"
	SourceFile    = "file"
	SourceEnv     = "env"
	SourceFlag    = "flag"
)

// Config is the full service configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log" envPrefix:"LOG_"`

	// Seed replaces the built-in admin record. Absent keeps the default seed;
	// an explicit empty list starts with no users.
	Seed []SeedUser `yaml:"seed"`

	// Sources maps dotted keys (server.port) to where the value came from.
	Sources map[string]string `yaml:"-"`
}

// ServerConfig configures the listeners.
type ServerConfig struct {
	Host      string `yaml:"host" env:"HOST"`
	Port      int    `yaml:"port" env:"PORT"`
	AdminPort int    `yaml:"admin_port" env:"ADMIN_PORT"`
	// PublicURL overrides the scheme and host advertised in the WSDL.
	PublicURL       string        `yaml:"public_url" env:"PUBLIC_URL"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// SeedUser is a user record loaded at startup.
type SeedUser struct {
	ID        int       `yaml:"id"`
	Username  string    `yaml:"username"`
	Email     string    `yaml:"email"`
	CreatedAt time.Time `yaml:"created_at"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			AdminPort:       DefaultAdminPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			MaxBodyBytes:    DefaultMaxBodyBytes,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Sources: make(map[string]string),
	}
	for _, key := range keys {
		cfg.Sources[key] = SourceDefault
	}
	return cfg
}

// keys lists every dotted key tracked in Sources.
var keys = []string{
	"server.host", "server.port", "server.admin_port", "server.public_url",
	"server.read_timeout", "server.write_timeout", "server.shutdown_timeout",
	"server.max_body_bytes", "log.level", "log.format",
}

// Addr returns the SOAP listener address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// AdminAddr returns the admin listener address, or "" when it is disabled.
func (c *Config) AdminAddr() string {
	if c.Server.AdminPort == 0 {
		return ""
	}
	return c.Server.Host + ":" + strconv.Itoa(c.Server.AdminPort)
}

// SeedUsers converts Seed for users.WithSeed. A nil Seed yields the default
// admin record. Seeds without a creation time are stamped with now.
func (c *Config) SeedUsers(now time.Time) []users.User {
	if c.Seed == nil {
		return users.DefaultSeed()
	}
	out := make([]users.User, 0, len(c.Seed))
	for _, s := range c.Seed {
		created := s.CreatedAt
		if created.IsZero() {
			created = now
		}
		out = append(out, users.User{
			ID:        s.ID,
			Username:  s.Username,
			Email:     s.Email,
			CreatedAt: created.UTC(),
		})
	}
	return out
}

// SetSource records where key's value came from.
func (c *Config) SetSource(key, source string) {
	if c.Sources == nil {
		c.Sources = make(map[string]string)
	}
	c.Sources[key] = source
}

// Validate checks the configuration. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range 0-65535", c.Server.Port))
	}
	if c.Server.AdminPort < 0 || c.Server.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("server.admin_port %d out of range 0-65535", c.Server.AdminPort))
	}
	if c.Server.Port != 0 && c.Server.Port == c.Server.AdminPort {
		errs = append(errs, fmt.Errorf("server.admin_port must differ from server.port (%d)", c.Server.Port))
	}
	if c.Server.PublicURL != "" {
		u, err := url.Parse(c.Server.PublicURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.public_url %q must be an absolute http(s) URL", c.Server.PublicURL))
		}
	}
	for _, t := range []struct {
		key string
		d   time.Duration
	}{
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
	} {
		if t.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", t.key, t.d))
		}
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes))
	}
	if err := logging.ValidLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if err := logging.ValidFormat(c.Log.Format); err != nil {
		errs = append(errs, fmt.Errorf("log.format: %w", err))
	}

	ids := make(map[int]bool)
	names := make(map[string]bool)
	for i, s := range c.Seed {
		switch {
		case s.ID <= 0:
			errs = append(errs, fmt.Errorf("seed[%d]: id must be positive", i))
		case ids[s.ID]:
			errs = append(errs, fmt.Errorf("seed[%d]: duplicate id %d", i, s.ID))
		}
		switch {
		case s.Username == "":
			errs = append(errs, fmt.Errorf("seed[%d]: username is required", i))
		case names[s.Username]:
			errs = append(errs, fmt.Errorf("seed[%d]: duplicate username %q", i, s.Username))
		}
		ids[s.ID] = true
		names[s.Username] = true
	}

	return errors.Join(errs...)
}
