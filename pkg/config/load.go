package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// LocalConfigFileName is picked up from the working directory when no
	// config file is named explicitly.
	LocalConfigFileName = "soapdemo.yaml"
	// LocalEnvFileName is the optional dotenv file read from the working directory.
	LocalEnvFileName = ".env"
)

// ErrFileNotFound is returned when an explicitly named file does not exist.
var ErrFileNotFound = errors.New("configuration file not found")

// ConfigError is a configuration file problem with location info.
type ConfigError struct {
	Path    string
	Line    int
	Message string
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return e.Path + " (line " + strconv.Itoa(e.Line) + "): " + e.Message
	}
	return e.Path + ": " + e.Message
}

// LoadOptions selects the inputs to Load.
type LoadOptions struct {
	// ConfigFile is a YAML file. Empty falls back to SOAPDEMO_CONFIG, then to
	// soapdemo.yaml in the working directory if present.
	ConfigFile string
	// EnvFile is a dotenv file. Empty falls back to .env if present.
	EnvFile string
	// Environ overrides os.Environ, mainly for tests.
	Environ []string
}

// Load builds a Config from defaults, the YAML file, the dotenv file and the
// environment, each layer overriding the previous one. Real environment
// variables win over dotenv entries. Flags are applied by the caller.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	vars := envMap(environ)

	dotenv, err := readEnvFile(opts.EnvFile)
	if err != nil {
		return nil, err
	}
	for k, v := range vars {
		dotenv[k] = v
	}
	vars = dotenv

	path, explicit := opts.ConfigFile, opts.ConfigFile != ""
	if path == "" {
		path, explicit = vars[EnvConfig], vars[EnvConfig] != ""
	}
	if path == "" {
		if _, err := os.Stat(LocalConfigFileName); err == nil {
			path = LocalConfigFileName
		}
	}
	if path != "" {
		if err := loadFile(cfg, path, explicit); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, vars); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && explicit {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return parseYAML(cfg, path, data)
}

// lineRegex pulls the line number out of yaml.v3 error text.
var lineRegex = regexp.MustCompile(`line (\d+)`)

func parseYAML(cfg *Config, path string, data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var present map[string]any
	_ = yaml.Unmarshal(data, &present)

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		cerr := &ConfigError{Path: path, Message: strings.TrimPrefix(err.Error(), "yaml: ")}
		if m := lineRegex.FindStringSubmatch(err.Error()); m != nil {
			cerr.Line, _ = strconv.Atoi(m[1])
		}
		return cerr
	}

	for section, v := range present {
		fields, ok := v.(map[string]any)
		if !ok {
			continue
		}
		for field := range fields {
			cfg.SetSource(section+"."+field, SourceFile)
		}
	}
	return nil
}

func readEnvFile(path string) (map[string]string, error) {
	explicit := path != ""
	if path == "" {
		path = LocalEnvFileName
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return map[string]string{}, nil
		}
		return nil, &ConfigError{Path: path, Message: err.Error()}
	}
	return vars, nil
}

func applyEnv(cfg *Config, vars map[string]string) error {
	err := env.ParseWithOptions(cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: vars,
		OnSet: func(tag string, value any, isDefault bool) {
			if isDefault || fmt.Sprint(value) == "" {
				return
			}
			if key, ok := envKeys[strings.TrimPrefix(tag, EnvPrefix)]; ok {
				cfg.SetSource(key, SourceEnv)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}
	return nil
}

// envKeys maps environment names, without the prefix, to dotted config keys.
var envKeys = map[string]string{
	"HOST":             "server.host",
	"PORT":             "server.port",
	"ADMIN_PORT":       "server.admin_port",
	"PUBLIC_URL":       "server.public_url",
	"READ_TIMEOUT":     "server.read_timeout",
	"WRITE_TIMEOUT":    "server.write_timeout",
	"SHUTDOWN_TIMEOUT": "server.shutdown_timeout",
	"MAX_BODY_BYTES":   "server.max_body_bytes",
	"LOG_LEVEL":        "log.level",
	"LOG_FORMAT":       "log.format",
}

func envMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}
