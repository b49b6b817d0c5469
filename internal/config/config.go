// Package config loads the questline runtime configuration.
//
// Values are layered: built-in defaults, then the YAML file, then
// QUESTLINE_* environment variables. Command flags are applied last by the CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/aretw0/questline/internal/validation"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultFile is read from the working directory when no path is given.
	DefaultFile = "questline.yaml"

	// EnvPrefix prefixes every environment override, e.g. QUESTLINE_REDIS_ADDR.
	EnvPrefix = "QUESTLINE_"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the full runtime configuration.
type Config struct {
	Store  StoreConfig  `json:"store" mapstructure:"store"`
	Redis  RedisConfig  `json:"redis" mapstructure:"redis"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
	HTTP   HTTPConfig   `json:"http" mapstructure:"http"`
	Engine EngineConfig `json:"engine" mapstructure:"engine"`
	Log    LogConfig    `json:"log" mapstructure:"log"`

	// Source is the file the configuration was read from, empty when none was.
	Source string `json:"-" mapstructure:"-"`
}

type StoreConfig struct {
	Backend string `json:"backend" mapstructure:"backend" validate:"oneof=memory file redis sqlite"`
	Dir     string `json:"dir" mapstructure:"dir" validate:"required"`

	// EncryptionKey is a base64 AES-256 key. When set, session names, guilds
	// and node descriptions are sealed before they reach the backend.
	EncryptionKey string `json:"-" mapstructure:"encryption_key" validate:"omitempty,base64"`

	// PreviousKeys still open sessions sealed before a key rotation.
	PreviousKeys []string `json:"-" mapstructure:"previous_keys" validate:"dive,base64"`
}

type RedisConfig struct {
	Addr     string        `json:"addr" mapstructure:"addr" validate:"required"`
	Password string        `json:"-" mapstructure:"password"`
	DB       int           `json:"db" mapstructure:"db" validate:"gte=0"`
	Prefix   string        `json:"prefix" mapstructure:"prefix"`
	TTL      time.Duration `json:"ttl" mapstructure:"ttl" validate:"gte=0"`

	// Lock enables the distributed session lock when the redis backend is used.
	Lock    bool          `json:"lock" mapstructure:"lock"`
	LockTTL time.Duration `json:"lock_ttl" mapstructure:"lock_ttl" validate:"gte=0"`
}

type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path" validate:"required"`
}

type HTTPConfig struct {
	Port    int  `json:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	Metrics bool `json:"metrics" mapstructure:"metrics"`
}

type EngineConfig struct {
	AllowSelfLoops bool `json:"allow_self_loops" mapstructure:"allow_self_loops"`
}

type LogConfig struct {
	Level  string `json:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" mapstructure:"format" validate:"oneof=text json"`
}

func defaults() map[string]any {
	return map[string]any{
		"store": map[string]any{
			"backend":        BackendFile,
			"dir":            ".questline",
			"encryption_key": "",
			"previous_keys":  []string{},
		},
		"redis": map[string]any{
			"addr":     "localhost:6379",
			"password": "",
			"db":       0,
			"prefix":   "questline:",
			"ttl":      "0s",
			"lock":     true,
			"lock_ttl": "30s",
		},
		"sqlite": map[string]any{
			"path": ".questline/questline.db",
		},
		"http": map[string]any{
			"port":    8080,
			"metrics": true,
		},
		"engine": map[string]any{
			"allow_self_loops": false,
		},
		"log": map[string]any{
			"level":  "info",
			"format": "text",
		},
	}
}

// Default returns the configuration used when no file or environment is present.
func Default() *Config {
	cfg, err := decode(defaults())
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads path, overlays the environment and validates the result.
// An empty path reads DefaultFile if it exists.
func Load(path string) (*Config, error) {
	return LoadEnv(path, os.Environ())
}

// LoadEnv is Load with an explicit environment in os.Environ form.
func LoadEnv(path string, environ []string) (*Config, error) {
	values := defaults()

	source, err := readFile(path, values)
	if err != nil {
		return nil, err
	}
	applyEnv(values, environ)

	cfg, err := decode(values)
	if err != nil {
		return nil, err
	}
	cfg.Source = source

	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func readFile(path string, values map[string]any) (string, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: %w", err)
	}

	var file map[string]any
	if err := yaml.Unmarshal(data, &file); err != nil {
		return "", fmt.Errorf("config: parse %s: %w", path, err)
	}
	merge(values, file)
	return path, nil
}

// merge copies src into dst, descending into nested maps.
func merge(dst, src map[string]any) {
	for k, v := range src {
		sub, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		existing, ok := dst[k].(map[string]any)
		if !ok {
			existing = make(map[string]any)
			dst[k] = existing
		}
		merge(existing, sub)
	}
}

// applyEnv overrides every known section key from QUESTLINE_<SECTION>_<KEY>.
func applyEnv(values map[string]any, environ []string) {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}
	if len(env) == 0 {
		return
	}

	for section, keys := range defaults() {
		for key := range keys.(map[string]any) {
			name := EnvPrefix + strings.ToUpper(section+"_"+key)
			v, ok := env[name]
			if !ok {
				continue
			}
			sec, ok := values[section].(map[string]any)
			if !ok {
				sec = make(map[string]any)
				values[section] = sec
			}
			sec[key] = v
		}
	}
}

func decode(values map[string]any) (*Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(values); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
