// Package config loads scribe settings from an optional YAML file and the environment.
package config

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/scribe/internal/logging"
	"github.com/aretw0/scribe/pkg/segment"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no explicit path is given and the file exists.
const DefaultPath = "scribe.yaml"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

type Config struct {
	LogLevel      string          `mapstructure:"log_level"`
	HTTP          HTTPConfig      `mapstructure:"http"`
	Telegram      TelegramConfig  `mapstructure:"telegram"`
	Store         StoreConfig     `mapstructure:"store"`
	Allowlist     AllowlistConfig `mapstructure:"allowlist"`
	TitleTemplate string          `mapstructure:"title_template"`
	Timezone      string          `mapstructure:"timezone"`
	MaxInputSize  int             `mapstructure:"max_input_size"`
	// Conjunctions overrides the words split on as a last resort, e.g. ["и", "and"].
	Conjunctions []string `mapstructure:"conjunctions"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
	// Token, when set, is required as "Authorization: Bearer <token>" on /v1.
	Token string `mapstructure:"token"`
}

type TelegramConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Token       string        `mapstructure:"token"`
	APIURL      string        `mapstructure:"api_url"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
	DedupSize   int           `mapstructure:"dedup_size"`
}

type StoreConfig struct {
	Driver        string        `mapstructure:"driver"`
	Path          string        `mapstructure:"path"`
	TTL           time.Duration `mapstructure:"ttl"`
	EncryptionKey string        `mapstructure:"encryption_key"`
	Redis         RedisConfig   `mapstructure:"redis"`
	LockTTL       time.Duration `mapstructure:"lock_ttl"`
}

type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	Prefix        string `mapstructure:"prefix"`
	HistoryPrefix string `mapstructure:"history_prefix"`
}

type AllowlistConfig struct {
	// Users are usernames (with or without '@') or numeric user IDs.
	Users []string `mapstructure:"users"`
	// Owners maps a connection ID to the ID of its owning account.
	Owners map[string]string `mapstructure:"owners"`
}

func defaults() map[string]any {
	return map[string]any{
		"log_level": "info",
		"http": map[string]any{
			"addr": "127.0.0.1:8080",
		},
		"telegram": map[string]any{
			"enabled":      false,
			"api_url":      "https://api.telegram.org",
			"poll_timeout": "30s",
			"dedup_size":   1024,
		},
		"store": map[string]any{
			"driver":   DriverMemory,
			"lock_ttl": "30s",
			"redis": map[string]any{
				"addr":           "localhost:6379",
				"prefix":         "scribe:pending:",
				"history_prefix": "scribe:history:",
			},
		},
	}
}

// envBindings maps environment variables to config paths.
var envBindings = []struct {
	env  string
	path string
}{
	{"SCRIBE_LOG_LEVEL", "log_level"},
	{"SCRIBE_HTTP_ADDR", "http.addr"},
	{"SCRIBE_HTTP_TOKEN", "http.token"},
	{"SCRIBE_TELEGRAM_ENABLED", "telegram.enabled"},
	{"SCRIBE_TELEGRAM_TOKEN", "telegram.token"},
	{"SCRIBE_TELEGRAM_API_URL", "telegram.api_url"},
	{"SCRIBE_TELEGRAM_POLL_TIMEOUT", "telegram.poll_timeout"},
	{"SCRIBE_STORE_DRIVER", "store.driver"},
	{"SCRIBE_STORE_PATH", "store.path"},
	{"SCRIBE_STORE_TTL", "store.ttl"},
	{"SCRIBE_STORE_ENCRYPTION_KEY", "store.encryption_key"},
	{"SCRIBE_REDIS_ADDR", "store.redis.addr"},
	{"SCRIBE_REDIS_PASSWORD", "store.redis.password"},
	{"SCRIBE_REDIS_DB", "store.redis.db"},
	{"SCRIBE_ALLOWLIST_USERS", "allowlist.users"},
	{"SCRIBE_TITLE_TEMPLATE", "title_template"},
	{"SCRIBE_TIMEZONE", "timezone"},
	{"SCRIBE_MAX_INPUT_SIZE", "max_input_size"},
	{"SCRIBE_CONJUNCTIONS", "conjunctions"},
}

// Load reads path (or DefaultPath when path is empty and the file exists),
// overlays the environment and decodes the result.
func Load(path string) (*Config, error) {
	raw := defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var file map[string]any
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		merge(raw, file)
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No config file; defaults plus environment.
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := overlayEnv(raw, os.LookupEnv); err != nil {
		return nil, err
	}

	cfg, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(raw map[string]any) (*Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: &cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

func overlayEnv(raw map[string]any, lookup func(string) (string, bool)) error {
	// Names used by the original bot deployment.
	if v, ok := lookup("BOT_TOKEN"); ok && v != "" {
		set(raw, "telegram.token", v)
		set(raw, "telegram.enabled", true)
	}
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		if err := applyDatabaseURL(raw, v); err != nil {
			return err
		}
	}

	for _, b := range envBindings {
		if v, ok := lookup(b.env); ok && v != "" {
			set(raw, b.path, v)
		}
	}
	return nil
}

// applyDatabaseURL accepts sqlite:///path and redis://[:password@]host:port[/db].
func applyDatabaseURL(raw map[string]any, v string) error {
	u, err := url.Parse(v)
	if err != nil {
		return fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	switch u.Scheme {
	case "sqlite", "sqlite3":
		set(raw, "store.driver", DriverSQLite)
		set(raw, "store.path", strings.TrimPrefix(u.Path, "/"))
	case "redis":
		set(raw, "store.driver", DriverRedis)
		set(raw, "store.redis.addr", u.Host)
		if pw, ok := u.User.Password(); ok {
			set(raw, "store.redis.password", pw)
		}
		if db := strings.TrimPrefix(u.Path, "/"); db != "" {
			n, err := strconv.Atoi(db)
			if err != nil {
				return fmt.Errorf("invalid redis db in DATABASE_URL: %q", db)
			}
			set(raw, "store.redis.db", n)
		}
	default:
		return fmt.Errorf("unsupported DATABASE_URL scheme %q", u.Scheme)
	}
	return nil
}

// set assigns value at a dotted path, creating intermediate maps.
func set(m map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// merge copies src into dst, recursing into nested maps.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				merge(dv, sv)
				continue
			}
		}
		dst[k] = v
	}
}

// Validate checks values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	var errs []error

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	switch c.Store.Driver {
	case DriverMemory, DriverFile, DriverSQLite, DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.Store.Driver == DriverSQLite && c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required for the sqlite driver"))
	}
	if c.Store.Driver == DriverRedis {
		p, h := c.Store.Redis.Prefix, c.Store.Redis.HistoryPrefix
		if p != "" && h != "" && (strings.HasPrefix(p, h) || strings.HasPrefix(h, p)) {
			errs = append(errs, errors.New("store.redis.history_prefix must not overlap store.redis.prefix"))
		}
	}
	if c.Store.TTL < 0 {
		errs = append(errs, errors.New("store.ttl must not be negative"))
	}
	if c.Store.EncryptionKey != "" {
		if _, err := c.EncryptionKey(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Telegram.Enabled && c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token is required when telegram polling is enabled"))
	}

	if c.TitleTemplate != "" {
		if err := segment.ValidateTitleTemplate(c.TitleTemplate); err != nil {
			errs = append(errs, fmt.Errorf("invalid title_template: %w", err))
		}
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("invalid timezone: %w", err))
		}
	}

	return errors.Join(errs...)
}

// EncryptionKey decodes store.encryption_key (base64 or hex) into a 32-byte key.
// It returns nil when no key is configured.
func (c *Config) EncryptionKey() ([]byte, error) {
	s := strings.TrimSpace(c.Store.EncryptionKey)
	if s == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(key) != 32 {
		key, err = hex.DecodeString(s)
	}
	if err != nil || len(key) != 32 {
		return nil, errors.New("store.encryption_key must be 32 bytes, base64 or hex encoded")
	}
	return key, nil
}

// SegmentOptions returns the segmenter options derived from the config.
func (c *Config) SegmentOptions() []segment.Option {
	opts := []segment.Option{
		segment.WithLocation(c.Location()),
		segment.WithTitleTemplate(c.TitleTemplate),
	}
	if len(c.Conjunctions) > 0 {
		opts = append(opts, segment.WithConjunctions(c.Conjunctions...))
	}
	return opts
}

// Location returns the configured time zone, or time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
