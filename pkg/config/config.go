package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/rubiojr/codesnippets/pkg/cache"
	"github.com/rubiojr/codesnippets/pkg/log"
	"github.com/rubiojr/codesnippets/pkg/search"
)

//go:embed config.toml.sample
var configTemplate string

// placeholder replaced by the real storage directory in generated templates
const storageDirPlaceholder = "/home/user/.local/share/codesnippets"

const appName = "codesnippets"

type Config struct {
	StorageDir string       `toml:"storage_dir"`
	LogLevel   string       `toml:"log_level"`
	Server     ServerConfig `toml:"server"`
	Search     SearchConfig `toml:"search"`
	Cache      CacheConfig  `toml:"cache"`
	Auth       AuthConfig   `toml:"auth"`
	Client     ClientConfig `toml:"client"`
}

type ServerConfig struct {
	Listen          string   `toml:"listen"`
	PublicURL       string   `toml:"public_url"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type SearchConfig struct {
	DefaultLimit int `toml:"default_limit"`
	MinLimit     int `toml:"min_limit"`
	MaxLimit     int `toml:"max_limit"`
}

type CacheConfig struct {
	// Backend is one of "redis", "memory" or "none".
	Backend       string   `toml:"backend"`
	Prefix        string   `toml:"prefix"`
	TTL           Duration `toml:"ttl"`
	MaxEntries    int      `toml:"max_entries"`
	Compress      bool     `toml:"compress"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	Timeout       Duration `toml:"timeout"`
}

type AuthConfig struct {
	JWTSecret string   `toml:"jwt_secret"`
	TokenTTL  Duration `toml:"token_ttl"`
}

type ClientConfig struct {
	BaseURL  string   `toml:"base_url"`
	Token    string   `toml:"token"`
	Timeout  Duration `toml:"timeout"`
	PageSize int      `toml:"page_size"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func GetDefaultConfig() (*Config, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return nil, fmt.Errorf("getting default storage directory: %w", err)
	}
	cfg := &Config{StorageDir: storageDir}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Server.Listen == "" {
		c.Server.Listen = "127.0.0.1:8080"
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout = Duration{15 * time.Second}
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout = Duration{15 * time.Second}
	}
	if c.Server.ShutdownTimeout.Duration == 0 {
		c.Server.ShutdownTimeout = Duration{30 * time.Second}
	}

	defaults := search.DefaultLimits()
	if c.Search.DefaultLimit == 0 {
		c.Search.DefaultLimit = defaults.Default
	}
	if c.Search.MinLimit == 0 {
		c.Search.MinLimit = defaults.Min
	}
	if c.Search.MaxLimit == 0 {
		c.Search.MaxLimit = defaults.Max
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = cache.BackendMemory
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = cache.DefaultPrefix
	}
	if c.Cache.TTL.Duration == 0 {
		c.Cache.TTL = Duration{cache.DefaultTTL}
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = cache.DefaultMaxEntries
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = "localhost:6379"
	}
	if c.Cache.Timeout.Duration == 0 {
		c.Cache.Timeout = Duration{500 * time.Millisecond}
	}

	if c.Auth.TokenTTL.Duration == 0 {
		c.Auth.TokenTTL = Duration{24 * time.Hour}
	}

	if c.Client.BaseURL == "" {
		c.Client.BaseURL = "http://" + c.Server.Listen
	}
	if c.Client.Timeout.Duration == 0 {
		c.Client.Timeout = Duration{15 * time.Second}
	}
}

// LoadConfig reads the TOML file at configPath, falling back to defaults when
// it does not exist, then applies CODESNIPPETS_* environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("unmarshaling config: %w", err)
		}
	}

	if err := config.applyEnvironmentOverrides(); err != nil {
		return nil, err
	}

	if config.StorageDir == "" {
		storageDir, err := GetDefaultStorageDir()
		if err != nil {
			return nil, fmt.Errorf("getting default storage directory: %w", err)
		}
		config.StorageDir = storageDir
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// LoadEnvFile loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() error {
	strs := map[string]*string{
		"CODESNIPPETS_STORAGE_DIR":    &c.StorageDir,
		"CODESNIPPETS_LOG_LEVEL":      &c.LogLevel,
		"CODESNIPPETS_LISTEN":         &c.Server.Listen,
		"CODESNIPPETS_PUBLIC_URL":     &c.Server.PublicURL,
		"CODESNIPPETS_CACHE_BACKEND":  &c.Cache.Backend,
		"CODESNIPPETS_REDIS_ADDR":     &c.Cache.RedisAddr,
		"CODESNIPPETS_REDIS_PASSWORD": &c.Cache.RedisPassword,
		"CODESNIPPETS_JWT_SECRET":     &c.Auth.JWTSecret,
		"CODESNIPPETS_API_URL":        &c.Client.BaseURL,
		"CODESNIPPETS_TOKEN":          &c.Client.Token,
	}
	for env, dst := range strs {
		if val := os.Getenv(env); val != "" {
			*dst = val
		}
	}

	if val := os.Getenv("CODESNIPPETS_REDIS_DB"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("CODESNIPPETS_REDIS_DB: %w", err)
		}
		c.Cache.RedisDB = n
	}
	if val := os.Getenv("CODESNIPPETS_CACHE_TTL"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("CODESNIPPETS_CACHE_TTL: %w", err)
		}
		c.Cache.TTL = Duration{d}
	}
	return nil
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case cache.BackendRedis, cache.BackendMemory, cache.BackendNone:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Search.MinLimit < 1 {
		return fmt.Errorf("search.min_limit must be at least 1, got %d", c.Search.MinLimit)
	}
	if c.Search.MaxLimit < c.Search.MinLimit {
		return fmt.Errorf("search.max_limit (%d) is lower than search.min_limit (%d)", c.Search.MaxLimit, c.Search.MinLimit)
	}
	if c.Search.DefaultLimit < c.Search.MinLimit || c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit %d is outside [%d, %d]", c.Search.DefaultLimit, c.Search.MinLimit, c.Search.MaxLimit)
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries cannot be negative")
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() log.Level {
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.LevelInfo
	}
	return l
}

// SearchLimits returns the page size limits for the search service.
func (c *Config) SearchLimits() search.Limits {
	return search.Limits{
		Default: c.Search.DefaultLimit,
		Min:     c.Search.MinLimit,
		Max:     c.Search.MaxLimit,
	}.Normalize()
}

// CacheOptions returns the options used to build the search cache.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:       c.Cache.Backend,
		Prefix:        c.Cache.Prefix,
		TTL:           c.Cache.TTL.Duration,
		MaxEntries:    c.Cache.MaxEntries,
		Compress:      c.Cache.Compress,
		RedisAddr:     c.Cache.RedisAddr,
		RedisPassword: c.Cache.RedisPassword,
		RedisDB:       c.Cache.RedisDB,
		RedisTimeout:  c.Cache.Timeout.Duration,
	}
}

// DBPath returns the database file inside StorageDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.StorageDir, appName+".db")
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0600)
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template, err := c.generateConfigTemplate()
	if err != nil {
		return fmt.Errorf("generating config template: %w", err)
	}
	return os.WriteFile(configPath, []byte(template), 0600)
}

func (c *Config) generateConfigTemplate() (string, error) {
	storageDir := c.StorageDir
	if storageDir == "" {
		var err error
		storageDir, err = GetDefaultStorageDir()
		if err != nil {
			return "", fmt.Errorf("getting default storage directory: %w", err)
		}
	}

	return strings.Replace(configTemplate, storageDirPlaceholder, storageDir, 1), nil
}

// GetDefaultStorageDir returns the default storage directory for the database
func GetDefaultStorageDir() (string, error) {
	// Use XDG_DATA_HOME if set, otherwise use ~/.local/share
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	dir := filepath.Join(dataDir, appName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetConfigDir returns the configuration directory
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, appName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
