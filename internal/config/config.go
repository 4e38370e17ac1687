// Package config loads client settings with Viper.
//
// Precedence: bound flags > LIVETODO_* environment (a .env file in the working
// directory is loaded first and never overrides the real environment) >
// config.yaml in the config directory > defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	EnvPrefix    = "LIVETODO"
	EnvConfigDir = "LIVETODO_CONFIG_DIR"

	BackendSupabase = "supabase"
	BackendSQLite   = "sqlite"
)

// Config keys.
const (
	KeyBackend        = "backend"
	KeyURL            = "url"
	KeyAnonKey        = "anon_key"
	KeySchema         = "schema"
	KeyTable          = "table"
	KeySQLitePath     = "sqlite_path"
	KeyHeartbeat      = "heartbeat"
	KeyRequestTimeout = "request_timeout"
	KeyTheme          = "theme"
	KeyLogFile        = "log_file"
	KeyMetricsAddr    = "metrics_addr"
	KeyDebug          = "debug"
)

const defaultConfigYAML = `# livetodo configuration

# Backend: supabase (hosted) or sqlite (local file)
backend: supabase

# Supabase project (or set LIVETODO_URL / LIVETODO_ANON_KEY, SUPABASE_URL / SUPABASE_ANON_KEY)
# url: https://your-project.supabase.co
# anon_key:

# table: todos
# schema: public
# sqlite_path:
# heartbeat: 30s
# request_timeout: 10s
# theme: classic
# log_file:
# metrics_addr: 127.0.0.1:9464
`

// Config is the resolved client configuration.
type Config struct {
	Backend        string
	URL            string
	AnonKey        string
	Schema         string
	Table          string
	SQLitePath     string
	Heartbeat      time.Duration
	RequestTimeout time.Duration
	Theme          string
	LogFile        string
	MetricsAddr    string
	Debug          bool

	// Dir is the config directory that was used.
	Dir string
}

// platformDir can be overridden in tests.
var platformDir = struct {
	homeDir func() (string, error)
}{homeDir: os.UserHomeDir}

// DefaultDir is $XDG_CONFIG_HOME/livetodo, falling back to ~/.config/livetodo.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "livetodo"), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "livetodo"), nil
}

// ResolveDir follows flag > LIVETODO_CONFIG_DIR > DefaultDir().
func ResolveDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultDir()
}

// Options controls where Load looks.
type Options struct {
	Dir     string         // config directory; resolved with ResolveDir
	EnvFile string         // dotenv file; default ".env"
	Flags   *pflag.FlagSet // flags bound by key name (theme, debug, ...)
}

// Load reads the configuration and validates it.
func Load(opts Options) (*Config, error) {
	dir, err := ResolveDir(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(dir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v, dir)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(dir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeyURL, "LIVETODO_URL", "SUPABASE_URL")
	_ = v.BindEnv(KeyAnonKey, "LIVETODO_ANON_KEY", "SUPABASE_ANON_KEY")

	if opts.Flags != nil {
		for _, key := range []string{KeyTheme, KeyDebug, KeyBackend, KeyLogFile, KeyMetricsAddr} {
			if f := opts.Flags.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", key, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Backend:        strings.ToLower(v.GetString(KeyBackend)),
		URL:            v.GetString(KeyURL),
		AnonKey:        v.GetString(KeyAnonKey),
		Schema:         v.GetString(KeySchema),
		Table:          v.GetString(KeyTable),
		SQLitePath:     v.GetString(KeySQLitePath),
		Heartbeat:      v.GetDuration(KeyHeartbeat),
		RequestTimeout: v.GetDuration(KeyRequestTimeout),
		Theme:          v.GetString(KeyTheme),
		LogFile:        v.GetString(KeyLogFile),
		MetricsAddr:    v.GetString(KeyMetricsAddr),
		Debug:          v.GetBool(KeyDebug),
		Dir:            dir,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault(KeyBackend, BackendSupabase)
	v.SetDefault(KeySchema, "public")
	v.SetDefault(KeyTable, "todos")
	v.SetDefault(KeySQLitePath, filepath.Join(dir, "todos.db"))
	v.SetDefault(KeyHeartbeat, 30*time.Second)
	v.SetDefault(KeyRequestTimeout, 10*time.Second)
	v.SetDefault(KeyTheme, "classic")
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSupabase:
		if c.URL == "" {
			return errors.New("config: url is required for the supabase backend (set LIVETODO_URL)")
		}
		if c.AnonKey == "" {
			return errors.New("config: anon_key is required for the supabase backend (set LIVETODO_ANON_KEY)")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("config: sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("config: request_timeout must be positive")
	}
	return nil
}

// ensureDefaultConfigFile writes a commented config.yaml on first run.
func ensureDefaultConfigFile(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
