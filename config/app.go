package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Mode is the deployment mode of the runtime.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
	ModeTest        Mode = "test"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeDevelopment, ModeProduction, ModeTest:
		return true
	}
	return false
}

// Database drivers understood by NewDB. DriverNone disables the
// relational backend.
const (
	DriverNone   = "none"
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	AppName         string        `mapstructure:"app_name"`
	Port            string        `mapstructure:"port"`
	Mode            Mode          `mapstructure:"app_env"`
	Debug           bool          `mapstructure:"debug"`
	Locale          string        `mapstructure:"locale"`
	ScanPath        string        `mapstructure:"scan_path"`
	WebRoot         string        `mapstructure:"web_root"`
	ContextPath     string        `mapstructure:"context_path"`
	LogLevel        string        `mapstructure:"log_level"`
	Banner          bool          `mapstructure:"banner"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	DB      DBConfig      `mapstructure:"db"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Session SessionConfig `mapstructure:"session"`
	Auth    AuthConfig    `mapstructure:"auth"`

	// Components holds per-bean settings keyed by bean name. Only a
	// config file can populate it.
	Components map[string]map[string]interface{} `mapstructure:"components"`
}

// DBConfig selects and configures the relational backend.
type DBConfig struct {
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
	GormLog string `mapstructure:"gorm_log"`

	MySQLUser string `mapstructure:"mysql_user"`
	MySQLPass string `mapstructure:"mysql_pass"`
	MySQLHost string `mapstructure:"mysql_host"`
	MySQLPort string `mapstructure:"mysql_port"`
	MySQLDB   string `mapstructure:"mysql_db"`
}

// Relational reports whether a relational driver is configured.
func (c DBConfig) Relational() bool {
	return c.Driver == DriverMySQL || c.Driver == DriverSQLite
}

// RedisConfig configures the optional redis session store.
type RedisConfig struct {
	Addr string `mapstructure:"addr"`
	Pass string `mapstructure:"pass"`
	DB   int    `mapstructure:"db"`
}

// SessionConfig configures cookie sessions.
type SessionConfig struct {
	TTL    time.Duration `mapstructure:"ttl"`
	Cookie string        `mapstructure:"cookie"`
	Sweep  string        `mapstructure:"sweep"`
}

// Auth types for application routes.
const (
	AuthNone  = "none"
	AuthBasic = "basic"
	AuthKey   = "key"
)

// AuthConfig guards the application routes. /metrics is never guarded.
type AuthConfig struct {
	Type string `mapstructure:"type"`
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
	Key  string `mapstructure:"key"`
	// Skip is a comma-separated list of route paths left open. A trailing
	// * matches a prefix.
	Skip string `mapstructure:"skip"`
}

// SkipPaths splits Skip.
func (c AuthConfig) SkipPaths() []string {
	var out []string
	for _, p := range strings.Split(c.Skip, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// env var name for every key that is not simply the upper-cased key
var envAliases = map[string]string{
	"db.mysql_user": "MYSQL_USER",
	"db.mysql_pass": "MYSQL_PASS",
	"db.mysql_host": "MYSQL_HOST",
	"db.mysql_port": "MYSQL_PORT",
	"db.mysql_db":   "MYSQL_DB",
	"db.gorm_log":   "GORM_LOG",
	"auth.user":     "API_USER",
	"auth.pass":     "API_PASS",
	"auth.key":      "API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "latke")
	v.SetDefault("port", "8080")
	v.SetDefault("app_env", string(ModeDevelopment))
	v.SetDefault("debug", false)
	v.SetDefault("locale", "zh-CN")
	v.SetDefault("scan_path", "latke.GO/custom")
	v.SetDefault("web_root", "")
	v.SetDefault("context_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("banner", true)
	v.SetDefault("shutdown_timeout", 10*time.Second)

	v.SetDefault("db.driver", DriverNone)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.gorm_log", "")
	v.SetDefault("db.mysql_user", "")
	v.SetDefault("db.mysql_pass", "")
	v.SetDefault("db.mysql_host", "127.0.0.1")
	v.SetDefault("db.mysql_port", "3306")
	v.SetDefault("db.mysql_db", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.pass", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.cookie", "LATKE_SESSION")
	v.SetDefault("session.sweep", "@every 1m")

	v.SetDefault("auth.type", AuthNone)
	v.SetDefault("auth.user", "")
	v.SetDefault("auth.pass", "")
	v.SetDefault("auth.key", "")
	v.SetDefault("auth.skip", "")
}

// Load reads the configuration from the environment and, when CONFIG_FILE
// is set, from that YAML file. Environment variables win over the file.
func Load() (*Config, error) {
	return LoadFrom(viper.New(), os.Getenv("CONFIG_FILE"))
}

// LoadFrom is Load with an explicit viper instance and config file path.
func LoadFrom(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings the runtime environment cannot start without.
func (c *Config) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("config: unknown APP_ENV %q", c.Mode)
	}
	if strings.TrimSpace(c.ScanPath) == "" {
		return fmt.Errorf("config: SCAN_PATH must not be empty")
	}
	switch c.DB.Driver {
	case DriverNone, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.DB.Driver)
	}
	if c.DB.Driver == DriverSQLite && c.DB.DSN == "" {
		return fmt.Errorf("config: DB_DSN is required for the sqlite driver")
	}
	switch c.Auth.Type {
	case "", AuthNone:
	case AuthBasic:
		if c.Auth.User == "" {
			return fmt.Errorf("config: API_USER is required for basic auth")
		}
	case AuthKey:
		if c.Auth.Key == "" {
			return fmt.Errorf("config: API_KEY is required for key auth")
		}
	default:
		return fmt.Errorf("config: unknown AUTH_TYPE %q", c.Auth.Type)
	}
	return nil
}
