package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string `validate:"oneof=development production"`
	Port int    `validate:"gt=0,lte=65535"`

	Log        LogConfig
	Portal     PortalConfig
	Automation AutomationConfig
	Auth       AuthConfig
	Storage    StorageConfig
	Notify     NotifyConfig
	Export     ExportConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// PortalConfig points the agent at the school portal.
type PortalConfig struct {
	BaseURL     string `validate:"required,url"`
	PublicIPURL string `validate:"required,url"`
	Timeout     time.Duration
}

// AutomationConfig tunes the monitoring loop.
type AutomationConfig struct {
	PollInterval   time.Duration `validate:"gt=0"`
	FetchRetries   int           `validate:"gte=0"`
	RetryDelay     time.Duration `validate:"gt=0"`
	AutoStart      bool
	NotifyCooldown time.Duration
}

// AuthConfig configures the external login helper that produces the session
// cookie set and scope parameters.
type AuthConfig struct {
	HelperCommand string
	HelperTimeout time.Duration
	KeyringUser   string
}

// StorageConfig locates the agent's durable state.
type StorageConfig struct {
	DataDir string `validate:"required"`
}

// NotifyConfig tunes notification delivery.
type NotifyConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// ExportConfig governs registration history exports.
type ExportConfig struct {
	Dir string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			if _, statErr := os.Stat(".env"); statErr == nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Portal = PortalConfig{
		BaseURL:     v.GetString("PORTAL_BASE_URL"),
		PublicIPURL: v.GetString("PORTAL_PUBLIC_IP_URL"),
		Timeout:     parseDuration(v.GetString("PORTAL_TIMEOUT"), 30*time.Second),
	}

	cfg.Automation = AutomationConfig{
		PollInterval:   parseDuration(v.GetString("POLL_INTERVAL"), 30*time.Second),
		FetchRetries:   v.GetInt("FETCH_RETRIES"),
		RetryDelay:     parseDuration(v.GetString("FETCH_RETRY_DELAY"), 10*time.Second),
		AutoStart:      v.GetBool("AUTO_START"),
		NotifyCooldown: parseDuration(v.GetString("NOTIFY_COOLDOWN"), 5*time.Minute),
	}

	cfg.Auth = AuthConfig{
		HelperCommand: v.GetString("AUTH_HELPER_COMMAND"),
		HelperTimeout: parseDuration(v.GetString("AUTH_HELPER_TIMEOUT"), 3*time.Minute),
		KeyringUser:   v.GetString("KEYRING_USER"),
	}

	cfg.Storage = StorageConfig{DataDir: v.GetString("DATA_DIR")}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = defaultDataDir()
	}

	cfg.Notify = NotifyConfig{
		Workers:    v.GetInt("NOTIFY_WORKERS"),
		MaxRetries: v.GetInt("NOTIFY_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), time.Second),
	}

	cfg.Export = ExportConfig{Dir: v.GetString("EXPORT_DIR")}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = filepath.Join(cfg.Storage.DataDir, "exports")
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 45901)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PORTAL_BASE_URL", "https://iskole.net")
	v.SetDefault("PORTAL_PUBLIC_IP_URL", "https://api.ipify.org")
	v.SetDefault("PORTAL_TIMEOUT", "30s")

	v.SetDefault("POLL_INTERVAL", "30s")
	v.SetDefault("FETCH_RETRIES", 3)
	v.SetDefault("FETCH_RETRY_DELAY", "10s")
	v.SetDefault("AUTO_START", false)
	v.SetDefault("NOTIFY_COOLDOWN", "5m")

	v.SetDefault("AUTH_HELPER_COMMAND", "")
	v.SetDefault("AUTH_HELPER_TIMEOUT", "3m")
	v.SetDefault("KEYRING_USER", "default")

	v.SetDefault("NOTIFY_WORKERS", 1)
	v.SetDefault("NOTIFY_MAX_RETRIES", 3)
	v.SetDefault("NOTIFY_RETRY_DELAY", "1s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".akademitrack"
	}
	return filepath.Join(base, "AkademiTrack")
}
