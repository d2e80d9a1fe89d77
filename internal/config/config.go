// Package config loads taskdeck settings from a YAML file and TASKDECK_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backends for the task document store
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
	BackendRemote = "remote"
)

// Config holds application configuration
type Config struct {
	DataDir       string          `yaml:"data_dir" mapstructure:"data_dir"`
	Backend       string          `yaml:"backend" mapstructure:"backend"`
	Notifications bool            `yaml:"notifications" mapstructure:"notifications"`
	User          UserConfig      `yaml:"user" mapstructure:"user"`
	Remote        RemoteConfig    `yaml:"remote" mapstructure:"remote"`
	Server        ServerConfig    `yaml:"server" mapstructure:"server"`
	Email         EmailConfig     `yaml:"email" mapstructure:"email"`
	Reminders     RemindersConfig `yaml:"reminders" mapstructure:"reminders"`
}

// UserConfig identifies the local principal
type UserConfig struct {
	ID    string   `yaml:"id" mapstructure:"id"`
	Name  string   `yaml:"name" mapstructure:"name"`
	Email string   `yaml:"email" mapstructure:"email"`
	Roles []string `yaml:"roles" mapstructure:"roles"`
}

// RemoteConfig points the client at a taskdeck server
type RemoteConfig struct {
	URL   string `yaml:"url" mapstructure:"url"`
	Token string `yaml:"token" mapstructure:"token"`
}

// ServerConfig configures `taskdeck serve`
type ServerConfig struct {
	Addr      string        `yaml:"addr" mapstructure:"addr"`
	DBPath    string        `yaml:"db_path" mapstructure:"db_path"`
	JWTSecret string        `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
}

// EmailConfig is the SMTP relay used by the email procedures
type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port" mapstructure:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user" mapstructure:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password" mapstructure:"smtp_password"`
	From         string `yaml:"from" mapstructure:"from"`
}

// Enabled reports whether an SMTP relay is configured
func (e EmailConfig) Enabled() bool {
	return e.SMTPHost != "" && e.From != ""
}

// RemindersConfig controls due-date reminders
type RemindersConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Lead     time.Duration `yaml:"lead" mapstructure:"lead"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	Email    bool          `yaml:"email" mapstructure:"email"`
}

// DefaultDataDir returns the default data directory path
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskdeck"
	}
	return filepath.Join(home, ".local", "share", "taskdeck")
}

// DefaultPath returns the default config file path
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".taskdeck", "config.yaml")
	}
	return filepath.Join(dir, "taskdeck", "config.yaml")
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	name := os.Getenv("USER")
	if name == "" {
		name = "me"
	}
	return &Config{
		DataDir:       DefaultDataDir(),
		Backend:       BackendLocal,
		Notifications: true,
		User: UserConfig{
			ID:    name,
			Name:  name,
			Roles: []string{"member"},
		},
		Server: ServerConfig{
			Addr:     ":8080",
			TokenTTL: 30 * 24 * time.Hour,
		},
		Email: EmailConfig{
			SMTPPort: 587,
		},
		Reminders: RemindersConfig{
			Enabled:  true,
			Lead:     time.Hour,
			Interval: time.Minute,
		},
	}
}

// Load reads path (DefaultPath when empty) over the defaults and applies
// TASKDECK_* environment overrides, e.g. TASKDECK_REMOTE_URL. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix("TASKDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("notifications", d.Notifications)
	v.SetDefault("user.id", d.User.ID)
	v.SetDefault("user.name", d.User.Name)
	v.SetDefault("user.email", d.User.Email)
	v.SetDefault("user.roles", d.User.Roles)
	v.SetDefault("remote.url", d.Remote.URL)
	v.SetDefault("remote.token", d.Remote.Token)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.db_path", d.Server.DBPath)
	v.SetDefault("server.jwt_secret", d.Server.JWTSecret)
	v.SetDefault("server.token_ttl", d.Server.TokenTTL)
	v.SetDefault("email.smtp_host", d.Email.SMTPHost)
	v.SetDefault("email.smtp_port", d.Email.SMTPPort)
	v.SetDefault("email.smtp_user", d.Email.SMTPUser)
	v.SetDefault("email.smtp_password", d.Email.SMTPPassword)
	v.SetDefault("email.from", d.Email.From)
	v.SetDefault("reminders.enabled", d.Reminders.Enabled)
	v.SetDefault("reminders.lead", d.Reminders.Lead)
	v.SetDefault("reminders.interval", d.Reminders.Interval)
	v.SetDefault("reminders.email", d.Reminders.Email)
}

// Validate checks settings that would otherwise fail later
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal, BackendMemory:
	case BackendRemote:
		if c.Remote.URL == "" {
			return fmt.Errorf("backend %q requires remote.url", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.User.ID == "" {
		return fmt.Errorf("user.id is required")
	}
	return nil
}

// DBPath returns the local document database path
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "taskdeck.db")
}

// ServerDBPath returns the server's document database path
func (c *Config) ServerDBPath() string {
	if c.Server.DBPath != "" {
		return c.Server.DBPath
	}
	return filepath.Join(c.DataDir, "server.db")
}

// LogPath returns the debug log written while the TUI owns the terminal
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "taskdeck.log")
}

// PrefsPath returns the device-local preferences file
func (c *Config) PrefsPath() string {
	return filepath.Join(c.DataDir, "prefs.yaml")
}
