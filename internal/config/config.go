// Package config resolves CLI settings from defaults, an optional pagepipe.yaml,
// PAGEPIPE_* environment variables and command line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Drivers the CLI can open.
const (
	DriverRod        = "rod"
	DriverPlaywright = "playwright"
	DriverHTML       = "html"
)

// Config holds the resolved settings
type Config struct {
	Driver   string        `mapstructure:"driver"`
	Headless bool          `mapstructure:"headless"`
	Width    int           `mapstructure:"width"`
	Height   int           `mapstructure:"height"`
	Profile  string        `mapstructure:"profile"` // browser profile directory
	Timeout  time.Duration `mapstructure:"timeout"` // default bound for each driver call
	LogLevel string        `mapstructure:"log_level"`
	Verbose  bool          `mapstructure:"verbose"`
	Provider string        `mapstructure:"provider"` // AI provider for draft
	Model    string        `mapstructure:"model"`
	Install  bool          `mapstructure:"install"` // install Playwright browsers on start
}

func defaults(v *viper.Viper) {
	v.SetDefault("driver", DriverRod)
	v.SetDefault("headless", true)
	v.SetDefault("width", 1280)
	v.SetDefault("height", 720)
	v.SetDefault("profile", "")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("verbose", false)
	v.SetDefault("provider", "claude")
	v.SetDefault("model", "")
	v.SetDefault("install", false)
}

// Load resolves the configuration. An explicit file must exist; otherwise
// pagepipe.yaml is looked up in the working directory and $HOME/.pagepipe.
// flags may be nil. Dashes in flag names map to underscores in keys.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("PAGEPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("pagepipe")
		v.SetConfigType("yaml")
		for _, path := range []string{".", "$HOME/.pagepipe"} {
			v.AddConfigPath(os.ExpandEnv(path))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and the driver name.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverRod, DriverPlaywright, DriverHTML:
	default:
		return fmt.Errorf("unknown driver %q (want %s, %s or %s)", c.Driver, DriverRod, DriverPlaywright, DriverHTML)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
