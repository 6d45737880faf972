// Package config handles configuration loading from CLI flags, environment
// variables, and TOML files for the demo grid server.
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration settings for the grid server.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Feed    FeedConfig    `toml:"feed"`
	Window  WindowConfig  `toml:"window"`
	Filter  FilterConfig  `toml:"filter"`
	Logging LoggingConfig `toml:"logging"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// FeedConfig holds demo trade feed settings.
type FeedConfig struct {
	Instruments string   `toml:"instruments"` // TOML file listing tradable symbols
	Interval    Duration `toml:"interval"`    // Delay between feed mutations
	MaxTrades   int      `toml:"max_trades"`  // Feed starts retiring old trades past this
}

// WindowConfig holds the per-connection window defaults.
type WindowConfig struct {
	Size int `toml:"size"` // Initial window capacity per connection
}

// FilterConfig holds scriptable-filter settings.
type FilterConfig struct {
	Enabled bool `toml:"enabled"` // Allow clients to install Lua filter expressions
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Verbosity int `toml:"verbosity"` // 0=none, 1=connections, 2=messages, 3=pipeline, 4=rows
}

// verbosityCounter implements flag.Value for counting -v flags.
type verbosityCounter int

func (v *verbosityCounter) String() string {
	return fmt.Sprintf("%d", *v)
}

func (v *verbosityCounter) Set(string) error {
	*v++
	return nil
}

func (v *verbosityCounter) IsBoolFlag() bool {
	return true
}

// expandVerbosityFlags preprocesses args to expand -vvv into -v -v -v.
// This allows both "-v -v -v" and "-vvv" styles to work.
func expandVerbosityFlags(args []string) []string {
	result := make([]string, 0, len(args))
	for _, arg := range args {
		if len(arg) > 2 && arg[0] == '-' && arg[1] == 'v' {
			allV := true
			for _, c := range arg[1:] {
				if c != 'v' {
					allV = false
					break
				}
			}
			if allV {
				for range arg[1:] {
					result = append(result, "-v")
				}
				continue
			}
		}
		result = append(result, arg)
	}
	return result
}

// Duration is a time.Duration that can be unmarshaled from TOML strings.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String returns the duration as a string.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// DefaultConfig returns a Config with all default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Feed: FeedConfig{
			Instruments: "instruments.toml",
			Interval:    Duration(250 * time.Millisecond),
			MaxTrades:   500,
		},
		Window: WindowConfig{
			Size: 20,
		},
		Filter: FilterConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Verbosity: 0,
		},
	}
}

// Load loads configuration from CLI flags, environment variables, and a TOML
// file. Priority: CLI flags > env vars > TOML file > defaults.
func Load(args []string) (*Config, error) {
	cfg := DefaultConfig()

	args = expandVerbosityFlags(args)

	fs := flag.NewFlagSet("griddus", flag.ContinueOnError)
	configPath := fs.String("config", "griddus.toml", "TOML config file path")

	host := fs.String("host", "", "Listen address")
	port := fs.Int("port", 0, "Listen port")

	instruments := fs.String("instruments", "", "Instruments file path")
	interval := fs.Duration("interval", 0, "Feed mutation interval")
	maxTrades := fs.Int("max-trades", 0, "Trade count the feed retires past")

	windowSize := fs.Int("window-size", 0, "Initial window capacity per connection")
	noFilter := fs.Bool("no-filter", false, "Reject Lua filter expressions")

	var verbosity verbosityCounter
	fs.Var(&verbosity, "v", "Verbosity level (use -v, -vv, or -vvv)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.loadTOML(*configPath); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	cfg.applyEnv()

	// Apply CLI flags (highest priority)
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *instruments != "" {
		cfg.Feed.Instruments = *instruments
	}
	if *interval != 0 {
		cfg.Feed.Interval = Duration(*interval)
	}
	if *maxTrades != 0 {
		cfg.Feed.MaxTrades = *maxTrades
	}
	if *windowSize != 0 {
		cfg.Window.Size = *windowSize
	}
	if *noFilter {
		cfg.Filter.Enabled = false
	}
	if verbosity > 0 {
		cfg.Logging.Verbosity = int(verbosity)
	}

	return cfg, nil
}

// loadTOML loads configuration from a TOML file.
func (c *Config) loadTOML(path string) error {
	_, err := toml.DecodeFile(path, c)
	return err
}

// applyEnv applies environment variable overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("GRIDDUS_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("GRIDDUS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("GRIDDUS_INSTRUMENTS"); v != "" {
		c.Feed.Instruments = v
	}
	if v := os.Getenv("GRIDDUS_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Feed.Interval = Duration(d)
		}
	}
	if v := os.Getenv("GRIDDUS_WINDOW_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			c.Window.Size = size
		}
	}
	if v := os.Getenv("GRIDDUS_FILTER"); v != "" {
		c.Filter.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("GRIDDUS_VERBOSITY"); v != "" {
		if verbosity, err := strconv.Atoi(v); err == nil {
			c.Logging.Verbosity = verbosity
		}
	}
}

// Verbosity returns the configured verbosity level.
func (c *Config) Verbosity() int {
	return c.Logging.Verbosity
}

// Log writes a formatted message when verbosity is at least level.
func (c *Config) Log(level int, format string, args ...interface{}) {
	if c.Logging.Verbosity >= level {
		log.Printf(format, args...)
	}
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
