package main

import (
	"flag"
	"os"
	"strconv"
)

// Config holds the process configuration
type Config struct {
	// PluginPath is the vendor plugin document to load (e.g. "plugins/quectel_ec25.yaml")
	PluginPath string
	// SerialPort is the path to the modem's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string
	// BaudRate overrides the plugin's default baud rate when non-zero
	BaudRate int
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string
	// Output is the report destination path; "-" writes to stdout
	Output string
	// Quick restricts the run to commands flagged for quick-scan mode
	Quick bool
	// Threshold is the confidence cutoff for the report's filtered view
	Threshold float64
	// Serve enables the HTTP inspection endpoint instead of a one-shot run
	Serve bool
	// BindAddress is the address the serve mode listens on (e.g. "0.0.0.0:8080")
	BindAddress string
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.SerialPort = "/dev/ttyUSB0"
		c.LogLevel = "info"
		c.Output = "-"
		c.Threshold = 0.7
		c.BindAddress = "0.0.0.0:8080"
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if path := os.Getenv("PLUGIN_PATH"); path != "" {
			c.PluginPath = path
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if output := os.Getenv("REPORT_OUTPUT"); output != "" {
			c.Output = output
		}

		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "plugin":
				c.PluginPath = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "output":
				c.Output = f.Value.String()
			case "quick":
				c.Quick = f.Value.String() == "true"
			case "threshold":
				if t, err := strconv.ParseFloat(f.Value.String(), 64); err == nil {
					c.Threshold = t
				}
			case "serve":
				c.Serve = f.Value.String() == "true"
			case "bind-address":
				c.BindAddress = f.Value.String()
			}
		})
		return nil
	}
}
