package config

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/satchel/pkg/domain/types"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// Server holds server configuration
type Server struct {
	Addr          string
	Endpoint      string
	TempDir       string
	SweepInterval time.Duration
	SweepMaxAge   time.Duration
	ConfigFile    string
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("SATCHEL_ADDR"),
		},
		&cli.StringFlag{
			Name:        "endpoint",
			Usage:       "Path of the download endpoint",
			Value:       types.DefaultEndpoint,
			Destination: &c.Endpoint,
			Sources:     cli.EnvVars("SATCHEL_ENDPOINT"),
		},
		&cli.StringFlag{
			Name:        "temp-dir",
			Usage:       "Root for staging directories and archives (default: OS temp dir)",
			Destination: &c.TempDir,
			Sources:     cli.EnvVars("SATCHEL_TEMP_DIR"),
		},
		&cli.DurationFlag{
			Name:        "temp-sweep-interval",
			Usage:       "Interval of the orphaned temp data sweep; 0 disables it",
			Destination: &c.SweepInterval,
			Sources:     cli.EnvVars("SATCHEL_TEMP_SWEEP_INTERVAL"),
		},
		&cli.DurationFlag{
			Name:        "temp-max-age",
			Usage:       "Age after which temp data is considered orphaned",
			Value:       time.Hour,
			Destination: &c.SweepMaxAge,
			Sources:     cli.EnvVars("SATCHEL_TEMP_MAX_AGE"),
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "TOML config file; flags set explicitly take precedence",
			Destination: &c.ConfigFile,
			Sources:     cli.EnvVars("SATCHEL_CONFIG"),
		},
	}
}

type serverFile struct {
	Server struct {
		Addr          string `toml:"addr"`
		Endpoint      string `toml:"endpoint"`
		TempDir       string `toml:"temp_dir"`
		SweepInterval string `toml:"sweep_interval"`
		SweepMaxAge   string `toml:"sweep_max_age"`
	} `toml:"server"`
}

// LoadFile reads ConfigFile and applies every value whose flag was not set
// explicitly. isSet reports whether a flag was given on the command line or
// by environment.
func (c *Server) LoadFile(isSet func(name string) bool) error {
	if c.ConfigFile == "" {
		return nil
	}

	raw, err := os.ReadFile(c.ConfigFile)
	if err != nil {
		return goerr.Wrap(err, "failed to read config file", goerr.V("path", c.ConfigFile))
	}

	var file serverFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return goerr.Wrap(err, "failed to parse config file", goerr.V("path", c.ConfigFile))
	}

	s := file.Server
	setString := func(flag, value string, dst *string) {
		if value != "" && !isSet(flag) {
			*dst = value
		}
	}
	setString("addr", s.Addr, &c.Addr)
	setString("endpoint", s.Endpoint, &c.Endpoint)
	setString("temp-dir", s.TempDir, &c.TempDir)

	setDuration := func(flag, value string, dst *time.Duration) error {
		if value == "" || isSet(flag) {
			return nil
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return goerr.Wrap(err, "invalid duration in config file", goerr.V("key", flag), goerr.V("value", value))
		}
		*dst = d
		return nil
	}
	if err := setDuration("temp-sweep-interval", s.SweepInterval, &c.SweepInterval); err != nil {
		return err
	}
	if err := setDuration("temp-max-age", s.SweepMaxAge, &c.SweepMaxAge); err != nil {
		return err
	}

	return nil
}

// Validate checks values that flags alone cannot constrain
func (c *Server) Validate() error {
	if c.SweepInterval < 0 {
		return goerr.New("temp sweep interval must not be negative", goerr.V("interval", c.SweepInterval))
	}
	if c.SweepInterval > 0 && c.SweepMaxAge <= 0 {
		return goerr.New("temp max age must be positive when sweeping", goerr.V("max_age", c.SweepMaxAge))
	}
	if c.TempDir != "" {
		info, err := os.Stat(c.TempDir)
		if err != nil {
			return goerr.Wrap(err, "temp dir is not accessible", goerr.V("temp_dir", c.TempDir))
		}
		if !info.IsDir() {
			return goerr.New("temp dir is not a directory", goerr.V("temp_dir", c.TempDir))
		}
	}
	return nil
}
