// Package config holds the flags shared by the lighthouse binaries and
// turns them into adapter settings.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/melih/lighthouse-lxc/internal/adapters/lxc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// Config is the resolved configuration of a run.
type Config struct {
	BinDir      string
	LXCPath     string
	PasswordEnv string
	Timeout     time.Duration
	Debug       bool
	LogFile     string
	LogFormat   string
}

// Flags are the global flags understood by both binaries.
func Flags() []cli.Flag {
	return []cli.Flag{
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug output for logging",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "set the log file path, stderr when empty",
		},
		cli.StringFlag{
			Name:  "log-format",
			Value: "text",
			Usage: "set the format used by logs ('text' (default), or 'json')",
		},
		cli.StringFlag{
			Name:   "bin-dir",
			Value:  "",
			Usage:  "directory holding the lxc-* binaries, PATH is searched when empty",
			EnvVar: "LXC_BIN_DIR",
		},
		cli.StringFlag{
			Name:   "lxc-path",
			Value:  lxc.DefaultLXCPath,
			Usage:  "directory holding the container directories",
			EnvVar: "LXC_PATH",
		},
		cli.StringFlag{
			Name:   "password-env",
			Value:  lxc.DefaultPasswordEnv,
			Usage:  "environment variable overriding the password on reset",
			EnvVar: "LXC_PASSWORD_ENV",
		},
		cli.DurationFlag{
			Name:   "timeout",
			Value:  0,
			Usage:  "bound every engine call (except waits), 0 disables",
			EnvVar: "LXC_TIMEOUT",
		},
	}
}

// FromContext reads the global flags.
func FromContext(context *cli.Context) Config {
	return Config{
		BinDir:      context.GlobalString("bin-dir"),
		LXCPath:     context.GlobalString("lxc-path"),
		PasswordEnv: context.GlobalString("password-env"),
		Timeout:     context.GlobalDuration("timeout"),
		Debug:       context.GlobalBool("debug"),
		LogFile:     context.GlobalString("log"),
		LogFormat:   context.GlobalString("log-format"),
	}
}

// Adapter returns the lxc adapter settings.
func (c Config) Adapter() lxc.Config {
	return lxc.Config{
		LXCPath:     c.LXCPath,
		PasswordEnv: c.PasswordEnv,
		Timeout:     c.Timeout,
	}
}

// SetupLogging applies the logging flags to logger.
func (c Config) SetupLogging(logger *logrus.Logger) error {
	if c.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_SYNC, 0666)
		if err != nil {
			return errors.Wrapf(err, "unable to open log file %s", c.LogFile)
		}
		logger.SetOutput(f)
	}
	switch c.LogFormat {
	case "", "text":
		// retain logrus's default.
	case "json":
		logger.SetFormatter(new(logrus.JSONFormatter))
	default:
		return fmt.Errorf("unknown log-format %q", c.LogFormat)
	}
	return nil
}
