package cli

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/snarg/meeting-intel/internal/config"
	"github.com/snarg/meeting-intel/internal/demo"
)

// Dependencies is filled in by the root command before any subcommand runs.
type Dependencies struct {
	Version   string
	StartTime time.Time
	Config    *config.Config
	Log       zerolog.Logger

	overrides config.Overrides
	stdout    io.Writer
}

func NewRootCmd(version string) *cobra.Command {
	return newRootCmd(version, os.Stdout)
}

func newRootCmd(version string, stdout io.Writer) *cobra.Command {
	deps := &Dependencies{Version: version, StartTime: time.Now(), stdout: stdout}

	rootCmd := &cobra.Command{
		Use:           "meeting-intel",
		Short:         "Strategic intelligence from meeting recordings",
		Long:          "Transcribes meeting recordings, identifies speakers and extracts strategic insights, opportunities, themes and decisions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(deps.overrides)
			if err != nil {
				return err
			}
			deps.Config = cfg
			server := cmd.Name() == "serve"
			level := cfg.LogLevel
			if !server && deps.overrides.LogLevel == "" {
				level = "warn"
			}
			deps.Log = newLogger(level, server)
			return nil
		},
	}
	rootCmd.Version = version
	rootCmd.SetOut(stdout)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&deps.overrides.EnvFile, "env-file", "", "path to .env file (default .env)")
	pf.StringVar(&deps.overrides.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&deps.overrides.SecretsFile, "secrets-file", "", "TOML secrets file consulted after the environment")
	pf.StringVar(&deps.overrides.DemoDir, "demo-dir", "", "directory holding analysis_*.json demo records")

	rootCmd.AddCommand(NewServeCmd(deps))
	rootCmd.AddCommand(NewProcessCmd(deps))
	rootCmd.AddCommand(NewCredentialsCmd(deps))
	rootCmd.AddCommand(NewDemoCmd(deps))

	return rootCmd
}

// newLogger builds the root logger. The server logs JSON to stdout; the
// one-shot commands log human-readable lines to stderr so stdout stays clean.
func newLogger(levelName string, server bool) zerolog.Logger {
	level, err := zerolog.ParseLevel(levelName)
	if err != nil || levelName == "" {
		level = zerolog.InfoLevel
	}
	if server {
		return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).With().Timestamp().Logger().Level(level)
}

// demoSource picks S3 when a bucket is configured, else the local directory.
func demoSource(cfg *config.Config, log zerolog.Logger) (demo.Source, error) {
	if cfg.DemoS3.Enabled() {
		src, err := demo.NewS3Source(cfg.DemoS3, cfg.DemoPattern, log)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	return demo.NewDirSource(cfg.DemoDir, cfg.DemoPattern), nil
}
