package commands

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/kbstatement/internal/buildinfo"
	"github.com/cleared-dev/kbstatement/internal/config"
)

// app carries state resolved by the root command before a subcommand runs.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "kbstatement",
		Short:   "Convert Komerční banka PDF statements to CSV",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: ./"+config.DefaultFile+" when present)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")

	rootCmd.AddCommand(newConvertCommand(a))
	rootCmd.AddCommand(newLinesCommand(a))
	rootCmd.AddCommand(newInitCommand())

	return rootCmd
}

// skipConfig marks commands that must run even when the config file is broken.
const skipConfig = "kbstatement/skip-config"

func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if cmd.Annotations[skipConfig] == "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.logger = setupLogger(cmd.ErrOrStderr(), cfg.Log.Level)
	a.logger.Debug("configuration loaded", "config", a.configPath, "output", cfg.Export.Path)
	return nil
}

func setupLogger(w io.Writer, levelStr string) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
