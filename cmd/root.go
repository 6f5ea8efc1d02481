// Package cmd provides the command-line interface of kestrel applications.
package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"kestrel/config"
	_ "kestrel/logging"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags
var (
	configFile  string
	basePackage string
	noColor     bool
	quiet       bool
)

const (
	defaultTimeout       = 2 * time.Minute
	defaultShutdownGrace = 5 * time.Second
)

// NewRootCmd creates the root command. defaultBase is the modules base package
// used when neither --base-package nor the configuration sets one.
func NewRootCmd(use, defaultBase string) *cobra.Command {
	root := &cobra.Command{
		Use:           use,
		Short:         "Boot and inspect a kestrel application",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: application.yaml in . or ./conf)")
	root.PersistentFlags().StringVar(&basePackage, "base-package", defaultBase, "Modules base package, overrides "+config.KeyModulesBasePackage)
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	root.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")

	root.AddCommand(newServeCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newModulesCmd())
	root.AddCommand(newRoutesCmd())

	return root
}

// Execute runs the root command against os.Args and exits non-zero on error.
func Execute(use, defaultBase string) {
	root := NewRootCmd(use, defaultBase)
	if err := root.Execute(); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// reportOverrides keeps log lines off stdout for commands whose stdout is the
// report itself.
var reportOverrides = map[string]any{
	"server.enabled":    false,
	"scheduler.enabled": false,
	"logging.output":    "stderr",
}

// loadConfig loads the configuration and applies flag overrides. An explicit
// --base-package wins over the file; the flag default only fills an empty value.
// --quiet raises the backend log level to error.
func loadConfig(cmd *cobra.Command, overrides map[string]any) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	explicit := cmd.Flags().Changed("base-package")
	if basePackage != "" && (explicit || cfg.Application.ModulesBasePackage == "") {
		if err := cfg.Set(config.KeyModulesBasePackage, basePackage); err != nil {
			return nil, fmt.Errorf("invalid --base-package: %w", err)
		}
	}
	for k, v := range overrides {
		if err := cfg.Set(k, v); err != nil {
			return nil, fmt.Errorf("set %s: %w", k, err)
		}
	}
	if quiet {
		if err := cfg.Set("logging.level", "error"); err != nil {
			return nil, fmt.Errorf("set logging.level: %w", err)
		}
	}
	return cfg, nil
}

// bootLogger is used until the logging backend takes over.
func bootLogger(w io.Writer) *zap.Logger {
	if quiet {
		return zap.NewNop()
	}
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(w), zapcore.InfoLevel)
	return zap.New(core)
}
