package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kestrel/bootstrap"
	"kestrel/convention"
)

func newModulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "Show the module composition order and discovered artifacts",
		Long: `Resolve the convention names under the configured base package and print
the modules in the order the container would receive them. Nothing is built
or started.`,
		RunE: runModules,
	}
}

func runModules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, reportOverrides)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	resolver := convention.NewResolver(convention.Default, cfg.Convention.CacheSize)
	reg, err := bootstrap.ComposeModules(cfg, resolver, zap.NewNop())
	if err != nil {
		return fmt.Errorf("compose failed: %w", err)
	}

	out := cmd.OutOrStdout()
	base := cfg.Application.ModulesBasePackage

	if !quiet {
		headerColor.Fprintln(out, "Conventions")
		for _, suffix := range []string{convention.ModuleSuffix, convention.ServletModuleSuffix, convention.RoutesSuffix} {
			name := convention.Resolve(base, suffix)
			ok, err := resolver.Exists(name)
			switch {
			case err != nil:
				errorColor.Fprintf(out, "  ✗ %-40s %v\n", name, err)
			case ok:
				successColor.Fprintf(out, "  ✓ %s\n", name)
			default:
				warningColor.Fprintf(out, "  - %s (not registered)\n", name)
			}
		}
		fmt.Fprintln(out)
		headerColor.Fprintln(out, "Composition order")
	}

	for i, name := range reg.Names() {
		if quiet {
			fmt.Fprintln(out, name)
			continue
		}
		fmt.Fprintf(out, "  %d. ", i+1)
		infoColor.Fprintln(out, name)
	}
	return nil
}
