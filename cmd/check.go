package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"kestrel/bootstrap"
	"kestrel/config"
	"kestrel/convention"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Boot the application once without serving, then shut it down",
		Long: `Run the full boot sequence with the HTTP listener and scheduler disabled.
Reports the composed modules, container and route state, then shuts down.
Exits non-zero when any boot phase fails.`,
		RunE: runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, reportOverrides)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var s *spinner.Spinner
	if !quiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Writer = cmd.ErrOrStderr()
		s.Suffix = " Booting " + cfg.Application.Name + "..."
		s.Start()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
	defer cancel()

	boot := bootstrap.New(cfg, func(o *bootstrap.Options) {
		o.Logger = bootLogger(cmd.ErrOrStderr())
	})
	inst, err := boot.Boot(ctx)
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}

	out := cmd.OutOrStdout()
	c := inst.Container()
	successColor.Fprintf(out, "✓ Boot check passed in %s\n", inst.StartupDuration())
	if !quiet {
		printCheckSummary(cmd, cfg, inst, len(c.Keys()), len(c.Overrides()))
	}

	if err := boot.Shutdown(ctx); err != nil {
		return err
	}
	return nil
}

func printCheckSummary(cmd *cobra.Command, cfg *config.Config, inst *bootstrap.Instance, bindings, overrides int) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  Container:  %s (%s)\n", inst.Container().ID(), inst.Container().Stage())
	fmt.Fprintf(out, "  Modules:    %d\n", len(inst.Modules()))
	fmt.Fprintf(out, "  Bindings:   %d\n", bindings)
	if overrides > 0 {
		warningColor.Fprintf(out, "  Overrides:  %d\n", overrides)
	}
	if inst.RoutesInitialized() {
		fmt.Fprintln(out, "  Routes:     compiled")
	} else {
		warningColor.Fprintf(out, "  Routes:     none (no %s)\n", convention.Resolve(cfg.Application.ModulesBasePackage, convention.RoutesSuffix))
	}
}
