package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kestrel/bootstrap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Boot the application and serve until interrupted",
		Long: `Boot the application, serve HTTP until SIGINT or SIGTERM is received,
then shut it down gracefully.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	boot := bootstrap.New(cfg, func(o *bootstrap.Options) {
		o.Logger = bootLogger(cmd.ErrOrStderr())
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inst, err := boot.Boot(ctx)
	if err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if !quiet {
		successColor.Fprintf(out, "✓ %s started in %s\n", cfg.Application.Name, inst.StartupDuration())
		if cfg.Server.Enabled {
			infoColor.Fprintf(out, "  Listening on %s\n", cfg.ServerAddr())
		}
		fmt.Fprintln(out, "  Press Ctrl+C to stop")
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+defaultShutdownGrace)
	defer cancel()
	if err := boot.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if !quiet {
		successColor.Fprintln(out, "✓ Stopped")
	}
	return nil
}
