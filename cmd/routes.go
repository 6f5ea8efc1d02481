package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"kestrel/bootstrap"
	"kestrel/container"
	"kestrel/router"
)

var routesOutput string

func newRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Boot the application without serving and list its compiled routes",
		RunE:  runRoutes,
	}
	cmd.Flags().StringVarP(&routesOutput, "output", "o", "text", "Output format (text, yaml, json)")
	return cmd
}

func runRoutes(cmd *cobra.Command, args []string) error {
	switch routesOutput {
	case "text", "yaml", "json":
	default:
		return fmt.Errorf("unsupported output format %q", routesOutput)
	}

	cfg, err := loadConfig(cmd, reportOverrides)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
	defer cancel()

	boot := bootstrap.New(cfg, func(o *bootstrap.Options) {
		o.Logger = bootLogger(cmd.ErrOrStderr())
	})
	inst, err := boot.Boot(ctx)
	if err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}
	defer boot.Shutdown(context.Background())

	rt, err := container.Resolve[*router.Router](inst.Container())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !rt.Compiled() {
		if !quiet {
			warningColor.Fprintln(out, "No routes registered")
		}
		return nil
	}
	return printRoutes(out, rt.Routes(), routesOutput)
}

func printRoutes(w io.Writer, routes []router.RouteInfo, format string) error {
	switch format {
	case "yaml":
		data, err := yaml.Marshal(routes)
		if err != nil {
			return fmt.Errorf("failed to marshal routes: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(routes)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tPATH\tNAME")
	for _, r := range routes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Method, r.Path, r.Name)
	}
	return tw.Flush()
}
