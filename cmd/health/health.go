// Package health implements the health command.
package health

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/north-cloud/legal-indexer/cmd/common"
	infracontext "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/context"
	infragin "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/ops"
)

// ErrUnhealthy is returned when a required dependency fails its check.
var ErrUnhealthy = errors.New("a required dependency is unhealthy")

// Command returns the health command.
func Command() *cobra.Command {
	var showConfig bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the backend, sources and optional stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmdcommon.RunWithServices(cmd, "",
				func(_ context.Context, svc *cmdcommon.Services) error {
					if showConfig {
						summary := make(map[string]any)
						for k, v := range svc.Config.Summary() {
							summary[k] = v
						}
						cmdcommon.RenderStats(cmd.OutOrStdout(), "Configuration", summary)
					}

					results := Run(svc.Checks())
					cmdcommon.RenderHealth(cmd.OutOrStdout(), results)
					for _, r := range results {
						if r.Status == infragin.HealthStatusUnhealthy {
							return ErrUnhealthy
						}
					}
					return nil
				})
		},
	}
	cmd.Flags().BoolVar(&showConfig, "config-summary", false, "also print the effective configuration")
	return cmd
}

// Run executes every check once.
func Run(checks []ops.Check) map[string]infragin.CheckResult {
	checkers := ops.HealthCheckers(checks, infracontext.DefaultPingTimeout)
	results := make(map[string]infragin.CheckResult, len(checkers))
	for name, check := range checkers {
		results[name] = check()
	}
	return results
}
