// Package uscode implements the commands that index the US Code.
package uscode

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/north-cloud/legal-indexer/cmd/common"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/govinfo"
)

const (
	firstTitle = 1
	lastTitle  = 54
)

// ErrTitleRange is returned for --title values outside 1..54.
var ErrTitleRange = errors.New("title must be between 1 and 54")

// Command returns the uscode command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uscode",
		Short: "Index US Code titles from GovInfo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(indexCmd(), incrementalCmd(), titlesCmd(), searchCmd(), statusCmd())
	return cmd
}

func indexCmd() *cobra.Command {
	var title int

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index every title, or one title with --title",
		Long: `Index US Code titles into the backend. Without --title every title is
indexed and failures are counted in the job statistics. With --title only
that title is indexed and a missing title fails the job.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if title != 0 && (title < firstTitle || title > lastTitle) {
				return fmt.Errorf("%w: %d", ErrTitleRange, title)
			}
			return cmdcommon.RunWithServices(cmd, domain.CorpusUSCode,
				func(ctx context.Context, svc *cmdcommon.Services) error {
					res, err := svc.USCode.RunFull(ctx, title)
					cmdcommon.RenderResult(cmd.OutOrStdout(), string(domain.CorpusUSCode), res)
					return err
				})
		},
	}
	cmd.Flags().IntVar(&title, "title", 0, "index only this title number")
	return cmd
}

func incrementalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "incremental",
		Short: "Re-index titles that are new, modified or stale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmdcommon.RunWithServices(cmd, domain.CorpusUSCode,
				func(ctx context.Context, svc *cmdcommon.Services) error {
					res, err := svc.USCode.StartIncrementalIndexing(ctx)
					cmdcommon.RenderResult(cmd.OutOrStdout(), string(domain.CorpusUSCode), res)
					return err
				})
		},
	}
}

func titlesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "titles",
		Short: "List the titles available from GovInfo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmdcommon.RunWithServices(cmd, "",
				func(ctx context.Context, svc *cmdcommon.Services) error {
					titles, err := svc.USCode.Titles(ctx)
					if err != nil {
						return fmt.Errorf("list titles: %w", err)
					}
					cmdcommon.RenderTitles(cmd.OutOrStdout(), titles)
					return nil
				})
		},
	}
}

func searchCmd() *cobra.Command {
	var (
		title int
		limit int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the US Code collection on GovInfo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if title != 0 && (title < firstTitle || title > lastTitle) {
				return fmt.Errorf("%w: %d", ErrTitleRange, title)
			}
			return cmdcommon.RunWithServices(cmd, "",
				func(ctx context.Context, svc *cmdcommon.Services) error {
					results, err := svc.GovInfo.Search(ctx, args[0], title, limit)
					if err != nil {
						return err
					}
					cmdcommon.RenderSearch(cmd.OutOrStdout(), args[0], results)
					return nil
				})
		},
	}
	cmd.Flags().IntVar(&title, "title", 0, "search only this title number")
	cmd.Flags().IntVar(&limit, "limit", govinfo.DefaultSearchLimit, "maximum number of results (at most 100)")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show US Code statistics from the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmdcommon.RunWithServices(cmd, "",
				func(ctx context.Context, svc *cmdcommon.Services) error {
					stats, err := svc.USCode.Status(ctx)
					if err != nil {
						return fmt.Errorf("read statistics: %w", err)
					}
					cmdcommon.RenderStats(cmd.OutOrStdout(), "US Code", stats)
					return nil
				})
		},
	}
}
