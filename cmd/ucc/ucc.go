// Package ucc implements the commands that index the Uniform Commercial Code.
package ucc

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/north-cloud/legal-indexer/cmd/common"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/cornell"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
)

// Command returns the ucc command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ucc",
		Short: "Index UCC articles from Cornell LII",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(indexCmd(), incrementalCmd(), articlesCmd(), statusCmd())
	return cmd
}

func indexCmd() *cobra.Command {
	var article string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index every article, or one article with --article",
		Long: `Index UCC articles into the backend. Without --article every known
article is indexed and failures are counted in the job statistics. With
--article (e.g. 2, 2A, 9) only that article is indexed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			article = strings.ToUpper(strings.TrimSpace(article))
			if article != "" {
				if _, ok := cornell.ArticleName(article); !ok {
					return fmt.Errorf("%w: %s", cornell.ErrUnknownArticle, article)
				}
			}
			return cmdcommon.RunWithServices(cmd, domain.CorpusUCC,
				func(ctx context.Context, svc *cmdcommon.Services) error {
					res, err := svc.UCC.RunFull(ctx, article)
					cmdcommon.RenderResult(cmd.OutOrStdout(), string(domain.CorpusUCC), res)
					return err
				})
		},
	}
	cmd.Flags().StringVar(&article, "article", "", "index only this article number")
	return cmd
}

func incrementalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "incremental",
		Short: "Re-index articles that are new, modified or stale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmdcommon.RunWithServices(cmd, domain.CorpusUCC,
				func(ctx context.Context, svc *cmdcommon.Services) error {
					res, err := svc.UCC.StartIncrementalIndexing(ctx)
					cmdcommon.RenderResult(cmd.OutOrStdout(), string(domain.CorpusUCC), res)
					return err
				})
		},
	}
}

func articlesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "articles",
		Short: "List the articles available from Cornell LII",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmdcommon.RunWithServices(cmd, "",
				func(ctx context.Context, svc *cmdcommon.Services) error {
					articles, err := svc.UCC.Articles(ctx)
					if err != nil {
						return fmt.Errorf("list articles: %w", err)
					}
					cmdcommon.RenderArticles(cmd.OutOrStdout(), articles)
					return nil
				})
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show UCC statistics from the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmdcommon.RunWithServices(cmd, "",
				func(ctx context.Context, svc *cmdcommon.Services) error {
					stats, err := svc.UCC.Status(ctx)
					if err != nil {
						return fmt.Errorf("read statistics: %w", err)
					}
					cmdcommon.RenderStats(cmd.OutOrStdout(), "UCC", stats)
					return nil
				})
		},
	}
}
