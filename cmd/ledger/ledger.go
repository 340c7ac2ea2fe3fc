// Package ledger implements the command that lists the index ledger.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/north-cloud/legal-indexer/cmd/common"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
)

// ErrNoLedger is returned when no ledger database is configured.
var ErrNoLedger = errors.New("no index ledger configured (set ledger.dsn or ledger.host)")

// Command returns the ledger command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "ledger <corpus>",
		Short: "List the units recorded in the index ledger",
		Long: `List the fingerprint ledger that drives incremental indexing. Units marked
incomplete had records that failed to store and are retried by the next
incremental run.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.CorpusUSCode), string(domain.CorpusUCC)},
		RunE: func(cmd *cobra.Command, args []string) error {
			corpus, err := domain.ParseCorpus(args[0])
			if err != nil {
				return err
			}
			return cmdcommon.RunWithServices(cmd, "",
				func(ctx context.Context, svc *cmdcommon.Services) error {
					if svc.Ledger == nil {
						return ErrNoLedger
					}
					records, listErr := svc.Ledger.List(ctx, corpus)
					if listErr != nil {
						return fmt.Errorf("list ledger: %w", listErr)
					}
					cmdcommon.RenderLedger(cmd.OutOrStdout(), string(corpus), records)
					return nil
				})
		},
	}
}
