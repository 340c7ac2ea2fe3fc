package common

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
)

// RunWithServices builds the services, checks that corpus is enabled and
// runs fn. An empty corpus skips the check.
func RunWithServices(
	cmd *cobra.Command,
	corpus domain.Corpus,
	fn func(ctx context.Context, svc *Services) error,
) error {
	deps, err := NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer func() { _ = deps.Logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = infralogger.WithContext(ctx, deps.Logger)

	svc, err := NewServices(ctx, deps)
	if err != nil {
		return err
	}
	defer svc.Close()

	if corpus != "" {
		if requireErr := svc.Require(corpus); requireErr != nil {
			return requireErr
		}
	}
	return fn(ctx, svc)
}
