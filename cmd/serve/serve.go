// Package serve implements the long-running serve command: the ops HTTP
// server plus scheduled incremental indexing.
package serve

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/north-cloud/legal-indexer/cmd/common"
	infracontext "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/context"
	infragin "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/legal-indexer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/domain"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/ops"
	"github.com/jonesrussell/north-cloud/legal-indexer/internal/scheduler"
)

type options struct {
	noSchedule bool
	runNow     bool
	schedule   string
}

// Command returns the serve command.
func Command() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health, metrics and status, and run scheduled incremental indexing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmdcommon.RunWithServices(cmd, "",
				func(ctx context.Context, svc *cmdcommon.Services) error {
					return run(ctx, svc, opts)
				})
		},
	}
	cmd.Flags().BoolVar(&opts.noSchedule, "no-schedule", false, "serve without scheduled indexing")
	cmd.Flags().BoolVar(&opts.runNow, "run-now", false, "run an incremental pass at startup")
	cmd.Flags().StringVar(&opts.schedule, "schedule", "", "cron schedule overriding indexer.schedule")
	return cmd
}

func run(ctx context.Context, svc *cmdcommon.Services, opts options) error {
	cfg := svc.Config
	log := infralogger.FromContext(ctx)

	srv := ops.NewServer(&infragin.Config{
		Address:        cfg.Server.Address(),
		Debug:          cfg.Logging.Debug,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
	}, ops.Options{
		Checks:  svc.Checks(),
		Metrics: svc.Metrics,
		Corpora: svc.Corpora(),
	}, log)

	var sched *scheduler.Scheduler
	if !opts.noSchedule {
		spec := cfg.Indexer.Schedule
		if opts.schedule != "" {
			spec = opts.schedule
		}

		s, err := scheduler.New(spec, entries(svc), log)
		if err != nil {
			return err
		}
		if startErr := s.Start(ctx); startErr != nil {
			return startErr
		}
		sched = s

		if opts.runNow {
			s.Trigger()
		}
	}

	runErr := srv.Run(ctx)

	if sched != nil {
		stopCtx, cancel := infracontext.WithShutdownTimeout(ctx)
		defer cancel()
		if stopErr := sched.Stop(stopCtx); stopErr != nil {
			log.Warn("Scheduler did not stop cleanly", infralogger.Error(stopErr))
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("ops server: %w", runErr)
	}
	return nil
}

// entries lists the enabled corpora in indexer.corpora order.
func entries(svc *cmdcommon.Services) []scheduler.Entry {
	out := make([]scheduler.Entry, 0, len(svc.Config.Indexer.Corpora))
	for _, name := range svc.Config.Indexer.Corpora {
		corpus, err := domain.ParseCorpus(name)
		if err != nil {
			continue
		}
		switch corpus {
		case domain.CorpusUSCode:
			out = append(out, scheduler.Entry{Corpus: corpus, Runner: svc.USCode})
		case domain.CorpusUCC:
			out = append(out, scheduler.Entry{Corpus: corpus, Runner: svc.UCC})
		}
	}
	return out
}
