package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiverify/api/schemas"
	"github.com/xkilldash9x/uiverify/internal/config"
	"github.com/xkilldash9x/uiverify/internal/observability"
)

var (
	historyPass = color.New(color.FgGreen)
	historyFail = color.New(color.FgRed)
)

// newHistoryCmd creates the `history` command. Provider is injected for tests.
func newHistoryCmd(provider storeProvider) *cobra.Command {
	var (
		scenarioName string
		limit        int
	)
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent recorded runs",
		Long:  `Show runs recorded by 'uiverify run' when a database URL is configured, newest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runHistory(ctx, observability.GetLogger(), cfg, cmd.OutOrStdout(), scenarioName, limit, provider)
		},
	}
	historyCmd.Flags().StringVar(&scenarioName, "scenario", "", "Only show runs of this scenario")
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	historyCmd.Flags().String("database-url", "", "PostgreSQL URL runs were recorded in (or UIVERIFY_DATABASE_URL)")
	return historyCmd
}

// runHistory is the testable core of the history command.
func runHistory(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	out io.Writer,
	scenarioName string,
	limit int,
	provider storeProvider,
) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("no database configured: set --database-url or UIVERIFY_DATABASE_URL")
	}

	s, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	runs, err := s.RecentRuns(ctx, scenarioName, limit)
	if err != nil {
		return err
	}
	logger.Debug("Loaded run history", zap.Int("runs", len(runs)))

	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No runs recorded.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSCENARIO\tSTATUS\tDURATION\tRUN ID\tFAILURE")
	for _, r := range runs {
		status := historyPass.Sprint(string(r.Status))
		if r.Status != schemas.StatusCompleted {
			status = historyFail.Sprint(string(r.Status))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.Scenario,
			status,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.RunID,
			r.FailureKind,
		)
	}
	return tw.Flush()
}
