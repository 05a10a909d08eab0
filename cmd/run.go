package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiverify/api/schemas"
	"github.com/xkilldash9x/uiverify/internal/action"
	"github.com/xkilldash9x/uiverify/internal/browser"
	"github.com/xkilldash9x/uiverify/internal/config"
	"github.com/xkilldash9x/uiverify/internal/evidence"
	"github.com/xkilldash9x/uiverify/internal/observability"
	"github.com/xkilldash9x/uiverify/internal/reporting"
	"github.com/xkilldash9x/uiverify/internal/scenario"
	"github.com/xkilldash9x/uiverify/internal/waiter"
)

// ErrScenariosFailed is returned by run when at least one scenario did not complete.
var ErrScenariosFailed = errors.New("scenarios failed")

const (
	shutdownTimeout = 15 * time.Second
	recordTimeout   = 10 * time.Second
)

// sessionProvider is the browser runtime as the run command sees it.
type sessionProvider interface {
	schemas.SessionProvider
	Shutdown(ctx context.Context) error
}

type browserFactory func(cfg *config.Config, logger *zap.Logger) sessionProvider

func newEngine(cfg *config.Config, logger *zap.Logger) sessionProvider {
	return browser.NewEngine(cfg, logger)
}

// newRunCmd creates and configures the `run` command.
func newRunCmd(deps dependencies) *cobra.Command {
	defaults := config.NewDefaultConfig()

	runCmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run verification scenarios against a running application",
		Long: `Run the named scenarios one after another, each in a fresh browser.
With no names, every scenario from --scenario-file runs, or every built-in
scenario when no file is given. The command fails if any scenario fails.`,
		Example: `  uiverify run checkout-form --base-url http://localhost:3000
  uiverify run dark-mode --headless=false --slow-mo 250ms
  uiverify run -s flows.yaml -f json -o out/report.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			file, _ := cmd.Flags().GetString("scenario-file")
			scenarios, err := selectScenarios(args, file)
			if err != nil {
				return err
			}
			return runScenarios(ctx, observability.GetLogger(), cfg, scenarios, deps)
		},
	}

	flags := runCmd.Flags()
	flags.StringP("scenario-file", "s", "", "YAML file with scenarios to run or choose from")
	flags.String("base-url", defaults.Scenario.BaseURL, "Base URL of the application under test")
	flags.Duration("timeout", defaults.Scenario.Timeout, "Upper bound for one whole scenario (0 disables)")
	flags.Duration("assert-timeout", defaults.Scenario.AssertTimeout, "Wait used by expect steps that set no timeout")
	flags.Duration("poll-interval", defaults.Scenario.PollInterval, "How often waits re-check their condition")
	flags.String("output-dir", defaults.Scenario.OutputDir, "Directory for relative screenshot paths")
	flags.Bool("full-page", defaults.Scenario.FullPage, "Capture the whole scrollable page instead of the viewport")
	flags.Bool("headless", defaults.Browser.Headless, "Run the browser without a window")
	flags.Duration("slow-mo", defaults.Browser.SlowMo, "Minimum gap between interactions, for watching a headed run")
	flags.StringP("format", "f", defaults.Report.Format, "Report format ('text' or 'json')")
	flags.StringP("output", "o", "", "Report file path (default stdout)")
	flags.String("database-url", "", "PostgreSQL URL to record outcomes in (or UIVERIFY_DATABASE_URL)")

	return runCmd
}

// selectScenarios resolves the requested names. Scenarios from file shadow built-ins of
// the same name.
func selectScenarios(names []string, file string) ([]scenario.Scenario, error) {
	var fromFile []scenario.Scenario
	if file != "" {
		var err error
		if fromFile, err = scenario.LoadFile(file); err != nil {
			return nil, err
		}
	}

	if len(names) == 0 {
		if file != "" {
			return fromFile, nil
		}
		return scenario.Builtins(), nil
	}

	selected := make([]scenario.Scenario, 0, len(names))
	for _, name := range names {
		sc, ok := findScenario(name, fromFile)
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q (run 'uiverify list' to see what is available)", name)
		}
		selected = append(selected, sc)
	}
	return selected, nil
}

func findScenario(name string, fromFile []scenario.Scenario) (scenario.Scenario, bool) {
	for _, sc := range fromFile {
		if sc.Name == name {
			return sc, true
		}
	}
	return scenario.Builtin(name)
}

// runComponents holds the services one run command needs.
type runComponents struct {
	Runner  *scenario.Runner
	Browser sessionProvider
	Store   outcomeStore
	cleanup func()
}

// Shutdown stops the browser runtime and closes the store. It runs on a context detached
// from ctx so an interrupted run still tears down.
func (rc *runComponents) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if rc.Browser != nil {
		if err := rc.Browser.Shutdown(shutdownCtx); err != nil {
			observability.GetLogger().Warn("Error during browser shutdown", zap.Error(err))
		}
	}
	if rc.cleanup != nil {
		rc.cleanup()
	}
}

func initializeRunComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, deps dependencies) (*runComponents, error) {
	components := &runComponents{}

	if cfg.Database.URL != "" {
		st, cleanup, err := deps.stores.Create(ctx, cfg)
		if err != nil {
			return components, fmt.Errorf("failed to initialize store: %w", err)
		}
		components.Store, components.cleanup = st, cleanup
		if err := st.Migrate(ctx); err != nil {
			return components, err
		}
	}

	components.Browser = deps.browsers(cfg, logger)
	components.Runner = scenario.NewRunner(
		logger,
		components.Browser,
		waiter.New(logger, cfg.Scenario.PollInterval, cfg.Scenario.AssertTimeout),
		action.NewDispatcher(logger, cfg.Browser.SlowMo),
		evidence.NewCapturer(logger, cfg.Scenario.OutputDir, cfg.Scenario.FullPage),
		cfg.Scenario.Timeout,
	)
	return components, nil
}

// runScenarios is the testable core of the run command.
func runScenarios(ctx context.Context, logger *zap.Logger, cfg *config.Config, scenarios []scenario.Scenario, deps dependencies) error {
	reporter, err := reporting.New(cfg.Report.Format, cfg.Report.Output, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}

	components, err := initializeRunComponents(ctx, cfg, logger, deps)
	if err != nil {
		components.Shutdown(ctx)
		_ = reporter.Close()
		return err
	}
	defer components.Shutdown(ctx)

	logger.Info("Starting verification run",
		zap.String("base_url", cfg.Scenario.BaseURL),
		zap.Int("scenarios", len(scenarios)),
		zap.Bool("headless", cfg.Browser.Headless),
	)

	ran, failed := 0, 0
	components.Runner.RunEach(ctx, scenarios, cfg.Scenario.BaseURL, func(o *schemas.ScenarioOutcome) {
		ran++
		if !o.Completed() {
			failed++
		}
		if err := reporter.Write(o); err != nil {
			logger.Warn("Failed to write outcome to report.", zap.String("run_id", o.RunID), zap.Error(err))
		}
		if components.Store != nil {
			recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
			if err := components.Store.RecordOutcome(recordCtx, o); err != nil {
				logger.Warn("Failed to record outcome.", zap.String("run_id", o.RunID), zap.Error(err))
			}
			cancel()
		}
	})

	if err := reporter.Close(); err != nil {
		return fmt.Errorf("failed to finalize report: %w", err)
	}
	if cfg.Report.Output != "" && cfg.Report.Output != "stdout" {
		logger.Info("Report successfully written to file", zap.String("path", cfg.Report.Output))
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run interrupted after %d of %d scenario(s): %w", ran, len(scenarios), err)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d did not complete", ErrScenariosFailed, failed, ran)
	}
	return nil
}
