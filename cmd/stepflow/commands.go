package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/stepflow"
	"github.com/BaSui01/stepflow/config"
	"github.com/BaSui01/stepflow/internal/metrics"
	"github.com/BaSui01/stepflow/internal/telemetry"
	"github.com/BaSui01/stepflow/workflow"
	"github.com/BaSui01/stepflow/workflow/dsl"
	"github.com/BaSui01/stepflow/workflow/steps"
)

// =============================================================================
// 🚀 run 命令
// =============================================================================

func newRunCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <goal>",
		Short: "Execute the workflow of a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return runWorkflow(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], logger)
		},
	}
}

func runWorkflow(ctx context.Context, out io.Writer, cfg *config.Config, goal string, logger *zap.Logger) error {
	providers, err := telemetry.Init(cfg.Telemetry, Version, logger)
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	registry, err := builtinRegistry(logger)
	if err != nil {
		return err
	}

	runOpts := workflowOptions(cfg, logger)
	runOpts = append(runOpts, stepflow.WithTracerProvider(providers.TracerProvider()))

	var collector *metrics.Collector
	if cfg.Metrics.Enabled || cfg.Metrics.TextfilePath != "" {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
		runOpts = append(runOpts, stepflow.WithMetrics(collector))
	}

	report, runErr := stepflow.Run(ctx, goal, registry, runOpts...)

	if collector != nil && cfg.Metrics.TextfilePath != "" {
		if err := collector.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			logger.Warn("failed to write metrics", zap.Error(err))
		}
	}

	if report.RunID != "" {
		printReport(out, report, runErr)
	}
	return runErr
}

func printReport(w io.Writer, report workflow.RunReport, err error) {
	status := "SUCCESS"
	switch {
	case err != nil:
		status = "FAILURE"
	case report.RollbackRequested:
		status = "ROLLED BACK"
	}
	fmt.Fprintf(w, "%s %s (%s, run %s)\n", dsl.Separator(report.Goal), status, report.Duration.Round(time.Millisecond), report.RunID)
	if report.Failure != nil && !report.RollbackRequested {
		fmt.Fprintf(w, "  failure:     %v\n", report.Failure)
	}
	for _, k := range report.RolledBack {
		fmt.Fprintf(w, "  rolled back: %s\n", k)
	}
	for _, e := range report.DispatchErrors {
		fmt.Fprintf(w, "  rollback error: %v\n", e)
	}
	for _, e := range report.FinallyFailures {
		fmt.Fprintf(w, "  finally error:  %v\n", e)
	}
}

// =============================================================================
// ✅ validate 命令
// =============================================================================

func newValidateCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <goal>",
		Short: "Check descriptor syntax and step references without executing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			registry, err := builtinRegistry(logger)
			if err != nil {
				return err
			}
			if _, err := stepflow.Prepare(args[0], registry, workflowOptions(cfg, logger)...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "workflow %q is valid\n", args[0])
			return nil
		},
	}
}

// =============================================================================
// 🖨️ print 命令
// =============================================================================

func newPrintCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "print <goal>",
		Short: "Print the workflow descriptor of a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			src := dsl.NewSource(cfg.Workflow.DescriptorDir, cfg.Workflow.Descriptor)
			lines, err := src.Lines(args[0])
			if err != nil {
				return err
			}
			return dsl.Render(cmd.OutOrStdout(), args[0], lines)
		},
	}
}

// =============================================================================
// 📋 steps 命令
// =============================================================================

func newStepsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List the built-in processing steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := builtinRegistry(zap.NewNop())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tREQUIRES ONLINE\tDESCRIPTION")
			for _, info := range registry.Infos() {
				fmt.Fprintf(tw, "%s\t%t\t%s\n", info.ID, info.RequiresOnline, info.Description)
			}
			return tw.Flush()
		},
	}
}

// =============================================================================
// ℹ️ version 命令
// =============================================================================

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "stepflow %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

func builtinRegistry(logger *zap.Logger) (*workflow.Registry, error) {
	registry := workflow.NewRegistry()
	if err := steps.Register(registry, logger); err != nil {
		return nil, fmt.Errorf("failed to register built-in steps: %w", err)
	}
	return registry, nil
}

func workflowOptions(cfg *config.Config, logger *zap.Logger) []stepflow.Option {
	return []stepflow.Option{
		stepflow.WithDescriptorDir(cfg.Workflow.DescriptorDir),
		stepflow.WithDescriptorFile(cfg.Workflow.Descriptor),
		stepflow.WithOffline(cfg.Workflow.Offline),
		stepflow.WithOverrides(cfg.Workflow.Overrides),
		stepflow.WithProject(workflow.ProjectIdentity{
			GroupID:    cfg.Project.GroupID,
			ArtifactID: cfg.Project.ArtifactID,
			Version:    cfg.Project.Version,
		}),
		stepflow.WithLogger(logger),
	}
}
