package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/stepflow/config"
)

// cliOptions 命令行参数，显式设置时覆盖配置文件
type cliOptions struct {
	configPath     string
	descriptorDir  string
	descriptorFile string
	offline        bool
	defines        []string
	groupID        string
	artifactID     string
	version        string
	metricsFile    string
	logLevel       string
}

// newRootCmd 构建命令树
func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "stepflow",
		Short: "Run goal-driven processing workflows",
		Long: `stepflow executes line-oriented workflow descriptors. Each goal maps to a
descriptor listing processing steps in a try block, optionally grouped into
parallel blocks, followed by an optional finally block. When a try step
fails, every executed step is rolled back in reverse order before the
finally steps run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (YAML)")
	pf.StringVar(&opts.descriptorDir, "dir", "", "directory holding one descriptor per goal (default \"workflows\")")
	pf.StringVarP(&opts.descriptorFile, "workflow", "f", "", "custom workflow descriptor file")
	pf.BoolVar(&opts.offline, "offline", false, "reject steps that require online connectivity")
	pf.StringArrayVarP(&opts.defines, "define", "D", nil, "data override as <step>[<qualifier>][-rollback]=<data> (repeatable)")
	pf.StringVar(&opts.groupID, "group-id", "", "project group id for @{project.groupId}")
	pf.StringVar(&opts.artifactID, "artifact-id", "", "project artifact id for @{project.artifactId}")
	pf.StringVar(&opts.version, "project-version", "", "project version for @{project.version}")
	pf.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newRunCmd(opts),
		newValidateCmd(opts),
		newPrintCmd(opts),
		newStepsCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig 加载配置并应用显式设置的命令行参数
func (o *cliOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	loader := config.NewLoader().WithEnvPrefix("STEPFLOW")
	if o.configPath != "" {
		loader = loader.WithConfigPath(o.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.Workflow.DescriptorDir = o.descriptorDir
	}
	if flags.Changed("workflow") {
		cfg.Workflow.Descriptor = o.descriptorFile
	}
	if flags.Changed("offline") {
		cfg.Workflow.Offline = o.offline
	}
	if flags.Changed("group-id") {
		cfg.Project.GroupID = o.groupID
	}
	if flags.Changed("artifact-id") {
		cfg.Project.ArtifactID = o.artifactID
	}
	if flags.Changed("project-version") {
		cfg.Project.Version = o.version
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.TextfilePath = o.metricsFile
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}

	if len(o.defines) > 0 {
		if cfg.Workflow.Overrides == nil {
			cfg.Workflow.Overrides = make(map[string]string)
		}
		for _, d := range o.defines {
			key, value, ok := strings.Cut(d, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return nil, fmt.Errorf("invalid --define %q: expected <step>=<data>", d)
			}
			cfg.Workflow.Overrides[strings.TrimSpace(key)] = value
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup 加载配置并初始化 logger
func (o *cliOptions) setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, initLogger(cfg.Log), nil
}
