// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "workflows", cfg.Workflow.DescriptorDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Workflow.Offline)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "stepflow.yaml")

	yamlContent := `
log:
  level: debug
  format: json
  enable_timestamps: false

workflow:
  descriptor_dir: build/workflows
  offline: true
  overrides:
    "deploy[prod]": "host=>prod.internal"
    "deploy-rollback": "keep=>false"

project:
  group_id: org.example
  artifact_id: demo
  version: 1.2.3

metrics:
  enabled: true
  namespace: demo
  textfile_path: /tmp/stepflow.prom
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Log.EnableTimestamps)
	assert.Equal(t, "build/workflows", cfg.Workflow.DescriptorDir)
	assert.True(t, cfg.Workflow.Offline)
	assert.Equal(t, map[string]string{
		"deploy[prod]":    "host=>prod.internal",
		"deploy-rollback": "keep=>false",
	}, cfg.Workflow.Overrides)
	assert.Equal(t, ProjectConfig{GroupID: "org.example", ArtifactID: "demo", Version: "1.2.3"}, cfg.Project)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "demo", cfg.Metrics.Namespace)
	assert.Equal(t, "/tmp/stepflow.prom", cfg.Metrics.TextfilePath)

	// 未出现在文件中的字段保留默认值
	assert.Equal(t, "stepflow", cfg.Telemetry.ServiceName)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	envVars := map[string]string{
		"STEPFLOW_LOG_LEVEL":              "warn",
		"STEPFLOW_LOG_OUTPUT_PATHS":       "stdout, /tmp/stepflow.log",
		"STEPFLOW_WORKFLOW_OFFLINE":       "true",
		"STEPFLOW_WORKFLOW_DESCRIPTOR":    "custom.flow",
		"STEPFLOW_PROJECT_VERSION":        "2.0.0",
		"STEPFLOW_TELEMETRY_SAMPLE_RATE":  "0.25",
		"STEPFLOW_METRICS_TEXTFILE_PATH":  "out.prom",
	}
	for k, v := range envVars {
		t.Setenv(k, v)
	}

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, []string{"stdout", "/tmp/stepflow.log"}, cfg.Log.OutputPaths)
	assert.True(t, cfg.Workflow.Offline)
	assert.Equal(t, "custom.flow", cfg.Workflow.Descriptor)
	assert.Equal(t, "2.0.0", cfg.Project.Version)
	assert.Equal(t, 0.25, cfg.Telemetry.SampleRate)
	assert.Equal(t, "out.prom", cfg.Metrics.TextfilePath)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "stepflow.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("project:\n  version: 1.0.0\n  artifact_id: demo\n"), 0o644))

	t.Setenv("STEPFLOW_PROJECT_VERSION", "1.0.1")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, "1.0.1", cfg.Project.Version)
	assert.Equal(t, "demo", cfg.Project.ArtifactID)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_WORKFLOW_DESCRIPTOR_DIR", "flows")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, "flows", cfg.Workflow.DescriptorDir)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("STEPFLOW_WORKFLOW_OFFLINE", "sometimes")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STEPFLOW_WORKFLOW_OFFLINE")
}

func TestLoader_WithValidator(t *testing.T) {
	t.Setenv("STEPFLOW_LOG_LEVEL", "verbose")

	_, err := NewLoader().
		WithValidator(func(c *Config) error { return c.Validate() }).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log level")
}

func TestLoader_NonExistentFile(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/stepflow.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, "workflows", cfg.Workflow.DescriptorDir)
}

func TestLoader_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "broken.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("workflow: [unclosed"), 0o644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

// --- Validate 测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", modify: func(*Config) {}},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.Log.Level = "trace" },
			wantErr: "unknown log level",
		},
		{
			name:    "unknown log format",
			modify:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "unknown log format",
		},
		{
			name: "no descriptor location",
			modify: func(c *Config) {
				c.Workflow.DescriptorDir = ""
				c.Workflow.Descriptor = ""
			},
			wantErr: "workflow.descriptor_dir",
		},
		{
			name: "custom descriptor without dir",
			modify: func(c *Config) {
				c.Workflow.DescriptorDir = ""
				c.Workflow.Descriptor = "deploy.flow"
			},
		},
		{
			name: "metrics without namespace",
			modify: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Namespace = ""
			},
			wantErr: "metrics.namespace",
		},
		{
			name: "telemetry sample rate out of range",
			modify: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.SampleRate = 1.5
			},
			wantErr: "sample_rate",
		},
		{
			name: "telemetry without endpoint",
			modify: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.OTLPEndpoint = ""
			},
			wantErr: "otlp_endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
