// =============================================================================
// 📦 stepflow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Log:       DefaultLogConfig(),
		Workflow:  DefaultWorkflowConfig(),
		Project:   ProjectConfig{},
		Metrics:   DefaultMetricsConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
		EnableTimestamps: true,
	}
}

// DefaultWorkflowConfig 返回默认工作流配置
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		DescriptorDir: "workflows",
		Overrides:     map[string]string{},
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Namespace: "stepflow",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "stepflow",
		SampleRate:   1.0,
	}
}
