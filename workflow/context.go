package workflow

import (
	"maps"
	"slices"
	"strings"
	"sync"
)

// 项目变量占位符
const (
	PlaceholderGroupID    = "@{project.groupId}"
	PlaceholderArtifactID = "@{project.artifactId}"
	PlaceholderVersion    = "@{project.version}"
)

// ProjectIdentity 项目标识，用于上下文变量展开
type ProjectIdentity struct {
	GroupID    string `json:"group_id" yaml:"group_id"`
	ArtifactID string `json:"artifact_id" yaml:"artifact_id"`
	Version    string `json:"version" yaml:"version"`
}

func (p ProjectIdentity) replacer() *strings.Replacer {
	return strings.NewReplacer(
		PlaceholderGroupID, p.GroupID,
		PlaceholderArtifactID, p.ArtifactID,
		PlaceholderVersion, p.Version,
	)
}

// ExecutionContext 步骤执行上下文
// 构建后只在 ExpandProjectVariables 中修改一次，之后只读
type ExecutionContext struct {
	key                  StepKey
	mappedData           map[string]string
	unmappedData         []string
	mappedRollbackData   map[string]string
	unmappedRollbackData []string

	expandOnce sync.Once
}

// Key 返回复合步骤标识
func (c *ExecutionContext) Key() StepKey { return c.key }

// StepID 返回步骤 ID
func (c *ExecutionContext) StepID() string { return c.key.ID }

// Qualifier 返回限定符
func (c *ExecutionContext) Qualifier() (string, bool) { return c.key.Qualifier, c.key.Qualified }

func (c *ExecutionContext) HasMappedData() bool   { return len(c.mappedData) > 0 }
func (c *ExecutionContext) HasUnmappedData() bool { return len(c.unmappedData) > 0 }

// MappedDataKeys 返回排序后的键
func (c *ExecutionContext) MappedDataKeys() []string {
	return slices.Sorted(maps.Keys(c.mappedData))
}

// MappedData 返回键对应的值
func (c *ExecutionContext) MappedData(key string) (string, bool) {
	v, ok := c.mappedData[key]
	return v, ok
}

func (c *ExecutionContext) ContainsMappedData(key string) bool {
	_, ok := c.mappedData[key]
	return ok
}

// UnmappedData 返回位置参数副本
func (c *ExecutionContext) UnmappedData() []string {
	return slices.Clone(c.unmappedData)
}

func (c *ExecutionContext) HasMappedRollbackData() bool   { return len(c.mappedRollbackData) > 0 }
func (c *ExecutionContext) HasUnmappedRollbackData() bool { return len(c.unmappedRollbackData) > 0 }

func (c *ExecutionContext) MappedRollbackDataKeys() []string {
	return slices.Sorted(maps.Keys(c.mappedRollbackData))
}

func (c *ExecutionContext) MappedRollbackData(key string) (string, bool) {
	v, ok := c.mappedRollbackData[key]
	return v, ok
}

func (c *ExecutionContext) ContainsMappedRollbackData(key string) bool {
	_, ok := c.mappedRollbackData[key]
	return ok
}

func (c *ExecutionContext) UnmappedRollbackData() []string {
	return slices.Clone(c.unmappedRollbackData)
}

// ExpandProjectVariables 替换项目变量占位符，同一实例只执行一次
func (c *ExecutionContext) ExpandProjectVariables(project ProjectIdentity) {
	c.expandOnce.Do(func() {
		r := project.replacer()
		expandMap(c.mappedData, r)
		expandSlice(c.unmappedData, r)
		expandMap(c.mappedRollbackData, r)
		expandSlice(c.unmappedRollbackData, r)
	})
}

func expandMap(m map[string]string, r *strings.Replacer) {
	for k, v := range m {
		m[k] = r.Replace(v)
	}
}

func expandSlice(s []string, r *strings.Replacer) {
	for i, v := range s {
		s[i] = r.Replace(v)
	}
}

// =============================================================================
// ExecutionContextBuilder
// =============================================================================

// ExecutionContextBuilder 执行上下文构建器
type ExecutionContextBuilder struct {
	ctx *ExecutionContext
}

// NewExecutionContextBuilder 创建构建器
func NewExecutionContextBuilder(key StepKey) *ExecutionContextBuilder {
	return &ExecutionContextBuilder{
		ctx: &ExecutionContext{
			key:                key,
			mappedData:         make(map[string]string),
			mappedRollbackData: make(map[string]string),
		},
	}
}

func (b *ExecutionContextBuilder) AddData(values ...string) *ExecutionContextBuilder {
	b.ctx.unmappedData = append(b.ctx.unmappedData, values...)
	return b
}

func (b *ExecutionContextBuilder) AddMappedData(key, value string) *ExecutionContextBuilder {
	b.ctx.mappedData[key] = value
	return b
}

func (b *ExecutionContextBuilder) AddRollbackData(values ...string) *ExecutionContextBuilder {
	b.ctx.unmappedRollbackData = append(b.ctx.unmappedRollbackData, values...)
	return b
}

func (b *ExecutionContextBuilder) AddMappedRollbackData(key, value string) *ExecutionContextBuilder {
	b.ctx.mappedRollbackData[key] = value
	return b
}

// Build 返回构建好的上下文，构建器随后不可再用
func (b *ExecutionContextBuilder) Build() *ExecutionContext {
	ec := b.ctx
	b.ctx = nil
	return ec
}
