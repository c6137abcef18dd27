package workflow

import (
	"fmt"
	"strings"
)

// 数据串的分隔符
const (
	DataSeparator     = ","
	DataMapAssignment = "=>"
	// RollbackOverrideSuffix 回滚数据覆盖项的 key 后缀
	RollbackOverrideSuffix = "-rollback"
)

// Overrides 外部提供的步骤数据覆盖项
type Overrides struct {
	data     map[StepKey]string
	rollback map[StepKey]string
}

// NewOverrides 创建空覆盖集合
func NewOverrides() Overrides {
	return Overrides{
		data:     make(map[StepKey]string),
		rollback: make(map[StepKey]string),
	}
}

// SetData 设置执行数据覆盖
func (o Overrides) SetData(key StepKey, value string) {
	o.data[key] = value
}

// SetRollbackData 设置回滚数据覆盖
func (o Overrides) SetRollbackData(key StepKey, value string) {
	o.rollback[key] = value
}

// Data 查找执行数据覆盖
func (o Overrides) Data(key StepKey) (string, bool) {
	v, ok := o.data[key]
	return v, ok
}

// RollbackData 查找回滚数据覆盖
func (o Overrides) RollbackData(key StepKey) (string, bool) {
	v, ok := o.rollback[key]
	return v, ok
}

// Len 返回覆盖项总数
func (o Overrides) Len() int { return len(o.data) + len(o.rollback) }

// ParseOverrides 将 "id"、"id[q]"、"id[q]-rollback" 形式的 key 转换为 Overrides
func ParseOverrides(raw map[string]string) (Overrides, error) {
	o := NewOverrides()
	for k, v := range raw {
		rollback := false
		name := strings.TrimSpace(k)
		if strings.HasSuffix(name, RollbackOverrideSuffix) {
			rollback = true
			name = strings.TrimSuffix(name, RollbackOverrideSuffix)
		}
		key, err := ParseStepKey(name)
		if err != nil {
			return Overrides{}, fmt.Errorf("invalid override key %q: %w", k, err)
		}
		if rollback {
			o.SetRollbackData(key, v)
		} else {
			o.SetData(key, v)
		}
	}
	return o, nil
}

// ContextBuilder 根据默认数据与覆盖项构建执行上下文
type ContextBuilder struct {
	overrides Overrides
}

// NewContextBuilder 创建上下文构建器
func NewContextBuilder(overrides Overrides) *ContextBuilder {
	if overrides.data == nil {
		overrides = NewOverrides()
	}
	return &ContextBuilder{overrides: overrides}
}

// Build 为单个步骤构建上下文
// 取值顺序：覆盖项 → 描述符默认值 → 空
func (b *ContextBuilder) Build(step *SimpleStep) *ExecutionContext {
	builder := NewExecutionContextBuilder(step.Key)

	data, ok := b.overrides.Data(step.Key)
	if !ok {
		data = step.DefaultData
	}
	mapped, unmapped := Tokenize(data)
	builder.AddData(unmapped...)
	for k, v := range mapped {
		builder.AddMappedData(k, v)
	}

	rollbackData, ok := b.overrides.RollbackData(step.Key)
	if !ok {
		rollbackData = step.DefaultRollbackData
	}
	mapped, unmapped = Tokenize(rollbackData)
	builder.AddRollbackData(unmapped...)
	for k, v := range mapped {
		builder.AddMappedRollbackData(k, v)
	}

	return builder.Build()
}

// Attach 为工作流中所有步骤构建并绑定上下文
func (b *ContextBuilder) Attach(wf *ProcessingWorkflow) {
	for _, step := range wf.AllSteps() {
		if _, exists := wf.Context(step.Key); exists {
			continue
		}
		wf.SetContext(step.Key, b.Build(step))
	}
}

// Tokenize 拆分数据串："a=>1, b" 得到 {a: 1} 与 [b]
func Tokenize(value string) (map[string]string, []string) {
	mapped := make(map[string]string)
	var unmapped []string

	if strings.TrimSpace(value) == "" {
		return mapped, unmapped
	}

	for _, token := range strings.Split(value, DataSeparator) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		parts := strings.Split(token, DataMapAssignment)
		switch len(parts) {
		case 2:
			mapped[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		default:
			unmapped = append(unmapped, token)
		}
	}
	return mapped, unmapped
}
