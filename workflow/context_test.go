package workflow

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionContextBuilder(t *testing.T) {
	key := NewQualifiedStepKey("upload", "snap")
	ec := NewExecutionContextBuilder(key).
		AddData("first", "second").
		AddMappedData("repo", "snapshots").
		AddMappedData("host", "nexus").
		AddRollbackData("keep").
		AddMappedRollbackData("force", "true").
		Build()

	assert.Equal(t, key, ec.Key())
	assert.Equal(t, "upload", ec.StepID())
	q, ok := ec.Qualifier()
	assert.True(t, ok)
	assert.Equal(t, "snap", q)

	assert.True(t, ec.HasMappedData())
	assert.True(t, ec.HasUnmappedData())
	assert.Equal(t, []string{"host", "repo"}, ec.MappedDataKeys())
	v, ok := ec.MappedData("repo")
	require.True(t, ok)
	assert.Equal(t, "snapshots", v)
	assert.True(t, ec.ContainsMappedData("host"))
	assert.False(t, ec.ContainsMappedData("missing"))
	assert.Equal(t, []string{"first", "second"}, ec.UnmappedData())

	assert.True(t, ec.HasMappedRollbackData())
	assert.True(t, ec.HasUnmappedRollbackData())
	assert.Equal(t, []string{"force"}, ec.MappedRollbackDataKeys())
	v, ok = ec.MappedRollbackData("force")
	require.True(t, ok)
	assert.Equal(t, "true", v)
	assert.True(t, ec.ContainsMappedRollbackData("force"))
	assert.Equal(t, []string{"keep"}, ec.UnmappedRollbackData())
}

func TestExecutionContext_Empty(t *testing.T) {
	ec := NewExecutionContextBuilder(NewStepKey("init")).Build()

	assert.False(t, ec.HasMappedData())
	assert.False(t, ec.HasUnmappedData())
	assert.False(t, ec.HasMappedRollbackData())
	assert.False(t, ec.HasUnmappedRollbackData())
	assert.Empty(t, ec.MappedDataKeys())
	assert.Empty(t, ec.UnmappedData())
	_, ok := ec.Qualifier()
	assert.False(t, ok)
}

func TestExecutionContext_UnmappedDataIsCopy(t *testing.T) {
	ec := NewExecutionContextBuilder(NewStepKey("a")).AddData("x").Build()
	data := ec.UnmappedData()
	data[0] = "changed"
	assert.Equal(t, []string{"x"}, ec.UnmappedData())
}

func TestExecutionContext_ExpandProjectVariables(t *testing.T) {
	ec := NewExecutionContextBuilder(NewStepKey("publish")).
		AddData("@{project.artifactId}-@{project.version}.jar").
		AddMappedData("coordinates", "@{project.groupId}:@{project.artifactId}:@{project.version}").
		AddRollbackData("@{project.version}").
		AddMappedRollbackData("group", "@{project.groupId}").
		Build()

	ec.ExpandProjectVariables(ProjectIdentity{GroupID: "org.example", ArtifactID: "demo", Version: "1.0.0"})

	assert.Equal(t, []string{"demo-1.0.0.jar"}, ec.UnmappedData())
	v, _ := ec.MappedData("coordinates")
	assert.Equal(t, "org.example:demo:1.0.0", v)
	assert.Equal(t, []string{"1.0.0"}, ec.UnmappedRollbackData())
	v, _ = ec.MappedRollbackData("group")
	assert.Equal(t, "org.example", v)
}

func TestExecutionContext_ExpandLeavesUnknownPlaceholders(t *testing.T) {
	ec := NewExecutionContextBuilder(NewStepKey("a")).
		AddMappedData("x", "@{project.name} @{project.version}").
		Build()
	ec.ExpandProjectVariables(ProjectIdentity{Version: "2"})

	v, _ := ec.MappedData("x")
	assert.Equal(t, "@{project.name} 2", v)
}

// 展开只生效一次：第二次调用不会再改变数据
func TestProperty_ExpandProjectVariablesIsOneShot(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("second expansion is a no-op", prop.ForAll(
		func(prefix, v1, v2 string) bool {
			ec := NewExecutionContextBuilder(NewStepKey("s")).
				AddData(prefix + PlaceholderVersion).
				AddMappedData("k", PlaceholderVersion+prefix).
				Build()

			// 第一次展开的值本身包含占位符时，第二次展开也不能再替换
			ec.ExpandProjectVariables(ProjectIdentity{Version: v1 + PlaceholderVersion})
			first := ec.UnmappedData()
			firstMapped, _ := ec.MappedData("k")

			ec.ExpandProjectVariables(ProjectIdentity{Version: v2})
			second := ec.UnmappedData()
			secondMapped, _ := ec.MappedData("k")

			return first[0] == second[0] &&
				firstMapped == secondMapped &&
				first[0] == prefix+v1+PlaceholderVersion
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
