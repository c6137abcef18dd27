package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keysOf(steps []*SimpleStep) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Key.String()
	}
	return out
}

func TestSimpleStep(t *testing.T) {
	s := NewSimpleStep(NewQualifiedStepKey("upload", "snap"))

	assert.Equal(t, "upload", s.ID())
	q, ok := s.Qualifier()
	assert.True(t, ok)
	assert.Equal(t, "snap", q)
	assert.False(t, s.IsParallel())
	assert.Equal(t, []*SimpleStep{s}, s.Steps())
	assert.Equal(t, "upload[snap]", s.String())
}

func TestParallelStep_DedupKeepsOrder(t *testing.T) {
	p := NewParallelStep()

	assert.True(t, p.Add(NewSimpleStep(NewStepKey("b"))))
	assert.True(t, p.Add(NewSimpleStep(NewStepKey("a"))))
	assert.False(t, p.Add(NewSimpleStep(NewStepKey("b"))))
	assert.True(t, p.Add(NewSimpleStep(NewQualifiedStepKey("b", "1"))))

	assert.True(t, p.IsParallel())
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, []string{"b", "a", "b[1]"}, keysOf(p.Steps()))
}

func TestParallelStep_StepsIsCopy(t *testing.T) {
	p := NewParallelStep(NewSimpleStep(NewStepKey("a")))
	steps := p.Steps()
	steps[0] = NewSimpleStep(NewStepKey("x"))
	assert.Equal(t, []string{"a"}, keysOf(p.Steps()))
}

func TestProcessingWorkflow(t *testing.T) {
	wf := NewProcessingWorkflow("deploy")
	wf.AddStep(NewSimpleStep(NewStepKey("init")))
	wf.AddStep(NewParallelStep(
		NewSimpleStep(NewStepKey("check")),
		NewSimpleStep(NewQualifiedStepKey("check", "db")),
	))
	wf.AddStep(NewSimpleStep(NewStepKey("upload")))
	wf.AddFinallyStep(NewSimpleStep(NewStepKey("cleanup")))
	wf.AddFinallyStep(NewSimpleStep(NewStepKey("init")))

	assert.Equal(t, "deploy", wf.Goal())
	assert.Len(t, wf.TrySteps(), 3)
	assert.True(t, wf.TrySteps()[1].IsParallel())
	assert.True(t, wf.HasFinally())
	assert.Equal(t, []string{"cleanup", "init"}, keysOf(wf.FinallySteps()))
	assert.Equal(t, []string{"init", "check", "check[db]", "upload", "cleanup", "init"}, keysOf(wf.AllSteps()))
	assert.Equal(t, []string{"init", "check", "upload", "cleanup"}, wf.StepIDs())
	assert.True(t, wf.ContainsStep("check"))
	assert.False(t, wf.ContainsStep("check[db]"))
}

func TestProcessingWorkflow_Contexts(t *testing.T) {
	wf := NewProcessingWorkflow("g")
	key := NewQualifiedStepKey("a", "1")

	_, ok := wf.Context(key)
	assert.False(t, ok)

	ec := NewExecutionContextBuilder(key).AddData("x").Build()
	wf.SetContext(key, ec)

	got, ok := wf.Context(key)
	require.True(t, ok)
	assert.Same(t, ec, got)

	_, ok = wf.Context(NewStepKey("a"))
	assert.False(t, ok)
}

func TestProcessingWorkflow_Empty(t *testing.T) {
	wf := NewProcessingWorkflow("empty")
	assert.Empty(t, wf.TrySteps())
	assert.Empty(t, wf.FinallySteps())
	assert.False(t, wf.HasFinally())
	assert.Empty(t, wf.StepIDs())
}
