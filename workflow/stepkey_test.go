package workflow

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestStepKey_String(t *testing.T) {
	assert.Equal(t, "deploy", NewStepKey("deploy").String())
	assert.Equal(t, "deploy[prod]", NewQualifiedStepKey("deploy", "prod").String())
	assert.Equal(t, "deploy[]", NewQualifiedStepKey("deploy", "").String())
}

func TestStepKey_MapKey(t *testing.T) {
	m := map[StepKey]int{
		NewStepKey("a"):               1,
		NewQualifiedStepKey("a", ""):  2,
		NewQualifiedStepKey("a", "x"): 3,
	}
	assert.Len(t, m, 3)
	assert.Equal(t, 3, m[NewQualifiedStepKey("a", "x")])
}

func TestStepKey_Compare(t *testing.T) {
	keys := []StepKey{
		NewQualifiedStepKey("b", "2"),
		NewQualifiedStepKey("a", "z"),
		NewStepKey("b"),
		NewQualifiedStepKey("b", "1"),
		NewStepKey("a"),
	}
	slices.SortFunc(keys, StepKey.Compare)

	got := make([]string, len(keys))
	for i, k := range keys {
		got[i] = k.String()
	}
	assert.Equal(t, []string{"a", "a[z]", "b", "b[1]", "b[2]"}, got)
}

func TestParseStepKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    StepKey
		wantErr string
	}{
		{name: "plain id", input: "deploy", want: NewStepKey("deploy")},
		{name: "trimmed", input: "  deploy  ", want: NewStepKey("deploy")},
		{name: "qualified", input: "deploy[prod]", want: NewQualifiedStepKey("deploy", "prod")},
		{name: "empty qualifier", input: "deploy[]", want: NewQualifiedStepKey("deploy", "")},
		{name: "qualifier keeps inner text", input: "step[a b]", want: NewQualifiedStepKey("step", "a b")},
		{name: "empty", input: "", wantErr: "empty step id"},
		{name: "qualifier without id", input: "[x]", wantErr: "empty step id"},
		{name: "unterminated", input: "deploy[prod", wantErr: "unterminated qualifier"},
		{name: "trailing text", input: "deploy[prod]x", wantErr: "trailing text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStepKey(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// String 与 ParseStepKey 互为逆运算
func TestProperty_StepKeyRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := rapid.StringMatching(`[A-Za-z][A-Za-z0-9_.\-]{0,15}`).Draw(rt, "id")
		var key StepKey
		if rapid.Bool().Draw(rt, "qualified") {
			q := rapid.StringMatching(`[A-Za-z0-9_.\-]{0,10}`).Draw(rt, "qualifier")
			key = NewQualifiedStepKey(id, q)
		} else {
			key = NewStepKey(id)
		}

		parsed, err := ParseStepKey(key.String())
		require.NoError(rt, err)
		assert.Equal(rt, key, parsed)
		assert.Equal(rt, 0, key.Compare(parsed))
	})
}
