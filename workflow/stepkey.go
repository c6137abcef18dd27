package workflow

import (
	"cmp"
	"fmt"
	"strings"
)

// StepKey 步骤的复合标识（id 或 id[qualifier]）
// 可比较的值类型，直接用作 map key；方括号写法只用于展示
type StepKey struct {
	ID        string
	Qualifier string
	// Qualified 区分 "a" 与 "a[]"
	Qualified bool
}

// NewStepKey 创建不带限定符的步骤标识
func NewStepKey(id string) StepKey {
	return StepKey{ID: id}
}

// NewQualifiedStepKey 创建带限定符的步骤标识
func NewQualifiedStepKey(id, qualifier string) StepKey {
	return StepKey{ID: id, Qualifier: qualifier, Qualified: true}
}

// String 返回 id 或 id[qualifier]
func (k StepKey) String() string {
	if !k.Qualified {
		return k.ID
	}
	return k.ID + "[" + k.Qualifier + "]"
}

// Compare orders keys by id, then unqualified before qualified, then qualifier.
func (k StepKey) Compare(other StepKey) int {
	if c := cmp.Compare(k.ID, other.ID); c != 0 {
		return c
	}
	if k.Qualified != other.Qualified {
		if !k.Qualified {
			return -1
		}
		return 1
	}
	return cmp.Compare(k.Qualifier, other.Qualifier)
}

// ParseStepKey 解析 id 或 id[qualifier] 写法
func ParseStepKey(s string) (StepKey, error) {
	s = strings.TrimSpace(s)
	open := strings.Index(s, "[")
	if open < 0 {
		if s == "" {
			return StepKey{}, fmt.Errorf("empty step id")
		}
		return NewStepKey(s), nil
	}

	id := strings.TrimSpace(s[:open])
	if id == "" {
		return StepKey{}, fmt.Errorf("empty step id in %q", s)
	}
	closing := strings.Index(s[open+1:], "]")
	if closing < 0 {
		return StepKey{}, fmt.Errorf("unterminated qualifier in %q", s)
	}
	if rest := strings.TrimSpace(s[open+1+closing+1:]); rest != "" {
		return StepKey{}, fmt.Errorf("unexpected trailing text %q after qualifier", rest)
	}
	return NewQualifiedStepKey(id, s[open+1:open+1+closing]), nil
}
