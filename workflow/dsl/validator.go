package dsl

import (
	"strings"
)

// Validator 描述符语法校验器，只检查 try/finally 的配对与写法
type Validator struct{}

// NewValidator 创建校验器
func NewValidator() *Validator {
	return &Validator{}
}

// Validate 校验描述符行，遇到第一个致命错误即返回 *SyntaxError
func Validate(lines []string) error {
	return NewValidator().Validate(lines)
}

// Validate 校验描述符行
func (v *Validator) Validate(lines []string) error {
	openTry := 0
	counted := 0

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if isIgnorable(line) {
			continue
		}
		counted++

		if containsKeyword(line, KeywordTry) {
			if !leadingKeyword(line, KeywordTry) {
				return &SyntaxError{Line: counted, Text: line, Reason: "'try' must start the statement"}
			}
			if counted != 1 {
				return &SyntaxError{Line: counted, Text: line, Reason: "'try' must be the first statement of the workflow"}
			}
			if strings.TrimSpace(line[len(KeywordTry):]) != TokenBlockOpen {
				return &SyntaxError{Line: counted, Text: line, Reason: "'try' must be followed by '{'"}
			}
			openTry++
		}

		if strings.HasPrefix(line, TokenBlockClose) {
			rest := strings.TrimSpace(line[len(TokenBlockClose):])
			if leadingKeyword(rest, KeywordFinally) {
				if !strings.HasSuffix(rest, TokenBlockOpen) {
					return &SyntaxError{Line: counted, Text: line, Reason: "'finally' must be followed by '{'"}
				}
				if openTry == 0 {
					return &SyntaxError{Line: counted, Text: line, Reason: "finally without try"}
				}
				openTry--
			}
		}
	}

	if openTry != 0 {
		return &SyntaxError{Reason: "try without matching finally"}
	}
	return nil
}
