package dsl

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/BaSui01/stepflow/types"
)

// 描述符语法记号
const (
	TokenComment        = "#"
	TokenBlockOpen      = "{"
	TokenBlockClose     = "}"
	TokenQualifierOpen  = "["
	TokenQualifierClose = "]"
	TokenAssignment     = "="

	KeywordTry      = "try"
	KeywordFinally  = "finally"
	KeywordParallel = "parallel"

	OptionData         = "data"
	OptionRollbackData = "rollbackData"
)

var (
	errEmptyStepID           = errors.New("empty step id")
	errUnterminatedQualifier = errors.New("qualifier is missing the closing ']'")
)

// isIgnorable 空行与注释行
func isIgnorable(line string) bool {
	return line == "" || strings.HasPrefix(line, TokenComment)
}

// isKeywordBoundary 关键字之后只允许空白或花括号，"parallel[x]" 是步骤而不是关键字
func isKeywordBoundary(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(TokenBlockOpen+TokenBlockClose, r)
}

// tokens 按空白与花括号拆分一行
func tokens(line string) []string {
	return strings.FieldsFunc(line, isKeywordBoundary)
}

// leadingKeyword 判断行首是否为完整的关键字（tryAgain、try[1] 不是 try）
func leadingKeyword(line, keyword string) bool {
	if !strings.HasPrefix(line, keyword) {
		return false
	}
	rest := line[len(keyword):]
	if rest == "" {
		return true
	}
	r := []rune(rest)[0]
	return isKeywordBoundary(r)
}

// containsKeyword 判断行中是否出现独立的关键字记号
func containsKeyword(line, keyword string) bool {
	for _, t := range tokens(line) {
		if t == keyword {
			return true
		}
	}
	return false
}

// SyntaxError 描述符语法错误（try/finally 结构）
type SyntaxError struct {
	Line   int
	Text   string
	Reason string
}

func (e *SyntaxError) Error() string {
	if e.Line <= 0 {
		return fmt.Sprintf("workflow descriptor syntax error: %s", e.Reason)
	}
	return fmt.Sprintf("workflow descriptor syntax error at statement %d (%q): %s", e.Line, e.Text, e.Reason)
}

func (e *SyntaxError) Code() types.ErrorCode { return types.ErrDescriptorSyntax }

// ParseError 解析器无法表示的描述符内容
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("workflow descriptor parse error at line %d (%q): %s", e.Line, e.Text, e.Reason)
}

func (e *ParseError) Code() types.ErrorCode { return types.ErrDescriptorParse }
