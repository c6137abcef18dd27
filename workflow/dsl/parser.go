package dsl

import (
	"strings"

	"github.com/BaSui01/stepflow/workflow"
)

// Parser 工作流描述符解析器
// 对 try/finally 结构保持宽松，结构校验由 Validator 负责
type Parser struct {
	wf        *workflow.ProcessingWorkflow
	inFinally bool
	parallel  *workflow.ParallelStep
	options   *workflow.SimpleStep
}

// Parse 解析已去除首尾空白的描述符行
func Parse(lines []string, goal string) (*workflow.ProcessingWorkflow, error) {
	p := &Parser{wf: workflow.NewProcessingWorkflow(goal)}
	for i, raw := range lines {
		if err := p.parseLine(i+1, strings.TrimSpace(raw)); err != nil {
			return nil, err
		}
	}
	// 文件末尾未关闭的并行组仍然保留
	p.flushParallel()
	return p.wf, nil
}

func (p *Parser) parseLine(n int, line string) error {
	if isIgnorable(line) {
		return nil
	}

	switch {
	case p.options != nil && line != TokenBlockClose:
		if strings.HasPrefix(line, TokenBlockClose) {
			return &ParseError{Line: n, Text: line, Reason: "step options block must be closed before '} finally {'"}
		}
		return p.parseOption(n, line)

	case leadingKeyword(line, KeywordTry):
		// try 段无需额外状态，结构由 Validator 校验

	case leadingKeyword(line, KeywordParallel):
		if p.parallel != nil {
			return &ParseError{Line: n, Text: line, Reason: "parallel blocks cannot be nested"}
		}
		if p.inFinally {
			return &ParseError{Line: n, Text: line, Reason: "parallel blocks are not allowed in the finally section"}
		}
		p.parallel = workflow.NewParallelStep()

	case line == TokenBlockClose:
		switch {
		case p.options != nil:
			p.options = nil
		case p.parallel != nil:
			p.flushParallel()
		case p.inFinally:
			p.inFinally = false
		}

	case strings.HasPrefix(line, TokenBlockClose):
		if p.parallel != nil {
			return &ParseError{Line: n, Text: line, Reason: "parallel block must be closed before the finally section"}
		}
		rest := strings.TrimSpace(line[len(TokenBlockClose):])
		if leadingKeyword(rest, KeywordFinally) && strings.HasSuffix(rest, TokenBlockOpen) {
			p.inFinally = true
		}

	default:
		return p.parseStep(n, line)
	}
	return nil
}

func (p *Parser) parseStep(n int, line string) error {
	key, err := parseStepKey(line)
	if err != nil {
		return &ParseError{Line: n, Text: line, Reason: err.Error()}
	}

	step := workflow.NewSimpleStep(key)
	switch {
	case p.inFinally:
		p.wf.AddFinallyStep(step)
	case p.parallel != nil:
		p.parallel.Add(step)
	default:
		p.wf.AddStep(step)
	}

	if strings.HasSuffix(line, TokenBlockOpen) {
		p.options = step
	}
	return nil
}

// parseOption 处理 step-options 块中的 data / rollbackData
func (p *Parser) parseOption(n int, line string) error {
	idx := strings.Index(line, TokenAssignment)
	if idx < 0 {
		return &ParseError{Line: n, Text: line, Reason: "expected 'data = <value>' or 'rollbackData = <value>'"}
	}
	key := strings.TrimSpace(line[:idx])
	value := strings.TrimSpace(line[idx+len(TokenAssignment):])

	switch key {
	case OptionData:
		p.options.DefaultData = value
	case OptionRollbackData:
		p.options.DefaultRollbackData = value
	default:
		return &ParseError{Line: n, Text: line, Reason: "unknown step option '" + key + "'"}
	}
	return nil
}

func (p *Parser) flushParallel() {
	if p.parallel == nil {
		return
	}
	if p.parallel.Len() > 0 {
		p.wf.AddStep(p.parallel)
	}
	p.parallel = nil
}

// parseStepKey 按首次出现的 [ ] { 拆分 id 与限定符
func parseStepKey(line string) (workflow.StepKey, error) {
	open := strings.Index(line, TokenQualifierOpen)
	if open < 0 {
		id := line
		if brace := strings.Index(line, TokenBlockOpen); brace >= 0 {
			id = line[:brace]
		}
		id = strings.TrimSpace(id)
		if id == "" {
			return workflow.StepKey{}, errEmptyStepID
		}
		return workflow.NewStepKey(id), nil
	}

	id := strings.TrimSpace(line[:open])
	if id == "" {
		return workflow.StepKey{}, errEmptyStepID
	}
	closing := strings.Index(line[open+1:], TokenQualifierClose)
	if closing < 0 {
		return workflow.StepKey{}, errUnterminatedQualifier
	}
	return workflow.NewQualifiedStepKey(id, line[open+1:open+1+closing]), nil
}
