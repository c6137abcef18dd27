package dsl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BaSui01/stepflow/types"
	"github.com/BaSui01/stepflow/workflow"
)

// DefaultDescriptorDir 默认描述符目录，文件名与 goal 相同
const DefaultDescriptorDir = "workflows"

// separatorWidth 打印描述符时分隔线的总宽度
const separatorWidth = 77

// Source 描述符来源：自定义文件优先，否则使用 <Dir>/<goal>
type Source struct {
	Dir  string
	File string
}

// NewSource 创建描述符来源
func NewSource(dir, file string) *Source {
	if dir == "" {
		dir = DefaultDescriptorDir
	}
	return &Source{Dir: dir, File: file}
}

// Path 返回 goal 对应的描述符路径
func (s *Source) Path(goal string) string {
	if s.File != "" {
		return s.File
	}
	return filepath.Join(s.Dir, goal)
}

// Lines 读取 goal 对应描述符的所有行
func (s *Source) Lines(goal string) ([]string, error) {
	path := s.Path(goal)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.NewError(types.ErrDescriptorNotFound,
				fmt.Sprintf("no workflow descriptor for goal %q at %s", goal, path)).WithCause(err)
		}
		return nil, fmt.Errorf("open workflow descriptor %s: %w", path, err)
	}
	defer f.Close()

	lines, err := ReadLines(f)
	if err != nil {
		return nil, fmt.Errorf("read workflow descriptor %s: %w", path, err)
	}
	return lines, nil
}

// Load 读取、校验并解析 goal 对应的描述符
func (s *Source) Load(goal string) (*workflow.ProcessingWorkflow, error) {
	lines, err := s.Lines(goal)
	if err != nil {
		return nil, err
	}
	return Compile(lines, goal)
}

// Compile 先做语法校验再解析
func Compile(lines []string, goal string) (*workflow.ProcessingWorkflow, error) {
	if err := Validate(lines); err != nil {
		return nil, err
	}
	return Parse(lines, goal)
}

// ReadLines 逐行读取并去除首尾空白
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// SplitLines 将描述符文本拆分为去除空白的行
func SplitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}

// Separator 返回 "==== goal ====" 形式的分隔线
func Separator(goal string) string {
	x := max(separatorWidth-len(goal), 0)
	a := x / 2
	b := a + x%2
	return strings.Repeat("=", a) + " " + goal + " " + strings.Repeat("=", b)
}

// Render 用分隔线包裹输出描述符原文
func Render(w io.Writer, goal string, lines []string) error {
	sep := Separator(goal)
	if _, err := fmt.Fprintln(w, sep); err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, sep)
	return err
}
