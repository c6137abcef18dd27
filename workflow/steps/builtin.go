// Package steps provides generic processing steps shipped with the stepflow CLI.
package steps

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/stepflow/workflow"
)

// Register registers all built-in steps.
func Register(r *workflow.Registry, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	builtins := []struct {
		info workflow.StepInfo
		step workflow.Step
	}{
		{workflow.StepInfo{ID: "echo", Description: "Logs the execution data of the step"}, NewEchoStep(logger)},
		{workflow.StepInfo{ID: "sleep", Description: "Waits for duration=><d> (default 1s)"}, &SleepStep{}},
		{workflow.StepInfo{ID: "fail", Description: "Fails with message=><text>; rollbackOnly=>true ends the workflow normally after rollback"}, &FailStep{}},
		{workflow.StepInfo{ID: "mkdir", Description: "Creates the listed directories and removes them on rollback"}, NewMkdirStep(logger)},
		{workflow.StepInfo{ID: "writeFile", Description: "Writes content=><text> to path=><file> and restores the previous state on rollback"}, NewWriteFileStep(logger)},
		{workflow.StepInfo{ID: "tcpCheck", Description: "Checks that address=><host:port> accepts TCP connections", RequiresOnline: true}, &TCPCheckStep{}},
	}
	for _, b := range builtins {
		if err := r.Register(b.info, b.step); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================
// echo
// ============================================================

// EchoStep logs the data of its execution context.
type EchoStep struct {
	logger *zap.Logger
}

func NewEchoStep(logger *zap.Logger) *EchoStep {
	return &EchoStep{logger: logger.With(zap.String("component", "step_echo"))}
}

func (s *EchoStep) Execute(ctx context.Context, ec *workflow.ExecutionContext) error {
	fields := []zap.Field{
		zap.String("step", ec.Key().String()),
		zap.Strings("data", ec.UnmappedData()),
	}
	for _, k := range ec.MappedDataKeys() {
		v, _ := ec.MappedData(k)
		fields = append(fields, zap.String("data."+k, v))
	}
	s.logger.Info("echo", fields...)
	return nil
}

// ============================================================
// sleep
// ============================================================

// SleepStep waits for a configured duration or until ctx is done.
type SleepStep struct{}

func (s *SleepStep) Execute(ctx context.Context, ec *workflow.ExecutionContext) error {
	d, err := durationData(ec, "duration", time.Second)
	if err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ============================================================
// fail
// ============================================================

// ErrStepFailed is returned by FailStep.
var ErrStepFailed = errors.New("step failed on purpose")

// FailStep always fails. It is useful for exercising rollback.
type FailStep struct{}

func (s *FailStep) Execute(_ context.Context, ec *workflow.ExecutionContext) error {
	msg, ok := ec.MappedData("message")
	if !ok {
		msg = strings.Join(ec.UnmappedData(), ", ")
	}
	if v, _ := ec.MappedData("rollbackOnly"); v == "true" {
		return fmt.Errorf("%s: %w", msg, workflow.ErrRollbackRequested)
	}
	if msg == "" {
		return ErrStepFailed
	}
	return fmt.Errorf("%w: %s", ErrStepFailed, msg)
}

// ============================================================
// mkdir
// ============================================================

// MkdirStep creates every positional path and removes the ones it created on rollback.
type MkdirStep struct {
	logger *zap.Logger

	mu      sync.Mutex
	created map[workflow.StepKey][]string
}

func NewMkdirStep(logger *zap.Logger) *MkdirStep {
	return &MkdirStep{
		logger:  logger.With(zap.String("component", "step_mkdir")),
		created: make(map[workflow.StepKey][]string),
	}
}

func (s *MkdirStep) Execute(_ context.Context, ec *workflow.ExecutionContext) error {
	for _, dir := range ec.UnmappedData() {
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
		s.mu.Lock()
		s.created[ec.Key()] = append(s.created[ec.Key()], dir)
		s.mu.Unlock()
	}
	return nil
}

func (s *MkdirStep) RollbackHandlers() []workflow.RollbackHandler {
	return []workflow.RollbackHandler{
		workflow.OnRollbackWithContext("removeCreatedDirectories", s.removeCreated),
	}
}

func (s *MkdirStep) removeCreated(_ context.Context, ec *workflow.ExecutionContext) error {
	s.mu.Lock()
	dirs := s.created[ec.Key()]
	delete(s.created, ec.Key())
	s.mu.Unlock()

	var errs []error
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.RemoveAll(dirs[i]); err != nil {
			errs = append(errs, err)
			continue
		}
		s.logger.Info("removed directory", zap.String("path", dirs[i]))
	}
	return errors.Join(errs...)
}

// ============================================================
// writeFile
// ============================================================

type fileBackup struct {
	existed bool
	content []byte
	mode    os.FileMode
}

// WriteFileStep writes content to a file and restores the previous state on rollback.
type WriteFileStep struct {
	logger *zap.Logger

	mu      sync.Mutex
	backups map[workflow.StepKey]fileBackup
}

func NewWriteFileStep(logger *zap.Logger) *WriteFileStep {
	return &WriteFileStep{
		logger:  logger.With(zap.String("component", "step_write_file")),
		backups: make(map[workflow.StepKey]fileBackup),
	}
}

func (s *WriteFileStep) Execute(_ context.Context, ec *workflow.ExecutionContext) error {
	path, ok := ec.MappedData("path")
	if !ok || path == "" {
		return fmt.Errorf("writeFile: mapped data 'path' is required")
	}
	content, _ := ec.MappedData("content")

	backup := fileBackup{mode: 0o644}
	if info, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		backup = fileBackup{existed: true, content: data, mode: info.Mode().Perm()}
	}

	s.mu.Lock()
	s.backups[ec.Key()] = backup
	s.mu.Unlock()

	if err := os.WriteFile(path, []byte(content), backup.mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *WriteFileStep) RollbackHandlers() []workflow.RollbackHandler {
	return []workflow.RollbackHandler{
		workflow.OnRollbackWithContextAndError("restoreFile", s.restore),
	}
}

func (s *WriteFileStep) restore(_ context.Context, ec *workflow.ExecutionContext, failure error) error {
	s.mu.Lock()
	backup, ok := s.backups[ec.Key()]
	delete(s.backups, ec.Key())
	s.mu.Unlock()
	if !ok {
		return nil
	}

	path, _ := ec.MappedData("path")
	s.logger.Info("restoring file", zap.String("path", path), zap.NamedError("cause", failure))
	if !backup.existed {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	return os.WriteFile(path, backup.content, backup.mode)
}

// ============================================================
// tcpCheck
// ============================================================

// TCPCheckStep verifies that a remote address accepts TCP connections.
type TCPCheckStep struct{}

func (s *TCPCheckStep) Execute(ctx context.Context, ec *workflow.ExecutionContext) error {
	addr, ok := ec.MappedData("address")
	if !ok {
		if data := ec.UnmappedData(); len(data) > 0 {
			addr = data[0]
		}
	}
	if addr == "" {
		return fmt.Errorf("tcpCheck: an address is required")
	}
	timeout, err := durationData(ec, "timeout", 5*time.Second)
	if err != nil {
		return err
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("tcpCheck %s: %w", addr, err)
	}
	return conn.Close()
}

func durationData(ec *workflow.ExecutionContext, key string, def time.Duration) (time.Duration, error) {
	v, ok := ec.MappedData(key)
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
