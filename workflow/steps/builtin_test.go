package steps

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BaSui01/stepflow/workflow"
)

func newContext(id string, data []string, mapped map[string]string) *workflow.ExecutionContext {
	b := workflow.NewExecutionContextBuilder(workflow.NewStepKey(id)).AddData(data...)
	for k, v := range mapped {
		b.AddMappedData(k, v)
	}
	return b.Build()
}

func TestRegister(t *testing.T) {
	r := workflow.NewRegistry()
	require.NoError(t, Register(r, nil))

	var ids []string
	for _, info := range r.Infos() {
		ids = append(ids, info.ID)
	}
	assert.ElementsMatch(t, []string{"echo", "sleep", "fail", "mkdir", "writeFile", "tcpCheck"}, ids)

	entry, ok := r.Lookup("tcpCheck")
	require.True(t, ok)
	assert.True(t, entry.Info.RequiresOnline)

	assert.Error(t, Register(r, nil), "registering twice should fail")
}

func TestEchoStep(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewEchoStep(zap.New(core))

	ec := newContext("echo", []string{"one", "two"}, map[string]string{"name": "x"})
	require.NoError(t, s.Execute(context.Background(), ec))

	entries := logs.FilterMessage("echo").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "echo", fields["step"])
	assert.Equal(t, "x", fields["data.name"])
}

func TestSleepStep(t *testing.T) {
	s := &SleepStep{}

	t.Run("waits", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, s.Execute(context.Background(), newContext("sleep", nil, map[string]string{"duration": "20ms"})))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := s.Execute(ctx, newContext("sleep", nil, map[string]string{"duration": "1h"}))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid duration", func(t *testing.T) {
		err := s.Execute(context.Background(), newContext("sleep", nil, map[string]string{"duration": "soon"}))
		assert.ErrorContains(t, err, "invalid duration")
	})
}

func TestFailStep(t *testing.T) {
	s := &FailStep{}

	tests := []struct {
		name     string
		data     []string
		mapped   map[string]string
		target   error
		contains string
	}{
		{name: "plain", target: ErrStepFailed},
		{name: "message", mapped: map[string]string{"message": "boom"}, target: ErrStepFailed, contains: "boom"},
		{name: "unmapped message", data: []string{"a", "b"}, target: ErrStepFailed, contains: "a, b"},
		{name: "rollback only", mapped: map[string]string{"rollbackOnly": "true"}, target: workflow.ErrRollbackRequested},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Execute(context.Background(), newContext("fail", tt.data, tt.mapped))
			assert.ErrorIs(t, err, tt.target)
			if tt.contains != "" {
				assert.ErrorContains(t, err, tt.contains)
			}
		})
	}
}

func TestMkdirStep_RollbackRemovesCreatedOnly(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "existing")
	require.NoError(t, os.Mkdir(existing, 0o755))
	created := filepath.Join(root, "a", "b")

	s := NewMkdirStep(zap.NewNop())
	ec := newContext("mkdir", []string{existing, created}, nil)
	require.NoError(t, s.Execute(context.Background(), ec))
	assert.DirExists(t, created)

	handlers := s.RollbackHandlers()
	require.Len(t, handlers, 1)
	assert.Equal(t, "removeCreatedDirectories", handlers[0].Name)
	assert.Equal(t, workflow.ShapeContext, handlers[0].Shape)

	require.NoError(t, s.removeCreated(context.Background(), ec))
	assert.NoDirExists(t, created)
	assert.DirExists(t, existing)

	// 第二次回滚无事可做
	assert.NoError(t, s.removeCreated(context.Background(), ec))
}

func TestWriteFileStep(t *testing.T) {
	dir := t.TempDir()

	t.Run("restores previous content", func(t *testing.T) {
		path := filepath.Join(dir, "existing.txt")
		require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

		s := NewWriteFileStep(zap.NewNop())
		ec := newContext("writeFile", nil, map[string]string{"path": path, "content": "new"})
		require.NoError(t, s.Execute(context.Background(), ec))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(got))

		require.NoError(t, s.restore(context.Background(), ec, errors.New("later step failed")))
		got, err = os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "old", string(got))
	})

	t.Run("removes new file", func(t *testing.T) {
		path := filepath.Join(dir, "fresh.txt")

		s := NewWriteFileStep(zap.NewNop())
		ec := newContext("writeFile", nil, map[string]string{"path": path, "content": "hello"})
		require.NoError(t, s.Execute(context.Background(), ec))
		assert.FileExists(t, path)

		require.NoError(t, s.restore(context.Background(), ec, nil))
		assert.NoFileExists(t, path)
	})

	t.Run("path required", func(t *testing.T) {
		s := NewWriteFileStep(zap.NewNop())
		assert.Error(t, s.Execute(context.Background(), newContext("writeFile", nil, nil)))
	})

	t.Run("handler shape", func(t *testing.T) {
		handlers := NewWriteFileStep(zap.NewNop()).RollbackHandlers()
		require.Len(t, handlers, 1)
		assert.Equal(t, "restoreFile", handlers[0].Name)
		assert.Equal(t, workflow.ShapeContextError, handlers[0].Shape)
	})
}

func TestTCPCheckStep(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	s := &TCPCheckStep{}

	t.Run("mapped address", func(t *testing.T) {
		ec := newContext("tcpCheck", nil, map[string]string{"address": ln.Addr().String(), "timeout": "2s"})
		assert.NoError(t, s.Execute(context.Background(), ec))
	})

	t.Run("positional address", func(t *testing.T) {
		ec := newContext("tcpCheck", []string{ln.Addr().String()}, nil)
		assert.NoError(t, s.Execute(context.Background(), ec))
	})

	t.Run("missing address", func(t *testing.T) {
		assert.ErrorContains(t, s.Execute(context.Background(), newContext("tcpCheck", nil, nil)), "address is required")
	})

	t.Run("refused", func(t *testing.T) {
		closed, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := closed.Addr().String()
		require.NoError(t, closed.Close())

		ec := newContext("tcpCheck", []string{addr}, map[string]string{"timeout": "500ms"})
		assert.ErrorContains(t, s.Execute(context.Background(), ec), "tcpCheck "+addr)
	})
}
