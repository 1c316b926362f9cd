package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coe-labs/coe-agent/src/data"
	"github.com/coe-labs/coe-agent/src/session"
	"github.com/coe-labs/coe-agent/src/toolkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandlers map[string]toolkit.Handler

func (f fakeHandlers) Handler(name string) (toolkit.Handler, bool) {
	h, ok := f[name]
	return h, ok
}

type fakeRunner struct {
	out map[string]any
	err error
}

func (f fakeRunner) Run(context.Context, *data.Flow, map[string]any) (map[string]any, error) {
	return f.out, f.err
}

func capDecision(name string) *Decision {
	return &Decision{
		Action:         ActionCapability,
		Kind:           session.KindCapability,
		Name:           name,
		ArgumentsKnown: true,
	}
}

func flowDecision(name string) *Decision {
	return &Decision{
		Action:         ActionFlow,
		Kind:           session.KindFlow,
		Name:           name,
		Arguments:      map[string]any{"input": "요청"},
		ArgumentsKnown: true,
	}
}

func TestExecuteCapabilityNormalizesOutput(t *testing.T) {
	handlers := fakeHandlers{
		"greet": func(context.Context, map[string]any, *toolkit.Session) (*toolkit.Result, error) {
			return &toolkit.Result{Messages: []toolkit.Message{
				{Role: "system", Content: "internal scratchpad"},
				{Role: "assistant", Content: "<script>alert(1)</script>안녕하세요.\n\n  반갑습니다."},
			}}, nil
		},
	}
	e := NewExecutor(handlers, fakeFlows{}, fakeRunner{}, time.Second)

	text, err := e.Execute(context.Background(), capDecision("greet"), &toolkit.Session{ID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요. 반갑습니다.", text)
	assert.NotContains(t, text, "script")
	assert.NotContains(t, text, "scratchpad")
}

func TestExecuteCapabilityMissingHandler(t *testing.T) {
	e := NewExecutor(fakeHandlers{}, fakeFlows{}, fakeRunner{}, time.Second)

	text, err := e.Execute(context.Background(), capDecision("ghost"), nil)
	require.Error(t, err)
	assert.Contains(t, text, "ghost")
	assert.Contains(t, text, "찾을 수 없어")
}

func TestExecuteCapabilityHandlerError(t *testing.T) {
	handlers := fakeHandlers{
		"broken": func(context.Context, map[string]any, *toolkit.Session) (*toolkit.Result, error) {
			return nil, errors.New("boom")
		},
	}
	e := NewExecutor(handlers, fakeFlows{}, fakeRunner{}, time.Second)

	text, err := e.Execute(context.Background(), capDecision("broken"), nil)
	require.Error(t, err)
	// The caller-facing sentence never carries the raw error.
	assert.NotContains(t, text, "boom")
	assert.Contains(t, text, "오류가 발생했습니다")
}

func TestExecuteCapabilityEmptyResult(t *testing.T) {
	handlers := fakeHandlers{
		"silent": func(context.Context, map[string]any, *toolkit.Session) (*toolkit.Result, error) {
			return &toolkit.Result{}, nil
		},
	}
	e := NewExecutor(handlers, fakeFlows{}, fakeRunner{}, time.Second)

	text, err := e.Execute(context.Background(), capDecision("silent"), nil)
	require.NoError(t, err)
	assert.Contains(t, text, "비어 있습니다")
}

func TestExecuteFlowPrefersKnownTextKeys(t *testing.T) {
	flows := fakeFlows{flows: []data.Flow{{ID: 1, Name: "report", IsActive: true}}}
	runner := fakeRunner{out: map[string]any{
		"debug":      map[string]any{"trace_id": "abc"},
		"final_text": "리포트 생성이 완료되었습니다.",
		"result":     "중간 산출물",
	}}
	e := NewExecutor(fakeHandlers{}, flows, runner, time.Second)

	text, err := e.Execute(context.Background(), flowDecision("report"), nil)
	require.NoError(t, err)
	assert.Equal(t, "리포트 생성이 완료되었습니다.", text)
	assert.NotContains(t, text, "trace_id")
}

func TestExecuteFlowNestedTextAndFallback(t *testing.T) {
	assert.Equal(t, "완료", flowText(map[string]any{
		"result": map[string]any{"text": "완료"},
	}))
	// No preferred key present: first string value in key order.
	assert.Equal(t, "alpha", flowText(map[string]any{
		"zeta": "omega",
		"beta": "alpha",
	}))
	assert.Equal(t, "", flowText(nil))
	assert.Equal(t, "", flowText(map[string]any{"count": 3}))
}

func TestExecuteFlowInactive(t *testing.T) {
	e := NewExecutor(fakeHandlers{}, fakeFlows{}, fakeRunner{}, time.Second)

	text, err := e.Execute(context.Background(), flowDecision("retired"), nil)
	require.Error(t, err)
	assert.Contains(t, text, "사용할 수 없습니다")
}

func TestExecuteFlowRunnerError(t *testing.T) {
	flows := fakeFlows{flows: []data.Flow{{ID: 1, Name: "report", IsActive: true}}}
	e := NewExecutor(fakeHandlers{}, flows, fakeRunner{err: errors.New("engine down")}, time.Second)

	text, err := e.Execute(context.Background(), flowDecision("report"), nil)
	require.Error(t, err)
	assert.NotContains(t, text, "engine down")
	assert.Contains(t, text, "오류가 발생했습니다")
}

func TestExecuteNonExecutableDecision(t *testing.T) {
	e := NewExecutor(fakeHandlers{}, fakeFlows{}, fakeRunner{}, time.Second)

	text, err := e.Execute(context.Background(), &Decision{Action: ActionNone}, nil)
	require.NoError(t, err)
	assert.Contains(t, text, "선택되지 않았습니다")
}
