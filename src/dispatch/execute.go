package dispatch

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/coe-labs/coe-agent/src/data"
	"github.com/coe-labs/coe-agent/src/toolkit"
	"github.com/microcosm-cc/bluemonday"
)

// HandlerSource resolves a capability name to its executable handler.
type HandlerSource interface {
	Handler(name string) (toolkit.Handler, bool)
}

// FlowRunner invokes a flow and returns its raw output map.
type FlowRunner interface {
	Run(ctx context.Context, flow *data.Flow, args map[string]any) (map[string]any, error)
}

// Executor runs the decided candidate and normalizes whatever comes back
// into one sanitized, human-readable string. Raw handler or flow payloads
// never reach the caller.
type Executor struct {
	handlers  HandlerSource
	flows     FlowSource
	runner    FlowRunner
	sanitizer *bluemonday.Policy
	timeout   time.Duration
}

func NewExecutor(handlers HandlerSource, flowSource FlowSource, runner FlowRunner, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Executor{
		handlers:  handlers,
		flows:     flowSource,
		runner:    runner,
		sanitizer: bluemonday.StrictPolicy(),
		timeout:   timeout,
	}
}

// Execute always returns a natural-language sentence. The error return is
// for logging only; it is never shown to the end user.
func (e *Executor) Execute(ctx context.Context, d *Decision, sess *toolkit.Session) (string, error) {
	if !d.Executable() {
		return "실행할 도구가 선택되지 않았습니다.", nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	switch d.Action {
	case ActionCapability:
		return e.executeCapability(ctx, d, sess)
	case ActionFlow:
		return e.executeFlow(ctx, d)
	default:
		return "실행할 도구가 선택되지 않았습니다.", nil
	}
}

func (e *Executor) executeCapability(ctx context.Context, d *Decision, sess *toolkit.Session) (string, error) {
	handler, ok := e.handlers.Handler(d.Name)
	if !ok {
		err := fmt.Errorf("dispatch: capability %q not registered", d.Name)
		return fmt.Sprintf("`%s` 도구를 현재 컨텍스트에서 찾을 수 없어 실행하지 못했습니다.", d.Name), err
	}

	args := d.Arguments
	if args == nil {
		args = map[string]any{}
	}
	result, err := handler(ctx, args, sess)
	if err != nil {
		log.Printf("dispatch: capability %s failed: %v", d.Name, err)
		return fmt.Sprintf("`%s` 실행 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요.", d.Name), err
	}

	text := assistantContent(result)
	if text == "" {
		return fmt.Sprintf("`%s` 도구가 실행되었지만 결과 메시지가 비어 있습니다.", d.Name), nil
	}
	return e.clean(text), nil
}

func (e *Executor) executeFlow(ctx context.Context, d *Decision) (string, error) {
	flow, err := e.flows.ByName(ctx, d.Name)
	if err != nil {
		log.Printf("dispatch: flow lookup %s failed: %v", d.Name, err)
		return fmt.Sprintf("`%s` 워크플로 정보를 불러오지 못했습니다.", d.Name), err
	}
	if flow == nil {
		err := fmt.Errorf("dispatch: flow %q inactive or missing", d.Name)
		return fmt.Sprintf("`%s` 워크플로는 현재 사용할 수 없습니다.", d.Name), err
	}

	out, err := e.runner.Run(ctx, flow, d.Arguments)
	if err != nil {
		log.Printf("dispatch: flow %s failed: %v", d.Name, err)
		return fmt.Sprintf("`%s` 워크플로 실행 중 오류가 발생했습니다.", d.Name), err
	}

	text := flowText(out)
	if text == "" {
		return fmt.Sprintf("`%s` 워크플로가 완료되었지만 표시할 결과가 없습니다.", d.Name), nil
	}
	return e.clean(text), nil
}

// clean sanitizes markup and collapses the text into one coherent paragraph.
func (e *Executor) clean(s string) string {
	s = e.sanitizer.Sanitize(s)
	return strings.Join(strings.Fields(s), " ")
}

// assistantContent extracts the last assistant-role message of a capability
// result. Other roles are intermediate and stay internal.
func assistantContent(result *toolkit.Result) string {
	if result == nil {
		return ""
	}
	for i := len(result.Messages) - 1; i >= 0; i-- {
		if result.Messages[i].Role == "assistant" && strings.TrimSpace(result.Messages[i].Content) != "" {
			return result.Messages[i].Content
		}
	}
	return ""
}

// preferredFlowKeys is the lookup order for the single most relevant textual
// field of a flow's output map.
var preferredFlowKeys = []string{"final_text", "text", "message", "answer", "result", "output"}

// flowText picks one textual field from a structurally variable flow output
// map. Intermediate and debug fields are discarded, never surfaced.
func flowText(out map[string]any) string {
	if len(out) == 0 {
		return ""
	}
	for _, key := range preferredFlowKeys {
		if v, ok := out[key]; ok {
			if s := textValue(v); s != "" {
				return s
			}
		}
	}
	// Deterministic last resort: first string value by key order.
	keys := make([]string, 0, len(out))
	for k := range out {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s, ok := out[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func textValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return flowText(t)
	}
	return ""
}
