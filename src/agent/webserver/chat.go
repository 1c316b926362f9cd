package webserver

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coe-labs/coe-agent/src/dispatch"
	"github.com/coe-labs/coe-agent/src/session"
	"github.com/coe-labs/coe-agent/src/toolkit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string         `json:"model"`
	Messages  []chatMessage  `json:"messages" binding:"required"`
	Context   string         `json:"context"`
	GroupName string         `json:"group_name"`
	SessionID string         `json:"session_id"`
	ToolInput map[string]any `json:"tool_input"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	ID               string                      `json:"id"`
	Object           string                      `json:"object"`
	Created          int64                       `json:"created"`
	Model            string                      `json:"model"`
	Choices          []chatChoice                `json:"choices"`
	Usage            chatUsage                   `json:"usage"`
	SessionID        string                      `json:"session_id"`
	ForcedInvocation *dispatch.InvocationMessage `json:"forced_invocation,omitempty"`
}

// candidateSelector, suggestionDesk and decisionExecutor narrow the dispatch
// layer to what the handler touches.
type candidateSelector interface {
	Select(ctx context.Context, utterance, callerContext, group string, explicit *dispatch.Choice) (*dispatch.Decision, error)
}

type suggestionDesk interface {
	Propose(ctx context.Context, sessionID string, d *dispatch.Decision) (*session.Suggestion, error)
	Confirm(ctx context.Context, sessionID string, override map[string]any) (*session.Suggestion, error)
	Cancel(ctx context.Context, sessionID string) (*session.Suggestion, error)
	Decision(sug *session.Suggestion) *dispatch.Decision
}

type decisionExecutor interface {
	Execute(ctx context.Context, d *dispatch.Decision, sess *toolkit.Session) (string, error)
}

type sessionTracker interface {
	GetOrCreate(ctx context.Context, id string) (*session.State, error)
	Touch(ctx context.Context, st *session.State) error
}

// Chat is the outer conversation loop. It owns the request lifecycle of one
// chat turn: session bookkeeping, confirm/cancel handling, candidate
// selection, execution and persistence.
type Chat struct {
	selector  candidateSelector
	suggester suggestionDesk
	executor  decisionExecutor
	tracker   sessionTracker
	recorder  *ChatRecorder
	model     string
}

func NewChat(selector candidateSelector, suggester suggestionDesk, executor decisionExecutor, tracker sessionTracker, recorder *ChatRecorder, model string) *Chat {
	return &Chat{
		selector:  selector,
		suggester: suggester,
		executor:  executor,
		tracker:   tracker,
		recorder:  recorder,
		model:     model,
	}
}

func (h *Chat) Completions(c *gin.Context) {
	started := time.Now()

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	utterance := lastUserContent(req.Messages)
	if utterance == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no user message in request"})
		return
	}

	ctx := c.Request.Context()
	st, err := h.tracker.GetOrCreate(ctx, req.SessionID)
	if err != nil {
		log.Printf("webserver: session state: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
		return
	}
	if err := h.tracker.Touch(ctx, st); err != nil {
		log.Printf("webserver: session touch: %v", err)
	}

	text, inv, outcome := h.dispatchTurn(ctx, &req, st, utterance)

	if h.recorder != nil {
		h.recorder.SaveTurn(st.SessionID, utterance, text, st.ConversationTurns, outcome)
		h.recorder.LogAPICall(st.SessionID, c.FullPath(), c.Request.Method,
			http.StatusOK, int(time.Since(started).Milliseconds()), outcome)
	}

	model := req.Model
	if model == "" {
		model = h.model
	}
	c.JSON(http.StatusOK, chatResponse{
		ID:      "chatcmpl-" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []chatChoice{
			{Message: chatMessage{Role: "assistant", Content: text}, FinishReason: "stop"},
		},
		SessionID:        st.SessionID,
		ForcedInvocation: inv,
	})
}

// dispatchTurn routes one utterance through cancel, confirm, explicit and
// auto-route handling, in that precedence order.
func (h *Chat) dispatchTurn(ctx context.Context, req *chatRequest, st *session.State, utterance string) (string, *dispatch.InvocationMessage, ToolOutcome) {
	input := toolInput(req.ToolInput)

	switch {
	case input.cancel:
		return h.handleCancel(ctx, st)
	case input.confirm:
		return h.handleConfirm(ctx, req, st, utterance, input.arguments)
	case input.toolName != "":
		return h.handleExplicit(ctx, req, st, utterance, input)
	default:
		return h.handleAutoRoute(ctx, req, st, utterance)
	}
}

func (h *Chat) handleCancel(ctx context.Context, st *session.State) (string, *dispatch.InvocationMessage, ToolOutcome) {
	sug, err := h.suggester.Cancel(ctx, st.SessionID)
	if err == dispatch.ErrNoPending {
		return "취소할 대기 중인 도구 실행이 없습니다.", nil, ToolOutcome{}
	}
	if err != nil {
		log.Printf("webserver: cancel: %v", err)
		return "요청을 처리하는 중 문제가 발생했습니다. 잠시 후 다시 시도해주세요.", nil, ToolOutcome{ErrorMessage: err.Error()}
	}
	return fmt.Sprintf("대기 중이던 `%s` 실행 요청을 취소했습니다.", sug.Name), nil, ToolOutcome{}
}

func (h *Chat) handleConfirm(ctx context.Context, req *chatRequest, st *session.State, utterance string, override map[string]any) (string, *dispatch.InvocationMessage, ToolOutcome) {
	sug, err := h.suggester.Confirm(ctx, st.SessionID, override)
	if err == dispatch.ErrNoPending {
		return "실행 대기 중인 도구가 없습니다. 먼저 요청을 보내 추천을 받아주세요.", nil, ToolOutcome{}
	}
	if err != nil {
		log.Printf("webserver: confirm: %v", err)
		return "요청을 처리하는 중 문제가 발생했습니다. 잠시 후 다시 시도해주세요.", nil, ToolOutcome{ErrorMessage: err.Error()}
	}

	d := h.suggester.Decision(sug)
	return h.execute(ctx, req, st, utterance, d)
}

func (h *Chat) handleExplicit(ctx context.Context, req *chatRequest, st *session.State, utterance string, input parsedToolInput) (string, *dispatch.InvocationMessage, ToolOutcome) {
	choice := &dispatch.Choice{Name: input.toolName, Arguments: input.arguments}
	d, err := h.selector.Select(ctx, utterance, req.Context, req.GroupName, choice)
	if err != nil {
		log.Printf("webserver: explicit select: %v", err)
		return "요청을 처리하는 중 문제가 발생했습니다. 잠시 후 다시 시도해주세요.", nil, ToolOutcome{ErrorMessage: err.Error()}
	}
	if !d.Executable() {
		return fmt.Sprintf("`%s` 도구는 현재 컨텍스트에서 사용할 수 없습니다.", input.toolName), nil, ToolOutcome{}
	}
	return h.execute(ctx, req, st, utterance, d)
}

func (h *Chat) handleAutoRoute(ctx context.Context, req *chatRequest, st *session.State, utterance string) (string, *dispatch.InvocationMessage, ToolOutcome) {
	d, err := h.selector.Select(ctx, utterance, req.Context, req.GroupName, nil)
	if err != nil {
		log.Printf("webserver: select: %v", err)
		return "요청을 처리하는 중 문제가 발생했습니다. 잠시 후 다시 시도해주세요.", nil, ToolOutcome{ErrorMessage: err.Error()}
	}
	if !d.Executable() {
		return "죄송합니다. 요청을 처리할 적합한 도구를 찾지 못했습니다. 다른 표현으로 다시 시도해주세요.", nil, ToolOutcome{}
	}

	if _, err := h.suggester.Propose(ctx, st.SessionID, d); err != nil {
		log.Printf("webserver: propose: %v", err)
		return "요청을 처리하는 중 문제가 발생했습니다. 잠시 후 다시 시도해주세요.", nil, ToolOutcome{ErrorMessage: err.Error()}
	}
	return suggestionBanner(d), nil, ToolOutcome{SelectedTool: d.Name, Metadata: map[string]any{"stage": "suggested", "source": d.Source}}
}

// execute runs an executable decision and reconciles it into a formal tool
// call for the response trace.
func (h *Chat) execute(ctx context.Context, req *chatRequest, st *session.State, utterance string, d *dispatch.Decision) (string, *dispatch.InvocationMessage, ToolOutcome) {
	inv, err := dispatch.Reconcile(d)
	if err != nil {
		log.Printf("webserver: reconcile %s: %v", d.Name, err)
	}

	sess := &toolkit.Session{
		ID:      st.SessionID,
		Context: req.Context,
		Group:   req.GroupName,
		Input:   utterance,
		Model:   req.Model,
		History: historyOf(req.Messages),
	}

	started := time.Now()
	text, execErr := h.executor.Execute(ctx, d, sess)
	elapsed := int(time.Since(started).Milliseconds())

	success := execErr == nil
	outcome := ToolOutcome{
		SelectedTool:    d.Name,
		ExecutionTimeMs: elapsed,
		Success:         &success,
		Metadata:        map[string]any{"kind": string(d.Kind), "source": d.Source, "forced": d.Forced},
	}
	if execErr != nil {
		outcome.ErrorMessage = execErr.Error()
	}
	return text, inv, outcome
}

type parsedToolInput struct {
	confirm   bool
	cancel    bool
	toolName  string
	arguments map[string]any
}

func toolInput(raw map[string]any) parsedToolInput {
	var p parsedToolInput
	if raw == nil {
		return p
	}
	p.confirm = boolField(raw, "guide_confirm")
	p.cancel = boolField(raw, "guide_cancel")
	if v, ok := raw["front_tool_name"].(string); ok {
		p.toolName = strings.TrimSpace(v)
	}
	if v, ok := raw["tool_arguments"].(map[string]any); ok {
		p.arguments = v
	}
	return p
}

func boolField(raw map[string]any, key string) bool {
	switch v := raw[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

func lastUserContent(messages []chatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" && strings.TrimSpace(messages[i].Content) != "" {
			return messages[i].Content
		}
	}
	return ""
}

func historyOf(messages []chatMessage) []toolkit.Message {
	out := make([]toolkit.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, toolkit.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func suggestionBanner(d *dispatch.Decision) string {
	kind := "도구"
	if d.Kind == session.KindFlow {
		kind = "워크플로"
	}
	var b strings.Builder
	b.WriteString("**권장 " + kind + " 실행 안내**\n")
	fmt.Fprintf(&b, "- 제안: `%s`\n", d.Name)
	if d.Reason != "" {
		fmt.Fprintf(&b, "- 선택 이유: %s\n", d.Reason)
	}
	if !d.ArgumentsKnown {
		b.WriteString("- 입력 인자를 추출하지 못해 기본값으로 실행됩니다.\n")
	}
	b.WriteString("- 실행하려면 `tool_input.guide_confirm=true` 를 포함해 다시 요청해주세요.\n")
	b.WriteString("- 취소하려면 `tool_input.guide_cancel=true` 를 전달하면 됩니다.")
	return b.String()
}
