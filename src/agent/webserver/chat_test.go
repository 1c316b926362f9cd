package webserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coe-labs/coe-agent/src/dispatch"
	"github.com/coe-labs/coe-agent/src/session"
	"github.com/coe-labs/coe-agent/src/toolkit"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSelector struct {
	decision *dispatch.Decision
	explicit *dispatch.Choice
	calls    int
}

func (f *fakeSelector) Select(_ context.Context, _, _, _ string, explicit *dispatch.Choice) (*dispatch.Decision, error) {
	f.calls++
	f.explicit = explicit
	return f.decision, nil
}

type fakeExecutor struct {
	text     string
	executed *dispatch.Decision
	sess     *toolkit.Session
}

func (f *fakeExecutor) Execute(_ context.Context, d *dispatch.Decision, sess *toolkit.Session) (string, error) {
	f.executed = d
	f.sess = sess
	return f.text, nil
}

type fakeTracker struct{}

func (fakeTracker) GetOrCreate(_ context.Context, id string) (*session.State, error) {
	if id == "" {
		id = "generated-session"
	}
	return &session.State{SessionID: id, IsActive: true}, nil
}

func (fakeTracker) Touch(_ context.Context, st *session.State) error {
	st.ConversationTurns++
	return nil
}

type chatTestEnv struct {
	router    *gin.Engine
	selector  *fakeSelector
	executor  *fakeExecutor
	suggester *dispatch.Suggester
}

func newChatTestEnv(decision *dispatch.Decision, execText string) *chatTestEnv {
	gin.SetMode(gin.TestMode)

	env := &chatTestEnv{
		selector:  &fakeSelector{decision: decision},
		executor:  &fakeExecutor{text: execText},
		suggester: dispatch.NewSuggester(session.NewMemoryStore(time.Hour)),
	}
	chat := NewChat(env.selector, env.suggester, env.executor, fakeTracker{}, nil, "ax4")

	env.router = gin.New()
	env.router.POST("/v1/chat/completions", chat.Completions)
	return env
}

func (env *chatTestEnv) post(t *testing.T, body map[string]any) (*httptest.ResponseRecorder, chatResponse) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	var resp chatResponse
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func chatBody(content, sessionID string, toolInput map[string]any) map[string]any {
	return map[string]any{
		"messages":   []map[string]string{{"role": "user", "content": content}},
		"context":    "aider",
		"group_name": "coe",
		"session_id": sessionID,
		"tool_input": toolInput,
	}
}

func executableDecision() *dispatch.Decision {
	return &dispatch.Decision{
		Action:         dispatch.ActionCapability,
		Kind:           session.KindCapability,
		Name:           "calculate_international_age",
		Arguments:      map[string]any{"birth_date": "1990-05-10"},
		ArgumentsKnown: true,
		Reason:         "나이 계산 요청",
		Source:         "reasoning",
	}
}

func TestChatAutoRouteProposesSuggestion(t *testing.T) {
	env := newChatTestEnv(executableDecision(), "unused")

	w, resp := env.post(t, chatBody("1990년생 만 나이 알려줘", "s1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, resp.Choices, 1)
	content := resp.Choices[0].Message.Content
	assert.Contains(t, content, "calculate_international_age")
	assert.Contains(t, content, "guide_confirm")
	assert.Contains(t, content, "guide_cancel")
	assert.Equal(t, "s1", resp.SessionID)
	assert.Nil(t, resp.ForcedInvocation)
	// Nothing executed yet.
	assert.Nil(t, env.executor.executed)

	// The suggestion is pending and confirmable.
	sug, err := env.suggester.Confirm(context.Background(), "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, "calculate_international_age", sug.Name)
}

func TestChatConfirmExecutesPending(t *testing.T) {
	env := newChatTestEnv(executableDecision(), "생년월일 1990-05-10 기준, 만 나이는 36세입니다.")

	_, err := env.suggester.Propose(context.Background(), "s1", executableDecision())
	require.NoError(t, err)

	w, resp := env.post(t, chatBody("응 실행해줘", "s1", map[string]any{"guide_confirm": true}))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, env.executor.text, resp.Choices[0].Message.Content)
	require.NotNil(t, env.executor.executed)
	assert.Equal(t, "calculate_international_age", env.executor.executed.Name)

	require.NotNil(t, resp.ForcedInvocation)
	require.Len(t, resp.ForcedInvocation.ToolCalls, 1)
	assert.Equal(t, "calculate_international_age", resp.ForcedInvocation.ToolCalls[0].Function.Name)

	// Selection was not re-run on confirm.
	assert.Zero(t, env.selector.calls)
}

func TestChatConfirmOverrideArguments(t *testing.T) {
	env := newChatTestEnv(executableDecision(), "done")

	_, err := env.suggester.Propose(context.Background(), "s1", executableDecision())
	require.NoError(t, err)

	w, _ := env.post(t, chatBody("실행", "s1", map[string]any{
		"guide_confirm":  true,
		"tool_arguments": map[string]any{"birth_date": "2000-01-01"},
	}))
	require.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, env.executor.executed)
	assert.Equal(t, map[string]any{"birth_date": "2000-01-01"}, env.executor.executed.Arguments)
}

func TestChatConfirmWithoutPending(t *testing.T) {
	env := newChatTestEnv(executableDecision(), "unused")

	w, resp := env.post(t, chatBody("실행해줘", "s1", map[string]any{"guide_confirm": true}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, resp.Choices[0].Message.Content, "대기 중인 도구가 없습니다")
	assert.Nil(t, env.executor.executed)
}

func TestChatCancelWithoutPending(t *testing.T) {
	env := newChatTestEnv(executableDecision(), "unused")

	w, resp := env.post(t, chatBody("취소", "s1", map[string]any{"guide_cancel": true}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, resp.Choices[0].Message.Content, "취소할 대기 중인")
}

func TestChatCancelDiscardsPending(t *testing.T) {
	env := newChatTestEnv(executableDecision(), "unused")

	_, err := env.suggester.Propose(context.Background(), "s1", executableDecision())
	require.NoError(t, err)

	w, resp := env.post(t, chatBody("취소해줘", "s1", map[string]any{"guide_cancel": true}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, resp.Choices[0].Message.Content, "취소했습니다")

	_, err = env.suggester.Confirm(context.Background(), "s1", nil)
	assert.ErrorIs(t, err, dispatch.ErrNoPending)
}

func TestChatExplicitToolBypassesSuggestion(t *testing.T) {
	forced := executableDecision()
	forced.Forced = true
	forced.Source = "explicit"
	env := newChatTestEnv(forced, "즉시 실행 결과")

	w, resp := env.post(t, chatBody("나이 계산", "s1", map[string]any{
		"front_tool_name": "calculate_international_age",
		"tool_arguments":  map[string]any{"birth_date": "1990-05-10"},
	}))
	require.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, env.selector.explicit)
	assert.Equal(t, "calculate_international_age", env.selector.explicit.Name)
	assert.Equal(t, "즉시 실행 결과", resp.Choices[0].Message.Content)
	require.NotNil(t, resp.ForcedInvocation)
}

func TestChatExplicitToolIneligible(t *testing.T) {
	env := newChatTestEnv(&dispatch.Decision{Action: dispatch.ActionNone}, "unused")

	w, resp := env.post(t, chatBody("실행", "s1", map[string]any{"front_tool_name": "ghost_tool"}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, resp.Choices[0].Message.Content, "ghost_tool")
	assert.Contains(t, resp.Choices[0].Message.Content, "사용할 수 없습니다")
	assert.Nil(t, env.executor.executed)
}

func TestChatAutoRouteNoCandidate(t *testing.T) {
	env := newChatTestEnv(&dispatch.Decision{Action: dispatch.ActionNone}, "unused")

	w, resp := env.post(t, chatBody("잡담", "s1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, resp.Choices[0].Message.Content, "적합한 도구를 찾지 못했습니다")
}

func TestChatGeneratesSessionID(t *testing.T) {
	env := newChatTestEnv(&dispatch.Decision{Action: dispatch.ActionNone}, "unused")

	w, resp := env.post(t, chatBody("안녕", "", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "generated-session", resp.SessionID)
}

func TestChatRejectsRequestWithoutUserMessage(t *testing.T) {
	env := newChatTestEnv(executableDecision(), "unused")

	w, _ := env.post(t, map[string]any{
		"messages": []map[string]string{{"role": "system", "content": "설정"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatStringBooleanToolInput(t *testing.T) {
	env := newChatTestEnv(executableDecision(), "unused")

	w, resp := env.post(t, chatBody("취소", "s1", map[string]any{"guide_cancel": "true"}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, resp.Choices[0].Message.Content, "취소할 대기 중인")
}
