package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	aicore "github.com/coe-labs/coe-agent/src/ai/core"
)

// Reasoning asks the configured LLM to choose a candidate. The prompt
// contract constrains the answer to a single JSON object naming one of the
// listed candidates, or "none".
type Reasoning struct {
	client  aicore.Client
	timeout time.Duration
}

func NewReasoning(client aicore.Client, timeout time.Duration) *Reasoning {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Reasoning{client: client, timeout: timeout}
}

func (r *Reasoning) Name() string { return "reasoning" }

// Pick returns nil (declined) when the model answers "none", names an
// unknown candidate, or produces unparsable output. Transport failures and
// timeouts surface as errors so the selector can decide about fallback.
func (r *Reasoning) Pick(ctx context.Context, utterance string, candidates []Candidate) (*Pick, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var b strings.Builder
	for _, cand := range candidates {
		fmt.Fprintf(&b, "- '%s': %s\n", cand.Name, cand.Description)
	}

	system := fmt.Sprintf(`사용자의 요청에 가장 적합한 도구를 다음 중에서 선택하세요.
%s
적합한 도구가 없으면 "none"을 선택하세요.
응답은 반드시 다음 JSON 형식이어야 합니다: {"next_tool": "선택한 도구", "reason": "선택 이유"}`, b.String())

	raw, err := r.client.RespondJSON(ctx, []aicore.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: utterance},
	}, aicore.Options{Temperature: 0.01})
	if err != nil {
		return nil, fmt.Errorf("dispatch: reasoning pick: %w", err)
	}

	var answer struct {
		NextTool string `json:"next_tool"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &answer); err != nil {
		// Unparsable answer counts as "no selection", not a failure.
		return nil, nil
	}

	choice := strings.TrimSpace(answer.NextTool)
	if choice == "" || strings.EqualFold(choice, "none") {
		return nil, nil
	}
	for _, cand := range candidates {
		if cand.Name == choice {
			return &Pick{Name: choice, Reason: answer.Reason}, nil
		}
	}
	return nil, nil
}

// extractJSON trims markdown fences some models wrap around JSON answers.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
