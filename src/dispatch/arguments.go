package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	aicore "github.com/coe-labs/coe-agent/src/ai/core"
	"github.com/coe-labs/coe-agent/src/toolkit"
)

// ArgumentInferrer fills a capability's parameter schema from the utterance.
type ArgumentInferrer interface {
	Infer(ctx context.Context, utterance string, cap toolkit.Capability) (map[string]any, error)
}

// AIArguments asks the reasoning engine to produce arguments matching the
// capability's JSON schema. Free-text extraction is never attempted here.
type AIArguments struct {
	client  aicore.Client
	timeout time.Duration
}

func NewAIArguments(client aicore.Client, timeout time.Duration) *AIArguments {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &AIArguments{client: client, timeout: timeout}
}

func (a *AIArguments) Infer(ctx context.Context, utterance string, cap toolkit.Capability) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	schema, err := json.Marshal(cap.Parameters)
	if err != nil {
		return nil, fmt.Errorf("dispatch: marshal schema for %s: %w", cap.Name, err)
	}

	system := fmt.Sprintf(`사용자의 요청에서 도구 '%s'의 인자를 추출하세요.
도구 설명: %s
인자 스키마(JSON Schema): %s
스키마의 속성 이름을 키로 하는 JSON 객체 하나만 응답하세요. 알 수 없는 값은 생략하세요.`,
		cap.Name, cap.Description, schema)

	raw, err := a.client.RespondJSON(ctx, []aicore.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: utterance},
	}, aicore.Options{Temperature: 0.01})
	if err != nil {
		return nil, fmt.Errorf("dispatch: infer arguments for %s: %w", cap.Name, err)
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &args); err != nil {
		return nil, fmt.Errorf("dispatch: parse arguments for %s: %w", cap.Name, err)
	}
	return args, nil
}
