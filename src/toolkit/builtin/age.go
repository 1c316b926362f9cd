package builtin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coe-labs/coe-agent/src/toolkit"
)

// AgeModule exposes the international-age calculator. Date arithmetic runs
// server-side because models are unreliable about the current date.
type AgeModule struct{}

func (AgeModule) Name() string { return "age-calculator" }

func (AgeModule) Manifest() []toolkit.Capability {
	return []toolkit.Capability{
		{
			Name:        "calculate_international_age",
			Description: "사용자의 생년월일을 기준으로 만 나이를 계산합니다. 현재 날짜와 생년월일을 비교하여, 올해 생일이 지났는지 여부를 따져 정확한 나이를 반환합니다. 예: '1990년 5월 10일생 나이 계산해줘'.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"birth_date": map[string]any{
						"type":        "string",
						"description": "계산할 생년월일. 'YYYY-MM-DD' 또는 'YYYY.MM.DD' 형식입니다.",
					},
				},
				"required": []string{"birth_date"},
			},
			Contexts: []string{"aider", "continue.dev"},
			Groups:   []string{"coe"},
		},
	}
}

func (m AgeModule) Handlers() map[string]toolkit.Handler {
	return map[string]toolkit.Handler{
		"calculate_international_age": m.run,
	}
}

func (AgeModule) run(_ context.Context, args map[string]any, _ *toolkit.Session) (*toolkit.Result, error) {
	raw, ok := args["birth_date"]
	if !ok {
		return assistantResult("생년월일을 'YYYY-MM-DD' 형식으로 알려주세요."), nil
	}

	birthStr := fmt.Sprintf("%v", raw)
	birth, err := parseBirthDate(birthStr)
	if err != nil {
		return assistantResult(fmt.Sprintf("생년월일 형식('%s')을 이해할 수 없습니다. 'YYYY-MM-DD' 형식으로 입력해주세요.", birthStr)), nil
	}

	now := time.Now()
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}

	msg := fmt.Sprintf("생년월일 %s 기준, 만 나이는 %d세입니다.", birth.Format("2006-01-02"), age)
	return assistantResult(msg), nil
}

func parseBirthDate(s string) (time.Time, error) {
	normalized := strings.NewReplacer(".", "-", "/", "-").Replace(strings.TrimSpace(s))
	if len(normalized) == 8 && isDigits(normalized) {
		normalized = normalized[0:4] + "-" + normalized[4:6] + "-" + normalized[6:8]
	}
	return time.Parse("2006-01-02", normalized)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func assistantResult(content string) *toolkit.Result {
	return &toolkit.Result{
		Messages: []toolkit.Message{{Role: "assistant", Content: content}},
	}
}
