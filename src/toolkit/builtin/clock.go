package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/coe-labs/coe-agent/src/toolkit"
)

// ClockModule reports the server's current date and time.
type ClockModule struct{}

func (ClockModule) Name() string { return "server-clock" }

func (ClockModule) Manifest() []toolkit.Capability {
	return []toolkit.Capability{
		{
			Name:        "get_server_time",
			Description: "서버의 현재 날짜와 시각을 반환합니다. 오늘 날짜, 요일, 현재 시간을 물어보는 요청에 사용합니다.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Contexts: []string{"aider", "continue.dev"},
		},
	}
}

func (m ClockModule) Handlers() map[string]toolkit.Handler {
	return map[string]toolkit.Handler{
		"get_server_time": m.run,
	}
}

func (ClockModule) run(_ context.Context, _ map[string]any, _ *toolkit.Session) (*toolkit.Result, error) {
	now := time.Now()
	msg := fmt.Sprintf("현재 서버 시각은 %s (%s) 입니다.", now.Format("2006-01-02 15:04:05"), now.Weekday())
	return assistantResult(msg), nil
}
