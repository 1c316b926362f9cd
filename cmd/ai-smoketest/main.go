package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	aicore "github.com/coe-labs/coe-agent/src/ai/core"
	_ "github.com/coe-labs/coe-agent/src/ai/providers"
)

var (
	providersFlag = flag.String("providers", "ax", "Comma-separated provider list or 'all'")
	modeFlag      = flag.String("mode", "respond", "respond|json|both")
	systemFlag    = flag.String("system", "", "Override system prompt")
	modelFlag     = flag.String("model", "", "Override model name")
	promptFlag    = flag.String("prompt", defaultPrompt, "User prompt for respond mode")
	jsonFlag      = flag.String("json-prompt", defaultJSONPrompt, "User prompt for JSON mode")
	timeoutFlag   = flag.Duration("timeout", 45*time.Second, "Per-provider timeout")
	tempFlag      = flag.Float64("temp", 0.2, "Completion temperature")
	maxLenFlag    = flag.Int("max-bytes", 1200, "Maximum bytes of output to print per response (0=unlimited)")
)

var allProviders = []string{
	"ax",
	"gpt4o",
}

func main() {
	log.SetFlags(0)
	flag.Parse()

	providers := resolveProviders(*providersFlag)
	if len(providers) == 0 {
		log.Fatal("no providers specified")
	}

	systemPrompt := pickFirst(*systemFlag, os.Getenv("AI_SYSTEM_PROMPT"), defaultSystemPrompt)
	model := pickFirst(*modelFlag, os.Getenv("AI_MODEL"))

	mode, err := parseMode(*modeFlag)
	if err != nil {
		log.Fatalf("invalid mode: %v", err)
	}

	for _, provider := range providers {
		if err := runProvider(provider, mode, model, systemPrompt); err != nil {
			log.Printf("[%s] ERROR: %v", provider, err)
		}
	}
}

func runProvider(provider string, mode runMode, model, systemPrompt string) error {
	client, err := aicore.NewClient(aicore.FactoryConfig{
		Provider:     provider,
		SystemPrompt: systemPrompt,
		Model:        aicore.ResolveModelName(provider, model),
		Temperature:  *tempFlag,
		APIKey:       os.Getenv("AI_API_KEY"),
		BaseURL:      os.Getenv("AI_BASE_URL"),
	})
	if err != nil {
		return fmt.Errorf("client init: %w", err)
	}

	fmt.Printf("=== %s ===\n", provider)
	if mode == modeRespond || mode == modeBoth {
		if err := executeRespondTest(client); err != nil {
			fmt.Printf("respond ❌ %v\n", err)
		}
	}
	if mode == modeJSON || mode == modeBoth {
		if err := executeJSONTest(client); err != nil {
			fmt.Printf("json ❌ %v\n", err)
		}
	}
	return nil
}

func executeRespondTest(client aicore.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	start := time.Now()
	reply, err := client.Respond(ctx, []aicore.Message{
		{Role: "user", Content: *promptFlag},
	}, aicore.Options{Temperature: *tempFlag})
	if err != nil {
		return err
	}
	fmt.Printf("respond ✅ (%.1fs)\n%s\n", time.Since(start).Seconds(), truncate(reply, *maxLenFlag))
	return nil
}

func executeJSONTest(client aicore.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	start := time.Now()
	reply, err := client.RespondJSON(ctx, []aicore.Message{
		{Role: "user", Content: *jsonFlag},
	}, aicore.Options{Temperature: 0.01})
	if err != nil {
		return err
	}
	fmt.Printf("json ✅ (%.1fs)\n%s\n", time.Since(start).Seconds(), truncate(reply, *maxLenFlag))
	return nil
}

func resolveProviders(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.EqualFold(raw, "all") {
		return append([]string{}, allProviders...)
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	var out []string
	seen := map[string]struct{}{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func pickFirst(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseMode(input string) (runMode, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "respond":
		return modeRespond, nil
	case "json":
		return modeJSON, nil
	case "both":
		return modeBoth, nil
	default:
		return modeRespond, errors.New("expected respond, json, or both")
	}
}

func truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:limit]) + "...(truncated)"
}

type runMode int

const (
	modeRespond runMode = iota
	modeJSON
	modeBoth
)

const (
	defaultPrompt     = "서울에서 개발자 커뮤니티를 운영할 때 고려할 점을 세 가지로 요약해주세요."
	defaultJSONPrompt = `다음 도구 중 사용자의 요청에 가장 적합한 것을 고르세요: 'calculate_international_age', 'get_server_time'. 적합한 도구가 없으면 "none"을 선택하세요. 응답 형식: {"next_tool": "...", "reason": "..."}. 사용자 요청: 1990년 3월생인데 만 나이가 어떻게 되나요?`
)

const defaultSystemPrompt = "당신은 내부 운영자 테스트를 위한 간결한 한국어 어시스턴트입니다."
