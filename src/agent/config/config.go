package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	MySQLDSN  string
	RedisURL  string
	JWTSecret string
	Port      string

	AIProvider     string
	AIAPIKey       string
	AIBaseURL      string
	AIModel        string
	AISystemPrompt string

	// RouterStrategy picks the primary selection strategy, "reasoning" or
	// "heuristic". RouterFallback enables degrading to the heuristic when
	// the reasoning engine is unavailable.
	RouterStrategy string
	RouterFallback bool

	FlowEngineURL string

	SuggestionTTL  time.Duration
	SessionTTL     time.Duration
	SelectTimeout  time.Duration
	ExecuteTimeout time.Duration
	PollInterval   int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func getduration(key, def string) time.Duration {
	v := getenv(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %v", key, err)
	}
	return d
}

func Load() Config {
	pi, _ := strconv.Atoi(getenv("POLL_INTERVAL", "60"))
	fallback, _ := strconv.ParseBool(getenv("ROUTER_FALLBACK", "true"))
	return Config{
		MySQLDSN:  getenv("MYSQL_DSN", "coe:coe@tcp(127.0.0.1:3306)/coe_agent?parseTime=true"),
		RedisURL:  getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret: getenv("JWT_SECRET", ""),
		Port:      getenv("PORT", "8000"),

		AIProvider:     getenv("AI_PROVIDER", "ax"),
		AIAPIKey:       os.Getenv("AI_API_KEY"),
		AIBaseURL:      os.Getenv("AI_BASE_URL"),
		AIModel:        os.Getenv("AI_MODEL"),
		AISystemPrompt: os.Getenv("AI_SYSTEM_PROMPT"),

		RouterStrategy: getenv("ROUTER_STRATEGY", "reasoning"),
		RouterFallback: fallback,

		FlowEngineURL: getenv("FLOW_ENGINE_URL", "http://127.0.0.1:7860"),

		SuggestionTTL:  getduration("SUGGESTION_TTL", "30m"),
		SessionTTL:     getduration("SESSION_TTL", "24h"),
		SelectTimeout:  getduration("SELECT_TIMEOUT", "20s"),
		ExecuteTimeout: getduration("EXECUTE_TIMEOUT", "60s"),
		PollInterval:   pi,
	}
}
