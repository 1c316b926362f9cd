package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coe-labs/coe-agent/src/agent/config"
	"github.com/coe-labs/coe-agent/src/agent/webserver"
	aicore "github.com/coe-labs/coe-agent/src/ai/core"
	_ "github.com/coe-labs/coe-agent/src/ai/providers"
	"github.com/coe-labs/coe-agent/src/data"
	"github.com/coe-labs/coe-agent/src/dispatch"
	"github.com/coe-labs/coe-agent/src/flows"
	"github.com/coe-labs/coe-agent/src/session"
	"github.com/coe-labs/coe-agent/src/toolkit"
	"github.com/coe-labs/coe-agent/src/toolkit/builtin"
	"gorm.io/gorm"
)

var allModels = []interface{}{
	&data.Flow{}, &data.ChatMessage{}, &data.APILog{},
	&data.ConversationSummary{}, &data.Setting{},
}

func migrate(db *gorm.DB) {
	if err := db.AutoMigrate(allModels...); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}

func buildStrategies(cfg config.Config, client aicore.Client) (primary, fallback dispatch.Strategy) {
	heuristic := dispatch.Heuristic{}
	reasoning := dispatch.NewReasoning(client, cfg.SelectTimeout)

	switch cfg.RouterStrategy {
	case "heuristic":
		primary = heuristic
	default:
		primary = reasoning
		if cfg.RouterFallback {
			fallback = heuristic
		}
	}
	return primary, fallback
}

func main() {
	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	migrate(db)
	if err := data.LoadSettings(db); err != nil {
		log.Printf("settings: %v", err)
	}

	rdb := data.MustRedis(cfg.RedisURL)

	// Settings table overrides env when present.
	systemPrompt := cfg.AISystemPrompt
	if v := data.GetSetting("ai_system_prompt"); v != "" {
		systemPrompt = v
	}

	client, err := aicore.NewClient(aicore.FactoryConfig{
		Provider:     cfg.AIProvider,
		SystemPrompt: systemPrompt,
		Model:        aicore.ResolveModelName(cfg.AIProvider, cfg.AIModel),
		APIKey:       cfg.AIAPIKey,
		BaseURL:      cfg.AIBaseURL,
	})
	if err != nil {
		log.Fatalf("ai client: %v", err)
	}

	registry := toolkit.NewRegistry(builtin.AgeModule{}, builtin.ClockModule{})
	catalog := flows.NewCatalog(db)
	engine := flows.NewEngine(cfg.FlowEngineURL, cfg.ExecuteTimeout)

	primary, fallback := buildStrategies(cfg, client)
	selector := dispatch.NewSelector(registry, catalog, primary, fallback,
		dispatch.NewAIArguments(client, cfg.SelectTimeout))
	executor := dispatch.NewExecutor(registry, catalog, engine, cfg.ExecuteTimeout)
	suggester := dispatch.NewSuggester(session.NewRedisStore(rdb, cfg.SuggestionTTL))
	tracker := session.NewTracker(rdb, cfg.SessionTTL)
	recorder := webserver.NewChatRecorder(db)

	chatH := webserver.NewChat(selector, suggester, executor, tracker, recorder,
		aicore.ResolveModelName(cfg.AIProvider, cfg.AIModel))

	ctx, cancel := context.WithCancel(context.Background())
	go refreshLoop(ctx, db, registry, cfg.PollInterval)

	router := webserver.New(cfg, db, webserver.Handlers{Chat: chatH})
	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()
	log.Printf("CoE agent listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}

// refreshLoop re-reads DB settings and rebuilds the capability snapshot on the
// configured interval.
func refreshLoop(ctx context.Context, db *gorm.DB, registry *toolkit.Registry, intervalSec int) {
	if intervalSec <= 0 {
		intervalSec = 60
	}
	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := data.RefreshSettings(db); err != nil {
				log.Printf("settings refresh: %v", err)
			}
			registry.Refresh()
		}
	}
}
