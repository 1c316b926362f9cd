package webserver

import (
	"encoding/json"
	"log"

	"github.com/coe-labs/coe-agent/src/data"
	"gorm.io/gorm"
)

// ToolOutcome carries the dispatch result details worth persisting.
type ToolOutcome struct {
	SelectedTool    string
	ExecutionTimeMs int
	Success         *bool
	Metadata        map[string]any
	ErrorMessage    string
}

// ChatRecorder persists conversation turns and API call logs. Persistence
// failures are logged and swallowed; they never break a chat turn.
type ChatRecorder struct {
	db *gorm.DB
}

func NewChatRecorder(db *gorm.DB) *ChatRecorder {
	return &ChatRecorder{db: db}
}

func (r *ChatRecorder) SaveTurn(sessionID, userContent, assistantContent string, turn int, outcome ToolOutcome) {
	user := data.ChatMessage{
		SessionID:  sessionID,
		Role:       "user",
		Content:    userContent,
		TurnNumber: turn,
	}
	if err := r.db.Create(&user).Error; err != nil {
		log.Printf("recorder: save user message: %v", err)
	}

	assistant := data.ChatMessage{
		SessionID:           sessionID,
		Role:                "assistant",
		Content:             assistantContent,
		TurnNumber:          turn,
		SelectedTool:        outcome.SelectedTool,
		ToolExecutionTimeMs: outcome.ExecutionTimeMs,
		ToolSuccess:         outcome.Success,
		ToolMetadata:        marshalJSON(outcome.Metadata),
	}
	if err := r.db.Create(&assistant).Error; err != nil {
		log.Printf("recorder: save assistant message: %v", err)
	}
}

func (r *ChatRecorder) LogAPICall(sessionID, endpoint, method string, status, responseTimeMs int, outcome ToolOutcome) {
	entry := data.APILog{
		SessionID:           sessionID,
		Endpoint:            endpoint,
		Method:              method,
		ResponseStatus:      status,
		ResponseTimeMs:      responseTimeMs,
		ErrorMessage:        outcome.ErrorMessage,
		SelectedTool:        outcome.SelectedTool,
		ToolExecutionTimeMs: outcome.ExecutionTimeMs,
		ToolSuccess:         outcome.Success,
		ToolErrorMessage:    outcome.ErrorMessage,
	}
	if err := r.db.Create(&entry).Error; err != nil {
		log.Printf("recorder: log api call: %v", err)
	}
}

func marshalJSON(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(raw)
}
