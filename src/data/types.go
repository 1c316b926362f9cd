package data

import "time"

// Flow is a persisted, user-authored workflow definition. The dispatcher
// treats flows as a second kind of candidate next to capabilities.
type Flow struct {
	ID          uint64 `gorm:"primaryKey"`
	FlowID      string `gorm:"size:255;uniqueIndex;not null"`
	Name        string `gorm:"size:255;uniqueIndex;not null"`
	Description string `gorm:"type:text"`
	FlowData    string `gorm:"type:json;not null"`
	// Visibility is either a bare context ("aider") or a context:group
	// composite ("aider:dev-team").
	Visibility string `gorm:"size:255;index;not null"`
	IsActive   bool   `gorm:"default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ChatMessage is one stored conversation turn.
type ChatMessage struct {
	ID         uint64 `gorm:"primaryKey"`
	SessionID  string `gorm:"size:100;index;not null"`
	Role       string `gorm:"size:50;not null"`
	Content    string `gorm:"type:text;not null"`
	TurnNumber int    `gorm:"not null"`

	SelectedTool        string `gorm:"size:100"`
	ToolExecutionTimeMs int
	ToolSuccess         *bool
	ToolMetadata        string `gorm:"type:json"`

	CreatedAt time.Time
}

// APILog records one inbound API call and its dispatch outcome.
type APILog struct {
	ID             uint64 `gorm:"primaryKey"`
	SessionID      string `gorm:"size:100;index"`
	Endpoint       string `gorm:"size:255;not null"`
	Method         string `gorm:"size:16;not null"`
	RequestData    string `gorm:"type:json"`
	ResponseStatus int
	ResponseTimeMs int
	ErrorMessage   string `gorm:"type:text"`

	SelectedTool        string `gorm:"size:100"`
	ToolExecutionTimeMs int
	ToolSuccess         *bool
	ToolErrorMessage    string `gorm:"type:text"`

	CreatedAt time.Time
}

// ConversationSummary aggregates a finished session.
type ConversationSummary struct {
	ID             uint64 `gorm:"primaryKey"`
	SessionID      string `gorm:"size:100;index;not null"`
	SummaryContent string `gorm:"type:text;not null"`
	TotalTurns     int    `gorm:"default:0"`
	ToolsUsed      string `gorm:"type:json"`
	GroupName      string `gorm:"size:255"`
	CreatedAt      time.Time
}

// Setting is a named configuration value stored in the database.
type Setting struct {
	ID    uint32 `gorm:"primaryKey"`
	Name  string `gorm:"size:64;uniqueIndex;not null"`
	Value string `gorm:"size:512"`
}
