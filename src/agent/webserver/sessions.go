package webserver

import (
	"fmt"
	"log"
	"net/http"

	"github.com/coe-labs/coe-agent/src/data"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Sessions exposes session lifecycle operations beyond the chat turn itself.
type Sessions struct {
	db *gorm.DB
}

func NewSessions(db *gorm.DB) *Sessions {
	return &Sessions{db: db}
}

type closeSessionRequest struct {
	GroupName string `json:"group_name"`
}

// Close aggregates a session's stored turns into a conversation summary row.
func (s *Sessions) Close(c *gin.Context) {
	sessionID := c.Param("sessionID")

	var req closeSessionRequest
	_ = c.ShouldBindJSON(&req)

	var msgs []data.ChatMessage
	err := s.db.WithContext(c.Request.Context()).
		Where("session_id = ?", sessionID).
		Order("id").
		Find(&msgs).Error
	if err != nil {
		log.Printf("webserver: close session %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session history"})
		return
	}
	if len(msgs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no conversation recorded for this session"})
		return
	}

	turns := 0
	toolRuns := 0
	tools := map[string]any{}
	for _, m := range msgs {
		if m.Role == "user" {
			turns++
		}
		if m.SelectedTool != "" {
			toolRuns++
			if n, ok := tools[m.SelectedTool].(int); ok {
				tools[m.SelectedTool] = n + 1
			} else {
				tools[m.SelectedTool] = 1
			}
		}
	}

	summary := data.ConversationSummary{
		SessionID:      sessionID,
		SummaryContent: fmt.Sprintf("총 %d턴의 대화가 진행되었고, 도구가 %d회 실행되었습니다.", turns, toolRuns),
		TotalTurns:     turns,
		ToolsUsed:      marshalJSON(tools),
		GroupName:      req.GroupName,
	}
	if err := s.db.WithContext(c.Request.Context()).Create(&summary).Error; err != nil {
		log.Printf("webserver: save summary %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":  sessionID,
		"summary":     summary.SummaryContent,
		"total_turns": summary.TotalTurns,
	})
}
