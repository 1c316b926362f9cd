package webserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/coe-labs/coe-agent/src/data"
	"github.com/coe-labs/coe-agent/src/flows"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FlowAdmin manages the persisted flow catalog.
type FlowAdmin struct {
	db *gorm.DB
}

func NewFlowAdmin(db *gorm.DB) *FlowAdmin {
	return &FlowAdmin{db: db}
}

type flowUpsertRequest struct {
	FlowID      string `json:"flow_id"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	Visibility  string `json:"visibility" binding:"required"`
	FlowData    any    `json:"flow_data" binding:"required"`
}

type flowView struct {
	FlowID      string `json:"flow_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
	IsActive    bool   `json:"is_active"`
}

func (a *FlowAdmin) Create(c *gin.Context) {
	var req flowUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, description, visibility and flow_data are required"})
		return
	}

	raw, err := json.Marshal(req.FlowData)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "flow_data must be valid JSON"})
		return
	}
	flowID := strings.TrimSpace(req.FlowID)
	if flowID == "" {
		flowID = uuid.NewString()
	}

	flow := data.Flow{
		FlowID:      flowID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		FlowData:    string(raw),
		Visibility:  strings.TrimSpace(req.Visibility),
		IsActive:    true,
	}
	if err := a.db.WithContext(c.Request.Context()).Create(&flow).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "flow with this name already exists"})
			return
		}
		log.Printf("webserver: create flow: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store flow"})
		return
	}
	c.JSON(http.StatusCreated, viewOf(flow))
}

// List returns active flows, optionally filtered to what a caller context and
// group may see. ?all=true includes deactivated flows.
func (a *FlowAdmin) List(c *gin.Context) {
	q := a.db.WithContext(c.Request.Context()).Model(&data.Flow{}).Order("id")
	if c.Query("all") != "true" {
		q = q.Where("is_active = ?", true)
	}

	var stored []data.Flow
	if err := q.Find(&stored).Error; err != nil {
		log.Printf("webserver: list flows: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list flows"})
		return
	}

	callerContext := c.Query("context")
	group := c.Query("group")
	out := make([]flowView, 0, len(stored))
	for _, flow := range stored {
		if callerContext != "" && !flows.VisibleTo(flow.Visibility, callerContext, group) {
			continue
		}
		out = append(out, viewOf(flow))
	}
	c.JSON(http.StatusOK, gin.H{"flows": out})
}

// Delete deactivates a flow by flow_id. The row survives for audit history.
func (a *FlowAdmin) Delete(c *gin.Context) {
	flowID := c.Param("flowID")
	res := a.db.WithContext(c.Request.Context()).
		Model(&data.Flow{}).
		Where("flow_id = ? AND is_active = ?", flowID, true).
		Update("is_active", false)
	if res.Error != nil {
		log.Printf("webserver: delete flow: %v", res.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete flow"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "flow not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": flowID})
}

func viewOf(flow data.Flow) flowView {
	return flowView{
		FlowID:      flow.FlowID,
		Name:        flow.Name,
		Description: flow.Description,
		Visibility:  flow.Visibility,
		IsActive:    flow.IsActive,
	}
}
