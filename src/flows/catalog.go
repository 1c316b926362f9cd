package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/coe-labs/coe-agent/src/data"
	"gorm.io/gorm"
)

// Catalog is a read-only view over the persisted flow table. It performs no
// caching of its own; every call re-checks is_active.
type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// Eligible returns the active flows visible to a context/group pair.
// A flow matches when its visibility equals the context literally, or the
// "context:group" composite when a group is supplied.
func (c *Catalog) Eligible(ctx context.Context, callerContext, group string) ([]data.Flow, error) {
	visibilities := []string{callerContext}
	if group != "" {
		visibilities = append(visibilities, compositeVisibility(callerContext, group))
	}

	var out []data.Flow
	err := c.db.WithContext(ctx).
		Where("is_active = ? AND visibility IN ?", true, visibilities).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("flows: list eligible: %w", err)
	}
	return out, nil
}

// ByName fetches a single active flow. Returns nil when the flow does not
// exist or has been deactivated.
func (c *Catalog) ByName(ctx context.Context, name string) (*data.Flow, error) {
	var flow data.Flow
	err := c.db.WithContext(ctx).
		First(&flow, "name = ? AND is_active = ?", name, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("flows: lookup %q: %w", name, err)
	}
	return &flow, nil
}

func compositeVisibility(callerContext, group string) string {
	return callerContext + ":" + group
}

// VisibleTo reports whether a single visibility string matches the pair.
// Kept as a pure helper so the matching rule is testable without a database.
func VisibleTo(visibility, callerContext, group string) bool {
	if visibility == callerContext {
		return true
	}
	return group != "" && visibility == compositeVisibility(callerContext, group)
}
