package audit

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/comunidade-central/accessctl/internal/db/models"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Filter narrows List. Zero fields match everything.
type Filter struct {
	UserID  string
	Reason  string
	Allowed *bool
	Since   time.Time
	Limit   int
}

// List returns the newest entries written by the database sink.
func List(ctx context.Context, db *gorm.DB, f Filter) ([]models.AuditEntry, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := db.WithContext(ctx).Order("created_at DESC").Limit(limit)

	if f.UserID != "" {
		query = query.Where("user_id = ?", f.UserID)
	}

	if f.Reason != "" {
		query = query.Where("reason = ?", f.Reason)
	}

	if f.Allowed != nil {
		query = query.Where("allowed = ?", *f.Allowed)
	}

	if !f.Since.IsZero() {
		query = query.Where("created_at >= ?", f.Since)
	}

	entries := []models.AuditEntry{}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err //nolint:wrapcheck
	}

	return entries, nil
}
