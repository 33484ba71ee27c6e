package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/codelab-portal/internal/models"
)

// ActivityLogFilter narrows activity log queries. Zero values match everything.
type ActivityLogFilter struct {
	Page          int
	PageSize      int
	ActorID       *uint
	ActorRole     string
	Action        string
	EntityType    string
	EntityID      *uint
	CorrelationID string
	Since         *time.Time
	Until         *time.Time
}

// ActivityLogRepository persists the portal audit trail.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.ActivityLog{}).Scopes(matching(filter))

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []models.ActivityLog{}, 0, nil
	}

	var entries []models.ActivityLog
	err := base.Scopes(paginate(filter.Page, filter.PageSize)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// matching applies every non-empty filter field as an equality or range predicate.
func matching(filter ActivityLogFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		equals := map[string]interface{}{}
		if filter.ActorID != nil {
			equals["actor_id"] = *filter.ActorID
		}
		if filter.EntityID != nil {
			equals["entity_id"] = *filter.EntityID
		}
		for column, value := range map[string]string{
			"actor_role":     filter.ActorRole,
			"action":         filter.Action,
			"entity_type":    filter.EntityType,
			"correlation_id": filter.CorrelationID,
		} {
			if value != "" {
				equals[column] = value
			}
		}
		if len(equals) > 0 {
			db = db.Where(equals)
		}

		if filter.Since != nil {
			db = db.Where("created_at >= ?", *filter.Since)
		}
		if filter.Until != nil {
			db = db.Where("created_at < ?", *filter.Until)
		}
		return db
	}
}

func paginate(page, pageSize int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if pageSize <= 0 {
			return db
		}
		if page <= 0 {
			page = 1
		}
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}
