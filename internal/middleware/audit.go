package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/msgpilot/backend/pkg/logger"
	"gorm.io/gorm"
)

// AuditLog records a state-changing billing action and who performed it
type AuditLog struct {
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`

	ActorID    string `gorm:"column:actor_id;size:64;index" json:"actor_id"`
	Action     string `gorm:"column:action;size:32;index" json:"action"` // cancel, resume, terminate, trial
	Resource   string `gorm:"column:resource;size:32" json:"resource"`
	ResourceID string `gorm:"column:resource_id;size:64;index" json:"resource_id"`
	Status     int    `gorm:"column:status" json:"status"`
	ClientIP   string `gorm:"column:client_ip;size:45" json:"client_ip"`
	UserAgent  string `gorm:"column:user_agent;size:255" json:"user_agent"`
	RequestID  string `gorm:"column:request_id;size:36" json:"request_id"`

	ID int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// AuditLogger handles writing audit log entries. A nil db disables it.
type AuditLogger struct {
	db *gorm.DB
}

// NewAuditLogger creates a new AuditLogger
func NewAuditLogger(db *gorm.DB) *AuditLogger {
	return &AuditLogger{db: db}
}

// Migrate creates the audit_logs table
func (a *AuditLogger) Migrate() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.AutoMigrate(&AuditLog{})
}

// Log writes an audit entry. Failures are logged and never fail the request.
func (a *AuditLogger) Log(ctx context.Context, entry *AuditLog) {
	if a == nil || a.db == nil {
		return
	}
	if err := a.db.WithContext(ctx).Create(entry).Error; err != nil {
		logger.GetLogger().Error().Err(err).
			Str("action", entry.Action).
			Str("actor_id", entry.ActorID).
			Msg("audit log write failed")
	}
}

// ListAuditLogs retrieves audit logs newest first with optional filters
func (a *AuditLogger) ListAuditLogs(ctx context.Context, resourceID, action string, limit, offset int) ([]AuditLog, int64, error) {
	var logs []AuditLog
	var total int64

	query := a.db.WithContext(ctx).Model(&AuditLog{})
	if resourceID != "" {
		query = query.Where("resource_id = ?", resourceID)
	}
	if action != "" {
		query = query.Where("action = ?", action)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&logs).Error

	return logs, total, err
}

// Audit records action after the handler ran. The subscription owner is
// the :user_id path parameter, or the caller for self-service routes.
func Audit(a *AuditLogger, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		actor := GetUserID(c)
		resourceID := c.Param("user_id")
		if resourceID == "" {
			resourceID = actor
		}
		a.Log(c.Request.Context(), &AuditLog{
			ActorID:    actor,
			Action:     action,
			Resource:   "subscription",
			ResourceID: resourceID,
			Status:     c.Writer.Status(),
			ClientIP:   c.ClientIP(),
			UserAgent:  truncate(c.Request.UserAgent(), 255),
			RequestID:  c.GetString("request_id"),
		})
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
