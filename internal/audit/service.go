package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"pinturas-backend/internal/logger"
	"pinturas-backend/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type LogOptions struct {
	BranchID    *uuid.UUID
	UserID      *uuid.UUID
	UserName    string
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

type Service struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewService(db *gorm.DB, log *logrus.Logger) *Service {
	return &Service{db: db, log: log}
}

func WriteLog(ctx context.Context, db *gorm.DB, opts LogOptions) error {
	entry := models.AuditLog{
		BranchID:    opts.BranchID,
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  marshalOrNull(opts.Before),
		AfterData:   marshalOrNull(opts.After),
	}

	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("audit log no guardado: %w", err)
	}
	return nil
}

// Record writes the entry and only logs a failure; the audited operation
// already succeeded and must not be reported as failed.
func (s *Service) Record(ctx context.Context, opts LogOptions) {
	if s == nil || s.db == nil {
		return
	}
	if err := WriteLog(ctx, s.db, opts); err != nil {
		log := s.log
		if log == nil {
			log = logger.Get()
		}
		logger.LogError(log, "audit", "Record", opts.EntityType, opts.EntityID, err)
	}
}

func marshalOrNull(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
