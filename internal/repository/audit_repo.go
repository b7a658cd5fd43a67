package repository

import (
	"context"

	"tillpoint/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AuditRepository interface {
	// Create is an idempotent append: a replayed queue entry with the same
	// (session_id, occurred_at) is silently dropped.
	Create(ctx context.Context, e *model.AuditEvent) error
}

type auditRepo struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) AuditRepository { return &auditRepo{db: db} }

func (r *auditRepo) Create(ctx context.Context, e *model.AuditEvent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "occurred_at"}},
			DoNothing: true,
		}).
		Create(e).Error
}
