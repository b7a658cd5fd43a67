package repository

import (
	"context"
	"errors"

	"tillpoint/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository persists register sessions and their registers.
// Transaction runs fn against a transactional copy of the repository; every
// stateful transition (open, close, force-close, reopen) executes inside
// one transaction so the precondition checks and writes are atomic.
// FindRegisterForUpdate takes a row-level lock on the register for the
// duration of that transaction — two racing opens or closes on the same
// register serialize on it.
type SessionRepository interface {
	Transaction(ctx context.Context, fn func(SessionRepository) error) error

	FindRegister(ctx context.Context, id uuid.UUID) (*model.Register, error)
	FindRegisterForUpdate(ctx context.Context, id uuid.UUID) (*model.Register, error)
	UpdateRegister(ctx context.Context, reg *model.Register) error

	Create(ctx context.Context, s *model.RegisterSession) error
	Update(ctx context.Context, s *model.RegisterSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.RegisterSession, error)
	// FindOpenByRegister returns the session in state open/reopened for the
	// register, or nil — the source of truth behind CurrentSessionID.
	FindOpenByRegister(ctx context.Context, registerID uuid.UUID) (*model.RegisterSession, error)
	FindOpenByUser(ctx context.Context, userID uuid.UUID) (*model.RegisterSession, error)
	List(ctx context.Context, page, limit int) ([]model.RegisterSession, int64, error)
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepo{db: db} }

func (r *sessionRepo) Transaction(ctx context.Context, fn func(SessionRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&sessionRepo{db: tx})
	})
}

func (r *sessionRepo) FindRegister(ctx context.Context, id uuid.UUID) (*model.Register, error) {
	var reg model.Register
	if err := r.db.WithContext(ctx).First(&reg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *sessionRepo) FindRegisterForUpdate(ctx context.Context, id uuid.UUID) (*model.Register, error) {
	var reg model.Register
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&reg, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *sessionRepo) UpdateRegister(ctx context.Context, reg *model.Register) error {
	return r.db.WithContext(ctx).Save(reg).Error
}

func (r *sessionRepo) Create(ctx context.Context, s *model.RegisterSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepo) Update(ctx context.Context, s *model.RegisterSession) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *sessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.RegisterSession, error) {
	var s model.RegisterSession
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) FindOpenByRegister(ctx context.Context, registerID uuid.UUID) (*model.RegisterSession, error) {
	var s model.RegisterSession
	err := r.db.WithContext(ctx).
		Where("register_id = ? AND status IN ?", registerID, []string{model.SessionOpen, model.SessionReopened}).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) FindOpenByUser(ctx context.Context, userID uuid.UUID) (*model.RegisterSession, error) {
	var s model.RegisterSession
	err := r.db.WithContext(ctx).
		Where("opener_id = ? AND status IN ?", userID, []string{model.SessionOpen, model.SessionReopened}).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) List(ctx context.Context, page, limit int) ([]model.RegisterSession, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.RegisterSession{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var sessions []model.RegisterSession
	err := r.db.WithContext(ctx).
		Order("opened_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&sessions).Error
	return sessions, total, err
}
