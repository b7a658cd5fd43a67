package model

import (
	"time"

	"github.com/google/uuid"
)

// Register is one physical till in a branch. CurrentSessionID is a derived
// back-reference: non-nil iff exactly one session for this register is OPEN
// or REOPENED. It is a cache of the status query and is updated inside the
// same transaction as every state transition.
type Register struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BranchID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_branch_register_number"`
	// RegisterNumber is unique per branch.
	RegisterNumber   int        `gorm:"not null;uniqueIndex:idx_branch_register_number"`
	Name             string     `gorm:"type:varchar(100);not null"`
	IsActive         bool       `gorm:"not null;default:true"`
	CurrentSessionID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
