package model

import (
	"time"

	"github.com/google/uuid"
)

// Roles. Manager and owner can approve voids and authorize reopens.
const (
	RoleCashier = "cashier"
	RoleManager = "manager"
	RoleOwner   = "owner"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	Name         string    `gorm:"type:varchar(100);not null"`
	Email        string    `gorm:"type:varchar(255)"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	// PINHash is the bcrypt hash of the supervisor PIN used to authorize
	// reopens. Empty for cashiers.
	PINHash   string    `gorm:"type:varchar(255)"`
	Role      string    `gorm:"type:varchar(20);not null;default:'cashier'"`
	BranchID  uuid.UUID `gorm:"type:uuid;not null;index"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
