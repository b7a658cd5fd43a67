package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Window is one operating-hours window, "HH:MM" local time. Branches with
// split shifts configure multiple windows per weekday.
type Window struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Schedule maps weekday (time.Weekday numbering, "0"=Sunday) to windows.
// Stored as JSONB so schedule changes never require a migration.
type Schedule map[string][]Window

func (s Schedule) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(s)
	return string(b), err
}

func (s *Schedule) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	case nil:
		*s = Schedule{}
		return nil
	default:
		return fmt.Errorf("schedule: cannot scan %T", src)
	}
}

// Covers reports whether t falls inside any window for t's weekday.
// An empty schedule (or a day with no windows) covers nothing.
func (s Schedule) Covers(t time.Time) bool {
	windows := s[fmt.Sprintf("%d", int(t.Weekday()))]
	hm := t.Format("15:04")
	for _, w := range windows {
		if hm >= w.Open && hm <= w.Close {
			return true
		}
	}
	return false
}

// Branch carries the branch-level configuration the reconciliation engine
// consumes: the minimum cash float and the operating-hours schedule.
type Branch struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	// PettyCashAmount is the minimum cash float that must remain after a
	// close so the next shift can make change.
	PettyCashAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	OperatingHours  Schedule        `gorm:"type:jsonb"`
	// OwnerEmail receives petty-cash, after-hours, and reopen alerts.
	OwnerEmail   string `gorm:"type:varchar(255)"`
	ManagerEmail string `gorm:"type:varchar(255)"`
	IsActive     bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
