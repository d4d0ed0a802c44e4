package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
	StatusEnded  Status = "ended"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusEnded:
		return true
	default:
		return false
	}
}

// Enrollment links an account, and optionally one of its members, to a service.
type Enrollment struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID  `gorm:"not null;index" json:"organization_id"`
	AccountID   snowflake.ID  `gorm:"not null;index" json:"account_id"`
	MemberID    *snowflake.ID `gorm:"index" json:"member_id,omitempty"`
	ServiceName string        `gorm:"type:text;not null" json:"service_name"`
	Status      Status        `gorm:"type:text;not null" json:"status"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Enrollment) TableName() string { return "enrollments" }
