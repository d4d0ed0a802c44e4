package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the lifecycle stage of an account.
type Status string

const (
	StatusLead    Status = "lead"
	StatusTrial   Status = "trial"
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusChurned Status = "churned"
)

var Statuses = []Status{StatusLead, StatusTrial, StatusActive, StatusPaused, StatusChurned}

func (s Status) Valid() bool {
	switch s {
	case StatusLead, StatusTrial, StatusActive, StatusPaused, StatusChurned:
		return true
	default:
		return false
	}
}

// Account is a family: the billing and contact unit that owns members.
type Account struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID      `gorm:"not null;index" json:"organization_id"`
	Name      string            `gorm:"not null" json:"name"`
	Status    Status            `gorm:"type:text;not null;index" json:"status"`
	Email     string            `gorm:"not null;default:''" json:"email"`
	Phone     string            `gorm:"not null;default:''" json:"phone"`
	Notes     string            `gorm:"not null;default:''" json:"notes"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Members []Member `gorm:"-" json:"members"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }

// Member is a student owned by exactly one account.
type Member struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index" json:"organization_id"`
	AccountID snowflake.ID `gorm:"not null;index" json:"account_id"`
	Name      string       `gorm:"not null" json:"name"`
	Grade     string       `gorm:"not null;default:''" json:"grade,omitempty"`
	School    string       `gorm:"not null;default:''" json:"school,omitempty"`
	BirthYear *int         `json:"birth_year,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Member) TableName() string { return "members" }
