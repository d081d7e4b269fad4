package models

import (
	"time"

	"gorm.io/datatypes"
)

type Task struct {
	BaseModel

	Title        string                      `gorm:"not null" json:"title"`
	Description  string                      `json:"description"`
	CompanyID    string                      `gorm:"size:36;not null;index" json:"companyId"`
	AssignedToID string                      `gorm:"size:36;not null;index" json:"assignedToId"`
	AssignedByID string                      `gorm:"size:36;not null" json:"assignedById"`
	StartDate    time.Time                   `gorm:"not null" json:"startDate"`
	EndDate      time.Time                   `gorm:"not null" json:"endDate"`
	Priority     Priority                    `gorm:"size:16;not null;default:medium" json:"priority"`
	Status       TaskStatus                  `gorm:"size:16;not null;default:pending;index" json:"status"`
	Progress     int                         `gorm:"not null;default:0" json:"progress"` // 0-100
	Tags         datatypes.JSONSlice[string] `json:"tags"`
	Days         datatypes.JSONType[[]Day]   `json:"days"` // owned, written with the row

	// Relationships
	Company    *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	AssignedTo *User    `gorm:"foreignKey:AssignedToID" json:"assignedTo,omitempty"`
	AssignedBy *User    `gorm:"foreignKey:AssignedByID" json:"assignedBy,omitempty"`
}

// Day groups the sub-tasks logged for one calendar date. It has no identity
// of its own beyond that date.
type Day struct {
	Date     time.Time `json:"date"`
	SubTasks []SubTask `json:"subTasks"`
}

type SubTask struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	HoursSpent  float64    `json:"hoursSpent"`
	Remarks     string     `json:"remarks"`
	Status      TaskStatus `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// DateKey truncates t to its UTC calendar day.
func DateKey(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
