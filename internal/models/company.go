package models

type Company struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;size:255;not null" json:"name"`
	Description string `json:"description"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	CreatedByID string `gorm:"size:36;index" json:"createdById"`
	IsActive    bool   `gorm:"not null" json:"isActive"`
	TotalUsers  int    `gorm:"not null;default:0" json:"totalUsers"` // maintained by the user service

	// Relationships
	CreatedBy *User  `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	Users     []User `gorm:"foreignKey:CompanyID" json:"users,omitempty"`
	Tasks     []Task `gorm:"foreignKey:CompanyID" json:"tasks,omitempty"`
}
