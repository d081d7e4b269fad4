package models

type User struct {
	BaseModel

	Name         string  `gorm:"not null" json:"name"`
	Email        string  `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string  `gorm:"not null" json:"-"`
	Role         Role    `gorm:"size:16;not null;index" json:"role"`
	CompanyID    *string `gorm:"size:36;index" json:"companyId"` // nil for admins
	IsActive     bool    `gorm:"not null" json:"isActive"`

	// Relationships
	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

func (u User) BelongsTo(companyID string) bool {
	return u.CompanyID != nil && *u.CompanyID == companyID
}
