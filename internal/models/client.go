package models

import "time"

// Client is a customer company contact. It owns its quotes.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Name     string `gorm:"size:255;not null" json:"name"`
	Company  string `gorm:"size:255;not null;index" json:"company"`
	Email    string `gorm:"size:255;not null" json:"email"`
	Phone    string `gorm:"size:50" json:"phone,omitempty"`
	Position string `gorm:"size:100" json:"position,omitempty"`

	// Relations
	Quotes []Quote `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"quotes,omitempty"`
}
