package model

import "gorm.io/gorm"

// Review is a client testimonial shown on the public site once approved.
type Review struct {
	gorm.Model
	ClientName   string `json:"client_name" gorm:"not null"`
	ClientRole   string `json:"client_role" gorm:"size:100"`
	ClientPhoto  string `json:"client_photo"`
	Rating       int    `json:"rating" gorm:"not null"`
	Title        string `json:"title" gorm:"size:255"`
	Content      string `json:"content" gorm:"type:text;not null"`
	PropertyID   *uint  `json:"property_id"`
	LeadID       *uint  `json:"lead_id"`
	Approved     bool   `json:"approved" gorm:"index"`
	Featured     bool   `json:"featured"`
	DisplayOrder int    `json:"display_order" gorm:"default:0"`
}
