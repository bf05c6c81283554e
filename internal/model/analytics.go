package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnalyticsEvent is a tracked visitor event (page view, whatsapp click,
// form submit...).
type AnalyticsEvent struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	EventType  string         `json:"event_type" gorm:"size:50;not null;index"`
	PropertyID *uint          `json:"property_id" gorm:"index"`
	LeadID     *uint          `json:"lead_id"`
	Source     string         `json:"source" gorm:"size:100;index"`
	Medium     string         `json:"medium" gorm:"size:100"`
	Campaign   string         `json:"campaign" gorm:"size:255"`
	URL        string         `json:"url" gorm:"type:text"`
	Referrer   string         `json:"referrer" gorm:"type:text"`
	Metadata   datatypes.JSON `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at" gorm:"index"`
}

// CampaignSource tracks paid or organic campaigns and their counters.
type CampaignSource struct {
	gorm.Model
	Name        string     `json:"name" gorm:"not null"`
	Source      string     `json:"source" gorm:"size:100;not null"`
	Medium      string     `json:"medium" gorm:"size:100"`
	CampaignID  string     `json:"campaign_id" gorm:"size:255;uniqueIndex"`
	Budget      int64      `json:"budget"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Clicks      int64      `json:"clicks" gorm:"default:0"`
	Impressions int64      `json:"impressions" gorm:"default:0"`
	Conversions int64      `json:"conversions" gorm:"default:0"`
	Active      bool       `json:"active"`
	Notes       string     `json:"notes" gorm:"type:text"`
}

// conversionEvents count as a campaign conversion instead of a click.
var conversionEvents = map[string]bool{
	"lead_created":     true,
	"form_submit":      true,
	"whatsapp_contact": true,
}

// AfterCreate bumps the counters of the campaign the event belongs to.
func (e *AnalyticsEvent) AfterCreate(tx *gorm.DB) error {
	if e.Campaign == "" {
		return nil
	}

	column := "clicks"
	if conversionEvents[e.EventType] {
		column = "conversions"
	}

	return tx.Session(&gorm.Session{NewDB: true}).
		Model(&CampaignSource{}).
		Where("campaign_id = ?", e.Campaign).
		Update(column, gorm.Expr(column+" + ?", 1)).Error
}
