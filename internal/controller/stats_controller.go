package controller

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"corretor_backend/internal/model"
	"corretor_backend/pkg/apperror"
	"corretor_backend/pkg/database"
)

// DashboardStats is the summary shown on the panel home.
type DashboardStats struct {
	LeadsByStage      map[string]int64 `json:"leads_by_stage"`
	PropertiesByState []CountRow       `json:"properties_by_status"`
	InactiveHotLeads  int              `json:"inactive_hot_leads"`
	DailyLeads        []DailyStat      `json:"daily_leads"`
}

type DailyStat struct {
	Date     string `json:"date"`
	NewLeads int64  `json:"new_leads"`
}

type CountRow struct {
	Name  string `json:"name"`
	Total int64  `json:"total"`
}

type TrackEventInput struct {
	EventType  string                 `json:"event_type" validate:"required,max=50"`
	PropertyID *uint                  `json:"property_id"`
	LeadID     *uint                  `json:"lead_id"`
	Source     string                 `json:"source" validate:"max=100"`
	Medium     string                 `json:"medium" validate:"max=100"`
	Campaign   string                 `json:"campaign" validate:"max=255"`
	URL        string                 `json:"url"`
	Referrer   string                 `json:"referrer"`
	Metadata   map[string]interface{} `json:"metadata"`
}

type CampaignInput struct {
	Name       string     `json:"name" validate:"required,max=255"`
	Source     string     `json:"source" validate:"required,max=100"`
	Medium     string     `json:"medium" validate:"max=100"`
	CampaignID string     `json:"campaign_id" validate:"required,max=255"`
	Budget     int64      `json:"budget" validate:"min=0"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	Active     *bool      `json:"active"`
	Notes      string     `json:"notes"`
}

// GetDashboardStats collects pipeline and catalogue counters plus new leads
// for each of the last 7 days.
func GetDashboardStats(c *fiber.Ctx) error {
	db := database.GetDB()
	ctx := c.UserContext()

	var stats DashboardStats

	byStage, err := pipeline().StageCounts(ctx)
	if err != nil {
		return respondError(c, err)
	}
	stats.LeadsByStage = byStage

	stats.PropertiesByState = []CountRow{}
	if err := db.Model(&model.Property{}).
		Select("status AS name, COUNT(*) AS total").
		Group("status").Order("status").
		Scan(&stats.PropertiesByState).Error; err != nil {
		return respondError(c, apperror.Internal("Could not count properties", err))
	}

	inactive, err := pipeline().InactiveHotLeads(ctx)
	if err != nil {
		return respondError(c, err)
	}
	stats.InactiveHotLeads = len(inactive)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for i := 6; i >= 0; i-- {
		start := today.AddDate(0, 0, -i)
		stat := DailyStat{Date: start.Format("2006-01-02")}
		db.Model(&model.Lead{}).
			Where("created_at >= ? AND created_at < ?", start, start.AddDate(0, 0, 1)).
			Count(&stat.NewLeads)
		stats.DailyLeads = append(stats.DailyLeads, stat)
	}

	return c.JSON(stats)
}

// TrackEvent records a visitor event from the public site.
func TrackEvent(c *fiber.Ctx) error {
	input := new(TrackEventInput)
	if handled, err := parseAndValidate(c, input); handled {
		return err
	}

	event := model.AnalyticsEvent{
		EventType:  strings.TrimSpace(input.EventType),
		PropertyID: input.PropertyID,
		LeadID:     input.LeadID,
		Source:     input.Source,
		Medium:     input.Medium,
		Campaign:   input.Campaign,
		URL:        input.URL,
		Referrer:   input.Referrer,
	}
	if event.Referrer == "" {
		event.Referrer = c.Get(fiber.HeaderReferer)
	}
	if input.Metadata != nil {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "metadata inválido",
			})
		}
		event.Metadata = datatypes.JSON(raw)
	}

	if err := database.GetDB().Create(&event).Error; err != nil {
		return respondError(c, apperror.Internal("Could not record event", err))
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": event.ID})
}

// GetAnalyticsMetrics totals events by type and by source. from and to are
// optional YYYY-MM-DD dates, to being inclusive.
func GetAnalyticsMetrics(c *fiber.Ctx) error {
	var start, end *time.Time
	if from := c.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Data inicial inválida",
			})
		}
		start = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Data final inválida",
			})
		}
		t = t.AddDate(0, 0, 1)
		end = &t
	}

	query := func() *gorm.DB {
		q := database.GetDB().Model(&model.AnalyticsEvent{})
		if start != nil {
			q = q.Where("created_at >= ?", *start)
		}
		if end != nil {
			q = q.Where("created_at < ?", *end)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return respondError(c, apperror.Internal("Could not count events", err))
	}

	byType := []CountRow{}
	if err := query().
		Select("event_type AS name, COUNT(*) AS total").
		Group("event_type").Order("total desc").
		Scan(&byType).Error; err != nil {
		return respondError(c, apperror.Internal("Could not count events", err))
	}

	bySource := []CountRow{}
	if err := query().
		Select("source AS name, COUNT(*) AS total").
		Where("source <> ''").
		Group("source").Order("total desc").
		Scan(&bySource).Error; err != nil {
		return respondError(c, apperror.Internal("Could not count events", err))
	}

	return c.JSON(fiber.Map{
		"total":     total,
		"by_type":   byType,
		"by_source": bySource,
	})
}

func ListCampaigns(c *fiber.Ctx) error {
	campaigns := []model.CampaignSource{}
	if err := database.GetDB().Order("created_at desc").Find(&campaigns).Error; err != nil {
		return respondError(c, apperror.Internal("Could not fetch campaigns", err))
	}
	return c.JSON(campaigns)
}

// CreateCampaign upserts on campaign_id so re-posting a campaign updates it
// without touching its counters.
func CreateCampaign(c *fiber.Ctx) error {
	input := new(CampaignInput)
	if handled, err := parseAndValidate(c, input); handled {
		return err
	}

	campaign := model.CampaignSource{
		Name:       strings.TrimSpace(input.Name),
		Source:     input.Source,
		Medium:     input.Medium,
		CampaignID: input.CampaignID,
		Budget:     input.Budget,
		StartDate:  input.StartDate,
		EndDate:    input.EndDate,
		Active:     true,
		Notes:      input.Notes,
	}
	if input.Active != nil {
		campaign.Active = *input.Active
	}

	if err := database.GetDB().Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "campaign_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "source", "medium", "budget", "start_date", "end_date", "active", "notes", "updated_at",
		}),
	}).Create(&campaign).Error; err != nil {
		return respondError(c, apperror.Internal("Could not save campaign", err))
	}

	var saved model.CampaignSource
	if err := database.GetDB().Where("campaign_id = ?", campaign.CampaignID).First(&saved).Error; err != nil {
		return respondError(c, apperror.Internal("Could not fetch campaign", err))
	}
	return c.Status(fiber.StatusCreated).JSON(saved)
}
