// pkg/cron/lead_metrics.go
package cron

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"corretor_backend/internal/service"
	"corretor_backend/pkg/metrics"
)

// InitLeadMetricsCron refreshes the pipeline gauges on the cron schedule and once right
// away. The returned scheduler is already started.
func InitLeadMetricsCron(db *gorm.DB, spec string) (*cron.Cron, error) {
	c := cron.New()

	if _, err := c.AddFunc(spec, func() {
		RefreshLeadMetrics(context.Background(), service.NewPipeline(db))
	}); err != nil {
		return nil, err
	}

	RefreshLeadMetrics(context.Background(), service.NewPipeline(db))
	c.Start()
	return c, nil
}

// RefreshLeadMetrics recomputes leads per stage and inactive hot leads per
// urgency band.
func RefreshLeadMetrics(ctx context.Context, p *service.Pipeline) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	counts, err := p.StageCounts(ctx)
	if err != nil {
		log.Printf("[CRON] could not count leads by stage: %v", err)
		return
	}
	metrics.SetLeadsByStage(counts)

	inactive, err := p.InactiveHotLeads(ctx)
	if err != nil {
		log.Printf("[CRON] could not list inactive hot leads: %v", err)
		return
	}

	bands := map[string]int{"urgente": 0, "atencao": 0, "monitorar": 0}
	for _, lead := range inactive {
		bands[lead.Urgency]++
	}
	metrics.SetInactiveHotLeads(bands)

	log.Printf("[CRON] lead metrics refreshed: %d inactive hot leads", len(inactive))
}
