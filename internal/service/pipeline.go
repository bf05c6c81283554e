package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"corretor_backend/internal/model"
	"corretor_backend/pkg/apperror"
	"corretor_backend/pkg/metrics"
)

// FollowUpThresholdDays is the number of full days without contact after
// which a hot lead shows up in the follow-up report.
const FollowUpThresholdDays = 3

// transitions lists the normal moves out of every open stage. Anything else
// needs an admin override.
var transitions = map[model.Stage][]model.Stage{
	model.StageNovo: {
		model.StageContatoInicial,
	},
	model.StageContatoInicial: {
		model.StageNovo, model.StageQualificado,
	},
	model.StageQualificado: {
		model.StageContatoInicial, model.StageVisitaAgendada,
	},
	model.StageVisitaAgendada: {
		model.StageQualificado, model.StageVisitaRealizada,
	},
	model.StageVisitaRealizada: {
		model.StageVisitaAgendada, model.StageProposta,
	},
	model.StageProposta: {
		model.StageVisitaRealizada, model.StageNegociacao, model.StageFechadoGanho,
	},
	model.StageNegociacao: {
		model.StageProposta, model.StageFechadoGanho,
	},
}

// AllowedTransitions returns the stages a lead in from may move to without
// an override. Terminal stages have none.
func AllowedTransitions(from model.Stage) []model.Stage {
	if from.Terminal() || !from.Valid() {
		return nil
	}
	allowed := append([]model.Stage{}, transitions[from]...)
	return append(allowed, model.StageFechadoPerdido, model.StageSemInteresse)
}

func CanTransition(from, to model.Stage) bool {
	for _, s := range AllowedTransitions(from) {
		if s == to {
			return true
		}
	}
	return false
}

type Pipeline struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPipeline(db *gorm.DB) *Pipeline {
	return &Pipeline{db: db, now: time.Now}
}

// StageChange asks to move a lead to another stage. Force lets an admin
// jump stages or reopen a closed lead.
type StageChange struct {
	LeadID       uint
	To           model.Stage
	Force        bool
	Reason       string
	ActorID      *uint
	ActorIsAdmin bool
}

type StageChangeResult struct {
	Lead    *model.Lead `json:"lead"`
	From    model.Stage `json:"from"`
	To      model.Stage `json:"to"`
	Forced  bool        `json:"forced"`
	Changed bool        `json:"changed"`
}

func (p *Pipeline) ChangeStage(ctx context.Context, req StageChange) (*StageChangeResult, error) {
	var result *StageChangeResult
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = p.ChangeStageTx(tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	p.ReportStageChange(req, result)
	return result, nil
}

// ChangeStageTx applies the move inside the caller's transaction, so other
// writes to the lead commit or roll back together with it. The caller
// reports the change with ReportStageChange once the transaction commits.
func (p *Pipeline) ChangeStageTx(tx *gorm.DB, req StageChange) (*StageChangeResult, error) {
	if !req.To.Valid() {
		return nil, apperror.New(apperror.CodeValidation, fmt.Sprintf("Estágio inválido: %s", req.To))
	}

	result := &StageChangeResult{To: req.To}
	var lead model.Lead
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&lead, req.LeadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Lead não encontrado")
		}
		return nil, apperror.Internal("Could not load lead", err)
	}

	result.From = lead.Stage
	result.Lead = &lead
	if lead.Stage == req.To {
		return result, nil
	}

	if !CanTransition(lead.Stage, req.To) {
		if !req.Force {
			return nil, &apperror.AppError{
				Code:    apperror.CodeInvalidTransition,
				Message: fmt.Sprintf("Transição de %s para %s não permitida", lead.Stage, req.To),
				Details: map[string]interface{}{"from": lead.Stage, "to": req.To, "allowed": AllowedTransitions(lead.Stage)},
			}
		}
		if !req.ActorIsAdmin {
			return nil, apperror.Forbidden("Apenas administradores podem forçar a mudança de estágio")
		}
		result.Forced = true
	}

	updates := map[string]interface{}{"stage": req.To}
	if req.To == model.StageFechadoGanho {
		now := p.now().UTC()
		updates["converted_at"] = &now
	}
	if err := tx.Model(&lead).Updates(updates).Error; err != nil {
		return nil, apperror.Internal("Could not update lead stage", err)
	}

	meta, _ := json.Marshal(map[string]interface{}{
		"from":   result.From,
		"to":     req.To,
		"forced": result.Forced,
		"reason": req.Reason,
	})
	interaction := model.Interaction{
		LeadID:      lead.ID,
		UserID:      req.ActorID,
		Type:        model.InteractionStatusChange,
		Subject:     fmt.Sprintf("Estágio: %s → %s", result.From, req.To),
		Description: req.Reason,
		Metadata:    datatypes.JSON(meta),
	}
	if err := tx.Create(&interaction).Error; err != nil {
		return nil, apperror.Internal("Could not record stage change", err)
	}

	result.Changed = true
	return result, nil
}

func (p *Pipeline) ReportStageChange(req StageChange, result *StageChangeResult) {
	if result == nil || !result.Changed {
		return
	}
	if result.Forced {
		log.Printf("[PIPELINE][OVERRIDE] lead %d forced %s -> %s by user %v", req.LeadID, result.From, req.To, derefUint(req.ActorID))
	} else {
		log.Printf("[PIPELINE] lead %d moved %s -> %s", req.LeadID, result.From, req.To)
	}
	metrics.RecordStageTransition(string(req.To), result.Forced)
}

// InactiveLead is a hot lead overdue for follow-up.
type InactiveLead struct {
	model.Lead
	DaysSinceLastContact int       `json:"days_since_last_contact"`
	LastContactDate      time.Time `json:"last_contact_date"`
	Urgency              string    `json:"urgency"`
}

// UrgencyBand classifies the days without contact for display.
func UrgencyBand(days int) string {
	switch {
	case days >= 7:
		return "urgente"
	case days >= 5:
		return "atencao"
	default:
		return "monitorar"
	}
}

// InactiveHotLeads reports hot leads with no interaction for more than
// FollowUpThresholdDays days, most overdue first. A lead without any
// interaction counts from its creation date.
func (p *Pipeline) InactiveHotLeads(ctx context.Context) ([]InactiveLead, error) {
	db := p.db.WithContext(ctx)

	var leads []model.Lead
	if err := db.Where("qualification = ?", model.QualificationQuente).Find(&leads).Error; err != nil {
		return nil, apperror.Internal("Could not fetch leads", err)
	}
	if len(leads) == 0 {
		return []InactiveLead{}, nil
	}

	ids := make([]uint, len(leads))
	for i, l := range leads {
		ids[i] = l.ID
	}

	var rows []model.Interaction
	if err := db.Select("lead_id", "created_at").Where("lead_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, apperror.Internal("Could not fetch interactions", err)
	}
	lastContact := make(map[uint]time.Time, len(rows))
	for _, r := range rows {
		if r.CreatedAt.After(lastContact[r.LeadID]) {
			lastContact[r.LeadID] = r.CreatedAt
		}
	}

	now := p.now()
	result := make([]InactiveLead, 0)
	for _, lead := range leads {
		last, ok := lastContact[lead.ID]
		if !ok {
			last = lead.CreatedAt
		}
		days := int(now.Sub(last) / (24 * time.Hour))
		if days <= FollowUpThresholdDays {
			continue
		}
		result = append(result, InactiveLead{
			Lead:                 lead,
			DaysSinceLastContact: days,
			LastContactDate:      last,
			Urgency:              UrgencyBand(days),
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].DaysSinceLastContact == result[j].DaysSinceLastContact {
			return result[i].ID < result[j].ID
		}
		return result[i].DaysSinceLastContact > result[j].DaysSinceLastContact
	})
	return result, nil
}

// StageCounts returns the number of leads per stage, every stage present.
func (p *Pipeline) StageCounts(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Stage string
		Total int64
	}
	err := p.db.WithContext(ctx).Model(&model.Lead{}).
		Select("stage, COUNT(*) AS total").
		Group("stage").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(model.Stages))
	for _, s := range model.Stages {
		counts[string(s)] = 0
	}
	for _, r := range rows {
		counts[r.Stage] = r.Total
	}
	return counts, nil
}

func derefUint(v *uint) interface{} {
	if v == nil {
		return "system"
	}
	return *v
}
