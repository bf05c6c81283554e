package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"corretor_backend/internal/model"
	"corretor_backend/pkg/database"
	"corretor_backend/pkg/metrics"
)

const (
	BridgeSource = "n8n"

	DefaultHistoryLimit     = 50
	MaxHistoryLimit         = 500
	DefaultWebhookLogsLimit = 100
	MaxWebhookLogsLimit     = 500

	CodeDuplicateMessage = "duplicate_message"
	CodeInvalidPayload   = "invalid_payload"

	errLeadNotFound = "Lead não encontrado"
	errInvalidPhone = "Telefone inválido"
)

// brt is the fixed offset used to stamp qualification notes.
var brt = time.FixedZone("BRT", -3*60*60)

// Response is the envelope every bridge call answers with. Failures are
// reported in it instead of as errors.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func failure(msg string) Response {
	return Response{Success: false, Error: msg}
}

var succeeded = Response{Success: true}

type IngestMessageInput struct {
	Phone     string                 `json:"phone" validate:"required,max=20"`
	MessageID string                 `json:"messageId" validate:"required,max=255"`
	Content   string                 `json:"content" validate:"required"`
	Type      model.MessageDirection `json:"type" validate:"required,oneof=incoming outgoing"`
	Timestamp *time.Time             `json:"timestamp"`
}

type IngestMessageResponse struct {
	Response
	ID uint `json:"id,omitempty"`
}

type SaveLeadInput struct {
	Name             string `json:"name" validate:"required,max=255"`
	Phone            string `json:"phone" validate:"required,max=20"`
	Email            string `json:"email" validate:"omitempty,email"`
	Message          string `json:"message"`
	PropertyInterest string `json:"propertyInterest"`
	BudgetRange      string `json:"budgetRange"`
}

type SaveLeadResponse struct {
	Response
	Lead    *model.Lead `json:"lead,omitempty"`
	Created bool        `json:"created"`
}

type AIContextInput struct {
	SessionID string       `json:"sessionId" validate:"required,max=255"`
	Phone     string       `json:"phone" validate:"required,max=20"`
	Message   string       `json:"message" validate:"required"`
	Role      model.AIRole `json:"role" validate:"required,oneof=user assistant system"`
}

type AIContextResponse struct {
	Response
	ID uint `json:"id,omitempty"`
}

type HistoryResponse struct {
	Response
	History []model.AIContext `json:"history"`
}

type ClientInterestInput struct {
	ClientID               uint                  `json:"clientId" validate:"required"`
	PropertyType           string                `json:"propertyType" validate:"max=50"`
	InterestType           model.TransactionType `json:"interestType" validate:"omitempty,oneof=venda locacao ambos"`
	BudgetMin              *int64                `json:"budgetMin" validate:"omitempty,min=0"`
	BudgetMax              *int64                `json:"budgetMax" validate:"omitempty,min=0"`
	PreferredNeighborhoods string                `json:"preferredNeighborhoods"`
	Notes                  string                `json:"notes"`
}

type ClientInterestResponse struct {
	Response
	Interest *model.ClientInterest `json:"interest,omitempty"`
}

type MatchInput struct {
	Phone        string                `json:"phone" validate:"required,max=20"`
	PropertyType string                `json:"propertyType"`
	Transaction  model.TransactionType `json:"transactionType" validate:"omitempty,oneof=venda locacao ambos"`
	Neighborhood string                `json:"neighborhood"`
	BudgetMin    *int64                `json:"budgetMin" validate:"omitempty,min=0"`
	BudgetMax    *int64                `json:"budgetMax" validate:"omitempty,min=0"`
	Limit        int                   `json:"limit" validate:"omitempty,min=1"`
}

type MatchedLead struct {
	ID            uint                `json:"id"`
	Name          string              `json:"name"`
	Phone         string              `json:"phone"`
	Qualification model.Qualification `json:"qualification"`
}

type MatchResponse struct {
	Response
	Lead       *MatchedLead      `json:"lead,omitempty"`
	Properties []PropertySummary `json:"properties"`
}

type QualificationInput struct {
	Phone         string              `json:"phone" validate:"required,max=20"`
	Qualification model.Qualification `json:"qualification" validate:"omitempty,oneof=quente morno frio nao_qualificado"`
	BuyerProfile  model.BuyerProfile  `json:"buyerProfile" validate:"omitempty,oneof=investidor primeira_casa upgrade curioso indeciso"`
	UrgencyLevel  model.Level         `json:"urgencyLevel" validate:"omitempty,oneof=baixa media alta urgente"`
	Notes         string              `json:"notes"`
}

type QualificationResponse struct {
	Response
	LeadID uint `json:"leadId,omitempty"`
}

type WebhookLogsResponse struct {
	Response
	Logs []model.WebhookLog `json:"logs"`
}

// Bridge exposes the operations the WhatsApp automation engine calls. Every
// mutating call leaves a WebhookLog row behind.
type Bridge struct {
	db      *gorm.DB
	matcher *Matcher
	now     func() time.Time
}

func NewBridge(db *gorm.DB, matcher *Matcher) *Bridge {
	return &Bridge{db: db, matcher: matcher, now: time.Now}
}

// IngestMessage stores a raw WhatsApp message. A repeated messageId is
// reported with CodeDuplicateMessage and nothing is written.
func (b *Bridge) IngestMessage(ctx context.Context, in IngestMessageInput) IngestMessageResponse {
	msg := model.MessageBuffer{
		Phone:     NormalizePhone(in.Phone),
		MessageID: in.MessageID,
		Content:   in.Content,
		Type:      in.Type,
		Timestamp: b.now().UTC(),
	}
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		msg.Timestamp = in.Timestamp.UTC()
	}

	if err := b.db.WithContext(ctx).Create(&msg).Error; err != nil {
		if database.IsUniqueViolation(err) {
			metrics.RecordDuplicateMessage()
			resp := IngestMessageResponse{Response: Response{
				Error: fmt.Sprintf("Mensagem %s já registrada", in.MessageID),
				Code:  CodeDuplicateMessage,
			}}
			b.audit(ctx, "message_duplicate", in, resp, resp.Error)
			return resp
		}
		resp := IngestMessageResponse{Response: failure("Erro ao salvar mensagem")}
		b.audit(ctx, "message_error", in, resp, err.Error())
		return resp
	}

	resp := IngestMessageResponse{Response: succeeded, ID: msg.ID}
	b.audit(ctx, "message_received", in, resp, "")
	return resp
}

// MarkMessageProcessed flags a buffered message as consumed by the engine.
func (b *Bridge) MarkMessageProcessed(ctx context.Context, messageID string) Response {
	res := b.db.WithContext(ctx).Model(&model.MessageBuffer{}).
		Where("message_id = ?", messageID).
		Update("processed", true)
	payload := map[string]string{"messageId": messageID}
	if res.Error != nil {
		resp := failure("Erro ao atualizar mensagem")
		b.audit(ctx, "message_processed_error", payload, resp, res.Error.Error())
		return resp
	}
	if res.RowsAffected == 0 {
		resp := failure("Mensagem não encontrada")
		b.audit(ctx, "message_processed_error", payload, resp, resp.Error)
		return resp
	}
	b.audit(ctx, "message_processed", payload, succeeded, "")
	return succeeded
}

// PendingMessages lists unprocessed messages for a phone, oldest first.
func (b *Bridge) PendingMessages(ctx context.Context, phone string) ([]model.MessageBuffer, error) {
	var messages []model.MessageBuffer
	err := wherePhone(b.db.WithContext(ctx), NormalizePhone(phone)).
		Where("processed = ?", false).
		Order("timestamp ASC").Order("id ASC").
		Find(&messages).Error
	return messages, err
}

// SaveLead creates a lead for an unknown phone or merges into the existing
// one. The lookup and the write share a transaction holding a row lock.
func (b *Bridge) SaveLead(ctx context.Context, in SaveLeadInput) SaveLeadResponse {
	phone := NormalizePhone(in.Phone)
	if phone == "" {
		resp := SaveLeadResponse{Response: failure(errInvalidPhone)}
		b.audit(ctx, "lead_save_error", in, resp, resp.Error)
		return resp
	}
	var lead model.Lead
	created := false

	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, found, err := findLeadByPhone(tx, phone, true)
		if err != nil {
			return err
		}

		if found {
			lead = existing
			updates := map[string]interface{}{
				"name":   in.Name,
				"source": model.SourceWhatsApp,
			}
			if in.Email != "" {
				updates["email"] = in.Email
			}
			if msg := strings.TrimSpace(in.Message); msg != "" {
				updates["notes"] = appendNote(lead.Notes, "[WhatsApp] "+msg)
			}
			if err := tx.Model(&lead).Updates(updates).Error; err != nil {
				return err
			}
			return tx.First(&lead, lead.ID).Error
		}

		notes := strings.TrimSpace(in.Message)
		if budget := strings.TrimSpace(in.BudgetRange); budget != "" {
			if notes == "" {
				notes = "Orçamento: " + budget
			} else {
				notes = fmt.Sprintf("Orçamento: %s\n%s", budget, notes)
			}
		}
		lead = model.Lead{
			Name:          in.Name,
			Phone:         phone,
			WhatsApp:      phone,
			Email:         in.Email,
			Source:        model.SourceWhatsApp,
			Stage:         model.StageNovo,
			ClientType:    model.ClientComprador,
			Qualification: model.QualificationNaoQualificado,
			Notes:         notes,
		}
		if in.PropertyInterest != "" {
			lead.PreferredPropertyTypes = []string{in.PropertyInterest}
		}
		created = true
		return tx.Create(&lead).Error
	})
	if err != nil {
		resp := SaveLeadResponse{Response: failure("Erro ao salvar lead")}
		b.audit(ctx, "lead_save_error", in, resp, err.Error())
		return resp
	}

	if created {
		metrics.RecordLeadCreated(string(model.SourceWhatsApp))
	}
	resp := SaveLeadResponse{Response: succeeded, Lead: &lead, Created: created}
	b.audit(ctx, "lead_saved", in, map[string]interface{}{"success": true, "leadId": lead.ID, "created": created}, "")
	return resp
}

func (b *Bridge) SaveAIContext(ctx context.Context, in AIContextInput) AIContextResponse {
	entry := model.AIContext{
		SessionID: in.SessionID,
		Phone:     NormalizePhone(in.Phone),
		Message:   in.Message,
		Role:      in.Role,
	}
	if err := b.db.WithContext(ctx).Create(&entry).Error; err != nil {
		resp := AIContextResponse{Response: failure("Erro ao salvar contexto")}
		b.audit(ctx, "ai_context_error", in, resp, err.Error())
		return resp
	}
	resp := AIContextResponse{Response: succeeded, ID: entry.ID}
	b.audit(ctx, "ai_context_saved", in, resp, "")
	return resp
}

// History returns transcript entries, newest first. A session id takes
// precedence over the phone.
func (b *Bridge) History(ctx context.Context, sessionID, phone string, limit int) HistoryResponse {
	if sessionID == "" && NormalizePhone(phone) == "" {
		return HistoryResponse{Response: succeeded, History: []model.AIContext{}}
	}
	limit = clampLimit(limit, DefaultHistoryLimit, MaxHistoryLimit)

	q := b.db.WithContext(ctx).Model(&model.AIContext{})
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	} else {
		q = wherePhone(q, NormalizePhone(phone))
	}

	history := []model.AIContext{}
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&history).Error; err != nil {
		log.Printf("[BRIDGE] history lookup failed: %v", err)
		return HistoryResponse{Response: failure("Erro ao buscar histórico"), History: []model.AIContext{}}
	}
	return HistoryResponse{Response: succeeded, History: history}
}

func (b *Bridge) SaveClientInterest(ctx context.Context, in ClientInterestInput) ClientInterestResponse {
	if in.BudgetMin != nil && in.BudgetMax != nil && *in.BudgetMin > *in.BudgetMax {
		resp := ClientInterestResponse{Response: failure("budgetMin maior que budgetMax")}
		b.audit(ctx, "client_interest_error", in, resp, resp.Error)
		return resp
	}

	var count int64
	if err := b.db.WithContext(ctx).Model(&model.Lead{}).Where("id = ?", in.ClientID).Count(&count).Error; err != nil || count == 0 {
		resp := ClientInterestResponse{Response: failure(errLeadNotFound)}
		msg := resp.Error
		if err != nil {
			msg = err.Error()
		}
		b.audit(ctx, "client_interest_error", in, resp, msg)
		return resp
	}

	interest := model.ClientInterest{
		ClientID:               in.ClientID,
		PropertyType:           in.PropertyType,
		InterestType:           in.InterestType,
		BudgetMin:              in.BudgetMin,
		BudgetMax:              in.BudgetMax,
		PreferredNeighborhoods: in.PreferredNeighborhoods,
		Notes:                  in.Notes,
	}
	if err := b.db.WithContext(ctx).Create(&interest).Error; err != nil {
		resp := ClientInterestResponse{Response: failure("Erro ao salvar interesse")}
		b.audit(ctx, "client_interest_error", in, resp, err.Error())
		return resp
	}
	resp := ClientInterestResponse{Response: succeeded, Interest: &interest}
	b.audit(ctx, "client_interest_saved", in, resp, "")
	return resp
}

// MatchProperties finds the lead by phone and returns the properties that
// fit its preferences, overridden by any criteria in the request.
func (b *Bridge) MatchProperties(ctx context.Context, in MatchInput) MatchResponse {
	phone := NormalizePhone(in.Phone)
	if phone == "" {
		resp := MatchResponse{Response: failure(errInvalidPhone), Properties: []PropertySummary{}}
		b.audit(ctx, "property_match_failed", in, resp, resp.Error)
		return resp
	}

	lead, found, err := findLeadByPhone(b.db.WithContext(ctx), phone, false)
	if err != nil {
		resp := MatchResponse{Response: failure("Erro ao buscar imóveis"), Properties: []PropertySummary{}}
		b.audit(ctx, "property_match_error", in, resp, err.Error())
		return resp
	}
	if !found {
		resp := MatchResponse{Response: failure(errLeadNotFound), Properties: []PropertySummary{}}
		b.audit(ctx, "property_match_failed", in, resp, "Lead não encontrado com o telefone fornecido")
		return resp
	}

	filter := Resolve(&lead, Criteria{
		TransactionType: in.Transaction,
		PropertyType:    in.PropertyType,
		Neighborhood:    in.Neighborhood,
		MinPrice:        in.BudgetMin,
		MaxPrice:        in.BudgetMax,
		Limit:           in.Limit,
	})
	properties, err := b.matcher.Match(ctx, filter)
	if err != nil {
		resp := MatchResponse{Response: failure("Erro ao buscar imóveis"), Properties: []PropertySummary{}}
		b.audit(ctx, "property_match_error", in, resp, err.Error())
		return resp
	}

	resp := MatchResponse{
		Response: succeeded,
		Lead: &MatchedLead{
			ID:            lead.ID,
			Name:          lead.Name,
			Phone:         lead.Phone,
			Qualification: lead.Qualification,
		},
		Properties: b.matcher.Summarize(properties),
	}
	b.audit(ctx, "properties_matched", in, map[string]interface{}{
		"success":         true,
		"leadId":          lead.ID,
		"propertiesCount": len(resp.Properties),
	}, "")
	return resp
}

// UpdateQualification applies the engine's assessment to the lead with
// the given phone. Notes are appended with a timestamp, never replaced.
func (b *Bridge) UpdateQualification(ctx context.Context, in QualificationInput) QualificationResponse {
	phone := NormalizePhone(in.Phone)
	if phone == "" {
		resp := QualificationResponse{Response: failure(errInvalidPhone)}
		b.audit(ctx, "qualification_failed", in, resp, resp.Error)
		return resp
	}
	var lead model.Lead
	found := false

	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		lead, found, err = findLeadByPhone(tx, phone, true)
		if err != nil || !found {
			return err
		}

		updates := map[string]interface{}{}
		if in.Qualification != "" {
			updates["qualification"] = in.Qualification
		}
		if in.BuyerProfile != "" {
			updates["buyer_profile"] = in.BuyerProfile
		}
		if in.UrgencyLevel != "" {
			updates["urgency_level"] = in.UrgencyLevel
		}
		if notes := strings.TrimSpace(in.Notes); notes != "" {
			stamp := b.now().In(brt).Format("02/01/2006 15:04:05")
			updates["notes"] = appendNote(lead.Notes, fmt.Sprintf("[IA - %s] %s", stamp, notes))
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&lead).Updates(updates).Error
	})
	if err != nil {
		resp := QualificationResponse{Response: failure("Erro ao atualizar qualificação")}
		b.audit(ctx, "qualification_error", in, resp, err.Error())
		return resp
	}
	if !found {
		resp := QualificationResponse{Response: failure(errLeadNotFound)}
		b.audit(ctx, "qualification_failed", in, resp, "Lead não encontrado com o telefone fornecido")
		return resp
	}

	resp := QualificationResponse{Response: succeeded, LeadID: lead.ID}
	b.audit(ctx, "lead_qualified", in, resp, "")
	return resp
}

// WebhookLogs returns the newest audit rows.
func (b *Bridge) WebhookLogs(ctx context.Context, limit int) WebhookLogsResponse {
	limit = clampLimit(limit, DefaultWebhookLogsLimit, MaxWebhookLogsLimit)
	logs := []model.WebhookLog{}
	if err := b.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		log.Printf("[BRIDGE] webhook log lookup failed: %v", err)
		return WebhookLogsResponse{Response: failure("Erro ao buscar logs"), Logs: []model.WebhookLog{}}
	}
	return WebhookLogsResponse{Response: succeeded, Logs: logs}
}

// RecordRejected audits a request refused before reaching the bridge, such
// as an unparseable body.
func (b *Bridge) RecordRejected(ctx context.Context, event string, payload interface{}, reason string) {
	b.audit(ctx, event, payload, Response{Error: reason, Code: CodeInvalidPayload}, reason)
}

// audit appends a WebhookLog row. An empty errMsg marks success. Failing to
// write the log never fails the call itself.
func (b *Bridge) audit(ctx context.Context, event string, payload, response interface{}, errMsg string) {
	status := model.WebhookSuccess
	if errMsg != "" {
		status = model.WebhookError
	}

	entry := model.WebhookLog{
		Source:       BridgeSource,
		Event:        event,
		Payload:      toJSON(payload),
		Response:     toJSON(response),
		Status:       status,
		ErrorMessage: errMsg,
	}
	if err := b.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("[BRIDGE] could not write webhook log for %s: %v", event, err)
	}
	metrics.RecordBridgeCall(event, string(status))
	if status == model.WebhookError {
		log.Printf("[BRIDGE] %s failed: %s", event, errMsg)
	}
}

func toJSON(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, isString := v.(string); isString {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func appendNote(existing, note string) string {
	if strings.TrimSpace(existing) == "" {
		return note
	}
	return existing + "\n\n" + note
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
