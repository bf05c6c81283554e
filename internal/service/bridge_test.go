package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"corretor_backend/internal/model"
	"corretor_backend/internal/testutil"
)

func newTestBridge(t *testing.T) (*Bridge, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	return NewBridge(db, NewMatcher(db, "https://example.com")), db
}

func lastWebhookLog(t *testing.T, db *gorm.DB) model.WebhookLog {
	t.Helper()
	var entry model.WebhookLog
	require.NoError(t, db.Order("id DESC").First(&entry).Error)
	return entry
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5561999998888", NormalizePhone("+55 (61) 99999-8888"))
	assert.Equal(t, "", NormalizePhone("n/a"))
}

func TestCanonicalPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+55 (61) 99999-8888", "61999998888"},
		{"5511999998888", "11999998888"},
		{"551133334444", "1133334444"},
		{"61999998888", "61999998888"},
		{"5512345", "5512345"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalPhone(tt.in), "CanonicalPhone(%q)", tt.in)
	}
}

func TestPhoneLookupKeepsAreaCodesApart(t *testing.T) {
	b, db := newTestBridge(t)
	ctx := context.Background()

	saoPaulo := createLead(t, db, model.Lead{Name: "Lead SP", Phone: "5511999998888"})
	brasilia := createLead(t, db, model.Lead{Name: "Lead DF", Phone: "5561999998888"})

	qualified := b.UpdateQualification(ctx, QualificationInput{Phone: "5561999998888", Qualification: model.QualificationQuente})
	require.True(t, qualified.Success, qualified.Error)
	assert.Equal(t, brasilia.ID, qualified.LeadID)

	var sp model.Lead
	require.NoError(t, db.First(&sp, saoPaulo.ID).Error)
	assert.NotEqual(t, model.QualificationQuente, sp.Qualification)

	rio := b.SaveLead(ctx, SaveLeadInput{Name: "Joana RJ", Phone: "+55 21 99999-8888"})
	require.True(t, rio.Success, rio.Error)
	assert.True(t, rio.Created)

	require.NoError(t, db.First(&sp, saoPaulo.ID).Error)
	assert.Equal(t, "Lead SP", sp.Name)

	matched := b.MatchProperties(ctx, MatchInput{Phone: "61 99999-8888"})
	require.True(t, matched.Success, matched.Error)
	assert.Equal(t, brasilia.ID, matched.Lead.ID)

	var count int64
	db.Model(&model.Lead{}).Count(&count)
	assert.Equal(t, int64(3), count)
}

func TestPhoneLookupPrefersExactDigits(t *testing.T) {
	b, db := newTestBridge(t)

	createLead(t, db, model.Lead{Name: "Sem DDI", Phone: "61977776666"})
	exact := createLead(t, db, model.Lead{Name: "Com DDI", Phone: "5561977776666"})

	resp := b.UpdateQualification(context.Background(), QualificationInput{Phone: "5561977776666", Qualification: model.QualificationMorno})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, exact.ID, resp.LeadID)
}

func TestIngestMessageRejectsDuplicates(t *testing.T) {
	b, db := newTestBridge(t)
	ctx := context.Background()
	in := IngestMessageInput{Phone: "+55 61 99999-8888", MessageID: "wamid.1", Content: "Olá", Type: model.MessageIncoming}

	first := b.IngestMessage(ctx, in)
	require.True(t, first.Success, first.Error)
	assert.NotZero(t, first.ID)

	second := b.IngestMessage(ctx, in)
	assert.False(t, second.Success)
	assert.Equal(t, CodeDuplicateMessage, second.Code)

	var count int64
	db.Model(&model.MessageBuffer{}).Count(&count)
	assert.EqualValues(t, 1, count)

	var stored model.MessageBuffer
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, "5561999998888", stored.Phone)

	entry := lastWebhookLog(t, db)
	assert.Equal(t, "message_duplicate", entry.Event)
	assert.Equal(t, model.WebhookError, entry.Status)
}

func TestMarkMessageProcessed(t *testing.T) {
	b, _ := newTestBridge(t)
	ctx := context.Background()
	ts := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.True(t, b.IngestMessage(ctx, IngestMessageInput{
		Phone: "61999998888", MessageID: "m1", Content: "a", Type: model.MessageIncoming, Timestamp: &ts,
	}).Success)

	pending, err := b.PendingMessages(ctx, "61999998888")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Timestamp.Equal(ts))

	assert.True(t, b.MarkMessageProcessed(ctx, "m1").Success)
	assert.False(t, b.MarkMessageProcessed(ctx, "missing").Success)

	pending, err = b.PendingMessages(ctx, "61999998888")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSaveLeadCreatesWhatsAppLead(t *testing.T) {
	b, db := newTestBridge(t)

	resp := b.SaveLead(context.Background(), SaveLeadInput{
		Name:             "João",
		Phone:            "(61) 98888-7777",
		Message:          "Quero uma casa",
		PropertyInterest: "casa",
		BudgetRange:      "1-2 milhões",
	})
	require.True(t, resp.Success, resp.Error)
	assert.True(t, resp.Created)

	var lead model.Lead
	require.NoError(t, db.First(&lead, resp.Lead.ID).Error)
	assert.Equal(t, "61988887777", lead.Phone)
	assert.Equal(t, model.SourceWhatsApp, lead.Source)
	assert.Equal(t, model.StageNovo, lead.Stage)
	assert.Equal(t, model.QualificationNaoQualificado, lead.Qualification)
	assert.Equal(t, model.ClientComprador, lead.ClientType)
	assert.Equal(t, []string{"casa"}, []string(lead.PreferredPropertyTypes))
	assert.Equal(t, "Orçamento: 1-2 milhões\nQuero uma casa", lead.Notes)

	entry := lastWebhookLog(t, db)
	assert.Equal(t, "lead_saved", entry.Event)
	assert.Equal(t, model.WebhookSuccess, entry.Status)
	assert.Equal(t, BridgeSource, entry.Source)
}

func TestSaveLeadBudgetWithoutMessage(t *testing.T) {
	b, db := newTestBridge(t)

	resp := b.SaveLead(context.Background(), SaveLeadInput{Name: "Rita", Phone: "61966665555", BudgetRange: "até 800 mil"})
	require.True(t, resp.Success, resp.Error)

	var lead model.Lead
	require.NoError(t, db.First(&lead, resp.Lead.ID).Error)
	assert.Equal(t, "Orçamento: até 800 mil", lead.Notes)
}

func TestSaveLeadTwiceMergesIntoOneLead(t *testing.T) {
	b, db := newTestBridge(t)
	ctx := context.Background()

	existing := createLead(t, db, model.Lead{
		Name: "Ana", Phone: "61977776666", Email: "ana@example.com", Source: model.SourceSite,
	})

	first := b.SaveLead(ctx, SaveLeadInput{Name: "Ana Paula", Phone: "+55 61 97777-6666", Message: "primeira"})
	require.True(t, first.Success, first.Error)
	assert.False(t, first.Created)

	second := b.SaveLead(ctx, SaveLeadInput{Name: "Ana Paula", Phone: "61977776666", Message: "segunda"})
	require.True(t, second.Success, second.Error)

	var leads []model.Lead
	require.NoError(t, db.Find(&leads).Error)
	require.Len(t, leads, 1)

	lead := leads[0]
	assert.Equal(t, existing.ID, lead.ID)
	assert.Equal(t, "Ana Paula", lead.Name)
	assert.Equal(t, "ana@example.com", lead.Email)
	assert.Equal(t, model.SourceWhatsApp, lead.Source)
	assert.Equal(t, "[WhatsApp] primeira\n\n[WhatsApp] segunda", lead.Notes)
}

func TestAIContextHistory(t *testing.T) {
	b, _ := newTestBridge(t)
	ctx := context.Background()

	for _, msg := range []string{"oi", "olá, posso ajudar?", "quero alugar"} {
		resp := b.SaveAIContext(ctx, AIContextInput{SessionID: "s1", Phone: "61999990000", Message: msg, Role: model.AIRoleUser})
		require.True(t, resp.Success, resp.Error)
	}
	require.True(t, b.SaveAIContext(ctx, AIContextInput{SessionID: "s2", Phone: "61911112222", Message: "x", Role: model.AIRoleUser}).Success)

	bySession := b.History(ctx, "s1", "", 0)
	require.True(t, bySession.Success)
	require.Len(t, bySession.History, 3)
	assert.Equal(t, "quero alugar", bySession.History[0].Message)

	byPhone := b.History(ctx, "", "61999990000", 2)
	assert.Len(t, byPhone.History, 2)

	empty := b.History(ctx, "", "", 0)
	assert.True(t, empty.Success)
	assert.Empty(t, empty.History)
}

func TestSaveClientInterest(t *testing.T) {
	b, db := newTestBridge(t)
	ctx := context.Background()
	lead := createLead(t, db, model.Lead{Phone: "61999990000"})

	resp := b.SaveClientInterest(ctx, ClientInterestInput{
		ClientID: lead.ID, PropertyType: "casa", InterestType: model.TransactionVenda, BudgetMax: int64Ptr(1_000_000_00),
	})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, lead.ID, resp.Interest.ClientID)

	missing := b.SaveClientInterest(ctx, ClientInterestInput{ClientID: 999})
	assert.False(t, missing.Success)
	assert.Equal(t, "Lead não encontrado", missing.Error)

	inverted := b.SaveClientInterest(ctx, ClientInterestInput{ClientID: lead.ID, BudgetMin: int64Ptr(10), BudgetMax: int64Ptr(5)})
	assert.False(t, inverted.Success)
}

func TestMatchPropertiesUnknownPhone(t *testing.T) {
	b, db := newTestBridge(t)

	resp := b.MatchProperties(context.Background(), MatchInput{Phone: "61900000000"})
	assert.False(t, resp.Success)
	assert.Equal(t, "Lead não encontrado", resp.Error)
	assert.NotNil(t, resp.Properties)
	assert.Empty(t, resp.Properties)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"Lead não encontrado","properties":[]}`, string(data))

	entry := lastWebhookLog(t, db)
	assert.Equal(t, "property_match_failed", entry.Event)
	assert.Equal(t, model.WebhookError, entry.Status)
	assert.Contains(t, entry.ErrorMessage, "Lead não encontrado")
}

func TestMatchPropertiesForKnownLead(t *testing.T) {
	b, db := newTestBridge(t)

	lead := createLead(t, db, model.Lead{
		Phone:                  "5561999990000",
		TransactionInterest:    model.TransactionVenda,
		PreferredNeighborhoods: []string{"Lago Sul"},
	})
	for i := 0; i < 4; i++ {
		createProperty(t, db, model.Property{Neighborhood: "Lago Sul", SalePrice: int64Ptr(500_000_000)})
	}
	createProperty(t, db, model.Property{Neighborhood: "Lago Sul", Status: model.PropertyStatusVendido})

	resp := b.MatchProperties(context.Background(), MatchInput{Phone: "61 99999-0000", Limit: 3})
	require.True(t, resp.Success, resp.Error)
	require.NotNil(t, resp.Lead)
	assert.Equal(t, lead.ID, resp.Lead.ID)
	assert.Len(t, resp.Properties, 3)
	for _, p := range resp.Properties {
		assert.True(t, strings.HasPrefix(p.URL, "https://example.com/imovel/"))
		assert.EqualValues(t, 500_000_000, *p.SalePrice)
	}

	entry := lastWebhookLog(t, db)
	assert.Equal(t, "properties_matched", entry.Event)
	assert.Contains(t, entry.Response, `"propertiesCount":3`)
}

func TestUpdateQualification(t *testing.T) {
	b, db := newTestBridge(t)
	b.now = fixedClock(time.Date(2024, 7, 1, 15, 4, 5, 0, time.UTC))
	lead := createLead(t, db, model.Lead{Phone: "61999990000", Notes: "contato inicial"})

	resp := b.UpdateQualification(context.Background(), QualificationInput{
		Phone:         "61999990000",
		Qualification: model.QualificationQuente,
		BuyerProfile:  model.BuyerInvestidor,
		UrgencyLevel:  model.LevelAlta,
		Notes:         "Quer fechar este mês",
	})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, lead.ID, resp.LeadID)

	var stored model.Lead
	require.NoError(t, db.First(&stored, lead.ID).Error)
	assert.Equal(t, model.QualificationQuente, stored.Qualification)
	require.NotNil(t, stored.BuyerProfile)
	assert.Equal(t, model.BuyerInvestidor, *stored.BuyerProfile)
	assert.Equal(t, model.LevelAlta, stored.UrgencyLevel)
	assert.Equal(t, "contato inicial\n\n[IA - 01/07/2024 12:04:05] Quer fechar este mês", stored.Notes)
}

func TestUpdateQualificationUnknownPhone(t *testing.T) {
	b, db := newTestBridge(t)

	resp := b.UpdateQualification(context.Background(), QualificationInput{Phone: "61900000000", Qualification: model.QualificationFrio})
	assert.False(t, resp.Success)
	assert.Equal(t, "Lead não encontrado", resp.Error)
	assert.Equal(t, "qualification_failed", lastWebhookLog(t, db).Event)
}

func TestWebhookLogsNewestFirst(t *testing.T) {
	b, _ := newTestBridge(t)
	ctx := context.Background()
	b.RecordRejected(ctx, "message_invalid", "{", "payload inválido")
	b.SaveAIContext(ctx, AIContextInput{SessionID: "s", Phone: "1", Message: "m", Role: model.AIRoleUser})

	resp := b.WebhookLogs(ctx, 0)
	require.True(t, resp.Success)
	require.Len(t, resp.Logs, 2)
	assert.Equal(t, "ai_context_saved", resp.Logs[0].Event)
	assert.Equal(t, model.WebhookError, resp.Logs[1].Status)

	assert.Len(t, b.WebhookLogs(ctx, 1).Logs, 1)
}
