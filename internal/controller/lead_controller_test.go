package controller

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"corretor_backend/internal/model"
)

func TestUpdateLeadWritesEveryField(t *testing.T) {
	app, db := newTestApp(t)

	property := model.Property{Title: "Casa no Lago Sul", PropertyType: model.PropertyTypeCasa, TransactionType: model.TransactionLocacao}
	require.NoError(t, db.Create(&property).Error)
	lead := model.Lead{Name: "Carlos", Phone: "61977776666"}
	require.NoError(t, db.Create(&lead).Error)

	resp, body := doJSON(t, app, "PUT", "/api/leads/"+itoa(lead.ID), tokenFor(t, "admin"), map[string]interface{}{
		"name":                     "  Carlos Mendes ",
		"email":                    "carlos@example.com",
		"phone":                    "+55 (61) 97777-6666",
		"whatsapp":                 "+55 61 98888-7777",
		"stage":                    "contato_inicial",
		"client_type":              "locatario",
		"qualification":            "morno",
		"buyer_profile":            "investidor",
		"urgency_level":            "alta",
		"priority":                 "urgente",
		"interested_property_id":   property.ID,
		"transaction_interest":     "locacao",
		"budget_min":               300000,
		"budget_max":               650000,
		"preferred_neighborhoods":  []string{"Lago Sul", " ", "Asa Norte"},
		"preferred_property_types": []string{"casa"},
		"tags":                     []string{"retorno", "vip"},
		"notes":                    "Prefere contato à tarde",
		"assigned_to":              1,
		"score":                    80,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "contato_inicial", body["stage"])
	assert.Equal(t, "5561988887777", body["whatsapp"])

	var stored model.Lead
	require.NoError(t, db.First(&stored, lead.ID).Error)
	assert.Equal(t, "Carlos Mendes", stored.Name)
	assert.Equal(t, "carlos@example.com", stored.Email)
	assert.Equal(t, "5561977776666", stored.Phone)
	assert.Equal(t, "5561988887777", stored.WhatsApp)
	assert.Equal(t, model.StageContatoInicial, stored.Stage)
	assert.Equal(t, model.ClientLocatario, stored.ClientType)
	assert.Equal(t, model.QualificationMorno, stored.Qualification)
	require.NotNil(t, stored.BuyerProfile)
	assert.Equal(t, model.BuyerInvestidor, *stored.BuyerProfile)
	assert.Equal(t, model.LevelAlta, stored.UrgencyLevel)
	assert.Equal(t, model.LevelUrgente, stored.Priority)
	require.NotNil(t, stored.InterestedPropertyID)
	assert.Equal(t, property.ID, *stored.InterestedPropertyID)
	assert.Equal(t, model.TransactionLocacao, stored.TransactionInterest)
	require.NotNil(t, stored.BudgetMin)
	require.NotNil(t, stored.BudgetMax)
	assert.EqualValues(t, 300000, *stored.BudgetMin)
	assert.EqualValues(t, 650000, *stored.BudgetMax)
	assert.Equal(t, []string{"Lago Sul", "Asa Norte"}, []string(stored.PreferredNeighborhoods))
	assert.Equal(t, []string{"casa"}, []string(stored.PreferredPropertyTypes))
	assert.Equal(t, []string{"retorno", "vip"}, []string(stored.Tags))
	assert.Equal(t, "Prefere contato à tarde", stored.Notes)
	require.NotNil(t, stored.AssignedTo)
	assert.EqualValues(t, 1, *stored.AssignedTo)
	assert.Equal(t, 80, stored.Score)

	var transitions int64
	db.Model(&model.Interaction{}).Where("lead_id = ? AND type = ?", lead.ID, model.InteractionStatusChange).Count(&transitions)
	assert.EqualValues(t, 1, transitions)
}

func TestUpdateLeadRejectsStageJump(t *testing.T) {
	app, db := newTestApp(t)
	lead := model.Lead{Name: "Carlos", Phone: "61977776666"}
	require.NoError(t, db.Create(&lead).Error)

	resp, body := doJSON(t, app, "PUT", "/api/leads/"+itoa(lead.ID), tokenFor(t, "user"), map[string]interface{}{
		"stage": "proposta",
		"name":  "Outro Nome",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", body["code"])

	var stored model.Lead
	require.NoError(t, db.First(&stored, lead.ID).Error)
	assert.Equal(t, model.StageNovo, stored.Stage)
	assert.Equal(t, "Carlos", stored.Name)

	var interactions int64
	db.Model(&model.Interaction{}).Where("lead_id = ?", lead.ID).Count(&interactions)
	assert.Zero(t, interactions)
}

func TestUpdateLeadRollsBackStageWhenFieldsFail(t *testing.T) {
	app, db := newTestApp(t)
	lead := model.Lead{Name: "Carlos", Phone: "61977776666"}
	require.NoError(t, db.Create(&lead).Error)

	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:reject_notes", func(tx *gorm.DB) {
		if values, ok := tx.Statement.Dest.(map[string]interface{}); ok {
			if _, ok := values["notes"]; ok {
				_ = tx.AddError(errors.New("notes column unavailable"))
			}
		}
	}))

	resp, _ := doJSON(t, app, "PUT", "/api/leads/"+itoa(lead.ID), tokenFor(t, "user"), map[string]interface{}{
		"stage": "contato_inicial",
		"notes": "ligar amanhã",
	})
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var stored model.Lead
	require.NoError(t, db.First(&stored, lead.ID).Error)
	assert.Equal(t, model.StageNovo, stored.Stage)

	var interactions int64
	db.Model(&model.Interaction{}).Where("lead_id = ?", lead.ID).Count(&interactions)
	assert.Zero(t, interactions)
}

func TestUpdateLeadNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, "PUT", "/api/leads/999", tokenFor(t, "user"), map[string]interface{}{"name": "Ninguém"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Lead não encontrado", body["error"])
}

func TestListLeadsFilters(t *testing.T) {
	app, db := newTestApp(t)
	for _, lead := range []model.Lead{
		{Name: "Ana Lima", Phone: "61911110000", Stage: model.StageNovo},
		{Name: "Bruno Reis", Phone: "61922220000", Stage: model.StageProposta},
		{Name: "Ana Souza", Phone: "61933330000", Stage: model.StageProposta},
	} {
		require.NoError(t, db.Create(&lead).Error)
	}
	token := tokenFor(t, "user")

	resp, body := doJSON(t, app, "GET", "/api/leads?stage=proposta", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["total"])
	assert.Len(t, body["data"], 2)

	resp, body = doJSON(t, app, "GET", "/api/leads?search=ana&per_page=1", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["total"])
	assert.EqualValues(t, 1, body["per_page"])
	require.Len(t, body["data"], 1)
	assert.Equal(t, "Ana Souza", body["data"].([]interface{})[0].(map[string]interface{})["name"])
}

func TestGetLeadsByStage(t *testing.T) {
	app, db := newTestApp(t)
	require.NoError(t, db.Create(&model.Lead{Name: "Bruno", Phone: "61922220000", Stage: model.StageNegociacao}).Error)
	require.NoError(t, db.Create(&model.Lead{Name: "Clara", Phone: "61933330000"}).Error)
	token := tokenFor(t, "user")

	req := httptest.NewRequest("GET", "/api/leads/stage/negociacao", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var leads []model.Lead
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&leads))
	require.Len(t, leads, 1)
	assert.Equal(t, "Bruno", leads[0].Name)

	resp, body := doJSON(t, app, "GET", "/api/leads/stage/arquivado", token, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Estágio inválido", body["error"])
}

func TestFollowUpLeadsResponse(t *testing.T) {
	app, db := newTestApp(t)
	now := time.Now().UTC()

	stale := model.Lead{Name: "Sem retorno", Phone: "61911110000", Qualification: model.QualificationQuente}
	stale.CreatedAt = now.Add(-10*24*time.Hour - time.Hour)
	require.NoError(t, db.Create(&stale).Error)

	recent := model.Lead{Name: "Falou ontem", Phone: "61922220000", Qualification: model.QualificationQuente}
	recent.CreatedAt = now.Add(-20 * 24 * time.Hour)
	require.NoError(t, db.Create(&recent).Error)
	call := model.Interaction{LeadID: recent.ID, Type: model.InteractionLigacao, Subject: "retorno"}
	call.CreatedAt = now.Add(-2 * 24 * time.Hour)
	require.NoError(t, db.Create(&call).Error)

	cold := model.Lead{Name: "Frio", Phone: "61933330000", Qualification: model.QualificationFrio}
	cold.CreatedAt = now.Add(-30 * 24 * time.Hour)
	require.NoError(t, db.Create(&cold).Error)

	resp, body := doJSON(t, app, "GET", "/api/leads/follow-up", tokenFor(t, "user"), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["count"])

	leads := body["leads"].([]interface{})
	require.Len(t, leads, 1)
	row := leads[0].(map[string]interface{})
	assert.EqualValues(t, stale.ID, row["ID"])
	assert.Equal(t, "Sem retorno", row["name"])
	assert.EqualValues(t, 10, row["days_since_last_contact"])
	assert.Equal(t, "urgente", row["urgency"])
	assert.Contains(t, row, "last_contact_date")
}

func TestGetLeadMatches(t *testing.T) {
	app, db := newTestApp(t)
	price := int64(90000000)
	available := model.Property{Title: "Casa no Lago Sul", Neighborhood: "Lago Sul", PropertyType: model.PropertyTypeCasa,
		TransactionType: model.TransactionVenda, SalePrice: &price, Published: true}
	require.NoError(t, db.Create(&available).Error)
	sold := model.Property{Title: "Casa vendida", Neighborhood: "Lago Sul", PropertyType: model.PropertyTypeCasa,
		TransactionType: model.TransactionVenda, Status: model.PropertyStatusVendido, SalePrice: &price}
	require.NoError(t, db.Create(&sold).Error)

	lead := model.Lead{Name: "Paula", Phone: "61944440000", TransactionInterest: model.TransactionVenda}
	lead.PreferredNeighborhoods = []string{"lago sul"}
	require.NoError(t, db.Create(&lead).Error)

	resp, body := doJSON(t, app, "GET", "/api/leads/"+itoa(lead.ID)+"/matches", tokenFor(t, "user"), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, lead.ID, body["lead_id"])

	properties := body["properties"].([]interface{})
	require.Len(t, properties, 1)
	match := properties[0].(map[string]interface{})
	assert.EqualValues(t, available.ID, match["id"])
	assert.Equal(t, "https://example.com/imovel/"+itoa(available.ID), match["url"])

	resp, _ = doJSON(t, app, "GET", "/api/leads/"+itoa(lead.ID)+"/matches?transaction_type=permuta", tokenFor(t, "user"), nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestIntegrationPhoneLookupKeepsAreaCodesApart(t *testing.T) {
	app, db := newTestApp(t)

	for _, in := range []map[string]interface{}{
		{"name": "Lead SP", "phone": "+55 11 99999-8888"},
		{"name": "Lead DF", "phone": "+55 61 99999-8888"},
		{"name": "Joana RJ", "phone": "+55 21 99999-8888", "budgetRange": "até 1 milhão"},
	} {
		resp, body := doJSON(t, app, "POST", "/api/integration/leads", "", in)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		require.Equal(t, true, body["success"], body)
		assert.Equal(t, true, body["created"], in["name"])
	}

	var count int64
	db.Model(&model.Lead{}).Count(&count)
	assert.EqualValues(t, 3, count)

	resp, body := doJSON(t, app, "POST", "/api/integration/qualification", "", map[string]interface{}{
		"phone":         "5561999998888",
		"qualification": "quente",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"], body)

	var df model.Lead
	require.NoError(t, db.Where("name = ?", "Lead DF").First(&df).Error)
	assert.EqualValues(t, df.ID, body["leadId"])
	assert.Equal(t, model.QualificationQuente, df.Qualification)

	var sp model.Lead
	require.NoError(t, db.Where("name = ?", "Lead SP").First(&sp).Error)
	assert.Equal(t, model.QualificationNaoQualificado, sp.Qualification)

	var rj model.Lead
	require.NoError(t, db.Where("name = ?", "Joana RJ").First(&rj).Error)
	assert.Equal(t, "Orçamento: até 1 milhão", rj.Notes)
}
