package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"corretor_backend/internal/middleware"
	"corretor_backend/internal/model"
	"corretor_backend/internal/testutil"
	"corretor_backend/pkg/utils/jwt"
)

const testIntegrationSecret = "segredo-n8n"

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func (m *memoryStorage) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "https://cdn.example.com/" + key, nil
}

func (m *memoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	Init("https://example.com", "dono@example.com", nil)
	t.Cleanup(func() { Init("", "", nil) })

	app := fiber.New()
	api := app.Group("/api")
	api.Post("/auth/register", Register)
	api.Post("/auth/login", Login)
	api.Get("/properties", middleware.OptionalAuth(), ListProperties)
	api.Get("/properties/:id", middleware.OptionalAuth(), GetProperty)
	api.Get("/properties/:id/images", middleware.LoadProperty(), ListPropertyImages)
	api.Post("/leads", CreateLead)
	api.Get("/reviews", ListReviews)
	api.Post("/analytics/events", TrackEvent)

	integration := api.Group("/integration", middleware.IntegrationAuth(testIntegrationSecret))
	integration.Post("/whatsapp/messages", IngestWhatsAppMessage)
	integration.Post("/leads", SaveWhatsAppLead)
	integration.Post("/match-properties", MatchPropertiesForClient)
	integration.Post("/qualification", UpdateLeadQualification)

	protected := api.Group("", middleware.AuthMiddleware())
	protected.Get("/me", GetMe)
	protected.Get("/leads", ListLeads)
	protected.Get("/leads/follow-up", GetFollowUpLeads)
	protected.Get("/leads/stage/:stage", GetLeadsByStage)
	protected.Get("/leads/:id/matches", GetLeadMatches)
	protected.Put("/leads/:id", UpdateLead)
	protected.Put("/leads/:id/stage", UpdateLeadStage)
	protected.Get("/leads/:id/interactions", ListInteractions)
	protected.Post("/leads/:id/interactions", CreateInteraction)
	protected.Get("/owners/search", SearchOwners)

	admin := protected.Group("", middleware.RequireAdmin())
	admin.Post("/properties", CreateProperty)
	admin.Delete("/properties/:id", DeleteProperty)
	admin.Post("/properties/:id/images", middleware.LoadProperty(), AddPropertyImage)
	admin.Post("/properties/:id/images/upload", middleware.LoadProperty(), UploadPropertyImage)
	admin.Put("/property-images/:id/primary", SetPrimaryImage)
	admin.Delete("/property-images/:id", DeletePropertyImage)
	admin.Post("/admin/reviews", CreateReview)
	admin.Put("/admin/reviews/:id/approve", ApproveReview)
	admin.Post("/owners", CreateOwner)
	admin.Get("/dashboard/stats", GetDashboardStats)
	admin.Get("/analytics/metrics", GetAnalyticsMetrics)
	admin.Post("/analytics/campaigns", CreateCampaign)
	admin.Post("/financial/transactions", CreateTransaction)
	admin.Post("/financial/commissions", CreateCommission)
	admin.Get("/financial/summary", GetFinancialSummary)
	return app, db
}

func tokenFor(t *testing.T, role string) string {
	t.Helper()
	token, err := jwt.GenerateToken(1, role+"@example.com", role)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if strings.HasPrefix(path, "/api/integration") {
		req.Header.Set(middleware.HeaderIntegrationSecret, testIntegrationSecret)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func TestCreateLeadAlwaysStartsAtNovo(t *testing.T) {
	app, db := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/api/leads", "", map[string]interface{}{
		"name":          "Ana Lima",
		"phone":         "+55 (61) 98888-7777",
		"stage":         "proposta",
		"qualification": "quente",
		"message":       "Quero visitar a casa",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Contains(t, body, "lead")

	var lead model.Lead
	require.NoError(t, db.First(&lead).Error)
	assert.Equal(t, model.StageNovo, lead.Stage)
	assert.Equal(t, model.QualificationNaoQualificado, lead.Qualification)
	assert.Equal(t, "5561988887777", lead.Phone)
	assert.Equal(t, model.SourceSite, lead.Source)
}

func TestCreateLeadValidation(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/api/leads", "", map[string]interface{}{"name": "Sem telefone"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", body["error"])
}

func TestUpdateLeadStageRules(t *testing.T) {
	app, db := newTestApp(t)
	lead := model.Lead{Name: "Carlos", Phone: "61977776666"}
	require.NoError(t, db.Create(&lead).Error)
	path := "/api/leads/" + itoa(lead.ID) + "/stage"

	resp, body := doJSON(t, app, "PUT", path, tokenFor(t, "user"), map[string]interface{}{"stage": "proposta"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", body["code"])

	resp, _ = doJSON(t, app, "PUT", path, tokenFor(t, "user"), map[string]interface{}{"stage": "proposta", "force": true})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, body = doJSON(t, app, "PUT", path, tokenFor(t, "user"), map[string]interface{}{"stage": "contato_inicial"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["changed"])

	resp, body = doJSON(t, app, "PUT", path, tokenFor(t, "admin"), map[string]interface{}{"stage": "fechado_ganho", "force": true, "reason": "assinado"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["forced"])

	require.NoError(t, db.First(&lead, lead.ID).Error)
	assert.Equal(t, model.StageFechadoGanho, lead.Stage)
	assert.NotNil(t, lead.ConvertedAt)

	var transitions int64
	db.Model(&model.Interaction{}).Where("lead_id = ? AND type = ?", lead.ID, model.InteractionStatusChange).Count(&transitions)
	assert.EqualValues(t, 2, transitions)
}

func TestStageRouteRequiresToken(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, "PUT", "/api/leads/1/stage", "", map[string]interface{}{"stage": "contato_inicial"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestIntegrationDuplicateMessage(t *testing.T) {
	app, _ := newTestApp(t)
	payload := map[string]interface{}{
		"phone":     "5561999998888",
		"messageId": "wamid.ABC",
		"content":   "Oi",
		"type":      "incoming",
	}

	resp, body := doJSON(t, app, "POST", "/api/integration/whatsapp/messages", "", payload)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	resp, body = doJSON(t, app, "POST", "/api/integration/whatsapp/messages", "", payload)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "duplicate_message", body["code"])
}

func TestIntegrationInvalidPayloadIsLogged(t *testing.T) {
	app, db := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/api/integration/whatsapp/messages", "", map[string]interface{}{"phone": "5561"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_payload", body["code"])

	var entry model.WebhookLog
	require.NoError(t, db.Order("id desc").First(&entry).Error)
	assert.Equal(t, "message_invalid", entry.Event)
	assert.Equal(t, model.WebhookError, entry.Status)
}

func TestIntegrationRequiresSecret(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/integration/match-properties", strings.NewReader(`{"phone":"5561"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestIntegrationSoftFailures(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/api/integration/match-properties", "", map[string]interface{}{"phone": "5561900000000"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Lead não encontrado", body["error"])
	assert.Equal(t, []interface{}{}, body["properties"])

	resp, body = doJSON(t, app, "POST", "/api/integration/qualification", "", map[string]interface{}{
		"phone":         "5561900000000",
		"qualification": "quente",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestPropertyPricesSurviveRoundTrip(t *testing.T) {
	app, _ := newTestApp(t)

	resp, created := doJSON(t, app, "POST", "/api/properties", tokenFor(t, "admin"), map[string]interface{}{
		"title":            "Mansão no Park Way",
		"property_type":    "casa",
		"transaction_type": "venda",
		"sale_price":       500_000_000,
		"reference_code":   "PW-01",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "mansao-no-park-way", created["slug"])
	assert.Equal(t, true, created["published"])

	id := int(created["ID"].(float64))
	resp, fetched := doJSON(t, app, "GET", "/api/properties/"+itoa(uint(id)), "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(500_000_000), fetched["sale_price"])

	resp, _ = doJSON(t, app, "POST", "/api/properties", tokenFor(t, "admin"), map[string]interface{}{
		"title":            "Outra",
		"property_type":    "casa",
		"transaction_type": "venda",
		"reference_code":   "PW-01",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestCreatePropertyRequiresAdmin(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, "POST", "/api/properties", tokenFor(t, "user"), map[string]interface{}{
		"title": "X", "property_type": "casa", "transaction_type": "venda",
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestUnpublishedPropertyIsHiddenFromPublic(t *testing.T) {
	app, db := newTestApp(t)
	draft := model.Property{Title: "Rascunho", PropertyType: model.PropertyTypeCasa, TransactionType: model.TransactionVenda}
	require.NoError(t, db.Create(&draft).Error)

	resp, _ := doJSON(t, app, "GET", "/api/properties/"+itoa(draft.ID), "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, "GET", "/api/properties/"+itoa(draft.ID), tokenFor(t, "admin"), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, list := doJSON(t, app, "GET", "/api/properties", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, list["total"])
}

func TestListPropertiesFilters(t *testing.T) {
	app, db := newTestApp(t)
	price := func(v int64) *int64 { return &v }
	for _, p := range []model.Property{
		{Title: "Casa Lago Sul", PropertyType: model.PropertyTypeCasa, TransactionType: model.TransactionVenda, Neighborhood: "Lago Sul", SalePrice: price(300_000_000), Bedrooms: 4, Published: true},
		{Title: "Apto Asa Norte", PropertyType: model.PropertyTypeApartamento, TransactionType: model.TransactionLocacao, Neighborhood: "Asa Norte", RentPrice: price(400_000), Bedrooms: 2, Published: true},
		{Title: "Cobertura Sudoeste", PropertyType: model.PropertyTypeCobertura, TransactionType: model.TransactionAmbos, Neighborhood: "Sudoeste", SalePrice: price(200_000_000), RentPrice: price(900_000), Bedrooms: 3, Published: true},
	} {
		p := p
		require.NoError(t, db.Create(&p).Error)
	}

	_, body := doJSON(t, app, "GET", "/api/properties?transaction_type=locacao", "", nil)
	assert.EqualValues(t, 2, body["total"])

	_, body = doJSON(t, app, "GET", "/api/properties?neighborhood=lago", "", nil)
	assert.EqualValues(t, 1, body["total"])

	_, body = doJSON(t, app, "GET", "/api/properties?transaction_type=venda&max_price=250000000", "", nil)
	assert.EqualValues(t, 1, body["total"])

	_, body = doJSON(t, app, "GET", "/api/properties?bedrooms=3", "", nil)
	assert.EqualValues(t, 2, body["total"])
}

func TestPropertyImagePrimaryIsExclusive(t *testing.T) {
	app, db := newTestApp(t)
	property := model.Property{Title: "Casa", PropertyType: model.PropertyTypeCasa, TransactionType: model.TransactionVenda, Published: true}
	require.NoError(t, db.Create(&property).Error)
	admin := tokenFor(t, "admin")
	base := "/api/properties/" + itoa(property.ID) + "/images"

	resp, first := doJSON(t, app, "POST", base, admin, map[string]interface{}{"image_url": "https://cdn.example.com/a.webp", "image_key": "a.webp"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, first["is_primary"])

	resp, second := doJSON(t, app, "POST", base, admin, map[string]interface{}{"image_url": "https://cdn.example.com/b.webp", "image_key": "b.webp"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, false, second["is_primary"])
	secondID := uint(second["ID"].(float64))

	resp, _ = doJSON(t, app, "PUT", "/api/property-images/"+itoa(secondID)+"/primary", admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var primaries []model.PropertyImage
	require.NoError(t, db.Where("property_id = ? AND is_primary = ?", property.ID, true).Find(&primaries).Error)
	require.Len(t, primaries, 1)
	assert.Equal(t, secondID, primaries[0].ID)

	require.NoError(t, db.First(&property, property.ID).Error)
	assert.Equal(t, "https://cdn.example.com/b.webp", property.MainImage)

	resp, _ = doJSON(t, app, "DELETE", "/api/property-images/"+itoa(secondID), admin, nil)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	var remaining model.PropertyImage
	require.NoError(t, db.Where("property_id = ?", property.ID).First(&remaining).Error)
	assert.True(t, remaining.IsPrimary)
	require.NoError(t, db.First(&property, property.ID).Error)
	assert.Equal(t, "https://cdn.example.com/a.webp", property.MainImage)

	req := httptest.NewRequest("GET", base, nil)
	listResp, err := app.Test(req, -1)
	require.NoError(t, err)
	var images []model.PropertyImage
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&images))
	assert.Len(t, images, 1)
}

func TestUploadPropertyImage(t *testing.T) {
	app, db := newTestApp(t)
	store := &memoryStorage{objects: map[string][]byte{}}
	Init("https://example.com", "", store)

	property := model.Property{Title: "Casa", PropertyType: model.PropertyTypeCasa, TransactionType: model.TransactionVenda, Published: true}
	require.NoError(t, db.Create(&property).Error)

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "fachada.png")
	require.NoError(t, err)
	_, err = part.Write(pngBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/properties/"+itoa(property.ID)+"/images/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "admin"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var saved model.PropertyImage
	require.NoError(t, db.Where("property_id = ?", property.ID).First(&saved).Error)
	assert.True(t, saved.IsPrimary)
	assert.True(t, strings.HasSuffix(saved.ImageKey, ".webp"))
	assert.Contains(t, store.objects, saved.ImageKey)

	resp, _ = doJSON(t, app, "DELETE", "/api/properties/"+itoa(property.ID), tokenFor(t, "admin"), nil)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{saved.ImageKey}, store.deleted)
}

func TestUploadWithoutStorage(t *testing.T) {
	app, db := newTestApp(t)
	property := model.Property{Title: "Casa", PropertyType: model.PropertyTypeCasa, TransactionType: model.TransactionVenda}
	require.NoError(t, db.Create(&property).Error)

	resp, _ := doJSON(t, app, "POST", "/api/properties/"+itoa(property.ID)+"/images/upload", tokenFor(t, "admin"), nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestRegisterFirstUserIsAdmin(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/api/auth/register", "", map[string]interface{}{
		"email": "primeiro@example.com", "password": "senha-forte", "name": "Primeiro",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "admin", body["user"].(map[string]interface{})["role"])

	resp, body = doJSON(t, app, "POST", "/api/auth/register", "", map[string]interface{}{
		"email": "segundo@example.com", "password": "senha-forte", "name": "Segundo",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "user", body["user"].(map[string]interface{})["role"])

	resp, body = doJSON(t, app, "POST", "/api/auth/register", "", map[string]interface{}{
		"email": "Dono@Example.com", "password": "senha-forte", "name": "Dono",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "admin", body["user"].(map[string]interface{})["role"])

	resp, _ = doJSON(t, app, "POST", "/api/auth/register", "", map[string]interface{}{
		"email": "segundo@example.com", "password": "senha-forte", "name": "Repetido",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestLoginAndMe(t *testing.T) {
	app, _ := newTestApp(t)
	doJSON(t, app, "POST", "/api/auth/register", "", map[string]interface{}{
		"email": "corretor@example.com", "password": "senha-forte", "name": "Corretor",
	})

	resp, _ := doJSON(t, app, "POST", "/api/auth/login", "", map[string]interface{}{
		"email": "corretor@example.com", "password": "errada",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body := doJSON(t, app, "POST", "/api/auth/login", "", map[string]interface{}{
		"email": "corretor@example.com", "password": "senha-forte",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	token := body["token"].(string)

	resp, body = doJSON(t, app, "GET", "/api/me", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "corretor@example.com", user["email"])
	assert.NotNil(t, user["last_signed_in"])
}

func TestFinancialSummary(t *testing.T) {
	app, _ := newTestApp(t)
	admin := tokenFor(t, "admin")

	for _, tx := range []map[string]interface{}{
		{"type": "revenue", "amount": 100_000, "description": "Aluguel", "status": "paid"},
		{"type": "revenue", "amount": 50_000, "description": "Pendente"},
		{"type": "expense", "amount": 30_000, "description": "Anúncio", "status": "paid"},
	} {
		resp, _ := doJSON(t, app, "POST", "/api/financial/transactions", admin, tx)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	resp, commission := doJSON(t, app, "POST", "/api/financial/commissions", admin, map[string]interface{}{
		"property_id": 1, "lead_id": 1, "sale_price": 1_000_000_00, "rate_basis_points": 600, "status": "paid",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(6_000_000), commission["commission_amount"])

	resp, summary := doJSON(t, app, "GET", "/api/financial/summary", admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(100_000), summary["total_revenue"])
	assert.Equal(t, float64(30_000), summary["total_expenses"])
	assert.Equal(t, float64(6_000_000), summary["paid_commissions"])
	assert.Equal(t, float64(0), summary["pending_commissions"])
	assert.Equal(t, float64(100_000+6_000_000-30_000), summary["net_profit"])
}

func TestCreateReviewRatingBounds(t *testing.T) {
	app, _ := newTestApp(t)
	admin := tokenFor(t, "admin")

	resp, _ := doJSON(t, app, "POST", "/api/admin/reviews", admin, map[string]interface{}{
		"client_name": "Joana", "rating": 6, "content": "Ótimo",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, "POST", "/api/admin/reviews", admin, map[string]interface{}{
		"client_name": "Joana", "rating": 5, "content": "Ótimo",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
