package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"offer-service/internal/model"
	"offer-service/internal/service"
	"offer-service/pkg/config"
	"offer-service/pkg/raynet"
	"offer-service/pkg/storage"
	"offer-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	prometheus.InitMetrics(&config.Config{
		Metrics: config.MetricsConfig{Prefix: "offer_handler_test"},
	})
	os.Exit(m.Run())
}

type stubAI struct{ text string }

func (s *stubAI) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return s.text, nil
}

type stubPDF struct{ data []byte }

func (s *stubPDF) Render(ctx context.Context, html string) ([]byte, error) {
	return s.data, nil
}

type stubCRM struct {
	companies []raynet.Company
	persons   map[string][]raynet.Person
}

func (s *stubCRM) CreateOpportunity(ctx context.Context, params raynet.OpportunityParams) (json.RawMessage, error) {
	return json.RawMessage(`{"data":{"id":314}}`), nil
}

func (s *stubCRM) UploadDocument(ctx context.Context, name string, opportunityID int64, pdf []byte, filename string) (json.RawMessage, error) {
	return json.RawMessage(`{"data":{"id":1}}`), nil
}

func (s *stubCRM) CreateActivity(ctx context.Context, params raynet.ActivityParams) (json.RawMessage, error) {
	return json.RawMessage(`{"id":2}`), nil
}

func (s *stubCRM) ListCompanies(ctx context.Context) ([]raynet.Company, error) {
	return s.companies, nil
}

func (s *stubCRM) ListPersons(ctx context.Context, companyID string) ([]raynet.Person, error) {
	return s.persons[companyID], nil
}

// newTestServer wires the full handler stack over sqlite and stub
// collaborators.
func newTestServer(t *testing.T) (*echo.Echo, *stubCRM) {
	t.Helper()

	dsn := fmt.Sprintf("file:handler_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Offer{}, &model.CrmCompany{}, &model.CrmContact{}))

	log := zap.NewNop()
	store := storage.NewFileStore(t.TempDir())
	crm := &stubCRM{}

	locks := service.NewOfferLocks()
	offers := service.NewOfferService(db, store, log)
	pipeline := service.NewGenerationPipeline(db, offers, store, &stubAI{text: "<p>Treść</p>"}, &stubPDF{data: []byte("%PDF-1.7")}, locks, log)
	writeback := service.NewWritebackService(db, offers, store, crm, locks, log)
	sync := service.NewSyncService(db, crm, log)

	e := echo.New()
	e.Validator = NewValidator()
	NewOfferHandler(offers, pipeline, writeback).Register(e.Group("/api/offers"))
	NewCRMHandler(sync).Register(e.Group("/api/crm"))
	e.GET("/health", Hello)
	return e, crm
}

func doJSON(e *echo.Echo, method, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func createOffer(t *testing.T, e *echo.Echo, body string) model.Offer {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/api/offers", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var offer model.Offer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &offer))
	return offer
}

func uploadDescription(t *testing.T, e *echo.Echo, id, filename, contentType, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/offers/"+id+"/upload-description", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateOfferEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	offer := createOffer(t, e, `{"company_name":"Acme Sp. z o.o.","title":"Wdrożenie","valid_until":"2026-09-30"}`)
	assert.Equal(t, "draft", offer.Status)
	assert.Equal(t, "Acme Sp. z o.o.", offer.CompanyName)
}

func TestCreateOfferValidation(t *testing.T) {
	e, _ := newTestServer(t)

	// missing required title
	rec := doJSON(e, http.MethodPost, "/api/offers", `{"company_name":"Acme"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// malformed validity date
	rec = doJSON(e, http.MethodPost, "/api/offers", `{"company_name":"Acme","title":"Oferta","valid_until":"30.09.2026"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "YYYY-MM-DD")
}

func TestGetOfferEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	offer := createOffer(t, e, `{"company_name":"Acme","title":"Oferta"}`)

	rec := doJSON(e, http.MethodGet, "/api/offers/"+offer.ID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/offers/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/offers/00000000-0000-0000-0000-000000000001", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Offer not found")
}

func TestListOffersEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	createOffer(t, e, `{"company_name":"Acme","title":"Oferta 1"}`)
	createOffer(t, e, `{"company_name":"Acme","title":"Oferta 2"}`)

	rec := doJSON(e, http.MethodGet, "/api/offers", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var offers []model.Offer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &offers))
	assert.Len(t, offers, 2)
}

func TestUpdateStatusEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	offer := createOffer(t, e, `{"company_name":"Acme","title":"Oferta"}`)

	rec := doJSON(e, http.MethodPatch, "/api/offers/"+offer.ID.String()+"/status", `{"status":"accepted"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPatch, "/api/offers/"+offer.ID.String()+"/status", `{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadDescriptionEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	offer := createOffer(t, e, `{"company_name":"Acme","title":"Oferta"}`)

	rec := uploadDescription(t, e, offer.ID.String(), "scope.md", "text/markdown", "# Zakres")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = uploadDescription(t, e, offer.ID.String(), "scope.pdf", "application/pdf", "x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// missing multipart file field
	rec = doJSON(e, http.MethodPost, "/api/offers/"+offer.ID.String()+"/upload-description", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGeneratePDFEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	offer := createOffer(t, e, `{"company_name":"Acme","title":"Oferta"}`)

	// no description yet
	rec := doJSON(e, http.MethodPost, "/api/offers/"+offer.ID.String()+"/generate-pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Upload a description first")

	uploadDescription(t, e, offer.ID.String(), "scope.txt", "text/plain", "zakres")

	rec = doJSON(e, http.MethodPost, "/api/offers/"+offer.ID.String()+"/generate-pdf", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated model.Offer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "generated", updated.Status)
	assert.NotEmpty(t, updated.DocumentPath)
}

func TestDownloadPDFEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	offer := createOffer(t, e, `{"company_name":"Acme","title":"Oferta handlowa"}`)

	rec := doJSON(e, http.MethodGet, "/api/offers/"+offer.ID.String()+"/download-pdf", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	uploadDescription(t, e, offer.ID.String(), "scope.txt", "text/plain", "zakres")
	doJSON(e, http.MethodPost, "/api/offers/"+offer.ID.String()+"/generate-pdf", "")

	rec = doJSON(e, http.MethodGet, "/api/offers/"+offer.ID.String()+"/download-pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "offer_Oferta handlowa.pdf")
	assert.Equal(t, []byte("%PDF-1.7"), rec.Body.Bytes())
}

func TestSendToCRMEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	offer := createOffer(t, e, `{"company_name":"Acme","title":"Oferta","raynet_company_id":"42"}`)

	// PDF not generated yet
	rec := doJSON(e, http.MethodPost, "/api/offers/"+offer.ID.String()+"/send-to-crm", `{"estimated_value":1500}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Generate the PDF first")

	uploadDescription(t, e, offer.ID.String(), "scope.txt", "text/plain", "zakres")
	doJSON(e, http.MethodPost, "/api/offers/"+offer.ID.String()+"/generate-pdf", "")

	rec = doJSON(e, http.MethodPost, "/api/offers/"+offer.ID.String()+"/send-to-crm", `{"estimated_value":1500}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated model.Offer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "sent", updated.Status)
	require.NotNil(t, updated.RaynetOpportunityID)
	assert.Equal(t, int64(314), *updated.RaynetOpportunityID)
}

func TestSendToCRMWithoutCompanyLink(t *testing.T) {
	e, _ := newTestServer(t)
	offer := createOffer(t, e, `{"company_name":"Acme","title":"Oferta"}`)

	rec := doJSON(e, http.MethodPost, "/api/offers/"+offer.ID.String()+"/send-to-crm", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Raynet company")
}

func TestDeleteOfferEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	offer := createOffer(t, e, `{"company_name":"Acme","title":"Oferta"}`)

	rec := doJSON(e, http.MethodDelete, "/api/offers/"+offer.ID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodDelete, "/api/offers/"+offer.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCRMSyncEndpoints(t *testing.T) {
	e, crm := newTestServer(t)
	crm.companies = []raynet.Company{{ID: 11, Name: "Acme"}, {ID: 12, Name: "Globex"}}
	crm.persons = map[string][]raynet.Person{
		"11": {{ID: 7, FirstName: "Jan", LastName: "Kowalski"}},
	}

	rec := doJSON(e, http.MethodPost, "/api/crm/sync", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"synced_companies":2`)
	assert.Contains(t, rec.Body.String(), `"synced_contacts":1`)

	rec = doJSON(e, http.MethodGet, "/api/crm/companies", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var companies []model.CrmCompany
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &companies))
	require.Len(t, companies, 2)

	// contacts by the local company id
	var acme model.CrmCompany
	for _, c := range companies {
		if c.RaynetID == "11" {
			acme = c
		}
	}
	rec = doJSON(e, http.MethodGet, "/api/crm/companies/"+acme.ID.String()+"/contacts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Kowalski")

	rec = doJSON(e, http.MethodGet, "/api/crm/companies/not-a-uuid/contacts", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/crm/sync/companies/11/contacts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"synced_contacts":1`)
}

func TestHealthEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Offer Service API is running")
}
