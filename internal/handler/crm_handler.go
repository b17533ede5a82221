package handler

import (
	"net/http"
	"time"

	"offer-service/internal/service"
	"offer-service/pkg/logger"
	"offer-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CRMHandler exposes the CRM read cache and its sync triggers over HTTP
type CRMHandler struct {
	sync *service.SyncService
}

func NewCRMHandler(sync *service.SyncService) *CRMHandler {
	return &CRMHandler{sync: sync}
}

// Register wires the CRM routes into the given group
func (h *CRMHandler) Register(g *echo.Group) {
	g.GET("/companies", h.ListCompanies)
	g.GET("/companies/:id/contacts", h.ListContacts)
	g.POST("/sync", h.Sync)
	g.POST("/sync/companies/:raynetId/contacts", h.SyncCompanyContacts)
}

// ListCompanies returns the cached CRM companies
func (h *CRMHandler) ListCompanies(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())

	companies, err := h.sync.Companies(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, companies)
}

// ListContacts returns the cached contacts of one company by its local ID
func (h *CRMHandler) ListContacts(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())

	contacts, err := h.sync.ContactsForCompany(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, contacts)
}

// Sync refreshes the whole read cache from Raynet
func (h *CRMHandler) Sync(c echo.Context) error {
	log := logger.FromContext(c)
	log.Info("Starting full CRM sync")

	defer prometheus.TrackUpstreamCall("crm")(time.Now())

	companies, contacts, err := h.sync.SyncAll(c.Request().Context())
	if err != nil {
		recordUpstreamOutcome(err)
		return writeError(c, err)
	}

	prometheus.RecordUpstreamCall("crm", "success")
	prometheus.UpdateCacheSizes(companies, contacts)
	log.Info("CRM sync completed",
		zap.Int("companies", companies),
		zap.Int("contacts", contacts))
	return c.JSON(http.StatusOK, echo.Map{
		"synced_companies": companies,
		"synced_contacts":  contacts,
	})
}

// SyncCompanyContacts refreshes the contacts of one company by its Raynet ID
func (h *CRMHandler) SyncCompanyContacts(c echo.Context) error {
	log := logger.FromContext(c)
	raynetID := c.Param("raynetId")

	defer prometheus.TrackUpstreamCall("crm")(time.Now())

	contacts, err := h.sync.SyncContactsForCompany(c.Request().Context(), raynetID)
	if err != nil {
		recordUpstreamOutcome(err)
		return writeError(c, err)
	}

	prometheus.RecordUpstreamCall("crm", "success")
	log.Info("Company contacts synced",
		zap.String("raynet_company_id", raynetID),
		zap.Int("contacts", len(contacts)))
	return c.JSON(http.StatusOK, echo.Map{
		"synced_contacts": len(contacts),
	})
}
