package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"offer-service/internal/service"
	"offer-service/pkg/logger"
	"offer-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// OfferRequest defines the structure for offer creation requests. The company
// and contact fields are a snapshot taken by the client at creation time.
type OfferRequest struct {
	RaynetCompanyID  string `json:"raynet_company_id"`
	RaynetContactID  string `json:"raynet_contact_id"`
	CompanyName      string `json:"company_name" validate:"required"`
	CompanyNIP       string `json:"company_nip"`
	CompanyAddress   string `json:"company_address"`
	ContactFirstName string `json:"contact_first_name"`
	ContactLastName  string `json:"contact_last_name"`
	ContactPhone     string `json:"contact_phone"`
	ContactEmail     string `json:"contact_email"`
	Title            string `json:"title" validate:"required"`
	ValidUntil       string `json:"valid_until"`
}

// StatusRequest defines the structure for manual status updates
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// SendToCRMRequest carries the optional opportunity value for the write-back
type SendToCRMRequest struct {
	EstimatedValue *float64 `json:"estimated_value"`
}

// OfferHandler exposes the offer lifecycle over HTTP
type OfferHandler struct {
	offers    *service.OfferService
	pipeline  *service.GenerationPipeline
	writeback *service.WritebackService
}

func NewOfferHandler(offers *service.OfferService, pipeline *service.GenerationPipeline, writeback *service.WritebackService) *OfferHandler {
	return &OfferHandler{offers: offers, pipeline: pipeline, writeback: writeback}
}

// Register wires the offer routes into the given group
func (h *OfferHandler) Register(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id/status", h.UpdateStatus)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/upload-description", h.UploadDescription)
	g.POST("/:id/generate-pdf", h.GeneratePDF)
	g.POST("/:id/send-to-crm", h.SendToCRM)
	g.GET("/:id/download-pdf", h.DownloadPDF)
}

// Create creates a new draft offer
func (h *OfferHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOfferOperation("create")

	var req OfferRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	log.Info("Offer creation request",
		zap.String("company", req.CompanyName),
		zap.String("title", req.Title))

	defer prometheus.TrackDBOperation("insert")(time.Now())

	offer, err := h.offers.Create(c.Request().Context(), service.CreateOfferInput{
		RaynetCompanyID:  req.RaynetCompanyID,
		RaynetContactID:  req.RaynetContactID,
		CompanyName:      req.CompanyName,
		CompanyNIP:       req.CompanyNIP,
		CompanyAddress:   req.CompanyAddress,
		ContactFirstName: req.ContactFirstName,
		ContactLastName:  req.ContactLastName,
		ContactPhone:     req.ContactPhone,
		ContactEmail:     req.ContactEmail,
		Title:            req.Title,
		ValidUntil:       req.ValidUntil,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, offer)
}

// List returns all offers, newest first
func (h *OfferHandler) List(c echo.Context) error {
	prometheus.RecordOfferOperation("list")

	defer prometheus.TrackDBOperation("query")(time.Now())

	offers, err := h.offers.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, offers)
}

// Get returns a single offer by ID
func (h *OfferHandler) Get(c echo.Context) error {
	prometheus.RecordOfferOperation("get")

	defer prometheus.TrackDBOperation("query")(time.Now())

	offer, err := h.offers.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, offer)
}

// UpdateStatus sets the offer status to any allowed value
func (h *OfferHandler) UpdateStatus(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOfferOperation("update_status")

	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	offer, err := h.offers.UpdateStatus(c.Request().Context(), c.Param("id"), req.Status)
	if err != nil {
		return writeError(c, err)
	}

	log.Info("Offer status updated",
		zap.String("offer_id", offer.ID.String()),
		zap.String("status", offer.Status))
	return c.JSON(http.StatusOK, offer)
}

// Delete removes an offer together with its stored artifacts
func (h *OfferHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOfferOperation("delete")

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := h.offers.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}

	log.Info("Offer deleted", zap.String("offer_id", c.Param("id")))
	return c.JSON(http.StatusOK, echo.Map{"message": "Offer deleted successfully"})
}

// UploadDescription accepts a .txt or .md description file for the offer
func (h *OfferHandler) UploadDescription(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOfferOperation("upload_description")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Error("Missing description file", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "No file uploaded"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		log.Error("Failed to open uploaded file", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Failed to read uploaded file"})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		log.Error("Failed to read uploaded file", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Failed to read uploaded file"})
	}

	offer, err := h.offers.AttachDescription(
		c.Request().Context(),
		c.Param("id"),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		data,
	)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, offer)
}

// GeneratePDF runs the AI content generation and PDF rendering pipeline
func (h *OfferHandler) GeneratePDF(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOfferOperation("generate_pdf")

	log.Info("Generating offer PDF", zap.String("offer_id", c.Param("id")))

	defer prometheus.TrackUpstreamCall("generation")(time.Now())

	offer, err := h.pipeline.Generate(c.Request().Context(), c.Param("id"))
	if err != nil {
		recordUpstreamOutcome(err)
		return writeError(c, err)
	}

	prometheus.RecordUpstreamCall("generation", "success")
	log.Info("Offer PDF generated",
		zap.String("offer_id", offer.ID.String()),
		zap.String("document_path", offer.DocumentPath))
	return c.JSON(http.StatusOK, offer)
}

// SendToCRM pushes the offer to Raynet as opportunity, document and activity
func (h *OfferHandler) SendToCRM(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOfferOperation("send_to_crm")

	var req SendToCRMRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	log.Info("Sending offer to CRM", zap.String("offer_id", c.Param("id")))

	defer prometheus.TrackUpstreamCall("crm")(time.Now())

	offer, err := h.writeback.SendToCRM(c.Request().Context(), c.Param("id"), req.EstimatedValue)
	if err != nil {
		recordUpstreamOutcome(err)
		return writeError(c, err)
	}

	prometheus.RecordUpstreamCall("crm", "success")
	log.Info("Offer sent to CRM",
		zap.String("offer_id", offer.ID.String()),
		zap.Int64p("opportunity_id", offer.RaynetOpportunityID))
	return c.JSON(http.StatusOK, offer)
}

// DownloadPDF streams the rendered offer document
func (h *OfferHandler) DownloadPDF(c echo.Context) error {
	prometheus.RecordOfferOperation("download_pdf")

	offer, pdf, err := h.offers.DocumentPDF(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="offer_%s.pdf"`, offer.Title))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
