package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"offer-service/internal/model"
	"offer-service/pkg/raynet"
	"offer-service/pkg/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CRMGateway is the write surface of the CRM used during write-back.
type CRMGateway interface {
	CreateOpportunity(ctx context.Context, params raynet.OpportunityParams) (json.RawMessage, error)
	UploadDocument(ctx context.Context, name string, opportunityID int64, pdf []byte, filename string) (json.RawMessage, error)
	CreateActivity(ctx context.Context, params raynet.ActivityParams) (json.RawMessage, error)
}

// WritebackService pushes a generated offer into the CRM: opportunity,
// document, activity, then the status transition to sent. Remote side
// effects are durable and are not rolled back when a later step fails; the
// opportunity reference is committed locally as soon as it is known so a
// partial failure still leaves it discoverable for manual reconciliation.
type WritebackService struct {
	db     *gorm.DB
	offers *OfferService
	store  storage.Store
	crm    CRMGateway
	locks  *OfferLocks
	log    *zap.Logger
}

func NewWritebackService(db *gorm.DB, offers *OfferService, store storage.Store, crm CRMGateway, locks *OfferLocks, log *zap.Logger) *WritebackService {
	if locks == nil {
		locks = NewOfferLocks()
	}
	return &WritebackService{db: db, offers: offers, store: store, crm: crm, locks: locks, log: log}
}

// SendToCRM runs the full write-back flow for one offer.
func (s *WritebackService) SendToCRM(ctx context.Context, id string, estimatedValue *float64) (*model.Offer, error) {
	offer, err := s.offers.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	release := s.locks.acquire(offer.ID)
	defer release()

	if offer.RaynetCompanyID == "" {
		return nil, &PreconditionError{Reason: "Offer has no Raynet company ID. Select a CRM company when creating the offer."}
	}
	if offer.DocumentPath == "" || !s.store.Exists(offer.DocumentPath) {
		return nil, &PreconditionError{Reason: "PDF not generated yet. Generate the PDF first."}
	}

	companyID, err := strconv.ParseInt(offer.RaynetCompanyID, 10, 64)
	if err != nil {
		return nil, &ValidationError{Reason: "Offer has a malformed Raynet company ID."}
	}

	var personID *int64
	if offer.RaynetContactID != "" {
		parsed, err := strconv.ParseInt(offer.RaynetContactID, 10, 64)
		if err != nil {
			s.log.Warn("Ignoring malformed Raynet contact ID",
				zap.String("offer_id", offer.ID.String()),
				zap.String("raynet_contact_id", offer.RaynetContactID))
		} else {
			personID = &parsed
		}
	}

	// 1. Create the opportunity.
	raw, err := s.crm.CreateOpportunity(ctx, raynet.OpportunityParams{
		Name:           "Oferta: " + offer.Title,
		CompanyID:      companyID,
		PersonID:       personID,
		EstimatedValue: estimatedValue,
		ValidFrom:      offer.CreatedAt.Format("2006-01-02"),
		ValidTill:      offer.ValidUntilString(),
	})
	if err != nil {
		return nil, upstream("crm", err)
	}

	opportunityID, err := raynet.ExtractOpportunityID(raw)
	if err != nil {
		return nil, upstream("crm", err)
	}

	// 2. Persist the opportunity reference before any further remote call.
	offer.RaynetOpportunityID = &opportunityID
	if err := s.db.WithContext(ctx).Save(offer).Error; err != nil {
		return nil, fmt.Errorf("persist opportunity reference: %w", err)
	}
	s.log.Info("Opportunity created",
		zap.String("offer_id", offer.ID.String()),
		zap.Int64("opportunity_id", opportunityID))

	// 3. Attach the rendered PDF to the opportunity.
	pdf, err := s.store.Read(offer.DocumentPath)
	if err != nil {
		return nil, fmt.Errorf("read offer document: %w", err)
	}
	filename := fmt.Sprintf("offer_%s.pdf", offer.ID)
	if _, err := s.crm.UploadDocument(ctx, "Oferta "+offer.Title, opportunityID, pdf, filename); err != nil {
		return nil, upstream("crm", err)
	}

	// 4. Log the outbound activity.
	note := "Oferta PDF wysłana do klienta"
	if name := offer.ContactFullName(); name != "" {
		note += " (" + name + ")"
	}
	note += "."
	if _, err := s.crm.CreateActivity(ctx, raynet.ActivityParams{
		Subject:       "Wysłanie oferty: " + offer.Title,
		CompanyID:     companyID,
		PersonID:      personID,
		OpportunityID: &opportunityID,
		Note:          note,
	}); err != nil {
		return nil, upstream("crm", err)
	}

	// 5. All remote calls succeeded; advance the status.
	if current := Status(offer.Status); !current.CanTransition(StatusSent) {
		s.log.Warn("Sending outside the canonical lifecycle order",
			zap.String("offer_id", offer.ID.String()),
			zap.String("status", offer.Status))
	}
	offer.Status = string(StatusSent)
	if err := s.db.WithContext(ctx).Save(offer).Error; err != nil {
		return nil, fmt.Errorf("update offer after write-back: %w", err)
	}

	s.log.Info("Offer sent to CRM",
		zap.String("offer_id", offer.ID.String()),
		zap.Int64("opportunity_id", opportunityID))
	return offer, nil
}
