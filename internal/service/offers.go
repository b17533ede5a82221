package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"offer-service/internal/model"
	"offer-service/pkg/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Content types accepted for description uploads.
var allowedDescriptionTypes = map[string]bool{
	"text/plain":               true,
	"text/markdown":            true,
	"application/octet-stream": true,
}

// CreateOfferInput carries the client snapshot and offer data for a new
// draft. CompanyName and Title are required; ValidUntil is an optional ISO
// date string.
type CreateOfferInput struct {
	RaynetCompanyID  string
	RaynetContactID  string
	CompanyName      string
	CompanyNIP       string
	CompanyAddress   string
	ContactFirstName string
	ContactLastName  string
	ContactPhone     string
	ContactEmail     string
	Title            string
	ValidUntil       string
}

// OfferService owns the offer record store and its artifacts.
type OfferService struct {
	db    *gorm.DB
	store storage.Store
	log   *zap.Logger
}

func NewOfferService(db *gorm.DB, store storage.Store, log *zap.Logger) *OfferService {
	return &OfferService{db: db, store: store, log: log}
}

// Create stores a new draft offer with the client snapshot frozen as given.
func (s *OfferService) Create(ctx context.Context, input CreateOfferInput) (*model.Offer, error) {
	var validUntil *time.Time
	if input.ValidUntil != "" {
		parsed, err := time.Parse("2006-01-02", input.ValidUntil)
		if err != nil {
			return nil, &ValidationError{Reason: "Invalid date format. Use YYYY-MM-DD."}
		}
		validUntil = &parsed
	}

	offer := &model.Offer{
		RaynetCompanyID:  input.RaynetCompanyID,
		RaynetContactID:  input.RaynetContactID,
		CompanyName:      input.CompanyName,
		CompanyNIP:       input.CompanyNIP,
		CompanyAddress:   input.CompanyAddress,
		ContactFirstName: input.ContactFirstName,
		ContactLastName:  input.ContactLastName,
		ContactPhone:     input.ContactPhone,
		ContactEmail:     input.ContactEmail,
		Title:            input.Title,
		ValidUntil:       validUntil,
		Status:           string(StatusDraft),
	}

	if err := s.db.WithContext(ctx).Create(offer).Error; err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}

	s.log.Info("Offer created",
		zap.String("offer_id", offer.ID.String()),
		zap.String("company", offer.CompanyName),
		zap.String("title", offer.Title))
	return offer, nil
}

// List returns all offers, newest first.
func (s *OfferService) List(ctx context.Context) ([]model.Offer, error) {
	var offers []model.Offer
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&offers).Error; err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	return offers, nil
}

// Get fetches one offer. A malformed id yields ErrInvalidID, a missing one
// ErrOfferNotFound.
func (s *OfferService) Get(ctx context.Context, id string) (*model.Offer, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	return s.getByUUID(ctx, uid)
}

func (s *OfferService) getByUUID(ctx context.Context, uid uuid.UUID) (*model.Offer, error) {
	var offer model.Offer
	err := s.db.WithContext(ctx).Where("id = ?", uid).First(&offer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return &offer, nil
}

// UpdateStatus sets the status directly. Any value from the allowed set is
// accepted here; lifecycle ordering is the pipeline's and orchestrator's
// concern, not the store's.
func (s *OfferService) UpdateStatus(ctx context.Context, id, status string) (*model.Offer, error) {
	if !Status(status).Valid() {
		return nil, &ValidationError{Reason: "Invalid status. Allowed: accepted, draft, expired, generated, sent"}
	}

	offer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	offer.Status = status
	if err := s.db.WithContext(ctx).Save(offer).Error; err != nil {
		return nil, fmt.Errorf("update offer status: %w", err)
	}
	return offer, nil
}

// AttachDescription validates and stores an uploaded description file under
// the offer-scoped key, overwriting any previous upload.
func (s *OfferService) AttachDescription(ctx context.Context, id, filename, contentType string, data []byte) (*model.Offer, error) {
	offer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Drop parameters such as "; charset=utf-8" before matching.
	mediaType, _, _ := strings.Cut(contentType, ";")
	if !allowedDescriptionTypes[strings.TrimSpace(mediaType)] {
		return nil, &ValidationError{Reason: "Only .txt and .md files are accepted."}
	}

	ext := ".txt"
	if strings.HasSuffix(filename, ".md") {
		ext = ".md"
	}
	key := descriptionKey(offer.ID, ext)

	if err := s.store.Save(key, data); err != nil {
		return nil, fmt.Errorf("store description: %w", err)
	}

	offer.DescriptionPath = key
	if err := s.db.WithContext(ctx).Save(offer).Error; err != nil {
		return nil, fmt.Errorf("update offer description path: %w", err)
	}

	s.log.Info("Description uploaded",
		zap.String("offer_id", offer.ID.String()),
		zap.String("key", key),
		zap.Int("size", len(data)))
	return offer, nil
}

// Delete removes the offer record together with its artifacts. Artifact
// removal is best-effort: a missing blob is fine, anything else is logged
// and swallowed so the record still goes away.
func (s *OfferService) Delete(ctx context.Context, id string) error {
	offer, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	for _, key := range []string{offer.DescriptionPath, offer.DocumentPath} {
		if key == "" {
			continue
		}
		if err := s.store.Remove(key); err != nil {
			s.log.Warn("Failed to remove offer artifact",
				zap.String("offer_id", offer.ID.String()),
				zap.String("key", key),
				zap.Error(err))
		}
	}

	if err := s.db.WithContext(ctx).Delete(offer).Error; err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}

	s.log.Info("Offer deleted", zap.String("offer_id", offer.ID.String()))
	return nil
}

// DocumentPDF returns the offer and its rendered document bytes, or
// ErrOfferNotFound when no document has been generated or the blob is gone.
func (s *OfferService) DocumentPDF(ctx context.Context, id string) (*model.Offer, []byte, error) {
	offer, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if offer.DocumentPath == "" || !s.store.Exists(offer.DocumentPath) {
		return nil, nil, ErrOfferNotFound
	}

	pdf, err := s.store.Read(offer.DocumentPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read offer document: %w", err)
	}
	return offer, pdf, nil
}

func descriptionKey(id uuid.UUID, ext string) string {
	return fmt.Sprintf("uploads/offer_%s%s", id, ext)
}

func documentKey(id uuid.UUID) string {
	return fmt.Sprintf("pdf/offer_%s.pdf", id)
}
