package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"offer-service/internal/model"
	"offer-service/pkg/raynet"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CRMReader is the read surface of the CRM used by the cache sync.
type CRMReader interface {
	ListCompanies(ctx context.Context) ([]raynet.Company, error)
	ListPersons(ctx context.Context, companyID string) ([]raynet.Person, error)
}

// SyncService refreshes the local company/contact read cache from the CRM.
// Upserts match on the Raynet external id; non-empty remote values overwrite
// local ones, empty remote values never clear them; nothing is ever deleted.
// Failures are returned to the caller instead of being swallowed so "zero
// remote records" and "sync failed" stay distinguishable.
type SyncService struct {
	db  *gorm.DB
	crm CRMReader
	log *zap.Logger
}

func NewSyncService(db *gorm.DB, crm CRMReader, log *zap.Logger) *SyncService {
	return &SyncService{db: db, crm: crm, log: log}
}

// SyncCompanies lists remote companies and upserts them into the cache.
func (s *SyncService) SyncCompanies(ctx context.Context) ([]model.CrmCompany, error) {
	remote, err := s.crm.ListCompanies(ctx)
	if err != nil {
		return nil, upstream("crm", err)
	}

	synced := make([]model.CrmCompany, 0, len(remote))
	for _, item := range remote {
		if item.ID == 0 {
			continue
		}
		raynetID := strconv.FormatInt(item.ID, 10)

		var company model.CrmCompany
		err := s.db.WithContext(ctx).Where("raynet_id = ?", raynetID).First(&company).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			company = model.CrmCompany{
				RaynetID: raynetID,
				Name:     item.Name,
				NIP:      item.RegNumber,
				Address:  item.FormatAddress(),
			}
		case err != nil:
			return nil, fmt.Errorf("lookup cached company: %w", err)
		default:
			mergeNonEmpty(&company.Name, item.Name)
			mergeNonEmpty(&company.NIP, item.RegNumber)
			mergeNonEmpty(&company.Address, item.FormatAddress())
		}

		if err := s.db.WithContext(ctx).Save(&company).Error; err != nil {
			return nil, fmt.Errorf("upsert cached company: %w", err)
		}
		synced = append(synced, company)
	}

	s.log.Info("Synced companies from Raynet", zap.Int("count", len(synced)))
	return synced, nil
}

// SyncContactsForCompany lists remote persons of one company and upserts
// them. The local company link is populated opportunistically; its absence
// does not block the contact sync.
func (s *SyncService) SyncContactsForCompany(ctx context.Context, raynetCompanyID string) ([]model.CrmContact, error) {
	var localCompanyID *uuid.UUID
	var company model.CrmCompany
	err := s.db.WithContext(ctx).Where("raynet_id = ?", raynetCompanyID).First(&company).Error
	if err == nil {
		localCompanyID = &company.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup cached company: %w", err)
	}

	remote, err := s.crm.ListPersons(ctx, raynetCompanyID)
	if err != nil {
		return nil, upstream("crm", err)
	}

	synced := make([]model.CrmContact, 0, len(remote))
	for _, item := range remote {
		if item.ID == 0 {
			continue
		}
		raynetID := strconv.FormatInt(item.ID, 10)

		var contact model.CrmContact
		err := s.db.WithContext(ctx).Where("raynet_id = ?", raynetID).First(&contact).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			contact = model.CrmContact{
				RaynetID:  raynetID,
				CompanyID: localCompanyID,
				FirstName: item.FirstName,
				LastName:  item.LastName,
				Phone:     item.ContactInfo.Tel1,
				Email:     item.ContactInfo.Email,
			}
		case err != nil:
			return nil, fmt.Errorf("lookup cached contact: %w", err)
		default:
			mergeNonEmpty(&contact.FirstName, item.FirstName)
			mergeNonEmpty(&contact.LastName, item.LastName)
			mergeNonEmpty(&contact.Phone, item.ContactInfo.Tel1)
			mergeNonEmpty(&contact.Email, item.ContactInfo.Email)
			if localCompanyID != nil {
				contact.CompanyID = localCompanyID
			}
		}

		if err := s.db.WithContext(ctx).Save(&contact).Error; err != nil {
			return nil, fmt.Errorf("upsert cached contact: %w", err)
		}
		synced = append(synced, contact)
	}

	s.log.Info("Synced contacts for company",
		zap.String("raynet_company_id", raynetCompanyID),
		zap.Int("count", len(synced)))
	return synced, nil
}

// SyncAll refreshes companies and then the contacts of every cached company.
// Returns the synced counts.
func (s *SyncService) SyncAll(ctx context.Context) (int, int, error) {
	companies, err := s.SyncCompanies(ctx)
	if err != nil {
		return 0, 0, err
	}

	cached, err := s.Companies(ctx)
	if err != nil {
		return len(companies), 0, err
	}

	contacts := 0
	for _, company := range cached {
		synced, err := s.SyncContactsForCompany(ctx, company.RaynetID)
		if err != nil {
			return len(companies), contacts, err
		}
		contacts += len(synced)
	}

	return len(companies), contacts, nil
}

// Companies returns all cached companies.
func (s *SyncService) Companies(ctx context.Context) ([]model.CrmCompany, error) {
	var companies []model.CrmCompany
	if err := s.db.WithContext(ctx).Order("name").Find(&companies).Error; err != nil {
		return nil, fmt.Errorf("list cached companies: %w", err)
	}
	return companies, nil
}

// ContactsForCompany returns the cached contacts linked to one company by
// its local id.
func (s *SyncService) ContactsForCompany(ctx context.Context, companyID string) ([]model.CrmContact, error) {
	uid, err := uuid.Parse(companyID)
	if err != nil {
		return nil, ErrCompanyNotFound
	}

	var company model.CrmCompany
	if err := s.db.WithContext(ctx).Where("id = ?", uid).First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("lookup cached company: %w", err)
	}

	var contacts []model.CrmContact
	if err := s.db.WithContext(ctx).Where("company_id = ?", uid).Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("list cached contacts: %w", err)
	}
	return contacts, nil
}

func mergeNonEmpty(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
