package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Offer is the central record representing a commercial proposal to a client.
// Client data is captured once at creation time and never resynced from the
// CRM cache, so the offer reflects the client state at the time it was made.
type Offer struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	// Raynet CRM references (needed for write-back)
	RaynetCompanyID     string `json:"raynet_company_id" gorm:"type:varchar(50);index"`
	RaynetContactID     string `json:"raynet_contact_id" gorm:"type:varchar(50)"`
	RaynetOpportunityID *int64 `json:"raynet_opportunity_id"`

	// Client snapshot (frozen at offer creation time)
	CompanyName      string `json:"company_name" gorm:"type:varchar(200);not null"`
	CompanyNIP       string `json:"company_nip" gorm:"type:varchar(50)"`
	CompanyAddress   string `json:"company_address" gorm:"type:text"`
	ContactFirstName string `json:"contact_first_name" gorm:"type:varchar(100)"`
	ContactLastName  string `json:"contact_last_name" gorm:"type:varchar(100)"`
	ContactPhone     string `json:"contact_phone" gorm:"type:varchar(50)"`
	ContactEmail     string `json:"contact_email" gorm:"type:varchar(200)"`

	// Offer data
	Title              string     `json:"title" gorm:"type:varchar(300);not null"`
	ValidUntil         *time.Time `json:"valid_until" gorm:"type:date"`
	DescriptionPath    string     `json:"description_path" gorm:"type:text"`
	Status             string     `json:"status" gorm:"type:varchar(20);not null;default:draft"`
	DocumentPath       string     `json:"document_path" gorm:"type:text"`
	AIGeneratedContent string     `json:"ai_generated_content" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a fresh UUID primary key
func (o *Offer) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// ContactFullName joins first and last name, dropping empty parts.
func (o *Offer) ContactFullName() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{o.ContactFirstName, o.ContactLastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// ValidUntilString returns the validity date as an ISO date string, empty
// when no validity date is set.
func (o *Offer) ValidUntilString() string {
	if o.ValidUntil == nil {
		return ""
	}
	return o.ValidUntil.Format("2006-01-02")
}
