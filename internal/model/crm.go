package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CrmCompany is a read-cache mirror of a Raynet company record, keyed by the
// Raynet external id. Rows are refreshed by sync and never deleted.
type CrmCompany struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	RaynetID  string    `json:"raynet_id" gorm:"type:varchar(50);uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"type:varchar(200);not null"`
	NIP       string    `json:"nip" gorm:"type:varchar(50)"`
	Address   string    `json:"address" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *CrmCompany) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CrmContact is a read-cache mirror of a Raynet person record. CompanyID is a
// nullable link to a cached company, populated opportunistically during sync.
type CrmContact struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	RaynetID  string     `json:"raynet_id" gorm:"type:varchar(50);uniqueIndex;not null"`
	CompanyID *uuid.UUID `json:"company_id" gorm:"type:uuid;index"`
	FirstName string     `json:"first_name" gorm:"type:varchar(100)"`
	LastName  string     `json:"last_name" gorm:"type:varchar(100)"`
	Phone     string     `json:"phone" gorm:"type:varchar(50)"`
	Email     string     `json:"email" gorm:"type:varchar(200)"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (c *CrmContact) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
