package service

import (
	"context"
	"fmt"
	"testing"

	"offer-service/internal/model"
	"offer-service/pkg/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory sqlite database with the schema
// migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Offer{}, &model.CrmCompany{}, &model.CrmContact{}))
	return db
}

func newTestOfferService(t *testing.T) (*OfferService, *gorm.DB, *storage.FileStore) {
	t.Helper()
	db := newTestDB(t)
	store := storage.NewFileStore(t.TempDir())
	return NewOfferService(db, store, zap.NewNop()), db, store
}

func createDraft(t *testing.T, offers *OfferService, input CreateOfferInput) *model.Offer {
	t.Helper()
	if input.CompanyName == "" {
		input.CompanyName = "Acme Sp. z o.o."
	}
	if input.Title == "" {
		input.Title = "Wdrożenie systemu"
	}
	offer, err := offers.Create(context.Background(), input)
	require.NoError(t, err)
	return offer
}
