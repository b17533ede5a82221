package service

import (
	"context"
	"encoding/json"
	"testing"

	"offer-service/pkg/raynet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCRM struct {
	opportunityResp json.RawMessage
	opportunityErr  error
	uploadErr       error
	activityErr     error

	opportunities []raynet.OpportunityParams
	uploads       []string
	uploadedPDF   []byte
	activities    []raynet.ActivityParams
}

func (f *fakeCRM) CreateOpportunity(ctx context.Context, params raynet.OpportunityParams) (json.RawMessage, error) {
	f.opportunities = append(f.opportunities, params)
	if f.opportunityErr != nil {
		return nil, f.opportunityErr
	}
	if f.opportunityResp == nil {
		return json.RawMessage(`{"data":{"id":99}}`), nil
	}
	return f.opportunityResp, nil
}

func (f *fakeCRM) UploadDocument(ctx context.Context, name string, opportunityID int64, pdf []byte, filename string) (json.RawMessage, error) {
	f.uploads = append(f.uploads, name)
	f.uploadedPDF = pdf
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return json.RawMessage(`{"data":{"id":1}}`), nil
}

func (f *fakeCRM) CreateActivity(ctx context.Context, params raynet.ActivityParams) (json.RawMessage, error) {
	f.activities = append(f.activities, params)
	if f.activityErr != nil {
		return nil, f.activityErr
	}
	return json.RawMessage(`{"id":2}`), nil
}

func setupWriteback(t *testing.T, crm *fakeCRM, input CreateOfferInput) (*WritebackService, *OfferService, string) {
	t.Helper()
	offers, db, store := newTestOfferService(t)
	offer := createDraft(t, offers, input)
	writeback := NewWritebackService(db, offers, store, crm, nil, zap.NewNop())
	return writeback, offers, offer.ID.String()
}

func attachDocument(t *testing.T, offers *OfferService, id string) {
	t.Helper()
	ctx := context.Background()
	offer, err := offers.Get(ctx, id)
	require.NoError(t, err)

	key := documentKey(offer.ID)
	require.NoError(t, offers.store.Save(key, []byte("%PDF-doc")))
	offer.DocumentPath = key
	offer.Status = string(StatusGenerated)
	require.NoError(t, offers.db.Save(offer).Error)
}

func TestSendToCRMRequiresCompanyLink(t *testing.T) {
	writeback, _, id := setupWriteback(t, &fakeCRM{}, CreateOfferInput{})

	_, err := writeback.SendToCRM(context.Background(), id, nil)

	var pErr *PreconditionError
	require.ErrorAs(t, err, &pErr)
	assert.Contains(t, pErr.Reason, "Raynet company")
}

func TestSendToCRMRequiresDocument(t *testing.T) {
	writeback, _, id := setupWriteback(t, &fakeCRM{}, CreateOfferInput{RaynetCompanyID: "42"})

	_, err := writeback.SendToCRM(context.Background(), id, nil)

	var pErr *PreconditionError
	require.ErrorAs(t, err, &pErr)
	assert.Contains(t, pErr.Reason, "PDF not generated")
}

func TestSendToCRMHappyPath(t *testing.T) {
	crm := &fakeCRM{}
	writeback, offers, id := setupWriteback(t, crm, CreateOfferInput{
		RaynetCompanyID:  "42",
		RaynetContactID:  "7",
		ContactFirstName: "Jan",
		ContactLastName:  "Kowalski",
		Title:            "Wdrożenie systemu",
		ValidUntil:       "2026-09-30",
	})
	attachDocument(t, offers, id)

	value := 1500.0
	offer, err := writeback.SendToCRM(context.Background(), id, &value)
	require.NoError(t, err)

	assert.Equal(t, string(StatusSent), offer.Status)
	require.NotNil(t, offer.RaynetOpportunityID)
	assert.Equal(t, int64(99), *offer.RaynetOpportunityID)

	require.Len(t, crm.opportunities, 1)
	opp := crm.opportunities[0]
	assert.Equal(t, "Oferta: Wdrożenie systemu", opp.Name)
	assert.Equal(t, int64(42), opp.CompanyID)
	require.NotNil(t, opp.PersonID)
	assert.Equal(t, int64(7), *opp.PersonID)
	require.NotNil(t, opp.EstimatedValue)
	assert.Equal(t, 1500.0, *opp.EstimatedValue)
	assert.Equal(t, "2026-09-30", opp.ValidTill)
	assert.NotEmpty(t, opp.ValidFrom)

	require.Len(t, crm.uploads, 1)
	assert.Equal(t, "Oferta Wdrożenie systemu", crm.uploads[0])
	assert.Equal(t, []byte("%PDF-doc"), crm.uploadedPDF)

	require.Len(t, crm.activities, 1)
	act := crm.activities[0]
	assert.Equal(t, "Wysłanie oferty: Wdrożenie systemu", act.Subject)
	require.NotNil(t, act.OpportunityID)
	assert.Equal(t, int64(99), *act.OpportunityID)
	assert.Equal(t, "Oferta PDF wysłana do klienta (Jan Kowalski).", act.Note)
}

func TestSendToCRMActivityNoteWithoutContact(t *testing.T) {
	crm := &fakeCRM{}
	writeback, offers, id := setupWriteback(t, crm, CreateOfferInput{RaynetCompanyID: "42", Title: "Oferta"})
	attachDocument(t, offers, id)

	_, err := writeback.SendToCRM(context.Background(), id, nil)
	require.NoError(t, err)

	require.Len(t, crm.activities, 1)
	assert.Equal(t, "Oferta PDF wysłana do klienta.", crm.activities[0].Note)
	assert.Nil(t, crm.opportunities[0].PersonID)
	assert.Nil(t, crm.opportunities[0].EstimatedValue)
}

func TestSendToCRMPartialFailureKeepsOpportunityRef(t *testing.T) {
	crm := &fakeCRM{uploadErr: &raynet.RequestError{Method: "POST", Path: "/document", Status: 500, Body: "boom"}}
	writeback, offers, id := setupWriteback(t, crm, CreateOfferInput{RaynetCompanyID: "42"})
	attachDocument(t, offers, id)

	_, err := writeback.SendToCRM(context.Background(), id, nil)

	var uErr *UpstreamError
	require.ErrorAs(t, err, &uErr)
	assert.Equal(t, "crm", uErr.Service)

	// the opportunity reference survives, the status does not advance
	offer, err := offers.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, offer.RaynetOpportunityID)
	assert.Equal(t, int64(99), *offer.RaynetOpportunityID)
	assert.Equal(t, string(StatusGenerated), offer.Status)
	assert.Empty(t, crm.activities)
}

func TestSendToCRMOpportunityWithoutID(t *testing.T) {
	crm := &fakeCRM{opportunityResp: json.RawMessage(`{"result":"ok"}`)}
	writeback, offers, id := setupWriteback(t, crm, CreateOfferInput{RaynetCompanyID: "42"})
	attachDocument(t, offers, id)

	_, err := writeback.SendToCRM(context.Background(), id, nil)

	var uErr *UpstreamError
	require.ErrorAs(t, err, &uErr)
	assert.Contains(t, uErr.Detail, "opportunity id")

	offer, err := offers.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, offer.RaynetOpportunityID)
	assert.Equal(t, string(StatusGenerated), offer.Status)
}

func TestSendToCRMNotConfigured(t *testing.T) {
	crm := &fakeCRM{opportunityErr: raynet.ErrNotConfigured}
	writeback, offers, id := setupWriteback(t, crm, CreateOfferInput{RaynetCompanyID: "42"})
	attachDocument(t, offers, id)

	_, err := writeback.SendToCRM(context.Background(), id, nil)

	// a configuration gap surfaces as an upstream-class failure, not a
	// silent success
	var uErr *UpstreamError
	require.ErrorAs(t, err, &uErr)
	assert.ErrorIs(t, err, raynet.ErrNotConfigured)
}
