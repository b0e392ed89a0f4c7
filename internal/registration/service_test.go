package registration_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-registration/internal/domain"
	"ms-registration/internal/models"
	"ms-registration/internal/registration"
	"ms-registration/internal/visitor"
)

// Mock implementations

type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	args := m.Called(reg)
	return args.Error(0)
}

func (m *MockDBLayer) GetRegistrationByID(ctx context.Context, id string) (*models.Registration, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Registration), args.Error(1)
}

func (m *MockDBLayer) GetRegistrationByNumber(ctx context.Context, number string) (*models.Registration, error) {
	args := m.Called(number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Registration), args.Error(1)
}

func (m *MockDBLayer) GetRegistrationByVisitorAndExhibition(ctx context.Context, visitorID, exhibitionID string) (*models.Registration, error) {
	args := m.Called(visitorID, exhibitionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Registration), args.Error(1)
}

func (m *MockDBLayer) BumpVisitorRegistration(ctx context.Context, visitorID string) error {
	args := m.Called(visitorID)
	return args.Error(0)
}

func (m *MockDBLayer) SetBadgeFile(ctx context.Context, registrationID, fileName string) error {
	args := m.Called(registrationID, fileName)
	return args.Error(0)
}

func (m *MockDBLayer) GetVisitorByID(ctx context.Context, id string) (*models.Visitor, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Visitor), args.Error(1)
}

func (m *MockDBLayer) GetExhibitionByID(ctx context.Context, id string) (*models.Exhibition, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Exhibition), args.Error(1)
}

func (m *MockDBLayer) GetPricingTier(ctx context.Context, id string) (*models.PricingTier, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PricingTier), args.Error(1)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, in visitor.Input) (*models.Visitor, error) {
	args := m.Called(in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Visitor), args.Error(1)
}

type MockSequences struct {
	mock.Mock
}

func (m *MockSequences) NextRegistrationNumber(ctx context.Context, day time.Time) (string, error) {
	args := m.Called(day)
	return args.String(0), args.Error(1)
}

type MockBadges struct {
	mock.Mock
}

func (m *MockBadges) Generate(ctx context.Context, reg *models.Registration, vis *models.Visitor, ex *models.Exhibition) (string, error) {
	args := m.Called(reg, vis, ex)
	return args.String(0), args.Error(1)
}

func (m *MockBadges) Latest(registrationID string) (string, bool) {
	args := m.Called(registrationID)
	return args.String(0), args.Bool(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishRegistrationCreated(reg models.Registration) error {
	args := m.Called(reg)
	return args.Error(0)
}

func (m *MockPublisher) PublishBadgeGenerated(registrationNumber, fileName string) error {
	args := m.Called(registrationNumber, fileName)
	return args.Error(0)
}

// Fixtures

var testNow = time.Date(2025, 11, 14, 10, 0, 0, 0, time.UTC)

func publishedExhibition() *models.Exhibition {
	return &models.Exhibition{
		ID:                    "ex-1",
		Name:                  "Tech Expo",
		Status:                models.ExhibitionPublished,
		StartDate:             testNow.Add(24 * time.Hour),
		EndDate:               testNow.Add(72 * time.Hour),
		RegistrationStartDate: testNow.Add(-24 * time.Hour),
		RegistrationEndDate:   testNow.Add(24 * time.Hour),
	}
}

func testVisitor() *models.Visitor {
	return &models.Visitor{ID: "vis-1", Name: "Asha Rao", Phone: "9876543210"}
}

func newService(db *MockDBLayer, resolver *MockResolver, sequences *MockSequences, badges *MockBadges, publisher *MockPublisher) *registration.Service {
	svc := registration.NewService(db, resolver, sequences, badges, publisher, nil)
	svc.Now = func() time.Time { return testNow }
	return svc
}

func TestCreate_Success(t *testing.T) {
	db := new(MockDBLayer)
	resolver := new(MockResolver)
	sequences := new(MockSequences)
	badges := new(MockBadges)
	publisher := new(MockPublisher)

	db.On("GetExhibitionByID", "ex-1").Return(publishedExhibition(), nil)
	resolver.On("Resolve", mock.Anything).Return(testVisitor(), nil)
	db.On("GetRegistrationByVisitorAndExhibition", "vis-1", "ex-1").Return(nil, domain.ErrNotFound)
	sequences.On("NextRegistrationNumber", testNow).Return("REG-14112025-000001", nil)
	db.On("CreateRegistration", mock.Anything).Return(nil)
	db.On("BumpVisitorRegistration", "vis-1").Return(nil)
	badges.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("reg-1-v1.png", nil)
	db.On("SetBadgeFile", mock.Anything, "reg-1-v1.png").Return(nil)
	publisher.On("PublishRegistrationCreated", mock.Anything).Return(nil)
	publisher.On("PublishBadgeGenerated", "REG-14112025-000001", "reg-1-v1.png").Return(nil)

	svc := newService(db, resolver, sequences, badges, publisher)
	resp, err := svc.Create(context.Background(), registration.Request{
		ExhibitionID: "ex-1",
		Visitor:      visitor.Input{Name: "Asha Rao", Phone: "9876543210"},
	})

	require.NoError(t, err)
	assert.Equal(t, "REG-14112025-000001", resp.RegistrationNumber)
	assert.Equal(t, "REG-14112025-000001", resp.QRData, "QR payload is the bare registration number")
	require.NotNil(t, resp.BadgeURL)
	assert.Contains(t, *resp.BadgeURL, "/badge")
	db.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestCreate_BadgeFailureDegradesToPlainQR(t *testing.T) {
	db := new(MockDBLayer)
	resolver := new(MockResolver)
	sequences := new(MockSequences)
	badges := new(MockBadges)
	publisher := new(MockPublisher)

	db.On("GetExhibitionByID", "ex-1").Return(publishedExhibition(), nil)
	resolver.On("Resolve", mock.Anything).Return(testVisitor(), nil)
	db.On("GetRegistrationByVisitorAndExhibition", "vis-1", "ex-1").Return(nil, domain.ErrNotFound)
	sequences.On("NextRegistrationNumber", testNow).Return("REG-14112025-000002", nil)
	db.On("CreateRegistration", mock.Anything).Return(nil)
	db.On("BumpVisitorRegistration", "vis-1").Return(nil)
	badges.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("logo fetch failed"))
	publisher.On("PublishRegistrationCreated", mock.Anything).Return(nil)

	svc := newService(db, resolver, sequences, badges, publisher)
	resp, err := svc.Create(context.Background(), registration.Request{
		ExhibitionID: "ex-1",
		Visitor:      visitor.Input{Name: "Asha Rao", Phone: "9876543210"},
	})

	require.NoError(t, err, "badge failure must not fail the registration")
	assert.Nil(t, resp.BadgeURL)
	assert.Equal(t, "REG-14112025-000002", resp.QRData)
}

func TestCreate_DuplicatePreCheck(t *testing.T) {
	db := new(MockDBLayer)
	resolver := new(MockResolver)
	sequences := new(MockSequences)

	db.On("GetExhibitionByID", "ex-1").Return(publishedExhibition(), nil)
	resolver.On("Resolve", mock.Anything).Return(testVisitor(), nil)
	db.On("GetRegistrationByVisitorAndExhibition", "vis-1", "ex-1").
		Return(&models.Registration{RegistrationNumber: "REG-14112025-000001"}, nil)

	svc := newService(db, resolver, sequences, new(MockBadges), new(MockPublisher))
	_, err := svc.Create(context.Background(), registration.Request{
		ExhibitionID: "ex-1",
		Visitor:      visitor.Input{Phone: "9876543210"},
	})

	assert.ErrorIs(t, err, domain.ErrAlreadyRegistered)
	sequences.AssertNotCalled(t, "NextRegistrationNumber", mock.Anything)
}

func TestCreate_UniqueIndexRaceBecomesSameConflict(t *testing.T) {
	db := new(MockDBLayer)
	resolver := new(MockResolver)
	sequences := new(MockSequences)

	db.On("GetExhibitionByID", "ex-1").Return(publishedExhibition(), nil)
	resolver.On("Resolve", mock.Anything).Return(testVisitor(), nil)
	db.On("GetRegistrationByVisitorAndExhibition", "vis-1", "ex-1").Return(nil, domain.ErrNotFound)
	sequences.On("NextRegistrationNumber", testNow).Return("REG-14112025-000003", nil)
	db.On("CreateRegistration", mock.Anything).
		Return(errors.New(`duplicate key value violates unique constraint "registrations_visitor_exhibition_unique"`))

	svc := newService(db, resolver, sequences, new(MockBadges), new(MockPublisher))
	_, err := svc.Create(context.Background(), registration.Request{
		ExhibitionID: "ex-1",
		Visitor:      visitor.Input{Phone: "9876543210"},
	})

	assert.ErrorIs(t, err, domain.ErrAlreadyRegistered,
		"the unique-index race must surface as the same conflict as the pre-check")
}

func TestCreate_RegistrationWindowBoundary(t *testing.T) {
	db := new(MockDBLayer)
	resolver := new(MockResolver)
	sequences := new(MockSequences)

	ex := publishedExhibition()
	ex.RegistrationEndDate = testNow // closes exactly now

	db.On("GetExhibitionByID", "ex-1").Return(ex, nil)
	resolver.On("Resolve", mock.Anything).Return(testVisitor(), nil)
	db.On("GetRegistrationByVisitorAndExhibition", "vis-1", "ex-1").Return(nil, domain.ErrNotFound)
	sequences.On("NextRegistrationNumber", mock.Anything).Return("REG-14112025-000004", nil)
	db.On("CreateRegistration", mock.Anything).Return(nil)
	db.On("BumpVisitorRegistration", "vis-1").Return(nil)

	svc := newService(db, resolver, sequences, nil, nil)
	svc.Badges = nil
	svc.Kafka = nil

	// Exactly at the end date: succeeds.
	_, err := svc.Create(context.Background(), registration.Request{
		ExhibitionID: "ex-1",
		Visitor:      visitor.Input{Phone: "9876543210"},
	})
	require.NoError(t, err)

	// One millisecond after: window-closed validation error.
	svc.Now = func() time.Time { return testNow.Add(time.Millisecond) }
	db2 := new(MockDBLayer)
	db2.On("GetExhibitionByID", "ex-1").Return(ex, nil)
	svc.DB = db2

	_, err = svc.Create(context.Background(), registration.Request{
		ExhibitionID: "ex-1",
		Visitor:      visitor.Input{Phone: "9876543210"},
	})
	assert.ErrorIs(t, err, domain.ErrRegistrationClosed)
}

func TestCreate_UnpublishedExhibitionRejected(t *testing.T) {
	db := new(MockDBLayer)
	ex := publishedExhibition()
	ex.Status = models.ExhibitionDraft
	db.On("GetExhibitionByID", "ex-1").Return(ex, nil)

	svc := newService(db, new(MockResolver), new(MockSequences), nil, nil)
	_, err := svc.Create(context.Background(), registration.Request{
		ExhibitionID: "ex-1",
		Visitor:      visitor.Input{Phone: "9876543210"},
	})
	assert.ErrorIs(t, err, domain.ErrRegistrationClosed)
}

func TestCreate_SequenceFailureIsFatal(t *testing.T) {
	db := new(MockDBLayer)
	resolver := new(MockResolver)
	sequences := new(MockSequences)

	db.On("GetExhibitionByID", "ex-1").Return(publishedExhibition(), nil)
	resolver.On("Resolve", mock.Anything).Return(testVisitor(), nil)
	db.On("GetRegistrationByVisitorAndExhibition", "vis-1", "ex-1").Return(nil, domain.ErrNotFound)
	sequences.On("NextRegistrationNumber", testNow).Return("", errors.New("storage unavailable"))

	svc := newService(db, resolver, sequences, nil, nil)
	_, err := svc.Create(context.Background(), registration.Request{
		ExhibitionID: "ex-1",
		Visitor:      visitor.Input{Phone: "9876543210"},
	})

	require.Error(t, err)
	db.AssertNotCalled(t, "CreateRegistration", mock.Anything)
}
