package intake_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cityhelper/backend/internal/intake"
	"cityhelper/backend/internal/models"
	"cityhelper/backend/internal/session"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	args := m.Called(ctx, complaint)
	return args.Error(0)
}

func newTestMachine() (*intake.Machine, *session.MemoryStore, *mockRepo) {
	drafts := session.NewMemoryStore()
	repo := new(mockRepo)
	return intake.NewMachine(drafts, repo), drafts, repo
}

func testCitizen() *models.Citizen {
	return &models.Citizen{
		ID:         "6f1c2a34-0000-4000-8000-000000000001",
		TelegramID: 1001,
		Username:   "ivan",
	}
}

func TestStartOffersCategories(t *testing.T) {
	m, drafts, _ := newTestMachine()
	ctx := context.Background()
	citizen := testCitizen()

	reply, err := m.Start(ctx, citizen)
	require.NoError(t, err)
	assert.True(t, reply.Handled())
	assert.Equal(t, intake.KeyboardCategories, reply.Keyboard)

	draft, err := drafts.Get(ctx, citizen.TelegramID)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, models.StepCategory, draft.Step)
}

func TestGeoCategoryFullFlow(t *testing.T) {
	m, drafts, repo := newTestMachine()
	ctx := context.Background()
	citizen := testCitizen()

	var saved *models.Complaint
	repo.On("CreateComplaint", mock.Anything, mock.AnythingOfType("*models.Complaint")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*models.Complaint)
		}).
		Return(nil).Once()

	_, err := m.Start(ctx, citizen)
	require.NoError(t, err)

	reply, err := m.SelectCategory(ctx, citizen, "roads")
	require.NoError(t, err)
	assert.Equal(t, intake.KeyboardSubcategories, reply.Keyboard)
	assert.Equal(t, "roads", reply.CategoryKey)
	assert.True(t, reply.HTML)
	assert.True(t, reply.EditMessage)
	assert.Contains(t, reply.Text, "Дороги")

	reply, err = m.SelectSubcategory(ctx, citizen, 0)
	require.NoError(t, err)
	assert.Equal(t, intake.KeyboardSkip, reply.Keyboard)

	reply, err = m.Handle(ctx, citizen, intake.Input{PhotoID: "photo-abc"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "1/3")

	reply, err = m.Handle(ctx, citizen, intake.Input{Text: intake.SkipLabel})
	require.NoError(t, err)
	assert.Equal(t, intake.KeyboardGeo, reply.Keyboard)
	assert.True(t, reply.GeoRequired)

	reply, err = m.Handle(ctx, citizen, intake.Input{Location: &intake.Geo{Lat: 55.75, Long: 37.61}})
	require.NoError(t, err)
	assert.Equal(t, intake.KeyboardRemove, reply.Keyboard)

	reply, err = m.Handle(ctx, citizen, intake.Input{Text: "Большая яма у подъезда"})
	require.NoError(t, err)
	assert.Equal(t, intake.KeyboardPhone, reply.Keyboard)

	reply, err = m.Handle(ctx, citizen, intake.Input{Phone: "+79990001122"})
	require.NoError(t, err)
	assert.Equal(t, intake.KeyboardMain, reply.Keyboard)
	assert.Contains(t, reply.Text, "принята")

	repo.AssertExpectations(t)
	require.NotNil(t, saved)
	assert.Equal(t, citizen.ID, saved.CitizenID)
	assert.Equal(t, "@ivan", saved.Username)
	assert.Equal(t, "Дороги", saved.Category)
	assert.Equal(t, "Яма на дороге", saved.SubCategory)
	assert.Equal(t, "55.75,37.61", saved.Location)
	assert.Equal(t, "Большая яма у подъезда", saved.Description)
	assert.Equal(t, "+79990001122", saved.ContactPhone)
	assert.Equal(t, []string{"photo-abc"}, []string(saved.Photos))
	assert.Equal(t, models.StatusNew, saved.Status)

	draft, err := drafts.Get(ctx, citizen.TelegramID)
	require.NoError(t, err)
	assert.Nil(t, draft, "draft must be cleared after submission")
}

func TestGeoRequiredRejectsTextAddress(t *testing.T) {
	m, drafts, _ := newTestMachine()
	ctx := context.Background()
	citizen := testCitizen()

	_, err := m.Start(ctx, citizen)
	require.NoError(t, err)
	_, err = m.SelectCategory(ctx, citizen, "trash")
	require.NoError(t, err)
	_, err = m.SelectSubcategory(ctx, citizen, 0)
	require.NoError(t, err)
	_, err = m.Handle(ctx, citizen, intake.Input{Text: intake.SkipLabel})
	require.NoError(t, err)

	// Same rejection on every retry, draft untouched.
	for i := 0; i < 2; i++ {
		reply, err := m.Handle(ctx, citizen, intake.Input{Text: "ул. Ленина 5"})
		require.NoError(t, err)
		assert.Contains(t, reply.Text, "Геопозиция")

		draft, err := drafts.Get(ctx, citizen.TelegramID)
		require.NoError(t, err)
		require.NotNil(t, draft)
		assert.Equal(t, models.StepLocation, draft.Step)
		assert.Empty(t, draft.Location)
	}

	// Skip is no escape hatch either.
	reply, err := m.Handle(ctx, citizen, intake.Input{Text: intake.SkipLabel})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Геопозиция")
}

func TestPhotoLimitAdvancesToLocation(t *testing.T) {
	m, drafts, _ := newTestMachine()
	ctx := context.Background()
	citizen := testCitizen()

	_, err := m.Start(ctx, citizen)
	require.NoError(t, err)
	_, err = m.SelectCategory(ctx, citizen, "light")
	require.NoError(t, err)
	_, err = m.SelectSubcategory(ctx, citizen, 0)
	require.NoError(t, err)

	reply, err := m.Handle(ctx, citizen, intake.Input{PhotoID: "p1"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "1/3")
	reply, err = m.Handle(ctx, citizen, intake.Input{PhotoID: "p2"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "2/3")

	// The third photo fills the cap and moves on without asking for more.
	reply, err = m.Handle(ctx, citizen, intake.Input{PhotoID: "p3"})
	require.NoError(t, err)
	assert.Equal(t, intake.KeyboardGeo, reply.Keyboard)
	assert.False(t, reply.GeoRequired)

	draft, err := drafts.Get(ctx, citizen.TelegramID)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, models.StepLocation, draft.Step)
	assert.Equal(t, []string{"p1", "p2", "p3"}, draft.Photos)
}

func TestPhotoStepRejectsPlainText(t *testing.T) {
	m, drafts, _ := newTestMachine()
	ctx := context.Background()
	citizen := testCitizen()

	_, err := m.Start(ctx, citizen)
	require.NoError(t, err)
	_, err = m.SelectCategory(ctx, citizen, "light")
	require.NoError(t, err)
	_, err = m.SelectSubcategory(ctx, citizen, 0)
	require.NoError(t, err)

	reply, err := m.Handle(ctx, citizen, intake.Input{Text: "вот фото"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Пропустить")

	draft, err := drafts.Get(ctx, citizen.TelegramID)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, models.StepPhoto, draft.Step)
	assert.Empty(t, draft.Photos)
}

func TestLocationStepRejectsCaptionedPhoto(t *testing.T) {
	m, drafts, _ := newTestMachine()
	ctx := context.Background()
	citizen := testCitizen()

	_, err := m.Start(ctx, citizen)
	require.NoError(t, err)
	_, err = m.SelectCategory(ctx, citizen, "light")
	require.NoError(t, err)
	_, err = m.SelectSubcategory(ctx, citizen, 0)
	require.NoError(t, err)
	_, err = m.Handle(ctx, citizen, intake.Input{Text: intake.SkipLabel})
	require.NoError(t, err)

	// The caption of a late photo must not become the address.
	reply, err := m.Handle(ctx, citizen, intake.Input{PhotoID: "p9", Text: "вот тут"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "текст")

	draft, err := drafts.Get(ctx, citizen.TelegramID)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, models.StepLocation, draft.Step)
	assert.Empty(t, draft.Location)
	assert.Empty(t, draft.Photos)

	// A real answer still works afterwards.
	reply, err = m.Handle(ctx, citizen, intake.Input{Text: "двор дома 7"})
	require.NoError(t, err)
	assert.Equal(t, intake.KeyboardRemove, reply.Keyboard)
}

func TestTransportExtraStep(t *testing.T) {
	m, _, repo := newTestMachine()
	ctx := context.Background()
	citizen := testCitizen()

	var saved *models.Complaint
	repo.On("CreateComplaint", mock.Anything, mock.AnythingOfType("*models.Complaint")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*models.Complaint)
		}).
		Return(nil).Once()

	_, err := m.Start(ctx, citizen)
	require.NoError(t, err)
	_, err = m.SelectCategory(ctx, citizen, "transport")
	require.NoError(t, err)

	reply, err := m.SelectSubcategory(ctx, citizen, 1)
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "маршрута")

	// A photo during the extra step is bounced without losing progress.
	reply, err = m.Handle(ctx, citizen, intake.Input{PhotoID: "p1"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "текст")

	reply, err = m.Handle(ctx, citizen, intake.Input{Text: "Маршрут 12, А123БВ"})
	require.NoError(t, err)
	assert.Equal(t, intake.KeyboardSkip, reply.Keyboard)

	_, err = m.Handle(ctx, citizen, intake.Input{Text: intake.SkipLabel})
	require.NoError(t, err)
	_, err = m.Handle(ctx, citizen, intake.Input{Text: intake.SkipLabel})
	require.NoError(t, err)
	_, err = m.Handle(ctx, citizen, intake.Input{Text: "Автобус не пришел"})
	require.NoError(t, err)
	_, err = m.Handle(ctx, citizen, intake.Input{Text: intake.SkipLabel})
	require.NoError(t, err)

	repo.AssertExpectations(t)
	require.NotNil(t, saved)
	assert.Equal(t, "Хамство водителя", saved.SubCategory)
	assert.Equal(t, "Маршрут 12, А123БВ", saved.ExtraData["info"])
	assert.Equal(t, models.LocationUnspecified, saved.Location)
	assert.Empty(t, saved.ContactPhone)
}

func TestSimpleCategoryShortFlow(t *testing.T) {
	m, _, repo := newTestMachine()
	ctx := context.Background()
	citizen := testCitizen()

	var saved *models.Complaint
	repo.On("CreateComplaint", mock.Anything, mock.AnythingOfType("*models.Complaint")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*models.Complaint)
		}).
		Return(nil).Once()

	_, err := m.Start(ctx, citizen)
	require.NoError(t, err)
	_, err = m.SelectCategory(ctx, citizen, "gratitude")
	require.NoError(t, err)

	// Simple categories jump straight to the free text.
	reply, err := m.SelectSubcategory(ctx, citizen, 0)
	require.NoError(t, err)
	assert.Equal(t, intake.KeyboardRemove, reply.Keyboard)
	assert.Contains(t, reply.Text, "текст")

	_, err = m.Handle(ctx, citizen, intake.Input{Text: "Спасибо за быстрый ремонт!"})
	require.NoError(t, err)
	reply, err = m.Handle(ctx, citizen, intake.Input{Text: intake.SkipLabel})
	require.NoError(t, err)
	assert.Equal(t, intake.KeyboardMain, reply.Keyboard)

	repo.AssertExpectations(t)
	require.NotNil(t, saved)
	assert.Equal(t, "Благодарность", saved.Category)
	assert.Empty(t, saved.Location)
	assert.Empty(t, saved.Photos)
}

func TestUnknownCategoryRestarts(t *testing.T) {
	m, drafts, _ := newTestMachine()
	ctx := context.Background()
	citizen := testCitizen()

	reply, err := m.SelectCategory(ctx, citizen, "nonsense")
	require.NoError(t, err)
	assert.Equal(t, intake.KeyboardCategories, reply.Keyboard)

	draft, err := drafts.Get(ctx, citizen.TelegramID)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, models.StepCategory, draft.Step)
}

func TestSubcategoryIndexOutOfRange(t *testing.T) {
	m, drafts, _ := newTestMachine()
	ctx := context.Background()
	citizen := testCitizen()

	_, err := m.Start(ctx, citizen)
	require.NoError(t, err)
	_, err = m.SelectCategory(ctx, citizen, "roads")
	require.NoError(t, err)

	reply, err := m.SelectSubcategory(ctx, citizen, 99)
	require.NoError(t, err)
	assert.Equal(t, intake.KeyboardSubcategories, reply.Keyboard)
	assert.Equal(t, "roads", reply.CategoryKey)

	draft, err := drafts.Get(ctx, citizen.TelegramID)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Empty(t, draft.SubCategory)
}

func TestSubcategoryWithoutDraftRestarts(t *testing.T) {
	m, _, _ := newTestMachine()
	ctx := context.Background()

	reply, err := m.SelectSubcategory(ctx, testCitizen(), 0)
	require.NoError(t, err)
	assert.Equal(t, intake.KeyboardCategories, reply.Keyboard)
}

func TestHandleWithoutDraftIsNotHandled(t *testing.T) {
	m, _, _ := newTestMachine()
	ctx := context.Background()

	reply, err := m.Handle(ctx, testCitizen(), intake.Input{Text: "привет"})
	require.NoError(t, err)
	assert.False(t, reply.Handled())
}

func TestSubmitFailureKeepsDraftForRetry(t *testing.T) {
	m, drafts, repo := newTestMachine()
	ctx := context.Background()
	citizen := testCitizen()

	repo.On("CreateComplaint", mock.Anything, mock.AnythingOfType("*models.Complaint")).
		Return(errors.New("connection refused")).Once()
	repo.On("CreateComplaint", mock.Anything, mock.AnythingOfType("*models.Complaint")).
		Return(nil).Once()

	_, err := m.Start(ctx, citizen)
	require.NoError(t, err)
	_, err = m.SelectCategory(ctx, citizen, "other")
	require.NoError(t, err)
	_, err = m.SelectSubcategory(ctx, citizen, 0)
	require.NoError(t, err)
	_, err = m.Handle(ctx, citizen, intake.Input{Text: intake.SkipLabel})
	require.NoError(t, err)
	_, err = m.Handle(ctx, citizen, intake.Input{Text: "Около рынка"})
	require.NoError(t, err)
	_, err = m.Handle(ctx, citizen, intake.Input{Text: "Прочая проблема"})
	require.NoError(t, err)

	reply, err := m.Handle(ctx, citizen, intake.Input{Phone: "+79990001122"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Ошибка")
	assert.Equal(t, intake.KeyboardPhone, reply.Keyboard)

	draft, err := drafts.Get(ctx, citizen.TelegramID)
	require.NoError(t, err)
	require.NotNil(t, draft, "a failed save must not lose the draft")
	assert.Equal(t, models.StepPhone, draft.Step)

	reply, err = m.Handle(ctx, citizen, intake.Input{Phone: "+79990001122"})
	require.NoError(t, err)
	assert.Equal(t, intake.KeyboardMain, reply.Keyboard)

	draft, err = drafts.Get(ctx, citizen.TelegramID)
	require.NoError(t, err)
	assert.Nil(t, draft)
	repo.AssertExpectations(t)
}

func TestButtonStepsIgnoreFreeText(t *testing.T) {
	m, _, _ := newTestMachine()
	ctx := context.Background()
	citizen := testCitizen()

	_, err := m.Start(ctx, citizen)
	require.NoError(t, err)

	reply, err := m.Handle(ctx, citizen, intake.Input{Text: "дороги"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "кнопок")
}
