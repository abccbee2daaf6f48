package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eva-meds/internal/apperr"
	"eva-meds/internal/database"
	"eva-meds/pkg/models"
)

type fakePusher struct {
	tokens []string
	data   []map[string]string
	err    error
}

func (f *fakePusher) SendNotification(_ context.Context, token, _, _ string, data map[string]string) (string, error) {
	f.tokens = append(f.tokens, token)
	f.data = append(f.data, data)
	return "msg-1", f.err
}

type fakeHub struct {
	published map[string]int
}

func (f *fakeHub) Publish(userID string, _ *models.Notification) {
	if f.published == nil {
		f.published = map[string]int{}
	}
	f.published[userID]++
}

type failingStore struct {
	*database.MemoryStore
}

func (failingStore) CreateNotification(context.Context, *models.Notification) error {
	return errors.New("db down")
}

func TestCreate_PersistsPublishesAndPushes(t *testing.T) {
	store := database.NewMemoryStore()
	store.PutUser(&models.User{ID: "user-a", Name: "Ana", DeviceToken: "token-a"})
	pusher := &fakePusher{}
	hub := &fakeHub{}
	svc := NewService(store, pusher, hub, zap.NewNop(), time.Second)

	n, err := svc.Create(context.Background(), "user-a", models.NotificationMedicationReminder,
		"Hora do remédio", "Losartana", map[string]string{"occurrenceId": "occ-1"})

	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, 1, hub.published["user-a"])
	assert.Equal(t, []string{"token-a"}, pusher.tokens)
	assert.Equal(t, "occ-1", pusher.data[0]["occurrenceId"])
	assert.Equal(t, models.NotificationMedicationReminder, pusher.data[0]["type"])

	stored, err := store.ListNotifications(context.Background(), "user-a", false, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestCreate_NoTokenSkipsPush(t *testing.T) {
	store := database.NewMemoryStore()
	store.PutUser(&models.User{ID: "user-a", Name: "Ana"})
	pusher := &fakePusher{}
	svc := NewService(store, pusher, nil, zap.NewNop(), time.Second)

	_, err := svc.Create(context.Background(), "user-a", models.NotificationMedicationTaken, "t", "b", nil)

	require.NoError(t, err)
	assert.Empty(t, pusher.tokens)
}

func TestCreate_PushFailureIsNotReturned(t *testing.T) {
	store := database.NewMemoryStore()
	store.PutUser(&models.User{ID: "user-a", DeviceToken: "token-a"})
	svc := NewService(store, &fakePusher{err: errors.New("fcm unavailable")}, nil, zap.NewNop(), time.Second)

	_, err := svc.Create(context.Background(), "user-a", models.NotificationMedicationTaken, "t", "b", nil)

	assert.NoError(t, err)
}

func TestCreate_StoreFailureIsDeliveryFailure(t *testing.T) {
	hub := &fakeHub{}
	svc := NewService(failingStore{database.NewMemoryStore()}, nil, hub, zap.NewNop(), time.Second)

	_, err := svc.Create(context.Background(), "user-a", models.NotificationMedicationTaken, "t", "b", nil)

	assert.ErrorIs(t, err, apperr.ErrDeliveryFailure)
	assert.Zero(t, hub.published["user-a"])
}

func TestListAndMarkRead(t *testing.T) {
	store := database.NewMemoryStore()
	svc := NewService(store, nil, nil, zap.NewNop(), time.Second)
	ctx := context.Background()

	n, err := svc.Create(ctx, "user-a", models.NotificationMedicationReminder, "t", "b", nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user-b", models.NotificationMedicationReminder, "t", "b", nil)
	require.NoError(t, err)

	list, err := svc.List(ctx, "user-a", true, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, n.ID, list[0].ID)

	err = svc.MarkRead(ctx, "user-b", n.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, svc.MarkRead(ctx, "user-a", n.ID))

	list, err = svc.List(ctx, "user-a", true, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	list, err = svc.List(ctx, "user-a", false, 1000)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.True(t, list[0].Read)
}
