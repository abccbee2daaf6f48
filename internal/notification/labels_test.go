package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"eva-meds/internal/database"
	"eva-meds/pkg/models"
)

func TestDisplayName(t *testing.T) {
	store := database.NewMemoryStore()
	store.PutUser(&models.User{ID: "mom", Name: "Maria"})
	store.PutUser(&models.User{ID: "son", Name: "João"})
	store.PutFamilyLink("son", "mom", "Sua mãe")
	ctx := context.Background()

	assert.Equal(t, "Sua mãe", DisplayName(ctx, store, "son", "mom"))
	assert.Equal(t, "João", DisplayName(ctx, store, "mom", "son"))
	assert.Equal(t, "ghost", DisplayName(ctx, store, "son", "ghost"))
}
