package notification

import (
	"context"

	"eva-meds/pkg/models"
)

// Directory resolve nomes e vínculos familiares
type Directory interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	FamilyLabel(ctx context.Context, observerID, memberID string) (string, bool, error)
}

// DisplayName como observerID deve ver actorID no texto de uma notificação:
// o rótulo familiar quando existe, senão o nome cadastrado, senão o id.
func DisplayName(ctx context.Context, dir Directory, observerID, actorID string) string {
	if label, ok, err := dir.FamilyLabel(ctx, observerID, actorID); err == nil && ok && label != "" {
		return label
	}
	if user, err := dir.GetUser(ctx, actorID); err == nil && user.Name != "" {
		return user.Name
	}
	return actorID
}
