// Package notification cria notificações in-app: persiste, entrega em tempo real
// às conexões abertas e envia push para o dispositivo do usuário.
package notification

import (
	"context"
	"time"

	"go.uber.org/zap"

	"eva-meds/internal/apperr"
	"eva-meds/internal/push"
	"eva-meds/pkg/models"
)

type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	ClearDeviceToken(ctx context.Context, userID string) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type Pusher interface {
	SendNotification(ctx context.Context, deviceToken, title, body string, data map[string]string) (string, error)
}

type Broadcaster interface {
	Publish(userID string, n *models.Notification)
}

type Service struct {
	store   Store
	pusher  Pusher
	hub     Broadcaster
	logger  *zap.Logger
	timeout time.Duration
}

// NewService pusher e hub podem ser nil (push/tempo real desabilitados)
func NewService(store Store, pusher Pusher, hub Broadcaster, logger *zap.Logger, timeout time.Duration) *Service {
	return &Service{store: store, pusher: pusher, hub: hub, logger: logger, timeout: timeout}
}

// Create persiste a notificação e dispara as entregas secundárias.
// Só a falha de persistência é devolvida (como ErrDeliveryFailure).
func (s *Service) Create(ctx context.Context, userID, kind, title, body string, meta map[string]string) (*models.Notification, error) {
	n := &models.Notification{
		UserID: userID,
		Type:   kind,
		Title:  title,
		Body:   body,
		Meta:   meta,
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.CreateNotification(storeCtx, n); err != nil {
		return nil, apperr.Delivery(err, "notification %s for %s", kind, userID)
	}

	if s.hub != nil {
		s.hub.Publish(userID, n)
	}

	if s.pusher != nil {
		s.sendPush(ctx, n)
	}

	return n, nil
}

func (s *Service) sendPush(ctx context.Context, n *models.Notification) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.store.GetUser(ctx, n.UserID)
	if err != nil {
		s.logger.Debug("Usuário sem cadastro para push", zap.String("user_id", n.UserID), zap.Error(err))
		return
	}
	if user.DeviceToken == "" {
		return
	}

	data := map[string]string{"type": n.Type, "notificationId": n.ID}
	for k, v := range n.Meta {
		data[k] = v
	}

	if _, err := s.pusher.SendNotification(ctx, user.DeviceToken, n.Title, n.Body, data); err != nil {
		if push.IsInvalidTokenError(err) {
			s.logger.Warn("⚠️ Token FCM inválido, removendo", zap.String("user_id", user.ID))
			if err := s.store.ClearDeviceToken(ctx, user.ID); err != nil {
				s.logger.Error("Falha ao remover token", zap.String("user_id", user.ID), zap.Error(err))
			}
			return
		}
		s.logger.Warn("❌ Falha no push",
			zap.String("user_id", user.ID),
			zap.String("type", n.Type),
			zap.Error(err),
		)
		return
	}

	s.logger.Debug("📲 Push enviado", zap.String("user_id", user.ID), zap.String("type", n.Type))
}

// List notificações do usuário, mais recentes primeiro
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	list, err := s.store.ListNotifications(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Notification{}
	}
	return list, nil
}

// MarkRead só o destinatário pode marcar como lida
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.store.MarkNotificationRead(ctx, userID, id)
}
