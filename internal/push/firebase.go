package push

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// sender o subconjunto do messaging.Client usado aqui
type sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type FirebaseService struct {
	client sender
}

// NewFirebaseService inicializa o cliente Firebase com suporte a FCM
func NewFirebaseService(ctx context.Context, credentialsPath string) (*FirebaseService, error) {
	opt := option.WithCredentialsFile(credentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Messaging client: %w", err)
	}

	return &FirebaseService{client: client}, nil
}

// SendNotification envia uma notificação de medicamento para um dispositivo.
// data acompanha a mensagem (tipo, ids) para o app abrir a tela certa.
func (s *FirebaseService) SendNotification(ctx context.Context, deviceToken, title, body string, data map[string]string) (string, error) {
	if deviceToken == "" {
		return "", fmt.Errorf("device token is empty")
	}

	payload := make(map[string]string, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["timestamp"] = fmt.Sprintf("%d", time.Now().Unix())

	priority, color, sound := "normal", "#0D6EFD", "default"
	if payload["type"] == "medication_not_taken" {
		priority, color, sound = "high", "#FF0000", "alert"
	}

	message := &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: payload,
		Android: &messaging.AndroidConfig{
			Priority: priority,
			Notification: &messaging.AndroidNotification{
				Sound:        sound,
				ChannelID:    "eva_medications",
				DefaultSound: true,
				Color:        color,
			},
		},
	}

	response, err := s.client.Send(ctx, message)
	if err != nil {
		return "", fmt.Errorf("error sending medication push: %w", err)
	}

	return response, nil
}

// IsInvalidTokenError verifica se o erro retornado pelo Firebase indica que o token é inválido
func IsInvalidTokenError(err error) bool {
	if messaging.IsRegistrationTokenNotRegistered(err) || messaging.IsSenderIDMismatch(err) {
		return true
	}
	return false
}
