package email

import (
	"context"
	"fmt"
)

// SendMedicationReminder envia o lembrete de dose para um destinatário
func (s *EmailService) SendMedicationReminder(ctx context.Context, to, recipientName, subjectName, medicineName, scheduledAt string) error {
	subject := fmt.Sprintf("💊 Hora do remédio: %s", medicineName)
	htmlBody := MedicationReminderTemplate(recipientName, subjectName, medicineName, scheduledAt)

	return s.SendEmailContext(ctx, to, subject, htmlBody)
}

// SendMedicationNotTaken avisa o criador do lembrete que a dose não foi confirmada
func (s *EmailService) SendMedicationNotTaken(ctx context.Context, to, recipientName, subjectName, medicineName, scheduledAt string) error {
	subject := fmt.Sprintf("⚠️ Dose não confirmada - %s", medicineName)
	htmlBody := MedicationNotTakenTemplate(recipientName, subjectName, medicineName, scheduledAt)

	return s.SendEmailContext(ctx, to, subject, htmlBody)
}
