package email

import (
	"fmt"
	"html"
)

const baseStyle = `
        body { font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 8px; overflow: hidden; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .header { color: white; padding: 20px; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { padding: 30px; }
        .box { padding: 15px; margin: 20px 0; }
        .footer { background-color: #f8f9fa; padding: 15px; text-align: center; font-size: 12px; color: #666; }`

const footer = `
        <div class="footer">
            <p>Este é um email automático do sistema EVA - Lembretes de Medicamentos</p>
            <p>Não responda a este email</p>
        </div>`

// MedicationReminderTemplate gera HTML do lembrete de dose.
// subjectName é quem deve tomar ("você" quando o destinatário é o próprio alvo).
func MedicationReminderTemplate(recipientName, subjectName, medicineName, scheduledAt string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>%s
        .header { background-color: #0D6EFD; }
        .box { background-color: #E7F1FF; border-left: 4px solid #0D6EFD; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>💊 Hora do remédio</h1>
        </div>
        <div class="content">
            <p>Olá <strong>%s</strong>,</p>

            <div class="box">
                Está na hora de <strong>%s</strong> tomar <strong>%s</strong>.
            </div>

            <p><strong>Horário agendado:</strong> %s</p>

            <p>Confirme a dose no aplicativo assim que ela for tomada.</p>
        </div>%s
    </div>
</body>
</html>
    `, baseStyle,
		html.EscapeString(recipientName),
		html.EscapeString(subjectName),
		html.EscapeString(medicineName),
		html.EscapeString(scheduledAt),
		footer)
}

// MedicationNotTakenTemplate gera HTML do aviso de dose não confirmada
func MedicationNotTakenTemplate(recipientName, subjectName, medicineName, scheduledAt string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>%s
        .header { background-color: #FF0000; }
        .box { background-color: #FFF3CD; border-left: 4px solid #FF0000; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>⚠️ Dose não confirmada</h1>
        </div>
        <div class="content">
            <p>Olá <strong>%s</strong>,</p>

            <div class="box">
                <strong>%s</strong> ainda não confirmou <strong>%s</strong>.
            </div>

            <p><strong>Horário agendado:</strong> %s</p>

            <p><strong>Ações recomendadas:</strong></p>
            <ul>
                <li>Entrar em contato para verificar se está tudo bem</li>
                <li>Conferir se o medicamento foi tomado e registrar no aplicativo</li>
            </ul>
        </div>%s
    </div>
</body>
</html>
    `, baseStyle,
		html.EscapeString(recipientName),
		html.EscapeString(subjectName),
		html.EscapeString(medicineName),
		html.EscapeString(scheduledAt),
		footer)
}
