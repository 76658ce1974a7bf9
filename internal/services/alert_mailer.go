package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"billing-api/internal/config"
)

// AlertMailer sends operator alerts through the Brevo transactional email
// API. Processing failures never change the webhook response, so email (plus
// the dead-letter list) is how an operator finds out something went wrong.
type AlertMailer struct {
	APIKey     string
	FromEmail  string
	ToEmail    string
	httpClient *http.Client
}

// NewAlertMailer creates a mailer from the service configuration.
func NewAlertMailer() *AlertMailer {
	return &AlertMailer{
		APIKey:    config.AppConfig.BrevoAPIKey,
		FromEmail: config.AppConfig.BrevoFromEmail,
		ToEmail:   config.AppConfig.AlertEmail,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether the mailer has enough configuration to send.
func (m *AlertMailer) Enabled() bool {
	return m.APIKey != "" && m.FromEmail != "" && m.ToEmail != ""
}

// EmailRequest represents Brevo email request structure
type EmailRequest struct {
	Sender      EmailSender `json:"sender"`
	To          []EmailTo   `json:"to"`
	Subject     string      `json:"subject"`
	HTMLContent string      `json:"htmlContent"`
	TextContent string      `json:"textContent"`
}

type EmailSender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type EmailTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// SendDeadLetterAlert notifies the operator about a dead-lettered webhook
// event. The alert carries the sanitized error only, matching the logging
// policy.
func (m *AlertMailer) SendDeadLetterAlert(record DeadLetterRecord) error {
	serviceName := config.AppConfig.ServiceName

	subject := fmt.Sprintf("[%s] Webhook event dead-lettered: %s", serviceName, record.EventType)
	htmlContent := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<h2>Webhook event failed processing</h2>
			<p>The event was acknowledged to Stripe but could not be applied. It has been recorded on the dead-letter list for reconciliation.</p>
			<table cellpadding="6" style="border-collapse: collapse;">
				<tr><td><b>Record</b></td><td>%s</td></tr>
				<tr><td><b>Event</b></td><td>%s</td></tr>
				<tr><td><b>Type</b></td><td>%s</td></tr>
				<tr><td><b>Error</b></td><td>%s</td></tr>
				<tr><td><b>Received</b></td><td>%s</td></tr>
			</table>
		</body>
		</html>
	`, record.ID, record.EventID, record.EventType, record.Error, record.ReceivedAt)

	textContent := fmt.Sprintf(`Webhook event failed processing.

Record:   %s
Event:    %s
Type:     %s
Error:    %s
Received: %s

The event was acknowledged to Stripe but could not be applied. It has been recorded on the dead-letter list for reconciliation.
`, record.ID, record.EventID, record.EventType, record.Error, record.ReceivedAt)

	emailReq := EmailRequest{
		Sender: EmailSender{
			Name:  serviceName,
			Email: m.FromEmail,
		},
		To: []EmailTo{
			{Email: m.ToEmail},
		},
		Subject:     subject,
		HTMLContent: htmlContent,
		TextContent: textContent,
	}

	return m.sendEmail(emailReq)
}

// sendEmail sends email via Brevo API
func (m *AlertMailer) sendEmail(req EmailRequest) error {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	httpReq, err := http.NewRequest("POST", "https://api.brevo.com/v3/smtp/email", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", m.APIKey)

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("brevo API error: status %d", resp.StatusCode)
	}

	return nil
}
