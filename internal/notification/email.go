package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/IchiThe2nd/aidivalogger/pkg/config"
)

// ProbeAlert describes a probe threshold breach or recovery.
type ProbeAlert struct {
	Host      string
	Probe     string
	Operator  string
	Value     float64
	Threshold float64
	Duration  time.Duration
	StartTime time.Time
}

// EmailNotifier sends email notifications
type EmailNotifier struct {
	config *config.SMTPConfig
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.SMTPConfig) *EmailNotifier {
	return &EmailNotifier{config: cfg}
}

// SendProbeTriggered sends an email for a triggered probe alarm.
func (e *EmailNotifier) SendProbeTriggered(alert *ProbeAlert) error {
	subject := fmt.Sprintf("🚨 Aquarium Alarm TRIGGERED - %s on %s", alert.Probe, alert.Host)
	body, err := renderTemplate("triggered", probeTriggeredTemplate, alert)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	return e.sendEmail(subject, body)
}

// SendProbeCleared sends an email when a probe alarm clears.
func (e *EmailNotifier) SendProbeCleared(alert *ProbeAlert) error {
	subject := fmt.Sprintf("✅ Aquarium Alarm CLEARED - %s on %s", alert.Probe, alert.Host)
	body, err := renderTemplate("cleared", probeClearedTemplate, alert)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	return e.sendEmail(subject, body)
}

// SendLagAlert sends an email when the database has fallen behind the
// controller by more than the configured tolerance.
func (e *EmailNotifier) SendLagAlert(host string, lag time.Duration) error {
	subject := fmt.Sprintf("⚠️ Aquarium logger behind - %s", host)
	body, err := renderTemplate("lag", lagTemplate, struct {
		Host string
		Lag  time.Duration
	}{Host: host, Lag: lag.Round(time.Second)})
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	return e.sendEmail(subject, body)
}

const probeTriggeredTemplate = `
Aquarium Alarm Triggered
========================

Controller: {{.Host}}
Probe: {{.Probe}}
Current Value: {{.Value}}
Threshold: {{.Operator}} {{.Threshold}}
Breaching since: {{.StartTime}}

Description:
The {{.Probe}} probe on {{.Host}} has breached the threshold
({{.Operator}} {{.Threshold}}) for {{.Duration}}. The current value
is {{.Value}}.

Please check the tank.

---
AiDiva Logger Notification System
`

const probeClearedTemplate = `
Aquarium Alarm Cleared
======================

Controller: {{.Host}}
Probe: {{.Probe}}

Description:
The alarm for {{.Probe}} on {{.Host}} has been cleared.
The reading has returned to normal levels.

---
AiDiva Logger Notification System
`

const lagTemplate = `
Aquarium Logger Falling Behind
==============================

Controller: {{.Host}}
Database lag: {{.Lag}}

Description:
The latest record on the controller is {{.Lag}} newer than the newest
point in the database. The reconciliation pass could not close the gap;
check the store and the controller's datalog retention.

---
AiDiva Logger Notification System
`

func renderTemplate(name, tmpl string, data interface{}) (string, error) {
	t, err := template.New(name).Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (e *EmailNotifier) sendEmail(subject, body string) error {
	// Skip sending if SMTP is not configured
	if e.config.Username == "" || e.config.Password == "" {
		fmt.Printf("SMTP not configured, skipping email:\nSubject: %s\n%s\n", subject, body)
		return nil
	}

	// Construct message
	message := fmt.Sprintf("From: %s\r\n", e.config.From)
	message += fmt.Sprintf("To: %s\r\n", e.config.To)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	message += "\r\n"
	message += body

	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	if err := smtp.SendMail(addr, auth, e.config.From, []string{e.config.To}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	fmt.Printf("Email sent successfully: %s\n", subject)
	return nil
}

// TestConnection tests the SMTP connection
func (e *EmailNotifier) TestConnection() error {
	if e.config.Username == "" {
		return fmt.Errorf("SMTP not configured")
	}

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	fmt.Println("SMTP connection test successful")
	return nil
}
