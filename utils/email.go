package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"
	texttemplate "text/template"
)

// ============================================================================
// STRUCTS & TYPES
// ============================================================================

const DefaultEmailEndpoint = "https://api.resend.com/emails"

// EmailRequest is the Resend-compatible request body.
type EmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// MailConfig is the resolved sending configuration: email_settings row
// first, environment second.
type MailConfig struct {
	APIKey   string
	Endpoint string
	From     string
}

func (c MailConfig) Validate() error {
	switch {
	case c.APIKey == "":
		return fmt.Errorf("email API key not configured")
	case c.Endpoint == "":
		return fmt.Errorf("email API endpoint not configured")
	case c.From == "":
		return fmt.Errorf("default sender not configured")
	}
	return nil
}

var emailClient = &http.Client{Timeout: 10 * time.Second}

// ============================================================================
// TRANSPORT
// ============================================================================

// SendEmail posts one message to the configured email API.
func SendEmail(ctx context.Context, cfg MailConfig, to, subject, htmlBody string) error {
	if err := cfg.Validate(); err != nil {
		log.Printf("⚠️ %v, email not sent", err)
		return err
	}

	jsonData, err := json.Marshal(EmailRequest{
		From:    cfg.From,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := emailClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email API returned status: %d", resp.StatusCode)
	}
	return nil
}

// ============================================================================
// TEMPLATES
// ============================================================================

// RenderEmail executes a stored subject and HTML body against data. The
// subject is plain text, the body is escaped as HTML.
func RenderEmail(name, subject, htmlContent string, data map[string]any) (string, string, error) {
	subj, err := texttemplate.New(name + "_subject").Option("missingkey=zero").Parse(subject)
	if err != nil {
		return "", "", fmt.Errorf("parse subject of %s: %w", name, err)
	}
	body, err := template.New(name).Option("missingkey=zero").Parse(htmlContent)
	if err != nil {
		return "", "", fmt.Errorf("parse template %s: %w", name, err)
	}

	var subjBuf, bodyBuf bytes.Buffer
	if err := subj.Execute(&subjBuf, data); err != nil {
		return "", "", fmt.Errorf("render subject of %s: %w", name, err)
	}
	if err := body.Execute(&bodyBuf, data); err != nil {
		return "", "", fmt.Errorf("render template %s: %w", name, err)
	}
	return strings.TrimSpace(subjBuf.String()), bodyBuf.String(), nil
}

const (
	TemplateWelcome      = "welcome_email"
	TemplateInvitation   = "invitation_to_company"
	TemplateTaskAssigned = "task_assigned"
	TemplateWeekReminder = "event_1week_reminder"
)

// EmailTemplateSeed is a template inserted on first migration.
type EmailTemplateSeed struct {
	Name    string
	Subject string
	HTML    string
}

const emailLayoutHead = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background-color: #f3f4f6;">
    <table role="presentation" style="width: 100%; border-collapse: collapse;">
        <tr>
            <td style="padding: 40px 0; text-align: center; background: linear-gradient(135deg, #6366f1 0%, #8b5cf6 100%);">
                <h1 style="margin: 0; color: #ffffff; font-size: 28px; font-weight: bold;">📅 DayClap</h1>
            </td>
        </tr>
        <tr>
            <td style="padding: 40px 20px;">
                <table role="presentation" style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 12px;">
                    <tr>
                        <td style="padding: 40px; color: #374151; font-size: 16px; line-height: 1.6;">
`

const emailLayoutFoot = `
                            <p style="margin: 30px 0 0 0;">
                                <a href="{{.frontend_url}}" style="display: inline-block; padding: 14px 28px; background: #6366f1; color: #ffffff; text-decoration: none; border-radius: 8px; font-weight: 600;">Open DayClap</a>
                            </p>
                        </td>
                    </tr>
                </table>
            </td>
        </tr>
        <tr>
            <td style="padding: 20px; text-align: center; color: #9ca3af; font-size: 12px;">
                © {{.current_year}} DayClap. This email was sent automatically, please do not reply.
            </td>
        </tr>
    </table>
</body>
</html>
`

// DefaultEmailTemplates are editable afterwards through the admin API.
var DefaultEmailTemplates = []EmailTemplateSeed{
	{
		Name:    TemplateWelcome,
		Subject: "Welcome to DayClap, {{.user_name}}!",
		HTML: emailLayoutHead + `
                            <h2 style="margin: 0 0 20px 0; color: #1f2937;">Welcome {{.user_name}} 👋</h2>
                            <p>Your account is ready. Create a company, invite your team and start planning your events.</p>
` + emailLayoutFoot,
	},
	{
		Name:    TemplateInvitation,
		Subject: "You're invited to join {{.company_name}} on DayClap",
		HTML: emailLayoutHead + `
                            <h2 style="margin: 0 0 20px 0; color: #1f2937;">You have been invited</h2>
                            <p><strong>{{.sender_email}}</strong> invited you to join <strong>{{.company_name}}</strong> as <strong>{{.role}}</strong>.</p>
                            <p>Sign in to DayClap to accept or decline the invitation.</p>
` + emailLayoutFoot,
	},
	{
		Name:    TemplateTaskAssigned,
		Subject: "New task assigned: {{.task_title}}",
		HTML: emailLayoutHead + `
                            <h2 style="margin: 0 0 20px 0; color: #1f2937;">Hi {{.assignee_name}},</h2>
                            <p><strong>{{.assigned_by_name}}</strong> assigned you <strong>{{.task_title}}</strong> for <strong>{{.event_title}}</strong>{{if .company_name}} ({{.company_name}}){{end}}.</p>
                            {{if .task_description}}<p>{{.task_description}}</p>{{end}}
                            {{if .event_date}}<p>📅 {{.event_date}}{{if .event_time}} at {{.event_time}}{{end}}</p>{{end}}
                            {{if .due_date}}<p>⏰ Due {{.due_date}}</p>{{end}}
` + emailLayoutFoot,
	},
	{
		Name:    TemplateWeekReminder,
		Subject: "One week to go: {{.event_title}}",
		HTML: emailLayoutHead + `
                            <h2 style="margin: 0 0 20px 0; color: #1f2937;">Hi {{.user_name}},</h2>
                            <p><strong>{{.event_title}}</strong> is one week away.</p>
                            <p>📅 {{.event_date}} at {{.event_time}}</p>
                            {{if .event_location}}<p>📍 {{.event_location}}</p>{{end}}
                            {{if .event_description}}<p>{{.event_description}}</p>{{end}}
                            {{if .has_tasks}}<p>✅ {{.task_completion_percentage}} of tasks done, {{.pending_tasks_count}} still pending.</p>{{end}}
` + emailLayoutFoot,
	},
}
