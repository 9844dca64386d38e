package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/utils"
)

// EmailService renders stored templates and sends them through the
// configured email API. Settings saved by an admin take precedence over the
// environment.
type EmailService struct {
	db          *sql.DB
	fallback    utils.MailConfig
	frontendURL string
}

func NewEmailService(db *sql.DB, fallback utils.MailConfig, frontendURL string) *EmailService {
	return &EmailService{db: db, fallback: fallback, frontendURL: strings.TrimRight(frontendURL, "/")}
}

// ============================================================================
// SETTINGS
// ============================================================================

func (s *EmailService) Settings(ctx context.Context) (*models.EmailSettings, error) {
	var st models.EmailSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT sending_key, api_endpoint, default_sender, scheduler_enabled, reminder_time, updated_at
		FROM email_settings WHERE id = 1
	`).Scan(&st.SendingKey, &st.APIEndpoint, &st.DefaultSender, &st.SchedulerEnabled, &st.ReminderTime, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.EmailSettings{SchedulerEnabled: true, ReminderTime: DefaultReminderTime}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load email settings: %w", err)
	}
	if st.SendingKey, err = utils.OpenSecret(st.SendingKey); err != nil {
		return nil, fmt.Errorf("open sending key: %w", err)
	}
	return &st, nil
}

func (s *EmailService) UpdateSettings(ctx context.Context, req models.UpdateEmailSettingsRequest) (*models.EmailSettings, error) {
	current, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	// the admin UI echoes the masked key back; keep the stored one
	if req.SendingKey != nil && *req.SendingKey != utils.MaskSecret("x") {
		current.SendingKey = strings.TrimSpace(*req.SendingKey)
	}
	if req.APIEndpoint != nil {
		current.APIEndpoint = strings.TrimSpace(*req.APIEndpoint)
	}
	if req.DefaultSender != nil {
		current.DefaultSender = strings.TrimSpace(*req.DefaultSender)
	}
	if req.SchedulerEnabled != nil {
		current.SchedulerEnabled = *req.SchedulerEnabled
	}
	if req.ReminderTime != nil {
		if _, _, ok := ParseReminderTime(*req.ReminderTime); !ok {
			return nil, fmt.Errorf("%w: reminder_time must be HH:MM", ErrInvalidInput)
		}
		current.ReminderTime = strings.TrimSpace(*req.ReminderTime)
	}

	sealedKey, err := utils.SealSecret(current.SendingKey)
	if err != nil {
		return nil, fmt.Errorf("seal sending key: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO email_settings (id, sending_key, api_endpoint, default_sender, scheduler_enabled, reminder_time, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			sending_key = EXCLUDED.sending_key,
			api_endpoint = EXCLUDED.api_endpoint,
			default_sender = EXCLUDED.default_sender,
			scheduler_enabled = EXCLUDED.scheduler_enabled,
			reminder_time = EXCLUDED.reminder_time,
			updated_at = NOW()
		RETURNING updated_at
	`, sealedKey, current.APIEndpoint, current.DefaultSender, current.SchedulerEnabled, current.ReminderTime).
		Scan(&current.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("save email settings: %w", err)
	}
	utils.SafeInfo("Email settings updated (scheduler_enabled=%v, reminder_time=%s)", current.SchedulerEnabled, current.ReminderTime)
	return current, nil
}

// MergeMailConfig overlays non-empty stored settings on the environment.
func MergeMailConfig(st *models.EmailSettings, fallback utils.MailConfig) utils.MailConfig {
	cfg := fallback
	if st == nil {
		return cfg
	}
	if st.SendingKey != "" {
		cfg.APIKey = st.SendingKey
	}
	if st.APIEndpoint != "" {
		cfg.Endpoint = st.APIEndpoint
	}
	if st.DefaultSender != "" {
		cfg.From = st.DefaultSender
	}
	return cfg
}

func (s *EmailService) mailConfig(ctx context.Context) utils.MailConfig {
	st, err := s.Settings(ctx)
	if err != nil {
		utils.SafeWarn("Falling back to env email config: %v", err)
		return s.fallback
	}
	return MergeMailConfig(st, s.fallback)
}

// ============================================================================
// TEMPLATES
// ============================================================================

const templateColumns = `id, name, subject, html_content, created_at, updated_at`

func scanTemplate(row rowScanner) (models.EmailTemplate, error) {
	var t models.EmailTemplate
	err := row.Scan(&t.ID, &t.Name, &t.Subject, &t.HTMLContent, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *EmailService) Template(ctx context.Context, name string) (*models.EmailTemplate, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM email_templates WHERE name = $1`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", name, err)
	}
	return &t, nil
}

func (s *EmailService) ListTemplates(ctx context.Context) ([]models.EmailTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM email_templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	out := []models.EmailTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// validateTemplate parses and test-renders a template so broken markup is
// rejected when saved rather than when a reminder goes out.
func validateTemplate(req models.EmailTemplateRequest) error {
	if _, _, err := utils.RenderEmail(req.Name, req.Subject, req.HTMLContent, map[string]any{}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func (s *EmailService) CreateTemplate(ctx context.Context, req models.EmailTemplateRequest) (*models.EmailTemplate, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: template name is required", ErrInvalidInput)
	}
	if err := validateTemplate(req); err != nil {
		return nil, err
	}
	t, err := scanTemplate(s.db.QueryRowContext(ctx, `
		INSERT INTO email_templates (id, name, subject, html_content)
		VALUES ($1, $2, $3, $4)
		RETURNING `+templateColumns,
		uuid.New().String(), req.Name, req.Subject, req.HTMLContent))
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	utils.SafeInfo("Email template %s created", t.Name)
	return &t, nil
}

func (s *EmailService) UpdateTemplate(ctx context.Context, name string, req models.EmailTemplateRequest) (*models.EmailTemplate, error) {
	req.Name = name
	if err := validateTemplate(req); err != nil {
		return nil, err
	}
	t, err := scanTemplate(s.db.QueryRowContext(ctx, `
		UPDATE email_templates SET subject = $1, html_content = $2, updated_at = NOW()
		WHERE name = $3
		RETURNING `+templateColumns,
		req.Subject, req.HTMLContent, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	utils.SafeInfo("Email template %s updated", name)
	return &t, nil
}

func (s *EmailService) DeleteTemplate(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM email_templates WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	utils.SafeInfo("Email template %s deleted", name)
	return nil
}

// ============================================================================
// SENDING
// ============================================================================

// TemplateData adds the keys every template may use.
func (s *EmailService) TemplateData(data map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(data)+2)
	for k, v := range data {
		out[k] = v
	}
	out["current_year"] = now.Year()
	out["frontend_url"] = s.frontendURL
	return out
}

// SendTemplate renders the named template for one recipient and sends it.
func (s *EmailService) SendTemplate(ctx context.Context, name, to string, data map[string]any) error {
	tmpl, err := s.Template(ctx, name)
	if err != nil {
		return fmt.Errorf("template %s: %w", name, err)
	}
	subject, body, err := utils.RenderEmail(tmpl.Name, tmpl.Subject, tmpl.HTMLContent, s.TemplateData(data, time.Now()))
	if err != nil {
		return err
	}
	return utils.SendEmail(ctx, s.mailConfig(ctx), to, subject, body)
}

// Configured reports whether an email could be sent right now.
func (s *EmailService) Configured(ctx context.Context) bool {
	return s.mailConfig(ctx).Validate() == nil
}
