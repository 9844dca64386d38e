package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// USER MODEL
// ============================================================================

type User struct {
	ID               string                  `json:"id"`
	Email            string                  `json:"email"`
	Name             string                  `json:"name"`
	PasswordHash     string                  `json:"-"`
	TOTPSecret       string                  `json:"-"`
	TOTPEnabled      bool                    `json:"totp_enabled"`
	Theme            string                  `json:"theme"`
	Language         string                  `json:"language"`
	Timezone         string                  `json:"timezone"`
	Currency         string                  `json:"currency"`
	Notifications    NotificationPreferences `json:"notifications"`
	CurrentCompanyID *string                 `json:"current_company_id"`
	HasPush          bool                    `json:"has_push_subscription"`
	LastActivity     *time.Time              `json:"last_activity,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

func IsValidTheme(theme string) bool {
	return theme == ThemeLight || theme == ThemeDark || theme == ThemeSystem
}

// ============================================================================
// NOTIFICATION PREFERENCES
// ============================================================================

// NotificationPreferences is stored as JSONB in users.notifications. Keys
// missing from the stored document keep their defaults.
type NotificationPreferences struct {
	EmailDaily          bool `json:"email_daily"`
	EmailWeekly         bool `json:"email_weekly"`
	EmailMonthly        bool `json:"email_monthly"`
	Email3DayCountdown  bool `json:"email_3day_countdown"`
	Email1WeekCountdown bool `json:"email_1week_countdown"`
	Push                bool `json:"push"`
	Reminders           bool `json:"reminders"`
	Invitations         bool `json:"invitations"`
}

func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		EmailDaily:          true,
		Email1WeekCountdown: true,
		Push:                true,
		Reminders:           true,
		Invitations:         true,
	}
}

// UnmarshalJSON starts from the defaults so absent keys are not read as false.
func (p *NotificationPreferences) UnmarshalJSON(data []byte) error {
	type plain NotificationPreferences
	prefs := plain(DefaultNotificationPreferences())
	if err := json.Unmarshal(data, &prefs); err != nil {
		return err
	}
	*p = NotificationPreferences(prefs)
	return nil
}

func (p NotificationPreferences) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *NotificationPreferences) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = DefaultNotificationPreferences()
		return nil
	case []byte:
		if len(v) == 0 {
			*p = DefaultNotificationPreferences()
			return nil
		}
		return json.Unmarshal(v, p)
	case string:
		return p.Scan([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into NotificationPreferences", src)
	}
}

// NotificationPreferencesPatch carries a partial update; nil fields are
// left unchanged.
type NotificationPreferencesPatch struct {
	EmailDaily          *bool `json:"email_daily"`
	EmailWeekly         *bool `json:"email_weekly"`
	EmailMonthly        *bool `json:"email_monthly"`
	Email3DayCountdown  *bool `json:"email_3day_countdown"`
	Email1WeekCountdown *bool `json:"email_1week_countdown"`
	Push                *bool `json:"push"`
	Reminders           *bool `json:"reminders"`
	Invitations         *bool `json:"invitations"`
}

func (p NotificationPreferences) Apply(patch NotificationPreferencesPatch) NotificationPreferences {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.EmailDaily, patch.EmailDaily)
	set(&p.EmailWeekly, patch.EmailWeekly)
	set(&p.EmailMonthly, patch.EmailMonthly)
	set(&p.Email3DayCountdown, patch.Email3DayCountdown)
	set(&p.Email1WeekCountdown, patch.Email1WeekCountdown)
	set(&p.Push, patch.Push)
	set(&p.Reminders, patch.Reminders)
	set(&p.Invitations, patch.Invitations)
	return p
}

// ============================================================================
// SESSION
// ============================================================================

// Session is the authenticated caller, loaded once per request.
type Session struct {
	UserID           string                  `json:"user_id"`
	Email            string                  `json:"email"`
	Name             string                  `json:"name"`
	Timezone         string                  `json:"timezone"`
	Theme            string                  `json:"theme"`
	Language         string                  `json:"language"`
	Currency         string                  `json:"currency"`
	Notifications    NotificationPreferences `json:"notifications"`
	CurrentCompanyID string                  `json:"current_company_id,omitempty"`
	Memberships      map[string]string       `json:"memberships"` // company id -> role
}

// RoleIn returns the caller's role in a company, "" when not a member.
func (s *Session) RoleIn(companyID string) string {
	if s == nil || s.Memberships == nil {
		return ""
	}
	return s.Memberships[companyID]
}

func (s *Session) IsMember(companyID string) bool {
	return s.RoleIn(companyID) != ""
}

// ============================================================================
// AUTHENTICATION REQUESTS
// ============================================================================

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
	Timezone string `json:"timezone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type AuthResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// ============================================================================
// PROFILE
// ============================================================================

type UpdateProfileRequest struct {
	Name     *string `json:"name"`
	Theme    *string `json:"theme"`
	Language *string `json:"language"`
	Timezone *string `json:"timezone"`
	Currency *string `json:"currency"`
}

type SetCurrentCompanyRequest struct {
	CompanyID string `json:"company_id" binding:"required"`
}

// ============================================================================
// PASSWORD & 2FA
// ============================================================================

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type TOTPSetupResponse struct {
	Secret string `json:"secret"`
	QRCode string `json:"qr_code"`
}

type VerifyTOTPRequest struct {
	Code string `json:"code" binding:"required,len=6"`
}

type DisableTOTPRequest struct {
	Password string `json:"password" binding:"required"`
	Code     string `json:"code" binding:"required,len=6"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}
