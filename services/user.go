package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/utils"
)

type UserService struct {
	db *sql.DB
}

func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

const userColumns = `
	id, email, name, password_hash, COALESCE(totp_secret, ''), COALESCE(totp_enabled, FALSE),
	theme, language, timezone, currency, notifications, current_company_id,
	push_subscription IS NOT NULL, last_activity, created_at, updated_at
`

func scanUser(row rowScanner) (models.User, error) {
	var (
		u            models.User
		current      sql.NullString
		lastActivity sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.TOTPSecret, &u.TOTPEnabled,
		&u.Theme, &u.Language, &u.Timezone, &u.Currency, &u.Notifications, &current,
		&u.HasPush, &lastActivity, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	if current.Valid {
		u.CurrentCompanyID = &current.String
	}
	if lastActivity.Valid {
		t := lastActivity.Time
		u.LastActivity = &t
	}
	if u.TOTPSecret, err = utils.OpenSecret(u.TOTPSecret); err != nil {
		return u, fmt.Errorf("open totp secret: %w", err)
	}
	return u, nil
}

func (s *UserService) get(ctx context.Context, q querier, where string, arg interface{}) (*models.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &u, nil
}

func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	return s.get(ctx, s.db, `id = $1`, userID)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.get(ctx, s.db, `LOWER(email) = LOWER($1)`, strings.TrimSpace(email))
}

// ============================================================================
// SESSION
// ============================================================================

// SessionFromUser builds the per-request session from a loaded user and
// their memberships.
func SessionFromUser(u *models.User, memberships map[string]string) *models.Session {
	sess := &models.Session{
		UserID:        u.ID,
		Email:         strings.ToLower(u.Email),
		Name:          u.Name,
		Timezone:      u.Timezone,
		Theme:         u.Theme,
		Language:      u.Language,
		Currency:      u.Currency,
		Notifications: u.Notifications,
		Memberships:   memberships,
	}
	if sess.Memberships == nil {
		sess.Memberships = map[string]string{}
	}
	if u.CurrentCompanyID != nil && sess.Memberships[*u.CurrentCompanyID] != "" {
		sess.CurrentCompanyID = *u.CurrentCompanyID
	}
	return sess
}

// LoadSession loads the caller and their memberships and records activity
// at most every few minutes.
func (s *UserService) LoadSession(ctx context.Context, userID string) (*models.Session, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT company_id, role FROM company_members WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	defer rows.Close()
	memberships := map[string]string{}
	for rows.Next() {
		var companyID, role string
		if err := rows.Scan(&companyID, &role); err != nil {
			return nil, err
		}
		memberships[companyID] = role
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE users SET last_activity = NOW()
		WHERE id = $1 AND (last_activity IS NULL OR last_activity < NOW() - INTERVAL '5 minutes')
	`, userID); err != nil {
		utils.SafeWarn("Could not record activity: %v", err)
	}
	return SessionFromUser(u, memberships), nil
}

// ============================================================================
// PROFILE
// ============================================================================

// ValidateProfile normalises a profile update in place.
func ValidateProfile(req *models.UpdateProfileRequest) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		req.Name = &name
	}
	if req.Theme != nil && !models.IsValidTheme(*req.Theme) {
		return fmt.Errorf("%w: theme must be light, dark or system", ErrInvalidInput)
	}
	if req.Language != nil {
		lang := strings.TrimSpace(*req.Language)
		if lang == "" || len(lang) > 20 {
			return fmt.Errorf("%w: invalid language", ErrInvalidInput)
		}
		req.Language = &lang
	}
	if req.Timezone != nil {
		tz := strings.TrimSpace(*req.Timezone)
		if !utils.IsValidTimezone(tz) {
			return fmt.Errorf("%w: unknown timezone %q", ErrInvalidInput, tz)
		}
		req.Timezone = &tz
	}
	if req.Currency != nil {
		code, err := utils.NormalizeCurrency(*req.Currency)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		req.Currency = &code
	}
	return nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	if err := ValidateProfile(&req); err != nil {
		return nil, err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			name = COALESCE($1, name),
			theme = COALESCE($2, theme),
			language = COALESCE($3, language),
			timezone = COALESCE($4, timezone),
			currency = COALESCE($5, currency),
			updated_at = NOW()
		WHERE id = $6
	`, req.Name, req.Theme, req.Language, req.Timezone, req.Currency, userID)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.Get(ctx, userID)
}

func (s *UserService) UpdateNotifications(ctx context.Context, userID string, patch models.NotificationPreferencesPatch) (models.NotificationPreferences, error) {
	var prefs models.NotificationPreferences
	err := utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT notifications FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&prefs); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("load preferences: %w", err)
		}
		prefs = prefs.Apply(patch)
		if _, err := tx.ExecContext(ctx, `UPDATE users SET notifications = $1, updated_at = NOW() WHERE id = $2`, prefs, userID); err != nil {
			return fmt.Errorf("save preferences: %w", err)
		}
		return nil
	})
	return prefs, err
}

// SetCurrentCompany selects one of the caller's companies.
func (s *UserService) SetCurrentCompany(ctx context.Context, sess *models.Session, companyID string) error {
	if !sess.IsMember(companyID) {
		return ErrNotMember
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE users SET current_company_id = $1, updated_at = NOW() WHERE id = $2
	`, companyID, sess.UserID); err != nil {
		return fmt.Errorf("set current company: %w", err)
	}
	return nil
}

// ============================================================================
// CREDENTIALS
// ============================================================================

// ChangePassword also revokes every refresh token of the user.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(current, u.PasswordHash) {
		return ErrInvalidCredentials
	}
	hash, err := utils.HashPassword(next)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hash, userID); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		return nil
	})
}

// SetupTOTP stores a new, not yet enabled secret.
func (s *UserService) SetupTOTP(ctx context.Context, userID, email string) (*models.TOTPSetupResponse, error) {
	secret, url, err := utils.GenerateTOTPSecret(email)
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}
	sealed, err := utils.SealSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("seal totp secret: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_secret = $1, totp_enabled = FALSE, updated_at = NOW() WHERE id = $2
	`, sealed, userID); err != nil {
		return nil, fmt.Errorf("store totp secret: %w", err)
	}
	return &models.TOTPSetupResponse{Secret: secret, QRCode: url}, nil
}

func (s *UserService) EnableTOTP(ctx context.Context, userID, code string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.TOTPSecret == "" {
		return fmt.Errorf("%w: run 2FA setup first", ErrInvalidInput)
	}
	if !utils.VerifyTOTP(u.TOTPSecret, code) {
		return ErrInvalidTOTP
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET totp_enabled = TRUE, updated_at = NOW() WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("enable totp: %w", err)
	}
	utils.LogAuthAction("2FA enabled", u.Email, true)
	return nil
}

func (s *UserService) DisableTOTP(ctx context.Context, userID, password, code string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(password, u.PasswordHash) {
		return ErrInvalidCredentials
	}
	if !utils.VerifyTOTP(u.TOTPSecret, code) {
		return ErrInvalidTOTP
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_enabled = FALSE, totp_secret = NULL, updated_at = NOW() WHERE id = $1
	`, userID); err != nil {
		return fmt.Errorf("disable totp: %w", err)
	}
	utils.LogAuthAction("2FA disabled", u.Email, true)
	return nil
}

// Delete removes the account. Owned companies go with it; members whose
// current company disappears fall back to another membership.
func (s *UserService) Delete(ctx context.Context, userID, password string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(password, u.PasswordHash) {
		return ErrInvalidCredentials
	}
	return utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id FROM companies WHERE owner_id = $1`, userID)
		if err != nil {
			return fmt.Errorf("list owned companies: %w", err)
		}
		var owned []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			owned = append(owned, id)
		}
		rows.Close()

		var affected []string
		for _, companyID := range owned {
			ids, err := usersWithCurrentCompany(ctx, tx, companyID)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if id != userID {
					affected = append(affected, id)
				}
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if len(affected) > 0 {
			if err := fallbackCurrentCompany(ctx, tx, affected); err != nil {
				return err
			}
		}
		utils.LogAuthAction("Account deleted", u.Email, true)
		return nil
	})
}

// ============================================================================
// EXPORT
// ============================================================================

// AccountExport is the downloadable copy of a user's data.
type AccountExport struct {
	ExportedAt  time.Time           `json:"exported_at"`
	Profile     models.User         `json:"profile"`
	Companies   []models.Company    `json:"companies"`
	Events      []models.EventView  `json:"events"`
	Tasks       []models.Task       `json:"tasks"`
	Invitations []models.Invitation `json:"invitations"`
}

// Export gathers everything the user owns or can see about themselves.
// Event times are rendered in the user's profile timezone.
func (s *UserService) Export(ctx context.Context, userID string) (*AccountExport, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	companies, err := NewCompanyService(s.db).ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	events, err := NewEventService(s.db).ListOwned(ctx, userID)
	if err != nil {
		return nil, err
	}
	tasks, err := NewTaskService(s.db).ListOwned(ctx, userID)
	if err != nil {
		return nil, err
	}
	invitations, err := NewInvitationService(s.db, 0).ListReceived(ctx, u.Email)
	if err != nil {
		return nil, err
	}

	u.PasswordHash = ""
	u.TOTPSecret = ""
	return &AccountExport{
		ExportedAt:  time.Now().UTC(),
		Profile:     *u,
		Companies:   companies,
		Events:      ToEventViews(events, u.Timezone),
		Tasks:       tasks,
		Invitations: invitations,
	}, nil
}
