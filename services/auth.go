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

type AuthService struct {
	db    *sql.DB
	users *UserService
}

func NewAuthService(db *sql.DB, users *UserService) *AuthService {
	return &AuthService{db: db, users: users}
}

func (s *AuthService) issue(ctx context.Context, q querier, u *models.User) (*models.AuthResponse, error) {
	accessToken, err := utils.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refreshToken, err := utils.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if _, err := q.ExecContext(ctx, `
		INSERT INTO sessions (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, u.ID, utils.HashRefreshToken(refreshToken), time.Now().Add(utils.RefreshTokenTTL)); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &models.AuthResponse{User: *u, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Signup creates the account with default preferences. The timezone sent
// by the browser is kept when valid.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	tz := strings.TrimSpace(req.Timezone)
	if !utils.IsValidTimezone(tz) {
		tz = "UTC"
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var resp *models.AuthResponse
	err = utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = $1)`, email).Scan(&exists); err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if exists {
			return ErrEmailTaken
		}

		prefs := models.DefaultNotificationPreferences()
		u, err := scanUser(tx.QueryRowContext(ctx, `
			INSERT INTO users (id, email, password_hash, name, timezone, notifications)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+userColumns,
			uuid.New().String(), email, hash, name, tz, prefs))
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		resp, err = s.issue(ctx, tx, &u)
		return err
	})
	if err != nil {
		return nil, err
	}
	utils.LogAuthAction("Signup", email, true)
	return resp, nil
}

// Login checks the password and, when 2FA is enabled, the TOTP code.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, ErrNotFound) {
		utils.LogAuthAction("Login", req.Email, false)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(req.Password, u.PasswordHash) {
		utils.LogAuthAction("Login", req.Email, false)
		return nil, ErrInvalidCredentials
	}
	if u.TOTPEnabled {
		if strings.TrimSpace(req.TOTPCode) == "" {
			return nil, ErrTOTPRequired
		}
		if !utils.VerifyTOTP(u.TOTPSecret, strings.TrimSpace(req.TOTPCode)) {
			utils.LogAuthAction("Login 2FA", req.Email, false)
			return nil, ErrInvalidTOTP
		}
	}

	resp, err := s.issue(ctx, s.db, u)
	if err != nil {
		return nil, err
	}
	utils.LogAuthAction("Login", u.Email, true)
	return resp, nil
}

// Refresh exchanges a live refresh token for a new access token. The
// refresh token itself is kept until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM sessions WHERE token_hash = $1 AND expires_at > NOW()
	`, utils.HashRefreshToken(refreshToken)).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	accessToken, err := utils.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &models.AuthResponse{User: *u, AccessToken: accessToken}, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, utils.HashRefreshToken(refreshToken)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CleanExpiredSessions removes refresh tokens past their expiry.
func (s *AuthService) CleanExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
