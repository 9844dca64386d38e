package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/utils"
)

type InvitationService struct {
	db       *sql.DB
	cooldown time.Duration
}

func NewInvitationService(db *sql.DB, cooldown time.Duration) *InvitationService {
	return &InvitationService{db: db, cooldown: cooldown}
}

// CooldownError reports when the same invitation may be sent again.
type CooldownError struct {
	RetryAfter    time.Duration
	NextAllowedAt time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("please wait %d seconds before re-inviting this user", e.RetryAfterSeconds())
}

func (e *CooldownError) Unwrap() error { return ErrCooldown }

// RetryAfterSeconds rounds up so clients never retry too early.
func (e *CooldownError) RetryAfterSeconds() int {
	return int(math.Ceil(e.RetryAfter.Seconds()))
}

// CheckCooldown returns a CooldownError when last+cooldown is still in the
// future. A zero last means no previous invitation.
func CheckCooldown(last, now time.Time, cooldown time.Duration) error {
	if last.IsZero() || cooldown <= 0 {
		return nil
	}
	next := last.Add(cooldown)
	if !now.Before(next) {
		return nil
	}
	return &CooldownError{RetryAfter: next.Sub(now), NextAllowedAt: next.UTC()}
}

const invitationColumns = `
	id, sender_id, sender_email, recipient_email, company_id, company_name, role, status, created_at, updated_at
`

func scanInvitation(row rowScanner) (models.Invitation, error) {
	var inv models.Invitation
	err := row.Scan(&inv.ID, &inv.SenderID, &inv.SenderEmail, &inv.RecipientEmail, &inv.CompanyID,
		&inv.CompanyName, &inv.Role, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

// Send creates a pending invitation. Only owners and admins may invite.
func (s *InvitationService) Send(ctx context.Context, sess *models.Session, req models.SendInvitationRequest) (*models.Invitation, error) {
	role := sess.RoleIn(req.CompanyID)
	if role == "" {
		return nil, ErrNotMember
	}
	if !models.CanManage(role) {
		return nil, ErrForbidden
	}
	recipient := strings.ToLower(strings.TrimSpace(req.RecipientEmail))
	if recipient == "" {
		return nil, fmt.Errorf("%w: recipient email is required", ErrInvalidInput)
	}

	var isMember bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM company_members cm
			INNER JOIN users u ON u.id = cm.user_id
			WHERE cm.company_id = $1 AND LOWER(u.email) = $2
		)
	`, req.CompanyID, recipient).Scan(&isMember)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if isMember {
		return nil, ErrAlreadyMember
	}

	var last sql.NullTime
	err = s.db.QueryRowContext(ctx, `
		SELECT MAX(created_at) FROM invitations
		WHERE sender_id = $1 AND recipient_email = $2 AND company_id = $3
	`, sess.UserID, recipient, req.CompanyID).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("check cooldown: %w", err)
	}
	if last.Valid {
		if err := CheckCooldown(last.Time, time.Now(), s.cooldown); err != nil {
			return nil, err
		}
	}

	var companyName string
	err = s.db.QueryRowContext(ctx, `SELECT name FROM companies WHERE id = $1`, req.CompanyID).Scan(&companyName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load company: %w", err)
	}

	inv, err := scanInvitation(s.db.QueryRowContext(ctx, `
		INSERT INTO invitations (id, sender_id, sender_email, recipient_email, company_id, company_name, role, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+invitationColumns,
		uuid.New().String(), sess.UserID, strings.ToLower(sess.Email), recipient, req.CompanyID, companyName,
		models.NormalizeInviteRole(req.Role), models.InvitationPending))
	if err != nil {
		return nil, fmt.Errorf("insert invitation: %w", err)
	}

	utils.LogInvitation("Sent", inv.ID, recipient)
	return &inv, nil
}

// List returns invitations received (not dismissed) and sent by the caller.
func (s *InvitationService) List(ctx context.Context, sess *models.Session) (*models.InvitationList, error) {
	received, err := s.query(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE recipient_email = $1 AND status <> 'dismissed'
		ORDER BY created_at DESC
	`, strings.ToLower(sess.Email))
	if err != nil {
		return nil, err
	}
	sent, err := s.query(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE sender_id = $1
		ORDER BY created_at DESC
	`, sess.UserID)
	if err != nil {
		return nil, err
	}

	list := &models.InvitationList{Received: received, Sent: sent}
	for _, inv := range received {
		if inv.Status == models.InvitationPending {
			list.PendingCount++
		}
	}
	return list, nil
}

// ListReceived is used by the data export.
func (s *InvitationService) ListReceived(ctx context.Context, email string) ([]models.Invitation, error) {
	return s.query(ctx, `
		SELECT `+invitationColumns+` FROM invitations WHERE recipient_email = $1 ORDER BY created_at DESC
	`, strings.ToLower(email))
}

func (s *InvitationService) query(ctx context.Context, query string, args ...interface{}) ([]models.Invitation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	out := []models.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *InvitationService) load(ctx context.Context, q querier, id string) (*models.Invitation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	inv, err := scanInvitation(q.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load invitation: %w", err)
	}
	return &inv, nil
}

// Respond moves an invitation addressed to the caller to a new status.
// Accepting adds the membership and selects the company as current when
// the caller has none.
func (s *InvitationService) Respond(ctx context.Context, sess *models.Session, id, status string) (*models.Invitation, error) {
	var result *models.Invitation
	err := utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		inv, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if !strings.EqualFold(inv.RecipientEmail, sess.Email) {
			return ErrForbidden
		}
		if !models.CanTransition(inv.Status, status) {
			return ErrInvalidStatus
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE invitations SET status = $1, updated_at = NOW() WHERE id = $2
		`, status, id); err != nil {
			return fmt.Errorf("update invitation: %w", err)
		}

		if status == models.InvitationAccepted {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO company_members (company_id, user_id, role, joined_at)
				VALUES ($1, $2, $3, NOW())
				ON CONFLICT (company_id, user_id) DO NOTHING
			`, inv.CompanyID, sess.UserID, models.NormalizeInviteRole(inv.Role)); err != nil {
				return fmt.Errorf("add membership: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE users SET current_company_id = $1, updated_at = NOW()
				WHERE id = $2 AND current_company_id IS NULL
			`, inv.CompanyID, sess.UserID); err != nil {
				return fmt.Errorf("set current company: %w", err)
			}
		}

		inv.Status = status
		inv.UpdatedAt = time.Now().UTC()
		result = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.LogInvitation("Status "+status, id, sess.Email)
	return result, nil
}

// Cancel deletes a pending invitation the caller sent.
func (s *InvitationService) Cancel(ctx context.Context, sess *models.Session, id string) error {
	return utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		inv, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv.SenderID != sess.UserID {
			return ErrForbidden
		}
		if inv.Status != models.InvitationPending {
			return ErrInvalidStatus
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM invitations WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete invitation: %w", err)
		}
		utils.LogInvitation("Cancelled", id, inv.RecipientEmail)
		return nil
	})
}
