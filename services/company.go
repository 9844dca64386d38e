package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/utils"
)

type CompanyService struct {
	db *sql.DB
}

func NewCompanyService(db *sql.DB) *CompanyService {
	return &CompanyService{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Create inserts the company, makes the caller its owner and selects it as
// the caller's current company when none is set.
func (s *CompanyService) Create(ctx context.Context, name, ownerID string) (*models.Company, error) {
	company := &models.Company{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(name),
		OwnerID:     ownerID,
		Role:        models.RoleOwner,
		MemberCount: 1,
		CreatedAt:   time.Now().UTC(),
	}
	if company.Name == "" {
		return nil, fmt.Errorf("%w: company name is required", ErrInvalidInput)
	}

	err := utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO companies (id, name, owner_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
		`, company.ID, company.Name, ownerID, company.CreatedAt); err != nil {
			return fmt.Errorf("insert company: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO company_members (company_id, user_id, role, joined_at)
			VALUES ($1, $2, $3, $4)
		`, company.ID, ownerID, models.RoleOwner, company.CreatedAt); err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET current_company_id = $1, updated_at = NOW()
			WHERE id = $2 AND current_company_id IS NULL
		`, company.ID, ownerID); err != nil {
			return fmt.Errorf("set current company: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.LogCompanyAction("Created", company.ID, ownerID)
	return company, nil
}

// Role returns the user's role in the company or ErrNotMember.
func (s *CompanyService) Role(ctx context.Context, companyID, userID string) (string, error) {
	return memberRole(ctx, s.db, companyID, userID)
}

func memberRole(ctx context.Context, q querier, companyID, userID string) (string, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return "", ErrNotMember
	}
	var role string
	err := q.QueryRowContext(ctx, `
		SELECT role FROM company_members WHERE company_id = $1 AND user_id = $2
	`, companyID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotMember
	}
	if err != nil {
		return "", fmt.Errorf("load membership: %w", err)
	}
	return role, nil
}

// Memberships maps company id to role for a user.
func (s *CompanyService) Memberships(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT company_id, role FROM company_members WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, role string
		if err := rows.Scan(&id, &role); err != nil {
			return nil, err
		}
		out[id] = role
	}
	return out, rows.Err()
}

// ListForUser returns every company the user belongs to, with their role.
func (s *CompanyService) ListForUser(ctx context.Context, userID string) ([]models.Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.owner_id, cm.role, c.created_at,
		       (SELECT COUNT(*) FROM company_members m WHERE m.company_id = c.id)
		FROM companies c
		INNER JOIN company_members cm ON cm.company_id = c.id
		WHERE cm.user_id = $1
		ORDER BY c.name ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	companies := []models.Company{}
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.OwnerID, &c.Role, &c.CreatedAt, &c.MemberCount); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// Get returns one company as seen by a member.
func (s *CompanyService) Get(ctx context.Context, companyID, userID string) (*models.Company, error) {
	role, err := s.Role(ctx, companyID, userID)
	if err != nil {
		return nil, err
	}
	var c models.Company
	err = s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_at,
		       (SELECT COUNT(*) FROM company_members m WHERE m.company_id = companies.id)
		FROM companies WHERE id = $1
	`, companyID).Scan(&c.ID, &c.Name, &c.OwnerID, &c.CreatedAt, &c.MemberCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load company: %w", err)
	}
	c.Role = role
	return &c, nil
}

func (s *CompanyService) Rename(ctx context.Context, companyID, userID, name string) (*models.Company, error) {
	role, err := s.Role(ctx, companyID, userID)
	if err != nil {
		return nil, err
	}
	if !models.CanManage(role) {
		return nil, ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: company name is required", ErrInvalidInput)
	}

	err = utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE companies SET name = $1, updated_at = NOW() WHERE id = $2`, name, companyID); err != nil {
			return err
		}
		// pending invitations carry the name shown to the recipient
		_, err := tx.ExecContext(ctx, `
			UPDATE invitations SET company_name = $1, updated_at = NOW()
			WHERE company_id = $2 AND status = 'pending'
		`, name, companyID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("rename company: %w", err)
	}

	utils.LogCompanyAction("Renamed", companyID, userID)
	return s.Get(ctx, companyID, userID)
}

// Delete removes the company (owner only). Members whose current company
// it was fall back to another of their companies.
func (s *CompanyService) Delete(ctx context.Context, companyID, userID string) error {
	role, err := s.Role(ctx, companyID, userID)
	if err != nil {
		return err
	}
	if role != models.RoleOwner {
		return ErrForbidden
	}

	err = utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		affected, err := usersWithCurrentCompany(ctx, tx, companyID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, companyID); err != nil {
			return fmt.Errorf("delete company: %w", err)
		}
		return fallbackCurrentCompany(ctx, tx, affected)
	})
	if err != nil {
		return err
	}

	utils.LogCompanyAction("Deleted", companyID, userID)
	return nil
}

// Leave removes the caller's own membership. Owners must delete instead.
func (s *CompanyService) Leave(ctx context.Context, companyID, userID string) error {
	role, err := s.Role(ctx, companyID, userID)
	if err != nil {
		return err
	}
	if role == models.RoleOwner {
		return ErrOwnerCannotLeave
	}
	if err := s.removeMembership(ctx, companyID, userID); err != nil {
		return err
	}
	utils.LogCompanyAction("Left", companyID, userID)
	return nil
}

// RemoveMember is used by owners and admins. The owner cannot be removed.
func (s *CompanyService) RemoveMember(ctx context.Context, companyID, actorID, memberID string) error {
	actorRole, err := s.Role(ctx, companyID, actorID)
	if err != nil {
		return err
	}
	if !models.CanManage(actorRole) {
		return ErrForbidden
	}
	targetRole, err := s.Role(ctx, companyID, memberID)
	if err != nil {
		return ErrNotFound
	}
	if targetRole == models.RoleOwner {
		return ErrForbidden
	}
	if err := s.removeMembership(ctx, companyID, memberID); err != nil {
		return err
	}
	utils.LogCompanyAction("Removed member "+utils.MaskID(memberID), companyID, actorID)
	return nil
}

func (s *CompanyService) removeMembership(ctx context.Context, companyID, userID string) error {
	return utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM company_members WHERE company_id = $1 AND user_id = $2
		`, companyID, userID); err != nil {
			return fmt.Errorf("delete membership: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET current_company_id = NULL
			WHERE id = $1 AND current_company_id = $2
		`, userID, companyID); err != nil {
			return err
		}
		return fallbackCurrentCompany(ctx, tx, []string{userID})
	})
}

// Members lists a company's members, owner first, then admins, then users,
// each group by name then email.
func (s *CompanyService) Members(ctx context.Context, companyID, userID string) ([]models.CompanyMember, error) {
	if _, err := s.Role(ctx, companyID, userID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email, cm.role, cm.joined_at
		FROM company_members cm
		INNER JOIN users u ON u.id = cm.user_id
		WHERE cm.company_id = $1
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []models.CompanyMember{}
	for rows.Next() {
		var m models.CompanyMember
		if err := rows.Scan(&m.UserID, &m.Name, &m.Email, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	SortMembers(members)
	return members, nil
}

// SortMembers orders members by role rank, then name, then email.
func SortMembers(members []models.CompanyMember) {
	sort.SliceStable(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if ra, rb := models.RoleRank(a.Role), models.RoleRank(b.Role); ra != rb {
			return ra < rb
		}
		if na, nb := strings.ToLower(a.Name), strings.ToLower(b.Name); na != nb {
			return na < nb
		}
		return strings.ToLower(a.Email) < strings.ToLower(b.Email)
	})
}

// MemberEmails returns the lower-cased emails of a company's members.
func (s *CompanyService) MemberEmails(ctx context.Context, companyID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT LOWER(u.email) FROM company_members cm
		INNER JOIN users u ON u.id = cm.user_id
		WHERE cm.company_id = $1
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		out[email] = true
	}
	return out, rows.Err()
}

func usersWithCurrentCompany(ctx context.Context, q querier, companyID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM users WHERE current_company_id = $1`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// fallbackCurrentCompany points users without a current company at their
// oldest remaining membership.
func fallbackCurrentCompany(ctx context.Context, q querier, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := q.ExecContext(ctx, `
		UPDATE users u SET current_company_id = (
			SELECT cm.company_id FROM company_members cm
			WHERE cm.user_id = u.id
			ORDER BY cm.joined_at ASC
			LIMIT 1
		)
		WHERE u.id = ANY($1::uuid[]) AND u.current_company_id IS NULL
	`, pq.Array(userIDs))
	if err != nil {
		return fmt.Errorf("fallback current company: %w", err)
	}
	return nil
}
