package models

import "time"

const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// RoleRank orders roles for member listings: owner, admin, user.
func RoleRank(role string) int {
	switch role {
	case RoleOwner:
		return 0
	case RoleAdmin:
		return 1
	case RoleUser:
		return 2
	default:
		return 3
	}
}

// CanManage reports whether role may rename the company, invite and remove
// members.
func CanManage(role string) bool {
	return role == RoleOwner || role == RoleAdmin
}

type Company struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	OwnerID     string    `json:"owner_id"`
	Role        string    `json:"role"` // requesting user's role
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type CompanyMember struct {
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type CreateCompanyRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

type UpdateCompanyRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}
