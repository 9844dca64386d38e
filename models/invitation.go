package models

import (
	"time"
)

const (
	InvitationPending   = "pending"
	InvitationAccepted  = "accepted"
	InvitationDeclined  = "declined"
	InvitationDismissed = "dismissed"
)

type Invitation struct {
	ID             string    `json:"id"`
	SenderID       string    `json:"sender_id"`
	SenderEmail    string    `json:"sender_email"`
	RecipientEmail string    `json:"recipient_email"`
	CompanyID      string    `json:"company_id"`
	CompanyName    string    `json:"company_name"`
	Role           string    `json:"role"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CanTransition reports whether the recipient may move an invitation from
// one status to another. Pending invitations can be answered or dismissed;
// answered ones can only be dismissed.
func CanTransition(from, to string) bool {
	switch from {
	case InvitationPending:
		return to == InvitationAccepted || to == InvitationDeclined || to == InvitationDismissed
	case InvitationAccepted, InvitationDeclined:
		return to == InvitationDismissed
	default:
		return false
	}
}

// NormalizeInviteRole keeps admin, everything else becomes user.
func NormalizeInviteRole(role string) string {
	if role == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

type SendInvitationRequest struct {
	RecipientEmail string `json:"recipient_email" binding:"required,email"`
	CompanyID      string `json:"company_id" binding:"required"`
	Role           string `json:"role"`
}

type RespondInvitationRequest struct {
	Status string `json:"status" binding:"required,oneof=accepted declined dismissed"`
}

type InvitationList struct {
	Received     []Invitation `json:"received"`
	Sent         []Invitation `json:"sent"`
	PendingCount int          `json:"pending_count"`
}
