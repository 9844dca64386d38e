package services

import (
	"errors"
	"testing"
	"time"

	"github.com/LovationAdmin/dayclap-api/models"
)

func TestCheckCooldown(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cooldown := 300 * time.Second

	tests := []struct {
		name        string
		last        time.Time
		wantBlocked bool
		wantSeconds int
	}{
		{"never invited", time.Time{}, false, 0},
		{"just sent", now, true, 300},
		{"100s ago", now.Add(-100 * time.Second), true, 200},
		{"rounds up", now.Add(-100*time.Second - 500*time.Millisecond), true, 200},
		{"exactly elapsed", now.Add(-cooldown), false, 0},
		{"long ago", now.Add(-time.Hour), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCooldown(tt.last, now, cooldown)
			if !tt.wantBlocked {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrCooldown) {
				t.Fatalf("err = %v, want ErrCooldown", err)
			}
			var ce *CooldownError
			if !errors.As(err, &ce) {
				t.Fatalf("err is %T, want *CooldownError", err)
			}
			if ce.RetryAfterSeconds() != tt.wantSeconds {
				t.Errorf("RetryAfterSeconds = %d, want %d", ce.RetryAfterSeconds(), tt.wantSeconds)
			}
			if !ce.NextAllowedAt.Equal(tt.last.Add(cooldown)) {
				t.Errorf("NextAllowedAt = %v, want %v", ce.NextAllowedAt, tt.last.Add(cooldown))
			}
		})
	}

	if err := CheckCooldown(now, now, 0); err != nil {
		t.Errorf("zero cooldown should never block, got %v", err)
	}
}

func TestInvitationData(t *testing.T) {
	data := InvitationData(models.Invitation{
		SenderEmail: "owner@example.com",
		CompanyName: "Acme",
		Role:        models.RoleAdmin,
	})
	if data["role"] != "Admin" || data["company_name"] != "Acme" || data["sender_email"] != "owner@example.com" {
		t.Errorf("InvitationData = %v", data)
	}
	if got := InvitationData(models.Invitation{})["role"]; got != "" {
		t.Errorf("empty role = %q", got)
	}
}
