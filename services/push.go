package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/utils"
)

const pushTTLSeconds = 86400

// PushService delivers Web Push messages signed with the server's VAPID
// key pair.
type PushService struct {
	db         *sql.DB
	publicKey  string
	privateKey string
	subscriber string
}

// NewPushService takes the VAPID contact as configured ("mailto:" prefix
// optional).
func NewPushService(db *sql.DB, publicKey, privateKey, contact string) *PushService {
	return &PushService{
		db:         db,
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: strings.TrimPrefix(strings.TrimSpace(contact), "mailto:"),
	}
}

func (s *PushService) Configured() bool {
	return s.publicKey != "" && s.privateKey != ""
}

func (s *PushService) PublicKey() string {
	return s.publicKey
}

// Subscribe stores the browser subscription and opts the user into push.
func (s *PushService) Subscribe(ctx context.Context, userID string, sub models.PushSubscription) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET push_subscription = $1,
		    notifications = jsonb_set(COALESCE(notifications, '{}'::jsonb), '{push}', 'true'::jsonb),
		    updated_at = NOW()
		WHERE id = $2
	`, sub, userID)
	if err != nil {
		return fmt.Errorf("save push subscription: %w", err)
	}
	utils.LogNotification("push", "subscribe", userID, nil)
	return nil
}

// Unsubscribe removes the subscription and turns push off.
func (s *PushService) Unsubscribe(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET push_subscription = NULL,
		    notifications = jsonb_set(COALESCE(notifications, '{}'::jsonb), '{push}', 'false'::jsonb),
		    updated_at = NOW()
		WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("clear push subscription: %w", err)
	}
	utils.LogNotification("push", "unsubscribe", userID, nil)
	return nil
}

func (s *PushService) subscription(ctx context.Context, userID string) (*models.PushSubscription, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT push_subscription FROM users WHERE id = $1`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load push subscription: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var sub models.PushSubscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("decode push subscription: %w", err)
	}
	return &sub, nil
}

// SubscriptionGone reports push service answers meaning the subscription
// expired or was revoked.
func SubscriptionGone(status int) bool {
	return status == http.StatusNotFound || status == http.StatusGone
}

// SendToUser pushes payload to the user's stored subscription. A user
// without a subscription is not an error. Expired subscriptions are removed.
func (s *PushService) SendToUser(ctx context.Context, userID string, payload models.PushPayload) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	sub, err := s.subscription(ctx, userID)
	if err != nil {
		return err
	}
	if sub == nil || sub.Endpoint == "" {
		utils.SafeDebug("No push subscription for user %s", userID)
		return nil
	}

	message, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, message, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Keys.Auth,
			P256dh: sub.Keys.P256dh,
		},
	}, &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             pushTTLSeconds,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if SubscriptionGone(resp.StatusCode) {
		utils.SafeWarn("Push subscription for %s is gone (%d), removing it", userID, resp.StatusCode)
		if _, err := s.db.ExecContext(ctx, `UPDATE users SET push_subscription = NULL WHERE id = $1`, userID); err != nil {
			utils.SafeError("Could not clear push subscription: %v", err)
		}
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push service returned status: %d", resp.StatusCode)
	}
	return nil
}

// GenerateVAPIDKeys returns a fresh key pair for VAPID_PUBLIC_KEY and
// VAPID_PRIVATE_KEY.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	return publicKey, privateKey, err
}
