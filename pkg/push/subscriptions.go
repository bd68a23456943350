// Package push stores Web Push subscriptions and delivers payloads to them,
// pruning endpoints the push service reports as gone.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/smith3v/focusdesk/pkg/db"
	"github.com/smith3v/focusdesk/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound       = errors.New("subscription not found")
	ErrUnauthorized   = errors.New("subscription belongs to another user")
	ErrValidation     = errors.New("invalid subscription")
	ErrDeliveryFailed = errors.New("push delivery failed")
	ErrEndpointGone   = errors.New("push endpoint gone")
)

// Keys are the browser-issued encryption keys of a subscription.
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is a subscription as the browser's PushManager reports it.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     Keys   `json:"keys"`
}

func (s Subscription) Validate() error {
	endpoint := strings.TrimSpace(s.Endpoint)
	if endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrValidation)
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme != "https" || parsed.Host == "" {
		return fmt.Errorf("%w: endpoint must be an absolute https URL", ErrValidation)
	}
	if strings.TrimSpace(s.Keys.P256dh) == "" || strings.TrimSpace(s.Keys.Auth) == "" {
		return fmt.Errorf("%w: keys.p256dh and keys.auth are required", ErrValidation)
	}
	return nil
}

// FromRecord rebuilds the wire form of a stored subscription.
func FromRecord(record db.PushSubscription) (Subscription, error) {
	sub := Subscription{Endpoint: record.Endpoint}
	if err := json.Unmarshal(record.Keys, &sub.Keys); err != nil {
		return Subscription{}, fmt.Errorf("decode keys for %s: %w", record.ID, err)
	}
	return sub, nil
}

// Subscribe stores sub for userID. The endpoint is the key: subscribing an
// endpoint that another user held moves it to userID.
func (m *Manager) Subscribe(ctx context.Context, userID string, sub Subscription) (db.PushSubscription, error) {
	if strings.TrimSpace(userID) == "" {
		return db.PushSubscription{}, fmt.Errorf("%w: missing user", ErrValidation)
	}
	if err := sub.Validate(); err != nil {
		return db.PushSubscription{}, err
	}
	keys, err := json.Marshal(sub.Keys)
	if err != nil {
		return db.PushSubscription{}, err
	}

	record := db.PushSubscription{
		UserID:   userID,
		Endpoint: strings.TrimSpace(sub.Endpoint),
		Keys:     datatypes.JSON(keys),
	}
	err = m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "keys", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		logger.Error("failed to store push subscription", "user_id", userID, "error", err)
		return db.PushSubscription{}, err
	}

	var stored db.PushSubscription
	err = m.db.WithContext(ctx).Where("endpoint = ?", record.Endpoint).First(&stored).Error
	return stored, err
}

// Unsubscribe removes endpoint for userID. An unknown endpoint is not an
// error; an endpoint held by someone else is rejected without writing.
func (m *Manager) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrValidation)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing db.PushSubscription
		err := tx.Where("endpoint = ?", endpoint).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if existing.UserID != userID {
			return ErrUnauthorized
		}
		return tx.Where("id = ? AND user_id = ?", existing.ID, userID).
			Delete(&db.PushSubscription{}).Error
	})
}

// ListForUser returns userID's subscriptions, oldest first.
func (m *Manager) ListForUser(ctx context.Context, userID string) ([]db.PushSubscription, error) {
	subs := []db.PushSubscription{}
	err := m.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&subs).Error
	return subs, err
}

// ownerOf returns the stored owner of endpoint, or "" when it is not stored.
func (m *Manager) ownerOf(ctx context.Context, endpoint string) (string, error) {
	var existing db.PushSubscription
	err := m.db.WithContext(ctx).Select("user_id").Where("endpoint = ?", endpoint).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return existing.UserID, err
}

func (m *Manager) deleteEndpoint(ctx context.Context, endpoint string) error {
	return m.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&db.PushSubscription{}).Error
}
