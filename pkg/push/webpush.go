package push

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/smith3v/focusdesk/pkg/config"
)

// WebPushTransport sends VAPID-signed, encrypted messages to browser push
// services.
type WebPushTransport struct {
	client          webpush.HTTPClient
	subscriber      string
	vapidPublicKey  string
	vapidPrivateKey string
	ttl             int
}

// NewWebPushTransport builds a transport from cfg. A nil client uses an
// http.Client bounded by cfg.TimeoutSeconds.
func NewWebPushTransport(cfg config.PushConfig, client webpush.HTTPClient) *WebPushTransport {
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	}
	return &WebPushTransport{
		client:          client,
		subscriber:      cfg.Subscriber,
		vapidPublicKey:  cfg.VAPIDPublicKey,
		vapidPrivateKey: cfg.VAPIDPrivateKey,
		ttl:             cfg.TTLSeconds,
	}
}

func (t *WebPushTransport) Send(ctx context.Context, sub Subscription, body []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Keys.Auth,
			P256dh: sub.Keys.P256dh,
		},
	}, &webpush.Options{
		HTTPClient:      t.client,
		Subscriber:      t.subscriber,
		VAPIDPublicKey:  t.vapidPublicKey,
		VAPIDPrivateKey: t.vapidPrivateKey,
		TTL:             t.ttl,
		Urgency:         webpush.UrgencyHigh,
	})
	if err != nil {
		return &DeliveryError{Err: fmt.Errorf("%w: %v", ErrDeliveryFailed, err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return &DeliveryError{StatusCode: resp.StatusCode, Err: ErrEndpointGone}
	default:
		return &DeliveryError{StatusCode: resp.StatusCode, Err: ErrDeliveryFailed}
	}
}
