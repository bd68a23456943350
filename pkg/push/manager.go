package push

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/smith3v/focusdesk/pkg/db"
	"github.com/smith3v/focusdesk/pkg/logger"
	"github.com/smith3v/focusdesk/pkg/notify"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	defaultAttemptTimeout = 10 * time.Second
	maxParallelDeliveries = 4
)

// Transport performs a single delivery attempt. Implementations return an
// error wrapping ErrEndpointGone when the endpoint will never accept messages
// again, and one wrapping ErrDeliveryFailed for anything else.
type Transport interface {
	Send(ctx context.Context, sub Subscription, body []byte) error
}

// DeliveryError carries the push service status alongside the failure class.
type DeliveryError struct {
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v (status %d)", e.Err, e.StatusCode)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func statusOf(err error) int {
	var deliveryErr *DeliveryError
	if errors.As(err, &deliveryErr) {
		return deliveryErr.StatusCode
	}
	return 0
}

type Manager struct {
	db        *gorm.DB
	transport Transport
	timeout   time.Duration
}

func NewManager(gdb *gorm.DB, transport Transport, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	return &Manager{db: gdb, transport: transport, timeout: timeout}
}

// Deliver makes one attempt to push payload to sub. A gone endpoint is
// deleted before the failure is reported. Nothing is retried here.
func (m *Manager) Deliver(ctx context.Context, sub Subscription, payload *notify.Payload) bool {
	body, err := payload.Encode()
	if err != nil {
		logger.Error("failed to encode payload", "endpoint", sub.Endpoint, "error", err)
		return false
	}

	attemptCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err = m.transport.Send(attemptCtx, sub, body)
	if err == nil {
		return true
	}

	if errors.Is(err, ErrEndpointGone) {
		logger.Info("removing gone push endpoint", "endpoint", sub.Endpoint, "status", statusOf(err))
		if delErr := m.deleteEndpoint(ctx, sub.Endpoint); delErr != nil {
			logger.Error("failed to remove gone push endpoint", "endpoint", sub.Endpoint, "error", delErr)
		}
		return false
	}
	logger.Error("push delivery failed", "endpoint", sub.Endpoint, "status", statusOf(err), "error", err)
	return false
}

// DeliverAs sends payload to a subscription supplied by userID. A stored
// endpoint owned by someone else is refused before anything is sent.
func (m *Manager) DeliverAs(ctx context.Context, userID string, sub Subscription, payload *notify.Payload) (bool, error) {
	sub.Endpoint = strings.TrimSpace(sub.Endpoint)
	if err := sub.Validate(); err != nil {
		return false, err
	}
	owner, err := m.ownerOf(ctx, sub.Endpoint)
	if err != nil {
		return false, err
	}
	if owner != "" && owner != userID {
		return false, ErrUnauthorized
	}
	return m.Deliver(ctx, sub, payload), nil
}

// DeliverToUser pushes payload to every subscription userID holds. Attempts
// run in parallel and a failed one never stops the others.
func (m *Manager) DeliverToUser(ctx context.Context, userID string, payload *notify.Payload) (notify.Result, error) {
	records, err := m.ListForUser(ctx, userID)
	if err != nil {
		return notify.Result{}, err
	}

	var succeeded atomic.Int64
	var g errgroup.Group
	g.SetLimit(maxParallelDeliveries)
	for _, record := range records {
		record := record
		g.Go(func() error {
			sub, err := FromRecord(record)
			if err != nil {
				logger.Error("skipping unreadable subscription", "user_id", userID, "endpoint", record.Endpoint, "error", err)
				return nil
			}
			if m.Deliver(ctx, sub, payload) {
				succeeded.Add(1)
			} else {
				logger.Debug("delivery attempt failed", "user_id", userID, "endpoint", record.Endpoint)
			}
			return nil
		})
	}
	_ = g.Wait()

	return notify.Result{Attempted: len(records), Succeeded: int(succeeded.Load())}, nil
}

// Channel adapts the manager to the reminder sweep.
func (m *Manager) Name() string {
	return "push"
}

func (m *Manager) Notify(ctx context.Context, reminder db.Reminder, payload *notify.Payload) (notify.Result, error) {
	return m.DeliverToUser(ctx, reminder.UserID, payload)
}
