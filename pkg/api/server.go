// Package api exposes the review gate, notification and push operations as a
// JSON HTTP surface. Callers arrive already authenticated; the gateway passes
// the user id in the X-User-ID header.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/smith3v/focusdesk/pkg/db"
	"github.com/smith3v/focusdesk/pkg/notify"
	"github.com/smith3v/focusdesk/pkg/push"
	"github.com/smith3v/focusdesk/pkg/reminders"
	"github.com/smith3v/focusdesk/pkg/review"
	"github.com/smith3v/focusdesk/pkg/settings"
)

type StatusEvaluator interface {
	Evaluate(ctx context.Context, userID string, bypass bool) review.Status
}

type ReviewSaver interface {
	Save(ctx context.Context, userID string, fields review.Fields) (db.WeeklyReview, error)
}

type ReviewHistory interface {
	ListForUser(ctx context.Context, userID string, limit int) ([]db.WeeklyReview, error)
}

type ReminderPoller interface {
	Poll(ctx context.Context, userID string) (reminders.PollResult, error)
	Acknowledge(ctx context.Context, userID string, ids []string) (int64, error)
}

type PushManager interface {
	Subscribe(ctx context.Context, userID string, sub push.Subscription) (db.PushSubscription, error)
	Unsubscribe(ctx context.Context, userID, endpoint string) error
	DeliverAs(ctx context.Context, userID string, sub push.Subscription, payload *notify.Payload) (bool, error)
	DeliverToUser(ctx context.Context, userID string, payload *notify.Payload) (notify.Result, error)
}

type PayloadGenerator interface {
	Generate(ctx context.Context, kind notify.Kind, uc notify.UserContext) (*notify.Payload, error)
}

type PreferenceSource interface {
	Preferences(ctx context.Context, userID string) (settings.Preferences, error)
}

type Deps struct {
	Gate      StatusEvaluator
	Reviews   ReviewSaver
	History   ReviewHistory
	Poller    ReminderPoller
	Push      PushManager
	Generator PayloadGenerator
	Settings  PreferenceSource
	Now       func() time.Time
}

type Server struct {
	deps Deps
}

func NewServer(deps Deps) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Server{deps: deps}
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.Handle("GET /api/review/status", requireUser(s.handleReviewStatus))
	mux.Handle("POST /api/review", requireUser(s.handleReviewSave))
	mux.Handle("GET /api/review/history", requireUser(s.handleReviewHistory))

	mux.Handle("GET /api/notifications/poll", requireUser(s.handlePoll))
	mux.Handle("POST /api/notifications/poll", requireUser(s.handleAcknowledge))
	mux.Handle("POST /api/notifications/send", requireUser(s.handleSend))
	mux.Handle("POST /api/notifications/preview", requireUser(s.handlePreview))
	mux.Handle("POST /api/notifications/dispatch", requireUser(s.handleDispatch))

	mux.Handle("POST /api/push/subscribe", requireUser(s.handleSubscribe))
	mux.Handle("POST /api/push/unsubscribe", requireUser(s.handleUnsubscribe))

	return withRequestLog(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
