package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smith3v/focusdesk/pkg/logger"
	"github.com/smith3v/focusdesk/pkg/notify"
	"github.com/smith3v/focusdesk/pkg/push"
	"github.com/smith3v/focusdesk/pkg/reminders"
	"github.com/smith3v/focusdesk/pkg/review"
	"github.com/smith3v/focusdesk/pkg/settings"
)

const (
	maxBodyBytes        = 1 << 20
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	IsLocked       bool         `json:"isLocked"`
	State          review.State `json:"state"`
	Deadline       *time.Time   `json:"deadline"`
	LastReviewDate *time.Time   `json:"lastReviewDate"`
}

type acknowledgeRequest struct {
	ReminderIDs []string `json:"reminderIds"`
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

type sendRequest struct {
	Subscription push.Subscription `json:"subscription"`
	Notification *notify.Payload   `json:"notification"`
}

type kindRequest struct {
	Type string `json:"type"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}

// writeError maps domain errors onto HTTP statuses. Anything unrecognised is
// logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, review.ErrValidation),
		errors.Is(err, push.ErrValidation),
		errors.Is(err, notify.ErrUnknownKind):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, push.ErrUnauthorized),
		errors.Is(err, reminders.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, push.ErrNotFound),
		errors.Is(err, settings.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "user_id", userIDFrom(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) userContext(r *http.Request) notify.UserContext {
	userID := userIDFrom(r.Context())
	uc := notify.UserContext{UserID: userID, Location: time.UTC, Now: s.deps.Now()}
	prefs, err := s.deps.Settings.Preferences(r.Context(), userID)
	if err == nil {
		uc.Location = prefs.Location
	} else if !errors.Is(err, settings.ErrNotFound) {
		logger.Warn("using UTC for notification, settings unavailable", "user_id", userID, "error", err)
	}
	return uc
}

func (s *Server) handleReviewStatus(w http.ResponseWriter, r *http.Request) {
	bypass, _ := strconv.ParseBool(r.URL.Query().Get("bypass"))
	status := s.deps.Gate.Evaluate(r.Context(), userIDFrom(r.Context()), bypass)
	writeJSON(w, http.StatusOK, statusResponse{
		IsLocked:       status.IsLocked(),
		State:          status.State,
		Deadline:       status.Deadline,
		LastReviewDate: status.LastReviewDate,
	})
}

func (s *Server) handleReviewSave(w http.ResponseWriter, r *http.Request) {
	var fields review.Fields
	if err := decodeJSON(w, r, &fields); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.deps.Reviews.Save(r.Context(), userIDFrom(r.Context()), fields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleReviewHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, r, fmt.Errorf("%w: limit must be a positive integer", errBadRequest))
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}
	history, err := s.deps.History.ListForUser(r.Context(), userIDFrom(r.Context()), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": history})
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Poller.Poll(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	var req acknowledgeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	count, err := s.deps.Poller.Acknowledge(r.Context(), userIDFrom(r.Context()), req.ReminderIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"acknowledged": count})
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var sub push.Subscription
	if err := decodeJSON(w, r, &sub); err != nil {
		writeError(w, r, err)
		return
	}
	stored, err := s.deps.Push.Subscribe(r.Context(), userIDFrom(r.Context()), sub)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": stored.ID})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Push.Unsubscribe(r.Context(), userIDFrom(r.Context()), req.Endpoint); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Notification == nil || strings.TrimSpace(req.Notification.Title) == "" {
		writeError(w, r, fmt.Errorf("%w: notification.title is required", errBadRequest))
		return
	}
	ok, err := s.deps.Push.DeliverAs(r.Context(), userIDFrom(r.Context()), req.Subscription, req.Notification)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "delivery failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) (*notify.Payload, bool) {
	var req kindRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return nil, false
	}
	kind, err := notify.ParseKind(req.Type)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	payload, err := s.deps.Generator.Generate(r.Context(), kind, s.userContext(r))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return payload, true
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.generate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.generate(w, r)
	if !ok {
		return
	}
	result, err := s.deps.Push.DeliverToUser(r.Context(), userIDFrom(r.Context()), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
