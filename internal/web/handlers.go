package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/geowarn/geowarn/internal/alert"
	"github.com/geowarn/geowarn/internal/dispatch"
	"github.com/geowarn/geowarn/internal/escalation"
)

// Handlers serves the escalation and notification JSON API.
type Handlers struct {
	manager    *escalation.Manager
	dispatcher *dispatch.Dispatcher
	prefs      *dispatch.PreferenceStore
}

// NewHandlers creates the API handlers.
func NewHandlers(manager *escalation.Manager, dispatcher *dispatch.Dispatcher, prefs *dispatch.PreferenceStore) *Handlers {
	return &Handlers{manager: manager, dispatcher: dispatcher, prefs: prefs}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Initiate starts the escalation for a newly created alert.
// POST /api/escalations
func (h *Handlers) Initiate(w http.ResponseWriter, r *http.Request) {
	var a alert.Alert
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid alert payload")
		return
	}
	if a.ID == "" {
		writeError(w, http.StatusBadRequest, "alert id is required")
		return
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	result, err := h.manager.Initiate(r.Context(), a)
	if err != nil {
		if errors.Is(err, escalation.ErrAlreadyActive) {
			writeError(w, http.StatusConflict, "escalation already active for alert")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to initiate escalation")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"alert_id":                   result.AlertID,
		"level":                      result.Level,
		"contacts_notified":          result.ContactsNotified,
		"next_escalation_in_seconds": int(result.NextEscalationIn.Seconds()),
		"status":                     "initiated",
	})
}

// Acknowledge records a human acknowledgment.
// POST /api/escalations/{id}/acknowledge
func (h *Handlers) Acknowledge(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "id")

	var body struct {
		AcknowledgedBy string `json:"acknowledged_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AcknowledgedBy == "" {
		writeError(w, http.StatusBadRequest, "acknowledged_by is required")
		return
	}

	ok := h.manager.Acknowledge(alertID, body.AcknowledgedBy)
	writeJSON(w, http.StatusOK, map[string]bool{"acknowledged": ok})
}

// BulkAcknowledge acknowledges several alerts at once, reporting which
// ones had no active escalation.
// POST /api/escalations/acknowledge
func (h *Handlers) BulkAcknowledge(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AlertIDs       []string `json:"alert_ids"`
		AcknowledgedBy string   `json:"acknowledged_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AcknowledgedBy == "" || len(body.AlertIDs) == 0 {
		writeError(w, http.StatusBadRequest, "alert_ids and acknowledged_by are required")
		return
	}

	acknowledged := []string{}
	missed := []string{}
	for _, id := range body.AlertIDs {
		if h.manager.Acknowledge(id, body.AcknowledgedBy) {
			acknowledged = append(acknowledged, id)
		} else {
			missed = append(missed, id)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"acknowledged": acknowledged,
		"missed":       missed,
	})
}

// Resolve closes an escalation.
// POST /api/escalations/{id}/resolve
func (h *Handlers) Resolve(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "id")

	var body struct {
		ResolvedBy string `json:"resolved_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ResolvedBy == "" {
		writeError(w, http.StatusBadRequest, "resolved_by is required")
		return
	}

	ok := h.manager.Resolve(alertID, body.ResolvedBy)
	writeJSON(w, http.StatusOK, map[string]bool{"resolved": ok})
}

// Status reports the current escalation state of an alert.
// GET /api/escalations/{id}
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "id")

	status, ok := h.manager.StatusOf(alertID)
	if !ok {
		writeError(w, http.StatusNotFound, "no escalation for alert")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// SetPreference stores a user's notification preferences.
// POST /api/notifications/preferences
func (h *Handlers) SetPreference(w http.ResponseWriter, r *http.Request) {
	var pref dispatch.Preference
	if err := json.NewDecoder(r.Body).Decode(&pref); err != nil || pref.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	h.prefs.Set(pref)
	writeJSON(w, http.StatusOK, pref)
}

// GetPreference returns a user's notification preferences.
// GET /api/notifications/preferences/{userID}
func (h *Handlers) GetPreference(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	pref, ok := h.prefs.Get(userID)
	if !ok {
		writeError(w, http.StatusNotFound, "no preferences for user")
		return
	}
	writeJSON(w, http.StatusOK, pref)
}

// TestChannels sends a diagnostic notification through every channel a
// target was supplied for.
// POST /api/notifications/test
func (h *Handlers) TestChannels(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email      string `json:"email"`
		Phone      string `json:"phone"`
		WebhookURL string `json:"webhook_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if body.Email == "" && body.Phone == "" && body.WebhookURL == "" {
		writeError(w, http.StatusBadRequest, "at least one of email, phone, webhook_url is required")
		return
	}

	results := h.dispatcher.TestChannels(r.Context(), body.Email, body.Phone, body.WebhookURL)
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}
