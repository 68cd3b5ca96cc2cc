package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"edulearn/internal/model"
	"edulearn/internal/service"
	"edulearn/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// SessionHandler handles the session control-plane endpoints used by the
// teacher console.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// StartSessionRequest is the request body for starting a session.
type StartSessionRequest struct {
	BatchID string `json:"batch_id"`
}

// Start handles POST /v1/sessions
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.sessions.Start(r.Context(), req.BatchID, principal.UserID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// End handles POST /v1/sessions/{id}/end
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	principal := middleware.GetPrincipal(r.Context())

	if err := h.sessions.End(r.Context(), id, principal.UserID); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"state": string(model.SessionEnded)})
}

// PushContentRequest is the request body for pushing a content item.
type PushContentRequest struct {
	Type    model.ContentType `json:"type"`
	Payload string            `json:"payload"`
	Options []string          `json:"options,omitempty"`
}

// PushContent handles POST /v1/sessions/{id}/content
func (h *SessionHandler) PushContent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	principal := middleware.GetPrincipal(r.Context())

	var req PushContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.sessions.PushContent(id, principal.UserID, req.Type, req.Payload, req.Options)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// Get handles GET /v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	session, err := h.sessions.GetSession(id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Roster handles GET /v1/sessions/{id}/roster
func (h *SessionHandler) Roster(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	roster, err := h.sessions.Roster(id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"roster": roster})
}

// Analytics handles GET /v1/sessions/{id}/analytics
func (h *SessionHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	snapshot, err := h.sessions.Snapshot(id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if snapshot == nil {
		writeError(w, http.StatusNotFound, "no active content item")
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// ContentHistory handles GET /v1/sessions/{id}/content
func (h *SessionHandler) ContentHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	items, err := h.sessions.ContentHistory(id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// ResolveCode handles GET /v1/sessions/code/{code}. Public: students use it
// to turn a join code into a session id before opening the socket.
func (h *SessionHandler) ResolveCode(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	session, err := h.sessions.ResolveJoinCode(code)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": session.ID,
		"batch_id":   session.BatchID,
		"state":      string(session.State),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAlreadyLive):
		return http.StatusConflict
	case errors.Is(err, service.ErrSessionNotLive), errors.Is(err, service.ErrStaleContentItem):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidPayload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
