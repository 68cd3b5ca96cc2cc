package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"edulearn/internal/model"
	"edulearn/internal/service"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// Handler is the connection gateway: it authenticates the connecting
// principal, binds the socket to a (session, user) pair, and runs the pumps.
type Handler struct {
	hub      *Hub
	authSvc  service.TokenValidator
	sessions *service.SessionService
}

// NewHandler creates a new WebSocket handler.
func NewHandler(hub *Hub, authSvc service.TokenValidator, sessions *service.SessionService) *Handler {
	return &Handler{
		hub:      hub,
		authSvc:  authSvc,
		sessions: sessions,
	}
}

// SessionWS handles GET /v1/ws/sessions/{id}
func (h *Handler) SessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	token := r.URL.Query().Get("token")

	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	principal, err := h.authSvc.Validate(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if err := h.sessions.AuthorizeConnect(r.Context(), sessionID, principal); err != nil {
		http.Error(w, err.Error(), connectRejectStatus(err))
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	conn := &Conn{
		SessionID: sessionID,
		UserID:    principal.UserID,
		Role:      principal.Role,
		Send:      make(chan []byte, sendBufferSize),
	}

	h.hub.Register(conn)
	h.sessions.HandleConnect(sessionID, principal)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn, principal)
}

// readPump forwards parsed inbound messages into the session's queue. It
// blocks only on network reads; session state is never touched here.
func (h *Handler) readPump(wsConn *websocket.Conn, conn *Conn, principal *model.Principal) {
	defer func() {
		if h.hub.Unregister(conn) {
			h.sessions.HandleDisconnect(conn.SessionID, conn.UserID, conn.Role)
		}
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var env model.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			h.hub.ToUser(conn.SessionID, conn.UserID, model.MsgError, model.ErrorPayload{
				Code:    service.ErrorCode(service.ErrInvalidPayload),
				Message: "malformed message envelope",
			})
			continue
		}

		if err := h.sessions.HandleMessage(conn.SessionID, principal, env); err != nil {
			h.hub.ToUser(conn.SessionID, conn.UserID, model.MsgError, model.ErrorPayload{
				Code:    service.ErrorCode(err),
				Message: err.Error(),
			})
		}
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := wsConn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func connectRejectStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSessionNotLive):
		return http.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
