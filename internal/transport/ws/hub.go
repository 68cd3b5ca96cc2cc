package ws

import (
	"encoding/json"
	"log"
	"sync"

	"edulearn/internal/model"
)

// Conn represents one bound WebSocket connection for a (session, user) pair.
type Conn struct {
	SessionID string
	UserID    string
	Role      string
	Send      chan []byte

	// Guarded by the hub mutex.
	superseded bool
	dropped    bool
}

type broadcastMessage struct {
	sessionID string
	toTeacher bool
	exclude   string
	toUser    string
	message   *model.Envelope
}

// Hub manages WebSocket connections for sessions and fans outbound messages
// out to them. Sends to individual connections never block: a connection
// whose outbound queue overflows is dropped rather than stalling delivery to
// the rest of the session.
type Hub struct {
	mu           sync.Mutex
	teacherConns map[string]*Conn            // sessionID -> conn
	studentConns map[string]map[string]*Conn // sessionID -> userID -> conn

	broadcast chan *broadcastMessage
}

// NewHub creates a hub and starts its delivery loop.
func NewHub() *Hub {
	h := &Hub{
		teacherConns: make(map[string]*Conn),
		studentConns: make(map[string]map[string]*Conn),
		broadcast:    make(chan *broadcastMessage, 256),
	}
	go h.run()
	return h
}

// Register binds a connection. A second connection for the same
// (session, user) supersedes the first: the older one is closed without
// counting as a departure, which tolerates reconnect-before-timeout.
func (h *Hub) Register(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn.Role == model.RoleTeacher {
		if old, ok := h.teacherConns[conn.SessionID]; ok {
			old.superseded = true
			close(old.Send)
		}
		h.teacherConns[conn.SessionID] = conn
		log.Printf("teacher %s connected to session %s", conn.UserID, conn.SessionID)
		return
	}

	if h.studentConns[conn.SessionID] == nil {
		h.studentConns[conn.SessionID] = make(map[string]*Conn)
	}
	if old, ok := h.studentConns[conn.SessionID][conn.UserID]; ok {
		old.superseded = true
		close(old.Send)
	}
	h.studentConns[conn.SessionID][conn.UserID] = conn
	log.Printf("student %s connected to session %s", conn.UserID, conn.SessionID)
}

// Unregister removes a connection. It reports whether the peer should be
// treated as disconnected: false when this connection was superseded by a
// newer one or the whole session was closed, true on a real drop.
func (h *Hub) Unregister(conn *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn.dropped {
		return true
	}
	if conn.superseded {
		return false
	}

	if conn.Role == model.RoleTeacher {
		if existing, ok := h.teacherConns[conn.SessionID]; ok && existing == conn {
			delete(h.teacherConns, conn.SessionID)
			close(conn.Send)
			log.Printf("teacher %s disconnected from session %s", conn.UserID, conn.SessionID)
			return true
		}
		return false
	}

	if students, ok := h.studentConns[conn.SessionID]; ok {
		if existing, ok := students[conn.UserID]; ok && existing == conn {
			delete(students, conn.UserID)
			if len(students) == 0 {
				delete(h.studentConns, conn.SessionID)
			}
			close(conn.Send)
			log.Printf("student %s disconnected from session %s", conn.UserID, conn.SessionID)
			return true
		}
	}
	return false
}

// CloseSession closes every connection bound to a session. Used when the
// session ends; the resulting pump exits do not count as departures.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, ok := h.teacherConns[sessionID]; ok {
		conn.superseded = true
		close(conn.Send)
		delete(h.teacherConns, sessionID)
	}
	for _, conn := range h.studentConns[sessionID] {
		conn.superseded = true
		close(conn.Send)
	}
	delete(h.studentConns, sessionID)
	log.Printf("closed all connections for session %s", sessionID)
}

// ToTeacher sends a message to the session's teacher console (implements
// service.Broadcaster).
func (h *Hub) ToTeacher(sessionID string, msgType model.MessageType, payload interface{}) {
	h.send(&broadcastMessage{sessionID: sessionID, toTeacher: true, message: envelope(msgType, payload)})
}

// ToStudents sends a message to every connected student in the session.
func (h *Hub) ToStudents(sessionID string, msgType model.MessageType, payload interface{}) {
	h.send(&broadcastMessage{sessionID: sessionID, message: envelope(msgType, payload)})
}

// ToStudentsExcept sends a message to every connected student except one.
func (h *Hub) ToStudentsExcept(sessionID, userID string, msgType model.MessageType, payload interface{}) {
	h.send(&broadcastMessage{sessionID: sessionID, exclude: userID, message: envelope(msgType, payload)})
}

// ToUser sends a message to a single participant's connection.
func (h *Hub) ToUser(sessionID, userID string, msgType model.MessageType, payload interface{}) {
	h.send(&broadcastMessage{sessionID: sessionID, toUser: userID, message: envelope(msgType, payload)})
}

func (h *Hub) send(msg *broadcastMessage) {
	h.broadcast <- msg
}

func envelope(msgType model.MessageType, payload interface{}) *model.Envelope {
	data, _ := json.Marshal(payload)
	return &model.Envelope{Type: msgType, Payload: data}
}

func (h *Hub) run() {
	for msg := range h.broadcast {
		h.deliver(msg)
	}
}

func (h *Hub) deliver(msg *broadcastMessage) {
	data, err := json.Marshal(msg.message)
	if err != nil {
		log.Printf("failed to marshal %s broadcast: %v", msg.message.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if msg.toTeacher {
		if conn, ok := h.teacherConns[msg.sessionID]; ok {
			h.push(conn, data)
		}
		return
	}

	if msg.toUser != "" {
		if conn, ok := h.teacherConns[msg.sessionID]; ok && conn.UserID == msg.toUser {
			h.push(conn, data)
			return
		}
		if students, ok := h.studentConns[msg.sessionID]; ok {
			if conn, ok := students[msg.toUser]; ok {
				h.push(conn, data)
			}
		}
		return
	}

	for userID, conn := range h.studentConns[msg.sessionID] {
		if userID == msg.exclude {
			continue
		}
		h.push(conn, data)
	}
}

// push enqueues data on a connection without blocking. Overflow means the
// peer stopped draining; the connection is dropped so the broadcast never
// stalls. Caller holds h.mu.
func (h *Hub) push(conn *Conn, data []byte) {
	select {
	case conn.Send <- data:
	default:
		conn.dropped = true
		if conn.Role == model.RoleTeacher {
			delete(h.teacherConns, conn.SessionID)
		} else if students, ok := h.studentConns[conn.SessionID]; ok {
			delete(students, conn.UserID)
			if len(students) == 0 {
				delete(h.studentConns, conn.SessionID)
			}
		}
		close(conn.Send)
		log.Printf("dropped %s %s from session %s: outbound queue full", conn.Role, conn.UserID, conn.SessionID)
	}
}
