package service

import "edulearn/internal/model"

// Broadcaster fans session messages out to bound connections. Implemented by
// the WebSocket hub. Sends are non-blocking: a slow connection never stalls
// the caller.
type Broadcaster interface {
	ToTeacher(sessionID string, msgType model.MessageType, payload interface{})
	ToStudents(sessionID string, msgType model.MessageType, payload interface{})
	ToStudentsExcept(sessionID, userID string, msgType model.MessageType, payload interface{})
	ToUser(sessionID, userID string, msgType model.MessageType, payload interface{})
	CloseSession(sessionID string)
}
