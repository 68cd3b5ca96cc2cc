package model

import "encoding/json"

// MessageType tags every message on the session socket.
type MessageType string

// Client -> server message types.
const (
	MsgJoin         MessageType = "JOIN"
	MsgLeave        MessageType = "LEAVE"
	MsgPushQuiz     MessageType = "PUSH_QUIZ"
	MsgPushPoll     MessageType = "PUSH_POLL"
	MsgPushMaterial MessageType = "PUSH_MATERIAL"
	MsgResponse     MessageType = "RESPONSE"
	MsgRaiseHand    MessageType = "RAISE_HAND"
)

// Server -> client message types.
const (
	MsgUserJoin         MessageType = "USER_JOIN"
	MsgUserLeft         MessageType = "USER_LEFT"
	MsgResponseReceived MessageType = "RESPONSE_RECEIVED"
	MsgError            MessageType = "ERROR"
)

// Envelope is the wire format for every session message.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload is sent by a client with MsgJoin.
type JoinPayload struct {
	Name string `json:"name,omitempty"`
}

// PushPayload is sent by the teacher with MsgPushQuiz/MsgPushPoll/MsgPushMaterial.
type PushPayload struct {
	Payload string   `json:"payload"`
	Options []string `json:"options,omitempty"`
}

// ResponsePayload is sent by a student with MsgResponse.
type ResponsePayload struct {
	ContentItemID string `json:"content_item_id"`
	Answer        string `json:"answer"`
}

// UserJoinPayload is broadcast when a participant first joins.
type UserJoinPayload struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// UserLeftPayload is broadcast when a participant's grace window expires.
type UserLeftPayload struct {
	UserID string `json:"user_id"`
}

// ResponseReceivedPayload goes to the teacher console only, carrying the
// refreshed snapshot so the live chart needs no extra round trip.
type ResponseReceivedPayload struct {
	UserID   string             `json:"user_id"`
	Answer   string             `json:"answer"`
	Snapshot *AnalyticsSnapshot `json:"snapshot,omitempty"`
}

// RaiseHandPayload goes to the teacher console only.
type RaiseHandPayload struct {
	UserID string `json:"user_id"`
}

// ErrorPayload is returned to the originating connection only, never broadcast.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
