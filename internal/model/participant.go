package model

import "time"

type ConnectionState string

const (
	Connected    ConnectionState = "CONNECTED"
	Disconnected ConnectionState = "DISCONNECTED"
)

// Participant is a student bound to a session. One entry per distinct user,
// keyed by user id so a reconnect maps back to the same record. Records are
// never deleted mid-session, only flipped to DISCONNECTED.
type Participant struct {
	UserID          string          `json:"user_id" bson:"userId"`
	DisplayName     string          `json:"display_name" bson:"displayName"`
	ConnectionState ConnectionState `json:"connection_state" bson:"connectionState"`
	JoinedAt        time.Time       `json:"joined_at" bson:"joinedAt"`
	LastSeenAt      time.Time       `json:"last_seen_at" bson:"lastSeenAt"`
}

// AttendanceRecord is the final presence roster flushed to the attendance
// sink when a session ends.
type AttendanceRecord struct {
	ID        string        `json:"id" bson:"_id"`
	SessionID string        `json:"session_id" bson:"sessionId"`
	BatchID   string        `json:"batch_id" bson:"batchId"`
	TeacherID string        `json:"teacher_id" bson:"teacherId"`
	EndedAt   time.Time     `json:"ended_at" bson:"endedAt"`
	Roster    []Participant `json:"roster" bson:"roster"`
}
