package model

import "time"

type SessionState string

const (
	SessionPending SessionState = "PENDING"
	SessionLive    SessionState = "LIVE"
	SessionEnded   SessionState = "ENDED"
)

// Session is one live classroom instance tied to a batch and a teacher.
type Session struct {
	ID                string       `json:"id" bson:"_id"`
	BatchID           string       `json:"batch_id" bson:"batchId"`
	TeacherID         string       `json:"teacher_id" bson:"teacherId"`
	JoinCode          string       `json:"join_code" bson:"joinCode"`
	State             SessionState `json:"state" bson:"state"`
	ActiveContentItem *ContentItem `json:"active_content_item,omitempty" bson:"activeContentItem,omitempty"`
	StartedAt         time.Time    `json:"started_at" bson:"startedAt"`
	EndedAt           *time.Time   `json:"ended_at,omitempty" bson:"endedAt,omitempty"`
}
