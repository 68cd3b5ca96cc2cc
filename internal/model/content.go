package model

import "time"

type ContentType string

const (
	ContentQuiz     ContentType = "QUIZ"
	ContentPoll     ContentType = "POLL"
	ContentMaterial ContentType = "MATERIAL"
)

// ContentItem is a pushed quiz, poll, or material artifact. Immutable once
// pushed; a session has at most one active item at a time.
type ContentItem struct {
	ID       string      `json:"id" bson:"_id"`
	Type     ContentType `json:"type" bson:"type"`
	Payload  string      `json:"payload" bson:"payload"`
	Options  []string    `json:"options,omitempty" bson:"options,omitempty"`
	PushedAt time.Time   `json:"pushed_at" bson:"pushedAt"`
}
