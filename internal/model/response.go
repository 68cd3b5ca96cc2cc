package model

import "time"

// Response is one participant's answer to a content item, keyed by
// (participantId, contentItemId). A later response for the same key replaces
// the earlier one.
type Response struct {
	ParticipantID string    `json:"participant_id"`
	ContentItemID string    `json:"content_item_id"`
	Answer        string    `json:"answer"`
	ReceivedAt    time.Time `json:"received_at"`
}

// AnalyticsSnapshot is the live tally for the active content item. Derived
// state, recomputed incrementally as responses arrive.
type AnalyticsSnapshot struct {
	ContentItemID  string         `json:"content_item_id"`
	OptionCounts   map[string]int `json:"option_counts"`
	TotalResponses int            `json:"total_responses"`
}
