package service

import (
	"time"

	"edulearn/internal/model"
)

// ResponseAggregator keeps the running tally for the active content item.
// Responses are keyed by participant: a later answer from the same
// participant replaces the earlier one (last-write-wins) instead of adding a
// duplicate count. Owned by the coordinator, touched only under its lock.
type ResponseAggregator struct {
	item       *model.ContentItem
	responses  map[string]*model.Response
	counts     map[string]int
	restricted bool
}

// NewResponseAggregator creates an aggregator with no active item.
func NewResponseAggregator() *ResponseAggregator {
	return &ResponseAggregator{}
}

// Reset rebinds the aggregator to a newly pushed item. All option labels are
// pre-seeded at zero so the teacher chart renders empty buckets.
func (a *ResponseAggregator) Reset(item *model.ContentItem) {
	a.item = item
	a.responses = make(map[string]*model.Response)
	a.counts = make(map[string]int, len(item.Options))
	for _, opt := range item.Options {
		a.counts[opt] = 0
	}
	a.restricted = len(item.Options) > 0
}

// Submit upserts a response for (participantID, contentItemID) and updates
// the tally incrementally: the replaced answer's bucket is decremented, the
// new one incremented. Responses to anything but the active item fail with
// ErrStaleContentItem and leave the snapshot untouched.
func (a *ResponseAggregator) Submit(participantID, contentItemID, answer string) (*model.AnalyticsSnapshot, error) {
	if a.item == nil || contentItemID != a.item.ID {
		return nil, ErrStaleContentItem
	}
	if answer == "" {
		return nil, ErrInvalidPayload
	}
	if a.restricted {
		if _, ok := a.counts[answer]; !ok {
			return nil, ErrInvalidPayload
		}
	}

	if prev, ok := a.responses[participantID]; ok {
		a.counts[prev.Answer]--
	}
	a.responses[participantID] = &model.Response{
		ParticipantID: participantID,
		ContentItemID: contentItemID,
		Answer:        answer,
		ReceivedAt:    time.Now(),
	}
	a.counts[answer]++

	return a.Snapshot(), nil
}

// Snapshot returns the current tally for the active item, or nil when no
// item has been pushed yet.
func (a *ResponseAggregator) Snapshot() *model.AnalyticsSnapshot {
	if a.item == nil {
		return nil
	}
	counts := make(map[string]int, len(a.counts))
	for label, n := range a.counts {
		counts[label] = n
	}
	return &model.AnalyticsSnapshot{
		ContentItemID:  a.item.ID,
		OptionCounts:   counts,
		TotalResponses: len(a.responses),
	}
}
