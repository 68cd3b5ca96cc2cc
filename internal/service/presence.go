package service

import (
	"sort"
	"time"

	"edulearn/internal/model"
)

// PresenceTracker maintains the participant set for one session. It is owned
// by the session's coordinator and must only be touched under the
// coordinator's lock; the grace-timer callbacks re-enter through the
// coordinator's inbound queue, never directly.
type PresenceTracker struct {
	participants map[string]*model.Participant
	timers       map[string]*time.Timer
	grace        time.Duration
	expired      func(userID string)
}

// NewPresenceTracker creates a tracker. expired is invoked from a timer
// goroutine when a disconnect outlives the grace window.
func NewPresenceTracker(grace time.Duration, expired func(userID string)) *PresenceTracker {
	return &PresenceTracker{
		participants: make(map[string]*model.Participant),
		timers:       make(map[string]*time.Timer),
		grace:        grace,
		expired:      expired,
	}
}

// Connect registers userID as connected and cancels any pending grace timer.
// It reports whether this is a new participant; a known participant
// reconnecting is a silent rejoin and gets no USER_JOIN broadcast.
func (p *PresenceTracker) Connect(userID, displayName string) bool {
	p.cancelTimer(userID)

	now := time.Now()
	if part, ok := p.participants[userID]; ok {
		part.ConnectionState = model.Connected
		part.LastSeenAt = now
		if displayName != "" {
			part.DisplayName = displayName
		}
		return false
	}

	p.participants[userID] = &model.Participant{
		UserID:          userID,
		DisplayName:     displayName,
		ConnectionState: model.Connected,
		JoinedAt:        now,
		LastSeenAt:      now,
	}
	return true
}

// Disconnect starts the grace window for userID. The participant stays
// CONNECTED until the window elapses so brief reconnects do not flap
// JOIN/LEFT notifications.
func (p *PresenceTracker) Disconnect(userID string) {
	part, ok := p.participants[userID]
	if !ok || part.ConnectionState != model.Connected {
		return
	}
	part.LastSeenAt = time.Now()

	p.cancelTimer(userID)
	p.timers[userID] = time.AfterFunc(p.grace, func() {
		p.expired(userID)
	})
}

// Expire handles a grace-window expiry. It reports whether the participant
// was flipped to DISCONNECTED; a stale expiry that lost the race against a
// reconnect is a no-op.
func (p *PresenceTracker) Expire(userID string) bool {
	if _, pending := p.timers[userID]; !pending {
		return false
	}
	delete(p.timers, userID)
	return p.markDisconnected(userID)
}

// Leave handles an explicit LEAVE: immediate DISCONNECTED flip, no grace
// window. The record is kept for attendance.
func (p *PresenceTracker) Leave(userID string) bool {
	p.cancelTimer(userID)
	return p.markDisconnected(userID)
}

// IsConnected reports whether userID is currently connected.
func (p *PresenceTracker) IsConnected(userID string) bool {
	part, ok := p.participants[userID]
	return ok && part.ConnectionState == model.Connected
}

// Known reports whether userID has ever joined this session.
func (p *PresenceTracker) Known(userID string) bool {
	_, ok := p.participants[userID]
	return ok
}

// Roster returns every participant, connected and disconnected, ordered by
// join time.
func (p *PresenceTracker) Roster() []model.Participant {
	roster := make([]model.Participant, 0, len(p.participants))
	for _, part := range p.participants {
		roster = append(roster, *part)
	}
	sort.Slice(roster, func(i, j int) bool {
		if roster[i].JoinedAt.Equal(roster[j].JoinedAt) {
			return roster[i].UserID < roster[j].UserID
		}
		return roster[i].JoinedAt.Before(roster[j].JoinedAt)
	})
	return roster
}

// CancelTimers stops every pending grace timer. Called when the session ends.
func (p *PresenceTracker) CancelTimers() {
	for userID, timer := range p.timers {
		timer.Stop()
		delete(p.timers, userID)
	}
}

func (p *PresenceTracker) markDisconnected(userID string) bool {
	part, ok := p.participants[userID]
	if !ok || part.ConnectionState == model.Disconnected {
		return false
	}
	part.ConnectionState = model.Disconnected
	part.LastSeenAt = time.Now()
	return true
}

func (p *PresenceTracker) cancelTimer(userID string) {
	if timer, ok := p.timers[userID]; ok {
		timer.Stop()
		delete(p.timers, userID)
	}
}
