package service

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"edulearn/internal/model"
)

const inboundQueueSize = 256

type eventKind int

const (
	evMessage eventKind = iota
	evConnect
	evDisconnect
	evGraceExpired
)

type event struct {
	kind   eventKind
	userID string
	role   string
	name   string
	env    model.Envelope
}

// Coordinator owns all state for one session: presence, the active content
// item, and the response tally. Every mutation goes through the coordinator,
// either synchronously under its lock (REST path) or via the inbound queue
// consumed by a single goroutine (socket path). Sessions share nothing, so a
// fault in one can never touch another.
type Coordinator struct {
	mu          sync.Mutex
	session     *model.Session
	presence    *PresenceTracker
	aggregator  *ResponseAggregator
	history     []*model.ContentItem
	broadcaster Broadcaster

	inbound chan event
	done    chan struct{}
}

// NewCoordinator creates a coordinator for a live session and starts its
// processing loop.
func NewCoordinator(session *model.Session, broadcaster Broadcaster, grace time.Duration) *Coordinator {
	c := &Coordinator{
		session:     session,
		aggregator:  NewResponseAggregator(),
		broadcaster: broadcaster,
		inbound:     make(chan event, inboundQueueSize),
		done:        make(chan struct{}),
	}
	c.presence = NewPresenceTracker(grace, func(userID string) {
		c.enqueue(event{kind: evGraceExpired, userID: userID})
	})
	go c.run()
	return c
}

// Connect reports a freshly bound connection for userID.
func (c *Coordinator) Connect(userID, role, name string) {
	c.enqueue(event{kind: evConnect, userID: userID, role: role, name: name})
}

// Disconnect reports a dropped connection for userID.
func (c *Coordinator) Disconnect(userID, role string) {
	c.enqueue(event{kind: evDisconnect, userID: userID, role: role})
}

// Deliver queues an inbound socket message. Messages from the same
// connection are processed in arrival order.
func (c *Coordinator) Deliver(userID, role, name string, env model.Envelope) {
	c.enqueue(event{kind: evMessage, userID: userID, role: role, name: name, env: env})
}

func (c *Coordinator) enqueue(ev event) {
	select {
	case c.inbound <- ev:
	case <-c.done:
	}
}

func (c *Coordinator) run() {
	for {
		select {
		case ev := <-c.inbound:
			c.dispatch(ev)
		case <-c.done:
			return
		}
	}
}

// dispatch isolates a panic to the event that caused it; one malformed
// message must not take the session loop down.
func (c *Coordinator) dispatch(ev event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("session %s: recovered from panic while handling event: %v", c.session.ID, r)
		}
	}()
	c.handle(ev)
}

func (c *Coordinator) handle(ev event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Late timer fires and in-flight messages after end are dropped.
	if c.session.State != model.SessionLive {
		return
	}

	switch ev.kind {
	case evConnect:
		if ev.role == model.RoleStudent {
			c.connectLocked(ev.userID, ev.name)
		}
	case evDisconnect:
		if ev.role == model.RoleStudent {
			c.presence.Disconnect(ev.userID)
		}
	case evGraceExpired:
		if c.presence.Expire(ev.userID) {
			c.broadcastLeft(ev.userID)
		}
	case evMessage:
		c.route(ev)
	}
}

// route fans an inbound message out to the component that owns it. Unknown
// types are dropped with a warning so future message kinds stay non-fatal.
func (c *Coordinator) route(ev event) {
	switch ev.env.Type {
	case model.MsgJoin:
		if ev.role != model.RoleStudent {
			return
		}
		name := ev.name
		var p model.JoinPayload
		if len(ev.env.Payload) > 0 && json.Unmarshal(ev.env.Payload, &p) == nil && p.Name != "" {
			name = p.Name
		}
		c.connectLocked(ev.userID, name)

	case model.MsgLeave:
		if ev.role != model.RoleStudent {
			return
		}
		if c.presence.Leave(ev.userID) {
			c.broadcastLeft(ev.userID)
		}

	case model.MsgPushQuiz, model.MsgPushPoll, model.MsgPushMaterial:
		var p model.PushPayload
		if err := json.Unmarshal(ev.env.Payload, &p); err != nil {
			c.sendError(ev.userID, ErrInvalidPayload)
			return
		}
		if _, err := c.pushContentLocked(ev.userID, contentTypeFor(ev.env.Type), p.Payload, p.Options); err != nil {
			log.Printf("session %s: push rejected for %s: %v", c.session.ID, ev.userID, err)
			c.sendError(ev.userID, err)
		}

	case model.MsgResponse:
		var p model.ResponsePayload
		if err := json.Unmarshal(ev.env.Payload, &p); err != nil {
			c.sendError(ev.userID, ErrInvalidPayload)
			return
		}
		c.handleResponse(ev.userID, ev.role, p)

	case model.MsgRaiseHand:
		if ev.role != model.RoleStudent {
			return
		}
		c.broadcaster.ToTeacher(c.session.ID, model.MsgRaiseHand, model.RaiseHandPayload{UserID: ev.userID})

	default:
		log.Printf("session %s: dropping unknown message type %q from %s", c.session.ID, ev.env.Type, ev.userID)
	}
}

func (c *Coordinator) connectLocked(userID, name string) {
	if c.presence.Connect(userID, name) {
		payload := model.UserJoinPayload{UserID: userID, Name: name}
		c.broadcaster.ToTeacher(c.session.ID, model.MsgUserJoin, payload)
		c.broadcaster.ToStudentsExcept(c.session.ID, userID, model.MsgUserJoin, payload)
		log.Printf("session %s: %s joined", c.session.ID, userID)
	}
}

func (c *Coordinator) handleResponse(userID, role string, p model.ResponsePayload) {
	if role != model.RoleStudent || !c.presence.Known(userID) {
		c.sendError(userID, ErrForbidden)
		return
	}

	snapshot, err := c.aggregator.Submit(userID, p.ContentItemID, p.Answer)
	if err != nil {
		log.Printf("session %s: response rejected for %s: %v", c.session.ID, userID, err)
		c.sendError(userID, err)
		return
	}

	c.broadcaster.ToTeacher(c.session.ID, model.MsgResponseReceived, model.ResponseReceivedPayload{
		UserID:   userID,
		Answer:   p.Answer,
		Snapshot: snapshot,
	})
}

func (c *Coordinator) broadcastLeft(userID string) {
	payload := model.UserLeftPayload{UserID: userID}
	c.broadcaster.ToTeacher(c.session.ID, model.MsgUserLeft, payload)
	c.broadcaster.ToStudentsExcept(c.session.ID, userID, model.MsgUserLeft, payload)
	log.Printf("session %s: %s left", c.session.ID, userID)
}

// sendError goes to the originating connection only, never broadcast.
func (c *Coordinator) sendError(userID string, err error) {
	c.broadcaster.ToUser(c.session.ID, userID, model.MsgError, model.ErrorPayload{
		Code:    ErrorCode(err),
		Message: err.Error(),
	})
}

// PushContent is the synchronous push path used by the REST control plane.
func (c *Coordinator) PushContent(teacherID string, ct model.ContentType, payload string, options []string) (*model.ContentItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pushContentLocked(teacherID, ct, payload, options)
}

// End transitions the session to ENDED: pending grace timers are cancelled,
// the processing loop stops, and all bound connections are closed. It
// reports false when the session had already ended, making end idempotent.
func (c *Coordinator) End() (roster []model.Participant, endedAt time.Time, ended bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.State == model.SessionEnded {
		return nil, time.Time{}, false
	}

	now := time.Now()
	c.session.State = model.SessionEnded
	c.session.EndedAt = &now
	c.presence.CancelTimers()
	roster = c.presence.Roster()
	close(c.done)
	c.broadcaster.CloseSession(c.session.ID)
	log.Printf("session %s: ended with %d participants on the roll", c.session.ID, len(roster))
	return roster, now, true
}

// Session returns a copy of the session document.
func (c *Coordinator) Session() model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.session
}

// Roster returns the full participant set, connected and disconnected.
func (c *Coordinator) Roster() []model.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presence.Roster()
}

// Snapshot returns the live tally for the active content item, or nil when
// nothing has been pushed yet.
func (c *Coordinator) Snapshot() *model.AnalyticsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aggregator.Snapshot()
}

// ContentHistory returns every item pushed so far, oldest first.
func (c *Coordinator) ContentHistory() []*model.ContentItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*model.ContentItem(nil), c.history...)
}
