package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"sync"
	"time"

	"edulearn/internal/model"

	"github.com/google/uuid"
)

// SessionService is the session registry and composition root: a
// concurrency-safe map from session id to its coordinator, created on start
// and removed after end plus a retention window for late roster and
// analytics queries.
type SessionService struct {
	mu           sync.RWMutex
	coordinators map[string]*Coordinator
	liveByBatch  map[string]string
	byJoinCode   map[string]string

	broadcaster Broadcaster
	roster      BatchRoster
	sink        AttendanceSink
	archive     SessionArchive

	grace     time.Duration
	retention time.Duration
}

// NewSessionService creates a new session service.
func NewSessionService(roster BatchRoster, sink AttendanceSink, archive SessionArchive, grace, retention time.Duration) *SessionService {
	return &SessionService{
		coordinators: make(map[string]*Coordinator),
		liveByBatch:  make(map[string]string),
		byJoinCode:   make(map[string]string),
		roster:       roster,
		sink:         sink,
		archive:      archive,
		grace:        grace,
		retention:    retention,
	}
}

// SetBroadcaster injects the outbound fan-out (the ws hub implements
// Broadcaster). Must be called before the first Start.
func (s *SessionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Start creates a session for a batch and brings it LIVE. At most one LIVE
// session may exist per batch.
func (s *SessionService) Start(ctx context.Context, batchID, teacherID string) (*model.Session, error) {
	if batchID == "" || teacherID == "" {
		return nil, ErrInvalidPayload
	}

	s.mu.Lock()
	if _, live := s.liveByBatch[batchID]; live {
		s.mu.Unlock()
		return nil, ErrAlreadyLive
	}

	code, err := s.generateJoinCodeLocked()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	session := &model.Session{
		ID:        uuid.New().String(),
		BatchID:   batchID,
		TeacherID: teacherID,
		JoinCode:  code,
		State:     model.SessionPending,
		StartedAt: time.Now(),
	}
	session.State = model.SessionLive

	coord := NewCoordinator(session, s.broadcaster, s.grace)
	s.coordinators[session.ID] = coord
	s.liveByBatch[batchID] = session.ID
	s.byJoinCode[code] = session.ID
	s.mu.Unlock()

	archived := coord.Session()
	if err := s.archive.Create(ctx, &archived); err != nil {
		coord.End()
		s.mu.Lock()
		delete(s.coordinators, session.ID)
		delete(s.liveByBatch, batchID)
		delete(s.byJoinCode, code)
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to archive session: %w", err)
	}

	log.Printf("session %s: started for batch %s by %s, join code %s", session.ID, batchID, teacherID, code)
	return &archived, nil
}

// End transitions a session to ENDED, flushes the attendance roll to the
// sink, and schedules the coordinator's removal after the retention window.
// Ending an already-ended session is a no-op.
func (s *SessionService) End(ctx context.Context, sessionID, teacherID string) error {
	coord, err := s.coordinator(sessionID)
	if err != nil {
		return err
	}
	if coord.Session().TeacherID != teacherID {
		return ErrForbidden
	}

	roster, endedAt, ended := coord.End()
	if !ended {
		return nil
	}

	sess := coord.Session()
	s.mu.Lock()
	delete(s.liveByBatch, sess.BatchID)
	delete(s.byJoinCode, sess.JoinCode)
	s.mu.Unlock()

	time.AfterFunc(s.retention, func() {
		s.mu.Lock()
		delete(s.coordinators, sessionID)
		s.mu.Unlock()
	})

	record := &model.AttendanceRecord{
		ID:        uuid.New().String(),
		SessionID: sess.ID,
		BatchID:   sess.BatchID,
		TeacherID: sess.TeacherID,
		EndedAt:   endedAt,
		Roster:    roster,
	}
	if err := s.sink.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to flush attendance: %w", err)
	}
	if err := s.archive.Update(ctx, &sess); err != nil {
		return fmt.Errorf("failed to archive ended session: %w", err)
	}
	return nil
}

// PushContent pushes a content item over the REST control plane.
func (s *SessionService) PushContent(sessionID, teacherID string, ct model.ContentType, payload string, options []string) (*model.ContentItem, error) {
	coord, err := s.coordinator(sessionID)
	if err != nil {
		return nil, err
	}
	return coord.PushContent(teacherID, ct, payload, options)
}

// GetSession returns a copy of the session document.
func (s *SessionService) GetSession(sessionID string) (*model.Session, error) {
	coord, err := s.coordinator(sessionID)
	if err != nil {
		return nil, err
	}
	sess := coord.Session()
	return &sess, nil
}

// ResolveJoinCode maps a human-shareable join code to its live session.
func (s *SessionService) ResolveJoinCode(code string) (*model.Session, error) {
	s.mu.RLock()
	sessionID, ok := s.byJoinCode[code]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.GetSession(sessionID)
}

// Roster returns the full participant set for a session.
func (s *SessionService) Roster(sessionID string) ([]model.Participant, error) {
	coord, err := s.coordinator(sessionID)
	if err != nil {
		return nil, err
	}
	return coord.Roster(), nil
}

// Snapshot returns the live analytics for the active content item; nil when
// nothing has been pushed yet.
func (s *SessionService) Snapshot(sessionID string) (*model.AnalyticsSnapshot, error) {
	coord, err := s.coordinator(sessionID)
	if err != nil {
		return nil, err
	}
	return coord.Snapshot(), nil
}

// ContentHistory returns every item pushed in a session, oldest first.
func (s *SessionService) ContentHistory(sessionID string) ([]*model.ContentItem, error) {
	coord, err := s.coordinator(sessionID)
	if err != nil {
		return nil, err
	}
	return coord.ContentHistory(), nil
}

// AuthorizeConnect gates a socket connect: the session must be live, the
// teacher must be the session's teacher, and a student must be enrolled in
// the session's batch.
func (s *SessionService) AuthorizeConnect(ctx context.Context, sessionID string, p *model.Principal) error {
	coord, err := s.coordinator(sessionID)
	if err != nil {
		return err
	}
	sess := coord.Session()
	if sess.State != model.SessionLive {
		return ErrSessionNotLive
	}

	switch p.Role {
	case model.RoleTeacher:
		if p.UserID != sess.TeacherID {
			return ErrForbidden
		}
		return nil
	case model.RoleStudent:
		ids, err := s.roster.EnrolledStudents(ctx, sess.BatchID)
		if err != nil {
			return fmt.Errorf("failed to resolve batch roster: %w", err)
		}
		for _, id := range ids {
			if id == p.UserID {
				return nil
			}
		}
		return ErrForbidden
	default:
		return ErrForbidden
	}
}

// HandleConnect reports a bound connection to the session's coordinator.
func (s *SessionService) HandleConnect(sessionID string, p *model.Principal) {
	if coord, err := s.coordinator(sessionID); err == nil {
		coord.Connect(p.UserID, p.Role, p.DisplayName)
	}
}

// HandleDisconnect reports a dropped connection to the session's coordinator.
func (s *SessionService) HandleDisconnect(sessionID, userID, role string) {
	if coord, err := s.coordinator(sessionID); err == nil {
		coord.Disconnect(userID, role)
	}
}

// HandleMessage forwards a parsed inbound message to the session's
// coordinator queue.
func (s *SessionService) HandleMessage(sessionID string, p *model.Principal, env model.Envelope) error {
	coord, err := s.coordinator(sessionID)
	if err != nil {
		return err
	}
	coord.Deliver(p.UserID, p.Role, p.DisplayName, env)
	return nil
}

func (s *SessionService) coordinator(sessionID string) (*Coordinator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coord, ok := s.coordinators[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return coord, nil
}

// generateJoinCodeLocked creates a 6-char code from an unambiguous charset,
// collision-checked against the codes of other live sessions. Caller holds
// s.mu.
func (s *SessionService) generateJoinCodeLocked() (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLen = 6

	for attempts := 0; attempts < 10; attempts++ {
		b := make([]byte, codeLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		code := make([]byte, codeLen)
		for i := range code {
			code[i] = chars[int(b[i])%len(chars)]
		}
		codeStr := string(code)

		if _, taken := s.byJoinCode[codeStr]; !taken {
			return codeStr, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique join code")
}
