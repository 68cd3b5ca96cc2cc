package ws

import (
	"encoding/json"
	"testing"
	"time"

	"edulearn/internal/model"
)

func newTestConn(sessionID, userID, role string, buf int) *Conn {
	return &Conn{
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Send:      make(chan []byte, buf),
	}
}

// recvEnvelope waits for the next delivery on a connection. Delivery runs on
// the hub's loop, so receipt is asynchronous.
func recvEnvelope(t *testing.T, conn *Conn) *model.Envelope {
	t.Helper()
	select {
	case data, ok := <-conn.Send:
		if !ok {
			t.Fatal("send channel closed while waiting for a message")
		}
		var env model.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		return &env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a message")
	}
	return nil
}

func expectNoMessage(t *testing.T, conn *Conn) {
	t.Helper()
	select {
	case data, ok := <-conn.Send:
		if ok {
			t.Fatalf("unexpected message: %s", data)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

// waitClosed drains a connection until its send channel closes.
func waitClosed(t *testing.T, conn *Conn) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-conn.Send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("send channel never closed")
		}
	}
}

func TestHubToTeacher(t *testing.T) {
	h := NewHub()
	teacher := newTestConn("sess-1", "t1", model.RoleTeacher, 8)
	student := newTestConn("sess-1", "s1", model.RoleStudent, 8)
	h.Register(teacher)
	h.Register(student)

	h.ToTeacher("sess-1", model.MsgRaiseHand, model.RaiseHandPayload{UserID: "s1"})

	env := recvEnvelope(t, teacher)
	if env.Type != model.MsgRaiseHand {
		t.Errorf("expected RAISE_HAND, got %s", env.Type)
	}
	expectNoMessage(t, student)
}

func TestHubToStudentsFanOut(t *testing.T) {
	h := NewHub()
	teacher := newTestConn("sess-1", "t1", model.RoleTeacher, 8)
	s1 := newTestConn("sess-1", "s1", model.RoleStudent, 8)
	s2 := newTestConn("sess-1", "s2", model.RoleStudent, 8)
	other := newTestConn("sess-2", "s3", model.RoleStudent, 8)
	h.Register(teacher)
	h.Register(s1)
	h.Register(s2)
	h.Register(other)

	h.ToStudents("sess-1", model.MsgPushPoll, map[string]string{"id": "item-1"})

	if env := recvEnvelope(t, s1); env.Type != model.MsgPushPoll {
		t.Errorf("s1: expected PUSH_POLL, got %s", env.Type)
	}
	if env := recvEnvelope(t, s2); env.Type != model.MsgPushPoll {
		t.Errorf("s2: expected PUSH_POLL, got %s", env.Type)
	}
	expectNoMessage(t, teacher)
	expectNoMessage(t, other)
}

func TestHubToStudentsExcept(t *testing.T) {
	h := NewHub()
	s1 := newTestConn("sess-1", "s1", model.RoleStudent, 8)
	s2 := newTestConn("sess-1", "s2", model.RoleStudent, 8)
	h.Register(s1)
	h.Register(s2)

	h.ToStudentsExcept("sess-1", "s1", model.MsgUserJoin, model.UserJoinPayload{UserID: "s1", Name: "Sana"})

	if env := recvEnvelope(t, s2); env.Type != model.MsgUserJoin {
		t.Errorf("s2: expected USER_JOIN, got %s", env.Type)
	}
	expectNoMessage(t, s1)
}

func TestHubToUser(t *testing.T) {
	h := NewHub()
	teacher := newTestConn("sess-1", "t1", model.RoleTeacher, 8)
	s1 := newTestConn("sess-1", "s1", model.RoleStudent, 8)
	s2 := newTestConn("sess-1", "s2", model.RoleStudent, 8)
	h.Register(teacher)
	h.Register(s1)
	h.Register(s2)

	h.ToUser("sess-1", "s1", model.MsgError, model.ErrorPayload{Code: "INVALID_PAYLOAD"})

	env := recvEnvelope(t, s1)
	if env.Type != model.MsgError {
		t.Errorf("expected ERROR, got %s", env.Type)
	}
	var payload model.ErrorPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil || payload.Code != "INVALID_PAYLOAD" {
		t.Errorf("unexpected payload: %s (%v)", env.Payload, err)
	}
	expectNoMessage(t, s2)
	expectNoMessage(t, teacher)

	// The teacher is addressable by user id too.
	h.ToUser("sess-1", "t1", model.MsgError, model.ErrorPayload{Code: "FORBIDDEN"})
	if env := recvEnvelope(t, teacher); env.Type != model.MsgError {
		t.Errorf("teacher: expected ERROR, got %s", env.Type)
	}
}

func TestHubSupersedeOnReconnect(t *testing.T) {
	h := NewHub()
	old := newTestConn("sess-1", "s1", model.RoleStudent, 8)
	h.Register(old)

	// Same (session, user) binds again: the older connection is retired
	// without counting as a departure.
	fresh := newTestConn("sess-1", "s1", model.RoleStudent, 8)
	h.Register(fresh)

	waitClosed(t, old)
	if h.Unregister(old) {
		t.Error("superseded connection must not report a disconnect")
	}

	h.ToStudents("sess-1", model.MsgPushPoll, map[string]string{"id": "item-1"})
	if env := recvEnvelope(t, fresh); env.Type != model.MsgPushPoll {
		t.Errorf("fresh connection should receive broadcasts, got %s", env.Type)
	}

	if !h.Unregister(fresh) {
		t.Error("real drop of the live connection must report a disconnect")
	}
}

func TestHubUnregister(t *testing.T) {
	h := NewHub()
	conn := newTestConn("sess-1", "s1", model.RoleStudent, 8)
	h.Register(conn)

	if !h.Unregister(conn) {
		t.Error("first unregister should report a disconnect")
	}
	waitClosed(t, conn)
	if h.Unregister(conn) {
		t.Error("second unregister must be a no-op")
	}

	// Unregistered connections no longer receive broadcasts.
	h.ToStudents("sess-1", model.MsgPushPoll, map[string]string{"id": "item-1"})
	time.Sleep(50 * time.Millisecond)
}

func TestHubCloseSession(t *testing.T) {
	h := NewHub()
	teacher := newTestConn("sess-1", "t1", model.RoleTeacher, 8)
	s1 := newTestConn("sess-1", "s1", model.RoleStudent, 8)
	s2 := newTestConn("sess-1", "s2", model.RoleStudent, 8)
	h.Register(teacher)
	h.Register(s1)
	h.Register(s2)

	h.CloseSession("sess-1")

	waitClosed(t, teacher)
	waitClosed(t, s1)
	waitClosed(t, s2)

	// Pump exits after a session close are not departures.
	for _, conn := range []*Conn{teacher, s1, s2} {
		if h.Unregister(conn) {
			t.Errorf("%s: unregister after session close must not report a disconnect", conn.UserID)
		}
	}
}

func TestHubOverflowDropsSlowConnection(t *testing.T) {
	h := NewHub()
	slow := newTestConn("sess-1", "s1", model.RoleStudent, 1)
	fast := newTestConn("sess-1", "s2", model.RoleStudent, 8)
	h.Register(slow)
	h.Register(fast)

	// The slow peer never drains; its one-slot buffer overflows on the
	// second broadcast and the connection is dropped rather than stalling
	// delivery to the rest.
	h.ToStudents("sess-1", model.MsgPushPoll, map[string]string{"id": "item-1"})
	h.ToStudents("sess-1", model.MsgPushQuiz, map[string]string{"id": "item-2"})

	if env := recvEnvelope(t, fast); env.Type != model.MsgPushPoll {
		t.Errorf("fast: expected PUSH_POLL, got %s", env.Type)
	}
	if env := recvEnvelope(t, fast); env.Type != model.MsgPushQuiz {
		t.Errorf("fast: expected PUSH_QUIZ, got %s", env.Type)
	}

	deadline := time.Now().Add(time.Second)
	for !h.Unregister(slow) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !h.Unregister(slow) {
		t.Fatal("expected the overflowing connection reported as dropped")
	}
}
