package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"edulearn/internal/model"
	"edulearn/internal/service"
	"edulearn/internal/transport/ws"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

const routerTestSecret = "router-test-secret"

type stubRoster struct {
	students map[string][]string
}

func (s stubRoster) EnrolledStudents(ctx context.Context, batchID string) ([]string, error) {
	return s.students[batchID], nil
}

type stubSink struct{}

func (stubSink) Save(ctx context.Context, record *model.AttendanceRecord) error { return nil }

type stubArchive struct{}

func (stubArchive) Create(ctx context.Context, session *model.Session) error { return nil }
func (stubArchive) Update(ctx context.Context, session *model.Session) error { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	roster := stubRoster{students: map[string][]string{"batch-1": {"s1", "s2"}}}
	sessionSvc := service.NewSessionService(roster, stubSink{}, stubArchive{}, time.Hour, time.Hour)
	hub := ws.NewHub()
	sessionSvc.SetBroadcaster(hub)

	return NewRouter(&Container{
		AuthService:    service.NewAuthService(routerTestSecret),
		SessionService: sessionSvc,
		WSHub:          hub,
	})
}

func tokenFor(t *testing.T, userID, role, name string) string {
	t.Helper()
	claims := model.Claims{
		UserID:      userID,
		Role:        role,
		DisplayName: name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(routerTestSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doRequest(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestRouterHealth(t *testing.T) {
	router := newTestRouter(t)
	rec := doRequest(t, router, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRouterAuthGates(t *testing.T) {
	router := newTestRouter(t)
	body := map[string]string{"batch_id": "batch-1"}

	if rec := doRequest(t, router, http.MethodPost, "/v1/sessions", "", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}
	if rec := doRequest(t, router, http.MethodPost, "/v1/sessions", "garbage", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", rec.Code)
	}

	studentToken := tokenFor(t, "s1", model.RoleStudent, "Sana")
	if rec := doRequest(t, router, http.MethodPost, "/v1/sessions", studentToken, body); rec.Code != http.StatusForbidden {
		t.Errorf("student token: expected 403, got %d", rec.Code)
	}
}

func TestRouterSessionLifecycle(t *testing.T) {
	router := newTestRouter(t)
	teacher := tokenFor(t, "t1", model.RoleTeacher, "Ms. Iyer")

	rec := doRequest(t, router, http.MethodPost, "/v1/sessions", teacher, map[string]string{"batch_id": "batch-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var sess model.Session
	decodeBody(t, rec, &sess)
	if sess.State != model.SessionLive || sess.JoinCode == "" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	// Second live session for the same batch is refused.
	rec = doRequest(t, router, http.MethodPost, "/v1/sessions", teacher, map[string]string{"batch_id": "batch-1"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate batch: expected 409, got %d", rec.Code)
	}

	// Join code resolution is public.
	rec = doRequest(t, router, http.MethodGet, "/v1/sessions/code/"+sess.JoinCode, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve code: expected 200, got %d", rec.Code)
	}
	var resolved map[string]string
	decodeBody(t, rec, &resolved)
	if resolved["session_id"] != sess.ID {
		t.Errorf("code resolved to wrong session: %+v", resolved)
	}

	// No analytics before the first push.
	rec = doRequest(t, router, http.MethodGet, "/v1/sessions/"+sess.ID+"/analytics", teacher, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("analytics before push: expected 404, got %d", rec.Code)
	}

	// Malformed pushes are rejected.
	rec = doRequest(t, router, http.MethodPost, "/v1/sessions/"+sess.ID+"/content", teacher,
		map[string]interface{}{"type": "POLL", "payload": "P1", "options": []string{"Yes"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("one-option poll: expected 400, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/v1/sessions/"+sess.ID+"/content", teacher,
		map[string]interface{}{"type": "POLL", "payload": "Did that make sense?", "options": []string{"Yes", "No"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("push poll: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var item model.ContentItem
	decodeBody(t, rec, &item)
	if item.Type != model.ContentPoll || item.ID == "" {
		t.Fatalf("unexpected item: %+v", item)
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/sessions/"+sess.ID+"/analytics", teacher, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("analytics: expected 200, got %d", rec.Code)
	}
	var snap model.AnalyticsSnapshot
	decodeBody(t, rec, &snap)
	if snap.ContentItemID != item.ID || snap.TotalResponses != 0 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/sessions/"+sess.ID+"/content", teacher, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPost, "/v1/sessions/"+sess.ID+"/end", teacher, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("end: expected 200, got %d", rec.Code)
	}

	// Ended sessions stay queryable but refuse pushes, and the code is retired.
	rec = doRequest(t, router, http.MethodGet, "/v1/sessions/"+sess.ID, teacher, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get after end: expected 200, got %d", rec.Code)
	}
	rec = doRequest(t, router, http.MethodPost, "/v1/sessions/"+sess.ID+"/content", teacher,
		map[string]interface{}{"type": "MATERIAL", "payload": "https://cdn.example.com/ch3.pdf"})
	if rec.Code != http.StatusConflict {
		t.Errorf("push after end: expected 409, got %d", rec.Code)
	}
	rec = doRequest(t, router, http.MethodGet, "/v1/sessions/code/"+sess.JoinCode, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("code after end: expected 404, got %d", rec.Code)
	}
}

func TestRouterWebSocketFlow(t *testing.T) {
	router := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	teacher := tokenFor(t, "t1", model.RoleTeacher, "Ms. Iyer")

	rec := doRequest(t, router, http.MethodPost, "/v1/sessions", teacher, map[string]string{"batch_id": "batch-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d", rec.Code)
	}
	var sess model.Session
	decodeBody(t, rec, &sess)

	wsBase := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws/sessions/" + sess.ID

	// No token: rejected at the handshake.
	if _, resp, err := websocket.DefaultDialer.Dial(wsBase, nil); err == nil {
		t.Fatal("expected the tokenless handshake to fail")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("tokenless handshake: expected 401, got %+v", resp)
	}

	// Unenrolled student: rejected.
	stranger := tokenFor(t, "s9", model.RoleStudent, "Zed")
	if _, resp, err := websocket.DefaultDialer.Dial(wsBase+"?token="+stranger, nil); err == nil {
		t.Fatal("expected the unenrolled handshake to fail")
	} else if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("unenrolled handshake: expected 403, got %+v", resp)
	}

	// Enrolled student binds and receives pushes.
	student := tokenFor(t, "s1", model.RoleStudent, "Sana")
	conn, _, err := websocket.DefaultDialer.Dial(wsBase+"?token="+student, nil)
	if err != nil {
		t.Fatalf("student dial: %v", err)
	}
	defer conn.Close()

	// Wait for the bind to land on the roster; the socket is registered
	// before the coordinator hears about the join.
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec = doRequest(t, router, http.MethodGet, "/v1/sessions/"+sess.ID+"/roster", teacher, nil)
		var body struct {
			Roster []model.Participant `json:"roster"`
		}
		decodeBody(t, rec, &body)
		if len(body.Roster) == 1 && body.Roster[0].UserID == "s1" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("student never appeared on the roster: %+v", body.Roster)
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec = doRequest(t, router, http.MethodPost, "/v1/sessions/"+sess.ID+"/content", teacher,
		map[string]interface{}{"type": "POLL", "payload": "Did that make sense?", "options": []string{"Yes", "No"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("push poll: expected 201, got %d", rec.Code)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read push: %v", err)
	}
	var env model.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal push: %v", err)
	}
	if env.Type != model.MsgPushPoll {
		t.Fatalf("expected PUSH_POLL, got %s", env.Type)
	}
}
