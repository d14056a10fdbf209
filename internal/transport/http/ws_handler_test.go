package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kevinbarfleur/cinequiz-sub000/internal/domain"
	"github.com/kevinbarfleur/cinequiz-sub000/internal/infra/memory"
	"github.com/kevinbarfleur/cinequiz-sub000/internal/persist"
	"github.com/kevinbarfleur/cinequiz-sub000/internal/session"
)

func TestWebSocketHostFlow(t *testing.T) {
	sess := session.New()
	if !sess.LoadQuestions(sampleCatalog()) {
		t.Fatalf("load questions: %s", sess.Err())
	}
	gateway := persist.NewGateway(memory.NewKVStore())
	wsHandler := NewWSHandler(sess, gateway)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The initial state and rankings snapshots arrive in either order.
	seenState := false
	for i := 0; i < 2; i++ {
		if msgType, _ := readNext(conn, t); msgType == "state" {
			seenState = true
		}
	}
	if !seenState {
		t.Fatalf("expected an initial state message")
	}

	writeMsg(conn, t, "createTeam", map[string]any{"name": "Alpha"})
	ack := awaitAck(conn, t, "createTeam")
	teamID, _ := ack["teamId"].(string)
	if ok, _ := ack["ok"].(bool); !ok || teamID == "" {
		t.Fatalf("expected created team, got %+v", ack)
	}

	writeMsg(conn, t, "setMode", map[string]any{"mode": "host"})
	if ack := awaitAck(conn, t, "setMode"); ack["ok"] != true {
		t.Fatalf("expected host mode accepted, got %+v", ack)
	}

	writeMsg(conn, t, "assign", map[string]any{
		"questionId":  "q1",
		"answerIndex": 1,
		"teamId":      teamID,
	})
	if ack := awaitAck(conn, t, "assign"); ack["ok"] != true {
		t.Fatalf("expected assignment accepted, got %+v", ack)
	}

	writeMsg(conn, t, "proceed", nil)
	if ack := awaitAck(conn, t, "proceed"); ack["ok"] != true {
		t.Fatalf("expected proceed accepted, got %+v", ack)
	}
}

func TestSaveAckExplainsGate(t *testing.T) {
	sess := session.New()
	if !sess.LoadQuestions(sampleCatalog()) {
		t.Fatalf("load questions: %s", sess.Err())
	}
	gateway := persist.NewGateway(memory.NewKVStore())
	wsHandler := NewWSHandler(sess, gateway)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 2; i++ {
		readNext(conn, t)
	}

	// Participant mode with no teams: the gate declines, not storage.
	writeMsg(conn, t, "save", nil)
	ack := awaitAck(conn, t, "save")
	if ack["ok"] == true {
		t.Fatalf("expected gated save to fail, got %+v", ack)
	}
	msg, _ := ack["error"].(string)
	if !strings.Contains(msg, "host mode") {
		t.Fatalf("expected gate explanation, got %q", msg)
	}

	writeMsg(conn, t, "createTeam", map[string]any{"name": "Alpha"})
	if ack := awaitAck(conn, t, "createTeam"); ack["ok"] != true {
		t.Fatalf("expected team created, got %+v", ack)
	}
	writeMsg(conn, t, "setMode", map[string]any{"mode": "host"})
	if ack := awaitAck(conn, t, "setMode"); ack["ok"] != true {
		t.Fatalf("expected host mode accepted, got %+v", ack)
	}

	writeMsg(conn, t, "save", nil)
	if ack := awaitAck(conn, t, "save"); ack["ok"] != true {
		t.Fatalf("expected eligible save to succeed, got %+v", ack)
	}
}

func writeMsg(conn *websocket.Conn, t *testing.T, msgType string, payload map[string]any) {
	t.Helper()
	msg := map[string]any{"type": msgType}
	if payload == nil {
		payload = map[string]any{}
	}
	msg["payload"] = payload
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// awaitAck skips interleaved state/rankings broadcasts until the ack for the
// given action arrives.
func awaitAck(conn *websocket.Conn, t *testing.T, action string) map[string]any {
	t.Helper()
	for i := 0; i < 10; i++ {
		msgType, raw := readNext(conn, t)
		if msgType != "ack" {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("decode ack: %v", err)
		}
		if payload["action"] == action {
			return payload
		}
	}
	t.Fatalf("no ack for %s", action)
	return nil
}

func readNext(conn *websocket.Conn, t *testing.T) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

func sampleCatalog() []domain.Question {
	return []domain.Question{
		{ID: "q1", Text: "What is 2 + 2?", Answers: []string{"3", "4", "5"}, CorrectIndex: 1},
		{ID: "q2", Text: "What is 3 + 3?", Answers: []string{"5", "6", "7"}, CorrectIndex: 1},
	}
}
