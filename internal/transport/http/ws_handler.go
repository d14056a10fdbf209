package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kevinbarfleur/cinequiz-sub000/internal/domain"
	"github.com/kevinbarfleur/cinequiz-sub000/internal/persist"
	"github.com/kevinbarfleur/cinequiz-sub000/internal/session"
)

// WSHandler exposes the session actions over a websocket and streams ranking
// updates as the roster and answers change.
type WSHandler struct {
	session  *session.Session
	gateway  *persist.Gateway
	upgrader websocket.Upgrader
}

func NewWSHandler(sess *session.Session, gateway *persist.Gateway) *WSHandler {
	return &WSHandler{
		session: sess,
		gateway: gateway,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type ackPayload struct {
	Action string `json:"action"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	TeamID string `json:"teamId,omitempty"`
}

type statePayload struct {
	Route           domain.RouteState `json:"route"`
	CurrentIndex    int               `json:"currentIndex"`
	CurrentQuestion *domain.Question  `json:"currentQuestion,omitempty"`
	Teams           []domain.Team     `json:"teams"`
	Buckets         map[int][]string  `json:"buckets"`
	CanProceed      bool              `json:"canProceed"`
}

type modePayload struct {
	Mode string `json:"mode"`
}

type teamPayload struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type assignPayload struct {
	QuestionID  string `json:"questionId"`
	AnswerIndex int    `json:"answerIndex"`
	TeamID      string `json:"teamId"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

// ServeWS upgrades the request and wires the connection into the session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case rankings, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "rankings", Payload: rankings}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "state", Payload: h.statePayload()}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r, inbound, send)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, inbound inboundMessage, send chan<- outboundMessage[any]) {
	switch inbound.Type {
	case "setMode":
		var payload modePayload
		if !decode(inbound.Payload, &payload, send) {
			return
		}
		h.ack(send, "setMode", h.session.SetMode(payload.Mode))
		send <- outboundMessage[any]{Type: "state", Payload: h.statePayload()}
	case "createTeam":
		var payload teamPayload
		if !decode(inbound.Payload, &payload, send) {
			return
		}
		id := h.session.CreateTeam(payload.Name, payload.Color)
		ack := ackPayload{Action: "createTeam", OK: id != "", TeamID: id}
		if id == "" {
			ack.Error = h.session.Err()
		}
		send <- outboundMessage[any]{Type: "ack", Payload: ack}
	case "editTeam":
		var payload teamPayload
		if !decode(inbound.Payload, &payload, send) {
			return
		}
		h.ack(send, "editTeam", h.session.EditTeam(payload.ID, payload.Name, payload.Color))
	case "deleteTeam":
		var payload teamPayload
		if !decode(inbound.Payload, &payload, send) {
			return
		}
		h.ack(send, "deleteTeam", h.session.DeleteTeam(payload.ID))
	case "assign":
		var payload assignPayload
		if !decode(inbound.Payload, &payload, send) {
			return
		}
		h.ack(send, "assign", h.session.AssignAnswer(payload.QuestionID, payload.AnswerIndex, payload.TeamID))
		send <- outboundMessage[any]{Type: "state", Payload: h.statePayload()}
	case "proceed":
		ok := h.session.Proceed()
		h.ack(send, "proceed", ok)
		if !ok && h.session.Completed() {
			send <- outboundMessage[any]{Type: "results", Payload: h.session.QuestionResults()}
		}
		send <- outboundMessage[any]{Type: "state", Payload: h.statePayload()}
		if h.session.Completed() {
			h.gateway.ClearSession(r.Context())
			h.gateway.RecordRunStats(r.Context(), h.runStats())
		} else {
			h.gateway.AutoSave(r.Context(), h.session)
		}
	case "next":
		h.ack(send, "next", h.session.NextQuestion())
		send <- outboundMessage[any]{Type: "state", Payload: h.statePayload()}
	case "previous":
		h.ack(send, "previous", h.session.PreviousQuestion())
		send <- outboundMessage[any]{Type: "state", Payload: h.statePayload()}
	case "goto":
		var payload gotoPayload
		if !decode(inbound.Payload, &payload, send) {
			return
		}
		h.ack(send, "goto", h.session.GoToQuestion(payload.Index))
		send <- outboundMessage[any]{Type: "state", Payload: h.statePayload()}
	case "start":
		h.ack(send, "start", h.session.StartQuiz())
	case "reset":
		h.session.ResetQuiz()
		h.ack(send, "reset", true)
		send <- outboundMessage[any]{Type: "state", Payload: h.statePayload()}
	case "save":
		ok := h.gateway.AutoSave(r.Context(), h.session)
		ack := ackPayload{Action: "save", OK: ok}
		if !ok {
			if h.session.Mode() != domain.ModeHost || len(h.session.Teams()) == 0 {
				ack.Error = "nothing to save: host mode with at least one team is required"
			} else {
				ack.Error = "saving session failed"
			}
		}
		send <- outboundMessage[any]{Type: "ack", Payload: ack}
	case "restore":
		ok := h.gateway.RestoreInterruptedSession(r.Context(), h.session)
		h.ack(send, "restore", ok)
		send <- outboundMessage[any]{Type: "state", Payload: h.statePayload()}
	case "export":
		data, err := h.gateway.Export(r.Context())
		if err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			return
		}
		send <- outboundMessage[any]{Type: "export", Payload: json.RawMessage(data)}
	case "results":
		send <- outboundMessage[any]{Type: "results", Payload: h.session.QuestionResults()}
	case "routeState":
		send <- outboundMessage[any]{Type: "routeState", Payload: h.session.RouteState()}
	default:
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
	}
}

func (h *WSHandler) ack(send chan<- outboundMessage[any], action string, ok bool) {
	ack := ackPayload{Action: action, OK: ok}
	if !ok {
		ack.Error = h.session.Err()
	}
	send <- outboundMessage[any]{Type: "ack", Payload: ack}
}

func (h *WSHandler) runStats() domain.RunStats {
	route := h.session.RouteState()
	stats := domain.RunStats{
		TeamCount:     route.TeamCount,
		QuestionCount: route.QuestionCount,
		FinishedAt:    time.Now(),
	}
	if rankings := h.session.TeamRankings(); len(rankings) > 0 {
		stats.Winner = rankings[0].Name
	}
	return stats
}

func (h *WSHandler) statePayload() statePayload {
	payload := statePayload{
		Route:        h.session.RouteState(),
		CurrentIndex: h.session.CurrentIndex(),
		Teams:        h.session.Teams(),
		Buckets:      h.session.AssignmentBuckets(),
		CanProceed:   h.session.CanProceed(),
	}
	if q, ok := h.session.CurrentQuestion(); ok {
		payload.CurrentQuestion = &q
	}
	return payload
}

func decode(raw json.RawMessage, out interface{}, send chan<- outboundMessage[any]) bool {
	if err := json.Unmarshal(raw, out); err != nil {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid payload"}}
		return false
	}
	return true
}
