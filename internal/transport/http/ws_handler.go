package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 << 10
)

// TokenVerifier resolves a bearer token to the user behind it.
type TokenVerifier interface {
	Verify(raw string) (domain.Identity, error)
}

type WSHandler struct {
	service  *app.GameService
	hub      *Hub
	verifier TokenVerifier
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, hub *Hub, verifier TokenVerifier) *WSHandler {
	return &WSHandler{
		service:  service,
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Event     string `json:"event,omitempty"`
	Payload   T      `json:"payload"`
}

type errorPayload struct {
	Code    domain.ErrorKind `json:"code"`
	Message string           `json:"message"`
}

type createRoomPayload struct {
	QuizID string `json:"quizId"`
}

type joinRoomPayload struct {
	Code string `json:"code"`
}

type submitAnswerPayload struct {
	OptionIDs []string `json:"optionIds"`
}

// ServeWS authenticates the request, upgrades it and serves the connection until it closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity, err := h.verifier.Verify(bearerToken(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	conn := app.Conn{ID: uuid.NewString(), Identity: identity}
	c := h.hub.register(conn.ID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ws, c)
	}()

	h.readLoop(r.Context(), ws, c, conn)

	h.service.Disconnect(context.WithoutCancel(r.Context()), conn)
	h.hub.unregister(conn.ID)
	<-writerDone
}

func (h *WSHandler) readLoop(ctx context.Context, ws *websocket.Conn, c *client, conn app.Conn) {
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read error on conn %s: %v", conn.ID, err)
			}
			return
		}
		var inbound inboundMessage
		if err := json.Unmarshal(data, &inbound); err != nil {
			c.enqueue(errorMessage("", "", fmt.Errorf("%w: malformed message", domain.ErrInvalidPayload)))
			continue
		}

		payload, err := h.dispatch(ctx, conn, inbound)
		if err != nil {
			c.enqueue(errorMessage(inbound.RequestID, inbound.Type, err))
			continue
		}
		c.enqueue(outboundMessage[any]{Type: "reply", RequestID: inbound.RequestID, Event: inbound.Type, Payload: payload})
	}
}

func (h *WSHandler) writeLoop(ws *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteJSON(msg); err != nil {
				log.Printf("ws write error on conn %s: %v", c.id, err)
				// Unblock the reader so the connection is torn down.
				_ = ws.Close()
				drain(c.send)
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = ws.Close()
				drain(c.send)
				return
			}
		}
	}
}

// dispatch maps one inbound event to its game operation.
func (h *WSHandler) dispatch(ctx context.Context, conn app.Conn, in inboundMessage) (any, error) {
	switch in.Type {
	case app.EventCreateRoom:
		var p createRoomPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return nil, err
		}
		return h.service.CreateRoom(ctx, conn, p.QuizID)
	case app.EventJoinRoom:
		var p joinRoomPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return nil, err
		}
		if p.Code == "" {
			return nil, fmt.Errorf("%w: code is required", domain.ErrInvalidPayload)
		}
		return h.service.JoinRoom(ctx, conn, p.Code)
	case app.EventStartQuiz:
		return h.service.StartQuiz(ctx, conn)
	case app.EventNextQuestion:
		return h.service.NextQuestion(ctx, conn)
	case app.EventSubmitAnswer:
		var p submitAnswerPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return nil, err
		}
		return h.service.SubmitAnswer(ctx, conn, p.OptionIDs)
	case app.EventShowResults:
		return h.service.ShowResults(ctx, conn)
	case app.EventEndQuiz:
		return h.service.EndQuiz(ctx, conn)
	case app.EventGetRoomState:
		return h.service.RoomState(ctx, conn)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedEvent, in.Type)
	}
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%w: payload is required", domain.ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return nil
}

func errorMessage(requestID, event string, err error) outboundMessage[any] {
	kind := domain.KindOf(err)
	message := err.Error()
	if kind == domain.KindInternal {
		log.Printf("%s failed: %v", event, err)
		message = "internal error"
	}
	return outboundMessage[any]{
		Type:      "error",
		RequestID: requestID,
		Event:     event,
		Payload:   errorPayload{Code: kind, Message: message},
	}
}

// bearerToken reads the Authorization header, falling back to the token query parameter
// for browser clients that cannot set headers on a WebSocket handshake.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func drain(ch <-chan outboundMessage[any]) {
	for range ch {
	}
}
