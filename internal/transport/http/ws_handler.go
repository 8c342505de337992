package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"quiz-attempt-service/internal/domain"
)

// AttemptUseCases is the part of app.AttemptService the socket drives.
type AttemptUseCases interface {
	Start(ctx context.Context, quizID, requesterID string) (domain.StartResult, error)
	SubmitAnswer(ctx context.Context, attemptID, requesterID string, sub domain.AnswerSubmission) (domain.AnswerResult, error)
	Complete(ctx context.Context, attemptID, requesterID string) (domain.Score, error)
	GetAttempt(ctx context.Context, attemptID, requesterID string, role domain.Role) (domain.Attempt, error)
	ListAttempts(ctx context.Context, requesterID string) ([]domain.Attempt, error)
}

type WSHandler struct {
	service  AttemptUseCases
	upgrader websocket.Upgrader
}

func NewWSHandler(service AttemptUseCases) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

const maxMessageSize = 64 << 10

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	QuizID string `json:"quizId"`
}

type attemptPayload struct {
	AttemptID string `json:"attemptId"`
}

type answerPayload struct {
	AttemptID string `json:"attemptId"`
	domain.AnswerSubmission
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets. The caller identity (userId and
// optional role) comes from the query string and is trusted as already verified.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	role := domain.Role(r.URL.Query().Get("role"))
	if role == "" {
		role = domain.RoleUser
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("ws read failed", "user_id", userID, "err", err)
			}
			return
		}
		out := h.dispatch(ctx, userID, role, inbound)
		if err := conn.WriteJSON(out); err != nil {
			slog.Warn("ws write failed", "user_id", userID, "err", err)
			return
		}
	}
}

func (h *WSHandler) dispatch(ctx context.Context, userID string, role domain.Role, in inboundMessage) outboundMessage[any] {
	switch in.Type {
	case "start":
		var p startPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return errorMessage(err)
		}
		res, err := h.service.Start(ctx, p.QuizID, userID)
		return reply("started", res, err)
	case "answer":
		var p answerPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return errorMessage(err)
		}
		res, err := h.service.SubmitAnswer(ctx, p.AttemptID, userID, p.AnswerSubmission)
		return reply("answerResult", res, err)
	case "complete":
		var p attemptPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return errorMessage(err)
		}
		res, err := h.service.Complete(ctx, p.AttemptID, userID)
		return reply("completed", res, err)
	case "get":
		var p attemptPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return errorMessage(err)
		}
		res, err := h.service.GetAttempt(ctx, p.AttemptID, userID, role)
		return reply("attempt", res, err)
	case "list":
		res, err := h.service.ListAttempts(ctx, userID)
		return reply("attempts", res, err)
	default:
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: "unsupported", Message: "unsupported message type"}}
	}
}

var errBadPayload = errors.New("invalid payload")

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errBadPayload
	}
	return nil
}

func reply(typ string, payload any, err error) outboundMessage[any] {
	if err != nil {
		return errorMessage(err)
	}
	return outboundMessage[any]{Type: typ, Payload: payload}
}

func errorMessage(err error) outboundMessage[any] {
	code := errorCode(err)
	msg := err.Error()
	if code == "internal" {
		slog.Error("attempt request failed", "err", err)
		msg = "internal error"
	}
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: code, Message: msg}}
}

// errorCode maps an error onto the code sent to clients.
func errorCode(err error) string {
	if errors.Is(err, errBadPayload) {
		return "validation"
	}
	switch domain.KindOf(err) {
	case domain.ErrNotFound:
		return "not_found"
	case domain.ErrForbidden:
		return "forbidden"
	case domain.ErrInvalidState:
		return "invalid_state"
	case domain.ErrValidation:
		return "validation"
	}
	return "internal"
}
