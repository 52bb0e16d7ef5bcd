package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/docchat-ai/docchat/internal/api"
)

// ChatService runs one conversational turn.
type ChatService interface {
	Send(ctx context.Context, sessionID, text string) (string, error)
}

// ChatHandler exposes the conversational agent over HTTP.
type ChatHandler struct {
	chat ChatService
}

func NewChatHandler(chat ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type ChatRequest struct {
	// SessionID continues an existing conversation. Empty starts a new one.
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// Send handles POST /chat: appends the user message to the session and
// returns the agent's answer together with the session id for follow-ups.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if _, err := uuid.Parse(sessionID); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	answer, err := h.chat.Send(r.Context(), sessionID, req.Message)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ChatResponse{SessionID: sessionID, Answer: answer})
}
