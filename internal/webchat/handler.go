// Package webchat serves the website chat widget over plain HTTP JSON. A
// widget session maps onto the conversation engine the same way a phone
// number does, under a "web:" key prefix.
package webchat

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lumina-estetica/citabot/internal/conversation"
	"github.com/lumina-estetica/citabot/pkg/logging"
)

// InboundMessage is what the widget sends.
type InboundMessage struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// OutboundMessage is what we return to the widget.
type OutboundMessage struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Step      string `json:"step"`
}

// Handler bridges widget requests to the conversation service.
type Handler struct {
	service conversation.Service
	logger  *logging.Logger
}

// NewHandler creates a web chat handler.
func NewHandler(service conversation.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// ConversationKey builds the engine key for a webchat session.
func ConversationKey(sessionID string) string {
	return "web:" + sessionID
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(b)
}

// HandleMessage handles POST /webchat/message. A missing session ID starts a
// new widget session; the ID is echoed back so the widget can persist it.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	resp, err := h.service.ProcessMessage(r.Context(), conversation.MessageRequest{
		Phone:   ConversationKey(req.SessionID),
		Text:    req.Text,
		Channel: "webchat",
	})
	if err != nil {
		h.logger.Error("webchat: failed to process message", "error", err, "session_id", req.SessionID)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(OutboundMessage{
		SessionID: req.SessionID,
		Reply:     resp.Reply,
		Step:      string(resp.Step),
	}); err != nil {
		h.logger.Error("webchat: failed to write response", "error", err)
	}
}
