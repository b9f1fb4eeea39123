// Package conversation implements the scheduling conversation: the booking
// state machine, deterministic extractors, the AI fallback classifier, and
// the stores that carry a session across turns.
package conversation

import (
	"context"
	"time"
)

// MessageRequest is one inbound user turn.
type MessageRequest struct {
	Phone     string    `json:"phone"`
	Text      string    `json:"text"`
	Channel   string    `json:"channel,omitempty"` // "whatsapp" or "webchat"
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Response is the processed outcome of a turn.
type Response struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Step      Step   `json:"step"`
}

// Service processes conversation turns.
type Service interface {
	ProcessMessage(ctx context.Context, req MessageRequest) (*Response, error)
}
