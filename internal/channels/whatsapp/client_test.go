package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendTextMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/phone-1/messages" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Fatalf("authorization = %q", got)
		}
		var req SendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.MessagingProduct != "whatsapp" || req.To != "573001112233" || req.Text.Body != "¡Hola!" {
			t.Fatalf("request = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(SendResponse{Messages: []SentMessage{{ID: "wamid.out"}}})
	}))
	defer srv.Close()

	c := NewClient("token-1", "phone-1")
	c.SetGraphAPIBase(srv.URL)

	resp, err := c.SendTextMessage(context.Background(), "573001112233", "¡Hola!")
	if err != nil {
		t.Fatalf("SendTextMessage: %v", err)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].ID != "wamid.out" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestSendTextMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(SendResponse{Error: &SendError{Code: 131030, Message: "Recipient not in allowed list"}})
	}))
	defer srv.Close()

	c := NewClient("token-1", "phone-1")
	c.SetGraphAPIBase(srv.URL)

	if _, err := c.SendTextMessage(context.Background(), "573001112233", "hola"); err == nil {
		t.Fatal("expected error from Graph API error payload")
	}
}
