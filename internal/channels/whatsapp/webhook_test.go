package whatsapp

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestHandleVerification(t *testing.T) {
	h := NewWebhookHandler("verify-token", "secret", nil)

	req := httptest.NewRequest(http.MethodGet,
		"/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=verify-token&hub.challenge=12345", nil)
	w := httptest.NewRecorder()

	h.HandleVerification(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "12345" {
		t.Fatalf("body = %q, want the challenge echoed", w.Body.String())
	}
}

func TestHandleVerificationRejectsBadToken(t *testing.T) {
	h := NewWebhookHandler("verify-token", "secret", nil)

	req := httptest.NewRequest(http.MethodGet,
		"/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	w := httptest.NewRecorder()

	h.HandleVerification(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

const inboundEvent = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "123",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "15550000000", "phone_number_id": "phone-1"},
        "contacts": [{"wa_id": "573001112233", "profile": {"name": "Juan"}}],
        "messages": [
          {"from": "573001112233", "id": "wamid.1", "timestamp": "1763478000", "type": "text",
           "text": {"body": "quiero agendar una cita"}},
          {"from": "573001112233", "id": "wamid.2", "timestamp": "1763478060", "type": "image"}
        ]
      }
    }]
  }]
}`

func TestHandleInbound(t *testing.T) {
	var got []ParsedInboundMessage
	h := NewWebhookHandler("verify-token", "secret", func(msg ParsedInboundMessage) {
		got = append(got, msg)
	})

	body := []byte(inboundEvent)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", signBody("secret", body))
	w := httptest.NewRecorder()

	h.HandleInbound(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if len(got) != 1 {
		t.Fatalf("parsed %d messages, want 1 (non-text skipped)", len(got))
	}
	if got[0].From != "573001112233" || got[0].Text != "quiero agendar una cita" {
		t.Fatalf("parsed = %+v", got[0])
	}
	if got[0].ProfileName != "Juan" {
		t.Fatalf("profile name = %q, want Juan", got[0].ProfileName)
	}
	if got[0].Timestamp.IsZero() {
		t.Fatal("expected timestamp parsed from unix seconds")
	}
}

func TestHandleInboundRejectsBadSignature(t *testing.T) {
	called := false
	h := NewWebhookHandler("verify-token", "secret", func(ParsedInboundMessage) { called = true })

	body := []byte(inboundEvent)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", signBody("other-secret", body))
	w := httptest.NewRecorder()

	h.HandleInbound(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if called {
		t.Fatal("message callback must not run for a bad signature")
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte("payload")
	if !VerifySignature("secret", body, signBody("secret", body)) {
		t.Fatal("valid signature rejected")
	}
	if VerifySignature("secret", body, "sha256=deadbeef") {
		t.Fatal("invalid signature accepted")
	}
	if VerifySignature("", body, signBody("secret", body)) {
		t.Fatal("empty app secret must fail closed")
	}
	if VerifySignature("secret", body, "") {
		t.Fatal("missing header must fail closed")
	}
}
