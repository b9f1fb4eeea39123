package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lumina-estetica/citabot/internal/conversation"
	"github.com/lumina-estetica/citabot/internal/webchat"
	"github.com/lumina-estetica/citabot/pkg/logging"
)

type okService struct{}

func (okService) ProcessMessage(_ context.Context, req conversation.MessageRequest) (*conversation.Response, error) {
	return &conversation.Response{SessionID: "sess-1", Reply: "ok", Step: conversation.StepAwaitingTreatment}, nil
}

func newTestRouter() http.Handler {
	svc := okService{}
	return New(&Config{
		Logger:              logging.Default(),
		ConversationHandler: conversation.NewHandler(svc, nil),
		WebchatHandler:      webchat.NewHandler(svc, nil),
		MetricsHandler:      http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }),
	})
}

func TestHealthRoute(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("body = %q", w.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestWebchatRoute(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodPost, "/webchat/message", strings.NewReader(`{"session_id":"s1","text":"hola"}`))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestConversationRoute(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodPost, "/conversations/message", strings.NewReader(`{"phone":"p1","text":"hola"}`))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestUnknownRoute(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestWhatsAppRoutesAbsentWhenUnconfigured(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/webhooks/whatsapp", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d without a configured adapter", w.Code, http.StatusNotFound)
	}
}
