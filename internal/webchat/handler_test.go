package webchat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-estetica/citabot/internal/conversation"
)

type stubService struct {
	resp    *conversation.Response
	lastReq conversation.MessageRequest
}

func (s *stubService) ProcessMessage(_ context.Context, req conversation.MessageRequest) (*conversation.Response, error) {
	s.lastReq = req
	return s.resp, nil
}

func TestHandleMessage(t *testing.T) {
	svc := &stubService{resp: &conversation.Response{
		SessionID: "sess-1",
		Reply:     "¡Hola!",
		Step:      conversation.StepAwaitingTreatment,
	}}
	h := NewHandler(svc, nil)

	body := `{"session_id":"widget-1","text":"hola"}`
	req := httptest.NewRequest(http.MethodPost, "/webchat/message", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var out OutboundMessage
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, "widget-1", out.SessionID)
	assert.Equal(t, "¡Hola!", out.Reply)
	assert.Equal(t, string(conversation.StepAwaitingTreatment), out.Step)

	assert.Equal(t, "web:widget-1", svc.lastReq.Phone)
	assert.Equal(t, "webchat", svc.lastReq.Channel)
}

func TestHandleMessageGeneratesSessionID(t *testing.T) {
	svc := &stubService{resp: &conversation.Response{Reply: "¡Hola!"}}
	h := NewHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/webchat/message", strings.NewReader(`{"text":"hola"}`))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)

	var out OutboundMessage
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.NotEmpty(t, out.SessionID, "a new widget session needs an id to persist")
	assert.True(t, strings.HasPrefix(svc.lastReq.Phone, "web:"))
}

func TestHandleMessageRequiresText(t *testing.T) {
	h := NewHandler(&stubService{resp: &conversation.Response{}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/webchat/message", strings.NewReader(`{"session_id":"s1","text":"  "}`))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleMessageBadJSON(t *testing.T) {
	h := NewHandler(&stubService{resp: &conversation.Response{}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/webchat/message", strings.NewReader("{nope"))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
