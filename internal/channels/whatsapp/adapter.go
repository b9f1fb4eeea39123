package whatsapp

import (
	"context"
	"net/http"
	"time"

	"github.com/lumina-estetica/citabot/internal/conversation"
	"github.com/lumina-estetica/citabot/pkg/logging"
)

// turnTimeout bounds one inbound message's processing after the webhook has
// already been acknowledged to Meta.
const turnTimeout = 30 * time.Second

// Sender is the outbound capability the adapter needs.
type Sender interface {
	SendTextMessage(ctx context.Context, to, text string) (*SendResponse, error)
}

// Adapter is the WhatsApp channel: it feeds inbound webhook messages into
// the conversation service and sends the reply back through the Graph API.
type Adapter struct {
	sender  Sender
	webhook *WebhookHandler
	service conversation.Service
	logger  *logging.Logger
}

// NewAdapter creates the WhatsApp adapter.
func NewAdapter(accessToken, phoneNumberID, appSecret, verifyToken string, service conversation.Service, logger *logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.Default()
	}
	a := &Adapter{
		sender:  NewClient(accessToken, phoneNumberID),
		service: service,
		logger:  logger,
	}
	a.webhook = NewWebhookHandler(verifyToken, appSecret, a.handleInbound)
	return a
}

// HandleVerification handles GET /webhooks/whatsapp (Meta challenge).
func (a *Adapter) HandleVerification(w http.ResponseWriter, r *http.Request) {
	a.webhook.HandleVerification(w, r)
}

// HandleWebhook handles POST /webhooks/whatsapp (inbound messages).
func (a *Adapter) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	a.webhook.HandleInbound(w, r)
}

// handleInbound runs after the webhook has been acknowledged; the reply goes
// out as a separate Graph API send.
func (a *Adapter) handleInbound(msg ParsedInboundMessage) {
	logger := a.logger.WithPhone(msg.From)
	logger.Info("whatsapp: inbound message", "message_id", msg.MessageID)

	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	resp, err := a.service.ProcessMessage(ctx, conversation.MessageRequest{
		Phone:     msg.From,
		Text:      msg.Text,
		Channel:   "whatsapp",
		Timestamp: msg.Timestamp,
	})
	if err != nil {
		logger.Error("whatsapp: failed to process message", "error", err)
		return
	}

	if _, err := a.sender.SendTextMessage(ctx, msg.From, resp.Reply); err != nil {
		logger.Error("whatsapp: failed to send reply", "error", err)
	}
}
