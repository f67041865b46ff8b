// Package webhook receives WhatsApp Cloud API callbacks: the one-time
// subscription handshake and the message delivery webhook.
package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"fieldops.app/incidentbot/common/logger"
	"fieldops.app/incidentbot/internal/service"
	"fieldops.app/incidentbot/internal/transport/whatsapp"
)

// ReplySender delivers the conversation's reply back to the operator.
type ReplySender interface {
	SendText(ctx context.Context, to, body string) error
}

type WhatsAppHandler struct {
	conversations *service.ConversationService
	sender        ReplySender
	verifyToken   string
}

func NewWhatsAppHandler(conversations *service.ConversationService, sender ReplySender, verifyToken string) *WhatsAppHandler {
	return &WhatsAppHandler{
		conversations: conversations,
		sender:        sender,
		verifyToken:   verifyToken,
	}
}

// Verify answers Meta's subscription handshake: echo hub.challenge when
// the verify token matches, 403 otherwise.
func (h *WhatsAppHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		slog.InfoContext(c.Request.Context(), "webhook verified")
		c.String(http.StatusOK, challenge)
		return
	}

	slog.WarnContext(c.Request.Context(), "webhook verification failed")
	c.String(http.StatusForbidden, "Forbidden")
}

// Receive accepts a message delivery. Meta requires a response within five
// seconds, so the payload is acknowledged immediately and each message is
// processed in the background.
func (h *WhatsAppHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	messages, err := whatsapp.ParseWebhook(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	for _, msg := range messages {
		go h.process(ctx, msg)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *WhatsAppHandler) process(ctx context.Context, msg whatsapp.IncomingMessage) {
	sc := logger.StartSpan(ctx, "webhook.process_message",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer sc.End()
	ctx = logger.WithLogFields(sc.Context(), logger.LogFields{
		Identity:  &msg.From,
		MessageID: &msg.MessageID,
	})

	reply, err := h.conversations.HandleMessage(ctx, msg)
	if err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "message handling failed", "error", err)
		reply = "Ocurrió un error procesando tu mensaje. Intenta de nuevo."
	}
	if reply == "" {
		return
	}

	if err := h.sender.SendText(ctx, msg.From, reply); err != nil {
		slog.ErrorContext(ctx, "failed to send reply", "error", err)
	}
}
