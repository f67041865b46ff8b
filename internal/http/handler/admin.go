package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fieldops.app/incidentbot/internal/service"
	"fieldops.app/incidentbot/internal/store"
)

type AdminHandler struct {
	conversations *service.ConversationService
	tickets       store.TicketStore
}

func NewAdminHandler(conversations *service.ConversationService, tickets store.TicketStore) *AdminHandler {
	return &AdminHandler{conversations: conversations, tickets: tickets}
}

// Reset drops a conversation so the identity's next message starts fresh.
func (h *AdminHandler) Reset(c *gin.Context) {
	identity := c.Param("identity")
	if identity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identity is required"})
		return
	}

	if err := h.conversations.ResetConversation(c.Request.Context(), identity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "identity": identity})
}

// GetTicket returns one ticket by its folio.
func (h *AdminHandler) GetTicket(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	ticket, err := h.tickets.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ticket"})
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// DeleteProfile removes a stored operator profile.
func (h *AdminHandler) DeleteProfile(c *gin.Context) {
	identity := c.Param("identity")
	if identity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identity is required"})
		return
	}

	if err := h.conversations.DeleteProfile(c.Request.Context(), identity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "identity": identity})
}
