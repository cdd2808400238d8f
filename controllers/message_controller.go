package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/srishtayal/nalum-sub003/middleware"
	"github.com/srishtayal/nalum-sub003/models"
	"github.com/srishtayal/nalum-sub003/services"

	"github.com/gorilla/mux"
)

// MessageController exposes message history and the synchronous send path.
// Realtime clients use the gateway instead; both run through the same store
// operations.
type MessageController struct {
	Conversations *services.ConversationService
	Messages      *services.MessageService
}

func NewMessageController(conversations *services.ConversationService, messages *services.MessageService) *MessageController {
	return &MessageController{Conversations: conversations, Messages: messages}
}

// HandleList - paginated history for a conversation, oldest first for
// display; pass ?before=<createdAt> to page backwards
func (c *MessageController) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	conversationID := mux.Vars(r)["conversationId"]

	if _, err := c.Conversations.GetForParticipant(r.Context(), conversationID, userID); err != nil {
		writeError(w, err)
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	before := r.URL.Query().Get("before")

	messages, err := c.Messages.List(r.Context(), conversationID, before, int32(limit))
	if err != nil {
		writeError(w, err)
		return
	}

	// store order is newest-first; reverse for rendering
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	nextBefore := ""
	if len(messages) > 0 {
		nextBefore = messages[0].CreatedAt
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    messages,
		"hasMore": len(messages) == limit,
		"before":  nextBefore,
	})
}

// HandleSend - synchronous send, mirroring the gateway's message:send
func (c *MessageController) HandleSend(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	conversationID := mux.Vars(r)["conversationId"]

	var request struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	conv, err := c.Conversations.GetForParticipant(r.Context(), conversationID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	message, err := c.Messages.Append(r.Context(), conv, userID, request.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Message sent successfully",
		"data":    message,
	})
}

// HandleMarkRead - idempotent single-message read receipt
func (c *MessageController) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	messageID := mux.Vars(r)["messageId"]

	message, err := c.Messages.GetByID(r.Context(), messageID)
	if err != nil {
		writeError(w, err)
		return
	}

	conv, err := c.Conversations.GetForParticipant(r.Context(), message.ConversationID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := c.Messages.MarkRead(r.Context(), conv, userID, messageID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Message marked as read"})
}

// HandleDelete - soft delete, sender only
func (c *MessageController) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	messageID := mux.Vars(r)["messageId"]

	message, err := c.Messages.SoftDelete(r.Context(), userID, messageID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Message deleted successfully",
		"data": models.Message{
			MessageID:      message.MessageID,
			ConversationID: message.ConversationID,
			Deleted:        true,
		},
	})
}
