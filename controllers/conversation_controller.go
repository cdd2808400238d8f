package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/srishtayal/nalum-sub003/middleware"
	"github.com/srishtayal/nalum-sub003/models"
	"github.com/srishtayal/nalum-sub003/services"

	"github.com/gorilla/mux"
)

// ConversationController exposes the conversation store over HTTP. The same
// store operations back the realtime gateway; this surface serves list and
// history views.
type ConversationController struct {
	Conversations *services.ConversationService
	Messages      *services.MessageService
	Presence      *services.PresenceService
}

func NewConversationController(conversations *services.ConversationService, messages *services.MessageService, presence *services.PresenceService) *ConversationController {
	return &ConversationController{Conversations: conversations, Messages: messages, Presence: presence}
}

type conversationView struct {
	models.Conversation
	UnreadCount int  `json:"unreadCount"`
	Online      bool `json:"otherParticipantOnline"`
}

// HandleList - the caller's conversations, newest activity first
func (c *ConversationController) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	includeArchived := r.URL.Query().Get("archived") == "true"

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	conversations, err := c.Conversations.ListForUser(r.Context(), userID, includeArchived, int32(limit))
	if err != nil {
		writeError(w, err)
		return
	}

	// unread counts come from the message log; the cache is advisory only
	views := make([]conversationView, 0, len(conversations))
	for _, conv := range conversations {
		unread, err := c.Messages.CountUnread(r.Context(), conv.ConversationID, userID)
		if err != nil {
			log.Printf("⚠️ Failed to count unread for %s: %v", conv.ConversationID, err)
		}
		online := false
		for _, p := range conv.Participants {
			if p != userID && c.Presence.IsOnline(p) {
				online = true
			}
		}
		views = append(views, conversationView{Conversation: conv, UnreadCount: unread, Online: online})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": views})
}

// HandleGet - a single conversation, participants only
func (c *ConversationController) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	conversationID := mux.Vars(r)["conversationId"]

	conv, err := c.Conversations.GetForParticipant(r.Context(), conversationID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	unread, err := c.Messages.CountUnread(r.Context(), conversationID, userID)
	if err != nil {
		log.Printf("⚠️ Failed to count unread for %s: %v", conversationID, err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversation": conversationView{Conversation: *conv, UnreadCount: unread},
	})
}

// HandleCreate - get or create the 1:1 conversation with a connected user
func (c *ConversationController) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var request struct {
		ParticipantID string `json:"participantId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.ParticipantID == "" {
		http.Error(w, `{"error": "Participant ID is required"}`, http.StatusBadRequest)
		return
	}

	conv, created, err := c.Conversations.GetOrCreate(r.Context(), userID, request.ParticipantID)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	message := "Conversation exists"
	if created {
		status = http.StatusCreated
		message = "Conversation created"
	}
	writeJSON(w, status, map[string]interface{}{
		"success": true,
		"message": message,
		"data":    conv,
	})
}

// HandleArchive - hide the conversation in the caller's list
func (c *ConversationController) HandleArchive(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	conversationID := mux.Vars(r)["conversationId"]

	if err := c.Conversations.Archive(r.Context(), userID, conversationID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation archived successfully"})
}

// HandleUnarchive - restore an archived conversation
func (c *ConversationController) HandleUnarchive(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	conversationID := mux.Vars(r)["conversationId"]

	if err := c.Conversations.Unarchive(r.Context(), userID, conversationID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation unarchived successfully"})
}

// HandleMarkRead - stamp lastReadBy and clear the advisory unread counter
func (c *ConversationController) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	conversationID := mux.Vars(r)["conversationId"]

	if err := c.Conversations.MarkRead(r.Context(), userID, conversationID, time.Now()); err != nil {
		writeError(w, err)
		return
	}
	c.Presence.ClearUnread(userID, conversationID)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation marked as read"})
}

// HandleDelete - soft-delete for the caller; the other participant keeps
// the thread, and new traffic makes it reappear
func (c *ConversationController) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	conversationID := mux.Vars(r)["conversationId"]

	if err := c.Conversations.SoftDelete(r.Context(), userID, conversationID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation deleted"})
}
