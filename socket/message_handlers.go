package socket

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/srishtayal/nalum-sub003/models"
	"github.com/srishtayal/nalum-sub003/services"

	socketio "github.com/googollee/go-socket.io"
)

// Protocol logic for the message events. Each handler is an independently
// atomic unit: durable-store failures abort the operation and surface as a
// message:error to the originating connection only, while cache failures
// are swallowed inside PresenceService and never affect the outcome.

// handleSendMessage validates, persists, updates the ephemeral caches and
// fans the new message out: conversation:update to every participant's
// personal room, message:new to the conversation room, and a message:sent
// ack (echoing tempId) to the sender alone.
func (g *Gateway) handleSendMessage(s socketio.Conn, payload SendMessagePayload) {
	sess := sessionOf(s)
	if sess == nil {
		return
	}
	ctx := context.TODO()

	content := strings.TrimSpace(payload.Content)
	if content == "" {
		g.emitError(s, "Message content is required")
		return
	}
	if len([]rune(content)) > models.MaxMessageLength {
		g.emitError(s, "Message too long (max 5000 characters)")
		return
	}

	if !g.Presence.CheckRateLimit(sess.UserID) {
		g.emitError(s, "Rate limit exceeded. Please wait.")
		return
	}

	conv, err := g.Conversations.GetForParticipant(ctx, payload.ConversationID, sess.UserID)
	if err != nil {
		g.emitError(s, errorMessage(err, "Failed to send message"))
		return
	}

	message, err := g.Messages.Append(ctx, conv, sess.UserID, content)
	if err != nil {
		g.emitError(s, errorMessage(err, "Failed to send message"))
		return
	}

	// advisory cache touches; unread counters skip the sender
	for _, participant := range conv.Participants {
		g.Presence.TouchRecentChat(participant, conv.ConversationID)
		if participant != sess.UserID {
			g.Presence.RecordUnread(participant, conv.ConversationID)
		}
	}

	for _, participant := range conv.Participants {
		unreadHint := 1
		if participant == sess.UserID {
			unreadHint = 0
		}
		g.Server.BroadcastToRoom("/", UserRoom(participant), EventConversationUpdate, ConversationUpdate{
			ConversationID: conv.ConversationID,
			LastMessage:    message,
			UnreadCount:    unreadHint,
		})
	}

	g.Server.BroadcastToRoom("/", ConversationRoom(conv.ConversationID), EventMessageNew, MessageEnvelope{
		ConversationID: conv.ConversationID,
		Message:        message,
	})

	s.Emit(EventMessageSent, SentAck{
		ConversationID: conv.ConversationID,
		Message:        message,
		TempID:         payload.TempID,
	})
}

// handleMessageRead records read receipts (one message, or the whole
// conversation when messageId is empty), stamps lastReadBy, clears the
// advisory unread counter and announces the receipt to the room.
func (g *Gateway) handleMessageRead(s socketio.Conn, payload ReadPayload) {
	sess := sessionOf(s)
	if sess == nil {
		return
	}
	ctx := context.TODO()

	conv, err := g.Conversations.GetForParticipant(ctx, payload.ConversationID, sess.UserID)
	if err != nil {
		g.emitError(s, errorMessage(err, "Failed to mark messages read"))
		return
	}

	if err := g.Messages.MarkRead(ctx, conv, sess.UserID, payload.MessageID); err != nil {
		g.emitError(s, errorMessage(err, "Failed to mark messages read"))
		return
	}
	if err := g.Conversations.MarkRead(ctx, sess.UserID, conv.ConversationID, time.Now()); err != nil {
		log.Printf("⚠️ Failed to stamp lastReadBy for %s: %v", conv.ConversationID, err)
	}

	g.Presence.ClearUnread(sess.UserID, conv.ConversationID)

	g.Server.BroadcastToRoom("/", ConversationRoom(conv.ConversationID), EventMessageReadAck, ReadBroadcast{
		ConversationID: conv.ConversationID,
		UserID:         sess.UserID,
		MessageID:      payload.MessageID,
	})
}

// handleMessageDelete soft-deletes a message (sender only) and announces it
// to the conversation room.
func (g *Gateway) handleMessageDelete(s socketio.Conn, payload DeletePayload) {
	sess := sessionOf(s)
	if sess == nil {
		return
	}

	message, err := g.Messages.SoftDelete(context.TODO(), sess.UserID, payload.MessageID)
	if err != nil {
		g.emitError(s, errorMessage(err, "Failed to delete message"))
		return
	}

	g.Server.BroadcastToRoom("/", ConversationRoom(message.ConversationID), EventMessageDeleted, DeletedBroadcast{
		MessageID:      message.MessageID,
		ConversationID: message.ConversationID,
	})
}

// emitError reports a failure to the originating connection only; handler
// failures are never broadcast and never crash the connection.
func (g *Gateway) emitError(s socketio.Conn, message string) {
	log.Printf("⚠️ Handler error for %s: %s", s.ID(), message)
	s.Emit(EventMessageError, ErrorPayload{Error: message})
}

// errorMessage maps store errors to client-facing strings; unexpected ones
// collapse to the generic fallback so internals never leak.
func errorMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, services.ErrValidation):
		return strings.TrimPrefix(err.Error(), services.ErrValidation.Error()+": ")
	case errors.Is(err, services.ErrNotFound):
		return "Not found"
	case errors.Is(err, services.ErrForbidden):
		return "Not authorized"
	case errors.Is(err, services.ErrRateLimited):
		return "Rate limit exceeded. Please wait."
	default:
		return fallback
	}
}
