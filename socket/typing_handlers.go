package socket

import (
	socketio "github.com/googollee/go-socket.io"
)

// Typing indicators are pure ephemera: the cache key self-expires after a
// few seconds, so a missed typing:stop never leaves a stuck indicator. The
// fanout goes room-wide so the adapter carries it across instances; the
// payload names the typist and clients drop their own echo.

func (g *Gateway) handleTypingStart(s socketio.Conn, payload TypingPayload) {
	sess := sessionOf(s)
	if sess == nil || payload.ConversationID == "" {
		return
	}

	g.Presence.SetTyping(payload.ConversationID, sess.UserID)
	g.Server.BroadcastToRoom("/", ConversationRoom(payload.ConversationID), EventTypingIndicator, TypingIndicator{
		ConversationID: payload.ConversationID,
		UserID:         sess.UserID,
		IsTyping:       true,
	})
}

func (g *Gateway) handleTypingStop(s socketio.Conn, payload TypingPayload) {
	sess := sessionOf(s)
	if sess == nil || payload.ConversationID == "" {
		return
	}

	g.Presence.ClearTyping(payload.ConversationID, sess.UserID)
	g.Server.BroadcastToRoom("/", ConversationRoom(payload.ConversationID), EventTypingIndicator, TypingIndicator{
		ConversationID: payload.ConversationID,
		UserID:         sess.UserID,
		IsTyping:       false,
	})
}
