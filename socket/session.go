package socket

// Session is the per-connection state bound at authentication time. It
// lives in the socket.io connection context, never in package globals;
// everything about a connection (identity, heartbeat lifecycle) hangs off
// the connection itself.
type Session struct {
	UserID string
	Role   string

	// closed on disconnect to stop the heartbeat goroutine
	done chan struct{}
}

func newSession(userID, role string) *Session {
	return &Session{
		UserID: userID,
		Role:   role,
		done:   make(chan struct{}),
	}
}

func (s *Session) close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// UserRoom is the personal room every authenticated connection joins.
func UserRoom(userID string) string {
	return "user:" + userID
}

// ConversationRoom scopes fanout to clients with the chat window open.
func ConversationRoom(conversationID string) string {
	return "conversation:" + conversationID
}

// presenceRoom is shared by all authenticated connections; user online and
// offline transitions are broadcast into it best-effort.
const presenceRoom = "presence"
