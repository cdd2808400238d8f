package socket

import (
	"log"
	"net"
	"strings"
	"time"

	"github.com/srishtayal/nalum-sub003/services"

	socketio "github.com/googollee/go-socket.io"
)

// Gateway owns the realtime surface: it authenticates socket connections,
// tracks room membership, and fans chat events out to interested clients.
// Cross-process fanout rides the socket.io redis adapter when configured;
// without it the gateway still serves clients on this process correctly.
type Gateway struct {
	Server        *socketio.Server
	Tokens        *services.TokenService
	Presence      *services.PresenceService
	Conversations *services.ConversationService
	Messages      *services.MessageService
}

// NewChatServer initializes the Socket.IO server and registers all event
// handlers.
func NewChatServer(tokens *services.TokenService, presence *services.PresenceService, conversations *services.ConversationService, messages *services.MessageService) *Gateway {
	g := &Gateway{
		Server:        socketio.NewServer(nil),
		Tokens:        tokens,
		Presence:      presence,
		Conversations: conversations,
		Messages:      messages,
	}
	g.registerHandlers()
	return g
}

// ConfigureRedisAdapter attaches the shared pub/sub backbone so room
// broadcasts reach sockets on other server processes. Failure is not fatal:
// the gateway logs a warning and keeps running single-instance.
func (g *Gateway) ConfigureRedisAdapter(addr string) {
	if addr == "" {
		log.Println("⚠️ Redis not configured, running without adapter (single instance only)")
		return
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = addr, "6379"
	}

	_, err = g.Server.Adapter(&socketio.RedisAdapterOptions{
		Host:   host,
		Port:   port,
		Prefix: "socket.io",
	})
	if err != nil {
		log.Printf("⚠️ Failed to setup Redis adapter, continuing without it: %v", err)
		return
	}
	log.Println("✅ Socket.IO Redis adapter configured")
}

func (g *Gateway) registerHandlers() {
	g.Server.OnConnect("/", g.handleConnect)
	g.Server.OnDisconnect("/", g.handleDisconnect)
	g.Server.OnError("/", func(s socketio.Conn, err error) {
		log.Printf("❌ Socket error: %v", err)
	})

	g.Server.OnEvent("/", EventConversationJoin, func(s socketio.Conn, conversationID string) {
		if conversationID == "" {
			return
		}
		s.Join(ConversationRoom(conversationID))
	})
	g.Server.OnEvent("/", EventConversationLeave, func(s socketio.Conn, conversationID string) {
		if conversationID == "" {
			return
		}
		s.Leave(ConversationRoom(conversationID))
	})

	g.Server.OnEvent("/", EventMessageSend, g.handleSendMessage)
	g.Server.OnEvent("/", EventMessageRead, g.handleMessageRead)
	g.Server.OnEvent("/", EventMessageDelete, g.handleMessageDelete)
	g.Server.OnEvent("/", EventTypingStart, g.handleTypingStart)
	g.Server.OnEvent("/", EventTypingStop, g.handleTypingStop)
}

// handleConnect authenticates the handshake credential and binds the
// session. Returning an error refuses the connection; no events from an
// unauthenticated socket are ever processed.
func (g *Gateway) handleConnect(s socketio.Conn) error {
	token := handshakeToken(s)
	if token == "" {
		return services.ErrUnauthorized
	}

	claims, err := g.Tokens.Verify(token)
	if err != nil {
		log.Printf("❌ Socket authentication failed: %v", err)
		return err
	}

	sess := newSession(claims.UserID, claims.Role)
	s.SetContext(sess)
	s.Join(UserRoom(sess.UserID))
	s.Join(presenceRoom)

	g.Presence.Heartbeat(sess.UserID)
	go g.heartbeatLoop(sess)

	// best-effort; clients that miss this still see presence via the cache
	g.Server.BroadcastToRoom("/", presenceRoom, EventUserOnline, PresencePayload{UserID: sess.UserID})

	log.Printf("✅ Socket connected: %s (user %s)", s.ID(), sess.UserID)
	return nil
}

func (g *Gateway) handleDisconnect(s socketio.Conn, reason string) {
	sess := sessionOf(s)
	if sess == nil {
		return
	}
	sess.close()
	g.Presence.ClearOnline(sess.UserID)
	g.Server.BroadcastToRoom("/", presenceRoom, EventUserOffline, PresencePayload{UserID: sess.UserID})
	log.Printf("❌ Socket disconnected: %s (user %s, reason: %s)", s.ID(), sess.UserID, reason)
}

func (g *Gateway) heartbeatLoop(sess *Session) {
	ticker := time.NewTicker(services.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sess.done:
			return
		case <-ticker.C:
			g.Presence.Heartbeat(sess.UserID)
		}
	}
}

// NotifyUser implements services.Notifier: it pushes an event into a user's
// personal room, reaching every device they have connected.
func (g *Gateway) NotifyUser(userID string, event string, payload interface{}) {
	g.Server.BroadcastToRoom("/", UserRoom(userID), event, payload)
}

func sessionOf(s socketio.Conn) *Session {
	sess, _ := s.Context().(*Session)
	return sess
}

// handshakeToken pulls the bearer credential from the handshake query or
// the Authorization header.
func handshakeToken(s socketio.Conn) string {
	u := s.URL()
	if token := u.Query().Get("token"); token != "" {
		return token
	}
	auth := s.RemoteHeader().Get("Authorization")
	return strings.TrimPrefix(auth, "Bearer ")
}
