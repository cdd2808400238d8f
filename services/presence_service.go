package services

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gomodule/redigo/redis"
)

// TTLs and limits for the ephemeral state keys. The durable stores never
// depend on any of these; everything here is advisory.
const (
	OnlineTTLSeconds    = 30
	TypingTTLSeconds    = 3
	RateLimitWindowSecs = 60
	RateLimitMax        = 50
	HeartbeatInterval   = 15 * time.Second
)

// PresenceService keeps the ephemeral chat state in Redis: online presence,
// typing indicators, per-user message rate counters, recent-conversation
// ordering and advisory unread counts. Every operation degrades to a no-op
// with a warning when Redis is unreachable; core messaging never depends on
// this layer.
type PresenceService struct {
	Pool *redis.Pool
}

// NewRedisPool builds the shared pool. addr may be empty, in which case the
// service runs permanently degraded (useful in tests and single-box setups).
func NewRedisPool(addr, password string) *redis.Pool {
	if addr == "" {
		return nil
	}
	return &redis.Pool{
		MaxIdle:     10,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			opts := []redis.DialOption{}
			if password != "" {
				opts = append(opts, redis.DialPassword(password))
			}
			return redis.Dial("tcp", addr, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// RedisAddrFromEnv reads the cache address from the environment.
func RedisAddrFromEnv() (addr, password string) {
	return os.Getenv("REDIS_ADDR"), os.Getenv("REDIS_PASSWORD")
}

func onlineKey(userID string) string         { return "user:online:" + userID }
func typingKey(convID, userID string) string { return "typing:" + convID + ":" + userID }
func rateKey(userID string) string           { return "ratelimit:message:" + userID }
func recentKey(userID string) string         { return "recent:chats:" + userID }
func unreadKey(userID string) string         { return "unread:" + userID }

func (s *PresenceService) conn() redis.Conn {
	if s == nil || s.Pool == nil {
		return nil
	}
	c := s.Pool.Get()
	if err := c.Err(); err != nil {
		log.Printf("⚠️ Redis unavailable, presence features degraded: %v", err)
		c.Close()
		return nil
	}
	return c
}

// Heartbeat refreshes the caller's online key. Called on connect and every
// HeartbeatInterval while the socket stays up.
func (s *PresenceService) Heartbeat(userID string) {
	c := s.conn()
	if c == nil {
		return
	}
	defer c.Close()

	if _, err := c.Do("SET", onlineKey(userID), fmt.Sprintf("%d", time.Now().UnixMilli()), "EX", OnlineTTLSeconds); err != nil {
		log.Printf("⚠️ Redis online status update failed: %v", err)
	}
}

// IsOnline reports whether the user's online key is alive.
func (s *PresenceService) IsOnline(userID string) bool {
	c := s.conn()
	if c == nil {
		return false
	}
	defer c.Close()

	exists, err := redis.Bool(c.Do("EXISTS", onlineKey(userID)))
	if err != nil {
		log.Printf("⚠️ Redis online check failed: %v", err)
		return false
	}
	return exists
}

// ClearOnline drops the online key on disconnect.
func (s *PresenceService) ClearOnline(userID string) {
	c := s.conn()
	if c == nil {
		return
	}
	defer c.Close()

	if _, err := c.Do("DEL", onlineKey(userID)); err != nil {
		log.Printf("⚠️ Redis online cleanup failed: %v", err)
	}
}

// SetTyping marks the user as typing in a conversation. The short TTL makes
// the indicator self-expiring; no stop event is required for correctness.
func (s *PresenceService) SetTyping(conversationID, userID string) {
	c := s.conn()
	if c == nil {
		return
	}
	defer c.Close()

	if _, err := c.Do("SET", typingKey(conversationID, userID), "typing", "EX", TypingTTLSeconds); err != nil {
		log.Printf("⚠️ Redis typing indicator failed: %v", err)
	}
}

// ClearTyping drops the typing key ahead of its TTL, for responsiveness.
func (s *PresenceService) ClearTyping(conversationID, userID string) {
	c := s.conn()
	if c == nil {
		return
	}
	defer c.Close()

	if _, err := c.Do("DEL", typingKey(conversationID, userID)); err != nil {
		log.Printf("⚠️ Redis typing cleanup failed: %v", err)
	}
}

// IsTyping reports whether the typing key is alive.
func (s *PresenceService) IsTyping(conversationID, userID string) bool {
	c := s.conn()
	if c == nil {
		return false
	}
	defer c.Close()

	exists, err := redis.Bool(c.Do("EXISTS", typingKey(conversationID, userID)))
	if err != nil {
		log.Printf("⚠️ Redis typing check failed: %v", err)
		return false
	}
	return exists
}

// CheckRateLimit counts a send attempt against the rolling window and
// reports whether it is allowed. The increment that trips the limit still
// counts, so hammering the limit never resets the window. Fails open when
// the cache is down.
func (s *PresenceService) CheckRateLimit(userID string) bool {
	c := s.conn()
	if c == nil {
		return true
	}
	defer c.Close()

	count, err := redis.Int(c.Do("INCR", rateKey(userID)))
	if err != nil {
		log.Printf("⚠️ Rate limit check failed: %v", err)
		return true
	}
	if count == 1 {
		if _, err := c.Do("EXPIRE", rateKey(userID), RateLimitWindowSecs); err != nil {
			log.Printf("⚠️ Rate limit window expiry failed: %v", err)
		}
	}
	return count <= RateLimitMax
}

// TouchRecentChat bumps the conversation in the user's recency ranking.
func (s *PresenceService) TouchRecentChat(userID, conversationID string) {
	c := s.conn()
	if c == nil {
		return
	}
	defer c.Close()

	if _, err := c.Do("ZADD", recentKey(userID), time.Now().UnixMilli(), conversationID); err != nil {
		log.Printf("⚠️ Redis recent-chats update failed: %v", err)
	}
}

// RecentChats returns the user's conversations by recency, newest first.
func (s *PresenceService) RecentChats(userID string, limit int) []string {
	c := s.conn()
	if c == nil {
		return nil
	}
	defer c.Close()

	if limit <= 0 {
		limit = 20
	}
	ids, err := redis.Strings(c.Do("ZREVRANGE", recentKey(userID), 0, limit-1))
	if err != nil {
		log.Printf("⚠️ Redis recent-chats fetch failed: %v", err)
		return nil
	}
	return ids
}

// RecordUnread bumps the advisory unread counter for a conversation. The
// authoritative count always derives from the message log.
func (s *PresenceService) RecordUnread(userID, conversationID string) {
	c := s.conn()
	if c == nil {
		return
	}
	defer c.Close()

	if _, err := c.Do("HINCRBY", unreadKey(userID), conversationID, 1); err != nil {
		log.Printf("⚠️ Redis unread increment failed: %v", err)
	}
}

// ClearUnread drops the unread counter for a conversation.
func (s *PresenceService) ClearUnread(userID, conversationID string) {
	c := s.conn()
	if c == nil {
		return
	}
	defer c.Close()

	if _, err := c.Do("HDEL", unreadKey(userID), conversationID); err != nil {
		log.Printf("⚠️ Redis unread cleanup failed: %v", err)
	}
}

// UnreadCounts returns the advisory unread counters keyed by conversation.
func (s *PresenceService) UnreadCounts(userID string) map[string]int {
	c := s.conn()
	if c == nil {
		return nil
	}
	defer c.Close()

	counts, err := redis.IntMap(c.Do("HGETALL", unreadKey(userID)))
	if err != nil {
		log.Printf("⚠️ Redis unread fetch failed: %v", err)
		return nil
	}
	return counts
}
