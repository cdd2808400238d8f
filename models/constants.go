package models

// ✅ Connection statuses
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusBlocked  = "blocked"
)

// ✅ Message types
const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
)

// ✅ Validation limits
const (
	MaxMessageLength        = 5000
	MaxRequestMessageLength = 200
	LastMessagePreviewLen   = 500
)
