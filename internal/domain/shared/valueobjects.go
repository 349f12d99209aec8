package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// UserID represents a unique user identifier (UUID format).
type UserID string

// IsValid checks if the user ID is a valid UUID.
func (u UserID) IsValid() bool {
	return uuidRegex.MatchString(string(u))
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.ToLower(strings.TrimSpace(id)))
	if !uid.IsValid() {
		return "", ErrInvalidUserID
	}
	return uid, nil
}

// SessionID represents a unique study session identifier (UUID format).
type SessionID string

// IsValid checks if the session ID is a valid UUID.
func (s SessionID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s SessionID) String() string {
	return string(s)
}

// NewSessionID creates a new SessionID with validation.
func NewSessionID(id string) (SessionID, error) {
	sid := SessionID(strings.ToLower(strings.TrimSpace(id)))
	if !sid.IsValid() {
		return "", NewDomainError("shared", "NewSessionID", ErrInvalidID, "invalid session ID format")
	}
	return sid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Batch Limit Value Object
// ═══════════════════════════════════════════════════════════════════════════

const (
	DefaultBatchSize = 100
	MaxBatchSize     = 1000
)

// BatchLimit clamps a requested batch size for bulk store scans.
func BatchLimit(n int) int {
	if n <= 0 {
		return DefaultBatchSize
	}
	if n > MaxBatchSize {
		return MaxBatchSize
	}
	return n
}
