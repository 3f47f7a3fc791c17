package auth

import (
	"time"
)

// Token represents an API token for MCP access
type Token struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Scope      string     `json:"scope"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Scope constants. read may inspect sessions and history, write may
// evaluate and manage sessions, admin may additionally manage tokens.
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
	ScopeAdmin = "admin"
)

// ValidScope reports whether scope is one of the known scopes.
func ValidScope(scope string) bool {
	return scope == ScopeRead || scope == ScopeWrite || scope == ScopeAdmin
}

// AuthType represents the type of authentication used
type AuthType int

const (
	AuthTypeToken AuthType = iota
)

// AuthContext holds authentication information for a request
type AuthContext struct {
	Type  AuthType
	Token *Token
}

// CanWrite reports whether the context may mutate sessions.
func (a *AuthContext) CanWrite() bool {
	if a == nil || a.Token == nil {
		return false
	}
	return a.Token.Scope == ScopeWrite || a.Token.Scope == ScopeAdmin
}

// CanRead reports whether the context may inspect sessions.
func (a *AuthContext) CanRead() bool {
	return a != nil && a.Token != nil && ValidScope(a.Token.Scope)
}

// IsAdmin reports whether the context may manage tokens.
func (a *AuthContext) IsAdmin() bool {
	return a != nil && a.Token != nil && a.Token.Scope == ScopeAdmin
}
