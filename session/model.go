package session

import "time"

// PermissionSet is the boolean permission map carried by a session, keyed
// by permission name as the backend declares it.
type PermissionSet map[string]bool

// Has reports whether p is granted.
func (s PermissionSet) Has(p string) bool {
	return s[p]
}

// HasAny reports whether at least one of ps is granted.
func (s PermissionSet) HasAny(ps ...string) bool {
	for _, p := range ps {
		if s[p] {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of ps is granted. True for an empty list.
func (s PermissionSet) HasAll(ps ...string) bool {
	for _, p := range ps {
		if !s[p] {
			return false
		}
	}
	return true
}

func (s PermissionSet) clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Session is one immutable snapshot of the authentication state.
//
// Invariant: Token is non-empty iff the session is authenticated, and a
// non-empty Token always carries a TokenExpiry.
type Session struct {
	UserID      string
	DisplayName string
	Email       string
	Role        string
	Permissions PermissionSet

	Token        string
	RefreshToken string
	TokenExpiry  time.Time

	// FailureMessage carries the human-readable reason when a login or
	// refresh failed and the published state is unauthenticated.
	FailureMessage string
}

// IsAuthenticated reports whether the session carries a token.
func (s Session) IsAuthenticated() bool {
	return s.Token != ""
}

// TokenValidAt reports whether the token exists and is unexpired at now.
func (s Session) TokenValidAt(now time.Time) bool {
	return s.Token != "" && now.Before(s.TokenExpiry)
}

// HasPermission reports whether the session grants p.
func (s Session) HasPermission(p string) bool {
	return s.Permissions.Has(p)
}
