package session

import "time"

// persistedSession is the durable wire form of a session. The field names
// and the RFC 3339 expiry are an external contract shared with other
// storefront clients; do not rename them.
type persistedSession struct {
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken"`
	TokenExpiry  time.Time       `json:"tokenExpiry"`
	User         persistedUser   `json:"user"`
	Permissions  map[string]bool `json:"permissions"`
}

type persistedUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func toPersisted(s Session) persistedSession {
	return persistedSession{
		Token:        s.Token,
		RefreshToken: s.RefreshToken,
		TokenExpiry:  s.TokenExpiry,
		User: persistedUser{
			ID:    s.UserID,
			Name:  s.DisplayName,
			Email: s.Email,
			Role:  s.Role,
		},
		Permissions: s.Permissions,
	}
}

func fromPersisted(p persistedSession) Session {
	perms := PermissionSet(p.Permissions)
	if perms == nil {
		perms = PermissionSet{}
	}
	return Session{
		UserID:       p.User.ID,
		DisplayName:  p.User.Name,
		Email:        p.User.Email,
		Role:         p.User.Role,
		Permissions:  perms,
		Token:        p.Token,
		RefreshToken: p.RefreshToken,
		TokenExpiry:  p.TokenExpiry,
	}
}
