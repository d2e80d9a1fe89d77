package store

// Session identifies the signed-in principal whose tasks the store mirrors
type Session struct {
	UserID      string
	DisplayName string
	Email       string
	Roles       []string
}

// Name returns the principal's display name, falling back to email and id
func (s Session) Name() string {
	switch {
	case s.DisplayName != "":
		return s.DisplayName
	case s.Email != "":
		return s.Email
	default:
		return s.UserID
	}
}

// HasRole reports whether the principal holds role
func (s Session) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}
