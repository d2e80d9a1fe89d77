package model

// User is a member of the organization
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Role        string `json:"role,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Name returns the best human-readable name for the user
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}
