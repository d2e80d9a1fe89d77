package model

// Project groups tasks; owned by the administrative surface and only
// cached by the client
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
	Archived    bool   `json:"archived"`
}

// DisplayName returns the project name, or its id when unnamed
func (p *Project) DisplayName() string {
	if p.Name == "" {
		return p.ID
	}
	return p.Name
}
