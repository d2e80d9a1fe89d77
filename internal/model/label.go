package model

// Label is an entry of the shared label palette referenced by Task.Labels
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}
