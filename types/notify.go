package types

const (
	NotifyTypePreview    = "preview"
	NotifyTypeValidation = "validation"
)

// Notification represents a notification message structure
type Notification struct {
	Type    string         `json:"type,omitempty"`    // Notification type, e.g. "preview", "validation"
	Title   string         `json:"title,omitempty"`   // Notification title
	Message string         `json:"message,omitempty"` // Notification message/content
	Data    map[string]any `json:"data,omitempty"`    // Additional data fields
}
