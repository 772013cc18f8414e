package models

// Reminder is a notification owned by the reminder service. This module only
// ever looks reminders up by their entity key.
type Reminder struct {
	ID         string `json:"id"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Minutes    int    `json:"minutes"`
	Message    string `json:"message,omitempty"`
}
