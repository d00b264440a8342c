package domain

import "time"

// Event is a tracked editor interaction. Queued locally, removed once
// flushed or confirmed dropped.
type Event struct {
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
	SessionID  string         `json:"sessionId"`
	UserID     UserID         `json:"userId,omitempty"`
	WeddingID  WeddingID      `json:"weddingId,omitempty"`
	CreatedAt  time.Time      `json:"createdAtLocal"`
	SinceStart time.Duration  `json:"sinceStartMs"`
}
