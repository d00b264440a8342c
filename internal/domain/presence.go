package domain

import "time"

type (
	UserID    string
	SessionID string
	ElementID string
)

// PresenceStatus is a closed set; unknown statuses degrade to viewing.
type PresenceStatus string

const (
	StatusViewing PresenceStatus = "viewing"
	StatusEditing PresenceStatus = "editing"
)

// PresenceEntry is what the real-time channel delivers per collaborator.
// Created on join, refreshed on heartbeat, expired after inactivity.
type PresenceEntry struct {
	UserID     UserID         `json:"userId"`
	Status     PresenceStatus `json:"status"`
	Target     ElementID      `json:"targetElementId,omitempty"`
	Color      string         `json:"color"`
	LastSeenAt time.Time      `json:"lastSeenAt"`
}
