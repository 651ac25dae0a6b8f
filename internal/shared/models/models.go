package models

import "time"

// AskLog represents one handled research question
type AskLog struct {
	ID           string
	ClientID     string
	Endpoint     string
	Model        string
	TierLabel    string
	Degraded     bool
	CacheHit     bool
	LatencyMs    int
	StatusCode   int
	ErrorMessage *string
	CreatedAt    time.Time
}

// BanEvent records a temporary ban issued by the admission controller
type BanEvent struct {
	ID              string
	ClientID        string
	Endpoint        string
	DurationSeconds int
	CreatedAt       time.Time
}
