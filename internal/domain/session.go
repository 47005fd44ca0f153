package domain

import "time"

// Session associates an application user with a remote thread.
type Session struct {
	UserID    string    `json:"user_id"`
	ThreadID  string    `json:"thread_id"`
	CreatedAt time.Time `json:"created_at"`
}
