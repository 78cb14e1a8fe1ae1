package models

import "time"

// SessionCookie is one browser cookie of a saved portal session
type SessionCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"` // Unix seconds, 0 for session cookies
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"http_only"`
	SameSite string  `json:"same_site,omitempty"`
}

// Session is a named, opaque credential blob captured from a manual login
type Session struct {
	Name    string          `json:"name"`
	SavedAt time.Time       `json:"saved_at"`
	Cookies []SessionCookie `json:"cookies"`
}

// SessionInfo describes a saved session for listing
type SessionInfo struct {
	Name     string    `json:"name"`
	Filename string    `json:"filename"`
	Modified time.Time `json:"modified"`
}

// LoginHandle references an open manual-login browser
type LoginHandle struct {
	ID          string    `json:"handle_id"`
	SessionName string    `json:"cookie_name"`
	OpenedAt    time.Time `json:"opened_at"`
}
