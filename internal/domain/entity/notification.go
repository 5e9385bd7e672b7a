package entity

import "time"

// Notification is an in-app message delivered to one admin
type Notification struct {
	ID        int64      `json:"id"`
	AdminID   int64      `json:"admin_id"`
	FormID    *int64     `json:"form_id,omitempty"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Category  Category   `json:"category"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Message is the content handed to a notification sink
type Message struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Category Category `json:"category"`
	FormID   int64    `json:"form_id,omitempty"`
}
