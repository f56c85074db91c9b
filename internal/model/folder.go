package model

import "time"

// Folder groups documents under a menu section.
type Folder struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	MenuName  string    `json:"menu_name"`
	CreatedAt time.Time `json:"created_at"`
}
