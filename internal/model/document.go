package model

import "time"

// File types accepted by the create endpoint.
const (
	FileTypeDocument = "Document"
	FileTypeFolder   = "Folder"
)

// Document is a named binary file filed under a menu and, optionally, a folder.
// Content and StorageKey are never serialized; callers fetch bytes through the
// document endpoint.
type Document struct {
	ID          int64     `json:"id"`
	FileType    string    `json:"file_type"`
	Name        string    `json:"name"`
	MenuName    string    `json:"menu_name"`
	FolderName  string    `json:"folder_name,omitempty"`
	FolderID    *int64    `json:"folder_id,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`

	// Content holds the inline payload when the database is the blob backend.
	Content []byte `json:"-"`
	// StorageKey points at the object holding the payload when it lives in object storage.
	StorageKey string `json:"-"`
}
