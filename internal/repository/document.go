package repository

import (
	"context"
	"errors"

	"menudocs/internal/model"
)

// ErrMalformedContent is returned when a stored payload cannot be read back as bytes.
var ErrMalformedContent = errors.New("stored document content is malformed")

// DocumentRepository defines data access for documents using SQL queries only.
// Lookups that match no row return sql.ErrNoRows.
type DocumentRepository interface {
	// Create inserts a new document record and returns it with the
	// database-generated ID and CreatedAt filled in.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document including its inline payload, if any.
	FindByID(ctx context.Context, id int64) (*model.Document, error)

	// ListByMenu returns metadata (no payload) for documents whose menu_name
	// equals menu, or whose folder_name names a folder under that menu.
	ListByMenu(ctx context.Context, menu string) ([]model.Document, error)
}

// FolderRepository defines data access for folders.
type FolderRepository interface {
	Create(ctx context.Context, folder *model.Folder) (*model.Folder, error)

	// FindByName returns the oldest folder with the given name under menu.
	FindByName(ctx context.Context, menu, name string) (*model.Folder, error)

	ListByMenu(ctx context.Context, menu string) ([]model.Folder, error)

	// List returns every folder.
	List(ctx context.Context) ([]model.Folder, error)
}
