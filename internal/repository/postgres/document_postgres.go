package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"menudocs/internal/model"
	"menudocs/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, file_type, name, menu_name, folder_name, folder_id, content_type, size, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner, d *model.Document, extra ...any) error {
	var (
		folderName sql.NullString
		folderID   sql.NullInt64
	)
	dest := append([]any{
		&d.ID,
		&d.FileType,
		&d.Name,
		&d.MenuName,
		&folderName,
		&folderID,
		&d.ContentType,
		&d.Size,
		&d.CreatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	d.FolderName = folderName.String
	if folderID.Valid {
		id := folderID.Int64
		d.FolderID = &id
	}
	return nil
}

// Create inserts a new document row. Inline content goes to the file column
// unless the payload lives in object storage, in which case file stays NULL.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (file_type, name, menu_name, folder_name, folder_id, content_type, size, file, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	var file any
	if doc.StorageKey == "" {
		content := doc.Content
		if content == nil {
			content = []byte{}
		}
		file = content
	}

	out := *doc
	row := r.db.QueryRowContext(ctx, q,
		doc.FileType,
		doc.Name,
		doc.MenuName,
		nullString(doc.FolderName),
		nullInt64(doc.FolderID),
		doc.ContentType,
		doc.Size,
		file,
		nullString(doc.StorageKey),
	)
	if err := row.Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single document with its payload reference.
func (r *DocumentPostgres) FindByID(ctx context.Context, id int64) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `, file, storage_key
		FROM documents
		WHERE id = $1
	`
	var (
		d          model.Document
		raw        any
		storageKey sql.NullString
	)
	if err := scanDocument(r.db.QueryRowContext(ctx, q, id), &d, &raw, &storageKey); err != nil {
		return nil, err
	}
	d.StorageKey = storageKey.String

	switch v := raw.(type) {
	case []byte:
		d.Content = v
	case nil:
		if d.StorageKey == "" {
			return nil, fmt.Errorf("document %d has no content: %w", id, repository.ErrMalformedContent)
		}
	default:
		return nil, fmt.Errorf("document %d content is %T: %w", id, raw, repository.ErrMalformedContent)
	}
	return &d, nil
}

// ListByMenu matches on the document's own menu, or on a folder_name that
// belongs to a folder under the menu. The folder clause is a subquery on
// name only, so a document can surface under a menu other than its own.
func (r *DocumentPostgres) ListByMenu(ctx context.Context, menu string) ([]model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE menu_name = $1
		   OR folder_name IN (SELECT name FROM folders WHERE menu_name = $1)
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, q, menu)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		var d model.Document
		if err := scanDocument(rows, &d); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
