package postgres

import (
	"context"
	"database/sql"

	"menudocs/internal/model"
	"menudocs/internal/repository"
)

// FolderPostgres is a PostgreSQL implementation of repository.FolderRepository.
type FolderPostgres struct {
	db *sql.DB
}

// NewFolderPostgres creates a new FolderPostgres repository.
func NewFolderPostgres(db *sql.DB) *FolderPostgres {
	return &FolderPostgres{db: db}
}

var _ repository.FolderRepository = (*FolderPostgres)(nil)

func (r *FolderPostgres) Create(ctx context.Context, folder *model.Folder) (*model.Folder, error) {
	const q = `
		INSERT INTO folders (name, menu_name)
		VALUES ($1, $2)
		RETURNING id, name, menu_name, created_at
	`
	var out model.Folder
	if err := r.db.QueryRowContext(ctx, q, folder.Name, folder.MenuName).Scan(
		&out.ID,
		&out.Name,
		&out.MenuName,
		&out.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *FolderPostgres) FindByName(ctx context.Context, menu, name string) (*model.Folder, error) {
	const q = `
		SELECT id, name, menu_name, created_at
		FROM folders
		WHERE menu_name = $1 AND name = $2
		ORDER BY id
		LIMIT 1
	`
	var f model.Folder
	if err := r.db.QueryRowContext(ctx, q, menu, name).Scan(&f.ID, &f.Name, &f.MenuName, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FolderPostgres) ListByMenu(ctx context.Context, menu string) ([]model.Folder, error) {
	const q = `
		SELECT id, name, menu_name, created_at
		FROM folders
		WHERE menu_name = $1
		ORDER BY id
	`
	return r.query(ctx, q, menu)
}

func (r *FolderPostgres) List(ctx context.Context) ([]model.Folder, error) {
	const q = `
		SELECT id, name, menu_name, created_at
		FROM folders
		ORDER BY id
	`
	return r.query(ctx, q)
}

func (r *FolderPostgres) query(ctx context.Context, q string, args ...any) ([]model.Folder, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Folder, 0)
	for rows.Next() {
		var f model.Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.MenuName, &f.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
